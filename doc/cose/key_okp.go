/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package cose

import (
	"fmt"

	"github.com/google/tink/go/subtle/random"
	"golang.org/x/crypto/curve25519"

	"github.com/BrianSipos/go-cose/util/cryptoutil"
)

// OKPKey is a COSE octet key pair on X25519. D is present for private keys
// only.
type OKPKey struct {
	Crv Curve
	X   []byte
	D   []byte
	Alg Algorithm
	Ops []KeyOp
	KID []byte
}

// GenerateOKPKey returns a fresh X25519 private key.
func GenerateOKPKey() (*OKPKey, error) {
	d := random.GetRandomBytes(cryptoutil.Curve25519KeySize)

	x, err := curve25519.X25519(d, curve25519.Basepoint)
	if err != nil {
		return nil, fmt.Errorf("generateOKPKey: %w", err)
	}

	return &OKPKey{Crv: CurveX25519, X: x, D: d}, nil
}

// KeyType returns the COSE key type value.
func (k *OKPKey) KeyType() int64 {
	return KeyTypeOKP
}

// Public returns the public half of the key, suitable for embedding in an
// ephemeral or static key header.
func (k *OKPKey) Public() *OKPKey {
	return &OKPKey{Crv: k.Crv, X: k.X, KID: k.KID}
}

// deriveECDH computes the shared secret between this private key and the
// peer's public key.
func (k *OKPKey) deriveECDH(peer *OKPKey) ([]byte, error) {
	if k.Crv != CurveX25519 || peer.Crv != CurveX25519 {
		return nil, fmt.Errorf("okp key: agreement requires %s keys", CurveX25519)
	}

	if len(k.D) == 0 {
		return nil, fmt.Errorf("okp key: missing private scalar")
	}

	if len(peer.X) == 0 {
		return nil, fmt.Errorf("okp key: missing peer public value")
	}

	return cryptoutil.DeriveECDHX25519(k.D, peer.X)
}

func (k *OKPKey) toMap() (map[interface{}]interface{}, error) {
	if len(k.X) == 0 {
		return nil, fmt.Errorf("okp key: missing public value")
	}

	m := map[interface{}]interface{}{
		keyParamKty:   KeyTypeOKP,
		keyParamCurve: int64(k.Crv),
		keyParamX:     k.X,
	}

	setCommonKeyParams(m, k.KID, k.Alg, k.Ops)

	return m, nil
}

func okpKeyFromMap(m map[interface{}]interface{}) (*OKPKey, error) {
	crv, ok := intParam(m, keyParamCurve)
	if !ok {
		return nil, fmt.Errorf("okpKeyFromMap: missing curve")
	}

	x, ok := bytesParam(m, keyParamX)
	if !ok {
		return nil, fmt.Errorf("okpKeyFromMap: missing public value")
	}

	kid, alg, ops, err := commonKeyParams(m)
	if err != nil {
		return nil, fmt.Errorf("okpKeyFromMap: %w", err)
	}

	d, _ := bytesParam(m, keyParamD)

	return &OKPKey{Crv: Curve(crv), X: x, D: d, Alg: alg, Ops: ops, KID: kid}, nil
}
