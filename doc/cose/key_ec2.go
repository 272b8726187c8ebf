/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package cose

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/BrianSipos/go-cose/util/cryptoutil"
)

// EC2Key is a COSE double-coordinate elliptic curve key. D is present for
// private keys only. Coordinates are fixed-width big-endian, padded to the
// curve size.
type EC2Key struct {
	Crv Curve
	X   []byte
	Y   []byte
	D   []byte
	Alg Algorithm
	Ops []KeyOp
	KID []byte
}

// GenerateEC2Key returns a fresh private key on the given NIST curve.
func GenerateEC2Key(crv Curve) (*EC2Key, error) {
	curve, err := ellipticCurve(crv)
	if err != nil {
		return nil, fmt.Errorf("generateEC2Key: %w", err)
	}

	priv, err := ecdsa.GenerateKey(curve, rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generateEC2Key: %w", err)
	}

	size := coordinateBytes(curve)

	return &EC2Key{
		Crv: crv,
		X:   priv.PublicKey.X.FillBytes(make([]byte, size)),
		Y:   priv.PublicKey.Y.FillBytes(make([]byte, size)),
		D:   priv.D.FillBytes(make([]byte, size)),
	}, nil
}

// KeyType returns the COSE key type value.
func (k *EC2Key) KeyType() int64 {
	return KeyTypeEC2
}

// Public returns the public half of the key, suitable for embedding in an
// ephemeral or static key header.
func (k *EC2Key) Public() *EC2Key {
	return &EC2Key{Crv: k.Crv, X: k.X, Y: k.Y, KID: k.KID}
}

// deriveECDH computes the shared secret between this private key and the
// peer's public key.
func (k *EC2Key) deriveECDH(peer *EC2Key) ([]byte, error) {
	priv, err := k.privateKey()
	if err != nil {
		return nil, err
	}

	pub, err := peer.publicKey()
	if err != nil {
		return nil, err
	}

	return cryptoutil.DeriveECDHES(priv, pub)
}

func (k *EC2Key) privateKey() (*ecdsa.PrivateKey, error) {
	if len(k.D) == 0 {
		return nil, fmt.Errorf("ec2 key: missing private scalar")
	}

	pub, err := k.publicKey()
	if err != nil {
		return nil, err
	}

	return &ecdsa.PrivateKey{PublicKey: *pub, D: new(big.Int).SetBytes(k.D)}, nil
}

func (k *EC2Key) publicKey() (*ecdsa.PublicKey, error) {
	curve, err := ellipticCurve(k.Crv)
	if err != nil {
		return nil, err
	}

	if len(k.X) == 0 || len(k.Y) == 0 {
		return nil, fmt.Errorf("ec2 key: missing public coordinates")
	}

	return &ecdsa.PublicKey{
		Curve: curve,
		X:     new(big.Int).SetBytes(k.X),
		Y:     new(big.Int).SetBytes(k.Y),
	}, nil
}

func (k *EC2Key) toMap() (map[interface{}]interface{}, error) {
	if len(k.X) == 0 || len(k.Y) == 0 {
		return nil, fmt.Errorf("ec2 key: missing public coordinates")
	}

	m := map[interface{}]interface{}{
		keyParamKty:   KeyTypeEC2,
		keyParamCurve: int64(k.Crv),
		keyParamX:     k.X,
		keyParamY:     k.Y,
	}

	setCommonKeyParams(m, k.KID, k.Alg, k.Ops)

	return m, nil
}

func ec2KeyFromMap(m map[interface{}]interface{}) (*EC2Key, error) {
	crv, ok := intParam(m, keyParamCurve)
	if !ok {
		return nil, fmt.Errorf("ec2KeyFromMap: missing curve")
	}

	x, ok := bytesParam(m, keyParamX)
	if !ok {
		return nil, fmt.Errorf("ec2KeyFromMap: missing x coordinate")
	}

	y, ok := bytesParam(m, keyParamY)
	if !ok {
		return nil, fmt.Errorf("ec2KeyFromMap: missing y coordinate")
	}

	kid, alg, ops, err := commonKeyParams(m)
	if err != nil {
		return nil, fmt.Errorf("ec2KeyFromMap: %w", err)
	}

	d, _ := bytesParam(m, keyParamD)

	return &EC2Key{Crv: Curve(crv), X: x, Y: y, D: d, Alg: alg, Ops: ops, KID: kid}, nil
}

func ellipticCurve(crv Curve) (elliptic.Curve, error) {
	switch crv {
	case CurveP256:
		return elliptic.P256(), nil
	case CurveP384:
		return elliptic.P384(), nil
	case CurveP521:
		return elliptic.P521(), nil
	default:
		return nil, fmt.Errorf("unsupported EC2 curve %s", crv)
	}
}

func coordinateBytes(curve elliptic.Curve) int {
	return (curve.Params().BitSize + 7) / 8
}
