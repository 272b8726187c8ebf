/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package cryptoutil contains shared key-agreement helpers.
package cryptoutil

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/elliptic"
	"errors"
	"fmt"

	"golang.org/x/crypto/curve25519"
)

// Curve25519KeySize is the byte size of X25519 keys.
const Curve25519KeySize = 32

// DeriveECDHES derives the shared secret between an EC private key and a
// peer public key on the same NIST curve. The result is left-padded to the
// curve's coordinate size so it is usable as fixed-length KDF input.
func DeriveECDHES(privKey *ecdsa.PrivateKey, pubKey *ecdsa.PublicKey) ([]byte, error) {
	if privKey == nil || pubKey == nil {
		return nil, errors.New("deriveECDHES: nil key")
	}

	curve := privKey.PublicKey.Curve
	if curve != pubKey.Curve {
		return nil, errors.New("deriveECDHES: curve mismatch")
	}

	if !curve.IsOnCurve(pubKey.X, pubKey.Y) {
		return nil, errors.New("deriveECDHES: peer public key is not on the curve")
	}

	z, _ := curve.ScalarMult(pubKey.X, pubKey.Y, privKey.D.Bytes())

	zBytes := z.Bytes()
	if size := coordinateSize(curve); len(zBytes) < size {
		zBytes = append(bytes.Repeat([]byte{0}, size-len(zBytes)), zBytes...)
	}

	return zBytes, nil
}

// DeriveECDHX25519 derives the shared secret between an X25519 private key
// and a peer public key.
func DeriveECDHX25519(privKey, pubKey []byte) ([]byte, error) {
	if len(privKey) != Curve25519KeySize || len(pubKey) != Curve25519KeySize {
		return nil, fmt.Errorf("deriveECDHX25519: keys must be %d bytes", Curve25519KeySize)
	}

	z, err := curve25519.X25519(privKey, pubKey)
	if err != nil {
		return nil, fmt.Errorf("deriveECDHX25519: %w", err)
	}

	return z, nil
}

func coordinateSize(curve elliptic.Curve) int {
	bitLen := curve.Params().BitSize

	size := bitLen / 8
	if bitLen%8 != 0 {
		size++
	}

	return size
}
