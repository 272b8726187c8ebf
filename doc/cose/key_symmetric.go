/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package cose

import (
	"fmt"

	"github.com/google/tink/go/subtle/random"
)

// SymmetricKey is a COSE symmetric key. Alg, Ops, KID and BaseIV are
// optional restrictions and metadata.
type SymmetricKey struct {
	K      []byte
	Alg    Algorithm
	Ops    []KeyOp
	KID    []byte
	BaseIV []byte
}

// NewSymmetricKey returns a symmetric key holding a private copy of k.
func NewSymmetricKey(k []byte, alg Algorithm, ops ...KeyOp) *SymmetricKey {
	kk := make([]byte, len(k))
	copy(kk, k)

	return &SymmetricKey{K: kk, Alg: alg, Ops: ops}
}

// GenerateSymmetricKey returns a fresh random key of keyLen bytes.
func GenerateSymmetricKey(keyLen int, alg Algorithm, ops ...KeyOp) *SymmetricKey {
	return &SymmetricKey{K: random.GetRandomBytes(uint32(keyLen)), Alg: alg, Ops: ops}
}

// KeyType returns the COSE key type value.
func (k *SymmetricKey) KeyType() int64 {
	return KeyTypeSymmetric
}

// Zero wipes the key material in place.
func (k *SymmetricKey) Zero() {
	if k == nil {
		return
	}

	for i := range k.K {
		k.K[i] = 0
	}
}

// verify checks that the key is usable with the given algorithm and
// permitted for the given operation.
func (k *SymmetricKey) verify(alg Algorithm, op KeyOp) error {
	if k == nil || len(k.K) == 0 {
		return ErrMissingKey
	}

	if k.Alg != 0 && k.Alg != alg {
		return fmt.Errorf("cose: key algorithm %s does not match %s", k.Alg, alg)
	}

	if keyLen, err := alg.KeyLength(); err == nil && keyLen != len(k.K) {
		return fmt.Errorf("cose: key has %d bytes, %s requires %d", len(k.K), alg, keyLen)
	}

	if len(k.Ops) > 0 && !containsKeyOp(k.Ops, op) {
		return fmt.Errorf("cose: key does not permit the %s operation", op)
	}

	return nil
}

func (k *SymmetricKey) toMap() (map[interface{}]interface{}, error) {
	if len(k.K) == 0 {
		return nil, ErrMissingKey
	}

	m := map[interface{}]interface{}{
		keyParamKty: KeyTypeSymmetric,
		keyParamK:   k.K,
	}

	setCommonKeyParams(m, k.KID, k.Alg, k.Ops)

	if len(k.BaseIV) > 0 {
		m[keyParamBaseIV] = k.BaseIV
	}

	return m, nil
}

func symmetricKeyFromMap(m map[interface{}]interface{}) (*SymmetricKey, error) {
	kb, ok := bytesParam(m, keyParamK)
	if !ok {
		return nil, fmt.Errorf("symmetricKeyFromMap: missing key material")
	}

	kid, alg, ops, err := commonKeyParams(m)
	if err != nil {
		return nil, fmt.Errorf("symmetricKeyFromMap: %w", err)
	}

	baseIV, _ := bytesParam(m, keyParamBaseIV)

	return &SymmetricKey{K: kb, Alg: alg, Ops: ops, KID: kid, BaseIV: baseIV}, nil
}
