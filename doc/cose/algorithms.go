/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package cose

import (
	"crypto/sha256"
	"crypto/sha512"
	"fmt"
	"hash"

	"github.com/BrianSipos/go-cose/crypto/primitive/aead/subtle"
)

// Algorithm identifies a COSE algorithm by its registered value
// (https://www.iana.org/assignments/cose/cose.xhtml#algorithms).
type Algorithm int64

// Content encryption algorithms.
const (
	// AlgorithmA128GCM is AES-GCM with a 128-bit key.
	AlgorithmA128GCM Algorithm = 1
	// AlgorithmA192GCM is AES-GCM with a 192-bit key.
	AlgorithmA192GCM Algorithm = 2
	// AlgorithmA256GCM is AES-GCM with a 256-bit key.
	AlgorithmA256GCM Algorithm = 3
	// AlgorithmChaCha20Poly1305 is ChaCha20-Poly1305 with a 256-bit key.
	AlgorithmChaCha20Poly1305 Algorithm = 24

	// AES-CCM variants are registered for identification but carry no
	// cipher implementation here.
	AlgorithmAESCCM1664128  Algorithm = 10
	AlgorithmAESCCM1664256  Algorithm = 11
	AlgorithmAESCCM6464128  Algorithm = 12
	AlgorithmAESCCM6464256  Algorithm = 13
	AlgorithmAESCCM16128128 Algorithm = 30
	AlgorithmAESCCM16128256 Algorithm = 31
	AlgorithmAESCCM64128128 Algorithm = 32
	AlgorithmAESCCM64128256 Algorithm = 33
)

// Key management algorithms.
const (
	// AlgorithmDirect uses a pre-shared CEK with no key transport.
	AlgorithmDirect Algorithm = -6

	// AlgorithmA128KW, AlgorithmA192KW and AlgorithmA256KW are AES key wrap
	// (RFC 3394) with a pre-shared KEK.
	AlgorithmA128KW Algorithm = -3
	AlgorithmA192KW Algorithm = -4
	AlgorithmA256KW Algorithm = -5

	// ECDH-ES variants derive the CEK (or a wrapping KEK) from an ephemeral-
	// static agreement; ECDH-SS variants from a static-static agreement.
	AlgorithmECDHESHKDF256 Algorithm = -25
	AlgorithmECDHESHKDF512 Algorithm = -26
	AlgorithmECDHSSHKDF256 Algorithm = -27
	AlgorithmECDHSSHKDF512 Algorithm = -28
	AlgorithmECDHESA128KW  Algorithm = -29
	AlgorithmECDHESA192KW  Algorithm = -30
	AlgorithmECDHESA256KW  Algorithm = -31
	AlgorithmECDHSSA128KW  Algorithm = -34
	AlgorithmECDHSSA192KW  Algorithm = -35
	AlgorithmECDHSSA256KW  Algorithm = -36
)

// algorithmFamily drives recipient classification and cipher dispatch.
type algorithmFamily int

const (
	familyContentAEAD algorithmFamily = iota + 1
	familyDirect
	familyKeyWrap
	familyDirectKeyAgreement
	familyKeyAgreementWithKeyWrap
)

type algorithmInfo struct {
	name      string
	family    algorithmFamily
	keyLength int              // bytes of key material the algorithm consumes, 0 if not applicable
	kdfHash   func() hash.Hash // agreement algorithms only
	wrapAlg   Algorithm        // agreement-with-key-wrap algorithms only
	static    bool             // static-static agreement (ECDH-SS)
}

var algorithms = map[Algorithm]algorithmInfo{ //nolint:gochecknoglobals
	AlgorithmA128GCM:          {name: "A128GCM", family: familyContentAEAD, keyLength: subtle.AES128Size},
	AlgorithmA192GCM:          {name: "A192GCM", family: familyContentAEAD, keyLength: subtle.AES192Size},
	AlgorithmA256GCM:          {name: "A256GCM", family: familyContentAEAD, keyLength: subtle.AES256Size},
	AlgorithmChaCha20Poly1305: {name: "ChaCha20/Poly1305", family: familyContentAEAD, keyLength: 32},

	AlgorithmAESCCM1664128:  {name: "AES-CCM-16-64-128", family: familyContentAEAD, keyLength: 16},
	AlgorithmAESCCM1664256:  {name: "AES-CCM-16-64-256", family: familyContentAEAD, keyLength: 32},
	AlgorithmAESCCM6464128:  {name: "AES-CCM-64-64-128", family: familyContentAEAD, keyLength: 16},
	AlgorithmAESCCM6464256:  {name: "AES-CCM-64-64-256", family: familyContentAEAD, keyLength: 32},
	AlgorithmAESCCM16128128: {name: "AES-CCM-16-128-128", family: familyContentAEAD, keyLength: 16},
	AlgorithmAESCCM16128256: {name: "AES-CCM-16-128-256", family: familyContentAEAD, keyLength: 32},
	AlgorithmAESCCM64128128: {name: "AES-CCM-64-128-128", family: familyContentAEAD, keyLength: 16},
	AlgorithmAESCCM64128256: {name: "AES-CCM-64-128-256", family: familyContentAEAD, keyLength: 32},

	AlgorithmDirect: {name: "DIRECT", family: familyDirect},

	AlgorithmA128KW: {name: "A128KW", family: familyKeyWrap, keyLength: subtle.AES128Size},
	AlgorithmA192KW: {name: "A192KW", family: familyKeyWrap, keyLength: subtle.AES192Size},
	AlgorithmA256KW: {name: "A256KW", family: familyKeyWrap, keyLength: subtle.AES256Size},

	AlgorithmECDHESHKDF256: {name: "ECDH-ES + HKDF-256", family: familyDirectKeyAgreement, kdfHash: sha256.New},
	AlgorithmECDHESHKDF512: {name: "ECDH-ES + HKDF-512", family: familyDirectKeyAgreement, kdfHash: sha512.New},
	AlgorithmECDHSSHKDF256: {name: "ECDH-SS + HKDF-256", family: familyDirectKeyAgreement, kdfHash: sha256.New, static: true},
	AlgorithmECDHSSHKDF512: {name: "ECDH-SS + HKDF-512", family: familyDirectKeyAgreement, kdfHash: sha512.New, static: true},

	AlgorithmECDHESA128KW: {name: "ECDH-ES + A128KW", family: familyKeyAgreementWithKeyWrap, kdfHash: sha256.New, wrapAlg: AlgorithmA128KW},
	AlgorithmECDHESA192KW: {name: "ECDH-ES + A192KW", family: familyKeyAgreementWithKeyWrap, kdfHash: sha256.New, wrapAlg: AlgorithmA192KW},
	AlgorithmECDHESA256KW: {name: "ECDH-ES + A256KW", family: familyKeyAgreementWithKeyWrap, kdfHash: sha256.New, wrapAlg: AlgorithmA256KW},
	AlgorithmECDHSSA128KW: {name: "ECDH-SS + A128KW", family: familyKeyAgreementWithKeyWrap, kdfHash: sha256.New, wrapAlg: AlgorithmA128KW, static: true},
	AlgorithmECDHSSA192KW: {name: "ECDH-SS + A192KW", family: familyKeyAgreementWithKeyWrap, kdfHash: sha256.New, wrapAlg: AlgorithmA192KW, static: true},
	AlgorithmECDHSSA256KW: {name: "ECDH-SS + A256KW", family: familyKeyAgreementWithKeyWrap, kdfHash: sha256.New, wrapAlg: AlgorithmA256KW, static: true},
}

// AlgorithmFromID resolves a registered algorithm from its integer value.
func AlgorithmFromID(id int64) (Algorithm, error) {
	if _, ok := algorithms[Algorithm(id)]; !ok {
		return 0, fmt.Errorf("%w: %d", ErrUnsupportedAlgorithm, id)
	}

	return Algorithm(id), nil
}

// String returns the registered algorithm name.
func (a Algorithm) String() string {
	if info, ok := algorithms[a]; ok {
		return info.name
	}

	return fmt.Sprintf("Algorithm(%d)", int64(a))
}

// KeyLength returns the byte length of key material the algorithm consumes.
func (a Algorithm) KeyLength() (int, error) {
	info, ok := algorithms[a]
	if !ok {
		return 0, fmt.Errorf("%w: %d", ErrUnsupportedAlgorithm, int64(a))
	}

	if info.keyLength == 0 {
		return 0, fmt.Errorf("%w: %s has no key length", ErrUnsupportedAlgorithm, a)
	}

	return info.keyLength, nil
}

func (a Algorithm) info() (algorithmInfo, error) {
	info, ok := algorithms[a]
	if !ok {
		return algorithmInfo{}, fmt.Errorf("%w: %d", ErrUnsupportedAlgorithm, int64(a))
	}

	return info, nil
}

func (a Algorithm) isFamily(f algorithmFamily) bool {
	info, ok := algorithms[a]

	return ok && info.family == f
}

// newContentCipher builds the AEAD for a content encryption algorithm.
func (a Algorithm) newContentCipher(key []byte) (subtle.AEAD, error) {
	switch a {
	case AlgorithmA128GCM, AlgorithmA192GCM, AlgorithmA256GCM:
		return subtle.NewAESGCM(key)
	case AlgorithmChaCha20Poly1305:
		return subtle.NewChaCha20Poly1305(key)
	default:
		return nil, fmt.Errorf("%w: no content cipher for %s", ErrUnsupportedAlgorithm, a)
	}
}
