/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package subtle

import (
	"crypto/aes"
	"crypto/cipher"
	"errors"
	"fmt"
)

const (
	// AESGCMIVSize is the size, in bytes, of the nonce used with AES-GCM.
	AESGCMIVSize = 12
	// AESGCMTagSize is the size, in bytes, of the GCM authentication tag.
	AESGCMTagSize = 16
)

// AESGCM is an implementation of the AEAD interface.
//
// The nonce travels in the message headers rather than as a ciphertext
// prefix, so Encrypt and Decrypt take it explicitly instead of generating
// one internally.
type AESGCM struct {
	Key []byte
}

// NewAESGCM returns an AES-GCM instance.
// The key argument should be the AES key, either 16, 24 or 32 bytes to select AES-128, AES-192 or AES-256.
func NewAESGCM(key []byte) (*AESGCM, error) {
	if err := ValidateAESKeySize(uint32(len(key))); err != nil {
		return nil, fmt.Errorf("aes_gcm: %w", err)
	}

	return &AESGCM{Key: key}, nil
}

// Encrypt seals plaintext with the given nonce and additional data. The
// returned ciphertext carries the authentication tag as its final
// AESGCMTagSize bytes and does not include the nonce.
func (a *AESGCM) Encrypt(nonce, plaintext, additionalData []byte) ([]byte, error) {
	if len(plaintext) > maxInt-AESGCMTagSize {
		return nil, errors.New("aes_gcm: plaintext too long")
	}

	aead, err := a.newCipher(len(nonce))
	if err != nil {
		return nil, err
	}

	return aead.Seal(nil, nonce, plaintext, additionalData), nil
}

// Decrypt opens ciphertext with the given nonce and additional data.
// Authentication failures are returned exactly as the cipher reports them.
func (a *AESGCM) Decrypt(nonce, ciphertext, additionalData []byte) ([]byte, error) {
	if len(ciphertext) < AESGCMTagSize {
		return nil, errors.New("aes_gcm: ciphertext too short")
	}

	aead, err := a.newCipher(len(nonce))
	if err != nil {
		return nil, err
	}

	return aead.Open(nil, nonce, ciphertext, additionalData)
}

func (a *AESGCM) newCipher(nonceSize int) (cipher.AEAD, error) {
	if nonceSize != AESGCMIVSize {
		return nil, fmt.Errorf("aes_gcm: invalid nonce size %d, want %d", nonceSize, AESGCMIVSize)
	}

	block, err := aes.NewCipher(a.Key)
	if err != nil {
		return nil, fmt.Errorf("aes_gcm: %w", err)
	}

	return cipher.NewGCM(block)
}
