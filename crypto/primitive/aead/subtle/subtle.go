/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package subtle provides subtle implementations of the AEAD primitive
// with caller-managed nonces.
package subtle

import (
	"fmt"
)

const (
	maxInt = int(^uint(0) >> 1)
	// AES128Size value in number of bytes.
	AES128Size = 16
	// AES192Size value in number of bytes.
	AES192Size = 24
	// AES256Size value in number of bytes.
	AES256Size = 32
)

// AEAD is implemented by ciphers that seal and open with an explicit nonce.
type AEAD interface {
	Encrypt(nonce, plaintext, additionalData []byte) ([]byte, error)
	Decrypt(nonce, ciphertext, additionalData []byte) ([]byte, error)
}

// ValidateAESKeySize checks if the given key size is a valid AES key size.
func ValidateAESKeySize(sizeInBytes uint32) error {
	switch sizeInBytes {
	case AES128Size, AES192Size, AES256Size:
		return nil
	default:
		return fmt.Errorf("invalid AES key size; want 16, 24 or 32, got %d", sizeInBytes)
	}
}
