/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package subtle

import (
	"crypto/cipher"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// ChaCha20Poly1305 is an implementation of the AEAD interface.
type ChaCha20Poly1305 struct {
	Key []byte
}

// NewChaCha20Poly1305 returns a ChaCha20-Poly1305 instance.
// The key argument must be chacha20poly1305.KeySize (32) bytes.
func NewChaCha20Poly1305(key []byte) (*ChaCha20Poly1305, error) {
	if len(key) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("chacha20poly1305: invalid key size %d, want %d",
			len(key), chacha20poly1305.KeySize)
	}

	return &ChaCha20Poly1305{Key: key}, nil
}

// Encrypt seals plaintext with the given nonce and additional data.
func (c *ChaCha20Poly1305) Encrypt(nonce, plaintext, additionalData []byte) ([]byte, error) {
	if len(plaintext) > maxInt-chacha20poly1305.Overhead {
		return nil, errors.New("chacha20poly1305: plaintext too long")
	}

	aead, err := c.newCipher(len(nonce))
	if err != nil {
		return nil, err
	}

	return aead.Seal(nil, nonce, plaintext, additionalData), nil
}

// Decrypt opens ciphertext with the given nonce and additional data.
// Authentication failures are returned exactly as the cipher reports them.
func (c *ChaCha20Poly1305) Decrypt(nonce, ciphertext, additionalData []byte) ([]byte, error) {
	if len(ciphertext) < chacha20poly1305.Overhead {
		return nil, errors.New("chacha20poly1305: ciphertext too short")
	}

	aead, err := c.newCipher(len(nonce))
	if err != nil {
		return nil, err
	}

	return aead.Open(nil, nonce, ciphertext, additionalData)
}

func (c *ChaCha20Poly1305) newCipher(nonceSize int) (cipher.AEAD, error) {
	if nonceSize != chacha20poly1305.NonceSize {
		return nil, fmt.Errorf("chacha20poly1305: invalid nonce size %d, want %d",
			nonceSize, chacha20poly1305.NonceSize)
	}

	return chacha20poly1305.New(c.Key)
}
