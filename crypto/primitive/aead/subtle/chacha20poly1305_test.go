/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package subtle

import (
	"encoding/hex"
	"testing"

	"github.com/google/tink/go/subtle/random"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/chacha20poly1305"
)

func TestNewChaCha20Poly1305(t *testing.T) {
	_, err := NewChaCha20Poly1305(make([]byte, chacha20poly1305.KeySize))
	require.NoError(t, err)

	_, err = NewChaCha20Poly1305(make([]byte, 16))
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid key size")
}

// Test vector from RFC 8439 section 2.8.2.
func TestChaCha20Poly1305_KnownVector(t *testing.T) {
	key, err := hex.DecodeString("808182838485868788898a8b8c8d8e8f909192939495969798999a9b9c9d9e9f")
	require.NoError(t, err)

	nonce, err := hex.DecodeString("070000004041424344454647")
	require.NoError(t, err)

	aad, err := hex.DecodeString("50515253c0c1c2c3c4c5c6c7")
	require.NoError(t, err)

	plaintext := []byte("Ladies and Gentlemen of the class of '99: If I could offer you " +
		"only one tip for the future, sunscreen would be it.")

	expected, err := hex.DecodeString(
		"d31a8d34648e60db7b86afbc53ef7ec2a4aded51296e08fea9e2b5a736ee62d6" +
			"3dbea45e8ca9671282fafb69da92728b1a71de0a9e060b2905d6a5b67ecd3b36" +
			"92ddbd7f2d778b8c9803aee328091b58fab324e4fad675945585808b4831d7bc" +
			"3ff4def08e4b7a9de576d26586cec64b6116" +
			"1ae10b594f09e26a7e902ecbd0600691")
	require.NoError(t, err)

	cipher, err := NewChaCha20Poly1305(key)
	require.NoError(t, err)

	ciphertext, err := cipher.Encrypt(nonce, plaintext, aad)
	require.NoError(t, err)
	require.Equal(t, expected, ciphertext)

	decrypted, err := cipher.Decrypt(nonce, ciphertext, aad)
	require.NoError(t, err)
	require.Equal(t, plaintext, decrypted)
}

func TestChaCha20Poly1305_RoundTrip(t *testing.T) {
	cipher, err := NewChaCha20Poly1305(random.GetRandomBytes(chacha20poly1305.KeySize))
	require.NoError(t, err)

	nonce := random.GetRandomBytes(chacha20poly1305.NonceSize)
	plaintext := []byte("authenticated payload")
	aad := []byte("authenticated context")

	ciphertext, err := cipher.Encrypt(nonce, plaintext, aad)
	require.NoError(t, err)
	require.Len(t, ciphertext, len(plaintext)+chacha20poly1305.Overhead)

	decrypted, err := cipher.Decrypt(nonce, ciphertext, aad)
	require.NoError(t, err)
	require.Equal(t, plaintext, decrypted)

	t.Run("tampered ciphertext", func(t *testing.T) {
		tampered := append([]byte(nil), ciphertext...)
		tampered[len(tampered)-1] ^= 1

		_, err := cipher.Decrypt(nonce, tampered, aad)
		require.EqualError(t, err, "chacha20poly1305: message authentication failed")
	})
}

func TestChaCha20Poly1305_Errors(t *testing.T) {
	cipher, err := NewChaCha20Poly1305(make([]byte, chacha20poly1305.KeySize))
	require.NoError(t, err)

	t.Run("invalid nonce size", func(t *testing.T) {
		_, err := cipher.Encrypt(make([]byte, 8), []byte("p"), nil)
		require.Error(t, err)
		require.Contains(t, err.Error(), "invalid nonce size")
	})

	t.Run("short ciphertext", func(t *testing.T) {
		_, err := cipher.Decrypt(make([]byte, chacha20poly1305.NonceSize),
			make([]byte, chacha20poly1305.Overhead-1), nil)
		require.Error(t, err)
		require.Contains(t, err.Error(), "ciphertext too short")
	})
}
