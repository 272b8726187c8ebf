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
)

func TestNewAESGCM(t *testing.T) {
	for _, size := range []int{16, 24, 32} {
		_, err := NewAESGCM(make([]byte, size))
		require.NoError(t, err)
	}

	_, err := NewAESGCM(make([]byte, 15))
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid AES key size")
}

// Test vectors from McGrew and Viega, "The Galois/Counter Mode of Operation",
// appendix B, AES-128 test cases 1 and 2.
func TestAESGCM_KnownVectors(t *testing.T) {
	cipher, err := NewAESGCM(make([]byte, 16))
	require.NoError(t, err)

	nonce := make([]byte, 12)

	t.Run("empty plaintext yields only the tag", func(t *testing.T) {
		ciphertext, err := cipher.Encrypt(nonce, nil, nil)
		require.NoError(t, err)
		require.Equal(t, "58e2fccefa7e3061367f1d57a4e7455a", hex.EncodeToString(ciphertext))
	})

	t.Run("single block", func(t *testing.T) {
		ciphertext, err := cipher.Encrypt(nonce, make([]byte, 16), nil)
		require.NoError(t, err)
		require.Equal(t,
			"0388dace60b6a392f328c2b971b2fe78ab6e47d42cec13bdf53a67b21257bddf",
			hex.EncodeToString(ciphertext))

		plaintext, err := cipher.Decrypt(nonce, ciphertext, nil)
		require.NoError(t, err)
		require.Equal(t, make([]byte, 16), plaintext)
	})
}

func TestAESGCM_RoundTrip(t *testing.T) {
	cipher, err := NewAESGCM(random.GetRandomBytes(32))
	require.NoError(t, err)

	nonce := random.GetRandomBytes(AESGCMIVSize)
	plaintext := []byte("authenticated payload")
	aad := []byte("authenticated context")

	ciphertext, err := cipher.Encrypt(nonce, plaintext, aad)
	require.NoError(t, err)
	require.Len(t, ciphertext, len(plaintext)+AESGCMTagSize)

	decrypted, err := cipher.Decrypt(nonce, ciphertext, aad)
	require.NoError(t, err)
	require.Equal(t, plaintext, decrypted)

	t.Run("tampered ciphertext", func(t *testing.T) {
		tampered := append([]byte(nil), ciphertext...)
		tampered[0] ^= 1

		_, err := cipher.Decrypt(nonce, tampered, aad)
		require.EqualError(t, err, "cipher: message authentication failed")
	})

	t.Run("wrong additional data", func(t *testing.T) {
		_, err := cipher.Decrypt(nonce, ciphertext, []byte("other context"))
		require.EqualError(t, err, "cipher: message authentication failed")
	})
}

func TestAESGCM_Errors(t *testing.T) {
	cipher, err := NewAESGCM(make([]byte, 16))
	require.NoError(t, err)

	t.Run("invalid nonce size", func(t *testing.T) {
		_, err := cipher.Encrypt(make([]byte, 11), []byte("p"), nil)
		require.Error(t, err)
		require.Contains(t, err.Error(), "invalid nonce size")
	})

	t.Run("short ciphertext", func(t *testing.T) {
		_, err := cipher.Decrypt(make([]byte, 12), make([]byte, AESGCMTagSize-1), nil)
		require.Error(t, err)
		require.Contains(t, err.Error(), "ciphertext too short")
	})
}
