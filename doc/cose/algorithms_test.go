/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package cose

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/BrianSipos/go-cose/crypto/primitive/aead/subtle"
)

func TestAlgorithmFromID(t *testing.T) {
	alg, err := AlgorithmFromID(1)
	require.NoError(t, err)
	require.Equal(t, AlgorithmA128GCM, alg)

	alg, err = AlgorithmFromID(-29)
	require.NoError(t, err)
	require.Equal(t, AlgorithmECDHESA128KW, alg)

	_, err = AlgorithmFromID(9999)
	require.ErrorIs(t, err, ErrUnsupportedAlgorithm)
}

func TestAlgorithm_String(t *testing.T) {
	require.Equal(t, "A128GCM", AlgorithmA128GCM.String())
	require.Equal(t, "DIRECT", AlgorithmDirect.String())
	require.Equal(t, "ECDH-ES + A128KW", AlgorithmECDHESA128KW.String())
	require.Equal(t, "Algorithm(9999)", Algorithm(9999).String())
}

func TestAlgorithm_KeyLength(t *testing.T) {
	tests := []struct {
		alg    Algorithm
		length int
	}{
		{AlgorithmA128GCM, 16},
		{AlgorithmA192GCM, 24},
		{AlgorithmA256GCM, 32},
		{AlgorithmChaCha20Poly1305, 32},
		{AlgorithmA128KW, 16},
		{AlgorithmA256KW, 32},
		{AlgorithmAESCCM1664128, 16},
	}

	for _, tc := range tests {
		t.Run(tc.alg.String(), func(t *testing.T) {
			length, err := tc.alg.KeyLength()
			require.NoError(t, err)
			require.Equal(t, tc.length, length)
		})
	}

	t.Run("no key length", func(t *testing.T) {
		_, err := AlgorithmDirect.KeyLength()
		require.ErrorIs(t, err, ErrUnsupportedAlgorithm)
	})

	t.Run("unregistered", func(t *testing.T) {
		_, err := Algorithm(9999).KeyLength()
		require.ErrorIs(t, err, ErrUnsupportedAlgorithm)
	})
}

func TestAlgorithm_NewContentCipher(t *testing.T) {
	t.Run("aes-gcm", func(t *testing.T) {
		cipher, err := AlgorithmA256GCM.newContentCipher(make([]byte, 32))
		require.NoError(t, err)
		require.IsType(t, &subtle.AESGCM{}, cipher)
	})

	t.Run("chacha20-poly1305", func(t *testing.T) {
		cipher, err := AlgorithmChaCha20Poly1305.newContentCipher(make([]byte, 32))
		require.NoError(t, err)
		require.IsType(t, &subtle.ChaCha20Poly1305{}, cipher)
	})

	t.Run("registered without implementation", func(t *testing.T) {
		_, err := AlgorithmAESCCM1664128.newContentCipher(make([]byte, 16))
		require.ErrorIs(t, err, ErrUnsupportedAlgorithm)
	})

	t.Run("key management algorithm", func(t *testing.T) {
		_, err := AlgorithmA128KW.newContentCipher(make([]byte, 16))
		require.ErrorIs(t, err, ErrUnsupportedAlgorithm)
	})

	t.Run("bad key size", func(t *testing.T) {
		_, err := AlgorithmA128GCM.newContentCipher(make([]byte, 15))
		require.Error(t, err)
	})
}
