/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package cose

import (
	"encoding/hex"
	"testing"

	"github.com/google/tink/go/subtle/random"
	"github.com/stretchr/testify/require"
)

func TestRecipient_Class(t *testing.T) {
	tests := []struct {
		name  string
		alg   interface{}
		class RecipientClass
	}{
		{"direct", AlgorithmDirect, RecipientClassDirectEncryption},
		{"ecdh-es hkdf", AlgorithmECDHESHKDF256, RecipientClassDirectKeyAgreement},
		{"ecdh-ss hkdf", AlgorithmECDHSSHKDF512, RecipientClassDirectKeyAgreement},
		{"aes key wrap", AlgorithmA128KW, RecipientClassKeyWrap},
		{"aes key wrap 256", AlgorithmA256KW, RecipientClassKeyWrap},
		{"aead as key encryption", AlgorithmA128GCM, RecipientClassKeyWrap},
		{"ecdh-es key wrap", AlgorithmECDHESA128KW, RecipientClassKeyAgreementWithKeyWrap},
		{"ecdh-ss key wrap as raw label value", int64(AlgorithmECDHSSA256KW), RecipientClassKeyAgreementWithKeyWrap},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r, err := NewRecipient(nil, Headers{HeaderAlgorithm: tc.alg})
			require.NoError(t, err)
			require.Equal(t, tc.class, r.Class())
		})
	}

	t.Run("no algorithm header", func(t *testing.T) {
		r, err := NewRecipient(nil, nil)
		require.NoError(t, err)
		require.Equal(t, RecipientClassUnknown, r.Class())
	})

	t.Run("class names", func(t *testing.T) {
		require.Equal(t, "KeyWrap", RecipientClassKeyWrap.String())
		require.Equal(t, "RecipientClass(99)", RecipientClass(99).String())
	})
}

func TestClassifyRecipients(t *testing.T) {
	t.Run("empty list has no class", func(t *testing.T) {
		class, err := classifyRecipients(nil)
		require.NoError(t, err)
		require.Equal(t, RecipientClassUnknown, class)
	})

	t.Run("uniform list", func(t *testing.T) {
		r1, err := NewRecipient(nil, Headers{HeaderAlgorithm: AlgorithmA128KW})
		require.NoError(t, err)

		r2, err := NewRecipient(nil, Headers{HeaderAlgorithm: AlgorithmA256KW})
		require.NoError(t, err)

		class, err := classifyRecipients([]*Recipient{r1, r2})
		require.NoError(t, err)
		require.Equal(t, RecipientClassKeyWrap, class)
	})

	t.Run("mixed list", func(t *testing.T) {
		direct, err := NewRecipient(nil, Headers{HeaderAlgorithm: AlgorithmDirect})
		require.NoError(t, err)

		wrap, err := NewRecipient(nil, Headers{HeaderAlgorithm: AlgorithmA128KW})
		require.NoError(t, err)

		_, err = classifyRecipients([]*Recipient{direct, wrap})
		require.ErrorIs(t, err, ErrUnsupportedRecipientClass)
	})

	t.Run("unclassifiable entry", func(t *testing.T) {
		bare, err := NewRecipient(nil, nil)
		require.NoError(t, err)

		_, err = classifyRecipients([]*Recipient{bare})
		require.ErrorIs(t, err, ErrUnsupportedRecipientClass)
	})
}

func TestWrapKey_RFC3394Vector(t *testing.T) {
	kek, err := hex.DecodeString("000102030405060708090a0b0c0d0e0f")
	require.NoError(t, err)

	keyData, err := hex.DecodeString("00112233445566778899aabbccddeeff")
	require.NoError(t, err)

	expected, err := hex.DecodeString("1fa68b0a8112b447aef34bd8fb5a7b829d3e862371d2cfe5")
	require.NoError(t, err)

	wrapped, err := wrapKey(kek, keyData)
	require.NoError(t, err)
	require.Equal(t, expected, wrapped)

	unwrapped, err := unwrapKey(kek, wrapped)
	require.NoError(t, err)
	require.Equal(t, keyData, unwrapped)
}

func TestRecipient_KeyWrap(t *testing.T) {
	kek := GenerateSymmetricKey(16, AlgorithmA128KW)
	cek := random.GetRandomBytes(16)

	t.Run("wrap and unwrap", func(t *testing.T) {
		r, err := NewRecipient(nil, Headers{HeaderAlgorithm: AlgorithmA128KW})
		require.NoError(t, err)

		r.SetKey(kek)
		r.SetPayload(cek)

		require.NoError(t, r.Encrypt(AlgorithmA128GCM))
		require.Len(t, r.Ciphertext(), len(cek)+8)

		key, err := r.computeCEK(AlgorithmA128GCM, KeyOpDecrypt)
		require.NoError(t, err)
		require.Equal(t, cek, key.K)
		require.Equal(t, cek, r.Payload())
	})

	t.Run("protected headers rejected", func(t *testing.T) {
		r, err := NewRecipient(Headers{HeaderAlgorithm: AlgorithmA128KW}, nil)
		require.NoError(t, err)

		r.SetKey(kek)
		r.SetPayload(cek)

		err = r.Encrypt(AlgorithmA128GCM)
		require.Error(t, err)
		require.Contains(t, err.Error(), "requires an empty protected header")
	})

	t.Run("no key material to wrap", func(t *testing.T) {
		r, err := NewRecipient(nil, Headers{HeaderAlgorithm: AlgorithmA128KW})
		require.NoError(t, err)

		r.SetKey(kek)

		err = r.Encrypt(AlgorithmA128GCM)
		require.ErrorIs(t, err, ErrMissingKey)
	})

	t.Run("wrong kek length", func(t *testing.T) {
		r, err := NewRecipient(nil, Headers{HeaderAlgorithm: AlgorithmA128KW})
		require.NoError(t, err)

		r.SetKey(GenerateSymmetricKey(32, AlgorithmA128KW))
		r.SetPayload(cek)

		require.Error(t, r.Encrypt(AlgorithmA128GCM))
	})
}

func TestRecipient_AEADKeyEncryption(t *testing.T) {
	kek := GenerateSymmetricKey(16, AlgorithmA128GCM)
	cek := random.GetRandomBytes(16)

	r, err := NewRecipient(
		Headers{HeaderAlgorithm: AlgorithmA128GCM},
		Headers{HeaderIV: random.GetRandomBytes(12)})
	require.NoError(t, err)

	r.SetKey(kek)
	r.SetPayload(cek)

	require.NoError(t, r.Encrypt(AlgorithmA128GCM))
	require.Len(t, r.Ciphertext(), len(cek)+16)

	key, err := r.computeCEK(AlgorithmA128GCM, KeyOpDecrypt)
	require.NoError(t, err)
	require.Equal(t, cek, key.K)
}

func TestRecipient_AgreeAndWrap(t *testing.T) {
	cek := random.GetRandomBytes(16)

	t.Run("ephemeral-static with EC2 keys", func(t *testing.T) {
		recipientKey, err := GenerateEC2Key(CurveP256)
		require.NoError(t, err)

		r, err := NewRecipient(nil, Headers{HeaderAlgorithm: AlgorithmECDHESA128KW})
		require.NoError(t, err)

		r.SetPeerKey(recipientKey.Public())
		r.SetPayload(cek)

		require.NoError(t, r.Encrypt(AlgorithmA128GCM))
		require.Len(t, r.Ciphertext(), len(cek)+8)

		// the wrap published an ephemeral key for the unwrap side
		epk, ok := r.UnprotectedHeaders()[HeaderEphemeralKey]
		require.True(t, ok)
		require.NotNil(t, epk)

		r.SetKey(recipientKey)

		key, err := r.computeCEK(AlgorithmA128GCM, KeyOpDecrypt)
		require.NoError(t, err)
		require.Equal(t, cek, key.K)
	})

	t.Run("static-static with OKP keys", func(t *testing.T) {
		senderKey, err := GenerateOKPKey()
		require.NoError(t, err)

		recipientKey, err := GenerateOKPKey()
		require.NoError(t, err)

		r, err := NewRecipient(nil, Headers{
			HeaderAlgorithm: AlgorithmECDHSSA128KW,
			HeaderSalt:      random.GetRandomBytes(32),
		})
		require.NoError(t, err)

		r.SetKey(senderKey)
		r.SetPeerKey(recipientKey.Public())
		r.SetPayload(cek)

		require.NoError(t, r.Encrypt(AlgorithmA128GCM))

		// the receiving side holds its own private key and the sender's
		// static public key
		r.SetKey(recipientKey)
		r.SetPeerKey(senderKey.Public())

		key, err := r.computeCEK(AlgorithmA128GCM, KeyOpDecrypt)
		require.NoError(t, err)
		require.Equal(t, cek, key.K)
	})

	t.Run("missing peer key", func(t *testing.T) {
		r, err := NewRecipient(nil, Headers{HeaderAlgorithm: AlgorithmECDHESA128KW})
		require.NoError(t, err)

		r.SetPayload(cek)

		err = r.Encrypt(AlgorithmA128GCM)
		require.Error(t, err)
		require.Contains(t, err.Error(), "no peer key")
	})
}

func TestRecipient_DeriveKEKSymmetry(t *testing.T) {
	senderKey, err := GenerateOKPKey()
	require.NoError(t, err)

	recipientKey, err := GenerateOKPKey()
	require.NoError(t, err)

	sender, err := NewRecipient(nil, Headers{HeaderAlgorithm: AlgorithmECDHSSHKDF256})
	require.NoError(t, err)

	sender.SetKey(senderKey)
	sender.SetPeerKey(recipientKey.Public())

	senderKEK, err := sender.deriveKEK(KeyOpEncrypt, AlgorithmA256GCM, 32)
	require.NoError(t, err)
	require.Len(t, senderKEK, 32)

	receiver, err := NewRecipient(nil, Headers{HeaderAlgorithm: AlgorithmECDHSSHKDF256})
	require.NoError(t, err)

	receiver.SetKey(recipientKey)
	receiver.SetPeerKey(senderKey.Public())

	receiverKEK, err := receiver.deriveKEK(KeyOpDecrypt, AlgorithmA256GCM, 32)
	require.NoError(t, err)
	require.Equal(t, senderKEK, receiverKEK)

	t.Run("party info changes the derivation", func(t *testing.T) {
		salted, err := NewRecipient(nil, Headers{
			HeaderAlgorithm:      AlgorithmECDHSSHKDF256,
			HeaderPartyUIdentity: []byte("alice"),
		})
		require.NoError(t, err)

		salted.SetKey(senderKey)
		salted.SetPeerKey(recipientKey.Public())

		saltedKEK, err := salted.deriveKEK(KeyOpEncrypt, AlgorithmA256GCM, 32)
		require.NoError(t, err)
		require.NotEqual(t, senderKEK, saltedKEK)
	})
}

func TestRecipient_ComputeCEKErrors(t *testing.T) {
	t.Run("direct recipients transport nothing", func(t *testing.T) {
		r, err := NewRecipient(nil, Headers{HeaderAlgorithm: AlgorithmDirect})
		require.NoError(t, err)

		_, err = r.computeCEK(AlgorithmA128GCM, KeyOpEncrypt)
		require.Error(t, err)
		require.Contains(t, err.Error(), "do not transport key material")
	})

	t.Run("empty carrier on encrypt", func(t *testing.T) {
		r, err := NewRecipient(nil, Headers{HeaderAlgorithm: AlgorithmA128KW})
		require.NoError(t, err)

		_, err = r.computeCEK(AlgorithmA128GCM, KeyOpEncrypt)
		require.ErrorIs(t, err, ErrMissingKey)
	})

	t.Run("no ciphertext on decrypt", func(t *testing.T) {
		r, err := NewRecipient(nil, Headers{HeaderAlgorithm: AlgorithmA128KW})
		require.NoError(t, err)

		r.SetKey(GenerateSymmetricKey(16, AlgorithmA128KW))

		_, err = r.computeCEK(AlgorithmA128GCM, KeyOpDecrypt)
		require.Error(t, err)
		require.Contains(t, err.Error(), "no encrypted key to unwrap")
	})

	t.Run("unsupported operation", func(t *testing.T) {
		r, err := NewRecipient(nil, Headers{HeaderAlgorithm: AlgorithmA128KW})
		require.NoError(t, err)

		_, err = r.computeCEK(AlgorithmA128GCM, KeyOpSign)
		require.Error(t, err)
		require.Contains(t, err.Error(), "unsupported key operation")
	})
}

func TestRecipient_EncodeWrapsCarrier(t *testing.T) {
	r, err := NewRecipient(nil, Headers{HeaderAlgorithm: AlgorithmA128KW})
	require.NoError(t, err)

	r.SetKey(GenerateSymmetricKey(16, AlgorithmA128KW))
	r.SetPayload(random.GetRandomBytes(16))
	require.Empty(t, r.Ciphertext())

	obj, err := r.encode(AlgorithmA128GCM)
	require.NoError(t, err)
	require.Len(t, obj, 3)
	require.NotEmpty(t, r.Ciphertext())
	require.Equal(t, r.Ciphertext(), obj[2])

	// a second encode reuses the wrapped bytes
	again, err := r.encode(AlgorithmA128GCM)
	require.NoError(t, err)
	require.Equal(t, obj[2], again[2])
}

func TestRecipient_SetPayloadCopies(t *testing.T) {
	r, err := NewRecipient(nil, Headers{HeaderAlgorithm: AlgorithmA128KW})
	require.NoError(t, err)

	src := []byte{1, 2, 3}
	r.SetPayload(src)

	src[0] = 9
	require.Equal(t, []byte{1, 2, 3}, r.Payload())
}

func TestCreateRecipient_Nesting(t *testing.T) {
	leaf := []interface{}{[]byte{}, map[interface{}]interface{}{HeaderAlgorithm: int64(AlgorithmA128KW)}, []byte("wrapped")}

	t.Run("one nested layer", func(t *testing.T) {
		parent := []interface{}{
			[]byte{},
			map[interface{}]interface{}{HeaderAlgorithm: int64(AlgorithmA128KW)},
			[]byte("wrapped"),
			[]interface{}{leaf},
		}

		r, err := createRecipient(parent)
		require.NoError(t, err)
		require.Len(t, r.Recipients(), 1)
		require.Equal(t, RecipientClassKeyWrap, r.Recipients()[0].Class())
	})

	t.Run("two nested layers rejected", func(t *testing.T) {
		middle := []interface{}{
			[]byte{},
			map[interface{}]interface{}{HeaderAlgorithm: int64(AlgorithmA128KW)},
			[]byte("wrapped"),
			[]interface{}{leaf},
		}
		parent := []interface{}{
			[]byte{},
			map[interface{}]interface{}{HeaderAlgorithm: int64(AlgorithmA128KW)},
			[]byte("wrapped"),
			[]interface{}{middle},
		}

		_, err := createRecipient(parent)
		require.ErrorIs(t, err, ErrMalformedMessage)
		require.Contains(t, err.Error(), "nest deeper")
	})

	t.Run("short structure", func(t *testing.T) {
		_, err := createRecipient([]interface{}{[]byte{}, map[interface{}]interface{}{}})
		require.ErrorIs(t, err, ErrMalformedMessage)
	})
}

func TestContainsRecipient_Nested(t *testing.T) {
	child, err := NewRecipient(nil, Headers{HeaderAlgorithm: AlgorithmA128KW})
	require.NoError(t, err)

	parent, err := NewRecipient(nil, Headers{HeaderAlgorithm: AlgorithmA128KW})
	require.NoError(t, err)

	require.NoError(t, parent.SetRecipients([]*Recipient{child}))

	require.True(t, containsRecipient(child, []*Recipient{parent}))
	require.True(t, containsRecipient(parent, []*Recipient{parent}))

	other, err := NewRecipient(nil, Headers{HeaderAlgorithm: AlgorithmA128KW})
	require.NoError(t, err)

	require.False(t, containsRecipient(other, []*Recipient{parent}))
}

func TestRecipient_String(t *testing.T) {
	r, err := NewRecipient(nil, Headers{HeaderAlgorithm: AlgorithmA128KW})
	require.NoError(t, err)

	r.SetPayload([]byte("carrier"))

	require.Contains(t, r.String(), "<COSE_Recipient: [")
}
