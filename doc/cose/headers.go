/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package cose

import (
	"fmt"
)

// IANA registered COSE header parameters (https://www.iana.org/assignments/cose/cose.xhtml#header-parameters).
const (
	// HeaderAlgorithm identifies the cryptographic algorithm used to protect the message,
	// or for a recipient structure, the algorithm used to transport or derive the CEK.
	HeaderAlgorithm int64 = 1 // int

	// HeaderCritical lists header labels that must be understood by the receiver.
	HeaderCritical int64 = 2 // array of labels

	// HeaderContentType declares the media type of the plaintext payload.
	HeaderContentType int64 = 3 // uint / tstr

	// HeaderKeyID is a hint which references the key used to protect the message.
	HeaderKeyID int64 = 4 // bstr

	// HeaderIV carries the full AEAD nonce.
	HeaderIV int64 = 5 // bstr

	// HeaderPartialIV carries the low bytes of the nonce; the remainder comes
	// from the key's base IV.
	HeaderPartialIV int64 = 6 // bstr

	// HeaderCounterSignature carries a counter signature over the message.
	HeaderCounterSignature int64 = 7 // COSE_Signature
)

// Header parameters specific to key transport and key agreement recipients
// (https://datatracker.ietf.org/doc/html/rfc9053#section-5).
const (
	// HeaderEphemeralKey is the sender's ephemeral public key for ECDH-ES recipients.
	HeaderEphemeralKey int64 = -1 // COSE_Key

	// HeaderStaticKey is the sender's static public key for ECDH-SS recipients.
	HeaderStaticKey int64 = -2 // COSE_Key

	// HeaderStaticKeyID references the sender's static public key by identifier.
	HeaderStaticKeyID int64 = -3 // bstr

	// HeaderSalt is the KDF salt input.
	HeaderSalt int64 = -20 // bstr

	// HeaderPartyUIdentity, HeaderPartyUNonce and HeaderPartyUOther fill the
	// PartyUInfo slots of the KDF context; the PartyV labels mirror them.
	HeaderPartyUIdentity int64 = -21 // bstr
	HeaderPartyUNonce    int64 = -22 // bstr / int
	HeaderPartyUOther    int64 = -23 // bstr
	HeaderPartyVIdentity int64 = -24 // bstr
	HeaderPartyVNonce    int64 = -25 // bstr / int
	HeaderPartyVOther    int64 = -26 // bstr
)

// headerNames maps registered labels to their registry names, for strict
// attribute validation and diagnostics.
var headerNames = map[int64]string{ //nolint:gochecknoglobals
	HeaderAlgorithm:        "ALG",
	HeaderCritical:         "CRITICAL",
	HeaderContentType:      "CONTENT_TYPE",
	HeaderKeyID:            "KID",
	HeaderIV:               "IV",
	HeaderPartialIV:        "PARTIAL_IV",
	HeaderCounterSignature: "COUNTER_SIGN",
	HeaderEphemeralKey:     "EPHEMERAL_KEY",
	HeaderStaticKey:        "STATIC_KEY",
	HeaderStaticKeyID:      "STATIC_KEY_ID",
	HeaderSalt:             "SALT",
	HeaderPartyUIdentity:   "PARTY_U_IDENTITY",
	HeaderPartyUNonce:      "PARTY_U_NONCE",
	HeaderPartyUOther:      "PARTY_U_OTHER",
	HeaderPartyVIdentity:   "PARTY_V_IDENTITY",
	HeaderPartyVNonce:      "PARTY_V_NONCE",
	HeaderPartyVOther:      "PARTY_V_OTHER",
}

// Headers represents a COSE header map. Labels are registered integers or,
// for application-defined attributes, text strings.
type Headers map[interface{}]interface{}

// Algorithm gets the algorithm header value.
func (h Headers) Algorithm() (Algorithm, bool) {
	raw, ok := h[HeaderAlgorithm]
	if !ok {
		return 0, false
	}

	switch v := raw.(type) {
	case Algorithm:
		return v, true
	case int64:
		return Algorithm(v), true
	case int:
		return Algorithm(v), true
	default:
		return 0, false
	}
}

// KeyID gets the key identifier header value.
func (h Headers) KeyID() ([]byte, bool) {
	return h.bytesValue(HeaderKeyID)
}

// IV gets the full nonce header value.
func (h Headers) IV() ([]byte, bool) {
	return h.bytesValue(HeaderIV)
}

// PartialIV gets the partial nonce header value.
func (h Headers) PartialIV() ([]byte, bool) {
	return h.bytesValue(HeaderPartialIV)
}

// EphemeralKey gets the sender's ephemeral public key from a recipient header map.
func (h Headers) EphemeralKey() (Key, bool) {
	raw, ok := h[HeaderEphemeralKey]
	if !ok {
		return nil, false
	}

	switch v := raw.(type) {
	case Key:
		return v, true
	case map[interface{}]interface{}:
		k, err := keyFromMap(v)
		if err != nil {
			return nil, false
		}

		return k, true
	default:
		return nil, false
	}
}

func (h Headers) bytesValue(label int64) ([]byte, bool) {
	raw, ok := h[label]
	if !ok {
		return nil, false
	}

	b, ok := raw.([]byte)

	return b, ok
}

// normalized returns a copy of h with integer labels converted to int64 and
// every label validated. Unregistered labels are rejected when allowUnknown
// is false.
func (h Headers) normalized(allowUnknown bool) (Headers, error) {
	out := make(Headers, len(h))

	for label, value := range h {
		switch l := label.(type) {
		case int64:
			if _, known := headerNames[l]; !known && !allowUnknown {
				return nil, fmt.Errorf("unknown header attribute with value %v", l)
			}

			out[l] = value
		case int:
			if _, known := headerNames[int64(l)]; !known && !allowUnknown {
				return nil, fmt.Errorf("unknown header attribute with value %v", l)
			}

			out[int64(l)] = value
		case string:
			if !allowUnknown {
				return nil, fmt.Errorf("unknown header attribute with value %q", l)
			}

			out[l] = value
		default:
			return nil, fmt.Errorf("header label %v has invalid type %T", label, label)
		}
	}

	return out, nil
}

// lookupAttr resolves a header attribute, protected map first.
func lookupAttr(protected, unprotected Headers, label int64) (interface{}, bool) {
	if v, ok := protected[label]; ok {
		return v, true
	}

	v, ok := unprotected[label]

	return v, ok
}

// marshalProtected serializes a protected header map. An empty map encodes
// as a zero-length byte string, not as an encoded empty map.
func marshalProtected(h Headers) ([]byte, error) {
	if len(h) == 0 {
		return []byte{}, nil
	}

	encoded, err := encMode.Marshal(map[interface{}]interface{}(h))
	if err != nil {
		return nil, fmt.Errorf("marshalProtected: %w", err)
	}

	return encoded, nil
}

// unmarshalProtected parses protected header bytes produced by marshalProtected.
func unmarshalProtected(encoded []byte) (Headers, error) {
	if len(encoded) == 0 {
		return Headers{}, nil
	}

	var m map[interface{}]interface{}

	if err := decMode.Unmarshal(encoded, &m); err != nil {
		return nil, fmt.Errorf("unmarshalProtected: %w", err)
	}

	return Headers(m).normalized(true)
}
