/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package cose

import (
	"errors"
	"fmt"
)

// Encrypt0Message is a single-recipient encrypted message (COSE_Encrypt0).
// The CEK is always a key the two parties already share, attached through
// WithKey or SetKey, and no key management structure is transmitted.
type Encrypt0Message struct {
	encCommon

	sealed bool
}

// NewEncrypt0Message builds a COSE_Encrypt0 message over payload.
func NewEncrypt0Message(protected, unprotected Headers, payload []byte, opts ...MessageOption) (*Encrypt0Message, error) {
	options := collectMessageOptions(opts)

	if len(options.recipients) > 0 {
		return nil, fmt.Errorf("new encrypt0 message: %w: encrypt0 messages carry no recipients", ErrInvalidRecipient)
	}

	common, err := newEncCommon(protected, unprotected, payload, options.externalAAD, !options.strict)
	if err != nil {
		return nil, fmt.Errorf("new encrypt0 message: %w", err)
	}

	common.key = options.key

	return &Encrypt0Message{encCommon: common}, nil
}

// Encrypt seals the payload with the attached key. The ciphertext becomes
// the stored payload and is returned. The key attachment is released when
// the call returns.
func (m *Encrypt0Message) Encrypt() ([]byte, error) {
	defer func() { m.key = nil }()

	if m.sealed {
		return nil, errors.New("encrypt0: payload already holds ciphertext")
	}

	targetAlg, err := m.targetAlgorithm()
	if err != nil {
		return nil, fmt.Errorf("encrypt0: %w", err)
	}

	if m.key == nil {
		return nil, fmt.Errorf("encrypt0: %w", ErrMissingKey)
	}

	ciphertext, err := m.seal(encrypt0Context, m.key, targetAlg, m.payload)
	if err != nil {
		return nil, fmt.Errorf("encrypt0: %w", err)
	}

	m.payload = ciphertext
	m.sealed = true

	return ciphertext, nil
}

// Decrypt recovers the plaintext with the attached key. AEAD failures are
// returned exactly as the cipher reports them. The key attachment is
// released when the call returns.
func (m *Encrypt0Message) Decrypt() ([]byte, error) {
	defer func() { m.key = nil }()

	targetAlg, err := m.targetAlgorithm()
	if err != nil {
		return nil, fmt.Errorf("decrypt0: %w", err)
	}

	if m.key == nil {
		return nil, fmt.Errorf("decrypt0: %w", ErrMissingKey)
	}

	return m.open(encrypt0Context, m.key, targetAlg, m.payload)
}

// Encode serializes the message, wrapped under the COSE_Encrypt0 CBOR tag
// when tag is true. In encrypt mode the payload is sealed by Encrypt first;
// otherwise the stored payload bytes are emitted verbatim.
func (m *Encrypt0Message) Encode(tag, encrypt bool) ([]byte, error) {
	var ciphertext []byte

	if encrypt {
		sealed, err := m.Encrypt()
		if err != nil {
			return nil, err
		}

		ciphertext = sealed
	} else {
		ciphertext = m.payload
	}

	if ciphertext == nil {
		ciphertext = []byte{}
	}

	protected, err := marshalProtected(m.protected)
	if err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}

	coseObj := []interface{}{protected, map[interface{}]interface{}(m.unprotected), ciphertext}

	encoded, err := marshalCOSEObj(Encrypt0MessageTag, coseObj, tag)
	if err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}

	return encoded, nil
}

// String renders the message for diagnostics with the payload truncated.
func (m *Encrypt0Message) String() string {
	return fmt.Sprintf("<COSE_Encrypt0: [%s, %s, %s]>",
		headersRepr(m.protected), headersRepr(m.unprotected), truncate(m.payload))
}

func decodeEncrypt0Message(coseObj []interface{}) (Message, error) {
	if len(coseObj) < 3 {
		return nil, fmt.Errorf("decode: %w: message array has %d elements, want at least 3",
			ErrMalformedMessage, len(coseObj))
	}

	rawProtected, ok := asBytes(coseObj[0])
	if !ok {
		return nil, fmt.Errorf("decode: %w: protected header is not a byte string", ErrMalformedMessage)
	}

	protected, err := unmarshalProtected(rawProtected)
	if err != nil {
		return nil, fmt.Errorf("decode: %w: %v", ErrMalformedMessage, err)
	}

	unprotected, ok := asHeaders(coseObj[1])
	if !ok {
		return nil, fmt.Errorf("decode: %w: unprotected header is not a map", ErrMalformedMessage)
	}

	ciphertext, ok := asBytes(coseObj[2])
	if !ok {
		return nil, fmt.Errorf("decode: %w: ciphertext is not a byte string", ErrMalformedMessage)
	}

	return &Encrypt0Message{
		encCommon: encCommon{protected: protected, unprotected: unprotected, payload: ciphertext},
		sealed:    true,
	}, nil
}

func init() { //nolint:gochecknoinits
	registerMessage(Encrypt0MessageTag, decodeEncrypt0Message)
}
