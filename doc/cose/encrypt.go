/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package cose

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/tink/go/subtle/random"
)

// MessageOption configures message construction.
type MessageOption func(*messageOptions)

type messageOptions struct {
	externalAAD []byte
	key         *SymmetricKey
	recipients  []*Recipient
	strict      bool
}

// WithExternalAAD authenticates caller context that is never transmitted
// with the message. The decrypting side must supply the same bytes.
func WithExternalAAD(aad []byte) MessageOption {
	return func(o *messageOptions) { o.externalAAD = aad }
}

// WithKey attaches a pre-shared CEK for direct encryption.
func WithKey(key *SymmetricKey) MessageOption {
	return func(o *messageOptions) { o.key = key }
}

// WithRecipients attaches the recipient list.
func WithRecipients(recipients ...*Recipient) MessageOption {
	return func(o *messageOptions) { o.recipients = recipients }
}

// WithStrictAttributes rejects header attributes outside the registered
// label set. By default application-defined attributes pass through.
func WithStrictAttributes() MessageOption {
	return func(o *messageOptions) { o.strict = true }
}

func collectMessageOptions(opts []MessageOption) messageOptions {
	var options messageOptions

	for _, opt := range opts {
		opt(&options)
	}

	return options
}

// EncryptMessage is a multi-recipient encrypted message (COSE_Encrypt). It
// owns the payload, the headers, the external AAD, an optional CEK
// attachment and an ordered recipient list whose key management class
// decides how the CEK is established.
//
// An EncryptMessage is not safe for concurrent use: encrypt and decrypt
// mutate the key attachment, and key wrap fans carrier payloads out across
// the attached recipients.
type EncryptMessage struct {
	encCommon

	recipients []*Recipient
	sealed     bool
}

// NewEncryptMessage builds a COSE_Encrypt message over payload. An empty
// recipient list is legal and means direct encryption with a key the caller
// attaches; recipient-driven modes attach their list here or through
// SetRecipients.
func NewEncryptMessage(protected, unprotected Headers, payload []byte, opts ...MessageOption) (*EncryptMessage, error) {
	options := collectMessageOptions(opts)

	common, err := newEncCommon(protected, unprotected, payload, options.externalAAD, !options.strict)
	if err != nil {
		return nil, fmt.Errorf("new encrypt message: %w", err)
	}

	common.key = options.key

	m := &EncryptMessage{encCommon: common}

	if err := m.SetRecipients(options.recipients); err != nil {
		return nil, fmt.Errorf("new encrypt message: %w", err)
	}

	return m, nil
}

// Recipients returns the attached recipients in insertion order.
func (m *EncryptMessage) Recipients() []*Recipient { return m.recipients }

// SetRecipients validates the whole candidate list and only then replaces
// the attached list. On error the previous list is retained unchanged.
func (m *EncryptMessage) SetRecipients(recipients []*Recipient) error {
	if err := validateRecipients(recipients); err != nil {
		return err
	}

	m.recipients = append([]*Recipient(nil), recipients...)

	return nil
}

// Encrypt classifies the attached recipients, establishes the CEK for that
// class and seals the payload. The ciphertext becomes the stored payload and
// is returned. Whatever the outcome, the key attachment is released and key
// material generated here is erased before the call returns.
func (m *EncryptMessage) Encrypt() ([]byte, error) {
	defer func() { m.key = nil }()

	if m.sealed {
		return nil, errors.New("encrypt: payload already holds ciphertext")
	}

	targetAlg, err := m.targetAlgorithm()
	if err != nil {
		return nil, fmt.Errorf("encrypt: %w", err)
	}

	class, err := classifyRecipients(m.recipients)
	if err != nil {
		return nil, fmt.Errorf("encrypt: %w", err)
	}

	var cek *SymmetricKey

	switch class {
	case RecipientClassUnknown:
		if m.key == nil {
			return nil, fmt.Errorf("encrypt: %w: no recipients and no pre-set key", ErrUnsupportedRecipientClass)
		}

		cek = m.key
	case RecipientClassDirectEncryption:
		if m.key == nil {
			return nil, fmt.Errorf("encrypt: %w: direct encryption expects the key pre-set", ErrMissingKey)
		}

		cek = m.key
	case RecipientClassDirectKeyAgreement:
		cek, err = m.recipients[0].computeCEK(targetAlg, KeyOpEncrypt)
		if err != nil {
			return nil, fmt.Errorf("encrypt: %w", err)
		}

		defer cek.Zero()
	case RecipientClassKeyWrap, RecipientClassKeyAgreementWithKeyWrap:
		cek, err = m.fanOutCEK(targetAlg)
		if err != nil {
			return nil, fmt.Errorf("encrypt: %w", err)
		}

		defer cek.Zero()
	default:
		return nil, fmt.Errorf("encrypt: %w: %s", ErrUnsupportedRecipientClass, class)
	}

	ciphertext, err := m.seal(encryptContext, cek, targetAlg, m.payload)
	if err != nil {
		return nil, fmt.Errorf("encrypt: %w", err)
	}

	m.payload = ciphertext
	m.sealed = true

	return ciphertext, nil
}

// fanOutCEK generates one CEK for the whole recipient group and distributes
// it left to right. A recipient that already carries key material overrides
// the group key from its position onward; every recipient then wraps the
// settled bytes. The returned key owns its own buffer, separate from the
// recipient carriers.
func (m *EncryptMessage) fanOutCEK(targetAlg Algorithm) (*SymmetricKey, error) {
	length, err := targetAlg.KeyLength()
	if err != nil {
		return nil, err
	}

	keyBytes := random.GetRandomBytes(uint32(length))

	for i, r := range m.recipients {
		if len(r.Payload()) == 0 {
			r.SetPayload(keyBytes)
		} else {
			zeroBytes(keyBytes)

			keyBytes = append([]byte(nil), r.Payload()...)
		}

		if err := r.Encrypt(targetAlg); err != nil {
			zeroBytes(keyBytes)

			return nil, fmt.Errorf("recipient %d: %w", i, err)
		}
	}

	return &SymmetricKey{K: keyBytes, Alg: targetAlg, Ops: []KeyOp{KeyOpEncrypt}}, nil
}

// Decrypt recovers the plaintext through the chosen recipient, which must be
// attached to this message. For a message with no recipients the CEK must be
// attached by the caller and recipient is nil. AEAD failures are returned
// exactly as the cipher reports them. The key attachment is released when
// the call returns.
func (m *EncryptMessage) Decrypt(recipient *Recipient) ([]byte, error) {
	defer func() { m.key = nil }()

	if recipient != nil && !containsRecipient(recipient, m.recipients) {
		return nil, fmt.Errorf("decrypt: %w: %s", ErrRecipientNotFound, recipient)
	}

	targetAlg, err := m.targetAlgorithm()
	if err != nil {
		return nil, fmt.Errorf("decrypt: %w", err)
	}

	class, err := classifyRecipients(m.recipients)
	if err != nil {
		return nil, fmt.Errorf("decrypt: %w", err)
	}

	var cek *SymmetricKey

	switch class {
	case RecipientClassUnknown:
		if m.key == nil {
			return nil, fmt.Errorf("decrypt: %w: no recipients and no pre-set key", ErrUnsupportedRecipientClass)
		}

		cek = m.key
	case RecipientClassDirectEncryption:
		if m.key == nil {
			return nil, fmt.Errorf("decrypt: %w: direct encryption expects the key pre-set", ErrMissingKey)
		}

		cek = m.key
	case RecipientClassDirectKeyAgreement, RecipientClassKeyWrap, RecipientClassKeyAgreementWithKeyWrap:
		if recipient == nil {
			return nil, fmt.Errorf("decrypt: %w: no recipient chosen", ErrRecipientNotFound)
		}

		cek, err = recipient.computeCEK(targetAlg, KeyOpDecrypt)
		if err != nil {
			return nil, fmt.Errorf("decrypt: %w", err)
		}

		defer cek.Zero()
	default:
		return nil, fmt.Errorf("decrypt: %w: %s", ErrUnsupportedRecipientClass, class)
	}

	return m.open(encryptContext, cek, targetAlg, m.payload)
}

// Encode serializes the message, wrapped under the COSE_Encrypt CBOR tag
// when tag is true. In encrypt mode the payload is sealed by Encrypt first;
// otherwise the stored payload bytes are emitted verbatim, which
// re-serializes an already sealed message without re-encrypting. The
// recipients element is appended only when the list is non-empty.
func (m *EncryptMessage) Encode(tag, encrypt bool) ([]byte, error) {
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

	if len(m.recipients) > 0 {
		targetAlg, err := m.targetAlgorithm()
		if err != nil {
			return nil, fmt.Errorf("encode: %w", err)
		}

		encodedRecipients := make([]interface{}, 0, len(m.recipients))

		for i, r := range m.recipients {
			encoded, err := r.encode(targetAlg)
			if err != nil {
				return nil, fmt.Errorf("encode: recipient %d: %w", i, err)
			}

			encodedRecipients = append(encodedRecipients, encoded)
		}

		coseObj = append(coseObj, encodedRecipients)
	}

	encoded, err := marshalCOSEObj(EncryptMessageTag, coseObj, tag)
	if err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}

	return encoded, nil
}

// String renders the message for diagnostics with the payload truncated.
func (m *EncryptMessage) String() string {
	recipients := make([]string, 0, len(m.recipients))
	for _, r := range m.recipients {
		recipients = append(recipients, r.String())
	}

	return fmt.Sprintf("<COSE_Encrypt: [%s, %s, %s, [%s]]>",
		headersRepr(m.protected), headersRepr(m.unprotected), truncate(m.payload), strings.Join(recipients, ", "))
}

// decodeEncryptMessage rebuilds a COSE_Encrypt message from its decoded wire
// array. A missing recipients element yields an empty list; a present but
// malformed one is an error.
func decodeEncryptMessage(coseObj []interface{}) (Message, error) {
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

	m := &EncryptMessage{
		encCommon: encCommon{protected: protected, unprotected: unprotected, payload: ciphertext},
		sealed:    true,
	}

	if len(coseObj) < 4 {
		logger.Debugf("COSE_Encrypt message carries no recipient structures")

		return m, nil
	}

	rawRecipients, ok := coseObj[3].([]interface{})
	if !ok {
		return nil, fmt.Errorf("decode: %w: recipient list is not an array", ErrMalformedMessage)
	}

	for i, rawRecipient := range rawRecipients {
		obj, ok := rawRecipient.([]interface{})
		if !ok {
			return nil, fmt.Errorf("decode: %w: recipient %d is not an array", ErrMalformedMessage, i)
		}

		r, err := createRecipient(obj)
		if err != nil {
			return nil, fmt.Errorf("decode: recipient %d: %w", i, err)
		}

		m.recipients = append(m.recipients, r)
	}

	return m, nil
}

func init() { //nolint:gochecknoinits
	registerMessage(EncryptMessageTag, decodeEncryptMessage)
}
