/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package cose

import (
	"fmt"
	"sort"
	"strings"
)

// Enc_structure context strings (https://datatracker.ietf.org/doc/html/rfc9052#section-5.3).
const (
	encrypt0Context  = "Encrypt0"
	encryptContext   = "Encrypt"
	recipientContext = "Enc_Recipient"
)

// encCommon carries the shared state and AEAD plumbing of the encrypted
// message types: header maps, payload, external AAD, the attached key, and
// the seal/open steps over the Enc_structure AAD.
type encCommon struct {
	protected   Headers
	unprotected Headers
	payload     []byte
	externalAAD []byte
	key         *SymmetricKey
}

func newEncCommon(protected, unprotected Headers, payload, externalAAD []byte, allowUnknown bool) (encCommon, error) {
	p, err := protected.normalized(allowUnknown)
	if err != nil {
		return encCommon{}, err
	}

	u, err := unprotected.normalized(allowUnknown)
	if err != nil {
		return encCommon{}, err
	}

	return encCommon{protected: p, unprotected: u, payload: payload, externalAAD: externalAAD}, nil
}

// ProtectedHeaders returns the protected header map.
func (c *encCommon) ProtectedHeaders() Headers { return c.protected }

// UnprotectedHeaders returns the unprotected header map.
func (c *encCommon) UnprotectedHeaders() Headers { return c.unprotected }

// Payload returns the plaintext before encryption, or the ciphertext after
// decoding a received message.
func (c *encCommon) Payload() []byte { return c.payload }

// SetPayload replaces the stored payload bytes.
func (c *encCommon) SetPayload(payload []byte) { c.payload = payload }

// ExternalAAD returns the caller-supplied additional authenticated data.
// It is folded into the AAD but never transmitted.
func (c *encCommon) ExternalAAD() []byte { return c.externalAAD }

// SetExternalAAD replaces the external additional authenticated data.
func (c *encCommon) SetExternalAAD(aad []byte) { c.externalAAD = aad }

// Key returns the attached content encryption key, if any.
func (c *encCommon) Key() *SymmetricKey { return c.key }

// SetKey attaches the content encryption key consumed by the direct
// encryption path. Encrypt and decrypt release the attachment when they
// return, so the key must be set again before another operation.
func (c *encCommon) SetKey(key *SymmetricKey) { c.key = key }

// attr resolves a header attribute, protected map first.
func (c *encCommon) attr(label int64) (interface{}, bool) {
	return lookupAttr(c.protected, c.unprotected, label)
}

// targetAlgorithm resolves and validates the negotiated algorithm header.
func (c *encCommon) targetAlgorithm() (Algorithm, error) {
	raw, ok := c.attr(HeaderAlgorithm)
	if !ok {
		return 0, fmt.Errorf("%w: no algorithm header", ErrUnsupportedAlgorithm)
	}

	switch v := raw.(type) {
	case Algorithm:
		return AlgorithmFromID(int64(v))
	case int64:
		return AlgorithmFromID(v)
	case int:
		return AlgorithmFromID(int64(v))
	default:
		return 0, fmt.Errorf("%w: algorithm header has invalid type %T", ErrUnsupportedAlgorithm, raw)
	}
}

// nonce resolves the AEAD nonce from the IV header, or from the partial IV
// header left-padded and XORed into the key's base IV.
func (c *encCommon) nonce(key *SymmetricKey) ([]byte, error) {
	if iv, ok := c.attr(HeaderIV); ok {
		b, isBytes := iv.([]byte)
		if !isBytes || len(b) == 0 {
			return nil, fmt.Errorf("%w: IV header is not a byte string", ErrMissingIV)
		}

		return b, nil
	}

	if piv, ok := c.attr(HeaderPartialIV); ok {
		b, isBytes := piv.([]byte)
		if !isBytes || len(b) == 0 {
			return nil, fmt.Errorf("%w: partial IV header is not a byte string", ErrMissingIV)
		}

		if key == nil || len(key.BaseIV) == 0 {
			return nil, fmt.Errorf("%w: partial IV requires a key with a base IV", ErrMissingIV)
		}

		if len(b) > len(key.BaseIV) {
			return nil, fmt.Errorf("%w: partial IV is longer than the base IV", ErrMissingIV)
		}

		nonce := make([]byte, len(key.BaseIV))
		copy(nonce, key.BaseIV)

		for i := 0; i < len(b); i++ {
			nonce[len(nonce)-len(b)+i] ^= b[i]
		}

		return nonce, nil
	}

	return nil, ErrMissingIV
}

// encStructure builds the Enc_structure AAD for the given context:
// [context, protected header bytes, external AAD].
func (c *encCommon) encStructure(context string) ([]byte, error) {
	protected, err := marshalProtected(c.protected)
	if err != nil {
		return nil, err
	}

	externalAAD := c.externalAAD
	if externalAAD == nil {
		externalAAD = []byte{}
	}

	aad, err := encMode.Marshal([]interface{}{context, protected, externalAAD})
	if err != nil {
		return nil, fmt.Errorf("encStructure: %w", err)
	}

	return aad, nil
}

// seal runs the AEAD over plaintext under the enc structure for context and
// returns the ciphertext.
func (c *encCommon) seal(context string, key *SymmetricKey, alg Algorithm, plaintext []byte) ([]byte, error) {
	if err := key.verify(alg, KeyOpEncrypt); err != nil {
		return nil, err
	}

	nonce, err := c.nonce(key)
	if err != nil {
		return nil, err
	}

	aad, err := c.encStructure(context)
	if err != nil {
		return nil, err
	}

	cipher, err := alg.newContentCipher(key.K)
	if err != nil {
		return nil, err
	}

	return cipher.Encrypt(nonce, plaintext, aad)
}

// open reverses seal. Authentication failures are returned exactly as the
// cipher reports them.
func (c *encCommon) open(context string, key *SymmetricKey, alg Algorithm, ciphertext []byte) ([]byte, error) {
	if err := key.verify(alg, KeyOpDecrypt); err != nil {
		return nil, err
	}

	nonce, err := c.nonce(key)
	if err != nil {
		return nil, err
	}

	aad, err := c.encStructure(context)
	if err != nil {
		return nil, err
	}

	cipher, err := alg.newContentCipher(key.K)
	if err != nil {
		return nil, err
	}

	return cipher.Decrypt(nonce, ciphertext, aad)
}

// headersRepr renders a header map for diagnostics with byte values truncated.
func headersRepr(h Headers) string {
	parts := make([]string, 0, len(h))

	for label, value := range h {
		var rendered string

		switch v := value.(type) {
		case []byte:
			rendered = truncate(v)
		default:
			rendered = fmt.Sprintf("%v", v)
		}

		parts = append(parts, fmt.Sprintf("%v: %s", label, rendered))
	}

	sort.Strings(parts)

	return "{" + strings.Join(parts, ", ") + "}"
}
