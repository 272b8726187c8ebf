/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package cose

import (
	"crypto/aes"
	"errors"
	"fmt"
	"io"
	"strings"

	josecipher "github.com/go-jose/go-jose/v3/cipher"
	"golang.org/x/crypto/hkdf"
)

// RecipientClass enumerates the key management modes a recipient can
// implement. The class of a recipient follows from its algorithm header.
type RecipientClass int

const (
	// RecipientClassUnknown marks a recipient whose headers carry no
	// recognized key management algorithm.
	RecipientClassUnknown RecipientClass = iota

	// RecipientClassDirectEncryption transports no key material; the CEK is
	// shared out of band.
	RecipientClassDirectEncryption

	// RecipientClassDirectKeyAgreement derives the CEK from an ECDH
	// agreement between the sender and recipient keys.
	RecipientClassDirectKeyAgreement

	// RecipientClassKeyWrap encrypts a generated CEK under a pre-shared KEK.
	RecipientClassKeyWrap

	// RecipientClassKeyAgreementWithKeyWrap encrypts a generated CEK under a
	// KEK derived from an ECDH agreement.
	RecipientClassKeyAgreementWithKeyWrap
)

var recipientClassNames = map[RecipientClass]string{ //nolint:gochecknoglobals
	RecipientClassDirectEncryption:        "DirectEncryption",
	RecipientClassDirectKeyAgreement:      "DirectKeyAgreement",
	RecipientClassKeyWrap:                 "KeyWrap",
	RecipientClassKeyAgreementWithKeyWrap: "KeyAgreementWithKeyWrap",
}

// String returns the class name.
func (c RecipientClass) String() string {
	if name, ok := recipientClassNames[c]; ok {
		return name
	}

	return fmt.Sprintf("RecipientClass(%d)", int(c))
}

// recipients nest at most one layer below the message's own list.
const maxRecipientDepth = 2

// Recipient carries one key transport layer of an encrypted message. The
// payload holds the plaintext key material being transported; the ciphertext
// holds its encrypted form as it appears on the wire. The two are distinct
// slots so the carrier stays inspectable after encryption.
type Recipient struct {
	encCommon

	key        Key
	peerKey    Key
	ciphertext []byte
	recipients []*Recipient
}

// NewRecipient builds a recipient from its header maps. The algorithm header
// determines the recipient class and must identify a key management
// algorithm before the recipient is attached to a message.
func NewRecipient(protected, unprotected Headers) (*Recipient, error) {
	common, err := newEncCommon(protected, unprotected, nil, nil, true)
	if err != nil {
		return nil, fmt.Errorf("new recipient: %w", err)
	}

	return &Recipient{encCommon: common}, nil
}

// createRecipient reconstructs a recipient from its decoded wire array.
func createRecipient(coseObj []interface{}) (*Recipient, error) {
	return recipientFromCOSEObj(coseObj, 1)
}

func recipientFromCOSEObj(coseObj []interface{}, depth int) (*Recipient, error) {
	if depth > maxRecipientDepth {
		return nil, fmt.Errorf("create recipient: %w: recipients nest deeper than %d levels",
			ErrMalformedMessage, maxRecipientDepth)
	}

	if len(coseObj) < 3 {
		return nil, fmt.Errorf("create recipient: %w: recipient structure has %d elements, want at least 3",
			ErrMalformedMessage, len(coseObj))
	}

	rawProtected, ok := asBytes(coseObj[0])
	if !ok {
		return nil, fmt.Errorf("create recipient: %w: protected header is not a byte string", ErrMalformedMessage)
	}

	protected, err := unmarshalProtected(rawProtected)
	if err != nil {
		return nil, fmt.Errorf("create recipient: %w: %v", ErrMalformedMessage, err)
	}

	unprotected, ok := asHeaders(coseObj[1])
	if !ok {
		return nil, fmt.Errorf("create recipient: %w: unprotected header is not a map", ErrMalformedMessage)
	}

	ciphertext, ok := asBytes(coseObj[2])
	if !ok {
		return nil, fmt.Errorf("create recipient: %w: encrypted key is not a byte string", ErrMalformedMessage)
	}

	r := &Recipient{
		encCommon:  encCommon{protected: protected, unprotected: unprotected},
		ciphertext: ciphertext,
	}

	if len(coseObj) > 3 {
		rawNested, ok := coseObj[3].([]interface{})
		if !ok {
			return nil, fmt.Errorf("create recipient: %w: recipient list is not an array", ErrMalformedMessage)
		}

		for i, rawRecipient := range rawNested {
			obj, ok := rawRecipient.([]interface{})
			if !ok {
				return nil, fmt.Errorf("create recipient: %w: recipient %d is not an array", ErrMalformedMessage, i)
			}

			nested, err := recipientFromCOSEObj(obj, depth+1)
			if err != nil {
				return nil, err
			}

			r.recipients = append(r.recipients, nested)
		}
	}

	if r.Class() == RecipientClassUnknown {
		return nil, fmt.Errorf("create recipient: %w: headers carry no key management algorithm", ErrInvalidRecipient)
	}

	return r, nil
}

// Class derives the recipient's key management class from its algorithm
// header. Content encryption algorithms classify as key wrap; the generated
// CEK is then sealed rather than AES key wrapped.
func (r *Recipient) Class() RecipientClass {
	alg, err := r.targetAlgorithm()
	if err != nil {
		return RecipientClassUnknown
	}

	info, err := alg.info()
	if err != nil {
		return RecipientClassUnknown
	}

	switch info.family {
	case familyDirect:
		return RecipientClassDirectEncryption
	case familyDirectKeyAgreement:
		return RecipientClassDirectKeyAgreement
	case familyKeyWrap, familyContentAEAD:
		return RecipientClassKeyWrap
	case familyKeyAgreementWithKeyWrap:
		return RecipientClassKeyAgreementWithKeyWrap
	default:
		return RecipientClassUnknown
	}
}

// Key returns the recipient's attached key.
func (r *Recipient) Key() Key { return r.key }

// SetKey attaches the key the recipient wraps or agrees with: a symmetric
// KEK for key wrap, a private EC2 or OKP key for agreement modes.
func (r *Recipient) SetKey(key Key) { r.key = key }

// PeerKey returns the remote party's public key.
func (r *Recipient) PeerKey() Key { return r.peerKey }

// SetPeerKey attaches the remote party's public key for agreement modes.
// On decrypt it is only consulted when the message headers do not carry the
// sender key.
func (r *Recipient) SetPeerKey(key Key) { r.peerKey = key }

// SetPayload stores a copy of the key material the recipient transports.
func (r *Recipient) SetPayload(payload []byte) {
	r.payload = append([]byte(nil), payload...)
}

// Ciphertext returns the encrypted key bytes as transmitted.
func (r *Recipient) Ciphertext() []byte { return r.ciphertext }

// Recipients returns the nested recipient layer.
func (r *Recipient) Recipients() []*Recipient { return r.recipients }

// SetRecipients validates the whole candidate list and only then replaces
// the nested recipient layer.
func (r *Recipient) SetRecipients(recipients []*Recipient) error {
	if err := validateRecipients(recipients); err != nil {
		return err
	}

	r.recipients = append([]*Recipient(nil), recipients...)

	return nil
}

// computeCEK establishes the content encryption key this recipient
// transports. op selects the direction: KeyOpEncrypt reads the carrier
// payload, KeyOpDecrypt recovers it from the wire ciphertext.
func (r *Recipient) computeCEK(targetAlg Algorithm, op KeyOp) (*SymmetricKey, error) {
	if op != KeyOpEncrypt && op != KeyOpDecrypt {
		return nil, fmt.Errorf("compute cek: unsupported key operation %s", op)
	}

	switch class := r.Class(); class {
	case RecipientClassDirectEncryption:
		return nil, fmt.Errorf("compute cek: %s recipients do not transport key material", class)
	case RecipientClassDirectKeyAgreement:
		length, err := targetAlg.KeyLength()
		if err != nil {
			return nil, fmt.Errorf("compute cek: %w", err)
		}

		cek, err := r.deriveKEK(op, targetAlg, length)
		if err != nil {
			return nil, fmt.Errorf("compute cek: %w", err)
		}

		return &SymmetricKey{K: cek, Alg: targetAlg, Ops: []KeyOp{op}}, nil
	case RecipientClassKeyWrap, RecipientClassKeyAgreementWithKeyWrap:
		if op == KeyOpEncrypt {
			if len(r.payload) == 0 {
				return nil, fmt.Errorf("compute cek: %w: carrier payload is empty", ErrMissingKey)
			}

			return &SymmetricKey{K: append([]byte(nil), r.payload...), Alg: targetAlg, Ops: []KeyOp{op}}, nil
		}

		keyBytes, err := r.unwrapCiphertext()
		if err != nil {
			return nil, err
		}

		r.payload = append([]byte(nil), keyBytes...)

		return &SymmetricKey{K: keyBytes, Alg: targetAlg, Ops: []KeyOp{op}}, nil
	default:
		return nil, fmt.Errorf("compute cek: %w", ErrUnsupportedRecipientClass)
	}
}

// Encrypt wraps the recipient's carrier payload into the ciphertext slot.
// targetAlg is the algorithm of the message whose key is being transported.
func (r *Recipient) Encrypt(targetAlg Algorithm) error {
	switch class := r.Class(); class {
	case RecipientClassKeyWrap:
		return r.wrapPayload()
	case RecipientClassKeyAgreementWithKeyWrap:
		return r.agreeAndWrapPayload()
	case RecipientClassDirectEncryption, RecipientClassDirectKeyAgreement:
		return fmt.Errorf("recipient encrypt: %s recipients transport no encrypted key", class)
	default:
		return fmt.Errorf("recipient encrypt: %w", ErrUnsupportedRecipientClass)
	}
}

func (r *Recipient) wrapPayload() error {
	if len(r.payload) == 0 {
		return fmt.Errorf("recipient encrypt: %w: no key material to wrap", ErrMissingKey)
	}

	alg, err := r.targetAlgorithm()
	if err != nil {
		return fmt.Errorf("recipient encrypt: %w", err)
	}

	kek, ok := r.key.(*SymmetricKey)
	if !ok {
		return fmt.Errorf("recipient encrypt: %w: key wrap needs a symmetric KEK", ErrMissingKey)
	}

	if alg.isFamily(familyContentAEAD) {
		ciphertext, err := r.seal(recipientContext, kek, alg, r.payload)
		if err != nil {
			return fmt.Errorf("recipient encrypt: %w", err)
		}

		r.ciphertext = ciphertext

		return nil
	}

	// AES key wrap has no AAD slot to authenticate protected headers.
	if len(r.protected) > 0 {
		return fmt.Errorf("recipient encrypt: %s requires an empty protected header", alg)
	}

	if err := kek.verify(alg, KeyOpWrapKey); err != nil {
		return fmt.Errorf("recipient encrypt: %w", err)
	}

	ciphertext, err := wrapKey(kek.K, r.payload)
	if err != nil {
		return fmt.Errorf("recipient encrypt: %w", err)
	}

	r.ciphertext = ciphertext

	return nil
}

func (r *Recipient) agreeAndWrapPayload() error {
	if len(r.payload) == 0 {
		return fmt.Errorf("recipient encrypt: %w: no key material to wrap", ErrMissingKey)
	}

	alg, err := r.targetAlgorithm()
	if err != nil {
		return fmt.Errorf("recipient encrypt: %w", err)
	}

	info, err := alg.info()
	if err != nil {
		return fmt.Errorf("recipient encrypt: %w", err)
	}

	wrapLen, err := info.wrapAlg.KeyLength()
	if err != nil {
		return fmt.Errorf("recipient encrypt: %w", err)
	}

	kek, err := r.deriveKEK(KeyOpEncrypt, info.wrapAlg, wrapLen)
	if err != nil {
		return fmt.Errorf("recipient encrypt: %w", err)
	}
	defer zeroBytes(kek)

	ciphertext, err := wrapKey(kek, r.payload)
	if err != nil {
		return fmt.Errorf("recipient encrypt: %w", err)
	}

	r.ciphertext = ciphertext

	return nil
}

// unwrapCiphertext recovers the transported key bytes from the wire
// ciphertext. AEAD failures are returned exactly as the cipher reports them.
func (r *Recipient) unwrapCiphertext() ([]byte, error) {
	if len(r.ciphertext) == 0 {
		return nil, errors.New("recipient decrypt: no encrypted key to unwrap")
	}

	alg, err := r.targetAlgorithm()
	if err != nil {
		return nil, fmt.Errorf("recipient decrypt: %w", err)
	}

	switch class := r.Class(); class {
	case RecipientClassKeyWrap:
		kek, ok := r.key.(*SymmetricKey)
		if !ok {
			return nil, fmt.Errorf("recipient decrypt: %w: key wrap needs a symmetric KEK", ErrMissingKey)
		}

		if alg.isFamily(familyContentAEAD) {
			return r.open(recipientContext, kek, alg, r.ciphertext)
		}

		if err := kek.verify(alg, KeyOpUnwrapKey); err != nil {
			return nil, fmt.Errorf("recipient decrypt: %w", err)
		}

		return unwrapKey(kek.K, r.ciphertext)
	case RecipientClassKeyAgreementWithKeyWrap:
		info, err := alg.info()
		if err != nil {
			return nil, fmt.Errorf("recipient decrypt: %w", err)
		}

		wrapLen, err := info.wrapAlg.KeyLength()
		if err != nil {
			return nil, fmt.Errorf("recipient decrypt: %w", err)
		}

		kek, err := r.deriveKEK(KeyOpDecrypt, info.wrapAlg, wrapLen)
		if err != nil {
			return nil, fmt.Errorf("recipient decrypt: %w", err)
		}
		defer zeroBytes(kek)

		return unwrapKey(kek, r.ciphertext)
	default:
		return nil, fmt.Errorf("recipient decrypt: %w: %s recipients transport no encrypted key",
			ErrUnsupportedRecipientClass, class)
	}
}

// encode emits the recipient's wire array. targetAlg is the algorithm of the
// enclosing message; a key wrap recipient that still holds an unwrapped
// carrier is encrypted here before serialization.
func (r *Recipient) encode(targetAlg Algorithm) ([]interface{}, error) {
	class := r.Class()
	needsWrap := (class == RecipientClassKeyWrap || class == RecipientClassKeyAgreementWithKeyWrap) &&
		len(r.ciphertext) == 0 && len(r.payload) > 0

	if needsWrap {
		if err := r.Encrypt(targetAlg); err != nil {
			return nil, err
		}
	}

	protected, err := marshalProtected(r.protected)
	if err != nil {
		return nil, err
	}

	unprotected := r.unprotected
	if unprotected == nil {
		unprotected = Headers{}
	}

	ciphertext := r.ciphertext
	if ciphertext == nil {
		ciphertext = []byte{}
	}

	obj := []interface{}{protected, map[interface{}]interface{}(unprotected), ciphertext}

	if len(r.recipients) > 0 {
		nested := make([]interface{}, 0, len(r.recipients))

		for i, n := range r.recipients {
			encoded, err := n.encode(targetAlg)
			if err != nil {
				return nil, fmt.Errorf("recipient %d: %w", i, err)
			}

			nested = append(nested, encoded)
		}

		obj = append(obj, nested)
	}

	return obj, nil
}

// String renders the recipient for diagnostics with the carrier truncated.
func (r *Recipient) String() string {
	nested := make([]string, 0, len(r.recipients))
	for _, n := range r.recipients {
		nested = append(nested, n.String())
	}

	return fmt.Sprintf("<COSE_Recipient: [%s, %s, %s, [%s]]>",
		headersRepr(r.protected), headersRepr(r.unprotected), truncate(r.payload), strings.Join(nested, ", "))
}

// classifyRecipients resolves the single key management class shared by all
// recipients. An empty list yields RecipientClassUnknown with no error; a
// mixed or unclassifiable list is an error.
func classifyRecipients(recipients []*Recipient) (RecipientClass, error) {
	class := RecipientClassUnknown

	for i, r := range recipients {
		rc := r.Class()
		if rc == RecipientClassUnknown {
			return RecipientClassUnknown, fmt.Errorf("%w: recipient %d carries no key management algorithm",
				ErrUnsupportedRecipientClass, i)
		}

		if class == RecipientClassUnknown {
			class = rc
			continue
		}

		if rc != class {
			return RecipientClassUnknown, fmt.Errorf("%w: %s mixed with %s", ErrUnsupportedRecipientClass, class, rc)
		}
	}

	return class, nil
}

// containsRecipient reports whether target is attached to the list by
// identity, checking nested layers.
func containsRecipient(target *Recipient, recipients []*Recipient) bool {
	for _, r := range recipients {
		if r == target {
			return true
		}

		if containsRecipient(target, r.recipients) {
			return true
		}
	}

	return false
}

// validateRecipients checks every candidate before any of them is attached.
func validateRecipients(recipients []*Recipient) error {
	for i, r := range recipients {
		if r == nil {
			return fmt.Errorf("%w: recipient %d is nil", ErrInvalidRecipient, i)
		}

		if r.Class() == RecipientClassUnknown {
			return fmt.Errorf("%w: recipient %d carries no key management algorithm", ErrInvalidRecipient, i)
		}
	}

	return nil
}

// deriveKEK derives key material of the given length from an ECDH agreement
// followed by HKDF over the COSE KDF context. kdfAlg is the algorithm the
// derived key is for: the wrap algorithm when a KEK is derived, the content
// algorithm when the CEK itself is.
func (r *Recipient) deriveKEK(op KeyOp, kdfAlg Algorithm, length int) ([]byte, error) {
	alg, err := r.targetAlgorithm()
	if err != nil {
		return nil, fmt.Errorf("derive kek: %w", err)
	}

	info, err := alg.info()
	if err != nil {
		return nil, fmt.Errorf("derive kek: %w", err)
	}

	if info.kdfHash == nil {
		return nil, fmt.Errorf("derive kek: %w: %s is not an agreement algorithm", ErrUnsupportedAlgorithm, alg)
	}

	own, peer, release, err := r.agreementKeys(op, info.static)
	if err != nil {
		return nil, fmt.Errorf("derive kek: %w", err)
	}
	defer release()

	secret, err := agreeSecret(own, peer)
	if err != nil {
		return nil, fmt.Errorf("derive kek: %w", err)
	}
	defer zeroBytes(secret)

	context, err := r.kdfContext(kdfAlg, length)
	if err != nil {
		return nil, fmt.Errorf("derive kek: %w", err)
	}

	salt, _ := r.attrBytes(HeaderSalt)

	kek := make([]byte, length)
	if _, err := io.ReadFull(hkdf.New(info.kdfHash, secret, salt, context), kek); err != nil {
		return nil, fmt.Errorf("derive kek: %w", err)
	}

	return kek, nil
}

// agreementKeys resolves the local and remote key for one agreement
// direction. The release function erases any ephemeral private key that was
// generated on the way.
func (r *Recipient) agreementKeys(op KeyOp, static bool) (Key, Key, func(), error) {
	release := func() {}

	switch op {
	case KeyOpEncrypt:
		if r.peerKey == nil {
			return nil, nil, nil, errors.New("agreement: no peer key set")
		}

		if static {
			if r.key == nil {
				return nil, nil, nil, fmt.Errorf("agreement: %w: static agreement needs a sender key", ErrMissingKey)
			}

			return r.key, r.peerKey, release, nil
		}

		ephemeral, release, err := r.generateEphemeralKey(r.peerKey)
		if err != nil {
			return nil, nil, nil, err
		}

		return ephemeral, r.peerKey, release, nil
	case KeyOpDecrypt:
		if r.key == nil {
			return nil, nil, nil, fmt.Errorf("agreement: %w: decryption needs the recipient private key", ErrMissingKey)
		}

		if static {
			peer, ok := r.headerKey(HeaderStaticKey)
			if !ok {
				peer = r.peerKey
			}

			if peer == nil {
				return nil, nil, nil, errors.New("agreement: no static sender key in headers or attached")
			}

			return r.key, peer, release, nil
		}

		peer, ok := r.headerKey(HeaderEphemeralKey)
		if !ok {
			return nil, nil, nil, errors.New("agreement: no ephemeral key header")
		}

		return r.key, peer, release, nil
	default:
		return nil, nil, nil, fmt.Errorf("agreement: unsupported key operation %s", op)
	}
}

// generateEphemeralKey creates a fresh key pair on the peer's curve and
// publishes the public half in the unprotected headers.
func (r *Recipient) generateEphemeralKey(peer Key) (Key, func(), error) {
	if r.unprotected == nil {
		r.unprotected = Headers{}
	}

	switch p := peer.(type) {
	case *EC2Key:
		ephemeral, err := GenerateEC2Key(p.Crv)
		if err != nil {
			return nil, nil, fmt.Errorf("agreement: %w", err)
		}

		epk, err := ephemeral.Public().toMap()
		if err != nil {
			return nil, nil, fmt.Errorf("agreement: %w", err)
		}

		r.unprotected[HeaderEphemeralKey] = epk

		return ephemeral, func() { zeroBytes(ephemeral.D) }, nil
	case *OKPKey:
		ephemeral, err := GenerateOKPKey()
		if err != nil {
			return nil, nil, fmt.Errorf("agreement: %w", err)
		}

		epk, err := ephemeral.Public().toMap()
		if err != nil {
			return nil, nil, fmt.Errorf("agreement: %w", err)
		}

		r.unprotected[HeaderEphemeralKey] = epk

		return ephemeral, func() { zeroBytes(ephemeral.D) }, nil
	default:
		return nil, nil, fmt.Errorf("agreement: unsupported peer key type %T", peer)
	}
}

// agreeSecret computes the ECDH shared secret between the local private key
// and the remote public key.
func agreeSecret(own, peer Key) ([]byte, error) {
	switch k := own.(type) {
	case *EC2Key:
		p, ok := peer.(*EC2Key)
		if !ok {
			return nil, fmt.Errorf("agreement: EC2 key with %T peer", peer)
		}

		return k.deriveECDH(p)
	case *OKPKey:
		p, ok := peer.(*OKPKey)
		if !ok {
			return nil, fmt.Errorf("agreement: OKP key with %T peer", peer)
		}

		return k.deriveECDH(p)
	default:
		return nil, fmt.Errorf("agreement: unsupported key type %T", own)
	}
}

// kdfContext builds the COSE_KDF_Context structure that binds the derivation
// to the algorithm, the party info headers and the recipient's protected
// headers.
func (r *Recipient) kdfContext(alg Algorithm, length int) ([]byte, error) {
	protected, err := marshalProtected(r.protected)
	if err != nil {
		return nil, err
	}

	partyU := []interface{}{
		r.partyAttr(HeaderPartyUIdentity), r.partyAttr(HeaderPartyUNonce), r.partyAttr(HeaderPartyUOther),
	}
	partyV := []interface{}{
		r.partyAttr(HeaderPartyVIdentity), r.partyAttr(HeaderPartyVNonce), r.partyAttr(HeaderPartyVOther),
	}

	context := []interface{}{
		int64(alg),
		partyU,
		partyV,
		[]interface{}{uint64(length) * 8, protected},
	}

	return encMode.Marshal(context)
}

// partyAttr resolves a party info header, absent slots encode as null.
func (r *Recipient) partyAttr(label int64) interface{} {
	v, ok := r.attr(label)
	if !ok {
		return nil
	}

	return v
}

func (r *Recipient) attrBytes(label int64) ([]byte, bool) {
	raw, ok := r.attr(label)
	if !ok {
		return nil, false
	}

	return asBytes(raw)
}

func (r *Recipient) headerKey(label int64) (Key, bool) {
	raw, ok := r.attr(label)
	if !ok {
		return nil, false
	}

	return asKey(raw)
}

// asKey coerces a header value into a Key. Wire decoding leaves COSE_Key
// values as plain maps.
func asKey(raw interface{}) (Key, bool) {
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

// wrapKey wraps cek under kek with AES key wrap (RFC 3394).
func wrapKey(kek, cek []byte) ([]byte, error) {
	block, err := aes.NewCipher(kek)
	if err != nil {
		return nil, fmt.Errorf("wrap key: %w", err)
	}

	return josecipher.KeyWrap(block, cek)
}

// unwrapKey reverses wrapKey.
func unwrapKey(kek, encryptedKey []byte) ([]byte, error) {
	block, err := aes.NewCipher(kek)
	if err != nil {
		return nil, fmt.Errorf("unwrap key: %w", err)
	}

	return josecipher.KeyUnwrap(block, encryptedKey)
}

func zeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
