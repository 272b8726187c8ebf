/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package cose

import (
	"encoding/hex"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/hyperledger/aries-framework-go/component/log"
)

var logger = log.New("go-cose/doc/cose")

// CBOR tag values identifying the message types handled by this package
// (https://www.iana.org/assignments/cbor-tags/cbor-tags.xhtml).
const (
	// Encrypt0MessageTag wraps an encrypted message without recipient structures.
	Encrypt0MessageTag uint64 = 16
	// EncryptMessageTag wraps a multi-recipient encrypted message.
	EncryptMessageTag uint64 = 96
)

// Message is a parsed COSE message.
type Message interface {
	// Encode serializes the message, wrapped under its CBOR tag when tag is
	// true. In encrypt mode the payload is sealed first; otherwise the
	// stored payload bytes are emitted verbatim.
	Encode(tag, encrypt bool) ([]byte, error)
}

// messageFactory rebuilds a message from its decoded wire array.
type messageFactory func(coseObj []interface{}) (Message, error)

var messageFactories = map[uint64]messageFactory{} //nolint:gochecknoglobals

// registerMessage makes a message type decodable by tag. Registration runs
// at package init time; a duplicate tag is a programming error.
func registerMessage(tag uint64, factory messageFactory) {
	if _, ok := messageFactories[tag]; ok {
		panic(fmt.Sprintf("cose: message tag %d registered twice", tag))
	}

	messageFactories[tag] = factory
}

// Decode parses a tagged COSE message and dispatches on the tag to the
// registered message type.
func Decode(encoded []byte) (Message, error) {
	var raw cbor.RawTag

	if err := decMode.Unmarshal(encoded, &raw); err != nil {
		return nil, fmt.Errorf("decode: %w: not a tagged message: %v", ErrMalformedMessage, err)
	}

	factory, ok := messageFactories[raw.Number]
	if !ok {
		return nil, fmt.Errorf("decode: %w: unrecognized message tag %d", ErrMalformedMessage, raw.Number)
	}

	var coseObj []interface{}

	if err := decMode.Unmarshal(raw.Content, &coseObj); err != nil {
		return nil, fmt.Errorf("decode: %w: %v", ErrMalformedMessage, err)
	}

	return factory(coseObj)
}

// truncate renders byte fields compactly for diagnostics.
func truncate(b []byte) string {
	const max = 16

	if len(b) <= max {
		return fmt.Sprintf("h'%s'", hex.EncodeToString(b))
	}

	return fmt.Sprintf("h'%s...' (%d B)", hex.EncodeToString(b[:max]), len(b))
}
