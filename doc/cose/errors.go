/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package cose

import "errors"

// Error kinds surfaced by message construction, wire parsing and the
// encrypt/decrypt orchestration. Call sites add context with fmt.Errorf
// and %w; match with errors.Is.
var (
	// ErrInvalidRecipient rejects a recipient list entry that is not a
	// usable recipient value.
	ErrInvalidRecipient = errors.New("cose: invalid recipient")

	// ErrUnsupportedRecipientClass reports a recipient set that does not
	// classify into exactly one known key management class.
	ErrUnsupportedRecipientClass = errors.New("cose: unsupported recipient class")

	// ErrRecipientNotFound reports a decrypt call with a recipient that is
	// not attached to the message.
	ErrRecipientNotFound = errors.New("cose: cannot find recipient")

	// ErrMalformedMessage reports wire bytes that do not parse into the
	// expected message array shape.
	ErrMalformedMessage = errors.New("cose: malformed message structure")

	// ErrMissingKey reports an operation that requires a key before one was
	// set or derived.
	ErrMissingKey = errors.New("cose: key is not set")

	// ErrMissingIV reports a seal or open attempt with neither a full nor a
	// partial IV header.
	ErrMissingIV = errors.New("cose: no IV found")

	// ErrUnsupportedAlgorithm reports an algorithm identifier outside the
	// registry, or a registered algorithm with no implementation.
	ErrUnsupportedAlgorithm = errors.New("cose: unsupported algorithm")
)
