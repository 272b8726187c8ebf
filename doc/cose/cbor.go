/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package cose

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// Encoding modes shared across the package. Protected headers and AAD
// structures must encode deterministically or authentication breaks, so one
// core-deterministic EncMode serves all encoding. The DecMode converts
// unsigned integers to int64 so header labels and algorithm identifiers
// always surface as one concrete type.
var (
	encMode cbor.EncMode //nolint:gochecknoglobals
	decMode cbor.DecMode //nolint:gochecknoglobals
)

func init() { //nolint:gochecknoinits
	encOpts := cbor.CoreDetEncOptions()

	em, err := encOpts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("cose: failed to build CBOR encode mode: %v", err))
	}

	encMode = em

	decOpts := cbor.DecOptions{
		IntDec: cbor.IntDecConvertSigned,
	}

	dm, err := decOpts.DecMode()
	if err != nil {
		panic(fmt.Sprintf("cose: failed to build CBOR decode mode: %v", err))
	}

	decMode = dm
}

// marshalCOSEObj serializes a message array, wrapped under the message's
// CBOR tag when tag is true.
func marshalCOSEObj(tagNumber uint64, coseObj []interface{}, tag bool) ([]byte, error) {
	if !tag {
		return encMode.Marshal(coseObj)
	}

	return encMode.Marshal(cbor.Tag{Number: tagNumber, Content: coseObj})
}

// asBytes coerces a decoded wire element into a byte string. CBOR null is
// accepted as an absent (nil) byte string.
func asBytes(v interface{}) ([]byte, bool) {
	switch b := v.(type) {
	case []byte:
		return b, true
	case nil:
		return nil, true
	default:
		return nil, false
	}
}

// asHeaders coerces a decoded wire element into an unprotected header map.
func asHeaders(v interface{}) (Headers, bool) {
	switch m := v.(type) {
	case map[interface{}]interface{}:
		h, err := Headers(m).normalized(true)
		if err != nil {
			return nil, false
		}

		return h, true
	case nil:
		return Headers{}, true
	default:
		return nil, false
	}
}
