/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package cose

import "fmt"

// KeyOp identifies a permitted key operation
// (https://www.iana.org/assignments/cose/cose.xhtml#key-operations).
type KeyOp int64

// Registered key operation values.
const (
	KeyOpSign       KeyOp = 1
	KeyOpVerify     KeyOp = 2
	KeyOpEncrypt    KeyOp = 3
	KeyOpDecrypt    KeyOp = 4
	KeyOpWrapKey    KeyOp = 5
	KeyOpUnwrapKey  KeyOp = 6
	KeyOpDeriveKey  KeyOp = 7
	KeyOpDeriveBits KeyOp = 8
)

var keyOpNames = map[KeyOp]string{ //nolint:gochecknoglobals
	KeyOpSign:       "sign",
	KeyOpVerify:     "verify",
	KeyOpEncrypt:    "encrypt",
	KeyOpDecrypt:    "decrypt",
	KeyOpWrapKey:    "wrap key",
	KeyOpUnwrapKey:  "unwrap key",
	KeyOpDeriveKey:  "derive key",
	KeyOpDeriveBits: "derive bits",
}

// String returns the registered operation name.
func (op KeyOp) String() string {
	if name, ok := keyOpNames[op]; ok {
		return name
	}

	return fmt.Sprintf("KeyOp(%d)", int64(op))
}

func containsKeyOp(ops []KeyOp, op KeyOp) bool {
	for _, o := range ops {
		if o == op {
			return true
		}
	}

	return false
}
