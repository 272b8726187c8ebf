/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package cose

import (
	"fmt"
)

// COSE key type values (https://www.iana.org/assignments/cose/cose.xhtml#key-type).
const (
	// KeyTypeOKP identifies octet key pair keys (X25519 here).
	KeyTypeOKP int64 = 1
	// KeyTypeEC2 identifies double-coordinate elliptic curve keys.
	KeyTypeEC2 int64 = 2
	// KeyTypeSymmetric identifies symmetric keys.
	KeyTypeSymmetric int64 = 4
)

// COSE key common parameter labels.
const (
	keyParamKty    int64 = 1
	keyParamKid    int64 = 2
	keyParamAlg    int64 = 3
	keyParamKeyOps int64 = 4
	keyParamBaseIV int64 = 5
)

// Key type specific parameter labels. EC2 and OKP share the curve/x/d
// labels; the symmetric key material label reuses -1 since the registry
// scopes labels per key type.
const (
	keyParamCurve int64 = -1
	keyParamX     int64 = -2
	keyParamY     int64 = -3
	keyParamD     int64 = -4
	keyParamK     int64 = -1
)

// Curve identifies a COSE elliptic curve
// (https://www.iana.org/assignments/cose/cose.xhtml#elliptic-curves).
type Curve int64

// Registered curve values used by this package.
const (
	CurveP256   Curve = 1
	CurveP384   Curve = 2
	CurveP521   Curve = 3
	CurveX25519 Curve = 4
)

var curveNames = map[Curve]string{ //nolint:gochecknoglobals
	CurveP256:   "P-256",
	CurveP384:   "P-384",
	CurveP521:   "P-521",
	CurveX25519: "X25519",
}

// String returns the registered curve name.
func (c Curve) String() string {
	if name, ok := curveNames[c]; ok {
		return name
	}

	return fmt.Sprintf("Curve(%d)", int64(c))
}

// Key is a COSE key object. The concrete types are SymmetricKey, EC2Key and
// OKPKey.
type Key interface {
	// KeyType returns the COSE key type value.
	KeyType() int64

	// toMap renders the key as a COSE_Key map for wire embedding, e.g. as
	// an ephemeral key header.
	toMap() (map[interface{}]interface{}, error)
}

// keyFromMap rebuilds a key object from a decoded COSE_Key map.
func keyFromMap(m map[interface{}]interface{}) (Key, error) {
	kty, ok := intParam(m, keyParamKty)
	if !ok {
		return nil, fmt.Errorf("keyFromMap: missing key type")
	}

	switch kty {
	case KeyTypeEC2:
		return ec2KeyFromMap(m)
	case KeyTypeOKP:
		return okpKeyFromMap(m)
	case KeyTypeSymmetric:
		return symmetricKeyFromMap(m)
	default:
		return nil, fmt.Errorf("keyFromMap: unsupported key type %d", kty)
	}
}

func intParam(m map[interface{}]interface{}, label int64) (int64, bool) {
	raw, ok := m[label]
	if !ok {
		return 0, false
	}

	switch v := raw.(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case Algorithm:
		return int64(v), true
	case Curve:
		return int64(v), true
	default:
		return 0, false
	}
}

func bytesParam(m map[interface{}]interface{}, label int64) ([]byte, bool) {
	raw, ok := m[label]
	if !ok {
		return nil, false
	}

	b, ok := raw.([]byte)

	return b, ok
}

// setCommonKeyParams writes the optional shared parameters into a COSE_Key map.
func setCommonKeyParams(m map[interface{}]interface{}, kid []byte, alg Algorithm, ops []KeyOp) {
	if len(kid) > 0 {
		m[keyParamKid] = kid
	}

	if alg != 0 {
		m[keyParamAlg] = int64(alg)
	}

	if len(ops) > 0 {
		rawOps := make([]interface{}, 0, len(ops))
		for _, op := range ops {
			rawOps = append(rawOps, int64(op))
		}

		m[keyParamKeyOps] = rawOps
	}
}

// commonKeyParams reads the optional shared parameters from a COSE_Key map.
func commonKeyParams(m map[interface{}]interface{}) (kid []byte, alg Algorithm, ops []KeyOp, err error) {
	kid, _ = bytesParam(m, keyParamKid)

	if rawAlg, ok := intParam(m, keyParamAlg); ok {
		alg = Algorithm(rawAlg)
	}

	rawOps, ok := m[keyParamKeyOps]
	if !ok {
		return kid, alg, nil, nil
	}

	opsList, ok := rawOps.([]interface{})
	if !ok {
		return nil, 0, nil, fmt.Errorf("key operations must be an array, got %T", rawOps)
	}

	for _, rawOp := range opsList {
		switch op := rawOp.(type) {
		case int64:
			ops = append(ops, KeyOp(op))
		case int:
			ops = append(ops, KeyOp(op))
		case KeyOp:
			ops = append(ops, op)
		default:
			return nil, 0, nil, fmt.Errorf("key operation %v has invalid type %T", rawOp, rawOp)
		}
	}

	return kid, alg, ops, nil
}
