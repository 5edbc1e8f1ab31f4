// Package cose parses COSE_Key structures (RFC 8152) as delivered inside
// WebAuthn attested credential data, and infers a COSE algorithm
// identifier when the key itself doesn't carry one.
//
// Decoding uses struct-tag based CBOR decoding via
// github.com/fxamacker/cbor/v2 (the teacher library's own approach in
// cose.go), which is the idiomatic way to pull integer-keyed CBOR maps
// into Go structs without hand-rolling a walker.
package cose

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// Algorithm is a COSE algorithm identifier.
//
// https://www.iana.org/assignments/cose/cose.xhtml#algorithms
type Algorithm int64

const (
	AlgorithmES256 Algorithm = -7
	AlgorithmES384 Algorithm = -35
	AlgorithmES512 Algorithm = -36
	AlgorithmEdDSA Algorithm = -8
	AlgorithmRS256 Algorithm = -257
	AlgorithmRS384 Algorithm = -258
	AlgorithmRS512 Algorithm = -259
	AlgorithmPS256 Algorithm = -37
	AlgorithmPS384 Algorithm = -38
	AlgorithmPS512 Algorithm = -39
)

var algorithmNames = map[Algorithm]string{
	AlgorithmES256: "ES256",
	AlgorithmES384: "ES384",
	AlgorithmES512: "ES512",
	AlgorithmEdDSA: "EdDSA",
	AlgorithmRS256: "RS256",
	AlgorithmRS384: "RS384",
	AlgorithmRS512: "RS512",
	AlgorithmPS256: "PS256",
	AlgorithmPS384: "PS384",
	AlgorithmPS512: "PS512",
}

func (a Algorithm) String() string {
	if s, ok := algorithmNames[a]; ok {
		return s
	}
	return fmt.Sprintf("Algorithm(%d)", int64(a))
}

// KeyType identifies the COSE key type (kty) of a decoded key.
type KeyType int64

const (
	KeyTypeOKP KeyType = 1
	KeyTypeEC2 KeyType = 2
	KeyTypeRSA KeyType = 3
)

// Curve identifies the elliptic curve of an EC2 or OKP key.
type Curve int64

const (
	CurveP256     Curve = 1
	CurveP384     Curve = 2
	CurveP521     Curve = 3
	CurveEd25519  Curve = 6
)

// Key is the tagged union over the three public-key variants this module
// understands. Exactly one of EC2, RSA, or OKP is non-nil.
type Key struct {
	EC2 *EC2Key
	RSA *RSAKey
	OKP *OKPKey
}

// EC2Key is an elliptic-curve public key (P-256/P-384/P-521).
type EC2Key struct {
	Alg   Algorithm
	Curve Curve
	X, Y  []byte
}

// RSAKey is an RSA public key.
type RSAKey struct {
	Alg Algorithm
	N   []byte // modulus, big-endian
	E   []byte // public exponent, big-endian
}

// OKPKey is an octet key pair public key (Ed25519).
type OKPKey struct {
	Alg   Algorithm
	Curve Curve
	X     []byte
}

// Algorithm returns the key's algorithm, inferring one from its curve or
// key type when the COSE map omitted the alg field.
func (k Key) Algorithm() (Algorithm, error) {
	switch {
	case k.EC2 != nil:
		if k.EC2.Alg != 0 {
			return k.EC2.Alg, nil
		}
		switch k.EC2.Curve {
		case CurveP256:
			return AlgorithmES256, nil
		case CurveP384:
			return AlgorithmES384, nil
		case CurveP521:
			return AlgorithmES512, nil
		}
		return 0, &UnknownAlgorithmError{KeyType: KeyTypeEC2, Curve: k.EC2.Curve}
	case k.RSA != nil:
		if k.RSA.Alg != 0 {
			return k.RSA.Alg, nil
		}
		return AlgorithmRS256, nil
	case k.OKP != nil:
		if k.OKP.Alg != 0 {
			return k.OKP.Alg, nil
		}
		if k.OKP.Curve == CurveEd25519 {
			return AlgorithmEdDSA, nil
		}
		return 0, &UnknownAlgorithmError{KeyType: KeyTypeOKP, Curve: k.OKP.Curve}
	default:
		return 0, fmt.Errorf("cose: empty key")
	}
}

// UnknownAlgorithmError is returned when a key's type/curve combination
// has no known algorithm and the key itself didn't specify one.
type UnknownAlgorithmError struct {
	KeyType KeyType
	Curve   Curve
}

func (e *UnknownAlgorithmError) Error() string {
	return fmt.Sprintf("cose: unknown algorithm for key type %d curve %d", e.KeyType, e.Curve)
}

// InvalidKeyError reports a COSE key missing a field required by its
// declared key type.
type InvalidKeyError struct {
	KeyType KeyType
	Reason  string
}

func (e *InvalidKeyError) Error() string {
	return fmt.Sprintf("cose: invalid %s key: %s", keyTypeName(e.KeyType), e.Reason)
}

func keyTypeName(kt KeyType) string {
	switch kt {
	case KeyTypeEC2:
		return "EC2"
	case KeyTypeRSA:
		return "RSA"
	case KeyTypeOKP:
		return "OKP"
	default:
		return fmt.Sprintf("kty(%d)", kt)
	}
}

// rawKey mirrors the COSE_Key CBOR map using integer-keyed struct tags, the
// same approach the teacher library uses in its own cose.go.
type rawKey struct {
	Kty     int64           `cbor:"1,keyasint"`
	Alg     int64           `cbor:"3,keyasint,omitempty"`
	CrvOrN  cbor.RawMessage `cbor:"-1,keyasint,omitempty"`
	XOrE    cbor.RawMessage `cbor:"-2,keyasint,omitempty"`
	Y       cbor.RawMessage `cbor:"-3,keyasint,omitempty"`
}

// Decode parses a single CBOR-encoded COSE_Key map into its tagged-union
// representation.
func Decode(b []byte) (Key, error) {
	var raw rawKey
	if err := cbor.Unmarshal(b, &raw); err != nil {
		return Key{}, fmt.Errorf("cose: decode: %w", err)
	}

	switch KeyType(raw.Kty) {
	case KeyTypeEC2:
		return decodeEC2(raw)
	case KeyTypeRSA:
		return decodeRSA(raw)
	case KeyTypeOKP:
		return decodeOKP(raw)
	case 0:
		return Key{}, fmt.Errorf("cose: missing kty")
	default:
		return Key{}, fmt.Errorf("cose: unsupported key type %d", raw.Kty)
	}
}

func decodeEC2(raw rawKey) (Key, error) {
	if len(raw.CrvOrN) == 0 {
		return Key{}, &InvalidKeyError{KeyType: KeyTypeEC2, Reason: "missing crv"}
	}
	var crv int64
	if err := cbor.Unmarshal(raw.CrvOrN, &crv); err != nil {
		return Key{}, &InvalidKeyError{KeyType: KeyTypeEC2, Reason: "malformed crv"}
	}

	var x, y []byte
	if err := cbor.Unmarshal(raw.XOrE, &x); err != nil || len(x) == 0 {
		return Key{}, &InvalidKeyError{KeyType: KeyTypeEC2, Reason: "missing or malformed x"}
	}
	if err := cbor.Unmarshal(raw.Y, &y); err != nil || len(y) == 0 {
		return Key{}, &InvalidKeyError{KeyType: KeyTypeEC2, Reason: "missing or malformed y"}
	}

	return Key{EC2: &EC2Key{
		Alg:   Algorithm(raw.Alg),
		Curve: Curve(crv),
		X:     x,
		Y:     y,
	}}, nil
}

func decodeRSA(raw rawKey) (Key, error) {
	var n, e []byte
	if err := cbor.Unmarshal(raw.CrvOrN, &n); err != nil || len(n) == 0 {
		return Key{}, &InvalidKeyError{KeyType: KeyTypeRSA, Reason: "missing or malformed n"}
	}
	if err := cbor.Unmarshal(raw.XOrE, &e); err != nil || len(e) == 0 {
		return Key{}, &InvalidKeyError{KeyType: KeyTypeRSA, Reason: "missing or malformed e"}
	}

	return Key{RSA: &RSAKey{
		Alg: Algorithm(raw.Alg),
		N:   n,
		E:   e,
	}}, nil
}

func decodeOKP(raw rawKey) (Key, error) {
	if len(raw.CrvOrN) == 0 {
		return Key{}, &InvalidKeyError{KeyType: KeyTypeOKP, Reason: "missing crv"}
	}
	var crv int64
	if err := cbor.Unmarshal(raw.CrvOrN, &crv); err != nil {
		return Key{}, &InvalidKeyError{KeyType: KeyTypeOKP, Reason: "malformed crv"}
	}

	var x []byte
	if err := cbor.Unmarshal(raw.XOrE, &x); err != nil || len(x) == 0 {
		return Key{}, &InvalidKeyError{KeyType: KeyTypeOKP, Reason: "missing or malformed x"}
	}

	return Key{OKP: &OKPKey{
		Alg:   Algorithm(raw.Alg),
		Curve: Curve(crv),
		X:     x,
	}}, nil
}
