package webauthn

import "github.com/aoneahsan/webauthn-server-buildkit/cose"

// Algorithm identifies a COSE signing algorithm, used both in
// pubKeyCredParams and to pick a signature verification scheme.
//
// https://www.w3.org/TR/webauthn-3/#typedefdef-cosealgorithmidentifier
type Algorithm = cose.Algorithm

// The set of algorithms this library offers to clients and can verify.
// Order here becomes the default offered-to-client priority in
// pubKeyCredParams when a RelyingParty doesn't configure its own order.
const (
	ES256 = cose.AlgorithmES256
	ES384 = cose.AlgorithmES384
	ES512 = cose.AlgorithmES512
	EdDSA = cose.AlgorithmEdDSA
	RS256 = cose.AlgorithmRS256
	RS384 = cose.AlgorithmRS384
	RS512 = cose.AlgorithmRS512
	PS256 = cose.AlgorithmPS256
	PS384 = cose.AlgorithmPS384
	PS512 = cose.AlgorithmPS512
)

// DefaultSupportedAlgorithms is the algorithm priority order used when a
// RelyingParty's configuration does not specify one.
func DefaultSupportedAlgorithms() []Algorithm {
	return []Algorithm{ES256, ES384, ES512, EdDSA, RS256, RS384, RS512, PS256, PS384, PS512}
}
