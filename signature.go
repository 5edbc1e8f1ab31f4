package webauthn

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"

	"github.com/aoneahsan/webauthn-server-buildkit/cose"
)

// verifySignature checks sig over message using the given COSE public key.
// It returns an error only for configuration problems (unsupported
// algorithm, malformed key); for a genuine signature mismatch it returns
// (false, nil), never leaking the underlying crypto error per §7's
// "Swallowed" rule.
func verifySignature(key cose.Key, message, sig []byte) (bool, error) {
	alg, err := key.Algorithm()
	if err != nil {
		return false, newError(CodeCoseUnknownAlgorithm, "determining key algorithm: %v", err)
	}

	pub, err := key.PublicKey()
	if err != nil {
		return false, newError(CodeCoseUnsupportedKeyType, "decoding public key: %v", err)
	}

	switch alg {
	case ES256, ES384, ES512:
		ecdsaPub, ok := pub.(*ecdsa.PublicKey)
		if !ok {
			return false, newError(CodeUnsupportedAlgorithm, "key type %T is not an ECDSA key for algorithm %s", pub, alg)
		}
		digest := hashFor(alg, message)
		return ecdsa.VerifyASN1(ecdsaPub, digest, sig), nil

	case RS256, RS384, RS512:
		rsaPub, ok := pub.(*rsa.PublicKey)
		if !ok {
			return false, newError(CodeUnsupportedAlgorithm, "key type %T is not an RSA key for algorithm %s", pub, alg)
		}
		digest := hashFor(alg, message)
		return rsa.VerifyPKCS1v15(rsaPub, cryptoHashFor(alg), digest, sig) == nil, nil

	case PS256, PS384, PS512:
		rsaPub, ok := pub.(*rsa.PublicKey)
		if !ok {
			return false, newError(CodeUnsupportedAlgorithm, "key type %T is not an RSA key for algorithm %s", pub, alg)
		}
		h := cryptoHashFor(alg)
		digest := hashFor(alg, message)
		opts := &rsa.PSSOptions{SaltLength: rsa.PSSSaltLengthEqualsHash, Hash: h}
		return rsa.VerifyPSS(rsaPub, h, digest, sig, opts) == nil, nil

	case EdDSA:
		ed25519Pub, ok := pub.(ed25519.PublicKey)
		if !ok {
			return false, newError(CodeUnsupportedAlgorithm, "key type %T is not an Ed25519 key", pub)
		}
		if len(ed25519Pub) != ed25519.PublicKeySize {
			return false, newError(CodeCoseOKPInvalid, "Ed25519 public key must be %d bytes, got %d", ed25519.PublicKeySize, len(ed25519Pub))
		}
		// Ed25519 signs the message directly; there is no separate
		// pre-hash step, despite some sources annotating EdDSA with a
		// hash algorithm.
		return ed25519.Verify(ed25519Pub, message, sig), nil

	default:
		return false, newError(CodeUnsupportedAlgorithm, "algorithm %s is not supported", alg)
	}
}

func hashFor(alg Algorithm, message []byte) []byte {
	switch alg {
	case ES384, RS384, PS384:
		return sha384Sum(message)
	case ES512, RS512, PS512:
		return sha512Sum(message)
	default:
		return sha256Sum(message)
	}
}

func cryptoHashFor(alg Algorithm) crypto.Hash {
	switch alg {
	case ES384, RS384, PS384:
		return crypto.SHA384
	case ES512, RS512, PS512:
		return crypto.SHA512
	default:
		return crypto.SHA256
	}
}
