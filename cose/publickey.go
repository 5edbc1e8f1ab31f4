package cose

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rsa"
	"fmt"
	"math/big"
)

// PublicKey converts a decoded COSE key into a standard library
// crypto.PublicKey suitable for crypto/ecdsa, crypto/rsa, or
// crypto/ed25519 signature verification.
func (k Key) PublicKey() (crypto.PublicKey, error) {
	switch {
	case k.EC2 != nil:
		curve, err := k.EC2.ellipticCurve()
		if err != nil {
			return nil, err
		}
		return &ecdsa.PublicKey{
			Curve: curve,
			X:     new(big.Int).SetBytes(k.EC2.X),
			Y:     new(big.Int).SetBytes(k.EC2.Y),
		}, nil
	case k.RSA != nil:
		e := new(big.Int).SetBytes(k.RSA.E)
		return &rsa.PublicKey{
			N: new(big.Int).SetBytes(k.RSA.N),
			E: int(e.Int64()),
		}, nil
	case k.OKP != nil:
		if k.OKP.Curve != CurveEd25519 {
			return nil, fmt.Errorf("cose: unsupported OKP curve %d", k.OKP.Curve)
		}
		if len(k.OKP.X) != ed25519.PublicKeySize {
			return nil, fmt.Errorf("cose: Ed25519 key must be %d bytes, got %d", ed25519.PublicKeySize, len(k.OKP.X))
		}
		return ed25519.PublicKey(k.OKP.X), nil
	default:
		return nil, fmt.Errorf("cose: empty key")
	}
}

func (k *EC2Key) ellipticCurve() (elliptic.Curve, error) {
	switch k.Curve {
	case CurveP256:
		return elliptic.P256(), nil
	case CurveP384:
		return elliptic.P384(), nil
	case CurveP521:
		return elliptic.P521(), nil
	default:
		return nil, fmt.Errorf("cose: unsupported EC2 curve %d", k.Curve)
	}
}
