package webauthn

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aoneahsan/webauthn-server-buildkit/cose"
)

func ecdsaKey(t *testing.T, curve elliptic.Curve, alg Algorithm) (*ecdsa.PrivateKey, cose.Key) {
	t.Helper()
	priv, err := ecdsa.GenerateKey(curve, rand.Reader)
	require.NoError(t, err)
	crv := map[int]cose.Curve{256: cose.CurveP256, 384: cose.CurveP384, 521: cose.CurveP521}[curve.Params().BitSize]
	return priv, cose.Key{EC2: &cose.EC2Key{Alg: alg, Curve: crv, X: priv.X.Bytes(), Y: priv.Y.Bytes()}}
}

func TestVerifySignatureECDSA(t *testing.T) {
	for _, tc := range []struct {
		name  string
		curve elliptic.Curve
		alg   Algorithm
	}{
		{"ES256", elliptic.P256(), ES256},
		{"ES384", elliptic.P384(), ES384},
		{"ES512", elliptic.P521(), ES512},
	} {
		t.Run(tc.name, func(t *testing.T) {
			priv, key := ecdsaKey(t, tc.curve, tc.alg)
			message := []byte("sign this message")
			digest := hashFor(tc.alg, message)
			sig, err := ecdsa.SignASN1(rand.Reader, priv, digest)
			require.NoError(t, err)

			ok, err := verifySignature(key, message, sig)
			require.NoError(t, err)
			assert.True(t, ok)

			ok, err = verifySignature(key, []byte("different message"), sig)
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestVerifySignatureRSAPKCS1v15(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	key := cose.Key{RSA: &cose.RSAKey{Alg: RS256, N: priv.N.Bytes(), E: big(priv.E)}}

	message := []byte("sign this message")
	digest := hashFor(RS256, message)
	sig, err := rsa.SignPKCS1v15(rand.Reader, priv, cryptoHashFor(RS256), digest)
	require.NoError(t, err)

	ok, err := verifySignature(key, message, sig)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVerifySignatureRSAPSS(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	key := cose.Key{RSA: &cose.RSAKey{Alg: PS256, N: priv.N.Bytes(), E: big(priv.E)}}

	message := []byte("sign this message")
	digest := hashFor(PS256, message)
	opts := &rsa.PSSOptions{SaltLength: rsa.PSSSaltLengthEqualsHash, Hash: cryptoHashFor(PS256)}
	sig, err := rsa.SignPSS(rand.Reader, priv, cryptoHashFor(PS256), digest, opts)
	require.NoError(t, err)

	ok, err := verifySignature(key, message, sig)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVerifySignatureEdDSA(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	key := cose.Key{OKP: &cose.OKPKey{Alg: EdDSA, Curve: cose.CurveEd25519, X: pub}}

	message := []byte("sign this message")
	sig := ed25519.Sign(priv, message)

	ok, err := verifySignature(key, message, sig)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = verifySignature(key, []byte("tampered"), sig)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerifySignatureAlgorithmKeyTypeMismatch(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	key := cose.Key{OKP: &cose.OKPKey{Alg: ES256, Curve: cose.CurveEd25519, X: pub}}

	_, err = verifySignature(key, []byte("msg"), []byte("sig"))
	assert.Error(t, err)
}

func big(e int) []byte {
	out := make([]byte, 0, 4)
	for e > 0 {
		out = append([]byte{byte(e & 0xff)}, out...)
		e >>= 8
	}
	return out
}
