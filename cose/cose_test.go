package cose

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodeRawKey(t *testing.T, fields map[int64]interface{}) []byte {
	t.Helper()
	m := make(map[interface{}]interface{}, len(fields))
	for k, v := range fields {
		m[k] = v
	}
	b, err := cbor.Marshal(m)
	require.NoError(t, err)
	return b
}

func TestDecodeEC2KeyWithAlgorithm(t *testing.T) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	b := encodeRawKey(t, map[int64]interface{}{
		1:  int64(KeyTypeEC2),
		3:  int64(AlgorithmES256),
		-1: int64(CurveP256),
		-2: priv.X.Bytes(),
		-3: priv.Y.Bytes(),
	})

	key, err := Decode(b)
	require.NoError(t, err)
	require.NotNil(t, key.EC2)

	alg, err := key.Algorithm()
	require.NoError(t, err)
	assert.Equal(t, AlgorithmES256, alg)

	pub, err := key.PublicKey()
	require.NoError(t, err)
	ecdsaPub, ok := pub.(*ecdsa.PublicKey)
	require.True(t, ok)
	assert.Equal(t, priv.X, ecdsaPub.X)
	assert.Equal(t, priv.Y, ecdsaPub.Y)
}

func TestDecodeEC2KeyInfersAlgorithmFromCurve(t *testing.T) {
	priv, err := ecdsa.GenerateKey(elliptic.P384(), rand.Reader)
	require.NoError(t, err)

	b := encodeRawKey(t, map[int64]interface{}{
		1:  int64(KeyTypeEC2),
		-1: int64(CurveP384),
		-2: priv.X.Bytes(),
		-3: priv.Y.Bytes(),
	})

	key, err := Decode(b)
	require.NoError(t, err)

	alg, err := key.Algorithm()
	require.NoError(t, err)
	assert.Equal(t, AlgorithmES384, alg)
}

func TestDecodeEC2MissingYIsInvalid(t *testing.T) {
	b := encodeRawKey(t, map[int64]interface{}{
		1:  int64(KeyTypeEC2),
		-1: int64(CurveP256),
		-2: []byte{0x01},
	})

	_, err := Decode(b)
	require.Error(t, err)
	var invalid *InvalidKeyError
	assert.ErrorAs(t, err, &invalid)
}

func TestDecodeRSAKeyDefaultsToRS256(t *testing.T) {
	b := encodeRawKey(t, map[int64]interface{}{
		1:  int64(KeyTypeRSA),
		-1: []byte{0x01, 0x02, 0x03},
		-2: []byte{0x01, 0x00, 0x01},
	})

	key, err := Decode(b)
	require.NoError(t, err)
	require.NotNil(t, key.RSA)

	alg, err := key.Algorithm()
	require.NoError(t, err)
	assert.Equal(t, AlgorithmRS256, alg)
}

func TestDecodeOKPKeyInfersEdDSA(t *testing.T) {
	b := encodeRawKey(t, map[int64]interface{}{
		1:  int64(KeyTypeOKP),
		-1: int64(CurveEd25519),
		-2: make([]byte, 32),
	})

	key, err := Decode(b)
	require.NoError(t, err)
	require.NotNil(t, key.OKP)

	alg, err := key.Algorithm()
	require.NoError(t, err)
	assert.Equal(t, AlgorithmEdDSA, alg)
}

func TestDecodeMissingKty(t *testing.T) {
	b := encodeRawKey(t, map[int64]interface{}{
		-1: int64(CurveP256),
	})

	_, err := Decode(b)
	assert.Error(t, err)
}

func TestDecodeUnsupportedKeyType(t *testing.T) {
	b := encodeRawKey(t, map[int64]interface{}{
		1: int64(4),
	})

	_, err := Decode(b)
	assert.Error(t, err)
}

func TestAlgorithmStringUnknown(t *testing.T) {
	assert.Equal(t, "Algorithm(-99)", Algorithm(-99).String())
	assert.Equal(t, "ES256", AlgorithmES256.String())
}
