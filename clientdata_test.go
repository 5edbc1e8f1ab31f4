package webauthn

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodeClientData(t *testing.T, cd CollectedClientData) string {
	t.Helper()
	b, err := json.Marshal(cd)
	require.NoError(t, err)
	return EncodeBase64URL(b)
}

func TestParseClientDataRoundTrip(t *testing.T) {
	cd := CollectedClientData{Type: clientDataTypeCreate, Challenge: "abc", Origin: "https://example.com"}
	encoded := encodeClientData(t, cd)

	parsed, raw, err := parseClientData(encoded)
	require.NoError(t, err)
	assert.Equal(t, cd.Type, parsed.Type)
	assert.NotEmpty(t, raw)
}

func TestParseClientDataInvalidBase64(t *testing.T) {
	_, _, err := parseClientData("not base64url!!")
	require.Error(t, err)
	assert.Equal(t, CodeInvalidClientDataType, CodeOf(err))
}

func TestVerifyClientDataTypeMismatch(t *testing.T) {
	cd := &CollectedClientData{Type: clientDataTypeGet}
	err := verifyClientDataType(cd, clientDataTypeCreate)
	require.Error(t, err)
	assert.Equal(t, CodeInvalidClientDataType, CodeOf(err))
}

func TestVerifyChallengeMatchesExactly(t *testing.T) {
	challengeBytes := []byte("challenge-bytes")
	challenge := EncodeBase64URL(challengeBytes)
	cd := &CollectedClientData{Challenge: challenge}

	assert.NoError(t, verifyChallenge(cd, challenge))

	other := EncodeBase64URL([]byte("other-bytes-____"))
	assert.Error(t, verifyChallenge(cd, other))
}

func TestVerifyOriginCaseSensitive(t *testing.T) {
	cd := &CollectedClientData{Origin: "https://Example.com"}
	_, err := verifyOrigin(cd, []string{"https://example.com"})
	assert.Error(t, err)

	cd2 := &CollectedClientData{Origin: "https://example.com"}
	matched, err := verifyOrigin(cd2, []string{"https://example.com", "https://other.example.com"})
	require.NoError(t, err)
	assert.Equal(t, "https://example.com", matched)
}

func TestMatchRPIDHash(t *testing.T) {
	hash := sha256Sum([]byte("example.com"))
	var arr [32]byte
	copy(arr[:], hash)

	matched, err := matchRPIDHash(arr, []string{"other.com", "example.com"})
	require.NoError(t, err)
	assert.Equal(t, "example.com", matched)

	_, err = matchRPIDHash(arr, []string{"other.com"})
	assert.Error(t, err)
	assert.Equal(t, CodeRPIDMismatch, CodeOf(err))
}
