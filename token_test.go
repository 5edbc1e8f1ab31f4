package webauthn

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSealOpenTokenRoundTrip(t *testing.T) {
	secret := validTokenSecret()
	session := Session{
		SessionID:    "sess-1",
		UserID:       "user-1",
		CredentialID: "cred-1",
		UserVerified: true,
		ExpiresAt:    time.Now().UTC().Add(time.Hour).Truncate(time.Second),
	}

	token, err := sealToken(session.SessionID, session, secret)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	sessionID, opened, _, err := openToken(token, secret)
	require.NoError(t, err)
	assert.Equal(t, session.SessionID, sessionID)
	assert.Equal(t, session.UserID, opened.UserID)
	assert.Equal(t, session.CredentialID, opened.CredentialID)
	assert.True(t, opened.UserVerified)
	assert.True(t, opened.ExpiresAt.Equal(session.ExpiresAt))
}

func TestOpenTokenWrongSecretFails(t *testing.T) {
	token, err := sealToken("sess-1", Session{SessionID: "sess-1"}, validTokenSecret())
	require.NoError(t, err)

	wrongSecret := []byte(strings.Repeat("b", minTokenSecretBytes))
	_, _, _, err = openToken(token, wrongSecret)
	require.Error(t, err)
	assert.Equal(t, CodeInvalidToken, CodeOf(err))
}

func TestOpenTokenTamperedCiphertextFails(t *testing.T) {
	secret := validTokenSecret()
	token, err := sealToken("sess-1", Session{SessionID: "sess-1"}, secret)
	require.NoError(t, err)

	tampered := []byte(token)
	tampered[len(tampered)/2] ^= 0xFF
	_, _, _, err = openToken(string(tampered), secret)
	require.Error(t, err)
	assert.Equal(t, CodeInvalidToken, CodeOf(err))
}

func TestOpenTokenMalformedEnvelopeFails(t *testing.T) {
	_, _, _, err := openToken(EncodeBase64URL([]byte("not json")), validTokenSecret())
	require.Error(t, err)
	assert.Equal(t, CodeInvalidToken, CodeOf(err))
}

func TestGenerateSessionIDIsUnique(t *testing.T) {
	a, err := generateSessionID()
	require.NoError(t, err)
	b, err := generateSessionID()
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}
