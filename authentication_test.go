package webauthn

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildAuthenticationResponse(t *testing.T, priv *ecdsa.PrivateKey, credID []byte, challenge, origin, rpID string, counter uint32, uv bool) *AuthenticationCredential {
	t.Helper()

	rpIDHash := sha256.Sum256([]byte(rpID))
	flags := byte(flagUP)
	if uv {
		flags |= byte(flagUV)
	}
	authData := append([]byte(nil), rpIDHash[:]...)
	authData = append(authData, flags)
	counterBytes := make([]byte, 4)
	binary.BigEndian.PutUint32(counterBytes, counter)
	authData = append(authData, counterBytes...)

	cd := CollectedClientData{Type: clientDataTypeGet, Challenge: challenge, Origin: origin}
	cdBytes, err := json.Marshal(cd)
	require.NoError(t, err)

	clientDataHash := sha256Sum(cdBytes)
	signingInput := append(append([]byte(nil), authData...), clientDataHash...)
	digest := sha256Sum(signingInput)
	sig, err := ecdsa.SignASN1(rand.Reader, priv, digest)
	require.NoError(t, err)

	return &AuthenticationCredential{
		ID:    EncodeBase64URL(credID),
		RawID: EncodeBase64URL(credID),
		Type:  "public-key",
		Response: AuthenticatorAssertionResponse{
			ClientDataJSON:    EncodeBase64URL(cdBytes),
			AuthenticatorData: EncodeBase64URL(authData),
			Signature:         EncodeBase64URL(sig),
		},
	}
}

func TestVerifyAuthenticationHappyPath(t *testing.T) {
	rp := testRP(t)
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	_, _, keyBytes := buildRegistrationResponseWithKey(t, priv)
	credID := []byte{1, 2, 3, 4}
	stored := &WebAuthnCredential{CredentialID: credID, PublicKeyCOSE: keyBytes, Counter: 5}

	challenge := EncodeBase64URL([]byte("authentication-challenge"))
	cred := buildAuthenticationResponse(t, priv, credID, challenge, "https://example.com", "example.com", 6, true)

	info, err := rp.VerifyAuthentication(cred, AuthenticationVerifyInput{
		ExpectedChallenge: challenge,
		StoredCredential:  stored,
	})
	require.NoError(t, err)
	assert.Equal(t, uint32(6), info.NewCounter)
	assert.True(t, info.UserVerified)
}

func TestVerifyAuthenticationCounterRegressionRejected(t *testing.T) {
	rp := testRP(t)
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	_, _, keyBytes := buildRegistrationResponseWithKey(t, priv)
	credID := []byte{1, 2, 3, 4}
	stored := &WebAuthnCredential{CredentialID: credID, PublicKeyCOSE: keyBytes, Counter: 5}

	challenge := EncodeBase64URL([]byte("authentication-challenge"))
	cred := buildAuthenticationResponse(t, priv, credID, challenge, "https://example.com", "example.com", 5, true)

	_, err = rp.VerifyAuthentication(cred, AuthenticationVerifyInput{ExpectedChallenge: challenge, StoredCredential: stored})
	require.Error(t, err)
	assert.Equal(t, CodeCounterError, CodeOf(err))
}

func TestVerifyAuthenticationCounterAdvanceAccepted(t *testing.T) {
	rp := testRP(t)
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	_, _, keyBytes := buildRegistrationResponseWithKey(t, priv)
	credID := []byte{1, 2, 3, 4}
	stored := &WebAuthnCredential{CredentialID: credID, PublicKeyCOSE: keyBytes, Counter: 5}

	challenge := EncodeBase64URL([]byte("authentication-challenge"))
	cred := buildAuthenticationResponse(t, priv, credID, challenge, "https://example.com", "example.com", 6, true)

	info, err := rp.VerifyAuthentication(cred, AuthenticationVerifyInput{ExpectedChallenge: challenge, StoredCredential: stored})
	require.NoError(t, err)
	assert.Equal(t, uint32(6), info.NewCounter)
}

func TestVerifyAuthenticationZeroZeroCounterExempt(t *testing.T) {
	rp := testRP(t)
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	_, _, keyBytes := buildRegistrationResponseWithKey(t, priv)
	credID := []byte{1, 2, 3, 4}
	stored := &WebAuthnCredential{CredentialID: credID, PublicKeyCOSE: keyBytes, Counter: 0}

	challenge := EncodeBase64URL([]byte("authentication-challenge"))
	cred := buildAuthenticationResponse(t, priv, credID, challenge, "https://example.com", "example.com", 0, true)

	info, err := rp.VerifyAuthentication(cred, AuthenticationVerifyInput{ExpectedChallenge: challenge, StoredCredential: stored})
	require.NoError(t, err)
	assert.Equal(t, uint32(0), info.NewCounter)
}

func TestVerifyAuthenticationCredentialIDMismatch(t *testing.T) {
	rp := testRP(t)
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	_, _, keyBytes := buildRegistrationResponseWithKey(t, priv)
	stored := &WebAuthnCredential{CredentialID: []byte{9, 9, 9, 9}, PublicKeyCOSE: keyBytes, Counter: 5}

	challenge := EncodeBase64URL([]byte("authentication-challenge"))
	cred := buildAuthenticationResponse(t, priv, []byte{1, 2, 3, 4}, challenge, "https://example.com", "example.com", 6, true)

	_, err = rp.VerifyAuthentication(cred, AuthenticationVerifyInput{ExpectedChallenge: challenge, StoredCredential: stored})
	require.Error(t, err)
	assert.Equal(t, CodeCredentialIDMismatch, CodeOf(err))
}
