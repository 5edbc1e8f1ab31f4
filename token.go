package webauthn

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/json"
	"time"
)

const (
	tokenSaltLen = 32
	tokenIVLen   = 16
)

// tokenEnvelope is the outer, Base64URL-of-JSON wrapper around a sealed
// session token, per §4.I / §6.2.
type tokenEnvelope struct {
	Salt string `json:"salt"`
	IV   string `json:"iv"`
	Data string `json:"data"`
	Tag  string `json:"tag"`
}

// tokenPayload is the plaintext, UTF-8 JSON payload encrypted inside a
// token.
type tokenPayload struct {
	SessionID string  `json:"session_id"`
	Data      Session `json:"data"`
	CreatedAt string  `json:"created_at"`
}

// deriveTokenKey computes the per-token content-encryption key
// K = HMAC-SHA-256(salt, token_secret), binding each token to its own key
// through its fresh random salt. Every key depends on token_secret, so a
// token sealed under one secret cannot be opened with another.
func deriveTokenKey(salt, tokenSecret []byte) []byte {
	mac := hmac.New(sha256.New, salt)
	mac.Write(tokenSecret)
	return mac.Sum(nil)
}

// sealToken builds an authenticated, encrypted, self-describing token
// carrying sessionID and session, per §4.I seal.
func sealToken(sessionID string, session Session, tokenSecret []byte) (string, error) {
	salt, err := randomBytes(tokenSaltLen)
	if err != nil {
		return "", newError(CodeTokenCreationFailed, "generating salt: %v", err)
	}
	iv, err := randomBytes(tokenIVLen)
	if err != nil {
		return "", newError(CodeTokenCreationFailed, "generating iv: %v", err)
	}

	payload := tokenPayload{
		SessionID: sessionID,
		Data:      session,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}
	plaintext, err := json.Marshal(payload)
	if err != nil {
		return "", newError(CodeTokenCreationFailed, "marshalling token payload: %v", err)
	}

	key := deriveTokenKey(salt, tokenSecret)
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", newError(CodeTokenCreationFailed, "constructing cipher: %v", err)
	}
	gcm, err := cipher.NewGCMWithNonceSize(block, tokenIVLen)
	if err != nil {
		return "", newError(CodeTokenCreationFailed, "constructing AEAD: %v", err)
	}

	sealed := gcm.Seal(nil, iv, plaintext, nil)
	tagLen := gcm.Overhead()
	ciphertext, tag := sealed[:len(sealed)-tagLen], sealed[len(sealed)-tagLen:]

	env := tokenEnvelope{
		Salt: EncodeBase64URL(salt),
		IV:   EncodeBase64URL(iv),
		Data: EncodeBase64URL(ciphertext),
		Tag:  EncodeBase64URL(tag),
	}
	envJSON, err := json.Marshal(env)
	if err != nil {
		return "", newError(CodeTokenCreationFailed, "marshalling envelope: %v", err)
	}

	return EncodeBase64URL(envJSON), nil
}

// openToken decrypts and authenticates a token produced by sealToken. Any
// failure - malformed envelope, wrong secret, tampered bytes - collapses
// to InvalidToken without further detail, per §4.I open.
func openToken(token string, tokenSecret []byte) (string, Session, time.Time, error) {
	zero := time.Time{}

	envJSON, err := DecodeBase64URL(token)
	if err != nil {
		return "", Session{}, zero, newError(CodeInvalidToken, "invalid token encoding")
	}

	var env tokenEnvelope
	if err := json.Unmarshal(envJSON, &env); err != nil {
		return "", Session{}, zero, newError(CodeInvalidToken, "invalid token envelope")
	}

	salt, err := DecodeBase64URL(env.Salt)
	if err != nil {
		return "", Session{}, zero, newError(CodeInvalidToken, "invalid token envelope")
	}
	iv, err := DecodeBase64URL(env.IV)
	if err != nil {
		return "", Session{}, zero, newError(CodeInvalidToken, "invalid token envelope")
	}
	ciphertext, err := DecodeBase64URL(env.Data)
	if err != nil {
		return "", Session{}, zero, newError(CodeInvalidToken, "invalid token envelope")
	}
	tag, err := DecodeBase64URL(env.Tag)
	if err != nil {
		return "", Session{}, zero, newError(CodeInvalidToken, "invalid token envelope")
	}

	key := deriveTokenKey(salt, tokenSecret)
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", Session{}, zero, newError(CodeInvalidToken, "invalid token")
	}
	gcm, err := cipher.NewGCMWithNonceSize(block, tokenIVLen)
	if err != nil {
		return "", Session{}, zero, newError(CodeInvalidToken, "invalid token")
	}

	sealed := append(append([]byte(nil), ciphertext...), tag...)
	plaintext, err := gcm.Open(nil, iv, sealed, nil)
	if err != nil {
		return "", Session{}, zero, newError(CodeInvalidToken, "invalid token")
	}

	var payload tokenPayload
	if err := json.Unmarshal(plaintext, &payload); err != nil {
		return "", Session{}, zero, newError(CodeInvalidToken, "invalid token payload")
	}

	createdAt, err := time.Parse(time.RFC3339, payload.CreatedAt)
	if err != nil {
		return "", Session{}, zero, newError(CodeInvalidToken, "invalid token payload")
	}

	return payload.SessionID, payload.Data, createdAt, nil
}

// generateSessionID returns a fresh 32-byte CSPRNG session identifier,
// Base64URL-encoded.
func generateSessionID() (string, error) {
	b, err := randomBytes(32)
	if err != nil {
		return "", newError(CodeTokenCreationFailed, "generating session id: %v", err)
	}
	return EncodeBase64URL(b), nil
}
