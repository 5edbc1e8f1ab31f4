package webauthn

import (
	"context"
	"time"
)

// Ceremony orchestrates registration and authentication ceremonies and
// session lifecycle on top of a RelyingParty configuration and a set of
// storage adapters, per §4.J.
type Ceremony struct {
	RP          *RelyingParty
	Challenges  ChallengeStore
	Credentials CredentialStore
	Sessions    SessionStore
}

// NewCeremony builds a Ceremony. Challenges, Credentials, and Sessions
// may be nil; operations that need a given store simply skip the
// corresponding side effect when it is absent (options generation works
// without a ChallengeStore, for instance), except where the store is
// required to complete the operation (e.g. FinishAuthentication requires
// Credentials to look up the asserted credential when the caller supplies
// no stored credential).
func NewCeremony(rp *RelyingParty, challenges ChallengeStore, credentials CredentialStore, sessions SessionStore) *Ceremony {
	return &Ceremony{RP: rp, Challenges: challenges, Credentials: credentials, Sessions: sessions}
}

// BeginRegistration builds registration options for user and, if a
// ChallengeStore is configured, persists the issued challenge.
func (c *Ceremony) BeginRegistration(ctx context.Context, user User, opts *RegistrationOptions) (*PublicKeyCredentialCreationOptions, error) {
	rc, err := c.RP.BeginRegistration(user, opts)
	if err != nil {
		return nil, err
	}

	if c.Challenges != nil {
		now := time.Now().UTC()
		data := &ChallengeData{
			Challenge: rc.Challenge,
			UserID:    user.ID,
			Operation: OperationRegistration,
			CreatedAt: now,
			ExpiresAt: now.Add(c.RP.operationTimeout()),
		}
		if err := c.Challenges.Create(ctx, data); err != nil {
			return nil, newError(CodeStorageError, "persisting registration challenge: %v", err)
		}
	}

	return rc.Options, nil
}

// FinishRegistration verifies a registration response against the
// persisted challenge and deletes it on success. Credential persistence
// is left to the caller, who receives the VerifiedRegistrationInfo.
func (c *Ceremony) FinishRegistration(ctx context.Context, cred *RegistrationCredential, in RegistrationVerifyInput) (*VerifiedRegistrationInfo, error) {
	if in.ExpectedChallenge == "" && c.Challenges != nil {
		return nil, newError(CodeChallengeMismatch, "no expected challenge was provided")
	}

	if c.Challenges != nil {
		stored, err := c.Challenges.Find(ctx, in.ExpectedChallenge)
		if err != nil {
			return nil, newError(CodeStorageError, "looking up challenge: %v", err)
		}
		if stored == nil {
			return nil, newError(CodeChallengeMismatch, "challenge not found or expired")
		}
	}

	info, err := c.RP.VerifyRegistration(cred, in)
	if err != nil {
		return nil, err
	}

	if c.Challenges != nil {
		if err := c.Challenges.Delete(ctx, in.ExpectedChallenge); err != nil {
			return nil, newError(CodeStorageError, "deleting consumed challenge: %v", err)
		}
	}

	return info, nil
}

// BeginAuthentication builds authentication options and, if a
// ChallengeStore is configured, persists the issued challenge.
func (c *Ceremony) BeginAuthentication(ctx context.Context, userID string, opts *AuthenticationOptions) (*PublicKeyCredentialRequestOptions, error) {
	ac, err := c.RP.BeginAuthentication(opts)
	if err != nil {
		return nil, err
	}

	if c.Challenges != nil {
		now := time.Now().UTC()
		data := &ChallengeData{
			Challenge: ac.Challenge,
			UserID:    userID,
			Operation: OperationAuthentication,
			CreatedAt: now,
			ExpiresAt: now.Add(c.RP.operationTimeout()),
		}
		if err := c.Challenges.Create(ctx, data); err != nil {
			return nil, newError(CodeStorageError, "persisting authentication challenge: %v", err)
		}
	}

	return ac.Options, nil
}

// FinishAuthentication looks up the asserted credential (unless the
// caller already supplied one in in.StoredCredential), verifies the
// response, and on success advances the stored counter and last-used
// timestamp and deletes the consumed challenge.
func (c *Ceremony) FinishAuthentication(ctx context.Context, cred *AuthenticationCredential, in AuthenticationVerifyInput) (*VerifiedAuthenticationInfo, error) {
	if in.StoredCredential == nil {
		if c.Credentials == nil {
			return nil, newError(CodeCredentialIDMismatch, "no CredentialStore configured and no stored credential provided")
		}
		rawID, err := DecodeBase64URL(cred.ID)
		if err != nil {
			return nil, newError(CodeCredentialIDMismatch, "credential id is not valid base64url: %v", err)
		}
		stored, err := c.Credentials.FindByID(ctx, rawID)
		if err != nil {
			return nil, newError(CodeStorageError, "looking up credential: %v", err)
		}
		if stored == nil {
			return nil, newError(CodeCredentialIDMismatch, "no credential registered with this id")
		}
		in.StoredCredential = stored
	}

	if c.Challenges != nil {
		stored, err := c.Challenges.Find(ctx, in.ExpectedChallenge)
		if err != nil {
			return nil, newError(CodeStorageError, "looking up challenge: %v", err)
		}
		if stored == nil {
			return nil, newError(CodeChallengeMismatch, "challenge not found or expired")
		}
	}

	info, err := c.RP.VerifyAuthentication(cred, in)
	if err != nil {
		return nil, err
	}

	if c.Credentials != nil {
		if err := c.Credentials.UpdateCounter(ctx, in.StoredCredential.CredentialID, info.NewCounter); err != nil {
			return nil, newError(CodeStorageError, "updating credential counter: %v", err)
		}
		if err := c.Credentials.UpdateLastUsed(ctx, in.StoredCredential.CredentialID); err != nil {
			return nil, newError(CodeStorageError, "updating credential last-used timestamp: %v", err)
		}
	}

	if c.Challenges != nil {
		if err := c.Challenges.Delete(ctx, in.ExpectedChallenge); err != nil {
			return nil, newError(CodeStorageError, "deleting consumed challenge: %v", err)
		}
	}

	return info, nil
}

// CreateSession builds a Session expiring after the RelyingParty's
// configured session duration, persists it (if a SessionStore is
// configured), and returns a sealed token carrying the same data.
func (c *Ceremony) CreateSession(ctx context.Context, userID, credentialID string, userVerified bool, extra map[string]interface{}) (string, error) {
	sessionID, err := generateSessionID()
	if err != nil {
		return "", err
	}

	session := Session{
		SessionID:    sessionID,
		UserID:       userID,
		CredentialID: credentialID,
		UserVerified: userVerified,
		ExpiresAt:    time.Now().UTC().Add(c.RP.sessionDuration()),
		Extra:        extra,
	}

	if c.Sessions != nil {
		if err := c.Sessions.Create(ctx, sessionID, &session); err != nil {
			return "", newError(CodeStorageError, "persisting session: %v", err)
		}
	}

	return sealToken(sessionID, session, c.RP.TokenSecret)
}

// ValidateSession opens token, checks expiry, and - if a SessionStore is
// configured - prefers the stored session over the token-embedded copy,
// since the store wins in case of a stale token.
func (c *Ceremony) ValidateSession(ctx context.Context, token string) (*Session, error) {
	sessionID, session, _, err := openToken(token, c.RP.TokenSecret)
	if err != nil {
		return nil, err
	}

	if session.ExpiresAt.Before(time.Now().UTC()) {
		return nil, newError(CodeSessionExpired, "session expired at %s", session.ExpiresAt)
	}

	if c.Sessions != nil {
		stored, err := c.Sessions.Find(ctx, sessionID)
		if err != nil {
			return nil, newError(CodeStorageError, "looking up session: %v", err)
		}
		if stored == nil {
			return nil, newError(CodeSessionNotFound, "no session found for id")
		}
		return stored, nil
	}

	return &session, nil
}

// RefreshSession validates token, extends its expiry by the configured
// session duration, persists the change, and returns a freshly sealed
// token.
func (c *Ceremony) RefreshSession(ctx context.Context, token string) (string, error) {
	session, err := c.ValidateSession(ctx, token)
	if err != nil {
		return "", err
	}

	session.ExpiresAt = time.Now().UTC().Add(c.RP.sessionDuration())

	if c.Sessions != nil {
		if err := c.Sessions.Update(ctx, session.SessionID, session); err != nil {
			return "", newError(CodeStorageError, "updating session: %v", err)
		}
	}

	return sealToken(session.SessionID, *session, c.RP.TokenSecret)
}

// RevokeSession deletes the session identified by token from the
// SessionStore. Per §7 "Swallowed", an invalid token is a no-op: errors
// opening it are never raised, only optionally logged.
func (c *Ceremony) RevokeSession(ctx context.Context, token string) {
	sessionID, _, _, err := openToken(token, c.RP.TokenSecret)
	if err != nil {
		c.RP.logf("webauthn: revoke_session: ignoring invalid token: %v", err)
		return
	}

	if c.Sessions == nil {
		return
	}
	if err := c.Sessions.Delete(ctx, sessionID); err != nil {
		c.RP.logf("webauthn: revoke_session: deleting session %s: %v", sessionID, err)
	}
}

// Cleanup deletes expired challenges and expired sessions from their
// respective stores.
func (c *Ceremony) Cleanup(ctx context.Context) error {
	if c.Challenges != nil {
		if err := c.Challenges.DeleteExpired(ctx); err != nil {
			return newError(CodeStorageError, "cleaning up expired challenges: %v", err)
		}
	}
	if c.Sessions != nil {
		if err := c.Sessions.DeleteExpired(ctx); err != nil {
			return newError(CodeStorageError, "cleaning up expired sessions: %v", err)
		}
	}
	return nil
}
