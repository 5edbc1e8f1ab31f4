package webauthn

import "context"

// UserStore is offered for caller convenience; the core itself never
// calls it directly (§6.1).
type UserStore interface {
	FindByID(ctx context.Context, userID string) (*User, error)
	FindByUsername(ctx context.Context, username string) (*User, error)
	Create(ctx context.Context, user *User) error
	Update(ctx context.Context, user *User) error
	Delete(ctx context.Context, userID string) error
}

// CredentialStore is the capability surface the core consumes to look up
// and update persisted credentials during authentication.
type CredentialStore interface {
	FindByID(ctx context.Context, credentialID []byte) (*WebAuthnCredential, error)
	FindByUserID(ctx context.Context, userID string) ([]*WebAuthnCredential, error)
	FindByWebAuthnUserID(ctx context.Context, webAuthnUserID []byte) (*WebAuthnCredential, error)
	Create(ctx context.Context, cred *WebAuthnCredential) error
	UpdateCounter(ctx context.Context, credentialID []byte, newCounter uint32) error
	UpdateLastUsed(ctx context.Context, credentialID []byte) error
	Delete(ctx context.Context, credentialID []byte) error
	DeleteByUserID(ctx context.Context, userID string) error
}

// ChallengeStore is the capability surface the core consumes to track
// outstanding ceremony challenges, enforcing the at-most-once-use and
// expiry-on-read invariants of §3/§5.
type ChallengeStore interface {
	Create(ctx context.Context, data *ChallengeData) error
	Find(ctx context.Context, challenge string) (*ChallengeData, error)
	Delete(ctx context.Context, challenge string) error
	DeleteExpired(ctx context.Context) error
}

// SessionStore is the capability surface the core consumes to persist
// sessions independent of their sealed-token representation.
type SessionStore interface {
	Create(ctx context.Context, sessionID string, session *Session) error
	Find(ctx context.Context, sessionID string) (*Session, error)
	Update(ctx context.Context, sessionID string, session *Session) error
	Delete(ctx context.Context, sessionID string) error
	DeleteExpired(ctx context.Context) error
	DeleteByUserID(ctx context.Context, userID string) error
}
