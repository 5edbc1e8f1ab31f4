// Package memory implements the reference in-memory storage adapter
// required by the core's storage contract: separate UserStore,
// CredentialStore, ChallengeStore, and SessionStore implementations
// backed by mutex-guarded maps, enforcing expiry-on-read semantics for
// challenges and sessions.
package memory

import (
	"context"
	"sync"
	"time"

	webauthn "github.com/aoneahsan/webauthn-server-buildkit"
)

// Store bundles one in-memory instance of each storage sub-capability.
// Each field independently satisfies the corresponding interface in the
// webauthn package, so callers may also wire them in individually.
type Store struct {
	Users       *Users
	Credentials *Credentials
	Challenges  *Challenges
	Sessions    *Sessions
}

// New returns an empty Store with all four sub-capabilities initialised.
func New() *Store {
	return &Store{
		Users:       NewUsers(),
		Credentials: NewCredentials(),
		Challenges:  NewChallenges(),
		Sessions:    NewSessions(),
	}
}

func credKey(credentialID []byte) string {
	return webauthn.EncodeBase64URL(credentialID)
}

// Users implements webauthn.UserStore.
type Users struct {
	mu          sync.Mutex
	byID        map[string]*webauthn.User
	idByUsername map[string]string
}

func NewUsers() *Users {
	return &Users{byID: make(map[string]*webauthn.User), idByUsername: make(map[string]string)}
}

func (s *Users) FindByID(_ context.Context, userID string) (*webauthn.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[userID]
	if !ok {
		return nil, nil
	}
	copied := *u
	return &copied, nil
}

func (s *Users) FindByUsername(_ context.Context, username string) (*webauthn.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.idByUsername[username]
	if !ok {
		return nil, nil
	}
	copied := *s.byID[id]
	return &copied, nil
}

func (s *Users) Create(_ context.Context, user *webauthn.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *user
	s.byID[user.ID] = &copied
	s.idByUsername[user.Username] = user.ID
	return nil
}

func (s *Users) Update(ctx context.Context, user *webauthn.User) error {
	return s.Create(ctx, user)
}

func (s *Users) Delete(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.byID[userID]; ok {
		delete(s.idByUsername, u.Username)
	}
	delete(s.byID, userID)
	return nil
}

// Credentials implements webauthn.CredentialStore.
type Credentials struct {
	mu   sync.Mutex
	byID map[string]*webauthn.WebAuthnCredential
}

func NewCredentials() *Credentials {
	return &Credentials{byID: make(map[string]*webauthn.WebAuthnCredential)}
}

func (s *Credentials) FindByID(_ context.Context, credentialID []byte) (*webauthn.WebAuthnCredential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.byID[credKey(credentialID)]
	if !ok {
		return nil, nil
	}
	copied := *c
	return &copied, nil
}

func (s *Credentials) FindByUserID(_ context.Context, userID string) ([]*webauthn.WebAuthnCredential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*webauthn.WebAuthnCredential
	for _, c := range s.byID {
		if c.UserID == userID {
			copied := *c
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (s *Credentials) FindByWebAuthnUserID(_ context.Context, webAuthnUserID []byte) (*webauthn.WebAuthnCredential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.byID {
		if string(c.WebAuthnUserID) == string(webAuthnUserID) {
			copied := *c
			return &copied, nil
		}
	}
	return nil, nil
}

func (s *Credentials) Create(_ context.Context, cred *webauthn.WebAuthnCredential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *cred
	s.byID[credKey(cred.CredentialID)] = &copied
	return nil
}

func (s *Credentials) UpdateCounter(_ context.Context, credentialID []byte, newCounter uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.byID[credKey(credentialID)]
	if !ok {
		return nil
	}
	c.Counter = newCounter
	return nil
}

func (s *Credentials) UpdateLastUsed(_ context.Context, credentialID []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.byID[credKey(credentialID)]
	if !ok {
		return nil
	}
	now := time.Now().UTC()
	c.LastUsedAt = &now
	return nil
}

func (s *Credentials) Delete(_ context.Context, credentialID []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byID, credKey(credentialID))
	return nil
}

func (s *Credentials) DeleteByUserID(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, c := range s.byID {
		if c.UserID == userID {
			delete(s.byID, k)
		}
	}
	return nil
}

// Challenges implements webauthn.ChallengeStore.
type Challenges struct {
	mu   sync.Mutex
	byID map[string]*webauthn.ChallengeData
}

func NewChallenges() *Challenges {
	return &Challenges{byID: make(map[string]*webauthn.ChallengeData)}
}

func (s *Challenges) Create(_ context.Context, data *webauthn.ChallengeData) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *data
	s.byID[data.Challenge] = &copied
	return nil
}

func (s *Challenges) Find(_ context.Context, challenge string) (*webauthn.ChallengeData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.byID[challenge]
	if !ok {
		return nil, nil
	}
	if time.Now().UTC().After(c.ExpiresAt) {
		delete(s.byID, challenge)
		return nil, nil
	}
	copied := *c
	return &copied, nil
}

func (s *Challenges) Delete(_ context.Context, challenge string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byID, challenge)
	return nil
}

func (s *Challenges) DeleteExpired(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	for k, c := range s.byID {
		if now.After(c.ExpiresAt) {
			delete(s.byID, k)
		}
	}
	return nil
}

// Sessions implements webauthn.SessionStore.
type Sessions struct {
	mu   sync.Mutex
	byID map[string]*webauthn.Session
}

func NewSessions() *Sessions {
	return &Sessions{byID: make(map[string]*webauthn.Session)}
}

func (s *Sessions) Create(_ context.Context, sessionID string, session *webauthn.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *session
	s.byID[sessionID] = &copied
	return nil
}

func (s *Sessions) Find(_ context.Context, sessionID string) (*webauthn.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.byID[sessionID]
	if !ok {
		return nil, nil
	}
	if time.Now().UTC().After(sess.ExpiresAt) {
		delete(s.byID, sessionID)
		return nil, nil
	}
	copied := *sess
	return &copied, nil
}

func (s *Sessions) Update(_ context.Context, sessionID string, session *webauthn.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *session
	s.byID[sessionID] = &copied
	return nil
}

func (s *Sessions) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byID, sessionID)
	return nil
}

func (s *Sessions) DeleteExpired(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	for k, sess := range s.byID {
		if now.After(sess.ExpiresAt) {
			delete(s.byID, k)
		}
	}
	return nil
}

func (s *Sessions) DeleteByUserID(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, sess := range s.byID {
		if sess.UserID == userID {
			delete(s.byID, k)
		}
	}
	return nil
}
