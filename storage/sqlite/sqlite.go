// Package sqlite implements an optional persistent storage adapter for
// the core's storage contract, backed by github.com/mattn/go-sqlite3.
// Grounded on go-passkeys-go-passkeys's example/storage.go: same
// sql.DB-plus-schema-string shape, same read-then-delete pattern for
// single-use challenge rows.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	webauthn "github.com/aoneahsan/webauthn-server-buildkit"

	_ "github.com/mattn/go-sqlite3" // registers the "sqlite3" driver
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id STRING NOT NULL PRIMARY KEY,
	username STRING NOT NULL UNIQUE,
	display_name STRING NOT NULL
);

CREATE TABLE IF NOT EXISTS credentials (
	row_id STRING NOT NULL PRIMARY KEY,
	credential_id BLOB NOT NULL UNIQUE,
	public_key_cose BLOB NOT NULL,
	counter INTEGER NOT NULL,
	transports STRING NOT NULL,
	device_type STRING NOT NULL,
	backed_up INTEGER NOT NULL,
	user_id STRING NOT NULL,
	webauthn_user_id BLOB NOT NULL,
	created_at INTEGER NOT NULL,
	last_used_at INTEGER,
	aaguid BLOB
);

CREATE TABLE IF NOT EXISTS challenges (
	challenge STRING NOT NULL PRIMARY KEY,
	user_id STRING NOT NULL,
	operation STRING NOT NULL,
	created_at INTEGER NOT NULL,
	expires_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS sessions (
	session_id STRING NOT NULL PRIMARY KEY,
	user_id STRING NOT NULL,
	credential_id STRING NOT NULL,
	user_verified INTEGER NOT NULL,
	expires_at INTEGER NOT NULL,
	extra STRING NOT NULL
);
`

// DB wraps a sql.DB connection to a sqlite3 database implementing the
// core's four storage sub-capabilities.
type DB struct {
	sql *sql.DB
}

// Open opens (creating if necessary) a sqlite3 database at path and
// applies the schema.
func Open(ctx context.Context, path string) (*DB, error) {
	db, err := sql.Open("sqlite3", "file:"+path)
	if err != nil {
		return nil, fmt.Errorf("opening db: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &DB{sql: db}, nil
}

// Close releases the underlying database connection.
func (db *DB) Close() error {
	return db.sql.Close()
}

// Users returns a webauthn.UserStore backed by db.
func (db *DB) Users() *Users { return &Users{db: db.sql} }

// Credentials returns a webauthn.CredentialStore backed by db.
func (db *DB) Credentials() *Credentials { return &Credentials{db: db.sql} }

// Challenges returns a webauthn.ChallengeStore backed by db.
func (db *DB) Challenges() *Challenges { return &Challenges{db: db.sql} }

// Sessions returns a webauthn.SessionStore backed by db.
func (db *DB) Sessions() *Sessions { return &Sessions{db: db.sql} }

// Users implements webauthn.UserStore.
type Users struct{ db *sql.DB }

func (u *Users) FindByID(ctx context.Context, userID string) (*webauthn.User, error) {
	return u.scanOne(ctx, `SELECT id, username, display_name FROM users WHERE id = ?`, userID)
}

func (u *Users) FindByUsername(ctx context.Context, username string) (*webauthn.User, error) {
	return u.scanOne(ctx, `SELECT id, username, display_name FROM users WHERE username = ?`, username)
}

func (u *Users) scanOne(ctx context.Context, query string, arg interface{}) (*webauthn.User, error) {
	var user webauthn.User
	err := u.db.QueryRowContext(ctx, query, arg).Scan(&user.ID, &user.Username, &user.DisplayName)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying user: %w", err)
	}
	return &user, nil
}

func (u *Users) Create(ctx context.Context, user *webauthn.User) error {
	_, err := u.db.ExecContext(ctx, `
		INSERT INTO users (id, username, display_name) VALUES (?, ?, ?)`,
		user.ID, user.Username, user.DisplayName)
	return err
}

func (u *Users) Update(ctx context.Context, user *webauthn.User) error {
	_, err := u.db.ExecContext(ctx, `
		UPDATE users SET username = ?, display_name = ? WHERE id = ?`,
		user.Username, user.DisplayName, user.ID)
	return err
}

func (u *Users) Delete(ctx context.Context, userID string) error {
	_, err := u.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, userID)
	return err
}

// Credentials implements webauthn.CredentialStore.
type Credentials struct{ db *sql.DB }

func (c *Credentials) FindByID(ctx context.Context, credentialID []byte) (*webauthn.WebAuthnCredential, error) {
	return c.scanOne(ctx, `
		SELECT credential_id, public_key_cose, counter, transports, device_type,
		       backed_up, user_id, webauthn_user_id, created_at, last_used_at, aaguid
		FROM credentials WHERE credential_id = ?`, credentialID)
}

func (c *Credentials) FindByWebAuthnUserID(ctx context.Context, webAuthnUserID []byte) (*webauthn.WebAuthnCredential, error) {
	return c.scanOne(ctx, `
		SELECT credential_id, public_key_cose, counter, transports, device_type,
		       backed_up, user_id, webauthn_user_id, created_at, last_used_at, aaguid
		FROM credentials WHERE webauthn_user_id = ?`, webAuthnUserID)
}

func (c *Credentials) scanOne(ctx context.Context, query string, arg interface{}) (*webauthn.WebAuthnCredential, error) {
	var (
		cred          webauthn.WebAuthnCredential
		transportsRaw string
		createdAt     int64
		lastUsedAt    sql.NullInt64
		aaguid        []byte
	)
	err := c.db.QueryRowContext(ctx, query, arg).Scan(
		&cred.CredentialID, &cred.PublicKeyCOSE, &cred.Counter, &transportsRaw, &cred.DeviceType,
		&cred.BackedUp, &cred.UserID, &cred.WebAuthnUserID, &createdAt, &lastUsedAt, &aaguid)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying credential: %w", err)
	}
	if err := json.Unmarshal([]byte(transportsRaw), &cred.Transports); err != nil {
		return nil, fmt.Errorf("decoding transports: %w", err)
	}
	cred.CreatedAt = time.UnixMicro(createdAt)
	if lastUsedAt.Valid {
		t := time.UnixMicro(lastUsedAt.Int64)
		cred.LastUsedAt = &t
	}
	if len(aaguid) > 0 {
		cred.AAGUID = aaguid
	}
	return &cred, nil
}

func (c *Credentials) FindByUserID(ctx context.Context, userID string) ([]*webauthn.WebAuthnCredential, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT credential_id, public_key_cose, counter, transports, device_type,
		       backed_up, user_id, webauthn_user_id, created_at, last_used_at, aaguid
		FROM credentials WHERE user_id = ?`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying credentials: %w", err)
	}
	defer rows.Close()

	var out []*webauthn.WebAuthnCredential
	for rows.Next() {
		var (
			cred          webauthn.WebAuthnCredential
			transportsRaw string
			createdAt     int64
			lastUsedAt    sql.NullInt64
			aaguid        []byte
		)
		if err := rows.Scan(
			&cred.CredentialID, &cred.PublicKeyCOSE, &cred.Counter, &transportsRaw, &cred.DeviceType,
			&cred.BackedUp, &cred.UserID, &cred.WebAuthnUserID, &createdAt, &lastUsedAt, &aaguid,
		); err != nil {
			return nil, fmt.Errorf("scanning credential row: %w", err)
		}
		if err := json.Unmarshal([]byte(transportsRaw), &cred.Transports); err != nil {
			return nil, fmt.Errorf("decoding transports: %w", err)
		}
		cred.CreatedAt = time.UnixMicro(createdAt)
		if lastUsedAt.Valid {
			t := time.UnixMicro(lastUsedAt.Int64)
			cred.LastUsedAt = &t
		}
		if len(aaguid) > 0 {
			cred.AAGUID = aaguid
		}
		out = append(out, &cred)
	}
	return out, rows.Err()
}

func (c *Credentials) Create(ctx context.Context, cred *webauthn.WebAuthnCredential) error {
	transportsRaw, err := json.Marshal(cred.Transports)
	if err != nil {
		return fmt.Errorf("encoding transports: %w", err)
	}
	var lastUsedAt interface{}
	if cred.LastUsedAt != nil {
		lastUsedAt = cred.LastUsedAt.UnixMicro()
	}
	_, err = c.db.ExecContext(ctx, `
		INSERT INTO credentials
		(row_id, credential_id, public_key_cose, counter, transports, device_type,
		 backed_up, user_id, webauthn_user_id, created_at, last_used_at, aaguid)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), cred.CredentialID, cred.PublicKeyCOSE, cred.Counter, transportsRaw, cred.DeviceType,
		cred.BackedUp, cred.UserID, cred.WebAuthnUserID, cred.CreatedAt.UnixMicro(), lastUsedAt, cred.AAGUID)
	return err
}

func (c *Credentials) UpdateCounter(ctx context.Context, credentialID []byte, newCounter uint32) error {
	_, err := c.db.ExecContext(ctx, `
		UPDATE credentials SET counter = ? WHERE credential_id = ?`, newCounter, credentialID)
	return err
}

func (c *Credentials) UpdateLastUsed(ctx context.Context, credentialID []byte) error {
	_, err := c.db.ExecContext(ctx, `
		UPDATE credentials SET last_used_at = ? WHERE credential_id = ?`,
		time.Now().UTC().UnixMicro(), credentialID)
	return err
}

func (c *Credentials) Delete(ctx context.Context, credentialID []byte) error {
	_, err := c.db.ExecContext(ctx, `DELETE FROM credentials WHERE credential_id = ?`, credentialID)
	return err
}

func (c *Credentials) DeleteByUserID(ctx context.Context, userID string) error {
	_, err := c.db.ExecContext(ctx, `DELETE FROM credentials WHERE user_id = ?`, userID)
	return err
}

// Challenges implements webauthn.ChallengeStore.
type Challenges struct{ db *sql.DB }

func (ch *Challenges) Create(ctx context.Context, data *webauthn.ChallengeData) error {
	_, err := ch.db.ExecContext(ctx, `
		INSERT INTO challenges (challenge, user_id, operation, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?)`,
		data.Challenge, data.UserID, string(data.Operation), data.CreatedAt.UnixMicro(), data.ExpiresAt.UnixMicro())
	return err
}

func (ch *Challenges) Find(ctx context.Context, challenge string) (*webauthn.ChallengeData, error) {
	var (
		data             webauthn.ChallengeData
		createdAt, expiresAt int64
		operation        string
	)
	err := ch.db.QueryRowContext(ctx, `
		SELECT challenge, user_id, operation, created_at, expires_at
		FROM challenges WHERE challenge = ?`, challenge).
		Scan(&data.Challenge, &data.UserID, &operation, &createdAt, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying challenge: %w", err)
	}
	data.Operation = webauthn.ChallengeOperation(operation)
	data.CreatedAt = time.UnixMicro(createdAt)
	data.ExpiresAt = time.UnixMicro(expiresAt)

	if time.Now().UTC().After(data.ExpiresAt) {
		_, _ = ch.db.ExecContext(ctx, `DELETE FROM challenges WHERE challenge = ?`, challenge)
		return nil, nil
	}
	return &data, nil
}

func (ch *Challenges) Delete(ctx context.Context, challenge string) error {
	_, err := ch.db.ExecContext(ctx, `DELETE FROM challenges WHERE challenge = ?`, challenge)
	return err
}

func (ch *Challenges) DeleteExpired(ctx context.Context) error {
	_, err := ch.db.ExecContext(ctx, `DELETE FROM challenges WHERE expires_at < ?`, time.Now().UTC().UnixMicro())
	return err
}

// Sessions implements webauthn.SessionStore.
type Sessions struct{ db *sql.DB }

func (se *Sessions) Create(ctx context.Context, sessionID string, session *webauthn.Session) error {
	extra, err := json.Marshal(session.Extra)
	if err != nil {
		return fmt.Errorf("encoding session extra: %w", err)
	}
	_, err = se.db.ExecContext(ctx, `
		INSERT INTO sessions (session_id, user_id, credential_id, user_verified, expires_at, extra)
		VALUES (?, ?, ?, ?, ?, ?)`,
		sessionID, session.UserID, session.CredentialID, session.UserVerified, session.ExpiresAt.UnixMicro(), extra)
	return err
}

func (se *Sessions) Find(ctx context.Context, sessionID string) (*webauthn.Session, error) {
	var (
		session    webauthn.Session
		expiresAt  int64
		extra      string
	)
	err := se.db.QueryRowContext(ctx, `
		SELECT session_id, user_id, credential_id, user_verified, expires_at, extra
		FROM sessions WHERE session_id = ?`, sessionID).
		Scan(&session.SessionID, &session.UserID, &session.CredentialID, &session.UserVerified, &expiresAt, &extra)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying session: %w", err)
	}
	session.ExpiresAt = time.UnixMicro(expiresAt)
	if extra != "" {
		if err := json.Unmarshal([]byte(extra), &session.Extra); err != nil {
			return nil, fmt.Errorf("decoding session extra: %w", err)
		}
	}

	if time.Now().UTC().After(session.ExpiresAt) {
		_, _ = se.db.ExecContext(ctx, `DELETE FROM sessions WHERE session_id = ?`, sessionID)
		return nil, nil
	}
	return &session, nil
}

func (se *Sessions) Update(ctx context.Context, sessionID string, session *webauthn.Session) error {
	extra, err := json.Marshal(session.Extra)
	if err != nil {
		return fmt.Errorf("encoding session extra: %w", err)
	}
	_, err = se.db.ExecContext(ctx, `
		UPDATE sessions SET user_id = ?, credential_id = ?, user_verified = ?, expires_at = ?, extra = ?
		WHERE session_id = ?`,
		session.UserID, session.CredentialID, session.UserVerified, session.ExpiresAt.UnixMicro(), extra, sessionID)
	return err
}

func (se *Sessions) Delete(ctx context.Context, sessionID string) error {
	_, err := se.db.ExecContext(ctx, `DELETE FROM sessions WHERE session_id = ?`, sessionID)
	return err
}

func (se *Sessions) DeleteExpired(ctx context.Context) error {
	_, err := se.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at < ?`, time.Now().UTC().UnixMicro())
	return err
}

func (se *Sessions) DeleteByUserID(ctx context.Context, userID string) error {
	_, err := se.db.ExecContext(ctx, `DELETE FROM sessions WHERE user_id = ?`, userID)
	return err
}
