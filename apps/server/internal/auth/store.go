package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"settlers-lite/apps/server/internal/sqldb"
)

const queryTimeout = 5 * time.Second

// Store persists accounts and sessions in SQLite or Postgres. The database
// handle may be shared with other stores.
type Store struct {
	db         *sqldb.DB
	sessionTTL time.Duration
}

func NewStore(ctx context.Context, db *sqldb.DB, sessionTTL time.Duration) (*Store, error) {
	if sessionTTL <= 0 {
		sessionTTL = defaultSessionTTL
	}
	if err := db.Migrate(ctx, authSchema(db.Dialect)); err != nil {
		return nil, err
	}
	return &Store{db: db, sessionTTL: sessionTTL}, nil
}

// Close is a no-op; the handle belongs to whoever opened it.
func (s *Store) Close() error { return nil }

func (s *Store) Register(ctx context.Context, username, password string) (Account, string, error) {
	if err := validateUsername(username); err != nil {
		return Account{}, "", err
	}
	if err := validatePassword(password); err != nil {
		return Account{}, "", err
	}
	normalized := normalizeUsername(username)
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return Account{}, "", err
	}
	acct, token, err := s.createAccount(ctx, normalized, string(hash), false)
	if sqldb.IsUniqueViolation(err) {
		return Account{}, "", ErrUsernameTaken
	}
	return acct, token, err
}

func (s *Store) Guest(ctx context.Context, nickname string) (Account, string, error) {
	for i := 0; i < 5; i++ {
		acct, token, err := s.createAccount(ctx, guestName(nickname, uuid.NewString()[:8]), "", true)
		if sqldb.IsUniqueViolation(err) {
			continue
		}
		return acct, token, err
	}
	return Account{}, "", fmt.Errorf("failed to allocate a guest name")
}

func (s *Store) createAccount(ctx context.Context, username, passwordHash string, guest bool) (Account, string, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Account{}, "", err
	}
	defer tx.Rollback()

	nowMs := time.Now().UTC().UnixMilli()
	acct := Account{Username: username, Guest: guest}
	err = tx.QueryRowContext(ctx, s.db.Rebind(`
INSERT INTO accounts (username, password_hash, guest, created_at_ms, last_login_at_ms)
VALUES (?, ?, ?, ?, ?)
RETURNING id
`), username, passwordHash, guest, nowMs, nowMs).Scan(&acct.ID)
	if err != nil {
		return Account{}, "", err
	}
	token, err := s.issueSessionTx(ctx, tx, acct.ID, nowMs)
	if err != nil {
		return Account{}, "", err
	}
	if err := tx.Commit(); err != nil {
		return Account{}, "", err
	}
	return acct, token, nil
}

func (s *Store) Login(ctx context.Context, username, password string) (Account, string, error) {
	normalized := normalizeUsername(username)
	if normalized == "" || password == "" {
		return Account{}, "", ErrInvalidCredentials
	}
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	acct := Account{Username: normalized}
	var hash string
	err := s.db.QueryRowContext(ctx, s.db.Rebind(`
SELECT id, password_hash FROM accounts WHERE username = ? AND guest = ?
`), normalized, false).Scan(&acct.ID, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return Account{}, "", ErrInvalidCredentials
	}
	if err != nil {
		return Account{}, "", err
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return Account{}, "", ErrInvalidCredentials
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Account{}, "", err
	}
	defer tx.Rollback()
	nowMs := time.Now().UTC().UnixMilli()
	if _, err := tx.ExecContext(ctx, s.db.Rebind(`UPDATE accounts SET last_login_at_ms = ? WHERE id = ?`), nowMs, acct.ID); err != nil {
		return Account{}, "", err
	}
	token, err := s.issueSessionTx(ctx, tx, acct.ID, nowMs)
	if err != nil {
		return Account{}, "", err
	}
	if err := tx.Commit(); err != nil {
		return Account{}, "", err
	}
	return acct, token, nil
}

// Resolve validates a token and slides its expiry.
func (s *Store) Resolve(ctx context.Context, token string) (Account, bool) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Account{}, false
	}
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	nowMs := time.Now().UTC().UnixMilli()
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`
UPDATE auth_sessions
SET expires_at_ms = ?, last_seen_at_ms = ?
WHERE token = ? AND revoked_at_ms IS NULL AND expires_at_ms > ?
`), nowMs+s.sessionTTL.Milliseconds(), nowMs, token, nowMs)
	if err != nil {
		return Account{}, false
	}
	if n, err := res.RowsAffected(); err != nil || n == 0 {
		return Account{}, false
	}
	var acct Account
	err = s.db.QueryRowContext(ctx, s.db.Rebind(`
SELECT a.id, a.username, a.guest
FROM auth_sessions AS s
JOIN accounts AS a ON a.id = s.account_id
WHERE s.token = ?
`), token).Scan(&acct.ID, &acct.Username, &acct.Guest)
	if err != nil {
		return Account{}, false
	}
	return acct, true
}

func (s *Store) Logout(ctx context.Context, token string) {
	token = strings.TrimSpace(token)
	if token == "" {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	_, _ = s.db.ExecContext(ctx, s.db.Rebind(`
UPDATE auth_sessions SET revoked_at_ms = ? WHERE token = ? AND revoked_at_ms IS NULL
`), time.Now().UTC().UnixMilli(), token)
}

func (s *Store) issueSessionTx(ctx context.Context, tx *sql.Tx, accountID uint64, nowMs int64) (string, error) {
	expiresAtMs := nowMs + s.sessionTTL.Milliseconds()
	for i := 0; i < 5; i++ {
		token := mustToken()
		_, err := tx.ExecContext(ctx, s.db.Rebind(`
INSERT INTO auth_sessions (token, account_id, issued_at_ms, expires_at_ms, last_seen_at_ms)
VALUES (?, ?, ?, ?, ?)
`), token, accountID, nowMs, expiresAtMs, nowMs)
		if sqldb.IsUniqueViolation(err) {
			continue
		}
		if err != nil {
			return "", err
		}
		return token, nil
	}
	return "", fmt.Errorf("failed to generate unique session token")
}

func authSchema(d sqldb.Dialect) []string {
	id := "INTEGER PRIMARY KEY AUTOINCREMENT"
	boolean := "INTEGER NOT NULL DEFAULT 0"
	if d == sqldb.Postgres {
		id = "BIGSERIAL PRIMARY KEY"
		boolean = "BOOLEAN NOT NULL DEFAULT FALSE"
	}
	return []string{
		`
CREATE TABLE IF NOT EXISTS accounts (
    id ` + id + `,
    username TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL DEFAULT '',
    guest ` + boolean + `,
    created_at_ms BIGINT NOT NULL,
    last_login_at_ms BIGINT
)`,
		`
CREATE TABLE IF NOT EXISTS auth_sessions (
    token TEXT PRIMARY KEY,
    account_id BIGINT NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
    issued_at_ms BIGINT NOT NULL,
    expires_at_ms BIGINT NOT NULL,
    revoked_at_ms BIGINT,
    last_seen_at_ms BIGINT NOT NULL
)`,
		`CREATE INDEX IF NOT EXISTS idx_auth_sessions_account ON auth_sessions(account_id, expires_at_ms)`,
	}
}
