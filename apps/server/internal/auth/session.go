package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	defaultSessionTTL = 30 * 24 * time.Hour
	tokenBytes        = 32
)

// Manager keeps accounts and sessions in memory for single-binary deployment.
type Manager struct {
	mu sync.Mutex

	nextAccountID uint64
	sessionTTL    time.Duration
	sessions      map[string]sessionRecord
	accountsByID  map[uint64]accountRecord
	accountsByKey map[string]uint64
}

type sessionRecord struct {
	AccountID uint64
	ExpiresAt time.Time
}

type accountRecord struct {
	Account
	PasswordHash  []byte
	LastLoginTime time.Time
}

func NewManager(sessionTTL time.Duration) *Manager {
	if sessionTTL <= 0 {
		sessionTTL = defaultSessionTTL
	}
	return &Manager{
		nextAccountID: 100000,
		sessionTTL:    sessionTTL,
		sessions:      make(map[string]sessionRecord),
		accountsByID:  make(map[uint64]accountRecord),
		accountsByKey: make(map[string]uint64),
	}
}

func (m *Manager) Close() error { return nil }

func (m *Manager) issueSessionLocked(accountID uint64, now time.Time) string {
	token := mustToken()
	m.sessions[token] = sessionRecord{AccountID: accountID, ExpiresAt: now.Add(m.sessionTTL)}
	return token
}

func (m *Manager) Register(_ context.Context, username, password string) (Account, string, error) {
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

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.accountsByKey[normalized]; exists {
		return Account{}, "", ErrUsernameTaken
	}
	m.nextAccountID++
	now := time.Now()
	rec := accountRecord{
		Account:       Account{ID: m.nextAccountID, Username: normalized},
		PasswordHash:  hash,
		LastLoginTime: now,
	}
	m.accountsByID[rec.ID] = rec
	m.accountsByKey[normalized] = rec.ID
	return rec.Account, m.issueSessionLocked(rec.ID, now), nil
}

func (m *Manager) Login(_ context.Context, username, password string) (Account, string, error) {
	normalized := normalizeUsername(username)
	if normalized == "" || password == "" {
		return Account{}, "", ErrInvalidCredentials
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	id, exists := m.accountsByKey[normalized]
	if !exists {
		return Account{}, "", ErrInvalidCredentials
	}
	rec := m.accountsByID[id]
	if rec.Guest || len(rec.PasswordHash) == 0 {
		return Account{}, "", ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword(rec.PasswordHash, []byte(password)) != nil {
		return Account{}, "", ErrInvalidCredentials
	}
	now := time.Now()
	rec.LastLoginTime = now
	m.accountsByID[id] = rec
	return rec.Account, m.issueSessionLocked(id, now), nil
}

func (m *Manager) Guest(_ context.Context, nickname string) (Account, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextAccountID++
	rec := accountRecord{Account: Account{
		ID:       m.nextAccountID,
		Username: guestName(nickname, uuid.NewString()[:8]),
		Guest:    true,
	}}
	m.accountsByID[rec.ID] = rec
	return rec.Account, m.issueSessionLocked(rec.ID, time.Now()), nil
}

// Resolve validates a token and slides its expiry.
func (m *Manager) Resolve(_ context.Context, token string) (Account, bool) {
	if token == "" {
		return Account{}, false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	rec, ok := m.sessions[token]
	if !ok {
		return Account{}, false
	}
	if !now.Before(rec.ExpiresAt) {
		delete(m.sessions, token)
		return Account{}, false
	}
	rec.ExpiresAt = now.Add(m.sessionTTL)
	m.sessions[token] = rec
	return m.accountsByID[rec.AccountID].Account, true
}

func (m *Manager) Logout(_ context.Context, token string) {
	if token == "" {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, token)
}

func mustToken() string {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	return base64.RawURLEncoding.EncodeToString(buf)
}
