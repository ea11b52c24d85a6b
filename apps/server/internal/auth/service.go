package auth

import (
	"context"
	"errors"
	"regexp"
	"strings"
)

var (
	ErrInvalidUsername    = errors.New("invalid username")
	ErrInvalidPassword    = errors.New("invalid password")
	ErrUsernameTaken      = errors.New("username already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Account is the identity a connection plays under. Its ID doubles as the
// player ID inside a match.
type Account struct {
	ID       uint64 `json:"user_id"`
	Username string `json:"username"`
	Guest    bool   `json:"guest"`
}

// Service is the account/session contract consumed by the gateway and HTTP handlers.
type Service interface {
	Register(ctx context.Context, username, password string) (Account, string, error)
	Login(ctx context.Context, username, password string) (Account, string, error)
	// Guest creates a throwaway account so players can join without registering.
	Guest(ctx context.Context, nickname string) (Account, string, error)
	Resolve(ctx context.Context, token string) (Account, bool)
	Logout(ctx context.Context, token string)
	Close() error
}

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_][a-zA-Z0-9_.-]{2,31}$`)

func normalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

func validateUsername(username string) error {
	if !usernamePattern.MatchString(strings.TrimSpace(username)) {
		return ErrInvalidUsername
	}
	return nil
}

// bcrypt ignores everything past 72 bytes.
func validatePassword(password string) error {
	if len(password) < 6 || len(password) > 72 {
		return ErrInvalidPassword
	}
	return nil
}

func guestName(nickname, suffix string) string {
	nickname = strings.TrimSpace(nickname)
	if nickname == "" || validateUsername(nickname) != nil {
		nickname = "guest"
	}
	if len(nickname) > 20 {
		nickname = nickname[:20]
	}
	return normalizeUsername(nickname) + "_" + suffix
}
