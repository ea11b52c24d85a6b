package auth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestGuestAccountsAreDistinct(t *testing.T) {
	ctx := context.Background()
	m := NewManager(0)
	a, tokenA, err := m.Guest(ctx, "Ana")
	if err != nil {
		t.Fatalf("Guest err: %v", err)
	}
	b, _, err := m.Guest(ctx, "")
	if err != nil {
		t.Fatalf("Guest err: %v", err)
	}
	if a.ID == b.ID || !a.Guest {
		t.Fatalf("expected two distinct guest accounts, got %+v %+v", a, b)
	}
	if !strings.HasPrefix(a.Username, "ana_") || !strings.HasPrefix(b.Username, "guest_") {
		t.Fatalf("unexpected guest names %q %q", a.Username, b.Username)
	}
	if got, ok := m.Resolve(ctx, tokenA); !ok || got.ID != a.ID {
		t.Fatalf("expected guest token to resolve, got %+v ok=%v", got, ok)
	}
	if _, _, err := m.Login(ctx, a.Username, "anything"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("guests cannot log in with a password, got %v", err)
	}
}

func TestSessionExpires(t *testing.T) {
	ctx := context.Background()
	m := NewManager(time.Millisecond)
	_, token, err := m.Guest(ctx, "bob")
	if err != nil {
		t.Fatalf("Guest err: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	if _, ok := m.Resolve(ctx, token); ok {
		t.Fatalf("expected expired session to be refused")
	}
}
