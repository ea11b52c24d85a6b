package auth

import (
	"context"
	"time"

	"settlers-lite/apps/server/internal/sqldb"
)

// NewService returns a database-backed service, or the in-memory Manager when db is nil.
func NewService(ctx context.Context, db *sqldb.DB, sessionTTL time.Duration) (Service, string, error) {
	if db == nil {
		return NewManager(sessionTTL), "memory", nil
	}
	store, err := NewStore(ctx, db, sessionTTL)
	if err != nil {
		return nil, "", err
	}
	return store, string(db.Dialect), nil
}
