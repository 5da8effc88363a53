// Package session holds the server-side session record store and the
// lifecycle manager that moves a client between pre-session and
// authenticated session states.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/groupcar/groupcar-server/internal/domain"
)

var ErrSessionNotFound = errors.New("session not found")

// Store persists session records keyed by their opaque id. The backing
// store owns eviction at the absolute expiry; Get must never return a
// record past its ExpiresAt.
type Store interface {
	Create(ctx context.Context, rec *domain.Session) error
	Get(ctx context.Context, id string) (*domain.Session, error)
	// Save rewrites an existing record; used for promotion and
	// activity updates. Timestamps tolerate last-writer-wins.
	Save(ctx context.Context, rec *domain.Session) error
	Destroy(ctx context.Context, id string) error
}

func expired(rec *domain.Session, now time.Time) bool {
	return !rec.ExpiresAt.After(now)
}
