// Package storage defines where session state lives between requests.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hyperjump/urlmatch/internal/config"
	"github.com/hyperjump/urlmatch/internal/models"
)

// ErrNotFound is returned by Get when no session has the given ID.
var ErrNotFound = errors.New("session not found")

// Store persists sessions. Implementations return copies, so callers may
// mutate what Get returns and must call Save to keep the change.
type Store interface {
	Get(ctx context.Context, id string) (*models.Session, error)
	Save(ctx context.Context, s *models.Session) error
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int64, error)
	// DeleteOlderThan removes sessions last saved before cutoff and reports how many went.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
	Close() error
}

// NewStore opens the store selected by cfg.Store.
func NewStore(cfg *config.SessionConfig) (Store, error) {
	switch cfg.Store {
	case config.StoreMemory, "":
		return NewMemoryStore(), nil
	case config.StoreSQLite:
		return NewSQLiteStore(cfg.DatabasePath)
	default:
		return nil, fmt.Errorf("unknown session store %q", cfg.Store)
	}
}
