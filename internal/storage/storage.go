// Package storage defines the alarm store port and its backend selection.
package storage

import (
	"context"
	"fmt"
	"net/url"

	"github.com/Raimguhinov/alarm-go/internal/alarm"
	"github.com/Raimguhinov/alarm-go/internal/config"
	"github.com/Raimguhinov/alarm-go/internal/storage/memory"
	pgstore "github.com/Raimguhinov/alarm-go/internal/storage/postgres"
	"github.com/Raimguhinov/alarm-go/internal/storage/sqlite"
	"github.com/Raimguhinov/alarm-go/pkg/logger"
	"github.com/Raimguhinov/alarm-go/pkg/postgres"
	"github.com/google/uuid"
)

// Store is the key-value persistence port for alarm records. The scheduler
// reads at arm-time and fire-time; writes come from the API layer through
// Upsert and Remove. Get returns alarm.ErrNotFound for unknown ids.
type Store interface {
	Get(ctx context.Context, id uuid.UUID) (*alarm.Alarm, error)
	Upsert(ctx context.Context, a *alarm.Alarm) error
	Remove(ctx context.Context, id uuid.UUID) error
	GetAll(ctx context.Context) ([]alarm.Alarm, error)
	Close()
}

// NewFromURL picks the store backend by cfg.Storage.URL scheme.
func NewFromURL(ctx context.Context, cfg *config.Config, l *logger.Logger) (Store, error) {
	u, err := url.Parse(cfg.Storage.URL)
	if err != nil {
		return nil, fmt.Errorf("storage - NewFromURL - url.Parse: %w", err)
	}

	switch u.Scheme {
	case "postgres", "postgresql":
		pg, err := postgres.New(ctx, l, cfg.Storage.URL, postgres.MaxPoolSize(cfg.Storage.PoolMax))
		if err != nil {
			return nil, fmt.Errorf("storage - NewFromURL - postgres.New: %w", err)
		}
		return pgstore.New(ctx, pg, l)
	case "sqlite", "file":
		path := u.Opaque
		if path == "" {
			path = u.Path
		}
		return sqlite.New(ctx, path, l)
	case "memory":
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("storage - NewFromURL - unsupported scheme %q", u.Scheme)
	}
}
