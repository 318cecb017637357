// Package repository selects the subscriber store backend from the database
// URI scheme.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/ignite/waitlist-api/internal/config"
	"github.com/ignite/waitlist-api/internal/repository/memory"
	"github.com/ignite/waitlist-api/internal/repository/mongodb"
	"github.com/ignite/waitlist-api/internal/repository/postgres"
	"github.com/ignite/waitlist-api/internal/repository/redis"
	"github.com/ignite/waitlist-api/internal/service/subscription"
)

// ErrNoDatabase is returned when no database URI is configured.
var ErrNoDatabase = errors.New("database URI not configured")

// Store is a subscription.Store with a connection lifecycle.
type Store interface {
	subscription.Store
	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error
	// EnsureSchema creates whatever enforces email uniqueness (index,
	// table constraint). Idempotent.
	EnsureSchema(ctx context.Context) error
	Close() error
}

// Backend returns the backend name for a database URI: "mongodb",
// "postgres", "redis" or "memory".
func Backend(uri string) (string, error) {
	if strings.TrimSpace(uri) == "" {
		return "", ErrNoDatabase
	}
	u, err := url.Parse(uri)
	if err != nil {
		return "", fmt.Errorf("parse database URI: %w", err)
	}
	switch strings.ToLower(u.Scheme) {
	case "mongodb", "mongodb+srv":
		return "mongodb", nil
	case "postgres", "postgresql":
		return "postgres", nil
	case "redis", "rediss":
		return "redis", nil
	case "memory":
		return "memory", nil
	default:
		return "", fmt.Errorf("unsupported database scheme %q", u.Scheme)
	}
}

// Open builds the store for cfg. It does not require the backend to be
// reachable; callers Ping and EnsureSchema afterwards.
func Open(ctx context.Context, cfg config.DatabaseConfig) (Store, error) {
	backend, err := Backend(cfg.URI)
	if err != nil {
		return nil, err
	}

	switch backend {
	case "mongodb":
		return mongodb.Open(ctx, cfg.URI, cfg.Name, cfg.Timeout())
	case "postgres":
		db, err := sql.Open("postgres", cfg.URI)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		return postgres.NewSubscriberRepo(db, cfg.Timeout()), nil
	case "redis":
		return redis.Open(cfg.URI, cfg.Name, cfg.Timeout())
	default:
		return memory.NewSubscriberRepo(), nil
	}
}
