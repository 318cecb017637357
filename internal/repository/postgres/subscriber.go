package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/ignite/waitlist-api/internal/domain"
	"github.com/ignite/waitlist-api/internal/service/subscription"
)

// uniqueViolation is the SQLSTATE Postgres reports for a UNIQUE conflict.
const uniqueViolation = "23505"

// SubscriberRepo implements subscription.Store against PostgreSQL. The
// UNIQUE(email) constraint from the migrations is what keeps one row per
// address.
type SubscriberRepo struct {
	db      *sql.DB
	timeout time.Duration
	now     func() time.Time

	schemaMu    sync.Mutex
	schemaReady bool
	migrate     func(ctx context.Context, db *sql.DB) error
}

// NewSubscriberRepo creates a Postgres-backed subscriber repository. Call
// EnsureSchema at startup; every query repeats it until it has succeeded once.
func NewSubscriberRepo(db *sql.DB, timeout time.Duration) *SubscriberRepo {
	return &SubscriberRepo{
		db:      db,
		timeout: timeout,
		now:     func() time.Time { return time.Now().UTC() },
		migrate: func(ctx context.Context, db *sql.DB) error { return Migrate(ctx, db, "up") },
	}
}

// EnsureSchema applies pending migrations once per process.
func (r *SubscriberRepo) EnsureSchema(ctx context.Context) error {
	r.schemaMu.Lock()
	defer r.schemaMu.Unlock()
	if r.schemaReady {
		return nil
	}
	if err := r.migrate(ctx, r.db); err != nil {
		return fmt.Errorf("%w: %w", subscription.ErrUnavailable, err)
	}
	r.schemaReady = true
	return nil
}

func (r *SubscriberRepo) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, r.timeout)
}

func (r *SubscriberRepo) FindByEmail(ctx context.Context, email string) (*domain.Subscriber, error) {
	if err := r.EnsureSchema(ctx); err != nil {
		return nil, err
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	s := &domain.Subscriber{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, email, registered_at FROM waitlist_subscribers WHERE email = $1`,
		email,
	).Scan(&s.ID, &s.Email, &s.RegisteredAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: find subscriber: %w", subscription.ErrUnavailable, err)
	}
	return s, nil
}

func (r *SubscriberRepo) Create(ctx context.Context, email string) (*domain.Subscriber, error) {
	if err := r.EnsureSchema(ctx); err != nil {
		return nil, err
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	s := &domain.Subscriber{
		ID:           uuid.New().String(),
		Email:        email,
		RegisteredAt: r.now().Truncate(time.Microsecond), // TIMESTAMPTZ precision
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO waitlist_subscribers (id, email, registered_at) VALUES ($1, $2, $3)`,
		s.ID, s.Email, s.RegisteredAt,
	)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return nil, subscription.ErrDuplicate
	}
	if err != nil {
		return nil, fmt.Errorf("%w: insert subscriber: %w", subscription.ErrUnavailable, err)
	}
	return s, nil
}

func (r *SubscriberRepo) ListAll(ctx context.Context) ([]domain.Subscriber, error) {
	if err := r.EnsureSchema(ctx); err != nil {
		return nil, err
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, email, registered_at
		FROM waitlist_subscribers
		ORDER BY registered_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("%w: list subscribers: %w", subscription.ErrUnavailable, err)
	}
	defer rows.Close()

	out := []domain.Subscriber{}
	for rows.Next() {
		var s domain.Subscriber
		if err := rows.Scan(&s.ID, &s.Email, &s.RegisteredAt); err != nil {
			return nil, fmt.Errorf("%w: scan subscriber: %w", subscription.ErrUnavailable, err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list subscribers: %w", subscription.ErrUnavailable, err)
	}
	return out, nil
}

// Ping verifies the connection.
func (r *SubscriberRepo) Ping(ctx context.Context) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	return r.db.PingContext(ctx)
}

// Close releases the connection pool.
func (r *SubscriberRepo) Close() error {
	return r.db.Close()
}
