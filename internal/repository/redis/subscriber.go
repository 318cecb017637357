// Package redis stores subscribers in Redis. A hash keyed by email holds the
// records (HSETNX is the uniqueness constraint) and a sorted set scored by
// registration time provides the listing order.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/ignite/waitlist-api/internal/domain"
	"github.com/ignite/waitlist-api/internal/service/subscription"
)

// insertScript writes the record and its index entry in one step, or
// nothing when the email already exists.
var insertScript = goredis.NewScript(`
	if redis.call("hsetnx", KEYS[1], ARGV[1], ARGV[2]) == 0 then
		return 0
	end
	redis.call("zadd", KEYS[2], ARGV[3], ARGV[1])
	return 1
`)

type record struct {
	ID           string    `json:"id"`
	RegisteredAt time.Time `json:"registeredAt"`
}

// SubscriberRepo implements subscription.Store against Redis.
type SubscriberRepo struct {
	client   *goredis.Client
	hashKey  string
	orderKey string
	timeout  time.Duration
	now      func() time.Time
}

// Open parses a redis:// or rediss:// URL and returns a repository whose
// keys are namespaced by prefix.
func Open(uri, prefix string, timeout time.Duration) (*SubscriberRepo, error) {
	opts, err := goredis.ParseURL(uri)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if timeout > 0 {
		opts.DialTimeout = timeout
	}
	return NewSubscriberRepo(goredis.NewClient(opts), prefix, timeout), nil
}

// NewSubscriberRepo wraps an existing client.
func NewSubscriberRepo(client *goredis.Client, prefix string, timeout time.Duration) *SubscriberRepo {
	if prefix == "" {
		prefix = "subscriptions"
	}
	return &SubscriberRepo{
		client:   client,
		hashKey:  prefix + ":emails",
		orderKey: prefix + ":emails:by_registered_at",
		timeout:  timeout,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (r *SubscriberRepo) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, r.timeout)
}

func (r *SubscriberRepo) FindByEmail(ctx context.Context, email string) (*domain.Subscriber, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	raw, err := r.client.HGet(ctx, r.hashKey, email).Result()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: find subscriber: %w", subscription.ErrUnavailable, err)
	}
	sub, err := decode(email, raw)
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *SubscriberRepo) Create(ctx context.Context, email string) (*domain.Subscriber, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	rec := record{ID: uuid.New().String(), RegisteredAt: r.now()}
	payload, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encode subscriber: %w", err)
	}

	inserted, err := insertScript.Run(ctx, r.client,
		[]string{r.hashKey, r.orderKey},
		email, string(payload), rec.RegisteredAt.UnixMicro(),
	).Int()
	if err != nil {
		return nil, fmt.Errorf("%w: insert subscriber: %w", subscription.ErrUnavailable, err)
	}
	if inserted == 0 {
		return nil, subscription.ErrDuplicate
	}
	return &domain.Subscriber{ID: rec.ID, Email: email, RegisteredAt: rec.RegisteredAt}, nil
}

func (r *SubscriberRepo) ListAll(ctx context.Context) ([]domain.Subscriber, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	emails, err := r.client.ZRevRange(ctx, r.orderKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: list subscribers: %w", subscription.ErrUnavailable, err)
	}
	out := make([]domain.Subscriber, 0, len(emails))
	if len(emails) == 0 {
		return out, nil
	}

	values, err := r.client.HMGet(ctx, r.hashKey, emails...).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: load subscribers: %w", subscription.ErrUnavailable, err)
	}
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		sub, err := decode(emails[i], raw)
		if err != nil {
			return nil, err
		}
		out = append(out, sub)
	}
	return out, nil
}

func decode(email, raw string) (domain.Subscriber, error) {
	var rec record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return domain.Subscriber{}, fmt.Errorf("%w: decode subscriber %q: %w", subscription.ErrUnavailable, email, err)
	}
	return domain.Subscriber{ID: rec.ID, Email: email, RegisteredAt: rec.RegisteredAt.UTC()}, nil
}

// Ping verifies the server is reachable.
func (r *SubscriberRepo) Ping(ctx context.Context) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	return r.client.Ping(ctx).Err()
}

// EnsureSchema is a no-op: the keys need no setup.
func (r *SubscriberRepo) EnsureSchema(context.Context) error { return nil }

// Close closes the client.
func (r *SubscriberRepo) Close() error {
	return r.client.Close()
}
