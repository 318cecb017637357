// Package memory is a process-local subscriber store. It backs local
// development (database URI "memory://") and handler tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ignite/waitlist-api/internal/domain"
	"github.com/ignite/waitlist-api/internal/service/subscription"
)

// SubscriberRepo implements subscription.Store in memory. The map key is the
// uniqueness constraint.
type SubscriberRepo struct {
	mu      sync.RWMutex
	byEmail map[string]domain.Subscriber
	now     func() time.Time
}

// NewSubscriberRepo creates an empty in-memory store.
func NewSubscriberRepo() *SubscriberRepo {
	return &SubscriberRepo{
		byEmail: make(map[string]domain.Subscriber),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the registration clock. Tests use it to get
// deterministic ordering.
func (r *SubscriberRepo) WithClock(now func() time.Time) *SubscriberRepo {
	r.now = now
	return r
}

func (r *SubscriberRepo) FindByEmail(_ context.Context, email string) (*domain.Subscriber, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sub, ok := r.byEmail[email]
	if !ok {
		return nil, nil
	}
	return &sub, nil
}

func (r *SubscriberRepo) Create(_ context.Context, email string) (*domain.Subscriber, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byEmail[email]; exists {
		return nil, subscription.ErrDuplicate
	}
	sub := domain.Subscriber{
		ID:           uuid.New().String(),
		Email:        email,
		RegisteredAt: r.now(),
	}
	r.byEmail[email] = sub
	return &sub, nil
}

func (r *SubscriberRepo) ListAll(_ context.Context) ([]domain.Subscriber, error) {
	r.mu.RLock()
	out := make([]domain.Subscriber, 0, len(r.byEmail))
	for _, sub := range r.byEmail {
		out = append(out, sub)
	}
	r.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].RegisteredAt.After(out[j].RegisteredAt)
	})
	return out, nil
}

// Len returns the number of stored records.
func (r *SubscriberRepo) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byEmail)
}

func (r *SubscriberRepo) Ping(context.Context) error { return nil }

func (r *SubscriberRepo) EnsureSchema(context.Context) error { return nil }

func (r *SubscriberRepo) Close() error { return nil }
