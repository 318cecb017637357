package subscription

import (
	"context"
	"fmt"

	"github.com/ignite/waitlist-api/internal/domain"
)

// Store defines the data access contract for subscriber records.
type Store interface {
	// FindByEmail returns the record for an exact email match, or nil when
	// there is none. Absence is not an error.
	FindByEmail(ctx context.Context, email string) (*domain.Subscriber, error)

	// Create inserts a record registered now. It returns ErrDuplicate when the
	// storage-level uniqueness constraint rejects the email; callers must not
	// rely on a prior FindByEmail for correctness.
	Create(ctx context.Context, email string) (*domain.Subscriber, error)

	// ListAll returns every record, most recently registered first.
	ListAll(ctx context.Context) ([]domain.Subscriber, error)
}

// UnavailableStore is installed when the real store could not be configured
// at startup. Every call fails with ErrUnavailable so requests report a
// persistence error instead of the process exiting.
type UnavailableStore struct {
	Cause error
}

func (s UnavailableStore) err() error {
	if s.Cause == nil {
		return ErrUnavailable
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, s.Cause)
}

func (s UnavailableStore) FindByEmail(context.Context, string) (*domain.Subscriber, error) {
	return nil, s.err()
}

func (s UnavailableStore) Create(context.Context, string) (*domain.Subscriber, error) {
	return nil, s.err()
}

func (s UnavailableStore) ListAll(context.Context) ([]domain.Subscriber, error) {
	return nil, s.err()
}
