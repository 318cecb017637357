package subscription

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ignite/waitlist-api/internal/domain"
	"github.com/ignite/waitlist-api/internal/pkg/logger"
)

// DefaultNotifyTimeout bounds a single confirmation send.
const DefaultNotifyTimeout = 10 * time.Second

// Service runs the subscribe workflow. It is safe for concurrent use; the
// only shared state is the injected Store and Notifier.
type Service struct {
	store         Store
	notifier      Notifier
	notifyTimeout time.Duration
	pending       sync.WaitGroup
}

// Option configures a Service.
type Option func(*Service)

// WithNotifyTimeout overrides DefaultNotifyTimeout.
func WithNotifyTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.notifyTimeout = d
		}
	}
}

// NewService creates a subscription service backed by the given store and
// notifier.
func NewService(store Store, notifier Notifier, opts ...Option) *Service {
	s := &Service{
		store:         store,
		notifier:      notifier,
		notifyTimeout: DefaultNotifyTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Result is a successful subscription. Delivery yields exactly one value,
// whether the confirmation email was accepted by the transport, once the
// background send finishes.
type Result struct {
	Subscriber domain.Subscriber
	Delivery   <-chan bool
}

// Subscribe validates email, stores it if it is new and starts sending the
// confirmation. It returns once the record is durable; it does not wait for
// the email.
//
// Errors are ErrValidation, ErrAlreadySubscribed or ErrPersistence (wrapping
// the store's error).
func (s *Service) Subscribe(ctx context.Context, email string) (*Result, error) {
	if strings.TrimSpace(email) == "" {
		return nil, ErrValidation
	}

	existing, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("%w: lookup: %w", ErrPersistence, err)
	}
	if existing != nil {
		return nil, ErrAlreadySubscribed
	}

	sub, err := s.store.Create(ctx, email)
	if errors.Is(err, ErrDuplicate) {
		// A concurrent request inserted the same email between our lookup
		// and insert.
		logger.Info("subscribe lost insert race", "email", email)
		return nil, ErrAlreadySubscribed
	}
	if err != nil {
		return nil, fmt.Errorf("%w: create: %w", ErrPersistence, err)
	}
	logger.Info("subscriber created", "email", sub.Email, "id", sub.ID)

	return &Result{Subscriber: *sub, Delivery: s.notify(ctx, sub.Email)}, nil
}

// notify sends the confirmation in the background. The send outlives the
// request, so it gets its own deadline instead of the request's.
func (s *Service) notify(ctx context.Context, email string) <-chan bool {
	delivered := make(chan bool, 1)
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.notifyTimeout)

	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		defer cancel()

		ok := s.notifier.Send(sendCtx, email, ConfirmationSubject, ConfirmationBody(email))
		switch {
		case ok:
			logger.Info("confirmation email sent", "email", email)
		case sendCtx.Err() != nil:
			logger.Warn("confirmation email timed out", "email", email, "error", sendCtx.Err())
		default:
			logger.Warn("confirmation email not delivered", "email", email)
		}
		delivered <- ok
	}()
	return delivered
}

// List returns every subscriber, most recently registered first.
func (s *Service) List(ctx context.Context) ([]domain.Subscriber, error) {
	subs, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: list: %w", ErrPersistence, err)
	}
	if subs == nil {
		subs = []domain.Subscriber{}
	}
	return subs, nil
}

// Wait blocks until every in-flight confirmation send has finished or ctx is
// done. Used at shutdown.
func (s *Service) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.pending.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
