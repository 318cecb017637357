package subscription

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/waitlist-api/internal/domain"
)

// mockRepo is an in-memory store for testing. The map enforces uniqueness the
// way a storage-level constraint would.
type mockRepo struct {
	mu      sync.Mutex
	store   map[string]domain.Subscriber
	clock   time.Time
	findErr error
	// createErr, when set, is returned from Create instead of inserting.
	createErr error
	// hideExisting makes FindByEmail miss, simulating a lookup that raced a
	// concurrent insert.
	hideExisting bool
	creates      int
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		store: make(map[string]domain.Subscriber),
		clock: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (m *mockRepo) FindByEmail(_ context.Context, email string) (*domain.Subscriber, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return nil, m.findErr
	}
	if m.hideExisting {
		return nil, nil
	}
	if s, ok := m.store[email]; ok {
		return &s, nil
	}
	return nil, nil
}

func (m *mockRepo) Create(_ context.Context, email string) (*domain.Subscriber, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creates++
	if m.createErr != nil {
		return nil, m.createErr
	}
	if _, ok := m.store[email]; ok {
		return nil, ErrDuplicate
	}
	m.clock = m.clock.Add(time.Second)
	s := domain.Subscriber{ID: fmt.Sprintf("id-%d", len(m.store)+1), Email: email, RegisteredAt: m.clock}
	m.store[email] = s
	return &s, nil
}

func (m *mockRepo) ListAll(_ context.Context) ([]domain.Subscriber, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return nil, m.findErr
	}
	var out []domain.Subscriber
	for _, s := range m.store {
		out = append(out, s)
	}
	return out, nil
}

// recordingNotifier records every send and returns a fixed outcome.
type recordingNotifier struct {
	mu    sync.Mutex
	ok    bool
	sent  []sentMessage
	block bool
}

type sentMessage struct {
	to, subject, body string
}

func (n *recordingNotifier) Send(ctx context.Context, to, subject, body string) bool {
	if n.block {
		<-ctx.Done()
		return false
	}
	if ctx.Err() != nil {
		return false
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentMessage{to, subject, body})
	return n.ok
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

func waitDelivery(t *testing.T, res *Result) bool {
	t.Helper()
	select {
	case ok := <-res.Delivery:
		return ok
	case <-time.After(2 * time.Second):
		t.Fatal("confirmation delivery never reported")
		return false
	}
}

func TestSubscribe_NewEmail_PersistsAndNotifies(t *testing.T) {
	repo := newMockRepo()
	notifier := &recordingNotifier{ok: true}
	svc := NewService(repo, notifier)

	res, err := svc.Subscribe(context.Background(), "new@example.com")
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", res.Subscriber.Email)
	assert.False(t, res.Subscriber.RegisteredAt.IsZero())

	assert.True(t, waitDelivery(t, res))
	require.Equal(t, 1, notifier.count())
	assert.Equal(t, "new@example.com", notifier.sent[0].to)
	assert.Equal(t, ConfirmationSubject, notifier.sent[0].subject)
	assert.Contains(t, notifier.sent[0].body, "<b>new@example.com</b>")
}

func TestSubscribe_EmptyEmail_Fails(t *testing.T) {
	for _, email := range []string{"", "   "} {
		repo := newMockRepo()
		notifier := &recordingNotifier{ok: true}
		svc := NewService(repo, notifier)

		_, err := svc.Subscribe(context.Background(), email)
		assert.ErrorIs(t, err, ErrValidation)
		assert.Zero(t, repo.creates, "no write for %q", email)
		assert.Zero(t, notifier.count())
	}
}

func TestSubscribe_AlreadySubscribed_NoSideEffects(t *testing.T) {
	repo := newMockRepo()
	notifier := &recordingNotifier{ok: true}
	svc := NewService(repo, notifier)
	ctx := context.Background()

	res, err := svc.Subscribe(ctx, "dup@example.com")
	require.NoError(t, err)
	waitDelivery(t, res)

	_, err = svc.Subscribe(ctx, "dup@example.com")
	assert.ErrorIs(t, err, ErrAlreadySubscribed)
	assert.Equal(t, 1, repo.creates, "second call must not attempt a write")
	require.NoError(t, svc.Wait(ctx))
	assert.Equal(t, 1, notifier.count())
}

func TestSubscribe_ExactStringUniqueness(t *testing.T) {
	svc := NewService(newMockRepo(), &recordingNotifier{ok: true})
	ctx := context.Background()

	_, err := svc.Subscribe(ctx, "Case@example.com")
	require.NoError(t, err)
	_, err = svc.Subscribe(ctx, "case@example.com")
	assert.NoError(t, err, "addresses are not normalized")
	require.NoError(t, svc.Wait(ctx))
}

func TestSubscribe_LostInsertRace_ReportsAlreadySubscribed(t *testing.T) {
	repo := newMockRepo()
	repo.store["race@example.com"] = domain.Subscriber{Email: "race@example.com"}
	repo.hideExisting = true
	notifier := &recordingNotifier{ok: true}
	svc := NewService(repo, notifier)

	_, err := svc.Subscribe(context.Background(), "race@example.com")
	assert.ErrorIs(t, err, ErrAlreadySubscribed)
	assert.NotErrorIs(t, err, ErrPersistence)
	assert.Zero(t, notifier.count())
}

func TestSubscribe_LookupFailure_IsPersistenceError(t *testing.T) {
	repo := newMockRepo()
	repo.findErr = fmt.Errorf("%w: connection refused", ErrUnavailable)
	svc := NewService(repo, &recordingNotifier{ok: true})

	_, err := svc.Subscribe(context.Background(), "a@example.com")
	assert.ErrorIs(t, err, ErrPersistence)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Zero(t, repo.creates)
}

func TestSubscribe_CreateFailure_IsPersistenceError(t *testing.T) {
	repo := newMockRepo()
	repo.createErr = fmt.Errorf("%w: write timeout", ErrUnavailable)
	notifier := &recordingNotifier{ok: true}
	svc := NewService(repo, notifier)

	_, err := svc.Subscribe(context.Background(), "a@example.com")
	assert.ErrorIs(t, err, ErrPersistence)
	assert.Zero(t, notifier.count())
}

func TestSubscribe_NotifierFailure_StillSucceeds(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, &recordingNotifier{ok: false})

	res, err := svc.Subscribe(context.Background(), "quiet@example.com")
	require.NoError(t, err)
	assert.False(t, waitDelivery(t, res))

	subs, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, "quiet@example.com", subs[0].Email)
}

func TestSubscribe_NotifierTimeout_DoesNotBlockCaller(t *testing.T) {
	svc := NewService(newMockRepo(), &recordingNotifier{block: true}, WithNotifyTimeout(100*time.Millisecond))

	start := time.Now()
	res, err := svc.Subscribe(context.Background(), "slow@example.com")
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 100*time.Millisecond)

	assert.False(t, waitDelivery(t, res))
}

func TestSubscribe_RequestCancelDoesNotAbortConfirmation(t *testing.T) {
	notifier := &recordingNotifier{ok: true}
	svc := NewService(newMockRepo(), notifier)

	ctx, cancel := context.WithCancel(context.Background())
	res, err := svc.Subscribe(ctx, "early@example.com")
	require.NoError(t, err)
	cancel()

	assert.True(t, waitDelivery(t, res))
}

func TestSubscribe_ConcurrentSameEmail_ExactlyOneSuccess(t *testing.T) {
	repo := newMockRepo()
	notifier := &recordingNotifier{ok: true}
	svc := NewService(repo, notifier)

	const callers = 8
	var successes, conflicts atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Subscribe(context.Background(), "same@example.com")
			switch {
			case err == nil:
				successes.Add(1)
			case errors.Is(err, ErrAlreadySubscribed):
				conflicts.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()
	require.NoError(t, svc.Wait(context.Background()))

	assert.EqualValues(t, 1, successes.Load())
	assert.EqualValues(t, callers-1, conflicts.Load())
	assert.Len(t, repo.store, 1)
	assert.Equal(t, 1, notifier.count())
}

func TestList_EmptyStoreReturnsEmptySlice(t *testing.T) {
	svc := NewService(newMockRepo(), &recordingNotifier{})

	subs, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, subs)
	assert.Empty(t, subs)
}

func TestList_StoreFailure_IsPersistenceError(t *testing.T) {
	repo := newMockRepo()
	repo.findErr = ErrUnavailable
	svc := NewService(repo, &recordingNotifier{})

	_, err := svc.List(context.Background())
	assert.ErrorIs(t, err, ErrPersistence)
}

func TestWait_HonorsContext(t *testing.T) {
	svc := NewService(newMockRepo(), &recordingNotifier{block: true}, WithNotifyTimeout(time.Minute))
	_, err := svc.Subscribe(context.Background(), "stuck@example.com")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, svc.Wait(ctx), context.DeadlineExceeded)
}

func TestUnavailableStore(t *testing.T) {
	store := UnavailableStore{Cause: errors.New("database URI not configured")}
	svc := NewService(store, &recordingNotifier{})

	_, err := svc.Subscribe(context.Background(), "a@example.com")
	assert.ErrorIs(t, err, ErrPersistence)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Contains(t, err.Error(), "database URI not configured")

	_, err = svc.List(context.Background())
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestConfirmationBody_EscapesEmail(t *testing.T) {
	body := ConfirmationBody(`<script>x</script>@example.com`)
	assert.NotContains(t, body, "<script>")
	assert.Contains(t, body, "&lt;script&gt;")
}
