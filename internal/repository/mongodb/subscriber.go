// Package mongodb stores subscribers in a MongoDB collection. Documents use
// the field names of the existing "emails" collection (email, registeredAt),
// so a database created by earlier deployments is read as-is.
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ignite/waitlist-api/internal/domain"
	"github.com/ignite/waitlist-api/internal/service/subscription"
)

// CollectionName is the collection holding subscriber documents.
const CollectionName = "emails"

// collection is the subset of *mongo.Collection the repository uses.
type collection interface {
	FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) *mongo.SingleResult
	InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error)
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (*mongo.Cursor, error)
}

type subscriberDoc struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	Email        string             `bson:"email"`
	RegisteredAt time.Time          `bson:"registeredAt"`
}

func (d subscriberDoc) toDomain() domain.Subscriber {
	return domain.Subscriber{
		ID:           d.ID.Hex(),
		Email:        d.Email,
		RegisteredAt: d.RegisteredAt.UTC(),
	}
}

// SubscriberRepo implements subscription.Store against MongoDB. A unique
// index on email is the uniqueness constraint.
type SubscriberRepo struct {
	client  *mongo.Client
	coll    collection
	timeout time.Duration
	now     func() time.Time

	indexMu     sync.Mutex
	indexReady  bool
	ensureIndex func(ctx context.Context) error
}

// Open connects to uri and binds the repository to the emails collection of
// database dbName. The driver connects lazily, so an unreachable server
// surfaces on Ping or on the first query, not here.
func Open(ctx context.Context, uri, dbName string, timeout time.Duration) (*SubscriberRepo, error) {
	opts := options.Client().ApplyURI(uri)
	if timeout > 0 {
		opts.SetServerSelectionTimeout(timeout).SetConnectTimeout(timeout)
	}
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}

	coll := client.Database(dbName).Collection(CollectionName)
	repo := newSubscriberRepo(coll, timeout)
	repo.client = client
	repo.ensureIndex = func(ctx context.Context) error {
		_, err := coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
			{
				Keys:    bson.D{{Key: "email", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{
				Keys: bson.D{{Key: "registeredAt", Value: -1}},
			},
		})
		return err
	}
	return repo, nil
}

func newSubscriberRepo(coll collection, timeout time.Duration) *SubscriberRepo {
	return &SubscriberRepo{
		coll:        coll,
		timeout:     timeout,
		now:         func() time.Time { return time.Now().UTC() },
		ensureIndex: func(context.Context) error { return nil },
	}
}

// EnsureSchema creates the indexes once per process.
func (r *SubscriberRepo) EnsureSchema(ctx context.Context) error {
	r.indexMu.Lock()
	defer r.indexMu.Unlock()
	if r.indexReady {
		return nil
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	if err := r.ensureIndex(ctx); err != nil {
		return fmt.Errorf("%w: create indexes: %w", subscription.ErrUnavailable, err)
	}
	r.indexReady = true
	return nil
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

	var doc subscriberDoc
	err := r.coll.FindOne(ctx, bson.D{{Key: "email", Value: email}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: find subscriber: %w", subscription.ErrUnavailable, err)
	}
	sub := doc.toDomain()
	return &sub, nil
}

func (r *SubscriberRepo) Create(ctx context.Context, email string) (*domain.Subscriber, error) {
	if err := r.EnsureSchema(ctx); err != nil {
		return nil, err
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	// BSON dates carry millisecond precision.
	doc := subscriberDoc{
		ID:           primitive.NewObjectID(),
		Email:        email,
		RegisteredAt: r.now().Truncate(time.Millisecond),
	}
	_, err := r.coll.InsertOne(ctx, doc)
	if mongo.IsDuplicateKeyError(err) {
		return nil, subscription.ErrDuplicate
	}
	if err != nil {
		return nil, fmt.Errorf("%w: insert subscriber: %w", subscription.ErrUnavailable, err)
	}
	sub := doc.toDomain()
	return &sub, nil
}

func (r *SubscriberRepo) ListAll(ctx context.Context) ([]domain.Subscriber, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	cur, err := r.coll.Find(ctx, bson.D{},
		options.Find().SetSort(bson.D{{Key: "registeredAt", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("%w: list subscribers: %w", subscription.ErrUnavailable, err)
	}
	defer cur.Close(ctx)

	var docs []subscriberDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("%w: decode subscribers: %w", subscription.ErrUnavailable, err)
	}

	out := make([]domain.Subscriber, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, nil
}

// Ping verifies the server is reachable.
func (r *SubscriberRepo) Ping(ctx context.Context) error {
	if r.client == nil {
		return nil
	}
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	return r.client.Ping(ctx, nil)
}

// Close disconnects the client.
func (r *SubscriberRepo) Close() error {
	if r.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return r.client.Disconnect(ctx)
}
