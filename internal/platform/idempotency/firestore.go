package idempotency

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	defaultCollection  = "idempotencyKeys"
	defaultTxAttempts  = 5
	defaultPurgeSweep  = 100
	expiresAtFieldName = "expiresAt"
)

// FirestoreOption customises the Firestore store.
type FirestoreOption func(*FirestoreStore)

// WithCollection overrides the collection holding idempotency entries.
func WithCollection(name string) FirestoreOption {
	return func(s *FirestoreStore) {
		if name != "" {
			s.collection = name
		}
	}
}

// WithMaxAttempts bounds transaction retries.
func WithMaxAttempts(attempts int) FirestoreOption {
	return func(s *FirestoreStore) {
		if attempts > 0 {
			s.txAttempts = attempts
		}
	}
}

// FirestoreStore implements Store on Cloud Firestore.
type FirestoreStore struct {
	client     *firestore.Client
	collection string
	txAttempts int
}

func NewFirestoreStore(client *firestore.Client, opts ...FirestoreOption) *FirestoreStore {
	store := &FirestoreStore{
		client:     client,
		collection: defaultCollection,
		txAttempts: defaultTxAttempts,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(store)
		}
	}
	return store
}

func (s *FirestoreStore) doc(key string) *firestore.DocumentRef {
	return s.client.Collection(s.collection).Doc(entryID(key))
}

func (s *FirestoreStore) attempts() int {
	if s.txAttempts > 0 {
		return s.txAttempts
	}
	return 1
}

// Claim takes ownership of the key inside a transaction so concurrent
// requests with the same key observe exactly one OutcomeProceed.
func (s *FirestoreStore) Claim(ctx context.Context, key, fingerprint string, now time.Time, ttl time.Duration) (Claim, error) {
	now = now.UTC()
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	ref := s.doc(key)

	var claim Claim
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil && status.Code(err) != codes.NotFound {
			return err
		}

		var doc entryDocument
		exists := err == nil
		if exists {
			if err := snap.DataTo(&doc); err != nil {
				return err
			}
		}

		if !exists || expired(doc.toEntry(), now) {
			doc = entryDocument{
				Key:         key,
				Fingerprint: fingerprint,
				State:       string(StatePending),
				CreatedAt:   now,
				UpdatedAt:   now,
				ExpiresAt:   now.Add(ttl),
			}
			if err := tx.Set(ref, doc); err != nil {
				return err
			}
			claim = Claim{Outcome: OutcomeProceed, Entry: doc.toEntry()}
			return nil
		}

		if doc.Fingerprint != fingerprint {
			return ErrKeyReused
		}
		if doc.State == string(StateDone) {
			claim = Claim{Outcome: OutcomeReplay, Entry: doc.toEntry()}
			return nil
		}
		claim = Claim{Outcome: OutcomeInFlight, Entry: doc.toEntry()}
		return nil
	}, firestore.MaxAttempts(s.attempts()))

	return claim, err
}

func (s *FirestoreStore) Complete(ctx context.Context, key, fingerprint string, result Result, now time.Time, ttl time.Duration) error {
	now = now.UTC()
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	ref := s.doc(key)

	header := storableHeader(result.Header)
	body := append([]byte(nil), result.Body...)
	if len(body) == 0 {
		body = nil
	}

	return s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		var doc entryDocument
		switch {
		case err == nil:
			if err := snap.DataTo(&doc); err != nil {
				return err
			}
			if doc.Fingerprint != fingerprint {
				return ErrKeyReused
			}
		case status.Code(err) == codes.NotFound:
			doc = entryDocument{Key: key, Fingerprint: fingerprint, CreatedAt: now}
		default:
			return err
		}
		if doc.CreatedAt.IsZero() {
			doc.CreatedAt = now
		}

		doc.State = string(StateDone)
		doc.HTTPStatus = result.Status
		doc.Header = header
		doc.Body = body
		doc.UpdatedAt = now
		doc.ExpiresAt = now.Add(ttl)
		return tx.Set(ref, doc)
	}, firestore.MaxAttempts(s.attempts()))
}

func (s *FirestoreStore) Forget(ctx context.Context, key, _ string) error {
	_, err := s.doc(key).Delete(ctx)
	if status.Code(err) == codes.NotFound {
		return nil
	}
	return err
}

func (s *FirestoreStore) PurgeExpired(ctx context.Context, now time.Time, limit int) (int, error) {
	now = now.UTC()
	if limit <= 0 {
		limit = defaultPurgeSweep
	}

	docs, err := s.client.Collection(s.collection).
		Where(expiresAtFieldName, "<=", now).
		Limit(limit).
		Documents(ctx).GetAll()
	if err != nil {
		return 0, err
	}
	if len(docs) == 0 {
		return 0, nil
	}

	batch := s.client.Batch()
	for _, doc := range docs {
		batch.Delete(doc.Ref)
	}
	if _, err := batch.Commit(ctx); err != nil {
		return 0, err
	}
	return len(docs), nil
}

type entryDocument struct {
	Key         string              `firestore:"key"`
	Fingerprint string              `firestore:"fingerprint"`
	State       string              `firestore:"state"`
	HTTPStatus  int                 `firestore:"httpStatus"`
	Header      map[string][]string `firestore:"header"`
	Body        []byte              `firestore:"body"`
	CreatedAt   time.Time           `firestore:"createdAt"`
	UpdatedAt   time.Time           `firestore:"updatedAt"`
	ExpiresAt   time.Time           `firestore:"expiresAt"`
}

func (d entryDocument) toEntry() Entry {
	return Entry{
		Key:         d.Key,
		Fingerprint: d.Fingerprint,
		State:       State(d.State),
		HTTPStatus:  d.HTTPStatus,
		Header:      d.Header,
		Body:        d.Body,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
		ExpiresAt:   d.ExpiresAt,
	}
}
