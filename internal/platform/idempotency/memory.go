package idempotency

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps entries in process memory, for tests and local runs.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]Entry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]Entry)}
}

func (s *MemoryStore) Claim(_ context.Context, key, fingerprint string, now time.Time, ttl time.Duration) (Claim, error) {
	now = now.UTC()
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := entryID(key)
	entry, ok := s.entries[id]
	if !ok || expired(entry, now) {
		entry = Entry{
			Key:         key,
			Fingerprint: fingerprint,
			State:       StatePending,
			CreatedAt:   now,
			UpdatedAt:   now,
			ExpiresAt:   now.Add(ttl),
		}
		s.entries[id] = entry
		return Claim{Outcome: OutcomeProceed, Entry: entry}, nil
	}

	if entry.Fingerprint != fingerprint {
		return Claim{}, ErrKeyReused
	}
	if entry.State == StateDone {
		return Claim{Outcome: OutcomeReplay, Entry: entry}, nil
	}
	return Claim{Outcome: OutcomeInFlight, Entry: entry}, nil
}

func (s *MemoryStore) Complete(_ context.Context, key, fingerprint string, result Result, now time.Time, ttl time.Duration) error {
	now = now.UTC()
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := entryID(key)
	entry, ok := s.entries[id]
	if ok && entry.Fingerprint != fingerprint {
		return ErrKeyReused
	}
	if !ok {
		entry = Entry{Key: key, Fingerprint: fingerprint, CreatedAt: now}
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}

	entry.State = StateDone
	entry.HTTPStatus = result.Status
	entry.Header = storableHeader(result.Header)
	entry.Body = append([]byte(nil), result.Body...)
	if len(entry.Body) == 0 {
		entry.Body = nil
	}
	entry.UpdatedAt = now
	entry.ExpiresAt = now.Add(ttl)
	s.entries[id] = entry
	return nil
}

func (s *MemoryStore) Forget(_ context.Context, key, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, entryID(key))
	return nil
}

func (s *MemoryStore) PurgeExpired(_ context.Context, now time.Time, limit int) (int, error) {
	now = now.UTC()
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 || limit > len(s.entries) {
		limit = len(s.entries)
	}

	removed := 0
	for id, entry := range s.entries {
		if !expired(entry, now) {
			continue
		}
		delete(s.entries, id)
		removed++
		if removed >= limit {
			break
		}
	}
	return removed, nil
}

func expired(entry Entry, now time.Time) bool {
	return !entry.ExpiresAt.IsZero() && !now.Before(entry.ExpiresAt)
}
