package idempotency

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

var testClock = time.Date(2025, time.March, 3, 9, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testClock }

func postProduct(key, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/products", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}
	return req
}

func decodeIdempotencyError(t *testing.T, payload []byte) string {
	t.Helper()
	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		t.Fatalf("failed to decode error payload: %v", err)
	}
	return body.Error
}

func TestMiddlewareRequiresKey(t *testing.T) {
	handler := Middleware(NewMemoryStore(), WithClock(fixedClock))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("handler should not run without a key")
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, postProduct("", `{"name":"Hammer"}`))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
	if code := decodeIdempotencyError(t, rr.Body.Bytes()); code != "idempotency_key_required" {
		t.Fatalf("unexpected error code %s", code)
	}
}

func TestMiddlewareSkipsReads(t *testing.T) {
	called := false
	handler := Middleware(NewMemoryStore(), WithClock(fixedClock))(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/products", nil))

	if !called {
		t.Fatal("GET should bypass the idempotency guard")
	}
}

func TestMiddlewareReplaysStoredResponse(t *testing.T) {
	var calls int
	handler := Middleware(NewMemoryStore(), WithClock(fixedClock))(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":42}`))
	}))

	rr1 := httptest.NewRecorder()
	handler.ServeHTTP(rr1, postProduct("create-42", `{"name":"Hammer"}`))
	if calls != 1 {
		t.Fatalf("expected one handler call, got %d", calls)
	}
	if rr1.Code != http.StatusCreated {
		t.Fatalf("unexpected first status %d", rr1.Code)
	}

	rr2 := httptest.NewRecorder()
	handler.ServeHTTP(rr2, postProduct("create-42", `{"name":"Hammer"}`))

	if calls != 1 {
		t.Fatalf("retry must not reach the handler, got %d calls", calls)
	}
	if rr2.Code != http.StatusCreated {
		t.Fatalf("expected replayed status 201, got %d", rr2.Code)
	}
	if rr2.Header().Get(replayHeaderName) != "true" {
		t.Fatal("expected replay marker header")
	}
	if got := rr2.Header().Get("Content-Type"); got != "application/json" {
		t.Fatalf("expected stored content type, got %s", got)
	}
	if rr2.Body.String() != rr1.Body.String() {
		t.Fatalf("replayed body %q differs from original %q", rr2.Body.String(), rr1.Body.String())
	}
}

func TestMiddlewareRejectsReusedKey(t *testing.T) {
	handler := Middleware(NewMemoryStore(), WithClock(fixedClock))(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rr1 := httptest.NewRecorder()
	handler.ServeHTTP(rr1, postProduct("shared-key", `{"name":"Hammer"}`))
	if rr1.Code != http.StatusOK {
		t.Fatalf("expected first request to pass, got %d", rr1.Code)
	}

	rr2 := httptest.NewRecorder()
	handler.ServeHTTP(rr2, postProduct("shared-key", `{"name":"Screwdriver"}`))

	if rr2.Code != http.StatusConflict {
		t.Fatalf("expected 409 for reused key, got %d", rr2.Code)
	}
	if code := decodeIdempotencyError(t, rr2.Body.Bytes()); code != "idempotency_key_conflict" {
		t.Fatalf("unexpected error code %s", code)
	}
}

func TestMiddlewareReportsInFlightKey(t *testing.T) {
	store := NewMemoryStore()
	handler := Middleware(store, WithClock(fixedClock))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("handler should not run while the key is in flight")
	}))

	req := postProduct("busy-key", `{"name":"Hammer"}`)
	body, err := bufferRequestBody(req)
	if err != nil {
		t.Fatalf("failed to buffer body: %v", err)
	}
	requester := requesterFrom(req.Context())
	fingerprint := fingerprintRequest(req, body, requester)
	if _, err := store.Claim(req.Context(), "busy-key|"+requester, fingerprint, testClock, time.Hour); err != nil {
		t.Fatalf("failed to seed claim: %v", err)
	}

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409 for in-flight key, got %d", rr.Code)
	}
	if code := decodeIdempotencyError(t, rr.Body.Bytes()); code != "idempotency_in_progress" {
		t.Fatalf("unexpected error code %s", code)
	}
}

func TestMiddlewareReleasesKeyWhenPersistFails(t *testing.T) {
	store := &failingStore{}
	handler := Middleware(store, WithClock(fixedClock))(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte("ok"))
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, postProduct("doomed-key", `{"name":"Hammer"}`))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	if code := decodeIdempotencyError(t, rr.Body.Bytes()); code != "idempotency_store_error" {
		t.Fatalf("unexpected error code %s", code)
	}
	if !store.forgotten {
		t.Fatal("expected the claim to be released after persist failure")
	}
}

func TestMemoryStoreExpiresEntries(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if _, err := store.Claim(ctx, "aging-key", "fp", testClock, time.Minute); err != nil {
		t.Fatalf("claim failed: %v", err)
	}
	if err := store.Complete(ctx, "aging-key", "fp", Result{Status: http.StatusOK}, testClock, time.Minute); err != nil {
		t.Fatalf("complete failed: %v", err)
	}

	later := testClock.Add(2 * time.Minute)
	claim, err := store.Claim(ctx, "aging-key", "another-fp", later, time.Minute)
	if err != nil {
		t.Fatalf("claim after expiry failed: %v", err)
	}
	if claim.Outcome != OutcomeProceed {
		t.Fatalf("expected expired entry to be reclaimable, got outcome %d", claim.Outcome)
	}

	removed, err := store.PurgeExpired(ctx, later.Add(2*time.Minute), 10)
	if err != nil {
		t.Fatalf("purge failed: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected one purged entry, got %d", removed)
	}
}

type failingStore struct {
	forgotten bool
}

func (s *failingStore) Claim(context.Context, string, string, time.Time, time.Duration) (Claim, error) {
	return Claim{Outcome: OutcomeProceed}, nil
}

func (s *failingStore) Complete(context.Context, string, string, Result, time.Time, time.Duration) error {
	return errors.New("persist failed")
}

func (s *failingStore) Forget(context.Context, string, string) error {
	s.forgotten = true
	return nil
}

func (s *failingStore) PurgeExpired(context.Context, time.Time, int) (int, error) {
	return 0, nil
}
