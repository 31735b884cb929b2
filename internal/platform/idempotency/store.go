package idempotency

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"
	"time"
)

// DefaultTTL is how long completed entries remain replayable.
const DefaultTTL = 24 * time.Hour

// State tracks an entry through its lifecycle.
type State string

const (
	// StatePending marks a key that is claimed but whose response is not stored yet.
	StatePending State = "pending"
	// StateDone marks a key whose response is stored and can be replayed.
	StateDone State = "done"
)

// Outcome tells the middleware what to do after claiming a key.
type Outcome int

const (
	// OutcomeProceed means the key is fresh and the request should run.
	OutcomeProceed Outcome = iota
	// OutcomeReplay means a stored response exists and should be returned.
	OutcomeReplay
	// OutcomeInFlight means another request holds the key right now.
	OutcomeInFlight
)

// Entry is the persisted record behind an idempotency key.
type Entry struct {
	Key         string
	Fingerprint string
	State       State
	HTTPStatus  int
	Header      map[string][]string
	Body        []byte
	CreatedAt   time.Time
	UpdatedAt   time.Time
	ExpiresAt   time.Time
}

// Claim is the result of attempting to take ownership of a key.
type Claim struct {
	Outcome Outcome
	Entry   Entry
}

// Result carries the response captured for a completed request.
type Result struct {
	Status int
	Header http.Header
	Body   []byte
}

// Store persists idempotency entries.
type Store interface {
	Claim(ctx context.Context, key, fingerprint string, now time.Time, ttl time.Duration) (Claim, error)
	Complete(ctx context.Context, key, fingerprint string, result Result, now time.Time, ttl time.Duration) error
	Forget(ctx context.Context, key, fingerprint string) error
	PurgeExpired(ctx context.Context, now time.Time, limit int) (int, error)
}

// ErrKeyReused is returned when a key arrives with a different request fingerprint.
var ErrKeyReused = errors.New("idempotency: key reused with a different request")

// entryID keeps arbitrary client keys safe to use as document ids.
func entryID(key string) string {
	return sha256Hex([]byte(strings.TrimSpace(key)))
}

func sha256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// volatileHeaders are dropped before storing a response; they describe the
// original transfer, not the payload.
var volatileHeaders = map[string]struct{}{
	"Content-Length":      {},
	"Date":                {},
	"Connection":          {},
	"Keep-Alive":          {},
	"Proxy-Authenticate":  {},
	"Proxy-Authorization": {},
	"Te":                  {},
	"Trailers":            {},
	"Transfer-Encoding":   {},
	"Upgrade":             {},
}

func storableHeader(header http.Header) map[string][]string {
	if len(header) == 0 {
		return nil
	}
	kept := make(map[string][]string, len(header))
	for name, values := range header {
		canonical := http.CanonicalHeaderKey(name)
		if _, volatile := volatileHeaders[canonical]; volatile {
			continue
		}
		kept[canonical] = append([]string(nil), values...)
	}
	if len(kept) == 0 {
		return nil
	}
	return kept
}

func restoreHeader(stored map[string][]string) http.Header {
	header := make(http.Header, len(stored))
	for name, values := range stored {
		header[name] = append([]string(nil), values...)
	}
	return header
}
