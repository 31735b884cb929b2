package idempotency

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/catalix/pim-api/internal/platform/requestctx"
)

const (
	defaultHeaderName = "Idempotency-Key"
	replayHeaderName  = "X-Idempotent-Replay"
)

// Logger receives persistence failures that happen after the response was produced.
type Logger interface {
	Printf(format string, args ...any)
}

type middlewareConfig struct {
	headerName string
	ttl        time.Duration
	methods    map[string]struct{}
	clock      func() time.Time
	logger     Logger
}

// MiddlewareOption customises middleware behaviour.
type MiddlewareOption func(*middlewareConfig)

// WithHeader overrides the header carrying the idempotency key.
func WithHeader(name string) MiddlewareOption {
	return func(cfg *middlewareConfig) {
		if name = strings.TrimSpace(name); name != "" {
			cfg.headerName = name
		}
	}
}

// WithTTL sets how long completed entries are retained.
func WithTTL(ttl time.Duration) MiddlewareOption {
	return func(cfg *middlewareConfig) {
		if ttl > 0 {
			cfg.ttl = ttl
		}
	}
}

// WithMethods restricts the HTTP methods the middleware guards.
func WithMethods(methods ...string) MiddlewareOption {
	return func(cfg *middlewareConfig) {
		if len(methods) == 0 {
			return
		}
		cfg.methods = make(map[string]struct{}, len(methods))
		for _, method := range methods {
			if method = strings.ToUpper(strings.TrimSpace(method)); method != "" {
				cfg.methods[method] = struct{}{}
			}
		}
	}
}

// WithLogger injects a logger for background persistence errors.
func WithLogger(logger Logger) MiddlewareOption {
	return func(cfg *middlewareConfig) {
		cfg.logger = logger
	}
}

// WithClock overrides the time source, primarily for testing.
func WithClock(clock func() time.Time) MiddlewareOption {
	return func(cfg *middlewareConfig) {
		if clock != nil {
			cfg.clock = clock
		}
	}
}

func mutatingMethods() map[string]struct{} {
	return map[string]struct{}{
		http.MethodPost:   {},
		http.MethodPut:    {},
		http.MethodPatch:  {},
		http.MethodDelete: {},
	}
}

// Middleware makes mutating requests carrying an Idempotency-Key safe to
// retry: the first request runs and its response is stored, retries with the
// same key and payload get the stored response back, and a reused key with a
// different payload is rejected.
func Middleware(store Store, opts ...MiddlewareOption) func(http.Handler) http.Handler {
	if store == nil {
		return func(next http.Handler) http.Handler { return next }
	}

	cfg := middlewareConfig{
		headerName: defaultHeaderName,
		ttl:        DefaultTTL,
		methods:    mutatingMethods(),
		clock:      time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.ttl <= 0 {
		cfg.ttl = DefaultTTL
	}
	if len(cfg.methods) == 0 {
		cfg.methods = mutatingMethods()
	}
	if cfg.clock == nil {
		cfg.clock = time.Now
	}

	return func(next http.Handler) http.Handler {
		if next == nil {
			next = http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, guarded := cfg.methods[r.Method]; !guarded {
				next.ServeHTTP(w, r)
				return
			}

			key := strings.TrimSpace(r.Header.Get(cfg.headerName))
			if key == "" {
				writeIdempotencyError(w, http.StatusBadRequest, "idempotency_key_required", "missing idempotency key header")
				return
			}

			body, err := bufferRequestBody(r)
			if err != nil {
				writeIdempotencyError(w, http.StatusInternalServerError, "idempotency_read_body_failed", "unable to read request body")
				return
			}

			requester := requesterFrom(r.Context())
			fingerprint := fingerprintRequest(r, body, requester)
			storeKey := key + "|" + requester
			now := cfg.clock().UTC()

			claim, err := store.Claim(r.Context(), storeKey, fingerprint, now, cfg.ttl)
			if err != nil {
				if errors.Is(err, ErrKeyReused) {
					writeIdempotencyError(w, http.StatusConflict, "idempotency_key_conflict", "idempotency key already used for a different request")
					return
				}
				if cfg.logger != nil {
					cfg.logger.Printf("idempotency: claim failed for key %s: %v", key, err)
				}
				writeIdempotencyError(w, http.StatusInternalServerError, "idempotency_store_error", "unable to process idempotency key")
				return
			}

			switch claim.Outcome {
			case OutcomeReplay:
				replayEntry(w, claim.Entry)
				return
			case OutcomeInFlight:
				writeIdempotencyError(w, http.StatusConflict, "idempotency_in_progress", "another request is processing this idempotency key")
				return
			}

			capture := newCaptureWriter(w)
			next.ServeHTTP(capture, r)

			result := Result{
				Status: capture.status(),
				Header: capture.headerCopy(),
				Body:   capture.body(),
			}
			if err := store.Complete(r.Context(), storeKey, fingerprint, result, cfg.clock().UTC(), cfg.ttl); err != nil {
				if cfg.logger != nil {
					cfg.logger.Printf("idempotency: failed to persist response for key %s: %v", key, err)
				}
				if forgetErr := store.Forget(r.Context(), storeKey, fingerprint); forgetErr != nil && cfg.logger != nil {
					cfg.logger.Printf("idempotency: failed to release key %s: %v", key, forgetErr)
				}
				writeIdempotencyError(w, http.StatusInternalServerError, "idempotency_store_error", "unable to persist idempotency state")
				return
			}

			if err := capture.flush(); err != nil && cfg.logger != nil {
				cfg.logger.Printf("idempotency: failed to flush response for key %s: %v", key, err)
			}
		})
	}
}

// bufferRequestBody reads the body for fingerprinting and puts a replayable
// copy back on the request.
func bufferRequestBody(r *http.Request) ([]byte, error) {
	if r.Body == nil {
		return nil, nil
	}
	data, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}
	if err := r.Body.Close(); err != nil {
		return nil, err
	}
	r.Body = io.NopCloser(bytes.NewReader(data))
	return data, nil
}

func fingerprintRequest(r *http.Request, body []byte, requester string) string {
	parts := []string{
		strings.ToUpper(r.Method),
		r.URL.Path,
		r.URL.RawQuery,
		r.Host,
		r.Header.Get("Content-Type"),
		requester,
	}
	if len(body) > 0 {
		parts = append(parts, sha256Hex(body))
	}
	return sha256Hex([]byte(strings.Join(parts, "|")))
}

func requesterFrom(ctx context.Context) string {
	if userID := requestctx.UserID(ctx); userID > 0 {
		return strconv.FormatInt(userID, 10)
	}
	return "anonymous"
}

func replayEntry(w http.ResponseWriter, entry Entry) {
	header := w.Header()
	for name := range header {
		header.Del(name)
	}
	for name, values := range restoreHeader(entry.Header) {
		for _, value := range values {
			header.Add(name, value)
		}
	}
	header.Set(replayHeaderName, "true")

	status := entry.HTTPStatus
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	if len(entry.Body) > 0 {
		_, _ = w.Write(entry.Body)
	}
}

func writeIdempotencyError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error":   code,
		"message": message,
	})
}

// captureWriter buffers the handler's response so it can be persisted before
// anything reaches the client.
type captureWriter struct {
	parent     http.ResponseWriter
	header     http.Header
	statusCode int
	buf        bytes.Buffer
}

func newCaptureWriter(parent http.ResponseWriter) *captureWriter {
	return &captureWriter{parent: parent, header: make(http.Header)}
}

func (c *captureWriter) Header() http.Header { return c.header }

func (c *captureWriter) WriteHeader(status int) {
	if status <= 0 {
		status = http.StatusOK
	}
	c.statusCode = status
}

func (c *captureWriter) Write(data []byte) (int, error) {
	if c.statusCode == 0 {
		c.statusCode = http.StatusOK
	}
	return c.buf.Write(data)
}

func (c *captureWriter) status() int {
	if c.statusCode == 0 {
		return http.StatusOK
	}
	return c.statusCode
}

func (c *captureWriter) body() []byte {
	if c.buf.Len() == 0 {
		return nil
	}
	return c.buf.Bytes()
}

func (c *captureWriter) headerCopy() http.Header {
	copied := make(http.Header, len(c.header))
	for name, values := range c.header {
		copied[name] = append([]string(nil), values...)
	}
	return copied
}

func (c *captureWriter) flush() error {
	dst := c.parent.Header()
	for name := range dst {
		dst.Del(name)
	}
	for name, values := range c.header {
		for _, value := range values {
			dst.Add(name, value)
		}
	}
	c.parent.WriteHeader(c.status())
	if c.buf.Len() == 0 {
		return nil
	}
	_, err := c.parent.Write(c.buf.Bytes())
	return err
}
