package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/catalix/pim-api/internal/domain"
	"github.com/catalix/pim-api/internal/platform/locale"
	"github.com/catalix/pim-api/internal/platform/pagination"
	"github.com/catalix/pim-api/internal/platform/requestctx"
)

const defaultRequestBodyLimit = 256 * 1024

var (
	errBodyTooLarge = errors.New("request body too large")
	errEmptyBody    = errors.New("request body is required")
)

func readLimitedBody(r *http.Request, limit int64) ([]byte, error) {
	if r == nil || r.Body == nil {
		return nil, errEmptyBody
	}
	if limit <= 0 {
		limit = defaultRequestBodyLimit
	}
	reader := io.LimitReader(r.Body, limit+1)
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, errEmptyBody
	}
	if int64(len(data)) > limit {
		return nil, errBodyTooLarge
	}
	return data, nil
}

func writeJSONResponse(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func formatTimePointer(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatTime(*t)
}

func parseIDParam(r *http.Request, name string) (int64, error) {
	raw := strings.TrimSpace(chi.URLParam(r, name))
	if raw == "" {
		return 0, errors.New(name + " is required")
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New(name + " must be a positive integer")
	}
	return id, nil
}

func parseIDList(raw string) ([]int64, error) {
	parts := strings.Split(raw, ",")
	ids := make([]int64, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil || id <= 0 {
			return nil, errors.New("ids must be positive integers")
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func parsePaginationParams(r *http.Request) (domain.Pagination, error) {
	params, err := pagination.Parse(r.URL.Query(), pagination.Options{})
	if err != nil {
		return domain.Pagination{}, err
	}
	return domain.Pagination{
		PageSize:  params.PageSize,
		PageToken: params.PageToken,
	}, nil
}

// resolveRequestLocale negotiates the translation locale for a request. An
// explicit locale query parameter wins over the Accept-Language header; the
// authenticated user's stored locale acts as the fallback preference.
func resolveRequestLocale(r *http.Request, locales *locale.Resolver) string {
	userLocale := requestctx.Locale(r.Context())
	if locales == nil {
		if queried := strings.TrimSpace(r.URL.Query().Get("locale")); queried != "" {
			return queried
		}
		return userLocale
	}
	requestLocale := strings.TrimSpace(r.URL.Query().Get("locale"))
	if requestLocale == "" {
		requestLocale = locales.ResolveAcceptLanguage(r.Header.Get("Accept-Language"))
	}
	return locales.Resolve(userLocale, requestLocale)
}

func actingUserID(r *http.Request) int64 {
	if raw := strings.TrimSpace(r.Header.Get("X-User-ID")); raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil && id > 0 {
			return id
		}
	}
	return requestctx.UserID(r.Context())
}
