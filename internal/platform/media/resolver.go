package media

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"cloud.google.com/go/storage"

	"github.com/catalix/pim-api/internal/domain"
)

const defaultURLLifetime = 15 * time.Minute

// Object is a stored media record referencing objects in the media bucket.
type Object struct {
	ID            int64
	Titles        map[string]string
	ObjectPath    string
	ThumbnailPath string
	MimeType      string
	Width         int
	Height        int
}

// Title returns the localized title, falling back to any available one.
func (o Object) Title(locale string) string {
	if title, ok := o.Titles[locale]; ok && title != "" {
		return title
	}
	for _, title := range o.Titles {
		if title != "" {
			return title
		}
	}
	return ""
}

// Store loads media records by id.
type Store interface {
	Get(ctx context.Context, id int64) (Object, error)
}

// Resolver decorates stored media records with accessible URLs, either signed
// GCS URLs or public base URL concatenation when signing is disabled.
type Resolver struct {
	store          Store
	signer         Signer
	bucket         string
	lifetime       time.Duration
	publicBaseURL  string
	disableSigning bool
	now            func() time.Time
}

// ResolverOption customises resolver behaviour.
type ResolverOption func(*Resolver)

// WithURLLifetime overrides the signed URL lifetime.
func WithURLLifetime(lifetime time.Duration) ResolverOption {
	return func(r *Resolver) {
		if lifetime > 0 {
			r.lifetime = lifetime
		}
	}
}

// WithPublicBaseURL serves objects from a public base URL instead of signing.
func WithPublicBaseURL(baseURL string) ResolverOption {
	return func(r *Resolver) {
		baseURL = strings.TrimSpace(baseURL)
		if baseURL != "" {
			r.publicBaseURL = strings.TrimRight(baseURL, "/")
			r.disableSigning = true
		}
	}
}

// WithClock injects a custom clock.
func WithClock(clock func() time.Time) ResolverOption {
	return func(r *Resolver) {
		if clock != nil {
			r.now = clock
		}
	}
}

// NewResolver constructs a media resolver. A signer is required unless a
// public base URL option is applied.
func NewResolver(store Store, signer Signer, bucket string, opts ...ResolverOption) (*Resolver, error) {
	if store == nil {
		return nil, errors.New("media: store is required")
	}
	bucket = strings.TrimSpace(bucket)

	resolver := &Resolver{
		store:    store,
		signer:   signer,
		bucket:   bucket,
		lifetime: defaultURLLifetime,
		now:      time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(resolver)
		}
	}

	if !resolver.disableSigning {
		if signer == nil || strings.TrimSpace(signer.Email()) == "" {
			return nil, errors.New("media: signer is required")
		}
		if bucket == "" {
			return nil, errors.New("media: bucket is required")
		}
	}
	return resolver, nil
}

// GetByID loads a media record and resolves its URLs for the given locale.
func (r *Resolver) GetByID(ctx context.Context, id int64, locale string) (domain.MediaView, error) {
	if r == nil {
		return domain.MediaView{}, errors.New("media: resolver not initialised")
	}
	if id <= 0 {
		return domain.MediaView{}, errors.New("media: media id is required")
	}

	object, err := r.store.Get(ctx, id)
	if err != nil {
		return domain.MediaView{}, fmt.Errorf("media: load media %d: %w", id, err)
	}

	view := domain.MediaView{
		ID:       object.ID,
		Title:    object.Title(locale),
		MimeType: object.MimeType,
		Width:    object.Width,
		Height:   object.Height,
		Locale:   locale,
	}

	if object.ObjectPath != "" {
		view.URL, err = r.resolveURL(ctx, object.ObjectPath)
		if err != nil {
			return domain.MediaView{}, err
		}
	}
	if object.ThumbnailPath != "" {
		view.ThumbnailURL, err = r.resolveURL(ctx, object.ThumbnailPath)
		if err != nil {
			return domain.MediaView{}, err
		}
	}
	return view, nil
}

func (r *Resolver) resolveURL(ctx context.Context, object string) (string, error) {
	object = strings.TrimLeft(strings.TrimSpace(object), "/")
	if object == "" {
		return "", errors.New("media: object path is empty")
	}

	if r.disableSigning {
		return r.publicBaseURL + "/" + pathEscapeSegments(object), nil
	}

	expires := r.now().UTC().Add(r.lifetime)
	signed, err := storage.SignedURL(r.bucket, object, &storage.SignedURLOptions{
		GoogleAccessID: r.signer.Email(),
		Method:         "GET",
		Expires:        expires,
		Scheme:         storage.SigningSchemeV4,
		SignBytes: func(payload []byte) ([]byte, error) {
			return r.signer.SignBytes(ctx, payload)
		},
	})
	if err != nil {
		return "", fmt.Errorf("media: sign url for %s: %w", object, err)
	}
	return signed, nil
}

func pathEscapeSegments(object string) string {
	segments := strings.Split(object, "/")
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}
	return strings.Join(segments, "/")
}
