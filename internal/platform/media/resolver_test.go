package media

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/catalix/pim-api/internal/domain"
)

type stubStore struct {
	objects map[int64]Object
	err     error
}

func (s *stubStore) Get(_ context.Context, id int64) (Object, error) {
	if s.err != nil {
		return Object{}, s.err
	}
	object, ok := s.objects[id]
	if !ok {
		return Object{}, errors.New("not found")
	}
	return object, nil
}

func testKeyPEM(t *testing.T) string {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	block := &pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)}
	return string(pem.EncodeToMemory(block))
}

func TestResolverPublicBaseURL(t *testing.T) {
	store := &stubStore{objects: map[int64]Object{
		7: {
			ID:            7,
			Titles:        map[string]string{"en": "Hex bolt", "de": "Sechskantschraube"},
			ObjectPath:    "products/7/bolt 01.png",
			ThumbnailPath: "products/7/thumb.png",
			MimeType:      "image/png",
			Width:         800,
			Height:        600,
		},
	}}

	resolver, err := NewResolver(store, nil, "", WithPublicBaseURL("https://cdn.example.com/media/"))
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}

	view, err := resolver.GetByID(context.Background(), 7, "de")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}

	want := domain.MediaView{
		ID:           7,
		Title:        "Sechskantschraube",
		URL:          "https://cdn.example.com/media/products/7/bolt%2001.png",
		ThumbnailURL: "https://cdn.example.com/media/products/7/thumb.png",
		MimeType:     "image/png",
		Width:        800,
		Height:       600,
		Locale:       "de",
	}
	if view != want {
		t.Fatalf("got %#v want %#v", view, want)
	}
}

func TestResolverSignedURL(t *testing.T) {
	signer, err := NewServiceAccountSigner("svc@test.iam.gserviceaccount.com", testKeyPEM(t))
	if err != nil {
		t.Fatalf("NewServiceAccountSigner: %v", err)
	}

	store := &stubStore{objects: map[int64]Object{
		3: {ID: 3, ObjectPath: "products/3/image.jpg", MimeType: "image/jpeg"},
	}}

	clock := func() time.Time { return time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC) }
	resolver, err := NewResolver(store, signer, "catalog-media", WithClock(clock), WithURLLifetime(5*time.Minute))
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}

	view, err := resolver.GetByID(context.Background(), 3, "en")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if !strings.Contains(view.URL, "catalog-media") || !strings.Contains(view.URL, "products/3/image.jpg") {
		t.Fatalf("unexpected url %q", view.URL)
	}
	if !strings.Contains(view.URL, "X-Goog-Signature=") {
		t.Fatalf("expected signed url, got %q", view.URL)
	}
	if view.ThumbnailURL != "" {
		t.Fatalf("expected empty thumbnail url, got %q", view.ThumbnailURL)
	}
}

func TestResolverValidation(t *testing.T) {
	store := &stubStore{}

	if _, err := NewResolver(nil, nil, "bucket"); err == nil {
		t.Fatal("expected error for nil store")
	}
	if _, err := NewResolver(store, nil, "bucket"); err == nil {
		t.Fatal("expected error for missing signer")
	}

	resolver, err := NewResolver(store, nil, "", WithPublicBaseURL("https://cdn.example.com"))
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}
	if _, err := resolver.GetByID(context.Background(), 0, "en"); err == nil {
		t.Fatal("expected error for zero id")
	}

	store.err = errors.New("backend down")
	if _, err := resolver.GetByID(context.Background(), 1, "en"); err == nil {
		t.Fatal("expected store error to propagate")
	}
}
