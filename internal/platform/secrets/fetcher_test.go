package secrets

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/googleapis/gax-go/v2"
	"go.uber.org/zap"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func newTestFetcher(t *testing.T, client secretManagerClient, extra ...Option) *Fetcher {
	t.Helper()
	opts := append([]Option{
		WithSecretManagerClient(client),
		WithDefaultProject("catalix-test"),
		WithLogger(zap.NewNop()),
	}, extra...)
	fetcher, err := NewFetcher(context.Background(), opts...)
	if err != nil {
		t.Fatalf("NewFetcher returned error: %v", err)
	}
	t.Cleanup(func() { _ = fetcher.Close() })
	return fetcher
}

func writeFallbackFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".secrets.local")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed writing fallback file: %v", err)
	}
	return path
}

func TestResolveCachesRemoteSecret(t *testing.T) {
	ctx := context.Background()

	client := newFakeSecretManager()
	resource := "projects/catalix-test/secrets/media_signer_key/versions/latest"
	client.values[resource] = "pem-data"

	fetcher := newTestFetcher(t, client)

	for i := 0; i < 2; i++ {
		got, err := fetcher.Resolve(ctx, "secret://media_signer_key")
		if err != nil {
			t.Fatalf("Resolve attempt %d returned error: %v", i+1, err)
		}
		if got != "pem-data" {
			t.Fatalf("expected pem-data, got %s", got)
		}
	}

	if calls := client.callCount(resource); calls != 1 {
		t.Fatalf("expected one remote fetch, got %d", calls)
	}
}

func TestResolveHonoursVersionAndProjectQuery(t *testing.T) {
	ctx := context.Background()

	client := newFakeSecretManager()
	resource := "projects/catalix-shared/secrets/media_signer_key/versions/7"
	client.values[resource] = "pinned-value"

	fetcher := newTestFetcher(t, client)

	got, err := fetcher.Resolve(ctx, "secret://media_signer_key?project=catalix-shared&version=7")
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if got != "pinned-value" {
		t.Fatalf("expected pinned-value, got %s", got)
	}
	if calls := client.callCount(resource); calls != 1 {
		t.Fatalf("expected fetch of pinned version, got %d calls", calls)
	}
}

func TestResolveFallsBackWhenSecretManagerUnavailable(t *testing.T) {
	ctx := context.Background()

	client := newFakeSecretManager()
	resource := "projects/catalix-test/secrets/media_signer_key/versions/latest"
	client.errors[resource] = status.Error(codes.PermissionDenied, "denied")

	fallback := writeFallbackFile(t, "secret://media_signer_key=local-pem\n")
	fetcher := newTestFetcher(t, client, WithFallbackFile(fallback))

	got, err := fetcher.Resolve(ctx, "secret://media_signer_key")
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if got != "local-pem" {
		t.Fatalf("expected fallback value, got %s", got)
	}
}

func TestResolveDoesNotFallBackOnNotFound(t *testing.T) {
	ctx := context.Background()

	client := newFakeSecretManager()
	resource := "projects/catalix-test/secrets/media_signer_key/versions/latest"
	client.errors[resource] = status.Error(codes.NotFound, "missing")

	fallback := writeFallbackFile(t, "secret://media_signer_key=local-pem\n")
	fetcher := newTestFetcher(t, client, WithFallbackFile(fallback))

	if _, err := fetcher.Resolve(ctx, "secret://media_signer_key"); err == nil {
		t.Fatal("expected error for a missing secret")
	}
}

func TestInvalidateForcesRefetch(t *testing.T) {
	ctx := context.Background()

	client := newFakeSecretManager()
	resource := "projects/catalix-test/secrets/media_signer_key/versions/latest"
	client.values[resource] = "pem-data"

	fetcher := newTestFetcher(t, client)

	if _, err := fetcher.Resolve(ctx, "secret://media_signer_key"); err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}

	fetcher.Invalidate("secret://media_signer_key")

	if _, err := fetcher.Resolve(ctx, "secret://media_signer_key"); err != nil {
		t.Fatalf("Resolve after invalidate returned error: %v", err)
	}
	if calls := client.callCount(resource); calls != 2 {
		t.Fatalf("expected refetch after invalidate, got %d calls", calls)
	}
}

func TestResolveRejectsMalformedReferences(t *testing.T) {
	fetcher := newTestFetcher(t, newFakeSecretManager())

	for _, ref := range []string{"", "http://nope", "secret://"} {
		if _, err := fetcher.Resolve(context.Background(), ref); err == nil {
			t.Errorf("expected error for reference %q", ref)
		}
	}
}

func TestNewFetcherWithoutCredentialsUsesFallback(t *testing.T) {
	ctx := context.Background()

	originalFactory := secretManagerClientFactory
	secretManagerClientFactory = func(context.Context, ...option.ClientOption) (*secretmanager.Client, error) {
		return nil, errors.New("no credentials")
	}
	t.Cleanup(func() {
		secretManagerClientFactory = originalFactory
	})

	fallback := writeFallbackFile(t, "secret://media_signer_key=local-pem\n")
	fetcher, err := NewFetcher(ctx, WithFallbackFile(fallback))
	if err != nil {
		t.Fatalf("NewFetcher returned error: %v", err)
	}
	defer fetcher.Close()

	value, err := fetcher.Resolve(ctx, "secret://media_signer_key")
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if value != "local-pem" {
		t.Fatalf("expected local value, got %s", value)
	}
}

type fakeSecretManager struct {
	mu      sync.Mutex
	values  map[string]string
	errors  map[string]error
	counter map[string]int
}

func newFakeSecretManager() *fakeSecretManager {
	return &fakeSecretManager{
		values:  make(map[string]string),
		errors:  make(map[string]error),
		counter: make(map[string]int),
	}
}

func (f *fakeSecretManager) AccessSecretVersion(_ context.Context, req *secretmanagerpb.AccessSecretVersionRequest, _ ...gax.CallOption) (*secretmanagerpb.AccessSecretVersionResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	name := req.GetName()
	f.counter[name]++

	if err, ok := f.errors[name]; ok && err != nil {
		return nil, err
	}
	if value, ok := f.values[name]; ok {
		return &secretmanagerpb.AccessSecretVersionResponse{
			Payload: &secretmanagerpb.SecretPayload{Data: []byte(value)},
		}, nil
	}
	return nil, status.Error(codes.NotFound, "not found")
}

func (f *fakeSecretManager) Close() error { return nil }

func (f *fakeSecretManager) callCount(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.counter[name]
}
