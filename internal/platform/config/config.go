package config

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	defaultEnvFile          = ".env"
	defaultPort             = "8080"
	defaultReadTimeout      = 15 * time.Second
	defaultWriteTimeout     = 30 * time.Second
	defaultIdleTimeout      = 120 * time.Second
	defaultRateLimitDefault = 120
	defaultEnvironment      = "local"
	defaultCurrency         = "EUR"
	defaultFallbackLocale   = "en"
	defaultDeleteBatchSize  = 20
	defaultRefCacheTTL      = 5 * time.Minute
	defaultSignedURLTTL     = 15 * time.Minute
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Environment string
	Server      ServerConfig
	Firestore   FirestoreConfig
	Catalog     CatalogConfig
	Media       MediaConfig
	Events      EventsConfig
	RateLimits  RateLimitConfig
}

// ServerConfig configures HTTP server parameters.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// FirestoreConfig stores database parameters.
type FirestoreConfig struct {
	ProjectID    string
	EmulatorHost string
}

// CatalogConfig carries PIM behaviour settings.
type CatalogConfig struct {
	DefaultCurrency   string
	Locales           []string
	FallbackLocale    string
	DeleteBatchSize   int
	ReferenceCacheTTL time.Duration
}

// MediaConfig lists storage settings used by the media URL resolver.
type MediaConfig struct {
	Bucket            string
	SignerEmail       string
	SignerPrivateKey  string
	SignedURLLifetime time.Duration
	PublicBaseURL     string
	DisableSigning    bool
}

// EventsConfig configures the product lifecycle event publisher.
type EventsConfig struct {
	ProjectID string
	Topic     string
	Enabled   bool
}

// RateLimitConfig controls request throttling.
type RateLimitConfig struct {
	DefaultPerMinute int
}

// SecretResolver resolves references to external secrets (e.g. Secret Manager URIs).
type SecretResolver interface {
	ResolveSecret(ctx context.Context, ref string) (string, error)
}

// SecretResolverFunc adapts ordinary functions to SecretResolver.
type SecretResolverFunc func(context.Context, string) (string, error)

// ResolveSecret resolves the secret using the wrapped function.
func (f SecretResolverFunc) ResolveSecret(ctx context.Context, ref string) (string, error) {
	return f(ctx, ref)
}

// ValidationError is returned when required configuration fields are missing or invalid.
type ValidationError struct {
	fields []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the missing/invalid field list.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// SecretError describes failures while resolving a secret reference.
type SecretError struct {
	Ref string
	Err error
}

// Error implements the error interface.
func (e *SecretError) Error() string {
	return fmt.Sprintf("secret resolution failed for ref %q: %v", e.Ref, e.Err)
}

// Unwrap exposes the underlying error.
func (e *SecretError) Unwrap() error { return e.Err }

var errSecretResolverNotConfigured = errors.New("secret resolver not configured")

// Option customises Load behaviour.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile      string
	envMap       map[string]string
	useSystemEnv bool
	secret       SecretResolver
}

// WithEnvFile overrides the .env file path used for local overrides.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) {
		o.envFile = path
	}
}

// WithEnvMap injects an explicit key/value map for environment lookups. Values
// in the map take precedence over system environment variables.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) {
		o.envMap = values
	}
}

// WithoutSystemEnv disables reading from os.Getenv, relying only on provided maps and .env files.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) {
		o.useSystemEnv = false
	}
}

// WithSecretResolver sets a custom secret resolver used for sm:// references.
func WithSecretResolver(resolver SecretResolver) Option {
	return func(o *loaderOptions) {
		o.secret = resolver
	}
}

// Load assembles the application configuration by combining defaults, .env
// overrides, environment variables, and optional secret manager lookups.
func Load(ctx context.Context, opts ...Option) (Config, error) {
	options := loaderOptions{
		envFile:      defaultEnvFile,
		useSystemEnv: true,
		secret: SecretResolverFunc(func(ctx context.Context, ref string) (string, error) {
			return "", &SecretError{Ref: ref, Err: errSecretResolverNotConfigured}
		}),
	}
	for _, opt := range opts {
		opt(&options)
	}

	dotEnvValues, err := loadDotEnv(options.envFile)
	if err != nil {
		return Config{}, err
	}

	lookup := func(key string) (string, bool) {
		if options.envMap != nil {
			if value, ok := options.envMap[key]; ok {
				return value, true
			}
		}
		if options.useSystemEnv {
			if value, ok := os.LookupEnv(key); ok {
				return value, true
			}
		}
		if dotEnvValues != nil {
			if value, ok := dotEnvValues[key]; ok {
				return value, true
			}
		}
		return "", false
	}

	cfg := Config{
		Environment: strings.ToLower(stringWithDefault(lookup, "PIM_ENVIRONMENT", defaultEnvironment)),
		Server: ServerConfig{
			Port:         stringWithDefault(lookup, "PIM_SERVER_PORT", defaultPort),
			ReadTimeout:  durationWithDefault(lookup, "PIM_SERVER_READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout: durationWithDefault(lookup, "PIM_SERVER_WRITE_TIMEOUT", defaultWriteTimeout),
			IdleTimeout:  durationWithDefault(lookup, "PIM_SERVER_IDLE_TIMEOUT", defaultIdleTimeout),
		},
		Firestore: FirestoreConfig{
			ProjectID:    stringWithDefault(lookup, "PIM_FIRESTORE_PROJECT_ID", ""),
			EmulatorHost: stringWithDefault(lookup, "PIM_FIRESTORE_EMULATOR_HOST", ""),
		},
		Catalog: CatalogConfig{
			DefaultCurrency:   strings.ToUpper(stringWithDefault(lookup, "PIM_DEFAULT_CURRENCY", defaultCurrency)),
			Locales:           csvWithDefault(lookup, "PIM_LOCALES"),
			FallbackLocale:    stringWithDefault(lookup, "PIM_FALLBACK_LOCALE", defaultFallbackLocale),
			DeleteBatchSize:   intWithDefault(lookup, "PIM_DELETE_BATCH_SIZE", defaultDeleteBatchSize),
			ReferenceCacheTTL: durationWithDefault(lookup, "PIM_REFERENCE_CACHE_TTL", defaultRefCacheTTL),
		},
		Media: MediaConfig{
			Bucket:            stringWithDefault(lookup, "PIM_MEDIA_BUCKET", ""),
			SignerEmail:       stringWithDefault(lookup, "PIM_MEDIA_SIGNER_EMAIL", ""),
			SignerPrivateKey:  stringWithDefault(lookup, "PIM_MEDIA_SIGNER_KEY", ""),
			SignedURLLifetime: durationWithDefault(lookup, "PIM_MEDIA_SIGNED_URL_TTL", defaultSignedURLTTL),
			PublicBaseURL:     stringWithDefault(lookup, "PIM_MEDIA_PUBLIC_BASE_URL", ""),
			DisableSigning:    boolWithDefault(lookup, "PIM_MEDIA_DISABLE_SIGNING", false),
		},
		Events: EventsConfig{
			ProjectID: stringWithDefault(lookup, "PIM_EVENTS_PROJECT_ID", ""),
			Topic:     stringWithDefault(lookup, "PIM_EVENTS_TOPIC", ""),
			Enabled:   boolWithDefault(lookup, "PIM_EVENTS_ENABLED", true),
		},
		RateLimits: RateLimitConfig{
			DefaultPerMinute: intWithDefault(lookup, "PIM_RATELIMIT_DEFAULT_PER_MIN", defaultRateLimitDefault),
		},
	}

	if len(cfg.Catalog.Locales) == 0 {
		cfg.Catalog.Locales = []string{cfg.Catalog.FallbackLocale}
	}
	if cfg.Events.ProjectID == "" {
		cfg.Events.ProjectID = cfg.Firestore.ProjectID
	}

	// Resolve secrets when values reference Secret Manager.
	secretFields := []*string{
		&cfg.Media.SignerPrivateKey,
	}
	for _, field := range secretFields {
		resolved, err := resolveSecret(ctx, *field, options.secret)
		if err != nil {
			return Config{}, err
		}
		*field = resolved
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func resolveSecret(ctx context.Context, value string, resolver SecretResolver) (string, error) {
	if value == "" || !isSecretReference(value) {
		return value, nil
	}
	normalized := normalizeSecretReference(value)
	if resolver == nil {
		return "", &SecretError{Ref: normalized, Err: errSecretResolverNotConfigured}
	}
	secret, err := resolver.ResolveSecret(ctx, normalized)
	if err != nil {
		return "", &SecretError{Ref: normalized, Err: err}
	}
	return secret, nil
}

func validateConfig(cfg Config) error {
	var missing []string

	if cfg.Server.Port == "" {
		missing = append(missing, "Server.Port")
	}
	if cfg.Firestore.ProjectID == "" {
		missing = append(missing, "Firestore.ProjectID")
	}
	if cfg.Catalog.DefaultCurrency == "" {
		missing = append(missing, "Catalog.DefaultCurrency")
	}
	if cfg.Catalog.FallbackLocale == "" {
		missing = append(missing, "Catalog.FallbackLocale")
	}
	if cfg.Catalog.DeleteBatchSize <= 0 {
		missing = append(missing, "Catalog.DeleteBatchSize")
	}
	if cfg.Events.Enabled && cfg.Events.Topic == "" {
		missing = append(missing, "Events.Topic")
	}

	if len(missing) > 0 {
		return &ValidationError{fields: missing}
	}
	return nil
}

func isSecretReference(value string) bool {
	trimmed := strings.TrimSpace(value)
	return strings.HasPrefix(trimmed, "secret://") || strings.HasPrefix(trimmed, "sm://")
}

func normalizeSecretReference(value string) string {
	trimmed := strings.TrimSpace(value)
	if strings.HasPrefix(trimmed, "sm://") {
		return "secret://" + strings.TrimPrefix(trimmed, "sm://")
	}
	return trimmed
}

func loadDotEnv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}

	file, err := os.Open(absPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: unable to read %s: %w", absPath, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	values := make(map[string]string)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "export ") {
			line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if key == "" {
			continue
		}
		value = strings.Trim(value, "\"'")
		values[key] = value
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("config: failed parsing %s: %w", absPath, err)
	}
	return values, nil
}

func stringWithDefault(lookup func(string) (string, bool), key, fallback string) string {
	if value, ok := lookup(key); ok && value != "" {
		return value
	}
	return fallback
}

func durationWithDefault(lookup func(string) (string, bool), key string, fallback time.Duration) time.Duration {
	if value, ok := lookup(key); ok && value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func intWithDefault(lookup func(string) (string, bool), key string, fallback int) int {
	if value, ok := lookup(key); ok && value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func boolWithDefault(lookup func(string) (string, bool), key string, fallback bool) bool {
	if value, ok := lookup(key); ok && value != "" {
		switch strings.ToLower(value) {
		case "true", "1", "yes", "on":
			return true
		case "false", "0", "no", "off":
			return false
		}
	}
	return fallback
}

func csvWithDefault(lookup func(string) (string, bool), key string) []string {
	raw, ok := lookup(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
