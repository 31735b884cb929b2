package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"cloud.google.com/go/pubsub"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/catalix/pim-api/internal/di"
	"github.com/catalix/pim-api/internal/handlers"
	"github.com/catalix/pim-api/internal/platform/config"
	pfirestore "github.com/catalix/pim-api/internal/platform/firestore"
	"github.com/catalix/pim-api/internal/platform/idempotency"
	"github.com/catalix/pim-api/internal/platform/jobs"
	"github.com/catalix/pim-api/internal/platform/locale"
	"github.com/catalix/pim-api/internal/platform/media"
	"github.com/catalix/pim-api/internal/platform/observability"
	"github.com/catalix/pim-api/internal/platform/secrets"
	firestoreRepo "github.com/catalix/pim-api/internal/repositories/firestore"
	"github.com/catalix/pim-api/internal/services"
)

func main() {
	ctx := context.Background()
	startedAt := time.Now().UTC()

	baseLogger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()

	logger := baseLogger.Named("api")
	ctx = observability.WithLogger(ctx, logger)

	fetcher, err := secrets.NewFetcher(ctx, secrets.WithLogger(logger.Named("secrets")))
	if err != nil {
		logger.Fatal("failed to initialise secret fetcher", zap.Error(err))
	}
	defer func() {
		if err := fetcher.Close(); err != nil {
			logger.Warn("secret fetcher close error", zap.Error(err))
		}
	}()

	cfg, err := config.Load(ctx,
		config.WithSecretResolver(config.SecretResolverFunc(fetcher.ResolveSecret)),
	)
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	buildInfo := buildInfoFromEnv(cfg, startedAt)

	firestoreProvider := pfirestore.NewProvider(cfg.Firestore)
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := firestoreProvider.Close(closeCtx); err != nil {
			logger.Warn("firestore close error", zap.Error(err))
		}
	}()

	registry, err := firestoreRepo.NewRegistry(firestoreProvider)
	if err != nil {
		logger.Fatal("failed to initialise repositories", zap.Error(err))
	}

	mediaResolver, err := newMediaResolver(registry, cfg)
	if err != nil {
		logger.Fatal("failed to initialise media resolver", zap.Error(err))
	}

	var eventSink services.ProductEventSink
	if cfg.Events.Enabled {
		pubsubClient, err := pubsub.NewClient(ctx, cfg.Events.ProjectID)
		if err != nil {
			logger.Fatal("failed to initialise pubsub client", zap.Error(err))
		}
		topic := pubsubClient.Topic(cfg.Events.Topic)
		defer func() {
			topic.Stop()
			if err := pubsubClient.Close(); err != nil {
				logger.Warn("pubsub close error", zap.Error(err))
			}
		}()

		eventSink, err = jobs.NewPubSubEventPublisher(topic)
		if err != nil {
			logger.Fatal("failed to initialise event publisher", zap.Error(err))
		}
	}

	container, err := di.NewContainer(ctx, cfg, registry, di.Extras{
		Media:  mediaResolver,
		Events: eventSink,
		Logger: logger,
		Build:  buildInfo,
	})
	if err != nil {
		logger.Fatal("failed to build service container", zap.Error(err))
	}

	locales, err := locale.NewResolver(cfg.Catalog.Locales, cfg.Catalog.FallbackLocale)
	if err != nil {
		logger.Fatal("failed to initialise locale resolver", zap.Error(err))
	}

	productHandlers := handlers.NewProductHandlers(container.Services.Products, container.Services.Audit, locales)
	if cfg.RateLimits.DefaultPerMinute > 0 {
		productHandlers = productHandlers.WithWriteLimit(cfg.RateLimits.DefaultPerMinute, time.Minute)
	}
	variantHandlers := handlers.NewVariantHandlers(container.Services.Variants, container.Services.Products, locales)
	variantAttributeHandlers := handlers.NewVariantAttributeHandlers(container.Services.VariantAttributes, locales)
	healthHandlers := handlers.NewHealthHandlers(container.Services.System)

	firestoreClient, err := firestoreProvider.Client(ctx)
	if err != nil {
		logger.Fatal("failed to obtain firestore client", zap.Error(err))
	}
	idempotencyStore := idempotency.NewFirestoreStore(firestoreClient)

	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go sweepIdempotencyKeys(sweepCtx, idempotencyStore, logger.Named("idempotency"))

	projectID := cfg.Firestore.ProjectID
	middlewares := []func(http.Handler) http.Handler{
		observability.InjectLoggerMiddleware(logger.Named("http")),
		observability.TraceMiddleware(projectID),
		observability.RecoveryMiddleware(logger.Named("http")),
		observability.RequestLoggerMiddleware(projectID),
		idempotency.Middleware(idempotencyStore, idempotency.WithLogger(zap.NewStdLog(logger.Named("idempotency")))),
	}

	router := handlers.NewRouter(
		handlers.WithMiddlewares(middlewares...),
		handlers.WithHealthHandlers(healthHandlers),
		handlers.WithProductRoutes(func(r chi.Router) {
			productHandlers.Routes(r)
			variantHandlers.Routes(r)
			variantAttributeHandlers.Routes(r)
		}),
	)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serverLogger := logger.Named("http").With(zap.String("addr", server.Addr))
	go func() {
		serverLogger.Info("catalix pim api listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverLogger.Fatal("http server error", zap.Error(err))
		}
	}()

	<-shutdown
	logger.Info("shutdown signal received; draining requests")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}

	closeCtx, closeCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer closeCancel()
	if err := container.Close(closeCtx); err != nil {
		logger.Warn("container close error", zap.Error(err))
	}
}

func buildInfoFromEnv(cfg config.Config, started time.Time) services.BuildInfo {
	version := strings.TrimSpace(os.Getenv("PIM_BUILD_VERSION"))
	if version == "" {
		version = "dev"
	}
	commit := strings.TrimSpace(os.Getenv("PIM_BUILD_COMMIT_SHA"))
	if commit == "" {
		commit = "unknown"
	}
	return services.BuildInfo{
		Version:     version,
		CommitSHA:   commit,
		Environment: cfg.Environment,
		StartedAt:   started,
	}
}

func newMediaResolver(registry *firestoreRepo.Registry, cfg config.Config) (services.MediaResolver, error) {
	store := registry.Media()

	if cfg.Media.PublicBaseURL != "" {
		return media.NewResolver(store, nil, cfg.Media.Bucket,
			media.WithPublicBaseURL(cfg.Media.PublicBaseURL),
			media.WithURLLifetime(cfg.Media.SignedURLLifetime),
		)
	}

	signer, err := media.NewServiceAccountSigner(cfg.Media.SignerEmail, cfg.Media.SignerPrivateKey)
	if err != nil {
		return nil, err
	}
	return media.NewResolver(store, signer, cfg.Media.Bucket,
		media.WithURLLifetime(cfg.Media.SignedURLLifetime),
	)
}

const (
	idempotencySweepInterval = time.Hour
	idempotencySweepBatch    = 200
)

func sweepIdempotencyKeys(ctx context.Context, store idempotency.Store, logger *zap.Logger) {
	ticker := time.NewTicker(idempotencySweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := store.PurgeExpired(ctx, time.Now().UTC(), idempotencySweepBatch)
			if err != nil {
				logger.Warn("idempotency sweep failed", zap.Error(err))
				continue
			}
			if removed > 0 {
				logger.Debug("idempotency sweep removed expired keys", zap.Int("count", removed))
			}
		}
	}
}
