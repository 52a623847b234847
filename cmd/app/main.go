package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"geauxclean/internal/backend"
	"geauxclean/internal/config"
	"geauxclean/internal/domain"
	"geauxclean/internal/events"
	"geauxclean/internal/export"
	"geauxclean/internal/logging"
	"geauxclean/internal/metrics"
	"geauxclean/internal/models"
	"geauxclean/internal/notify"
	"geauxclean/internal/realtime"
	"geauxclean/internal/repository"
	"geauxclean/internal/service"
	"geauxclean/internal/worker"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, loadErr := loadConfigAndLogger()
	if loadErr != nil {
		return loadErr
	}
	if closer != nil {
		defer (func(c io.Closer) { _ = c.Close() })(closer)
	}

	if err := prepareDirectories(cfg, logger); err != nil {
		return err
	}

	metrics.Register()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisClient := initRedis(ctx, cfg, logger)
	if redisClient != nil {
		defer func() { _ = repository.Close(redisClient) }()
	}

	store, auth, feed, storeCloser, err := initBackend(ctx, cfg, redisClient, logger)
	if err != nil {
		return err
	}
	if storeCloser != nil {
		defer func() { _ = storeCloser.Close() }()
	}

	drafts := initDraftRepository(cfg, redisClient, logger)

	// Уведомления доставляются фоновым воркером
	notifyRetry := worker.RetryPolicy{MaxRetries: cfg.Notify.MaxRetries, InitialDelay: time.Second, MaxDelay: 10 * time.Second, BackoffFactor: 2}
	notifier := notify.NewWorker(cfg.Notify.QueueSize, notifyRetry, logger)
	go notifier.Start(ctx)

	if cfg.Monitoring.PrometheusEnabled {
		startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, logger)
	}

	location, err := time.LoadLocation(cfg.App.Timezone)
	if err != nil {
		logger.Warn().Err(err).Str("timezone", cfg.App.Timezone).Msg("Unknown timezone, using local")
		location = time.Local
	}

	eventBus := events.NewEventBus()
	sessions := service.NewSessionService(auth, store, eventBus, logger)
	catalog := service.NewCatalogService(store, time.Duration(models.CatalogCacheTTL)*time.Second, logger)

	signInLimiter := rate.NewLimiter(rate.Limit(cfg.Wizard.SignInRateLimit), cfg.Wizard.SignInBurst)
	provisionRetry := worker.RetryPolicy{MaxRetries: cfg.Wizard.ProvisionMaxAttempts, InitialDelay: 200 * time.Millisecond, MaxDelay: 2 * time.Second, BackoffFactor: 2}
	identity := service.NewIdentityResolver(auth, store, signInLimiter, provisionRetry, logger)

	wizard := service.NewBookingWizard(catalog, identity, store, drafts, sessions, eventBus, location, cfg.Wizard.MinPasswordLength, logger)
	wizard.OnSuccess(func(booking models.Booking) {
		notifier.Notify(domain.NoticeSuccess, fmt.Sprintf("Booking confirmed for %s", booking.ScheduledAt.In(location).Format("Jan 2 at 3:04 PM")))
	})

	reports := export.NewReporter(store, cfg.Exports.Path, logger)
	dashboard := service.NewAdminDashboard(store, feed, notifier, eventBus, reports, logger)

	if _, err := sessions.Refresh(ctx); err != nil {
		logger.Warn().Err(err).Msg("Session refresh failed at startup")
	}

	// Панель администратора живет ровно столько, сколько живет admin-сессия
	sessions.OnSessionChange(eventBus, func(payload events.SessionEventPayload) {
		if payload.Role == models.RoleAdmin {
			if err := dashboard.Start(ctx); err != nil {
				logger.Error().Err(err).Msg("Admin dashboard start failed")
				notifier.Notify(domain.NoticeError, "Failed to load admin dashboard")
			}
			return
		}
		dashboard.Stop()
	})

	if sessions.IsAdmin() {
		if err := dashboard.Start(ctx); err != nil {
			logger.Error().Err(err).Msg("Admin dashboard start failed")
		}
	}

	logger.Info().
		Str("mode", cfg.Backend.Mode).
		Str("environment", cfg.App.Environment).
		Msg("GeauxCleanup client started")

	<-ctx.Done()

	dashboard.Stop()
	wizard.Close(context.Background())
	stop()

	// Даем воркеру уведомлений дослать очередь
	select {
	case <-notifier.Done():
	case <-time.After(5 * time.Second):
	}

	logger.Info().Msg("Shutdown complete.")
	return nil
}

func loadConfigAndLogger() (*config.Config, *zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, err
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, nil, nil, err
	}
	logger := baseLogger.With().Str("component", "app-main").Logger()

	return cfg, &logger, closer, nil
}

func prepareDirectories(cfg *config.Config, logger *zerolog.Logger) error {
	if cfg.Backend.Mode == "local" {
		if err := os.MkdirAll(filepath.Dir(cfg.Backend.LocalPath), 0o755); err != nil {
			logger.Error().Err(err).Msg("Failed to create data directory")
			return err
		}
	}
	if err := os.MkdirAll(cfg.Exports.Path, 0o755); err != nil {
		logger.Error().Err(err).Msg("Failed to create export directory")
		return err
	}
	return nil
}

func initRedis(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if !cfg.Redis.Enabled {
		return nil
	}

	client := repository.NewRedisClient(cfg.Redis)
	if err := repository.Ping(ctx, client); err != nil {
		logger.Warn().Err(err).Msg("Redis unavailable")
	}
	return client
}

// initBackend builds the store, auth client and change feed for the
// configured mode. In rest mode the change feed rides Redis pub/sub; in
// local mode the sqlite store publishes straight to an in-process bus.
func initBackend(
	ctx context.Context,
	cfg *config.Config,
	redisClient *redis.Client,
	logger *zerolog.Logger,
) (domain.Store, domain.AuthClient, domain.ChangeFeed, io.Closer, error) {
	switch cfg.Backend.Mode {
	case "rest":
		auth := backend.NewRestAuth(cfg.Backend.BaseURL, cfg.Backend.AnonKey)
		store := backend.NewRestStore(cfg.Backend.BaseURL, cfg.Backend.AnonKey, auth.Token)
		feed := realtime.NewRedisFeed(redisClient, worker.RetryPolicy{}, logger)
		return store, auth, feed, nil, nil

	case "local":
		feed := realtime.NewBusFeed()
		store, err := backend.NewLocalStore(cfg.Backend.LocalPath, feed)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to open local backend")
			return nil, nil, nil, nil, err
		}
		if err := store.SeedServices(ctx, cfg.Services); err != nil {
			logger.Error().Err(err).Msg("Failed to seed service catalog")
		}
		auth := backend.NewLocalAuth(store)
		return store, auth, feed, store, nil

	default:
		return nil, nil, nil, nil, fmt.Errorf("unknown backend mode %q", cfg.Backend.Mode)
	}
}

func initDraftRepository(cfg *config.Config, redisClient *redis.Client, logger *zerolog.Logger) domain.DraftRepository {
	ttl := time.Duration(models.DefaultDraftTTL) * time.Second
	fallback := repository.NewMemoryDraftRepository(ttl)
	if redisClient == nil {
		return fallback
	}
	primary := repository.NewRedisDraftRepository(redisClient, ttl)
	return repository.NewFailoverDraftRepository(primary, fallback, logger)
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info().Int("port", port).Msg("Metrics server started")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("Metrics server error")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()
}
