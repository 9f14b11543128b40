package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"queueaway/internal/api"
	"queueaway/internal/config"
	"queueaway/internal/database"
	"queueaway/internal/domain"
	"queueaway/internal/events"
	"queueaway/internal/logging"
	"queueaway/internal/metrics"
	"queueaway/internal/models"
	"queueaway/internal/notify"
	"queueaway/internal/realtime"
	"queueaway/internal/repository"
	"queueaway/internal/seed"
	"queueaway/internal/service"
	"queueaway/internal/storage"
	"queueaway/internal/worker"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewDB(cfg.Database.Path, logging.Component(logger, "database"))
	if err != nil {
		logger.Error().Err(err).Str("db_path", cfg.Database.Path).Msg("init database")
		return err
	}
	defer db.Close()

	bus := events.NewEventBus()
	db.SetPublisher(bus)
	hub := realtime.NewHub(bus, logging.Component(logger, "realtime"))

	if forwarder := events.NewKafkaForwarder(cfg.Kafka, logging.Component(logger, "kafka")); forwarder != nil {
		forwarder.Attach(bus)
		go forwarder.Run(ctx)
	}

	if cfg.Backup.Enabled {
		backupService := database.NewBackupService(db, cfg.Backup, logging.Component(logger, "backup"))
		go backupService.Start(ctx)
	}

	redisClient := initRedis(ctx, cfg, logger)
	if redisClient != nil {
		defer (func() { _ = repository.Close(redisClient) })()
	}
	prefsRepo := initPreferences(redisClient, logger)

	push := initPush(cfg, logger)
	notifications := initNotifications(ctx, cfg, redisClient, push, bus, logger)

	files, err := storage.New(ctx, cfg.Storage, logger)
	if err != nil {
		logger.Error().Err(err).Str("driver", cfg.Storage.Driver).Msg("init file storage")
		return err
	}

	loc := time.Local
	auth := service.NewAuthService(db, bus, cfg.Auth, logging.Component(logger, "auth"))
	prefs := service.NewPreferenceService(prefsRepo, cfg.Geo, logging.Component(logger, "preferences"))

	queue := service.NewQueueService(db, hub, seedSource(cfg.Queue), logging.Component(logger, "queue"))
	queue.Start(ctx)
	defer queue.Close()

	svc := api.Services{
		Auth:          auth,
		Queue:         queue,
		Booking:       service.NewBookingService(db, db, hub, bus, notifications, loc, logging.Component(logger, "booking")),
		Businesses:    service.NewBusinessService(db, db, hub, notifications, logging.Component(logger, "businesses")),
		Chat:          service.NewChatService(db, prefsRepo, hub, bus, logging.Component(logger, "chat")),
		Profile:       service.NewProfileService(db, files, auth, logging.Component(logger, "profile")),
		Preferences:   prefs,
		Notifications: service.NewNotificationService(push, prefs, notifications, logging.Component(logger, "notifications")),
		Feed:          bus,
		Location:      loc,
	}
	if cfg.Storage.Driver == "local" {
		svc.FilesDir = cfg.Storage.LocalDir
	}

	startMetrics(ctx, cfg, logger)

	httpServer := api.New(cfg.API, svc, logging.Component(logger, "api"))
	return serve(ctx, httpServer, cfg, logger)
}

func loadConfigAndLogger() (*config.Config, *zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, logging.Component(baseLogger, "api-main"), closer, nil
}

func initRedis(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if cfg.Redis.Address == "" {
		logger.Info().Msg("redis not configured, preferences kept in memory")
		return nil
	}

	client := repository.NewRedisClient(cfg.Redis)
	if err := repository.Ping(ctx, client); err != nil {
		logger.Warn().Err(err).Msg("redis unavailable, continuing with in-memory fallback")
		_ = repository.Close(client)
		return nil
	}

	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	return client
}

// preferencesStore is what both the preference and the chat services need from it.
type preferencesStore interface {
	domain.PreferencesRepository
	service.RateLimiter
}

func initPreferences(client *redis.Client, logger *zerolog.Logger) preferencesStore {
	memory := repository.NewMemoryPreferencesRepository()
	if client == nil {
		return memory
	}
	primary := repository.NewRedisPreferencesRepository(client, 0)
	return repository.NewFailoverPreferencesRepository(primary, memory, logging.Component(logger, "preferences-store"))
}

func initPush(cfg *config.Config, logger *zerolog.Logger) domain.PushPublisher {
	if !cfg.PubNub.Enabled() {
		logger.Info().Msg("pubnub not configured, push notifications disabled")
		return nil
	}
	publisher, err := notify.NewPubNubPublisher(cfg.PubNub)
	if err != nil {
		logger.Warn().Err(err).Msg("pubnub init failed, push notifications disabled")
		return nil
	}
	return publisher
}

// initNotifications runs deliveries through asynq when Redis is available and inline
// otherwise.
func initNotifications(
	ctx context.Context,
	cfg *config.Config,
	client *redis.Client,
	push domain.PushPublisher,
	bus *events.EventBus,
	logger *zerolog.Logger,
) domain.NotificationQueue {
	policy := worker.PolicyFromConfig(cfg.Notifications)
	w := worker.NewNotificationWorker(push, bus, policy, logging.Component(logger, "notification-worker"))
	if client == nil {
		return notify.NewInlineQueue(w.Deliver)
	}

	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	}
	go func() {
		if err := w.Run(ctx, w.NewServer(redisOpt, cfg.Notifications)); err != nil {
			logger.Error().Err(err).Msg("notification worker stopped")
		}
	}()

	asynqClient := asynq.NewClient(redisOpt)
	go func() {
		<-ctx.Done()
		_ = asynqClient.Close()
	}()
	return notify.NewTaskQueue(asynqClient, cfg.Notifications.MaxRetries)
}

func seedSource(cfg config.QueueConfig) func() ([]*models.Business, error) {
	if cfg.SkipSeed {
		return nil
	}
	return func() ([]*models.Business, error) {
		return seed.Load(cfg.SeedFile)
	}
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}
	metrics.Register()
	go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, logger)
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("metrics server error")
	}
}

func serve(ctx context.Context, httpServer *api.Server, cfg *config.Config, logger *zerolog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Start()
	}()
	logger.Info().Int("http_port", cfg.API.HTTP.Port).Msg("API server started")

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			logger.Error().Err(err).Msg("http server stopped")
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.Duration(cfg.API.HTTP.ShutdownTimeout))
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http server shutdown")
	}

	logger.Info().Msg("API server stopped")
	return nil
}
