package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/matheusmosca/storefront/storefront/internal/telemetry"
)

func main() {
	cfg := LoadConfig()
	log := newLogger(cfg)
	ctx := context.Background()

	// Initialize OpenTelemetry
	tp, err := telemetry.InitTracer(ctx, cfg.ServiceName, cfg.OTLPEndpoint)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			log.Printf("Error shutting down tracer: %v", err)
		}
	}()

	mp, err := telemetry.InitMetrics(ctx, cfg.ServiceName, cfg.OTLPEndpoint)
	if err != nil {
		log.Fatalf("Failed to initialize metrics: %v", err)
	}
	defer func() {
		if err := mp.Shutdown(context.Background()); err != nil {
			log.Printf("Error shutting down meter: %v", err)
		}
	}()

	// Initialize snapshot storage
	repository, closeRepository, err := initRepository(ctx, cfg, log)
	if err != nil {
		log.Fatalf("Failed to initialize snapshot repository: %v", err)
	}
	defer closeRepository()

	// Initialize dependencies
	catalog := NewCatalogClient(cfg.CatalogAPIURL, cfg.CatalogTimeout)
	feed := NewNotificationFeed()
	notifier := MultiNotifier{NewLogNotifier(log), feed}

	useCase, err := NewCartUseCase(ctx, repository, catalog, notifier,
		tp.Tracer(cfg.ServiceName), mp.Meter(cfg.ServiceName), log, cfg.SnapshotKey)
	if err != nil {
		log.Fatalf("Failed to initialize cart: %v", err)
	}
	handler := NewCartHandler(useCase, catalog, feed, log)

	// Setup Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(cfg.ServiceName))
	handler.RegisterRoutes(r)

	srv := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     r,
		ReadTimeout: 30 * time.Second,
		IdleTimeout: 30 * time.Second,
	}

	go func() {
		log.Infof("🚀 Cart Service listening on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info("🛑 Shutting down cart service")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("Error shutting down server: %v", err)
	}
}

func newLogger(cfg Config) *logrus.Logger {
	log := logrus.New()
	log.Level = logrus.InfoLevel
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		log.Level = level
	}
	log.Formatter = &logrus.JSONFormatter{
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime:  "timestamp",
			logrus.FieldKeyLevel: "severity",
			logrus.FieldKeyMsg:   "message",
		},
		TimestampFormat: time.RFC3339Nano,
	}
	log.Out = os.Stdout
	return log
}

func initRepository(ctx context.Context, cfg Config, log logrus.FieldLogger) (SnapshotRepository, func(), error) {
	switch cfg.SnapshotBackend {
	case SnapshotBackendPostgres:
		pool, err := initDB(ctx, cfg, log)
		if err != nil {
			return nil, nil, err
		}
		repository := NewPostgresSnapshotRepository(pool)
		if err := repository.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return repository, pool.Close, nil

	case SnapshotBackendRedis:
		client, err := initRedis(ctx, cfg, log)
		if err != nil {
			return nil, nil, err
		}
		return NewRedisSnapshotRepository(client), func() { _ = client.Close() }, nil

	case SnapshotBackendMemory:
		log.Warn("⚠️ Using in-memory snapshot storage, cart will not survive restarts")
		return NewMemorySnapshotRepository(), func() {}, nil
	}

	return nil, nil, fmt.Errorf("unknown snapshot backend %q", cfg.SnapshotBackend)
}

func initDB(ctx context.Context, cfg Config, log logrus.FieldLogger) (*pgxpool.Pool, error) {
	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		cfg.DatabaseUser,
		cfg.DatabasePassword,
		cfg.DatabaseHost,
		cfg.DatabasePort,
		cfg.DatabaseName,
	)

	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	// Configure connection pool
	config.MaxConns = 4
	config.MaxConnLifetime = time.Hour
	config.MaxConnIdleTime = 30 * time.Minute
	config.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Wait for database to be ready
	for i := 0; i < 30; i++ {
		if err := pool.Ping(ctx); err == nil {
			log.Info("✅ Connected to cart database")
			return pool, nil
		}
		log.Infof("⏳ Waiting for database... (%d/30)", i+1)
		time.Sleep(1 * time.Second)
	}

	pool.Close()
	return nil, fmt.Errorf("failed to connect to database after 30 attempts")
}

func initRedis(ctx context.Context, cfg Config, log logrus.FieldLogger) (*redis.Client, error) {
	opts, err := redis.ParseURL(cfg.RedisAddr)
	if err != nil {
		opts = &redis.Options{
			Addr:         cfg.RedisAddr,
			DialTimeout:  10 * time.Second,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 5 * time.Second,
		}
	}
	client := redis.NewClient(opts)

	for i := 0; i < 30; i++ {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := client.Ping(pingCtx).Err()
		cancel()
		if err == nil {
			log.Info("✅ Connected to redis")
			return client, nil
		}
		log.Infof("⏳ Waiting for redis... (%d/30)", i+1)
		time.Sleep(1 * time.Second)
	}

	_ = client.Close()
	return nil, fmt.Errorf("failed to connect to redis after 30 attempts")
}
