package main

import (
	"context"
	_ "embed"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"

	"github.com/matheusmosca/storefront/storefront/internal/telemetry"
)

//go:embed migrations.sql
var migrationSQL string

func main() {
	serviceName := getEnv("SERVICE_NAME", "catalog-service")

	// Initialize OpenTelemetry
	tp, err := telemetry.InitTracer(context.Background(), serviceName, getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"))
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			log.Printf("Error shutting down tracer: %v", err)
		}
	}()

	// Initialize database
	st, err := initStore()
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer st.Close()

	if _, err := st.DB.Exec(migrationSQL); err != nil {
		log.Fatalf("Failed running migrations: %v", err)
	}
	log.Println("✅ Database migrations executed successfully")

	h := NewHandler(st)

	r := mux.NewRouter()
	r.Use(otelmux.Middleware(serviceName))
	h.RegisterRoutes(r)

	port := getEnv("PORT", "8080")
	log.Printf("🚀 Catalog Service listening on port %s", port)

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  30 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func initStore() (*PostgresStore, error) {
	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		getEnv("DATABASE_USER", "root"),
		getEnv("DATABASE_PASSWORD", "pass"),
		getEnv("DATABASE_HOST", "localhost"),
		getEnv("DATABASE_PORT", "5432"),
		getEnv("DATABASE_NAME", "catalog_db"),
	)

	st, err := NewPostgresStore(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	st.DB.SetMaxOpenConns(10)
	st.DB.SetMaxIdleConns(5)
	st.DB.SetConnMaxLifetime(time.Hour)

	// Wait for database to be ready
	for i := 0; i < 30; i++ {
		if err := st.DB.Ping(); err == nil {
			log.Println("✅ Connected to catalog database")
			return st, nil
		}
		log.Printf("⏳ Waiting for database... (%d/30)", i+1)
		time.Sleep(1 * time.Second)
	}

	st.Close()
	return nil, fmt.Errorf("failed to connect to database after 30 attempts")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
