package main

import (
	"os"
	"time"
)

const (
	SnapshotBackendPostgres = "postgres"
	SnapshotBackendRedis    = "redis"
	SnapshotBackendMemory   = "memory"
)

// Config reúne a configuração do serviço, lida das variáveis de ambiente
type Config struct {
	Port            string
	ServiceName     string
	LogLevel        string
	OTLPEndpoint    string
	CatalogAPIURL   string
	CatalogTimeout  time.Duration
	SnapshotBackend string
	SnapshotKey     string
	RedisAddr       string

	DatabaseUser     string
	DatabasePassword string
	DatabaseHost     string
	DatabasePort     string
	DatabaseName     string
}

// LoadConfig lê a configuração do ambiente aplicando os valores padrão
func LoadConfig() Config {
	return Config{
		Port:            getEnv("PORT", "8080"),
		ServiceName:     getEnv("SERVICE_NAME", "cart-service"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		OTLPEndpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
		CatalogAPIURL:   getEnv("CATALOG_API_URL", "http://catalog-service:8080"),
		CatalogTimeout:  getEnvDuration("CATALOG_TIMEOUT", 10*time.Second),
		SnapshotBackend: getEnv("SNAPSHOT_BACKEND", SnapshotBackendPostgres),
		SnapshotKey:     getEnv("SNAPSHOT_KEY", "@RocketShoes:cart"),
		RedisAddr:       getEnv("REDIS_ADDR", "localhost:6379"),

		DatabaseUser:     getEnv("DATABASE_USER", "root"),
		DatabasePassword: getEnv("DATABASE_PASSWORD", "pass"),
		DatabaseHost:     getEnv("DATABASE_HOST", "localhost"),
		DatabasePort:     getEnv("DATABASE_PORT", "5432"),
		DatabaseName:     getEnv("DATABASE_NAME", "cart_db"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return defaultValue
	}
	return d
}
