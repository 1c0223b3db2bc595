package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("SNAPSHOT_BACKEND", "")
	t.Setenv("CATALOG_TIMEOUT", "")

	cfg := LoadConfig()

	assert.Equal(t, SnapshotBackendPostgres, cfg.SnapshotBackend)
	assert.Equal(t, "@RocketShoes:cart", cfg.SnapshotKey)
	assert.Equal(t, 10*time.Second, cfg.CatalogTimeout)
}

func TestLoadConfig_FromEnv(t *testing.T) {
	t.Setenv("SNAPSHOT_BACKEND", SnapshotBackendRedis)
	t.Setenv("SNAPSHOT_KEY", "cart:42")
	t.Setenv("CATALOG_TIMEOUT", "2s")

	cfg := LoadConfig()

	assert.Equal(t, SnapshotBackendRedis, cfg.SnapshotBackend)
	assert.Equal(t, "cart:42", cfg.SnapshotKey)
	assert.Equal(t, 2*time.Second, cfg.CatalogTimeout)
}

func TestGetEnvDuration_InvalidFallsBack(t *testing.T) {
	t.Setenv("CATALOG_TIMEOUT", "soon")
	assert.Equal(t, 5*time.Second, getEnvDuration("CATALOG_TIMEOUT", 5*time.Second))

	t.Setenv("CATALOG_TIMEOUT", "-1s")
	assert.Equal(t, 5*time.Second, getEnvDuration("CATALOG_TIMEOUT", 5*time.Second))
}
