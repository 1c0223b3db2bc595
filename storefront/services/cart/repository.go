package main

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"
)

// ErrSnapshotNotFound é retornado quando não existe snapshot para a chave
var ErrSnapshotNotFound = errors.New("snapshot not found")

// SnapshotRepository define o armazenamento chave-valor durável do carrinho
type SnapshotRepository interface {
	// Get retorna o snapshot salvo na chave ou ErrSnapshotNotFound
	Get(ctx context.Context, key string) ([]byte, error)

	// Put sobrescreve o snapshot inteiro salvo na chave
	Put(ctx context.Context, key string, payload []byte) error
}

// pgxQuerier é o subconjunto de *pgxpool.Pool usado pelo repositório
type pgxQuerier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresSnapshotRepository implementa SnapshotRepository usando PostgreSQL
type PostgresSnapshotRepository struct {
	db pgxQuerier
}

// NewPostgresSnapshotRepository cria uma nova instância de PostgresSnapshotRepository
func NewPostgresSnapshotRepository(db pgxQuerier) *PostgresSnapshotRepository {
	return &PostgresSnapshotRepository{db: db}
}

// EnsureSchema cria a tabela de snapshots caso ela não exista
func (r *PostgresSnapshotRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS cart_snapshots (
			key        TEXT PRIMARY KEY,
			payload    TEXT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("create cart_snapshots table: %w", err)
	}
	return nil
}

func (r *PostgresSnapshotRepository) Get(ctx context.Context, key string) ([]byte, error) {
	var payload string
	err := r.db.QueryRow(ctx, "SELECT payload FROM cart_snapshots WHERE key = $1", key).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select snapshot %q: %w", key, err)
	}
	return []byte(payload), nil
}

func (r *PostgresSnapshotRepository) Put(ctx context.Context, key string, payload []byte) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO cart_snapshots (key, payload, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET payload = EXCLUDED.payload, updated_at = NOW()
	`, key, string(payload))
	if err != nil {
		return fmt.Errorf("upsert snapshot %q: %w", key, err)
	}
	return nil
}

// RedisSnapshotRepository implementa SnapshotRepository usando Redis
type RedisSnapshotRepository struct {
	client redis.Cmdable
}

// NewRedisSnapshotRepository cria uma nova instância de RedisSnapshotRepository
func NewRedisSnapshotRepository(client redis.Cmdable) *RedisSnapshotRepository {
	return &RedisSnapshotRepository{client: client}
}

func (r *RedisSnapshotRepository) Get(ctx context.Context, key string) ([]byte, error) {
	payload, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis GET %q: %w", key, err)
	}
	return payload, nil
}

func (r *RedisSnapshotRepository) Put(ctx context.Context, key string, payload []byte) error {
	if err := r.client.Set(ctx, key, payload, 0).Err(); err != nil {
		return fmt.Errorf("redis SET %q: %w", key, err)
	}
	return nil
}

// MemorySnapshotRepository guarda os snapshots em memória
type MemorySnapshotRepository struct {
	mu        sync.RWMutex
	snapshots map[string][]byte
}

// NewMemorySnapshotRepository cria uma nova instância de MemorySnapshotRepository
func NewMemorySnapshotRepository() *MemorySnapshotRepository {
	return &MemorySnapshotRepository{snapshots: make(map[string][]byte)}
}

func (r *MemorySnapshotRepository) Get(_ context.Context, key string) ([]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	payload, ok := r.snapshots[key]
	if !ok {
		return nil, ErrSnapshotNotFound
	}
	out := make([]byte, len(payload))
	copy(out, payload)
	return out, nil
}

func (r *MemorySnapshotRepository) Put(_ context.Context, key string, payload []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := make([]byte, len(payload))
	copy(stored, payload)
	r.snapshots[key] = stored
	return nil
}
