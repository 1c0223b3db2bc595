package main

import (
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// ErrNotFound é retornado quando o produto não existe
var ErrNotFound = errors.New("product not found")

// Product representa um produto do catálogo
type Product struct {
	ID    int64           `json:"id"`
	Title string          `json:"title"`
	Price decimal.Decimal `json:"price"`
	Image string          `json:"image"`
}

// Stock representa o estoque disponível de um produto
type Stock struct {
	ID     int64 `json:"id"`
	Amount int   `json:"amount"`
}

// Store define as operações de leitura do catálogo
type Store interface {
	ListProducts() ([]Product, error)
	GetProduct(id int64) (*Product, error)
	GetStock(id int64) (*Stock, error)
	Close() error
}

// PostgresStore implementa Store usando PostgreSQL
type PostgresStore struct {
	DB *sql.DB
}

func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	return &PostgresStore{DB: db}, nil
}

func (s *PostgresStore) Close() error { return s.DB.Close() }

// ListProducts lista os produtos ordenados por ID
func (s *PostgresStore) ListProducts() ([]Product, error) {
	rows, err := s.DB.Query(`SELECT id, title, price, image FROM products ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	out := []Product{}
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Title, &p.Price, &p.Image); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// GetProduct busca um produto pelo ID
func (s *PostgresStore) GetProduct(id int64) (*Product, error) {
	var p Product
	err := s.DB.QueryRow(`SELECT id, title, price, image FROM products WHERE id=$1`, id).
		Scan(&p.ID, &p.Title, &p.Price, &p.Image)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product %d: %w", id, err)
	}
	return &p, nil
}

// GetStock retorna o estoque atual do produto
func (s *PostgresStore) GetStock(id int64) (*Stock, error) {
	stock := Stock{ID: id}
	err := s.DB.QueryRow(`SELECT stock FROM products WHERE id=$1`, id).Scan(&stock.Amount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get stock for product %d: %w", id, err)
	}
	return &stock, nil
}
