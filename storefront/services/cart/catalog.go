package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
)

// CatalogService abstrai a API externa de produtos e estoque
type CatalogService interface {
	GetStock(ctx context.Context, productID int64) (*StockInfo, error)
	GetProduct(ctx context.Context, productID int64) (*Product, error)
	ListProducts(ctx context.Context) ([]Product, error)
}

// CatalogClient implementa CatalogService usando a API HTTP do catálogo
type CatalogClient struct {
	client *resty.Client
}

// NewCatalogClient cria uma nova instância de CatalogClient
func NewCatalogClient(baseURL string, timeout time.Duration) *CatalogClient {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")

	return &CatalogClient{client: client}
}

// GetStock busca o estoque disponível do produto
func (c *CatalogClient) GetStock(ctx context.Context, productID int64) (*StockInfo, error) {
	var stock StockInfo
	if err := c.get(ctx, "/stock/{id}", productID, &stock); err != nil {
		return nil, fmt.Errorf("get stock for product %d: %w", productID, err)
	}
	if stock.Amount < 0 {
		return nil, fmt.Errorf("get stock for product %d: negative amount %d", productID, stock.Amount)
	}
	return &stock, nil
}

// GetProduct busca os dados do produto no catálogo
func (c *CatalogClient) GetProduct(ctx context.Context, productID int64) (*Product, error) {
	var product Product
	if err := c.get(ctx, "/products/{id}", productID, &product); err != nil {
		return nil, fmt.Errorf("get product %d: %w", productID, err)
	}
	if product.ID != productID {
		return nil, fmt.Errorf("get product %d: catalog returned product %d", productID, product.ID)
	}
	return &product, nil
}

// ListProducts lista todos os produtos do catálogo
func (c *CatalogClient) ListProducts(ctx context.Context) ([]Product, error) {
	var products []Product
	resp, err := c.client.R().
		SetContext(ctx).
		SetResult(&products).
		ForceContentType("application/json").
		Get("/products")
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("list products: unexpected status %d", resp.StatusCode())
	}
	return products, nil
}

func (c *CatalogClient) get(ctx context.Context, path string, productID int64, result interface{}) error {
	resp, err := c.client.R().
		SetContext(ctx).
		SetPathParam("id", strconv.FormatInt(productID, 10)).
		SetResult(result).
		ForceContentType("application/json").
		Get(path)
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("unexpected status %d", resp.StatusCode())
	}
	return nil
}
