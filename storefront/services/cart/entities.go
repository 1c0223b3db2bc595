package main

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// Product representa um produto do catálogo
type Product struct {
	ID    int64           `json:"id"`
	Title string          `json:"title"`
	Price decimal.Decimal `json:"price"`
	Image string          `json:"image"`
}

// CartLineItem representa um produto no carrinho com a sua quantidade
type CartLineItem struct {
	Product
	Amount int `json:"amount"`
}

// Subtotal retorna o preço do produto multiplicado pela quantidade
func (i CartLineItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Amount)))
}

// StockInfo representa o estoque disponível de um produto
type StockInfo struct {
	ID     int64 `json:"id"`
	Amount int   `json:"amount"`
}

// Cart é a lista ordenada de itens do carrinho, na ordem de inserção
type Cart []CartLineItem

// IndexOf retorna a posição do produto no carrinho ou -1
func (c Cart) IndexOf(productID int64) int {
	for i, item := range c {
		if item.ID == productID {
			return i
		}
	}
	return -1
}

// Clone retorna uma cópia independente do carrinho
func (c Cart) Clone() Cart {
	out := make(Cart, len(c))
	copy(out, c)
	return out
}

// ItemsAmount agrupa a quantidade de cada produto do carrinho por ID
func (c Cart) ItemsAmount() map[int64]int {
	amounts := make(map[int64]int, len(c))
	for _, item := range c {
		amounts[item.ID] = item.Amount
	}
	return amounts
}

// Total soma o subtotal de todos os itens
func (c Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c {
		total = total.Add(item.Subtotal())
	}
	return total
}

// Validate checks the cart invariants that do not depend on stock.
func (c Cart) Validate() error {
	seen := make(map[int64]struct{}, len(c))
	for _, item := range c {
		if item.Amount <= 0 {
			return fmt.Errorf("product %d has non-positive amount %d", item.ID, item.Amount)
		}
		if _, ok := seen[item.ID]; ok {
			return fmt.Errorf("product %d appears more than once", item.ID)
		}
		seen[item.ID] = struct{}{}
	}
	return nil
}

// EncodeSnapshot serializa o carrinho completo para o armazenamento durável
func EncodeSnapshot(c Cart) ([]byte, error) {
	if c == nil {
		c = Cart{}
	}
	payload, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encode cart snapshot: %w", err)
	}
	return payload, nil
}

// DecodeSnapshot reconstrói o carrinho a partir do snapshot durável
func DecodeSnapshot(payload []byte) (Cart, error) {
	var cart Cart
	if err := json.Unmarshal(payload, &cart); err != nil {
		return nil, fmt.Errorf("decode cart snapshot: %w", err)
	}
	if cart == nil {
		cart = Cart{}
	}
	if err := cart.Validate(); err != nil {
		return nil, fmt.Errorf("invalid cart snapshot: %w", err)
	}
	return cart, nil
}
