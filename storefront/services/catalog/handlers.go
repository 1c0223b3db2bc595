package main

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
)

// Handler é a camada HTTP que expõe o Store
type Handler struct {
	store Store
}

// NewHandler cria uma nova instância de Handler
func NewHandler(s Store) *Handler {
	return &Handler{store: s}
}

// RegisterRoutes registra as rotas no router
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/health", h.HealthCheck).Methods("GET")

	r.HandleFunc("/products", h.ListProducts).Methods("GET")
	r.HandleFunc("/products/{id:[0-9]+}", h.GetProduct).Methods("GET")
	r.HandleFunc("/stock/{id:[0-9]+}", h.GetStock).Methods("GET")
}

// --- helpers ---
func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func productID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	return id, err == nil
}

// ListProducts handles GET /products
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.store.ListProducts()
	if err != nil {
		log.Printf("❌ Failed to list products: %v", err)
		writeErr(w, http.StatusInternalServerError, "failed to list products")
		return
	}
	writeJSON(w, http.StatusOK, products)
}

// GetProduct handles GET /products/{id}
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(r)
	if !ok {
		writeErr(w, http.StatusBadRequest, "invalid product id")
		return
	}

	product, err := h.store.GetProduct(id)
	if errors.Is(err, ErrNotFound) {
		writeErr(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		log.Printf("❌ Failed to get product %d: %v", id, err)
		writeErr(w, http.StatusInternalServerError, "failed to get product")
		return
	}
	writeJSON(w, http.StatusOK, product)
}

// GetStock handles GET /stock/{id}
func (h *Handler) GetStock(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(r)
	if !ok {
		writeErr(w, http.StatusBadRequest, "invalid product id")
		return
	}

	stock, err := h.store.GetStock(id)
	if errors.Is(err, ErrNotFound) {
		writeErr(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		log.Printf("❌ Failed to get stock for product %d: %v", id, err)
		writeErr(w, http.StatusInternalServerError, "failed to get stock")
		return
	}
	writeJSON(w, http.StatusOK, stock)
}

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "catalog-service",
	})
}
