package main

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// CartUseCaseInterface define a interface para o use case
type CartUseCaseInterface interface {
	Cart() Cart
	Subscribe() (<-chan Cart, func())
	AddProduct(ctx context.Context, productID int64) error
	RemoveProduct(ctx context.Context, productID int64) error
	UpdateProductAmount(ctx context.Context, req UpdateProductAmount) error
}

// ProductLister lista os produtos exibidos na vitrine
type ProductLister interface {
	ListProducts(ctx context.Context) ([]Product, error)
}

// CartHandler contém os handlers HTTP da vitrine e do carrinho
type CartHandler struct {
	useCase CartUseCaseInterface
	catalog ProductLister
	feed    *NotificationFeed
	log     logrus.FieldLogger
}

// NewCartHandler cria uma nova instância de CartHandler
func NewCartHandler(useCase CartUseCaseInterface, catalog ProductLister, feed *NotificationFeed, log logrus.FieldLogger) *CartHandler {
	return &CartHandler{
		useCase: useCase,
		catalog: catalog,
		feed:    feed,
		log:     log,
	}
}

// RegisterRoutes registra as rotas no router
func (h *CartHandler) RegisterRoutes(r gin.IRouter) {
	r.GET("/health", h.HealthCheck)

	api := r.Group("/api")
	api.GET("/products", h.ListProducts)

	api.GET("/cart", h.GetCart)
	api.GET("/cart/events", h.StreamCart)
	api.POST("/cart/products/:id", h.AddProduct)
	api.PUT("/cart/products/:id", h.UpdateProductAmount)
	api.DELETE("/cart/products/:id", h.RemoveProduct)

	api.GET("/notifications", h.ListNotifications)
	api.DELETE("/notifications/:id", h.DismissNotification)
}

// ProductView é um produto da vitrine com a quantidade que já está no carrinho
type ProductView struct {
	Product
	AmountInCart int `json:"amount_in_cart"`
}

// CartLineItemView é um item do carrinho com o subtotal calculado
type CartLineItemView struct {
	CartLineItem
	Subtotal decimal.Decimal `json:"subtotal"`
}

// CartSummary é a representação do carrinho devolvida pela API
type CartSummary struct {
	Items []CartLineItemView `json:"items"`
	Total decimal.Decimal    `json:"total"`
	Size  int                `json:"size"`
}

func newCartSummary(cart Cart) CartSummary {
	items := make([]CartLineItemView, 0, len(cart))
	for _, item := range cart {
		items = append(items, CartLineItemView{CartLineItem: item, Subtotal: item.Subtotal()})
	}
	return CartSummary{
		Items: items,
		Total: cart.Total(),
		Size:  len(cart),
	}
}

type updateAmountRequest struct {
	Amount *int `json:"amount" binding:"required"`
}

// ListProducts lista os produtos do catálogo com a quantidade de cada um no carrinho
func (h *CartHandler) ListProducts(c *gin.Context) {
	products, err := h.catalog.ListProducts(c.Request.Context())
	if err != nil {
		h.log.WithError(err).Error("❌ Failed to list products")
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to load products"})
		return
	}

	amounts := h.useCase.Cart().ItemsAmount()
	views := make([]ProductView, 0, len(products))
	for _, p := range products {
		views = append(views, ProductView{Product: p, AmountInCart: amounts[p.ID]})
	}

	c.JSON(http.StatusOK, views)
}

// GetCart retorna o carrinho atual
func (h *CartHandler) GetCart(c *gin.Context) {
	c.JSON(http.StatusOK, newCartSummary(h.useCase.Cart()))
}

// StreamCart envia o carrinho via server-sent events a cada alteração
func (h *CartHandler) StreamCart(c *gin.Context) {
	updates, unsubscribe := h.useCase.Subscribe()
	defer unsubscribe()

	c.Header("Cache-Control", "no-cache")
	c.SSEvent("cart", newCartSummary(h.useCase.Cart()))
	c.Writer.Flush()

	for {
		select {
		case cart, ok := <-updates:
			if !ok {
				return
			}
			c.SSEvent("cart", newCartSummary(cart))
			c.Writer.Flush()
		case <-c.Request.Context().Done():
			return
		}
	}
}

// AddProduct adiciona uma unidade do produto ao carrinho
func (h *CartHandler) AddProduct(c *gin.Context) {
	productID, ok := parseProductID(c)
	if !ok {
		return
	}

	err := h.useCase.AddProduct(c.Request.Context(), productID)
	h.respond(c, err)
}

// RemoveProduct remove o produto do carrinho
func (h *CartHandler) RemoveProduct(c *gin.Context) {
	productID, ok := parseProductID(c)
	if !ok {
		return
	}

	err := h.useCase.RemoveProduct(c.Request.Context(), productID)
	h.respond(c, err)
}

// UpdateProductAmount altera a quantidade do produto no carrinho
func (h *CartHandler) UpdateProductAmount(c *gin.Context) {
	productID, ok := parseProductID(c)
	if !ok {
		return
	}

	var req updateAmountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := h.useCase.UpdateProductAmount(c.Request.Context(), UpdateProductAmount{
		ProductID: productID,
		Amount:    *req.Amount,
	})
	h.respond(c, err)
}

// ListNotifications lista as notificações ainda não descartadas
func (h *CartHandler) ListNotifications(c *gin.Context) {
	c.JSON(http.StatusOK, h.feed.List())
}

// DismissNotification descarta uma notificação
func (h *CartHandler) DismissNotification(c *gin.Context) {
	if !h.feed.Dismiss(c.Param("id")) {
		c.JSON(http.StatusNotFound, gin.H{"error": "notification not found"})
		return
	}
	c.Status(http.StatusNoContent)
}

// HealthCheck verifica a saúde do serviço
func (h *CartHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "cart-service",
	})
}

// respond devolve o carrinho atual; em caso de falha o status indica o tipo do erro
func (h *CartHandler) respond(c *gin.Context, err error) {
	summary := newCartSummary(h.useCase.Cart())
	if err == nil {
		c.JSON(http.StatusOK, summary)
		return
	}

	c.JSON(statusFor(err), gin.H{
		"error": err.Error(),
		"cart":  summary,
	})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrOutOfStock):
		return http.StatusConflict
	case errors.Is(err, ErrProductNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrExternalService):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func parseProductID(c *gin.Context) (int64, bool) {
	productID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || productID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product id"})
		return 0, false
	}
	return productID, true
}
