package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockCartUseCase simula o use case do carrinho
type MockCartUseCase struct {
	mock.Mock
}

func (m *MockCartUseCase) Cart() Cart {
	args := m.Called()
	return args.Get(0).(Cart)
}

func (m *MockCartUseCase) Subscribe() (<-chan Cart, func()) {
	args := m.Called()
	return args.Get(0).(<-chan Cart), args.Get(1).(func())
}

func (m *MockCartUseCase) AddProduct(ctx context.Context, productID int64) error {
	args := m.Called(ctx, productID)
	return args.Error(0)
}

func (m *MockCartUseCase) RemoveProduct(ctx context.Context, productID int64) error {
	args := m.Called(ctx, productID)
	return args.Error(0)
}

func (m *MockCartUseCase) UpdateProductAmount(ctx context.Context, req UpdateProductAmount) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

func newTestRouter(useCase CartUseCaseInterface, catalog ProductLister, feed *NotificationFeed) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewCartHandler(useCase, catalog, feed, newTestLogger()).RegisterRoutes(r)
	return r
}

func perform(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHandler_ListProductsWithCartAmounts(t *testing.T) {
	// Arrange
	useCase := new(MockCartUseCase)
	useCase.On("Cart").Return(Cart{{Product: sneaker(), Amount: 3}})
	catalog := new(MockCatalogService)
	catalog.On("ListProducts", mock.Anything).Return([]Product{shoe(), sneaker()}, nil)
	r := newTestRouter(useCase, catalog, NewNotificationFeed())

	// Act
	w := perform(r, http.MethodGet, "/api/products", "")

	// Assert
	require.Equal(t, http.StatusOK, w.Code)
	var body []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body, 2)
	assert.Equal(t, float64(1), body[0]["id"])
	assert.Equal(t, float64(0), body[0]["amount_in_cart"])
	assert.Equal(t, float64(2), body[1]["id"])
	assert.Equal(t, float64(3), body[1]["amount_in_cart"])
}

func TestHandler_ListProductsCatalogDown(t *testing.T) {
	// Arrange
	catalog := new(MockCatalogService)
	catalog.On("ListProducts", mock.Anything).Return(nil, errors.New("unreachable"))
	r := newTestRouter(new(MockCartUseCase), catalog, NewNotificationFeed())

	// Act
	w := perform(r, http.MethodGet, "/api/products", "")

	// Assert
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestHandler_GetCart(t *testing.T) {
	// Arrange
	useCase := new(MockCartUseCase)
	useCase.On("Cart").Return(Cart{{Product: shoe(), Amount: 2}})
	r := newTestRouter(useCase, new(MockCatalogService), NewNotificationFeed())

	// Act
	w := perform(r, http.MethodGet, "/api/cart", "")

	// Assert
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Items []struct {
			ID       int64  `json:"id"`
			Amount   int    `json:"amount"`
			Subtotal string `json:"subtotal"`
		} `json:"items"`
		Total string `json:"total"`
		Size  int    `json:"size"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Items, 1)
	assert.Equal(t, int64(1), body.Items[0].ID)
	assert.Equal(t, 2, body.Items[0].Amount)
	assert.Equal(t, "200", body.Items[0].Subtotal)
	assert.Equal(t, "200", body.Total)
	assert.Equal(t, 1, body.Size)
}

func TestHandler_AddProduct(t *testing.T) {
	// Arrange
	useCase := new(MockCartUseCase)
	useCase.On("AddProduct", mock.Anything, int64(1)).Return(nil)
	useCase.On("Cart").Return(Cart{{Product: shoe(), Amount: 1}})
	r := newTestRouter(useCase, new(MockCatalogService), NewNotificationFeed())

	// Act
	w := perform(r, http.MethodPost, "/api/cart/products/1", "")

	// Assert
	assert.Equal(t, http.StatusOK, w.Code)
	useCase.AssertExpectations(t)
}

func TestHandler_MutationErrorsMapToStatus(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{fmt.Errorf("%w: amount 0 must be positive", ErrInvalidInput), http.StatusBadRequest},
		{fmt.Errorf("%w: wanted 6", ErrOutOfStock), http.StatusConflict},
		{fmt.Errorf("%w: product 9", ErrProductNotFound), http.StatusNotFound},
		{fmt.Errorf("%w: timeout", ErrExternalService), http.StatusBadGateway},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		// Arrange
		useCase := new(MockCartUseCase)
		useCase.On("RemoveProduct", mock.Anything, int64(9)).Return(tc.err)
		useCase.On("Cart").Return(Cart{})
		r := newTestRouter(useCase, new(MockCatalogService), NewNotificationFeed())

		// Act
		w := perform(r, http.MethodDelete, "/api/cart/products/9", "")

		// Assert
		assert.Equal(t, tc.status, w.Code, tc.err.Error())
		assert.Contains(t, w.Body.String(), `"cart"`)
	}
}

func TestHandler_UpdateProductAmount(t *testing.T) {
	// Arrange
	useCase := new(MockCartUseCase)
	useCase.On("UpdateProductAmount", mock.Anything, UpdateProductAmount{ProductID: 1, Amount: 0}).Return(nil)
	useCase.On("Cart").Return(Cart{{Product: shoe(), Amount: 2}})
	r := newTestRouter(useCase, new(MockCatalogService), NewNotificationFeed())

	// Act
	w := perform(r, http.MethodPut, "/api/cart/products/1", `{"amount":0}`)
	missing := perform(r, http.MethodPut, "/api/cart/products/1", `{}`)

	// Assert
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, http.StatusBadRequest, missing.Code)
	useCase.AssertNumberOfCalls(t, "UpdateProductAmount", 1)
}

func TestHandler_InvalidProductID(t *testing.T) {
	// Arrange
	useCase := new(MockCartUseCase)
	r := newTestRouter(useCase, new(MockCatalogService), NewNotificationFeed())

	// Act
	w := perform(r, http.MethodPost, "/api/cart/products/abc", "")

	// Assert
	assert.Equal(t, http.StatusBadRequest, w.Code)
	useCase.AssertNotCalled(t, "AddProduct", mock.Anything, mock.Anything)
}

func TestHandler_Notifications(t *testing.T) {
	// Arrange
	feed := NewNotificationFeed()
	notification := NewNotification(NotificationAddOutOfStock, 1)
	feed.Notify(context.Background(), notification)
	r := newTestRouter(new(MockCartUseCase), new(MockCatalogService), feed)

	// Act
	list := perform(r, http.MethodGet, "/api/notifications", "")
	dismiss := perform(r, http.MethodDelete, "/api/notifications/"+notification.ID, "")
	again := perform(r, http.MethodDelete, "/api/notifications/"+notification.ID, "")

	// Assert
	assert.Equal(t, http.StatusOK, list.Code)
	assert.Contains(t, list.Body.String(), "Quantidade solicitada fora de estoque")
	assert.Equal(t, http.StatusNoContent, dismiss.Code)
	assert.Equal(t, http.StatusNotFound, again.Code)
	assert.Empty(t, feed.List())
}

func TestHandler_StreamCart(t *testing.T) {
	// Arrange
	useCase := new(MockCartUseCase)
	updates := make(chan Cart, 1)
	updates <- Cart{{Product: shoe(), Amount: 4}}
	close(updates)
	unsubscribed := false
	useCase.On("Subscribe").Return((<-chan Cart)(updates), func() { unsubscribed = true })
	useCase.On("Cart").Return(Cart{{Product: shoe(), Amount: 3}})
	r := newTestRouter(useCase, new(MockCatalogService), NewNotificationFeed())

	// Act
	w := perform(r, http.MethodGet, "/api/cart/events", "")

	// Assert
	body := w.Body.String()
	assert.Equal(t, 2, strings.Count(body, "event:cart"))
	assert.Contains(t, body, `"amount":3`)
	assert.Contains(t, body, `"amount":4`)
	assert.True(t, unsubscribed)
}

func TestHandler_HealthCheck(t *testing.T) {
	r := newTestRouter(new(MockCartUseCase), new(MockCatalogService), NewNotificationFeed())

	w := perform(r, http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")
}
