package main

import (
	"bytes"
	"context"
	"fmt"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var (
	ErrOutOfStock      = errors.New("requested amount is out of stock")
	ErrProductNotFound = errors.New("product not found in cart")
	ErrExternalService = errors.New("external service failure")
	ErrInvalidInput    = errors.New("invalid input")
)

// UpdateProductAmount representa a alteração de quantidade de um produto
type UpdateProductAmount struct {
	ProductID int64 `json:"product_id"`
	Amount    int   `json:"amount"`
}

// CartUseCase contém a lógica de negócio do carrinho
type CartUseCase struct {
	repository SnapshotRepository
	catalog    CatalogService
	notifier   Notifier
	tracer     trace.Tracer
	log        logrus.FieldLogger
	key        string

	// opMu serializa as operações de escrita, inclusive durante as consultas externas
	opMu         sync.Mutex
	lastSnapshot []byte

	mu   sync.RWMutex
	cart Cart

	subMu       sync.Mutex
	subscribers map[int]chan Cart
	nextSubID   int

	mutationCounter  metric.Int64Counter
	rejectionCounter metric.Int64Counter
}

// NewCartUseCase cria uma nova instância de CartUseCase, carregando o snapshot salvo
func NewCartUseCase(
	ctx context.Context,
	repository SnapshotRepository,
	catalog CatalogService,
	notifier Notifier,
	tracer trace.Tracer,
	meter metric.Meter,
	log logrus.FieldLogger,
	key string,
) (*CartUseCase, error) {
	mutationCounter, err := meter.Int64Counter("cart.mutations",
		metric.WithDescription("Successful cart mutations"))
	if err != nil {
		return nil, fmt.Errorf("failed to create mutation counter: %w", err)
	}
	rejectionCounter, err := meter.Int64Counter("cart.rejections",
		metric.WithDescription("Cart operations rejected or failed"))
	if err != nil {
		return nil, fmt.Errorf("failed to create rejection counter: %w", err)
	}

	uc := &CartUseCase{
		repository:       repository,
		catalog:          catalog,
		notifier:         notifier,
		tracer:           tracer,
		log:              log,
		key:              key,
		cart:             Cart{},
		subscribers:      make(map[int]chan Cart),
		mutationCounter:  mutationCounter,
		rejectionCounter: rejectionCounter,
	}

	if err := uc.load(ctx); err != nil {
		return nil, err
	}
	return uc, nil
}

// load inicializa o carrinho a partir do snapshot durável.
// Snapshot ausente ou inválido resulta em carrinho vazio; falha de leitura é retornada.
func (uc *CartUseCase) load(ctx context.Context) error {
	payload, err := uc.repository.Get(ctx, uc.key)
	if errors.Is(err, ErrSnapshotNotFound) {
		uc.log.WithField("key", uc.key).Info("🛒 No cart snapshot found, starting empty")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load cart snapshot: %w", err)
	}

	cart, err := DecodeSnapshot(payload)
	if err != nil {
		uc.log.WithError(err).WithField("key", uc.key).Warn("⚠️ Discarding unreadable cart snapshot")
		return nil
	}

	uc.cart = cart
	uc.lastSnapshot = payload
	uc.log.WithFields(logrus.Fields{"key": uc.key, "items": len(cart)}).Info("✅ Cart restored from snapshot")
	return nil
}

// Cart retorna uma cópia do carrinho atual
func (uc *CartUseCase) Cart() Cart {
	uc.mu.RLock()
	defer uc.mu.RUnlock()

	return uc.cart.Clone()
}

// Subscribe retorna um canal que recebe o carrinho após cada alteração.
// O canal guarda apenas a versão mais recente.
func (uc *CartUseCase) Subscribe() (<-chan Cart, func()) {
	uc.subMu.Lock()
	defer uc.subMu.Unlock()

	id := uc.nextSubID
	uc.nextSubID++
	ch := make(chan Cart, 1)
	uc.subscribers[id] = ch

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			uc.subMu.Lock()
			defer uc.subMu.Unlock()

			delete(uc.subscribers, id)
			close(ch)
		})
	}
	return ch, unsubscribe
}

// AddProduct adiciona uma unidade do produto ao carrinho
func (uc *CartUseCase) AddProduct(ctx context.Context, productID int64) error {
	ctx, span := uc.startSpan(ctx, "add_product", productID)
	defer span.End()

	uc.opMu.Lock()
	defer uc.opMu.Unlock()

	uc.log.WithField("product_id", productID).Info("➡️ [ADD PRODUCT]")

	next := uc.Cart()
	idx := next.IndexOf(productID)
	priorAmount := 0
	if idx >= 0 {
		priorAmount = next[idx].Amount
	}

	stock, err := uc.catalog.GetStock(ctx, productID)
	if err != nil {
		return uc.fail(ctx, span, NotificationAddFailed, productID, fmt.Errorf("%w: %w", ErrExternalService, err))
	}

	candidateAmount := priorAmount + 1
	if candidateAmount > stock.Amount {
		return uc.fail(ctx, span, NotificationAddOutOfStock, productID,
			fmt.Errorf("%w: product %d wants %d, stock has %d", ErrOutOfStock, productID, candidateAmount, stock.Amount))
	}

	if idx >= 0 {
		next[idx].Amount = candidateAmount
	} else {
		product, err := uc.catalog.GetProduct(ctx, productID)
		if err != nil {
			return uc.fail(ctx, span, NotificationAddFailed, productID, fmt.Errorf("%w: %w", ErrExternalService, err))
		}
		next = append(next, CartLineItem{Product: *product, Amount: candidateAmount})
	}

	if err := uc.commit(ctx, next); err != nil {
		return uc.fail(ctx, span, NotificationAddFailed, productID, fmt.Errorf("%w: %w", ErrExternalService, err))
	}

	uc.succeed(ctx, span, "add_product", productID, candidateAmount)
	return nil
}

// RemoveProduct remove o produto do carrinho, mantendo a ordem dos demais
func (uc *CartUseCase) RemoveProduct(ctx context.Context, productID int64) error {
	ctx, span := uc.startSpan(ctx, "remove_product", productID)
	defer span.End()

	uc.opMu.Lock()
	defer uc.opMu.Unlock()

	uc.log.WithField("product_id", productID).Info("🗑️ [REMOVE PRODUCT]")

	current := uc.Cart()
	idx := current.IndexOf(productID)
	if idx < 0 {
		return uc.fail(ctx, span, NotificationRemoveFailed, productID,
			fmt.Errorf("%w: product %d", ErrProductNotFound, productID))
	}

	next := make(Cart, 0, len(current)-1)
	next = append(next, current[:idx]...)
	next = append(next, current[idx+1:]...)

	if err := uc.commit(ctx, next); err != nil {
		return uc.fail(ctx, span, NotificationRemoveFailed, productID, fmt.Errorf("%w: %w", ErrExternalService, err))
	}

	uc.succeed(ctx, span, "remove_product", productID, 0)
	return nil
}

// UpdateProductAmount altera a quantidade de um produto que já está no carrinho.
// Quantidades menores ou iguais a zero são ignoradas sem notificação.
func (uc *CartUseCase) UpdateProductAmount(ctx context.Context, req UpdateProductAmount) error {
	if err := validateAmount(req.Amount); err != nil {
		uc.log.WithError(err).WithField("product_id", req.ProductID).Debug("Ignoring amount update")
		return nil
	}

	ctx, span := uc.startSpan(ctx, "update_product_amount", req.ProductID)
	defer span.End()
	span.SetAttributes(attribute.Int("amount", req.Amount))

	uc.opMu.Lock()
	defer uc.opMu.Unlock()

	uc.log.WithFields(logrus.Fields{"product_id": req.ProductID, "amount": req.Amount}).Info("✏️ [UPDATE PRODUCT AMOUNT]")

	stock, err := uc.catalog.GetStock(ctx, req.ProductID)
	if err != nil {
		return uc.fail(ctx, span, NotificationUpdateFailed, req.ProductID, fmt.Errorf("%w: %w", ErrExternalService, err))
	}

	if req.Amount > stock.Amount {
		return uc.fail(ctx, span, NotificationUpdateOutOfStock, req.ProductID,
			fmt.Errorf("%w: product %d wants %d, stock has %d", ErrOutOfStock, req.ProductID, req.Amount, stock.Amount))
	}

	next := uc.Cart()
	idx := next.IndexOf(req.ProductID)
	if idx < 0 {
		return uc.fail(ctx, span, NotificationUpdateFailed, req.ProductID,
			fmt.Errorf("%w: product %d", ErrProductNotFound, req.ProductID))
	}
	next[idx].Amount = req.Amount

	if err := uc.commit(ctx, next); err != nil {
		return uc.fail(ctx, span, NotificationUpdateFailed, req.ProductID, fmt.Errorf("%w: %w", ErrExternalService, err))
	}

	uc.succeed(ctx, span, "update_product_amount", req.ProductID, req.Amount)
	return nil
}

func validateAmount(amount int) error {
	if amount <= 0 {
		return fmt.Errorf("%w: amount %d must be positive", ErrInvalidInput, amount)
	}
	return nil
}

// commit persiste o novo carrinho e só então o publica.
// Deve ser chamado com opMu travado.
func (uc *CartUseCase) commit(ctx context.Context, next Cart) error {
	payload, err := EncodeSnapshot(next)
	if err != nil {
		return err
	}
	if bytes.Equal(payload, uc.lastSnapshot) {
		return nil
	}

	if err := uc.repository.Put(ctx, uc.key, payload); err != nil {
		return err
	}
	uc.lastSnapshot = payload

	uc.mu.Lock()
	uc.cart = next
	uc.mu.Unlock()

	uc.publish(next)
	return nil
}

func (uc *CartUseCase) publish(cart Cart) {
	uc.subMu.Lock()
	defer uc.subMu.Unlock()

	for _, ch := range uc.subscribers {
		select {
		case <-ch:
		default:
		}
		ch <- cart.Clone()
	}
}

// startSpan inicia o span da operação. Operações iniciadas não são canceladas pelo chamador.
func (uc *CartUseCase) startSpan(ctx context.Context, operation string, productID int64) (context.Context, trace.Span) {
	ctx, span := uc.tracer.Start(context.WithoutCancel(ctx), "cart."+operation)
	span.SetAttributes(
		attribute.String("cart.operation", operation),
		attribute.Int64("product_id", productID),
	)
	return ctx, span
}

func (uc *CartUseCase) succeed(ctx context.Context, span trace.Span, operation string, productID int64, amount int) {
	uc.mutationCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", operation)))
	span.SetStatus(codes.Ok, "")
	uc.log.WithFields(logrus.Fields{
		"operation":  operation,
		"product_id": productID,
		"amount":     amount,
	}).Info("✅ Cart updated")
}

// fail notifica o usuário e devolve o erro classificado. O carrinho não é alterado.
func (uc *CartUseCase) fail(ctx context.Context, span trace.Span, kind NotificationKind, productID int64, err error) error {
	uc.rejectionCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", string(kind))))
	span.RecordError(err)
	span.SetStatus(codes.Error, string(kind))

	uc.log.WithError(err).WithFields(logrus.Fields{
		"kind":       kind,
		"product_id": productID,
	}).Warn("❌ Cart operation rejected")

	uc.notifier.Notify(ctx, NewNotification(kind, productID))
	return err
}
