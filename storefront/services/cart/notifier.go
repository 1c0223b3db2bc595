package main

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// NotificationKind identifica o caso de falha que originou a notificação
type NotificationKind string

const (
	NotificationAddOutOfStock    NotificationKind = "add_out_of_stock"
	NotificationUpdateOutOfStock NotificationKind = "update_out_of_stock"
	NotificationAddFailed        NotificationKind = "add_failed"
	NotificationRemoveFailed     NotificationKind = "remove_failed"
	NotificationUpdateFailed     NotificationKind = "update_failed"
)

var notificationMessages = map[NotificationKind]string{
	NotificationAddOutOfStock:    "Quantidade solicitada fora de estoque",
	NotificationUpdateOutOfStock: "Quantidade solicitada fora de estoque",
	NotificationAddFailed:        "Erro na adição do produto",
	NotificationRemoveFailed:     "Erro na remoção do produto",
	NotificationUpdateFailed:     "Erro na alteração de quantidade do produto",
}

// Message retorna o texto exibido ao usuário
func (k NotificationKind) Message() string {
	return notificationMessages[k]
}

// Notification é uma mensagem de erro exibida ao usuário
type Notification struct {
	ID        string           `json:"id"`
	Kind      NotificationKind `json:"kind"`
	Message   string           `json:"message"`
	ProductID int64            `json:"product_id"`
	CreatedAt time.Time        `json:"created_at"`
}

// NewNotification cria uma nova notificação para o caso de falha informado
func NewNotification(kind NotificationKind, productID int64) Notification {
	return Notification{
		ID:        uuid.New().String(),
		Kind:      kind,
		Message:   kind.Message(),
		ProductID: productID,
		CreatedAt: time.Now(),
	}
}

// Notifier recebe as notificações geradas pelo carrinho
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// LogNotifier registra as notificações no log
type LogNotifier struct {
	log logrus.FieldLogger
}

// NewLogNotifier cria uma nova instância de LogNotifier
func NewLogNotifier(log logrus.FieldLogger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Notify(_ context.Context, notification Notification) {
	n.log.WithFields(logrus.Fields{
		"notification_id": notification.ID,
		"kind":            notification.Kind,
		"product_id":      notification.ProductID,
	}).Warn("🔔 " + notification.Message)
}

const defaultFeedLimit = 50

// NotificationFeed guarda as notificações até que a interface as descarte.
// Acima do limite as mais antigas são descartadas.
type NotificationFeed struct {
	mu            sync.RWMutex
	limit         int
	notifications []Notification
}

// NewNotificationFeed cria uma nova instância de NotificationFeed
func NewNotificationFeed() *NotificationFeed {
	return &NotificationFeed{limit: defaultFeedLimit}
}

func (f *NotificationFeed) Notify(_ context.Context, notification Notification) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.notifications = append(f.notifications, notification)
	if over := len(f.notifications) - f.limit; f.limit > 0 && over > 0 {
		f.notifications = append([]Notification(nil), f.notifications[over:]...)
	}
}

// List retorna as notificações pendentes, da mais antiga para a mais recente
func (f *NotificationFeed) List() []Notification {
	f.mu.RLock()
	defer f.mu.RUnlock()

	out := make([]Notification, len(f.notifications))
	copy(out, f.notifications)
	return out
}

// Dismiss remove a notificação. Retorna false se ela não existir.
func (f *NotificationFeed) Dismiss(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	for i, n := range f.notifications {
		if n.ID == id {
			f.notifications = append(f.notifications[:i], f.notifications[i+1:]...)
			return true
		}
	}
	return false
}

// MultiNotifier repassa cada notificação para todos os notifiers
type MultiNotifier []Notifier

func (m MultiNotifier) Notify(ctx context.Context, notification Notification) {
	for _, n := range m {
		n.Notify(ctx, notification)
	}
}
