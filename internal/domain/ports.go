package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// SnapshotSlot: локальный уровень хранения корзины: один слот на устройство
// с сериализованным снимком. Get возвращает ErrSlotEmpty, если снимка нет.
type SnapshotSlot interface {
	Get(ctx context.Context) ([]byte, error)
	Set(ctx context.Context, data []byte) error
	Remove(ctx context.Context) error
}

// RemoteCartRepository: удалённый уровень хранения корзины: строки (user_id, product_id, quantity).
type RemoteCartRepository interface {
	// ListByUser возвращает строки корзины пользователя вместе с данными товара.
	ListByUser(ctx context.Context, userID string) ([]CartLine, error)
	// Upsert записывает абсолютное количество товара для пары (user, product).
	Upsert(ctx context.Context, userID string, productID ProductID, quantity int) error
	// Delete удаляет строку пары (user, product).
	Delete(ctx context.Context, userID string, productID ProductID) error
	// DeleteAll очищает корзину пользователя.
	DeleteAll(ctx context.Context, userID string) error
}

// SyncOpKind: тип операции синхронизации удалённой корзины.
type SyncOpKind string

const (
	SyncOpUpsert SyncOpKind = "upsert"
	SyncOpDelete SyncOpKind = "delete"
	SyncOpClear  SyncOpKind = "clear"
)

// SyncOp: сообщение для очереди синхронизации удалённого уровня.
type SyncOp struct {
	Kind       SyncOpKind
	UserID     string
	ProductID  ProductID
	Quantity   int
	EnqueuedAt time.Time
}

// SyncQueue принимает операции синхронизации. Enqueue не должен блокировать вызывающего.
type SyncQueue interface {
	Enqueue(op SyncOp) error
}

// OrderRepository описывает требования к хранилищу заказов.
type OrderRepository interface {
	// Create сохраняет новый заказ и возвращает его идентификатор.
	Create(ctx context.Context, order Order) (string, error)
	// Get возвращает заказ по идентификатору или ErrOrderNotFound.
	Get(ctx context.Context, id string) (Order, error)
	// ListByUser возвращает заказы пользователя, новые сверху.
	ListByUser(ctx context.Context, userID string) ([]Order, error)
	// List возвращает страницу заказов для админки.
	List(ctx context.Context, q ListQuery) (Page[Order], error)
	// UpdateStatus меняет статус заказа.
	UpdateStatus(ctx context.Context, id string, status OrderStatus, updatedAt time.Time) error
	// Stats возвращает агрегаты для дашборда.
	Stats(ctx context.Context) (OrderStats, error)
}

// OrderStats: агрегаты по заказам.
type OrderStats struct {
	TotalSales     decimal.Decimal
	TotalOrders    int
	TotalCustomers int
}

// ProductRepository: каталог товаров.
type ProductRepository interface {
	Get(ctx context.Context, id ProductID) (Product, error)
	List(ctx context.Context, filter ProductFilter) ([]Product, error)
	ListRelated(ctx context.Context, categoryID string, exclude ProductID, limit int) ([]Product, error)
	ListCategories(ctx context.Context) ([]Category, error)
	// Page возвращает страницу товаров для админки.
	Page(ctx context.Context, q ListQuery) (Page[Product], error)
	Count(ctx context.Context) (int, error)
}

// EventPublisher публикует доменные события заказа наружу.
type EventPublisher interface {
	PublishOrderEvent(ctx context.Context, event OrderEvent) error
}

// OrderEventType: тип события заказа.
type OrderEventType string

const (
	OrderEventCreated       OrderEventType = "order.created"
	OrderEventStatusChanged OrderEventType = "order.status_changed"
)

// OrderEvent: событие жизненного цикла заказа.
type OrderEvent struct {
	Type       OrderEventType `json:"event_type"`
	OrderID    string         `json:"order_id"`
	UserID     string         `json:"user_id"`
	Status     OrderStatus    `json:"status"`
	PrevStatus OrderStatus    `json:"prev_status,omitempty"`
	Total      string         `json:"total_amount,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}
