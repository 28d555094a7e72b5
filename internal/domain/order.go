package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus описывает жизненный цикл заказа.
type OrderStatus string

const (
	// OrderStatusPending: заказ создан, обработка ещё не началась.
	OrderStatusPending OrderStatus = "pending"
	// OrderStatusProcessing: оплата принята, заказ собирается.
	OrderStatusProcessing OrderStatus = "processing"
	// OrderStatusShipped: заказ передан в доставку.
	OrderStatusShipped OrderStatus = "shipped"
	// OrderStatusCompleted: заказ доставлен. Терминальный статус.
	OrderStatusCompleted OrderStatus = "completed"
	// OrderStatusCancelled: заказ отменён. Терминальный статус.
	OrderStatusCancelled OrderStatus = "cancelled"
)

// OrderStatuses перечисляет все поддерживаемые статусы в порядке жизненного цикла.
var OrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusProcessing,
	OrderStatusShipped,
	OrderStatusCompleted,
	OrderStatusCancelled,
}

// Valid проверяет, что статус относится к поддерживаемым значениям.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusShipped,
		OrderStatusCompleted, OrderStatusCancelled:
		return true
	default:
		return false
	}
}

// Terminal сообщает, что из статуса больше нет переходов.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled
}

// CheckTransition проверяет, может ли администратор перевести заказ из s в next.
func (s OrderStatus) CheckTransition(next OrderStatus) error {
	if !next.Valid() {
		return ErrOrderStatusInvalid
	}
	if s.Terminal() || s == next {
		return ErrOrderStatusTransition
	}
	return nil
}

// ShippingAddress: адрес доставки, сохраняется в заказе как есть.
type ShippingAddress struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Address   string `json:"address"`
	City      string `json:"city"`
	State     string `json:"state"`
	ZipCode   string `json:"zipCode"`
	Country   string `json:"country"`
}

// OrderItem: позиция заказа, зафиксированная на момент оформления.
type OrderItem struct {
	ProductID ProductID       `json:"product_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	Total     decimal.Decimal `json:"total"`
}

// Order: заказ. После создания меняется только Status.
type Order struct {
	ID              string          `json:"id"`
	UserID          string          `json:"user_id"`
	CustomerEmail   string          `json:"customer_email,omitempty"`
	ShippingAddress ShippingAddress `json:"shipping_address"`
	Status          OrderStatus     `json:"status"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	Items           []OrderItem     `json:"items"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// OrderItemsFromCart переносит строки корзины в позиции заказа.
func OrderItemsFromCart(lines []CartLine) []OrderItem {
	items := make([]OrderItem, 0, len(lines))
	for _, line := range lines {
		items = append(items, OrderItem{
			ProductID: line.ID,
			Name:      line.Name,
			Price:     line.Price,
			Quantity:  line.Quantity,
			Total:     line.LineTotal(),
		})
	}
	return items
}

// ValidateInvariants проверяет базовые инварианты заказа и возвращает список замечаний.
func (o *Order) ValidateInvariants() []error {
	var errs []error
	if o.UserID == "" {
		errs = append(errs, ErrUserIDRequired)
	}
	if !o.Status.Valid() {
		errs = append(errs, ErrOrderStatusInvalid)
	}
	if len(o.Items) == 0 {
		errs = append(errs, ErrItemsRequired)
	}
	if o.TotalAmount.IsNegative() {
		errs = append(errs, ErrAmountNegative)
	}

	for _, item := range o.Items {
		if item.Quantity <= 0 {
			errs = append(errs, ErrQuantityInvalid)
		}
		if item.Price.IsNegative() {
			errs = append(errs, ErrPriceNegative)
		}
		// total позиции = price * quantity.
		if !item.Total.Equal(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))) {
			errs = append(errs, ErrItemTotalMismatch)
		}
	}
	return errs
}

// DashboardStats: агрегаты для главной страницы админки.
type DashboardStats struct {
	TotalSales     decimal.Decimal `json:"total_sales"`
	TotalOrders    int             `json:"total_orders"`
	TotalProducts  int             `json:"total_products"`
	TotalCustomers int             `json:"total_customers"`
	RecentOrders   []Order         `json:"recent_orders"`
}
