package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// orderRepositoryInMemory: простая in-memory реализация OrderRepository.
type orderRepositoryInMemory struct {
	mu    sync.RWMutex
	items map[string]domain.Order
}

// NewOrderRepository возвращает in-memory репозиторий для локальной разработки и тестов.
func NewOrderRepository() domain.OrderRepository {
	return &orderRepositoryInMemory{
		items: make(map[string]domain.Order),
	}
}

// Create сохраняет заказ. Пустой ID заменяется сгенерированным.
func (r *orderRepositoryInMemory) Create(_ context.Context, order domain.Order) (string, error) {
	if errs := order.ValidateInvariants(); len(errs) > 0 {
		return "", errs[0]
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if order.ID == "" {
		order.ID = uuid.NewString()
	}
	if _, exists := r.items[order.ID]; exists {
		return "", domain.ErrOrderAlreadyExists
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now().UTC()
	}
	if order.UpdatedAt.IsZero() {
		order.UpdatedAt = order.CreatedAt
	}
	order.Items = append([]domain.OrderItem(nil), order.Items...)
	r.items[order.ID] = order
	return order.ID, nil
}

// Get возвращает заказ или ErrOrderNotFound, если его нет.
func (r *orderRepositoryInMemory) Get(_ context.Context, id string) (domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.items[id]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return cloneOrder(order), nil
}

// ListByUser возвращает заказы пользователя, новые сверху.
func (r *orderRepositoryInMemory) ListByUser(_ context.Context, userID string) ([]domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.Order, 0)
	for _, order := range r.items {
		if order.UserID != userID {
			continue
		}
		result = append(result, cloneOrder(order))
	}

	sortOrders(result, domain.DefaultSortField, true)
	return result, nil
}

// List возвращает страницу заказов: поиск по id и email, фильтр статуса, сортировка.
func (r *orderRepositoryInMemory) List(_ context.Context, q domain.ListQuery) (domain.Page[domain.Order], error) {
	q = q.Normalize(domain.OrderSortFields)
	search := strings.ToLower(q.Search)
	status, filterStatus := q.StatusFilter()

	r.mu.RLock()
	result := make([]domain.Order, 0, len(r.items))
	for _, order := range r.items {
		if filterStatus && order.Status != status {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(order.ID), search) &&
			!strings.Contains(strings.ToLower(order.CustomerEmail), search) {
			continue
		}
		result = append(result, cloneOrder(order))
	}
	r.mu.RUnlock()

	sortOrders(result, q.SortField, q.SortDesc)
	return domain.Paginate(result, q), nil
}

// UpdateStatus меняет статус заказа и время обновления.
func (r *orderRepositoryInMemory) UpdateStatus(_ context.Context, id string, status domain.OrderStatus, updatedAt time.Time) error {
	if !status.Valid() {
		return domain.ErrOrderStatusInvalid
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.items[id]
	if !ok {
		return domain.ErrOrderNotFound
	}
	order.Status = status
	order.UpdatedAt = updatedAt
	r.items[id] = order
	return nil
}

// Stats считает сумму продаж, число заказов и уникальных покупателей.
func (r *orderRepositoryInMemory) Stats(context.Context) (domain.OrderStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := domain.OrderStats{TotalSales: decimal.Zero}
	customers := make(map[string]struct{})
	for _, order := range r.items {
		stats.TotalSales = stats.TotalSales.Add(order.TotalAmount)
		stats.TotalOrders++
		customers[order.UserID] = struct{}{}
	}
	stats.TotalCustomers = len(customers)
	return stats, nil
}

func cloneOrder(order domain.Order) domain.Order {
	order.Items = append([]domain.OrderItem(nil), order.Items...)
	return order
}

func sortOrders(items []domain.Order, field string, desc bool) {
	cmp := func(a, b domain.Order) int {
		switch field {
		case "total_amount":
			return a.TotalAmount.Cmp(b.TotalAmount)
		case "status":
			return strings.Compare(string(a.Status), string(b.Status))
		case "id":
			return strings.Compare(a.ID, b.ID)
		default:
			return a.CreatedAt.Compare(b.CreatedAt)
		}
	}

	sort.SliceStable(items, func(i, j int) bool {
		c := cmp(items[i], items[j])
		if c == 0 {
			c = strings.Compare(items[i].ID, items[j].ID)
		}
		if desc {
			return c > 0
		}
		return c < 0
	})
}

var _ domain.OrderRepository = (*orderRepositoryInMemory)(nil)
