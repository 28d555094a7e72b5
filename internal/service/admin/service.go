// Package admin реализует сценарии админки: списки заказов и товаров, смена статуса, дашборд.
package admin

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
)

const (
	recentOrdersLimit = 5
	publishTimeout    = 5 * time.Second
)

// Service обслуживает админку поверх репозиториев заказов и каталога.
type Service struct {
	orders    domain.OrderRepository
	products  domain.ProductRepository
	publisher domain.EventPublisher
	metrics   *metrics.CartMetrics
	logger    *log.Entry
	now       func() time.Time
}

// Dependencies: необязательные зависимости сервиса.
type Dependencies struct {
	Publisher domain.EventPublisher
	Metrics   *metrics.CartMetrics
	Logger    *log.Entry
	Now       func() time.Time
}

// NewService конструирует сервис админки.
func NewService(orders domain.OrderRepository, products domain.ProductRepository, deps Dependencies) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = log.WithField("component", "admin")
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		orders:    orders,
		products:  products,
		publisher: deps.Publisher,
		metrics:   deps.Metrics,
		logger:    logger,
		now:       now,
	}
}

// ListOrders возвращает страницу заказов с поиском, фильтром статуса и сортировкой.
func (s *Service) ListOrders(ctx context.Context, q domain.ListQuery) (domain.Page[domain.Order], error) {
	q = q.Normalize(domain.OrderSortFields)
	if status, ok := q.StatusFilter(); ok && !status.Valid() {
		return domain.Page[domain.Order]{}, domain.ErrOrderStatusInvalid
	}
	page, err := s.orders.List(ctx, q)
	if err != nil {
		return domain.Page[domain.Order]{}, fmt.Errorf("list orders: %w", err)
	}
	return page, nil
}

// ListProducts возвращает страницу товаров с поиском по названию.
func (s *Service) ListProducts(ctx context.Context, q domain.ListQuery) (domain.Page[domain.Product], error) {
	page, err := s.products.Page(ctx, q.Normalize(domain.ProductSortFields))
	if err != nil {
		return domain.Page[domain.Product]{}, fmt.Errorf("list products: %w", err)
	}
	return page, nil
}

// UpdateOrderStatus переводит заказ в новый статус. Из терминального статуса переходов нет.
func (s *Service) UpdateOrderStatus(ctx context.Context, id string, status domain.OrderStatus) (domain.Order, error) {
	if !status.Valid() {
		return domain.Order{}, domain.ErrOrderStatusInvalid
	}

	order, err := s.orders.Get(ctx, id)
	if err != nil {
		return domain.Order{}, err
	}
	prev := order.Status
	if err := prev.CheckTransition(status); err != nil {
		return domain.Order{}, err
	}

	now := s.now().UTC()
	if err := s.orders.UpdateStatus(ctx, id, status, now); err != nil {
		return domain.Order{}, fmt.Errorf("update order status: %w", err)
	}
	order.Status = status
	order.UpdatedAt = now

	s.metrics.RecordOrderStatusChange(string(status))
	logger := s.logger.WithFields(log.Fields{
		"order_id":    id,
		"prev_status": prev,
		"status":      status,
	})
	logger.Info("order status changed")

	if s.publisher != nil {
		pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
		defer cancel()
		err := s.publisher.PublishOrderEvent(pubCtx, domain.OrderEvent{
			Type:       domain.OrderEventStatusChanged,
			OrderID:    id,
			UserID:     order.UserID,
			Status:     status,
			PrevStatus: prev,
			Total:      domain.FormatMoney(order.TotalAmount),
			OccurredAt: now,
		})
		if err != nil {
			logger.WithError(err).Warn("failed to publish order event")
		}
	}
	return order, nil
}

// Dashboard собирает агрегаты и пять последних заказов.
func (s *Service) Dashboard(ctx context.Context) (domain.DashboardStats, error) {
	stats, err := s.orders.Stats(ctx)
	if err != nil {
		return domain.DashboardStats{}, fmt.Errorf("order stats: %w", err)
	}
	products, err := s.products.Count(ctx)
	if err != nil {
		return domain.DashboardStats{}, fmt.Errorf("count products: %w", err)
	}

	recent, err := s.orders.List(ctx, domain.ListQuery{
		Page:      1,
		PageSize:  recentOrdersLimit,
		SortField: domain.DefaultSortField,
		SortDesc:  true,
	})
	if err != nil {
		return domain.DashboardStats{}, fmt.Errorf("recent orders: %w", err)
	}

	return domain.DashboardStats{
		TotalSales:     stats.TotalSales,
		TotalOrders:    stats.TotalOrders,
		TotalProducts:  products,
		TotalCustomers: stats.TotalCustomers,
		RecentOrders:   recent.Items,
	}, nil
}

// UserOrders возвращает историю заказов пользователя.
func (s *Service) UserOrders(ctx context.Context, userID string) ([]domain.Order, error) {
	if userID == "" {
		return nil, domain.ErrSignInRequired
	}
	return s.orders.ListByUser(ctx, userID)
}

// UserOrder возвращает заказ пользователя. Чужой заказ неотличим от отсутствующего.
func (s *Service) UserOrder(ctx context.Context, userID, id string) (domain.Order, error) {
	if userID == "" {
		return domain.Order{}, domain.ErrSignInRequired
	}
	order, err := s.orders.Get(ctx, id)
	if err != nil {
		return domain.Order{}, err
	}
	if order.UserID != userID {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return order, nil
}
