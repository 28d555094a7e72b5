// Package checkout оформляет заказ из корзины авторизованного пользователя.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
)

const (
	resultOK         = "ok"
	resultRejected   = "rejected"
	resultFailed     = "failed"
	publishTimeout   = 5 * time.Second
	defaultComponent = "checkout"
)

// Cart: то, что checkout использует из корзины сессии. *cart.Store подходит.
type Cart interface {
	Identity() domain.Identity
	Lines() []domain.CartLine
	ClearOrdered(ctx context.Context, ordered []domain.CartLine) error
}

// Service оформляет заказы.
type Service struct {
	orders    domain.OrderRepository
	publisher domain.EventPublisher
	metrics   *metrics.CartMetrics
	logger    *log.Entry
	now       func() time.Time
}

// Option настраивает Service.
type Option func(*Service)

// WithPublisher задаёт публикацию событий заказа.
func WithPublisher(publisher domain.EventPublisher) Option {
	return func(s *Service) {
		s.publisher = publisher
	}
}

// WithMetrics задаёт метрики checkout.
func WithMetrics(m *metrics.CartMetrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithLogger задаёт logger.
func WithLogger(logger *log.Entry) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithClock подменяет источник времени.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService создаёт сервис оформления заказов.
func NewService(orders domain.OrderRepository, options ...Option) *Service {
	s := &Service{orders: orders, now: time.Now}
	for _, option := range options {
		option(s)
	}
	if s.logger == nil {
		s.logger = log.WithField("component", defaultComponent)
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Submit оформляет заказ: проверяет сессию, корзину и форму, сохраняет заказ
// в статусе processing и очищает корзину. При ошибке валидации заказ не создаётся.
func (s *Service) Submit(ctx context.Context, cart Cart, form Form) (domain.Order, error) {
	identity := cart.Identity()
	if !identity.SignedIn() {
		s.metrics.RecordCheckout(resultRejected)
		return domain.Order{}, domain.ErrSignInRequired
	}

	lines := cart.Lines()
	if len(lines) == 0 {
		s.metrics.RecordCheckout(resultRejected)
		return domain.Order{}, domain.ErrCartEmpty
	}

	if err := form.Validate(); err != nil {
		s.metrics.RecordCheckout(resultRejected)
		return domain.Order{}, err
	}
	form = form.trimmed()

	now := s.now().UTC()
	order := domain.Order{
		UserID:          identity.UserID,
		CustomerEmail:   form.Email,
		ShippingAddress: form.ShippingAddress(),
		Status:          domain.OrderStatusProcessing,
		TotalAmount:     domain.ComputePricing(lines).Total,
		Items:           domain.OrderItemsFromCart(lines),
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	id, err := s.orders.Create(ctx, order)
	if err != nil {
		s.metrics.RecordCheckout(resultFailed)
		return domain.Order{}, fmt.Errorf("create order: %w", err)
	}
	order.ID = id

	logger := s.logger.WithFields(log.Fields{"order_id": id, "user_id": identity.UserID})
	if err := cart.ClearOrdered(ctx, lines); err != nil {
		// Заказ уже создан, поэтому ошибка очистки только логируется.
		logger.WithError(err).Warn("failed to clear cart after checkout")
	}

	s.publish(ctx, logger, domain.OrderEvent{
		Type:       domain.OrderEventCreated,
		OrderID:    id,
		UserID:     identity.UserID,
		Status:     order.Status,
		Total:      domain.FormatMoney(order.TotalAmount),
		OccurredAt: now,
	})

	s.metrics.RecordCheckout(resultOK)
	logger.WithField("total_amount", order.TotalAmount.String()).Info("order placed")
	return order, nil
}

func (s *Service) publish(ctx context.Context, logger *log.Entry, event domain.OrderEvent) {
	if s.publisher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := s.publisher.PublishOrderEvent(ctx, event); err != nil {
		logger.WithError(err).Warn("failed to publish order event")
	}
}

// IsValidation сообщает, что ошибка вызвана неверными данными формы.
func IsValidation(err error) bool {
	return errors.Is(err, domain.ErrValidation)
}
