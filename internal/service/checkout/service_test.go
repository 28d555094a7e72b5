package checkout_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/storefront/internal/cart"
	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
	"github.com/vladislavdragonenkov/storefront/internal/service/checkout"
	"github.com/vladislavdragonenkov/storefront/internal/storage/local"
	"github.com/vladislavdragonenkov/storefront/internal/storage/memory"
)

func loggerForTests() *logrus.Entry {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	logger.SetLevel(logrus.DebugLevel)
	return logger.WithField("component", "test")
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.OrderEvent
	err    error
}

func (p *recordingPublisher) PublishOrderEvent(_ context.Context, event domain.OrderEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

type failingOrders struct {
	domain.OrderRepository
}

func (failingOrders) Create(context.Context, domain.Order) (string, error) {
	return "", errors.New("db down")
}

// concurrentOrders вызывает during внутри Create, имитируя изменение корзины во время оформления.
type concurrentOrders struct {
	domain.OrderRepository
	during func()
}

func (o concurrentOrders) Create(ctx context.Context, order domain.Order) (string, error) {
	o.during()
	return o.OrderRepository.Create(ctx, order)
}

func validForm() checkout.Form {
	return checkout.Form{
		FirstName:  "Ada",
		LastName:   "Lovelace",
		Email:      "ada@example.com",
		Address:    "12 Analytical St",
		City:       "London",
		ZipCode:    "N1 9GU",
		Country:    "UK",
		CardName:   "Ada Lovelace",
		CardNumber: "4242424242424242",
		Expiry:     "12/30",
		CVV:        "123",
	}
}

func signedInCart(t *testing.T, userID string, lines ...domain.Product) *cart.Store {
	t.Helper()
	ctx := context.Background()
	store, err := cart.New(ctx, local.NewMemorySlot(), cart.WithLogger(loggerForTests()))
	require.NoError(t, err)
	if userID != "" {
		require.NoError(t, store.SignIn(ctx, userID))
	}
	for _, p := range lines {
		require.NoError(t, store.AddToCart(ctx, p, 3))
	}
	return store
}

func product50() domain.Product {
	return domain.Product{ID: "p1", Name: "Lamp", Price: decimal.NewFromInt(50)}
}

func newService(orders domain.OrderRepository, publisher domain.EventPublisher) *checkout.Service {
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	return checkout.NewService(orders,
		checkout.WithPublisher(publisher),
		checkout.WithLogger(loggerForTests()),
		checkout.WithMetrics(metrics.NewCartMetricsWithRegisterer(prometheus.NewRegistry())),
		checkout.WithClock(func() time.Time { return now }),
	)
}

func TestSubmitCreatesProcessingOrderAndClearsCart(t *testing.T) {
	ctx := context.Background()
	orders := memory.NewOrderRepository()
	publisher := &recordingPublisher{}
	svc := newService(orders, publisher)
	store := signedInCart(t, "u1", product50())

	order, err := svc.Submit(ctx, store, validForm())
	require.NoError(t, err)
	require.NotEmpty(t, order.ID)
	require.Equal(t, domain.OrderStatusProcessing, order.Status)
	require.True(t, order.TotalAmount.Equal(decimal.NewFromInt(162)), "total %s", order.TotalAmount)
	require.Empty(t, store.Lines())

	stored, err := orders.Get(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, "u1", stored.UserID)
	require.Equal(t, "ada@example.com", stored.CustomerEmail)
	require.Equal(t, "London", stored.ShippingAddress.City)
	require.Len(t, stored.Items, 1)
	require.Equal(t, 3, stored.Items[0].Quantity)
	require.True(t, stored.Items[0].Total.Equal(decimal.NewFromInt(150)))

	require.Len(t, publisher.events, 1)
	require.Equal(t, domain.OrderEventCreated, publisher.events[0].Type)
	require.Equal(t, order.ID, publisher.events[0].OrderID)
	require.Equal(t, "162.00", publisher.events[0].Total)
}

func TestSubmitRequiresSignIn(t *testing.T) {
	orders := memory.NewOrderRepository()
	svc := newService(orders, nil)
	store := signedInCart(t, "", product50())

	_, err := svc.Submit(context.Background(), store, validForm())
	require.ErrorIs(t, err, domain.ErrSignInRequired)
	require.Len(t, store.Lines(), 1)
}

func TestSubmitRejectsEmptyCart(t *testing.T) {
	svc := newService(memory.NewOrderRepository(), nil)
	store := signedInCart(t, "u1")

	_, err := svc.Submit(context.Background(), store, validForm())
	require.ErrorIs(t, err, domain.ErrCartEmpty)
}

func TestSubmitMissingFieldCreatesNoOrder(t *testing.T) {
	ctx := context.Background()
	orders := memory.NewOrderRepository()
	publisher := &recordingPublisher{}
	svc := newService(orders, publisher)
	store := signedInCart(t, "u1", product50())

	form := validForm()
	form.ZipCode = "  "

	_, err := svc.Submit(ctx, store, form)
	require.Error(t, err)
	require.True(t, checkout.IsValidation(err))
	require.EqualError(t, err, "Zip Code is required")

	list, err := orders.ListByUser(ctx, "u1")
	require.NoError(t, err)
	require.Empty(t, list)
	require.Len(t, store.Lines(), 1)
	require.Empty(t, publisher.events)
}

func TestSubmitRepositoryFailureKeepsCart(t *testing.T) {
	svc := newService(failingOrders{}, nil)
	store := signedInCart(t, "u1", product50())

	_, err := svc.Submit(context.Background(), store, validForm())
	require.Error(t, err)
	require.False(t, checkout.IsValidation(err))
	require.Len(t, store.Lines(), 1)
}

func TestSubmitPublishFailureDoesNotFailCheckout(t *testing.T) {
	publisher := &recordingPublisher{err: errors.New("broker down")}
	svc := newService(memory.NewOrderRepository(), publisher)
	store := signedInCart(t, "u1", product50())

	order, err := svc.Submit(context.Background(), store, validForm())
	require.NoError(t, err)
	require.NotEmpty(t, order.ID)
	require.Empty(t, store.Lines())
}

func TestSubmitKeepsLinesAddedDuringCheckout(t *testing.T) {
	ctx := context.Background()
	store := signedInCart(t, "u1", product50())
	extra := domain.Product{ID: "p2", Name: "Shade", Price: decimal.NewFromInt(7)}
	orders := concurrentOrders{
		OrderRepository: memory.NewOrderRepository(),
		during: func() {
			require.NoError(t, store.AddToCart(ctx, extra, 2))
			require.NoError(t, store.AddToCart(ctx, product50(), 1))
		},
	}
	svc := newService(orders, nil)

	order, err := svc.Submit(ctx, store, validForm())
	require.NoError(t, err)
	require.Len(t, order.Items, 1)
	require.Equal(t, 3, order.Items[0].Quantity)

	lines := store.Lines()
	require.Len(t, lines, 2)
	require.Equal(t, domain.ProductID("p1"), lines[0].ID)
	require.Equal(t, 1, lines[0].Quantity)
	require.Equal(t, domain.ProductID("p2"), lines[1].ID)
	require.Equal(t, 2, lines[1].Quantity)
}
