package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// CartMetrics содержит метрики корзины, checkout и админки.
// Все методы безопасны для nil-получателя, чтобы тесты могли отключать метрики.
type CartMetrics struct {
	// Счётчики операций корзины
	mutations     *prometheus.CounterVec
	localTierErrs prometheus.Counter

	// Загрузка удалённой корзины после входа
	remoteFetches *prometheus.CounterVec
	staleFetches  prometheus.Counter

	// Checkout и заказы
	checkouts          *prometheus.CounterVec
	orderStatusChanges *prometheus.CounterVec

	// Gauge активных сессий корзины
	activeCarts prometheus.Gauge
}

// NewCartMetrics создаёт метрики в глобальном registry.
func NewCartMetrics() *CartMetrics {
	return NewCartMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

// NewCartMetricsWithRegisterer создаёт метрики в заданном registry.
func NewCartMetricsWithRegisterer(registerer prometheus.Registerer) *CartMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &CartMetrics{
		mutations: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "storefront_cart_mutations_total",
			Help: "Total number of cart mutations grouped by operation.",
		}, []string{"op"}),
		localTierErrs: registerCounter(registerer, prometheus.CounterOpts{
			Name: "storefront_cart_local_tier_errors_total",
			Help: "Total number of failed local tier reads and writes.",
		}),
		remoteFetches: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "storefront_cart_remote_fetches_total",
			Help: "Total number of post sign-in remote cart fetches grouped by result.",
		}, []string{"result"}),
		staleFetches: registerCounter(registerer, prometheus.CounterOpts{
			Name: "storefront_cart_stale_fetches_total",
			Help: "Total number of remote cart fetch results discarded as stale.",
		}),
		checkouts: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "storefront_checkouts_total",
			Help: "Total number of checkout submissions grouped by result.",
		}, []string{"result"}),
		orderStatusChanges: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "storefront_order_status_changes_total",
			Help: "Total number of admin order status changes grouped by target status.",
		}, []string{"status"}),
		activeCarts: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "storefront_active_carts",
			Help: "Number of cart sessions currently held in memory.",
		}),
	}
}

func registerCounter(registerer prometheus.Registerer, opts prometheus.CounterOpts) prometheus.Counter {
	collector := prometheus.NewCounter(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Counter)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter %q: %v", opts.Name, err))
	}
	return collector
}

func registerCounterVec(registerer prometheus.Registerer, opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	collector := prometheus.NewCounterVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter vec %q: %v", opts.Name, err))
	}
	return collector
}

func registerGauge(registerer prometheus.Registerer, opts prometheus.GaugeOpts) prometheus.Gauge {
	collector := prometheus.NewGauge(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Gauge)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register gauge %q: %v", opts.Name, err))
	}
	return collector
}

// RecordMutation увеличивает счётчик операций корзины (add, set_quantity, remove, clear, replace).
func (m *CartMetrics) RecordMutation(op string) {
	if m == nil {
		return
	}
	m.mutations.WithLabelValues(op).Inc()
}

// RecordLocalTierError фиксирует ошибку локального уровня хранения.
func (m *CartMetrics) RecordLocalTierError() {
	if m == nil {
		return
	}
	m.localTierErrs.Inc()
}

// RecordRemoteFetch фиксирует результат загрузки удалённой корзины (ok, error).
func (m *CartMetrics) RecordRemoteFetch(result string) {
	if m == nil {
		return
	}
	m.remoteFetches.WithLabelValues(result).Inc()
}

// RecordStaleFetch фиксирует отброшенный устаревший результат загрузки.
func (m *CartMetrics) RecordStaleFetch() {
	if m == nil {
		return
	}
	m.staleFetches.Inc()
}

// RecordCheckout фиксирует результат оформления заказа.
func (m *CartMetrics) RecordCheckout(result string) {
	if m == nil {
		return
	}
	m.checkouts.WithLabelValues(result).Inc()
}

// RecordOrderStatusChange фиксирует смену статуса заказа администратором.
func (m *CartMetrics) RecordOrderStatusChange(status string) {
	if m == nil {
		return
	}
	m.orderStatusChanges.WithLabelValues(status).Inc()
}

// SetActiveCarts выставляет количество сессий корзины в памяти.
func (m *CartMetrics) SetActiveCarts(n int) {
	if m == nil {
		return
	}
	m.activeCarts.Set(float64(n))
}
