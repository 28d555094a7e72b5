// Package cartsync доставляет изменения корзины в удалённый уровень асинхронно,
// не блокируя операции корзины.
package cartsync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"
	"github.com/sony/gobreaker/v2"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

const (
	defaultCapacity        = 256
	defaultMaxAttempts     = 1
	defaultRetryBaseDelay  = 50 * time.Millisecond
	defaultOpTimeout       = 5 * time.Second
	defaultBreakerFailures = 5
	defaultBreakerTimeout  = 30 * time.Second
)

var (
	syncOpsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_cart_sync_ops_total",
		Help: "Total number of remote cart sync operations grouped by kind and result.",
	}, []string{"kind", "result"})
	syncQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "storefront_cart_sync_queue_depth",
		Help: "Current number of buffered remote cart sync operations.",
	})
	syncOpLag = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "storefront_cart_sync_lag_seconds",
		Help:    "Time between enqueueing a sync operation and applying it.",
		Buckets: prometheus.DefBuckets,
	})
)

// QueueOptions задаёт параметры очереди синхронизации.
type QueueOptions struct {
	Logger          *log.Entry
	Capacity        int
	MaxAttempts     int
	RetryBaseDelay  time.Duration
	OpTimeout       time.Duration
	BreakerFailures uint32
	BreakerTimeout  time.Duration
}

// Option настраивает Queue.
type Option func(*QueueOptions)

// WithLogger задаёт logger для очереди.
func WithLogger(logger *log.Entry) Option {
	return func(opts *QueueOptions) {
		opts.Logger = logger
	}
}

// WithCapacity задаёт размер буфера. Операции сверх буфера отбрасываются.
func WithCapacity(capacity int) Option {
	return func(opts *QueueOptions) {
		opts.Capacity = capacity
	}
}

// WithMaxAttempts задаёт число попыток применения операции. По умолчанию 1, без повторов.
func WithMaxAttempts(maxAttempts int) Option {
	return func(opts *QueueOptions) {
		opts.MaxAttempts = maxAttempts
	}
}

// WithRetryBaseDelay задаёт базовый delay для exponential backoff.
func WithRetryBaseDelay(delay time.Duration) Option {
	return func(opts *QueueOptions) {
		opts.RetryBaseDelay = delay
	}
}

// WithOpTimeout ограничивает одно обращение к удалённому уровню.
func WithOpTimeout(timeout time.Duration) Option {
	return func(opts *QueueOptions) {
		opts.OpTimeout = timeout
	}
}

// WithBreaker задаёт порог подряд идущих ошибок и время в открытом состоянии.
func WithBreaker(consecutiveFailures uint32, openTimeout time.Duration) Option {
	return func(opts *QueueOptions) {
		opts.BreakerFailures = consecutiveFailures
		opts.BreakerTimeout = openTimeout
	}
}

// Queue применяет операции синхронизации к удалённому уровню в порядке поступления.
// Ошибки удалённого уровня логируются и не возвращаются в корзину.
type Queue struct {
	remote         domain.RemoteCartRepository
	logger         *log.Entry
	breaker        *gobreaker.CircuitBreaker[struct{}]
	maxAttempts    int
	retryBaseDelay time.Duration
	opTimeout      time.Duration

	mu     sync.RWMutex
	ops    chan domain.SyncOp
	closed bool
}

// NewQueue создаёт очередь синхронизации поверх удалённого уровня.
func NewQueue(remote domain.RemoteCartRepository, options ...Option) *Queue {
	opts := QueueOptions{
		Capacity:        defaultCapacity,
		MaxAttempts:     defaultMaxAttempts,
		RetryBaseDelay:  defaultRetryBaseDelay,
		OpTimeout:       defaultOpTimeout,
		BreakerFailures: defaultBreakerFailures,
		BreakerTimeout:  defaultBreakerTimeout,
	}
	for _, option := range options {
		option(&opts)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.WithField("component", "cart-sync")
	}

	if opts.Capacity <= 0 {
		opts.Capacity = defaultCapacity
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = defaultMaxAttempts
	}
	if opts.RetryBaseDelay < 0 {
		opts.RetryBaseDelay = 0
	}
	if opts.OpTimeout <= 0 {
		opts.OpTimeout = defaultOpTimeout
	}
	if opts.BreakerFailures == 0 {
		opts.BreakerFailures = defaultBreakerFailures
	}
	if opts.BreakerTimeout <= 0 {
		opts.BreakerTimeout = defaultBreakerTimeout
	}

	failures := opts.BreakerFailures
	breaker := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        "cart-remote-tier",
		MaxRequests: 1,
		Timeout:     opts.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.WithFields(log.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("remote cart circuit breaker state changed")
		},
	})

	return &Queue{
		remote:         remote,
		logger:         logger,
		breaker:        breaker,
		maxAttempts:    opts.MaxAttempts,
		retryBaseDelay: opts.RetryBaseDelay,
		opTimeout:      opts.OpTimeout,
		ops:            make(chan domain.SyncOp, opts.Capacity),
	}
}

// Enqueue ставит операцию в очередь без блокировки.
func (q *Queue) Enqueue(op domain.SyncOp) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return domain.ErrSyncQueueClosed
	}
	if op.EnqueuedAt.IsZero() {
		op.EnqueuedAt = time.Now().UTC()
	}

	select {
	case q.ops <- op:
		syncQueueDepth.Set(float64(len(q.ops)))
		return nil
	default:
		syncOpsTotal.WithLabelValues(string(op.Kind), "dropped").Inc()
		q.logger.WithFields(log.Fields{
			"user_id":    op.UserID,
			"op":         op.Kind,
			"product_id": op.ProductID,
		}).Warn("cart sync queue is full, dropping operation")
		return domain.ErrSyncQueueFull
	}
}

// Len возвращает число операций в буфере.
func (q *Queue) Len() int {
	return len(q.ops)
}

// Close прекращает приём операций. Run дочитывает буфер и завершается.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	close(q.ops)
}

// Run применяет операции до отмены ctx или закрытия очереди.
func (q *Queue) Run(ctx context.Context) {
	if q.remote == nil {
		q.logger.Warn("cart sync queue is disabled: remote tier is nil")
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case op, ok := <-q.ops:
			if !ok {
				return
			}
			q.apply(ctx, op)
		}
	}
}

// Drain синхронно применяет всё, что сейчас лежит в буфере.
// Вызывается, когда Run не запущен: при остановке сервиса и в тестах.
func (q *Queue) Drain(ctx context.Context) int {
	if q.remote == nil {
		return 0
	}

	processed := 0
	for {
		if ctx.Err() != nil {
			return processed
		}
		select {
		case op, ok := <-q.ops:
			if !ok {
				return processed
			}
			q.apply(ctx, op)
			processed++
		default:
			return processed
		}
	}
}

// Healthy сообщает, закрыт ли circuit breaker удалённого уровня.
func (q *Queue) Healthy() error {
	if q.breaker.State() == gobreaker.StateOpen {
		return errors.New("remote cart tier circuit breaker is open")
	}
	return nil
}

func (q *Queue) apply(ctx context.Context, op domain.SyncOp) {
	syncQueueDepth.Set(float64(len(q.ops)))
	if !op.EnqueuedAt.IsZero() {
		syncOpLag.Observe(time.Since(op.EnqueuedAt).Seconds())
	}

	if err := q.applyWithRetry(ctx, op); err != nil {
		result := "failed"
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			result = "rejected"
		}
		syncOpsTotal.WithLabelValues(string(op.Kind), result).Inc()
		q.logger.WithError(err).WithFields(log.Fields{
			"user_id":    op.UserID,
			"op":         op.Kind,
			"product_id": op.ProductID,
		}).Warn("remote cart sync failed")
		return
	}
	syncOpsTotal.WithLabelValues(string(op.Kind), "applied").Inc()
}

func (q *Queue) applyWithRetry(ctx context.Context, op domain.SyncOp) error {
	var lastErr error

	for attempt := 1; attempt <= q.maxAttempts; attempt++ {
		_, err := q.breaker.Execute(func() (struct{}, error) {
			return struct{}{}, q.applyOnce(ctx, op)
		})
		if err == nil {
			return nil
		}
		lastErr = err

		if attempt >= q.maxAttempts || errors.Is(err, gobreaker.ErrOpenState) {
			break
		}
		syncOpsTotal.WithLabelValues(string(op.Kind), "retry_error").Inc()

		delay := q.retryBackoff(attempt)
		if delay <= 0 {
			continue
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	if q.maxAttempts == 1 {
		return lastErr
	}
	return fmt.Errorf("sync failed after %d attempts: %w", q.maxAttempts, lastErr)
}

func (q *Queue) applyOnce(ctx context.Context, op domain.SyncOp) error {
	opCtx, cancel := context.WithTimeout(ctx, q.opTimeout)
	defer cancel()

	switch op.Kind {
	case domain.SyncOpUpsert:
		return q.remote.Upsert(opCtx, op.UserID, op.ProductID, op.Quantity)
	case domain.SyncOpDelete:
		return q.remote.Delete(opCtx, op.UserID, op.ProductID)
	case domain.SyncOpClear:
		return q.remote.DeleteAll(opCtx, op.UserID)
	default:
		return fmt.Errorf("unknown sync op kind %q", op.Kind)
	}
}

func (q *Queue) retryBackoff(attempt int) time.Duration {
	if q.retryBaseDelay <= 0 {
		return 0
	}
	if attempt <= 1 {
		return q.retryBaseDelay
	}

	const maxDuration = time.Duration(1<<63 - 1)
	delay := q.retryBaseDelay
	for i := 1; i < attempt; i++ {
		if delay > maxDuration/2 {
			return maxDuration
		}
		delay *= 2
	}
	return delay
}

var _ domain.SyncQueue = (*Queue)(nil)
