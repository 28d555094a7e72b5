// Package app собирает витрину: хранилища, корзины, очередь синхронизации, HTTP API и ops-сервер.
package app

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/cart"
	healthcheck "github.com/vladislavdragonenkov/storefront/internal/health"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
	"github.com/vladislavdragonenkov/storefront/internal/service/admin"
	"github.com/vladislavdragonenkov/storefront/internal/service/cartsync"
	"github.com/vladislavdragonenkov/storefront/internal/service/checkout"
	"github.com/vladislavdragonenkov/storefront/internal/transport/httpapi"
	"github.com/vladislavdragonenkov/storefront/internal/version"
)

const serverShutdownTimeout = 5 * time.Second

// Run поднимает все компоненты и блокируется до отмены ctx или падения HTTP-сервера.
func Run(ctx context.Context, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger := log.WithField("component", "app")
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = DefaultConfig().ShutdownTimeout
	}

	deps, err := initRuntimeDependencies(ctx, cfg, logger.WithField("layer", "storage"))
	if err != nil {
		return err
	}
	defer deps.close(logger)

	tier, err := initLocalTier(ctx, cfg, logger.WithField("layer", "local-tier"))
	if err != nil {
		return err
	}
	defer tier.close(logger)

	events, err := initOrderEvents(cfg, logger.WithField("layer", "kafka"))
	if err != nil {
		// Витрина работает и без Kafka: заказы сохраняются, события теряются.
		logger.WithError(err).Warn("failed to create kafka producer, continuing without order events")
		events = &orderEvents{}
	}
	defer events.close(logger)
	publisher := events.publisher

	cartMetrics := metrics.NewCartMetrics()

	queue := cartsync.NewQueue(deps.remote,
		cartsync.WithLogger(logger.WithField("layer", "cart-sync")),
		cartsync.WithCapacity(cfg.SyncQueueSize),
		cartsync.WithMaxAttempts(cfg.SyncMaxAttempts),
		cartsync.WithRetryBaseDelay(cfg.SyncRetryDelay),
	)
	queueCtx, stopQueue := context.WithCancel(context.Background())
	queueDone := make(chan struct{})
	go func() {
		defer close(queueDone)
		queue.Run(queueCtx)
	}()
	defer func() {
		// После Close воркер дописывает буфер в удалённый уровень, но не дольше ShutdownTimeout.
		queue.Close()
		select {
		case <-queueDone:
		case <-time.After(cfg.ShutdownTimeout):
			logger.WithField("pending", queue.Len()).Warn("cart sync queue did not drain in time")
			stopQueue()
			<-queueDone
		}
		stopQueue()
	}()

	registry := cart.NewRegistry(tier.slots, logger.WithField("layer", "cart"), cartMetrics,
		cart.WithRemote(deps.remote),
		cart.WithSyncQueue(queue),
		cart.WithFetchTimeout(cfg.RemoteFetchTimeout),
	)
	go registry.RunJanitor(ctx, cfg.CartJanitorPeriod, cfg.CartIdleTTL)

	router := httpapi.NewRouter(httpapi.Deps{
		Carts:   registry,
		Catalog: deps.catalog,
		Checkout: checkout.NewService(deps.orders,
			checkout.WithPublisher(publisher),
			checkout.WithMetrics(cartMetrics),
			checkout.WithLogger(logger.WithField("layer", "checkout")),
		),
		Admin: admin.NewService(deps.orders, deps.catalog, admin.Dependencies{
			Publisher: publisher,
			Metrics:   cartMetrics,
			Logger:    logger.WithField("layer", "admin"),
		}),
		Logger:         logger.WithField("layer", "http"),
		RequestTimeout: cfg.RequestTimeout,
	})

	healthHandler := healthcheck.NewHandler(version.Version())
	if deps.storageChecker != nil {
		healthHandler.RegisterChecker("postgres", deps.storageChecker)
	}
	if tier.checker != nil {
		healthHandler.RegisterChecker("redis", tier.checker)
	}
	healthHandler.RegisterChecker("sync_queue", healthcheck.NewDegradableChecker("sync_queue", queue.Healthy))

	metricsSrv := startMetricsServer(ctx, cfg.MetricsAddr, logger, healthHandler)
	defer shutdownHTTP(metricsSrv, logger)

	lis, err := net.Listen("tcp", cfg.HTTPAddr)
	if err != nil {
		return err
	}
	apiSrv := &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("HTTP API слушает %s", lis.Addr())
		errCh <- apiSrv.Serve(lis)
	}()

	select {
	case <-ctx.Done():
		logger.Info("получен сигнал остановки, останавливаем HTTP API")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := apiSrv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Warn("HTTP API shutdown with error")
		}
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// startMetricsServer запускает ops-сервер: /metrics, /healthz, /livez, /readyz.
func startMetricsServer(ctx context.Context, addr string, logger *log.Entry, healthHandler *healthcheck.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", healthHandler)
	mux.HandleFunc("/livez", healthcheck.LivenessHandler)
	mux.HandleFunc("/readyz", healthHandler.ReadinessHandler)

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		logger.Infof("метрики доступны по адресу %s/metrics", addr)
		logger.Infof("health checks: %s/healthz, %s/livez, %s/readyz", addr, addr, addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Warn("metrics server failed")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownHTTP(srv, logger)
	}()

	return srv
}

// shutdownHTTP аккуратно останавливает HTTP-сервер.
func shutdownHTTP(srv *http.Server, logger *log.Entry) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), serverShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("metrics shutdown with error")
	}
}
