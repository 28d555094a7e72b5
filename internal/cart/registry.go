package cart

import (
	"context"
	"errors"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
)

// ErrDeviceIDRequired возвращается, если запрос не указал устройство.
var ErrDeviceIDRequired = errors.New("device id is required")

// ErrDeviceIDInvalid возвращается для идентификатора вне формата domain.ValidDeviceID.
var ErrDeviceIDInvalid = errors.New("device id is invalid")

// SlotFactory возвращает локальный слот корзины для устройства.
type SlotFactory func(deviceID string) domain.SnapshotSlot

// Registry держит по одной корзине на устройство.
type Registry struct {
	mu      sync.Mutex
	stores  map[string]*registryEntry
	slots   SlotFactory
	options []Option
	logger  *log.Entry
	metrics *metrics.CartMetrics
}

type registryEntry struct {
	store    *Store
	lastUsed time.Time
}

// NewRegistry создаёт реестр корзин. options применяются к каждой новой корзине.
func NewRegistry(slots SlotFactory, logger *log.Entry, m *metrics.CartMetrics, options ...Option) *Registry {
	if logger == nil {
		logger = log.WithField("component", "cart-registry")
	}
	return &Registry{
		stores:  make(map[string]*registryEntry),
		slots:   slots,
		options: options,
		logger:  logger,
		metrics: m,
	}
}

// Get возвращает корзину устройства, при первом обращении поднимая её из локального уровня.
func (r *Registry) Get(ctx context.Context, deviceID string) (*Store, error) {
	if deviceID == "" {
		return nil, ErrDeviceIDRequired
	}
	if !domain.ValidDeviceID(deviceID) {
		return nil, ErrDeviceIDInvalid
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	if entry, ok := r.stores[deviceID]; ok {
		entry.lastUsed = now
		return entry.store, nil
	}

	opts := make([]Option, 0, len(r.options)+2)
	opts = append(opts, r.options...)
	opts = append(opts,
		WithLogger(r.logger.WithField("device_id", deviceID)),
		WithMetrics(r.metrics),
	)
	store, err := New(ctx, r.slots(deviceID), opts...)
	if err != nil {
		return nil, err
	}
	r.stores[deviceID] = &registryEntry{store: store, lastUsed: now}
	r.metrics.SetActiveCarts(len(r.stores))
	return store, nil
}

// Resolve возвращает корзину устройства и приводит её identity к userID:
// новый пользователь вызывает SignIn, пустой userID вызывает SignOut.
func (r *Registry) Resolve(ctx context.Context, deviceID, userID string) (*Store, error) {
	store, err := r.Get(ctx, deviceID)
	if err != nil {
		return nil, err
	}

	current := store.Identity()
	switch {
	case userID == "" && current.SignedIn():
		store.SignOut()
	case userID != "" && current.UserID != userID:
		if err := store.SignIn(ctx, userID); err != nil {
			return nil, err
		}
	}
	return store, nil
}

// Evict выгружает корзину устройства из памяти. Локальный снимок остаётся.
func (r *Registry) Evict(deviceID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.stores, deviceID)
	r.metrics.SetActiveCarts(len(r.stores))
}

// EvictIdle выгружает корзины, к которым не обращались с cutoff, и возвращает их число.
func (r *Registry) EvictIdle(cutoff time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	evicted := 0
	for deviceID, entry := range r.stores {
		if entry.lastUsed.Before(cutoff) {
			delete(r.stores, deviceID)
			evicted++
		}
	}
	if evicted > 0 {
		r.metrics.SetActiveCarts(len(r.stores))
	}
	return evicted
}

// RunJanitor раз в interval выгружает корзины, простаивающие дольше idleTTL. Блокирует до отмены ctx.
func (r *Registry) RunJanitor(ctx context.Context, interval, idleTTL time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := r.EvictIdle(now.Add(-idleTTL)); n > 0 {
				r.logger.WithField("evicted", n).Debug("idle carts evicted")
			}
		}
	}
}

// Len возвращает количество корзин в памяти.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.stores)
}
