package cart

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
)

const defaultFetchTimeout = 10 * time.Second

// StoreOptions задаёт зависимости и параметры Store.
type StoreOptions struct {
	Logger       *log.Entry
	Remote       domain.RemoteCartRepository
	Queue        domain.SyncQueue
	Metrics      *metrics.CartMetrics
	FetchTimeout time.Duration
	Now          func() time.Time
}

// Option настраивает Store.
type Option func(*StoreOptions)

// WithLogger задаёт logger для корзины.
func WithLogger(logger *log.Entry) Option {
	return func(opts *StoreOptions) {
		opts.Logger = logger
	}
}

// WithRemote задаёт удалённый уровень, из которого корзина загружается после входа.
func WithRemote(remote domain.RemoteCartRepository) Option {
	return func(opts *StoreOptions) {
		opts.Remote = remote
	}
}

// WithSyncQueue задаёт очередь, через которую изменения уходят в удалённый уровень.
func WithSyncQueue(queue domain.SyncQueue) Option {
	return func(opts *StoreOptions) {
		opts.Queue = queue
	}
}

// WithMetrics задаёт метрики корзины.
func WithMetrics(m *metrics.CartMetrics) Option {
	return func(opts *StoreOptions) {
		opts.Metrics = m
	}
}

// WithFetchTimeout ограничивает загрузку удалённой корзины после входа.
func WithFetchTimeout(timeout time.Duration) Option {
	return func(opts *StoreOptions) {
		opts.FetchTimeout = timeout
	}
}

// WithClock подменяет источник времени (для тестов).
func WithClock(now func() time.Time) Option {
	return func(opts *StoreOptions) {
		opts.Now = now
	}
}

// Store хранит корзину одной сессии: строки в памяти, снимок на локальном уровне
// и best-effort зеркало на удалённом уровне для авторизованного пользователя.
//
// После любой успешной мутации строки в памяти совпадают со снимком в slot.
type Store struct {
	mu       sync.Mutex
	slot     domain.SnapshotSlot
	remote   domain.RemoteCartRepository
	queue    domain.SyncQueue
	logger   *log.Entry
	metrics  *metrics.CartMetrics
	timeout  time.Duration
	now      func() time.Time
	fetches  singleflight.Group
	lines    []domain.CartLine
	identity domain.Identity
	loading  bool
	// version растёт при каждой мутации и смене identity; им помечаются загрузки удалённой корзины.
	version      uint64
	pendingFetch uint64

	subsMu    sync.Mutex
	subs      map[int]func(Snapshot)
	nextSubID int
}

// New создаёт корзину и восстанавливает её из локального уровня.
// Отсутствующий снимок даёт пустую корзину, повреждённый логируется и отбрасывается.
func New(ctx context.Context, slot domain.SnapshotSlot, options ...Option) (*Store, error) {
	if slot == nil {
		return nil, errors.New("cart snapshot slot is required")
	}

	opts := StoreOptions{FetchTimeout: defaultFetchTimeout, Now: time.Now}
	for _, option := range options {
		option(&opts)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.WithField("component", "cart")
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = defaultFetchTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	s := &Store{
		slot:     slot,
		remote:   opts.Remote,
		queue:    opts.Queue,
		logger:   logger,
		metrics:  opts.Metrics,
		timeout:  opts.FetchTimeout,
		now:      opts.Now,
		lines:    []domain.CartLine{},
		identity: domain.Guest,
		loading:  true,
		subs:     make(map[int]func(Snapshot)),
	}

	lines, err := s.loadLocal(ctx)
	if err != nil {
		return nil, err
	}
	s.lines = lines
	s.loading = false
	return s, nil
}

func (s *Store) loadLocal(ctx context.Context) ([]domain.CartLine, error) {
	data, err := s.slot.Get(ctx)
	if errors.Is(err, domain.ErrSlotEmpty) {
		return []domain.CartLine{}, nil
	}
	if err != nil {
		s.metrics.RecordLocalTierError()
		return nil, fmt.Errorf("read local cart snapshot: %w", err)
	}

	lines, err := DecodeSnapshot(data)
	if err != nil {
		s.metrics.RecordLocalTierError()
		s.logger.WithError(err).Warn("discarding corrupted local cart snapshot")
		return []domain.CartLine{}, nil
	}
	return lines, nil
}

// Snapshot возвращает копию текущего состояния.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Lines возвращает копию строк корзины.
func (s *Store) Lines() []domain.CartLine {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.CloneLines(s.lines)
}

// Identity возвращает владельца корзины.
func (s *Store) Identity() domain.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity
}

// Loading сообщает, ожидается ли загрузка удалённой корзины.
func (s *Store) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Pricing считает суммы по текущему содержимому.
func (s *Store) Pricing() domain.PricingBreakdown {
	return domain.ComputePricing(s.Lines())
}

// AddToCart увеличивает количество товара или добавляет новую строку в конец.
func (s *Store) AddToCart(ctx context.Context, product domain.Product, quantity int) error {
	if !domain.ValidQuantity(quantity) {
		return domain.ErrQuantityInvalid
	}
	if errs := domain.ValidateProduct(product); len(errs) > 0 {
		return errors.Join(errs...)
	}

	s.mu.Lock()
	next := domain.CloneLines(s.lines)
	idx := domain.IndexOfLine(next, product.ID)
	if idx >= 0 {
		sum, err := domain.AddQuantity(next[idx].Quantity, quantity)
		if err != nil {
			s.mu.Unlock()
			return err
		}
		next[idx].Quantity = sum
	} else {
		next = append(next, domain.NewCartLine(product, quantity))
		idx = len(next) - 1
	}

	if err := s.commitLocked(ctx, next); err != nil {
		s.mu.Unlock()
		return err
	}
	s.enqueueLocked(domain.SyncOp{Kind: domain.SyncOpUpsert, ProductID: product.ID, Quantity: next[idx].Quantity})
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.metrics.RecordMutation("add")
	s.notify(snap)
	return nil
}

// SetQuantity выставляет абсолютное количество. Значение меньше 1 удаляет строку,
// больше MaxLineQuantity отклоняется.
func (s *Store) SetQuantity(ctx context.Context, productID domain.ProductID, quantity int) error {
	if quantity < 1 {
		return s.RemoveFromCart(ctx, productID)
	}
	if quantity > domain.MaxLineQuantity {
		return domain.ErrQuantityInvalid
	}

	s.mu.Lock()
	idx := domain.IndexOfLine(s.lines, productID)
	if idx < 0 {
		s.mu.Unlock()
		return domain.ErrCartLineNotFound
	}
	if s.lines[idx].Quantity == quantity {
		s.mu.Unlock()
		return nil
	}

	next := domain.CloneLines(s.lines)
	next[idx].Quantity = quantity
	if err := s.commitLocked(ctx, next); err != nil {
		s.mu.Unlock()
		return err
	}
	s.enqueueLocked(domain.SyncOp{Kind: domain.SyncOpUpsert, ProductID: productID, Quantity: quantity})
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.metrics.RecordMutation("set_quantity")
	s.notify(snap)
	return nil
}

// RemoveFromCart удаляет строку товара. Для отсутствующего товара ничего не делает.
func (s *Store) RemoveFromCart(ctx context.Context, productID domain.ProductID) error {
	s.mu.Lock()
	idx := domain.IndexOfLine(s.lines, productID)
	if idx < 0 {
		s.mu.Unlock()
		return nil
	}

	next := make([]domain.CartLine, 0, len(s.lines)-1)
	next = append(next, s.lines[:idx]...)
	next = append(next, s.lines[idx+1:]...)
	if err := s.commitLocked(ctx, next); err != nil {
		s.mu.Unlock()
		return err
	}
	s.enqueueLocked(domain.SyncOp{Kind: domain.SyncOpDelete, ProductID: productID})
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.metrics.RecordMutation("remove")
	s.notify(snap)
	return nil
}

// ClearCart очищает корзину и удаляет снимок с локального уровня.
func (s *Store) ClearCart(ctx context.Context) error {
	s.mu.Lock()
	if err := s.clearLocked(ctx); err != nil {
		s.mu.Unlock()
		return err
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.metrics.RecordMutation("clear")
	s.notify(snap)
	return nil
}

// ClearOrdered убирает из корзины то, что вошло в заказ: строку целиком или
// заказанное количество, если строку успели увеличить после чтения.
// Строки, добавленные после чтения, остаются в корзине.
func (s *Store) ClearOrdered(ctx context.Context, ordered []domain.CartLine) error {
	s.mu.Lock()
	next := make([]domain.CartLine, 0, len(s.lines))
	var ops []domain.SyncOp
	for _, line := range s.lines {
		idx := domain.IndexOfLine(ordered, line.ID)
		switch {
		case idx < 0:
			next = append(next, line)
		case line.Quantity > ordered[idx].Quantity:
			line.Quantity -= ordered[idx].Quantity
			next = append(next, line)
			ops = append(ops, domain.SyncOp{Kind: domain.SyncOpUpsert, ProductID: line.ID, Quantity: line.Quantity})
		default:
			ops = append(ops, domain.SyncOp{Kind: domain.SyncOpDelete, ProductID: line.ID})
		}
	}

	if len(next) == 0 {
		if err := s.clearLocked(ctx); err != nil {
			s.mu.Unlock()
			return err
		}
	} else {
		if len(ops) == 0 {
			s.mu.Unlock()
			return nil
		}
		if err := s.commitLocked(ctx, next); err != nil {
			s.mu.Unlock()
			return err
		}
		for _, op := range ops {
			s.enqueueLocked(op)
		}
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.metrics.RecordMutation("clear")
	s.notify(snap)
	return nil
}

func (s *Store) clearLocked(ctx context.Context) error {
	if err := s.slot.Remove(ctx); err != nil {
		s.metrics.RecordLocalTierError()
		return fmt.Errorf("remove local cart snapshot: %w", err)
	}
	s.lines = []domain.CartLine{}
	s.version++
	s.enqueueLocked(domain.SyncOp{Kind: domain.SyncOpClear})
	return nil
}

// SignIn привязывает корзину к пользователю и заменяет её содержимым удалённого уровня.
// Удалённый уровень авторитетен при входе: гостевые строки не переносятся.
// Ошибка загрузки логируется и не возвращается; результат, устаревший из-за
// мутации или смены пользователя во время загрузки, отбрасывается.
func (s *Store) SignIn(ctx context.Context, userID string) error {
	if userID == "" {
		return domain.ErrUserIDRequired
	}

	s.mu.Lock()
	s.identity = domain.User(userID)
	s.version++
	tag := s.version
	s.pendingFetch = tag
	remote := s.remote
	s.loading = remote != nil
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)

	if remote == nil {
		return nil
	}

	fetchCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	result, err, _ := s.fetches.Do(userID, func() (any, error) {
		return remote.ListByUser(fetchCtx, userID)
	})

	s.mu.Lock()
	if s.pendingFetch == tag {
		s.loading = false
	}

	if err != nil {
		snap = s.snapshotLocked()
		s.mu.Unlock()
		s.metrics.RecordRemoteFetch("error")
		s.logger.WithError(err).WithField("user_id", userID).Warn("failed to fetch remote cart")
		s.notify(snap)
		return nil
	}
	s.metrics.RecordRemoteFetch("ok")

	if s.version != tag {
		snap = s.snapshotLocked()
		s.mu.Unlock()
		s.metrics.RecordStaleFetch()
		s.logger.WithFields(log.Fields{
			"user_id":       userID,
			"fetch_version": tag,
		}).Debug("discarding stale remote cart")
		s.notify(snap)
		return nil
	}

	lines, _ := result.([]domain.CartLine)
	if err := s.commitLocked(ctx, normalizeRemote(lines)); err != nil {
		snap = s.snapshotLocked()
		s.mu.Unlock()
		s.notify(snap)
		return err
	}
	snap = s.snapshotLocked()
	s.mu.Unlock()

	s.metrics.RecordMutation("replace")
	s.notify(snap)
	return nil
}

// SignOut возвращает корзину в гостевой режим. Содержимое остаётся на устройстве.
func (s *Store) SignOut() {
	s.mu.Lock()
	if !s.identity.SignedIn() {
		s.mu.Unlock()
		return
	}
	s.identity = domain.Guest
	s.version++
	s.loading = false
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snap)
}

// Subscribe регистрирует наблюдателя изменений. Возвращает функцию отписки.
func (s *Store) Subscribe(fn func(Snapshot)) func() {
	s.subsMu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subs[id] = fn
	s.subsMu.Unlock()

	return func() {
		s.subsMu.Lock()
		delete(s.subs, id)
		s.subsMu.Unlock()
	}
}

func (s *Store) notify(snap Snapshot) {
	s.subsMu.Lock()
	subs := make([]func(Snapshot), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.subsMu.Unlock()

	for _, fn := range subs {
		fn(snap)
	}
}

// commitLocked пишет снимок на локальный уровень и только после успеха меняет память.
func (s *Store) commitLocked(ctx context.Context, next []domain.CartLine) error {
	data, err := EncodeSnapshot(next)
	if err != nil {
		return err
	}
	if err := s.slot.Set(ctx, data); err != nil {
		s.metrics.RecordLocalTierError()
		return fmt.Errorf("write local cart snapshot: %w", err)
	}
	s.lines = next
	s.version++
	return nil
}

// enqueueLocked отправляет операцию в очередь синхронизации, если пользователь вошёл.
// Ошибки очереди не влияют на состояние корзины.
func (s *Store) enqueueLocked(op domain.SyncOp) {
	if !s.identity.SignedIn() || s.queue == nil {
		return
	}
	op.UserID = s.identity.UserID
	op.EnqueuedAt = s.now().UTC()
	if err := s.queue.Enqueue(op); err != nil {
		s.logger.WithError(err).WithFields(log.Fields{
			"user_id":    op.UserID,
			"op":         op.Kind,
			"product_id": op.ProductID,
		}).Warn("failed to enqueue remote cart sync")
	}
}

func (s *Store) snapshotLocked() Snapshot {
	return newSnapshot(s.lines, s.identity, s.loading)
}

func normalizeRemote(lines []domain.CartLine) []domain.CartLine {
	out := make([]domain.CartLine, 0, len(lines))
	for _, line := range lines {
		if line.ID == "" || line.Quantity < 1 {
			continue
		}
		line.Quantity = min(line.Quantity, domain.MaxLineQuantity)
		if idx := domain.IndexOfLine(out, line.ID); idx >= 0 {
			out[idx].Quantity = domain.MergeQuantity(out[idx].Quantity, line.Quantity)
			continue
		}
		out = append(out, line)
	}
	return out
}
