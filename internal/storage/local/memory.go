package local

import (
	"context"
	"sync"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// MemorySlots: in-memory хранилище снимков корзин по устройствам.
// Используется для локальной разработки и тестов.
type MemorySlots struct {
	mu    sync.RWMutex
	items map[string][]byte
}

// NewMemorySlots создаёт пустое in-memory хранилище.
func NewMemorySlots() *MemorySlots {
	return &MemorySlots{items: make(map[string][]byte)}
}

// Slot возвращает слот устройства.
func (m *MemorySlots) Slot(deviceID string) domain.SnapshotSlot {
	return &memorySlot{parent: m, key: slotKey(deviceID)}
}

// Len возвращает количество непустых слотов.
func (m *MemorySlots) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}

type memorySlot struct {
	parent *MemorySlots
	key    string
}

func (s *memorySlot) Get(context.Context) ([]byte, error) {
	s.parent.mu.RLock()
	defer s.parent.mu.RUnlock()

	data, ok := s.parent.items[s.key]
	if !ok {
		return nil, domain.ErrSlotEmpty
	}
	// Отдаём копию, чтобы вызывающий не мог изменить сохранённый снимок.
	return append([]byte(nil), data...), nil
}

func (s *memorySlot) Set(_ context.Context, data []byte) error {
	s.parent.mu.Lock()
	defer s.parent.mu.Unlock()
	s.parent.items[s.key] = append([]byte(nil), data...)
	return nil
}

func (s *memorySlot) Remove(context.Context) error {
	s.parent.mu.Lock()
	defer s.parent.mu.Unlock()
	delete(s.parent.items, s.key)
	return nil
}

// NewMemorySlot возвращает отдельный слот без общего хранилища.
func NewMemorySlot() domain.SnapshotSlot {
	return NewMemorySlots().Slot("default")
}

var _ domain.SnapshotSlot = (*memorySlot)(nil)
