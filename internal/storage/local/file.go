package local

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

const snapshotFileName = "cart.json"

// FileSlots хранит снимки корзин в файлах <dir>/<device>/cart.json.
type FileSlots struct {
	dir string
}

// NewFileSlots создаёт файловое хранилище и проверяет, что каталог доступен.
func NewFileSlots(dir string) (*FileSlots, error) {
	if dir == "" {
		return nil, errors.New("local tier directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create local tier directory: %w", err)
	}
	return &FileSlots{dir: dir}, nil
}

// Slot возвращает слот устройства.
func (f *FileSlots) Slot(deviceID string) *FileSlot {
	return &FileSlot{path: filepath.Join(f.dir, sanitizeKey(deviceID), snapshotFileName)}
}

// FileSlot: снимок корзины одного устройства в файле.
type FileSlot struct {
	path string
}

// Path возвращает путь к файлу снимка.
func (s *FileSlot) Path() string {
	return s.path
}

func (s *FileSlot) Get(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, domain.ErrSlotEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot file: %w", err)
	}
	return data, nil
}

// Set пишет снимок во временный файл и атомарно переименовывает его.
func (s *FileSlot) Set(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create snapshot directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, snapshotFileName+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write temp snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp snapshot: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace snapshot file: %w", err)
	}
	return nil
}

func (s *FileSlot) Remove(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove snapshot file: %w", err)
	}
	return nil
}

// sanitizeKey оставляет допустимый идентификатор как есть, остальные кодирует в hex
// с префиксом "_", которым допустимый идентификатор начинаться не может.
func sanitizeKey(deviceID string) string {
	if domain.ValidDeviceID(deviceID) {
		return deviceID
	}
	return "_" + hex.EncodeToString([]byte(deviceID))
}

var _ domain.SnapshotSlot = (*FileSlot)(nil)
