package local_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/storage/local"
)

func exerciseSlot(t *testing.T, slot domain.SnapshotSlot) {
	t.Helper()
	ctx := context.Background()

	if _, err := slot.Get(ctx); !errors.Is(err, domain.ErrSlotEmpty) {
		t.Fatalf("expected ErrSlotEmpty on fresh slot, got %v", err)
	}

	if err := slot.Set(ctx, []byte(`[{"id":"p1","quantity":2}]`)); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	data, err := slot.Get(ctx)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if string(data) != `[{"id":"p1","quantity":2}]` {
		t.Fatalf("unexpected data: %s", data)
	}

	if err := slot.Set(ctx, []byte(`[]`)); err != nil {
		t.Fatalf("overwrite failed: %v", err)
	}
	data, err = slot.Get(ctx)
	if err != nil {
		t.Fatalf("get after overwrite failed: %v", err)
	}
	if string(data) != `[]` {
		t.Fatalf("expected overwritten data, got %s", data)
	}

	if err := slot.Remove(ctx); err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	if _, err := slot.Get(ctx); !errors.Is(err, domain.ErrSlotEmpty) {
		t.Fatalf("expected ErrSlotEmpty after remove, got %v", err)
	}
	if err := slot.Remove(ctx); err != nil {
		t.Fatalf("second remove should be a no-op, got %v", err)
	}
}

func TestMemorySlots_Lifecycle(t *testing.T) {
	slots := local.NewMemorySlots()
	exerciseSlot(t, slots.Slot("device-1"))
	if slots.Len() != 0 {
		t.Fatalf("expected no stored slots, got %d", slots.Len())
	}
}

func TestMemorySlots_IsolatedPerDevice(t *testing.T) {
	ctx := context.Background()
	slots := local.NewMemorySlots()

	if err := slots.Slot("a").Set(ctx, []byte("a")); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if _, err := slots.Slot("b").Get(ctx); !errors.Is(err, domain.ErrSlotEmpty) {
		t.Fatalf("expected device b to be empty, got %v", err)
	}
	if slots.Len() != 1 {
		t.Fatalf("expected 1 stored slot, got %d", slots.Len())
	}
}

func TestMemorySlot_GetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	slot := local.NewMemorySlot()
	if err := slot.Set(ctx, []byte("abc")); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	data, _ := slot.Get(ctx)
	data[0] = 'z'

	again, _ := slot.Get(ctx)
	if string(again) != "abc" {
		t.Fatalf("stored snapshot was mutated through Get: %s", again)
	}
}

func TestFileSlots_Lifecycle(t *testing.T) {
	slots, err := local.NewFileSlots(t.TempDir())
	if err != nil {
		t.Fatalf("new file slots: %v", err)
	}
	exerciseSlot(t, slots.Slot("device-1"))
}

func TestFileSlots_LayoutAndNoTempLeftovers(t *testing.T) {
	dir := t.TempDir()
	slots, err := local.NewFileSlots(dir)
	if err != nil {
		t.Fatalf("new file slots: %v", err)
	}

	slot := slots.Slot("device-1")
	if err := slot.Set(context.Background(), []byte("[]")); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	want := filepath.Join(dir, "device-1", "cart.json")
	if slot.Path() != want {
		t.Fatalf("expected path %s, got %s", want, slot.Path())
	}

	entries, err := os.ReadDir(filepath.Join(dir, "device-1"))
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "cart.json" {
		t.Fatalf("expected only cart.json, got %v", entries)
	}
}

func TestFileSlots_SanitizesDeviceID(t *testing.T) {
	dir := t.TempDir()
	slots, err := local.NewFileSlots(dir)
	if err != nil {
		t.Fatalf("new file slots: %v", err)
	}

	for _, id := range []string{"../escape", "..", "", "a/b"} {
		path := slots.Slot(id).Path()
		rel, err := filepath.Rel(dir, path)
		if err != nil || strings.HasPrefix(rel, "..") || filepath.IsAbs(rel) {
			t.Fatalf("device %q escaped base dir: %s", id, path)
		}
	}
}

func TestFileSlots_DistinctDevicesDoNotCollide(t *testing.T) {
	slots, err := local.NewFileSlots(t.TempDir())
	if err != nil {
		t.Fatalf("new file slots: %v", err)
	}

	ids := []string{"a/b", "a_b", "a b", "_612f62", "d1"}
	seen := make(map[string]string, len(ids))
	for _, id := range ids {
		path := slots.Slot(id).Path()
		if other, ok := seen[path]; ok {
			t.Fatalf("devices %q and %q share %s", other, id, path)
		}
		seen[path] = id
	}
	if got := filepath.Base(filepath.Dir(slots.Slot("d1").Path())); got != "d1" {
		t.Fatalf("valid device id must be used verbatim, got %s", got)
	}
}

func TestFileSlots_RequiresDir(t *testing.T) {
	if _, err := local.NewFileSlots(""); err == nil {
		t.Fatal("expected error for empty dir")
	}
}

func TestFileSlot_CancelledContext(t *testing.T) {
	slots, err := local.NewFileSlots(t.TempDir())
	if err != nil {
		t.Fatalf("new file slots: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := slots.Slot("d").Set(ctx, []byte("[]")); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func newRedisSlots(t *testing.T, ttl time.Duration) (*local.RedisSlots, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return local.NewRedisSlots(client, ttl), mr
}

func TestRedisSlots_Lifecycle(t *testing.T) {
	slots, _ := newRedisSlots(t, time.Minute)
	if err := slots.Ping(context.Background()); err != nil {
		t.Fatalf("ping failed: %v", err)
	}
	exerciseSlot(t, slots.Slot("device-1"))
}

func TestRedisSlots_KeyAndTTL(t *testing.T) {
	slots, mr := newRedisSlots(t, time.Hour)
	ctx := context.Background()

	if err := slots.Slot("d1").Set(ctx, []byte("[]")); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if !mr.Exists("cart:d1") {
		t.Fatalf("expected key cart:d1, keys: %v", mr.Keys())
	}
	if ttl := mr.TTL("cart:d1"); ttl != time.Hour {
		t.Fatalf("expected ttl 1h, got %v", ttl)
	}

	mr.FastForward(2 * time.Hour)
	if _, err := slots.Slot("d1").Get(ctx); !errors.Is(err, domain.ErrSlotEmpty) {
		t.Fatalf("expected expired snapshot to read as empty, got %v", err)
	}
}

func TestRedisSlots_ServerDown(t *testing.T) {
	slots, mr := newRedisSlots(t, time.Minute)
	mr.Close()

	_, err := slots.Slot("d1").Get(context.Background())
	if err == nil || errors.Is(err, domain.ErrSlotEmpty) {
		t.Fatalf("expected transport error, got %v", err)
	}
}
