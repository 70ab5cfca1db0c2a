package directory

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/md-rashed-zaman/pharmavisit/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/pharmavisit/services/booking-service/internal/model"
	"github.com/redis/go-redis/v9"
)

type memKV struct {
	mu      sync.Mutex
	data    map[string]string
	failGet bool
}

func newMemKV() *memKV { return &memKV{data: map[string]string{}} }

func (m *memKV) Get(_ context.Context, key string) *redis.StringCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failGet {
		return redis.NewStringResult("", errors.New("connection refused"))
	}
	v, ok := m.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *memKV) Set(_ context.Context, key string, value interface{}, _ time.Duration) *redis.StatusCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = string(value.([]byte))
	return redis.NewStatusResult("OK", nil)
}

func (m *memKV) Del(_ context.Context, keys ...string) *redis.IntCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}

type countingSource struct {
	mu         sync.Mutex
	pharmacies map[string]model.Pharmacy
	calls      int
}

func (s *countingSource) GetPharmacy(_ context.Context, id string) (model.Pharmacy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	p, ok := s.pharmacies[id]
	if !ok {
		return model.Pharmacy{}, booking.ErrPharmacyNotFound
	}
	return p, nil
}

func (s *countingSource) UpsertPharmacy(_ context.Context, p model.Pharmacy) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.pharmacies[p.ID]; ok && cur.UpdatedAt.After(p.UpdatedAt) {
		return false, nil
	}
	s.pharmacies[p.ID] = p
	return true, nil
}

func (s *countingSource) DeletePharmacy(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pharmacies, id)
	return nil
}

func testLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestCache_ReadThrough(t *testing.T) {
	src := &countingSource{pharmacies: map[string]model.Pharmacy{
		"ph-1": {ID: "ph-1", Name: "Farmacia Centro", BusinessHoursText: "09:00-13:00"},
	}}
	cache := NewCache(src, newMemKV(), time.Minute, testLogger())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		p, err := cache.GetPharmacy(ctx, "ph-1")
		if err != nil || p.BusinessHoursText != "09:00-13:00" {
			t.Fatalf("lookup %d: %+v %v", i, p, err)
		}
	}
	if src.calls != 1 {
		t.Fatalf("expected a single source read, got %d", src.calls)
	}

	if _, err := cache.GetPharmacy(ctx, "ph-9"); !errors.Is(err, booking.ErrPharmacyNotFound) {
		t.Fatalf("expected ErrPharmacyNotFound, got %v", err)
	}
}

func TestCache_RedisFailureFallsBackToSource(t *testing.T) {
	src := &countingSource{pharmacies: map[string]model.Pharmacy{"ph-1": {ID: "ph-1", Name: "A"}}}
	kv := newMemKV()
	kv.failGet = true
	cache := NewCache(src, kv, time.Minute, testLogger())

	if _, err := cache.GetPharmacy(context.Background(), "ph-1"); err != nil {
		t.Fatalf("expected fallback, got %v", err)
	}
}

func TestSyncer_UpdateEvictsAndIgnoresStale(t *testing.T) {
	t0 := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	src := &countingSource{pharmacies: map[string]model.Pharmacy{
		"ph-1": {ID: "ph-1", Name: "A", BusinessHoursText: "09:00-13:00", UpdatedAt: t0},
	}}
	kv := newMemKV()
	cache := NewCache(src, kv, time.Minute, testLogger())
	syncer := NewSyncer(src, cache, testLogger())
	ctx := context.Background()

	if _, err := cache.GetPharmacy(ctx, "ph-1"); err != nil {
		t.Fatalf("warm: %v", err)
	}

	u, err := DecodeUpdate([]byte(`{"pharmacy_id":"ph-1","name":"A","business_hours_text":"10:00-12:00","updated_at":"2026-05-02T00:00:00Z"}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if err := syncer.Apply(ctx, u); err != nil {
		t.Fatalf("apply: %v", err)
	}
	p, _ := cache.GetPharmacy(ctx, "ph-1")
	if p.BusinessHoursText != "10:00-12:00" {
		t.Fatalf("cache not evicted, got %q", p.BusinessHoursText)
	}

	stale := Update{PharmacyID: "ph-1", Name: "A", BusinessHoursText: "00:00-01:00", UpdatedAt: t0}
	if err := syncer.Apply(ctx, stale); err != nil {
		t.Fatalf("apply stale: %v", err)
	}
	p, _ = cache.GetPharmacy(ctx, "ph-1")
	if p.BusinessHoursText != "10:00-12:00" {
		t.Fatalf("stale update applied: %q", p.BusinessHoursText)
	}

	if err := syncer.Apply(ctx, Update{PharmacyID: "ph-1", Deleted: true}); err != nil {
		t.Fatalf("apply delete: %v", err)
	}
	if _, err := cache.GetPharmacy(ctx, "ph-1"); !errors.Is(err, booking.ErrPharmacyNotFound) {
		t.Fatalf("expected deleted pharmacy to be gone, got %v", err)
	}
}

func TestDecodeUpdate_Rejects(t *testing.T) {
	for _, raw := range []string{`not json`, `{"name":"A"}`, `{"pharmacy_id":"ph-1"}`} {
		if _, err := DecodeUpdate([]byte(raw)); !errors.Is(err, ErrInvalidUpdate) {
			t.Fatalf("%s: expected ErrInvalidUpdate, got %v", raw, err)
		}
	}
	if _, err := DecodeUpdate([]byte(`{"pharmacy_id":"ph-1","deleted":true}`)); err != nil {
		t.Fatalf("delete without name must decode: %v", err)
	}
}

type gatedSource struct {
	started chan struct{}
	release chan struct{}
	mu        sync.Mutex
	calls     int
	cancelled bool
}

func (g *gatedSource) GetPharmacy(ctx context.Context, id string) (model.Pharmacy, error) {
	g.mu.Lock()
	g.calls++
	if g.calls == 1 {
		close(g.started)
	}
	g.mu.Unlock()
	select {
	case <-g.release:
		return model.Pharmacy{ID: id, Name: "Farmacia Centro", BusinessHoursText: "09:00-13:00"}, nil
	case <-ctx.Done():
		g.mu.Lock()
		g.cancelled = true
		g.mu.Unlock()
		return model.Pharmacy{}, ctx.Err()
	}
}

func TestCache_CancelledCallerDoesNotFailSharedLookup(t *testing.T) {
	src := &gatedSource{started: make(chan struct{}), release: make(chan struct{})}
	c := NewCache(src, newMemKV(), time.Minute, slog.New(slog.NewTextHandler(io.Discard, nil)))

	first, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := c.GetPharmacy(first, "ph-1")
		firstErr <- err
	}()
	<-src.started
	cancel()
	if err := <-firstErr; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancelled caller to see context.Canceled, got %v", err)
	}

	// The lookup is still in flight; a second caller joins it.
	second := make(chan error, 1)
	go func() {
		p, err := c.GetPharmacy(context.Background(), "ph-1")
		if err == nil && p.Name != "Farmacia Centro" {
			err = errors.New("unexpected pharmacy " + p.Name)
		}
		second <- err
	}()
	time.Sleep(20 * time.Millisecond)
	close(src.release)

	if err := <-second; err != nil {
		t.Fatalf("second caller failed: %v", err)
	}
	src.mu.Lock()
	defer src.mu.Unlock()
	if src.cancelled {
		t.Fatal("source lookup inherited the cancelled caller's context")
	}
}
