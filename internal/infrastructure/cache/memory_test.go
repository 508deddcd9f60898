package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/pricelens/backend/internal/domain"
)

// fakeClock is a manually advanced time source
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func TestMemoryCache_SetAndGet(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		key     string
		value   string
		ttl     time.Duration
		advance time.Duration
		wantErr error
	}{
		{
			name:  "store and retrieve token",
			key:   "token:anonymous",
			value: "abc123",
			ttl:   time.Minute,
		},
		{
			name:    "expires after ttl",
			key:     "token:short",
			value:   "expires-soon",
			ttl:     time.Second,
			advance: time.Second,
			wantErr: domain.ErrCacheMiss,
		},
		{
			name:    "still valid just before ttl",
			key:     "token:edge",
			value:   "edge",
			ttl:     time.Second,
			advance: 999 * time.Millisecond,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := newFakeClock()
			cache := NewMemoryCache[string]()
			cache.SetClock(clock.Now)

			if err := cache.Set(ctx, tt.key, tt.value, tt.ttl); err != nil {
				t.Fatalf("Set() error = %v", err)
			}
			clock.Advance(tt.advance)

			got, err := cache.Get(ctx, tt.key)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Get() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr == nil && got != tt.value {
				t.Errorf("Get() = %q, want %q", got, tt.value)
			}
		})
	}
}

func TestMemoryCache_Get_CacheMiss(t *testing.T) {
	cache := NewMemoryCache[int]()

	got, err := cache.Get(context.Background(), "non-existent-key")
	if err != domain.ErrCacheMiss {
		t.Errorf("Get() error = %v, want %v", err, domain.ErrCacheMiss)
	}
	if got != 0 {
		t.Errorf("Get() = %d, want zero value on miss", got)
	}
}

func TestMemoryCache_GetStale(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	cache := NewMemoryCache[[]string]()
	cache.SetClock(clock.Now)

	storedAt := clock.Now()
	if err := cache.Set(ctx, "dataset", []string{"melk"}, time.Hour); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	clock.Advance(2 * time.Hour)

	if _, err := cache.Get(ctx, "dataset"); err != domain.ErrCacheMiss {
		t.Fatalf("Get() after expiry error = %v, want cache miss", err)
	}

	value, at, err := cache.GetStale(ctx, "dataset")
	if err != nil {
		t.Fatalf("GetStale() error = %v", err)
	}
	if len(value) != 1 || value[0] != "melk" {
		t.Errorf("GetStale() = %v, want [melk]", value)
	}
	if !at.Equal(storedAt) {
		t.Errorf("GetStale() storedAt = %v, want %v", at, storedAt)
	}

	if _, _, err := cache.GetStale(ctx, "missing"); err != domain.ErrCacheMiss {
		t.Errorf("GetStale() missing key error = %v, want cache miss", err)
	}
}

func TestMemoryCache_Delete(t *testing.T) {
	cache := NewMemoryCache[string]()
	ctx := context.Background()

	key := "delete-test"
	if err := cache.Set(ctx, key, "value", time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	if err := cache.Delete(ctx, key); err != nil {
		t.Errorf("Delete() error = %v", err)
	}

	if _, err := cache.Get(ctx, key); err != domain.ErrCacheMiss {
		t.Errorf("Get() after delete error = %v, want %v", err, domain.ErrCacheMiss)
	}
	if _, _, err := cache.GetStale(ctx, key); err != domain.ErrCacheMiss {
		t.Errorf("GetStale() after delete error = %v, want %v", err, domain.ErrCacheMiss)
	}
}

func TestMemoryCache_Concurrent(t *testing.T) {
	cache := NewMemoryCache[int]()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			key := string(rune('a' + id))
			if err := cache.Set(ctx, key, id, time.Minute); err != nil {
				t.Errorf("Concurrent Set() error = %v", err)
			}
			if _, err := cache.Get(ctx, key); err != nil {
				t.Errorf("Concurrent Get() error = %v", err)
			}
		}(i)
	}
	wg.Wait()
}
