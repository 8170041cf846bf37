package tokenstore

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	s := NewRedisStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "")
	t.Cleanup(func() {
		_ = s.Close()
		mr.Close()
	})
	return s, mr
}

func newSQLStore(t *testing.T) *SQLStore {
	t.Helper()
	s, err := OpenSQLite(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("OpenSQLite() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func backends(t *testing.T) map[string]Store {
	redisStore, _ := newRedisStore(t)
	return map[string]Store{
		"memory": NewMemoryStore(),
		"sqlite": newSQLStore(t),
		"redis":  redisStore,
	}
}

func TestStore_GetSetRemove(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			if _, ok, err := s.Get(ctx, KeyAccessToken); err != nil || ok {
				t.Fatalf("Get() on empty store = ok %v, err %v; want false, nil", ok, err)
			}

			if err := s.Set(ctx, KeyAccessToken, "a1"); err != nil {
				t.Fatalf("Set() error = %v", err)
			}
			got, ok, err := s.Get(ctx, KeyAccessToken)
			if err != nil || !ok || got != "a1" {
				t.Fatalf("Get() = %q, %v, %v; want a1, true, nil", got, ok, err)
			}

			// overwrite keeps a single value per key
			if err := s.Set(ctx, KeyAccessToken, "a2"); err != nil {
				t.Fatalf("Set() overwrite error = %v", err)
			}
			got, _, _ = s.Get(ctx, KeyAccessToken)
			if got != "a2" {
				t.Errorf("Get() after overwrite = %q, want a2", got)
			}

			if err := s.Remove(ctx, KeyAccessToken); err != nil {
				t.Fatalf("Remove() error = %v", err)
			}
			if _, ok, _ := s.Get(ctx, KeyAccessToken); ok {
				t.Error("Get() after Remove returned ok=true")
			}

			if err := s.Remove(ctx, KeyAccessToken); err != nil {
				t.Errorf("Remove() on missing key error = %v, want nil", err)
			}
		})
	}
}

func TestStore_EmptyValue(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if err := s.Set(ctx, KeyUsername, ""); err != nil {
				t.Fatalf("Set() error = %v", err)
			}
			got, ok, err := s.Get(ctx, KeyUsername)
			if err != nil || !ok || got != "" {
				t.Errorf("Get() = %q, %v, %v; want \"\", true, nil", got, ok, err)
			}
		})
	}
}

func TestStore_InvalidKey(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if err := s.Set(ctx, "  ", "v"); !errors.Is(err, ErrInvalidKey) {
				t.Errorf("Set() error = %v, want ErrInvalidKey", err)
			}
			if _, _, err := s.Get(ctx, "a\nb"); !errors.Is(err, ErrInvalidKey) {
				t.Errorf("Get() error = %v, want ErrInvalidKey", err)
			}
		})
	}
}

func TestValidateKey(t *testing.T) {
	tests := []struct {
		key  string
		want error
	}{
		{KeyAccessToken, nil},
		{"", ErrInvalidKey},
		{"   ", ErrInvalidKey},
		{"line\rbreak", ErrInvalidKey},
		{strings.Repeat("k", MaxKeyLength+1), ErrKeyTooLong},
	}
	for _, tt := range tests {
		if err := ValidateKey(tt.key); !errors.Is(err, tt.want) {
			t.Errorf("ValidateKey(%q) = %v, want %v", tt.key, err, tt.want)
		}
	}
}

func TestClear(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	_ = s.Set(ctx, KeyAccessToken, "a")
	_ = s.Set(ctx, KeyRefreshToken, "r")
	_ = s.Set(ctx, "other", "kept")

	if err := Clear(ctx, s, KeyAccessToken, KeyRefreshToken); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if s.Len() != 1 {
		t.Errorf("Len() = %d, want 1", s.Len())
	}
	if err := Clear(ctx, nil, KeyAccessToken); !errors.Is(err, ErrNilStore) {
		t.Errorf("Clear(nil) error = %v, want ErrNilStore", err)
	}
}

type failingStore struct {
	*MemoryStore
	failKey string
}

func (f failingStore) Remove(ctx context.Context, key string) error {
	if key == f.failKey {
		return errors.New("disk full")
	}
	return f.MemoryStore.Remove(ctx, key)
}

func TestClear_ContinuesPastFailures(t *testing.T) {
	ctx := context.Background()
	s := failingStore{MemoryStore: NewMemoryStore(), failKey: KeyAccessToken}
	_ = s.Set(ctx, KeyRefreshToken, "r")

	err := Clear(ctx, s, KeyAccessToken, KeyRefreshToken)
	if err == nil || !strings.Contains(err.Error(), KeyAccessToken) {
		t.Fatalf("Clear() error = %v, want failure naming %s", err, KeyAccessToken)
	}
	if _, ok, _ := s.Get(ctx, KeyRefreshToken); ok {
		t.Error("refresh token still present after Clear")
	}
}

func TestSQLStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "guardian.db")

	s, err := OpenSQLite(ctx, dsn)
	if err != nil {
		t.Fatalf("OpenSQLite() error = %v", err)
	}
	if err := s.Set(ctx, KeyRefreshToken, "r1"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	reopened, err := OpenSQLite(ctx, dsn)
	if err != nil {
		t.Fatalf("OpenSQLite() reopen error = %v", err)
	}
	defer reopened.Close()

	got, ok, err := reopened.Get(ctx, KeyRefreshToken)
	if err != nil || !ok || got != "r1" {
		t.Errorf("Get() after reopen = %q, %v, %v; want r1, true, nil", got, ok, err)
	}
}

func TestRedisStore_Prefix(t *testing.T) {
	s, mr := newRedisStore(t)
	if err := s.Set(context.Background(), KeyUsername, "jane"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	got, err := mr.Get(DefaultRedisPrefix + KeyUsername)
	if err != nil {
		t.Fatalf("miniredis Get() error = %v", err)
	}
	if got != "jane" {
		t.Errorf("raw value = %q, want jane", got)
	}
	if mr.TTL(DefaultRedisPrefix+KeyUsername) != 0 {
		t.Error("key has a TTL, want none")
	}
}

func TestRedisStore_ConnectionError(t *testing.T) {
	s, mr := newRedisStore(t)
	mr.Close()

	if _, _, err := s.Get(context.Background(), KeyAccessToken); err == nil {
		t.Error("Get() on closed server error = nil, want error")
	}
}

func TestMemoryStore_Concurrent(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = s.Set(ctx, KeyAccessToken, strings.Repeat("a", i))
			_, _, _ = s.Get(ctx, KeyAccessToken)
		}(i)
	}
	wg.Wait()

	if s.Len() != 1 {
		t.Errorf("Len() = %d, want 1", s.Len())
	}
}

func TestOpen(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	defer mr.Close()

	tests := []struct {
		name    string
		opts    Options
		wantErr bool
	}{
		{name: "default memory", opts: Options{}},
		{name: "sqlite", opts: Options{Driver: DriverSQLite, DSN: ":memory:"}},
		{name: "sqlite without dsn", opts: Options{Driver: DriverSQLite}, wantErr: true},
		{name: "redis", opts: Options{Driver: DriverRedis, RedisAddr: mr.Addr()}},
		{name: "redis without addr", opts: Options{Driver: DriverRedis}, wantErr: true},
		{name: "unknown", opts: Options{Driver: "etcd"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			b, err := Open(ctx, tt.opts)
			if tt.wantErr {
				if err == nil {
					_ = b.Close()
					t.Fatal("Open() error = nil, want error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Open() error = %v", err)
			}
			defer b.Close()

			if err := b.Ping(ctx); err != nil {
				t.Errorf("Ping() error = %v", err)
			}
			if err := b.Set(ctx, KeyAccessToken, "a"); err != nil {
				t.Errorf("Set() error = %v", err)
			}
		})
	}
}
