package tokenstore

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/redis/go-redis/v9"
)

// Supported drivers for Open.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
)

// ErrUnknownDriver is returned by Open for an unsupported driver name.
var ErrUnknownDriver = errors.New("tokenstore: unknown driver")

// Options selects and configures a backend.
type Options struct {
	Driver      string // memory|sqlite|redis
	DSN         string // sqlite database path
	RedisAddr   string
	RedisPrefix string
}

// Backend is a Store that holds resources.
type Backend interface {
	Store
	io.Closer
	Ping(ctx context.Context) error
}

// Open creates the backend named by opts.Driver.
func Open(ctx context.Context, opts Options) (Backend, error) {
	switch opts.Driver {
	case DriverMemory, "":
		return memoryBackend{NewMemoryStore()}, nil

	case DriverSQLite:
		if opts.DSN == "" {
			return nil, fmt.Errorf("tokenstore: sqlite driver requires a DSN")
		}
		return OpenSQLite(ctx, opts.DSN)

	case DriverRedis:
		if opts.RedisAddr == "" {
			return nil, fmt.Errorf("tokenstore: redis driver requires an address")
		}
		s := NewRedisStore(redis.NewClient(&redis.Options{Addr: opts.RedisAddr}), opts.RedisPrefix)
		if err := s.Ping(ctx); err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("tokenstore: redis ping: %w", err)
		}
		return s, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, opts.Driver)
	}
}

type memoryBackend struct {
	*MemoryStore
}

func (memoryBackend) Ping(context.Context) error { return nil }
func (memoryBackend) Close() error               { return nil }
