package health

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/jonwraymond/guardian/tokenstore"
)

// ProbeKey is written and removed by StoreChecker.
const ProbeKey = "guardian.health.probe"

type pinger interface {
	Ping(ctx context.Context) error
}

// StoreChecker checks a token store by round-tripping ProbeKey. Backends
// with a Ping method are pinged first.
type StoreChecker struct {
	store tokenstore.Store
}

// NewStoreChecker creates a StoreChecker.
func NewStoreChecker(store tokenstore.Store) *StoreChecker {
	return &StoreChecker{store: store}
}

func (c *StoreChecker) Name() string { return "token_store" }

func (c *StoreChecker) Check(ctx context.Context) Result {
	if p, ok := c.store.(pinger); ok {
		if err := p.Ping(ctx); err != nil {
			return Unhealthy("token store unreachable", err)
		}
	}

	want := strconv.FormatInt(time.Now().UnixNano(), 10)
	if err := c.store.Set(ctx, ProbeKey, want); err != nil {
		return Unhealthy("token store write failed", err)
	}
	defer func() { _ = c.store.Remove(context.WithoutCancel(ctx), ProbeKey) }()

	got, ok, err := c.store.Get(ctx, ProbeKey)
	if err != nil {
		return Unhealthy("token store read failed", err)
	}
	if !ok || got != want {
		return Unhealthy("token store returned a different value", fmt.Errorf("%w: got %q", ErrProbeMismatch, got))
	}
	return Healthy("token store round trip succeeded")
}
