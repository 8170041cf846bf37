package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"slices"

	"github.com/jonwraymond/guardian/observe"
	"github.com/jonwraymond/guardian/tokenstore"
)

// recoverUnauthorized handles the first 401 of an authenticated call. On
// success cl.bearer holds the token for the resend; on failure the stored
// tokens are gone and the returned error is an auth failure.
func (c *Client) recoverUnauthorized(ctx context.Context, cl *call, resp *response) error {
	refresh, ok, err := c.store.Get(ctx, tokenstore.KeyRefreshToken)
	if err != nil {
		c.log.WithEndpoint(cl.endpoint).Warn(ctx, "reading refresh token failed", observe.Err(err))
	}
	if err != nil || !ok || refresh == "" {
		c.mw.RecordRefresh(ctx, observe.RefreshSkipped)
		c.expire(ctx, "no refresh token")
		return c.errorFor(cl, ErrAuthFailure, resp, nil)
	}

	if c.coalesce {
		// A concurrent request may have refreshed after this one was sent.
		current, ok, err := c.store.Get(ctx, tokenstore.KeyAccessToken)
		if err == nil && ok && current != "" && current != cl.sent {
			cl.bearer = current
			c.mw.RecordRefresh(ctx, observe.RefreshShared)
			return nil
		}
	}

	access, err := c.refreshAccess(ctx, refresh)
	if err != nil {
		return err
	}
	cl.bearer = access
	return nil
}

// refreshAccess exchanges refresh for a new access token. With coalescing,
// callers holding the same refresh token wait on one shared exchange.
func (c *Client) refreshAccess(ctx context.Context, refresh string) (string, error) {
	if !c.coalesce {
		return c.refreshOnce(ctx, refresh)
	}

	ch := c.refreshes.DoChan(refresh, func() (any, error) {
		// The exchange outlives any single waiter's cancellation.
		return c.refreshOnce(context.WithoutCancel(ctx), refresh)
	})

	select {
	case <-ctx.Done():
		return "", &Error{
			Kind:   ErrNetworkFailure,
			Method: http.MethodPost,
			Path:   c.endpoints.TokenRefresh,
			Err:    ctx.Err(),
		}
	case res := <-ch:
		if res.Shared {
			c.mw.RecordRefresh(ctx, observe.RefreshShared)
		}
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

// refreshOnce performs one refresh exchange. Anything but a 200 with an
// access token ends the session.
func (c *Client) refreshOnce(ctx context.Context, refresh string) (string, error) {
	cl, err := newCall("token_refresh", http.MethodPost, c.endpoints.TokenRefresh,
		map[string]string{"refresh": refresh}, false)
	if err != nil {
		return "", err
	}
	log := c.log.WithEndpoint(cl.endpoint)

	access, err := c.exchangeRefresh(ctx, cl)
	if err != nil {
		c.mw.RecordRefresh(ctx, observe.RefreshFailed)
		log.Warn(ctx, "token refresh failed", observe.Err(err))
		c.expire(ctx, "token refresh failed")
		return "", asAuthFailure(err)
	}

	c.mw.RecordRefresh(ctx, observe.RefreshSucceeded)
	log.Info(ctx, "access token refreshed")
	return access, nil
}

func (c *Client) exchangeRefresh(ctx context.Context, cl *call) (string, error) {
	resp, err := c.send(ctx, cl)
	if err != nil {
		return "", err
	}
	if resp.status != http.StatusOK {
		return "", c.errorFor(cl, ErrAuthFailure, resp, nil)
	}

	var out RefreshResponse
	if err := json.Unmarshal(resp.body, &out); err != nil {
		return "", c.errorFor(cl, ErrMalformedResponse, resp, err)
	}
	if err := out.validate(); err != nil {
		return "", c.errorFor(cl, ErrMalformedResponse, resp, err)
	}

	// A failed write leaves the old token stored; the resend still uses the
	// new one and the next 401 refreshes again.
	if err := c.store.Set(ctx, tokenstore.KeyAccessToken, out.Access); err != nil {
		c.log.WithEndpoint(cl.endpoint).Error(ctx, "persisting access token failed", observe.Err(err))
	}
	if out.Refresh != "" {
		if err := c.store.Set(ctx, tokenstore.KeyRefreshToken, out.Refresh); err != nil {
			c.log.WithEndpoint(cl.endpoint).Error(ctx, "persisting refresh token failed", observe.Err(err))
		}
	}
	return out.Access, nil
}

// expire removes both tokens and notifies the session-expired handlers.
func (c *Client) expire(ctx context.Context, reason string) {
	if err := tokenstore.Clear(ctx, c.store, tokenstore.KeyAccessToken, tokenstore.KeyRefreshToken); err != nil {
		c.log.Error(ctx, "clearing session tokens failed", observe.Err(err))
	}
	c.log.Warn(ctx, "session expired", observe.F("reason", reason))

	c.mu.RLock()
	handlers := slices.Clone(c.onExpired)
	c.mu.RUnlock()
	for _, fn := range handlers {
		fn(ctx)
	}
}

// asAuthFailure reclassifies a refresh error as an auth failure, keeping the
// original error as the cause.
func asAuthFailure(err error) error {
	if errors.Is(err, ErrAuthFailure) {
		return err
	}
	e := &Error{Kind: ErrAuthFailure, Err: err}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		e.Method = apiErr.Method
		e.Path = apiErr.Path
		e.Status = apiErr.Status
	}
	return e
}
