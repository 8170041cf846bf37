package apiclient

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jonwraymond/guardian/tokenstore"
)

// Login authenticates with email and password and persists the returned
// access token, refresh token and username.
func (c *Client) Login(ctx context.Context, creds Credentials) (*AuthResponse, error) {
	if err := creds.Validate(); err != nil {
		return nil, err
	}
	return c.authenticate(ctx, "login", c.endpoints.Login, creds)
}

// Register creates an account and persists the session like Login. A
// password mismatch fails before any request is sent.
func (c *Client) Register(ctx context.Context, reg Registration) (*AuthResponse, error) {
	if err := reg.Validate(); err != nil {
		return nil, err
	}
	return c.authenticate(ctx, "register", c.endpoints.Register, reg)
}

// authenticate posts without a bearer token and without 401 recovery.
func (c *Client) authenticate(ctx context.Context, name, path string, payload any) (*AuthResponse, error) {
	cl, err := newCall(name, http.MethodPost, path, payload, false)
	if err != nil {
		return nil, err
	}

	var out AuthResponse
	if err := c.execute(ctx, cl, &out); err != nil {
		return nil, err
	}
	if err := out.validate(); err != nil {
		return nil, c.errorFor(cl, ErrMalformedResponse, nil, err)
	}

	if err := c.persistSession(ctx, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) persistSession(ctx context.Context, auth *AuthResponse) error {
	entries := []struct{ key, value string }{
		{tokenstore.KeyAccessToken, auth.Access},
		{tokenstore.KeyRefreshToken, auth.Refresh},
		{tokenstore.KeyUsername, auth.User.Username},
	}
	for _, e := range entries {
		if err := c.store.Set(ctx, e.key, e.value); err != nil {
			return fmt.Errorf("apiclient: persist session: %w", err)
		}
	}
	return nil
}

// Logout tells the backend the session ended. It does not touch the store;
// callers clear local state regardless of the result.
func (c *Client) Logout(ctx context.Context) error {
	cl, err := newCall("logout", http.MethodPost, c.endpoints.Logout, nil, true)
	if err != nil {
		return err
	}
	return c.execute(ctx, cl, nil)
}
