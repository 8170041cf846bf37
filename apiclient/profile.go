package apiclient

import (
	"context"
	"net/http"
)

// CurrentUser fetches the profile of the signed-in individual.
func (c *Client) CurrentUser(ctx context.Context) (*User, error) {
	return c.getUser(ctx, "profile", c.endpoints.Profile)
}

// Account fetches the signed-in account.
func (c *Client) Account(ctx context.Context) (*User, error) {
	return c.getUser(ctx, "account", c.endpoints.Account)
}

func (c *Client) getUser(ctx context.Context, name, path string) (*User, error) {
	cl, err := newCall(name, http.MethodGet, path, nil, true)
	if err != nil {
		return nil, err
	}
	var u User
	if err := c.execute(ctx, cl, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// UpdateCurrentUser patches the profile and returns the updated profile.
func (c *Client) UpdateCurrentUser(ctx context.Context, update ProfileUpdate) (*User, error) {
	if err := update.Validate(); err != nil {
		return nil, err
	}
	cl, err := newCall("profile_update", http.MethodPatch, c.endpoints.Profile, update, true)
	if err != nil {
		return nil, err
	}
	var u User
	if err := c.execute(ctx, cl, &u); err != nil {
		return nil, err
	}
	return &u, nil
}
