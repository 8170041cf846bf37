// Package token reads the claims the backend encodes in its access tokens.
//
// Signatures are not verified: the client holds no key and the backend stays
// the authority on validity. Claims are used for display and logging only.
package token

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrMalformed is returned when a token cannot be decoded.
var ErrMalformed = errors.New("token: malformed")

// Claims holds the fields of interest from an access or refresh token.
type Claims struct {
	Subject   string
	UserID    string
	TokenType string // "access" or "refresh" when the backend sets it
	ExpiresAt time.Time
	IssuedAt  time.Time
}

// Expired reports whether the token expired at or before now. A token
// without an exp claim never expires.
func (c Claims) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && !now.Before(c.ExpiresAt)
}

// Inspect decodes raw without verifying its signature.
func Inspect(raw string) (Claims, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return Claims{}, fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	var c Claims
	c.Subject, _ = claims.GetSubject()
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		c.ExpiresAt = exp.Time
	}
	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		c.IssuedAt = iat.Time
	}
	if tt, ok := claims["token_type"].(string); ok {
		c.TokenType = tt
	}

	switch v := claims["user_id"].(type) {
	case string:
		c.UserID = v
	case float64:
		c.UserID = strconv.FormatInt(int64(v), 10)
	}
	if c.UserID == "" {
		c.UserID = c.Subject
	}

	return c, nil
}
