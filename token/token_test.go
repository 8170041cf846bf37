package token

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func sign(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("server-secret"))
	if err != nil {
		t.Fatalf("SignedString() error = %v", err)
	}
	return s
}

func TestInspect(t *testing.T) {
	exp := time.Now().Add(5 * time.Minute).Truncate(time.Second)
	iat := time.Now().Add(-time.Minute).Truncate(time.Second)

	raw := sign(t, jwt.MapClaims{
		"token_type": "access",
		"user_id":    float64(42),
		"exp":        exp.Unix(),
		"iat":        iat.Unix(),
	})

	c, err := Inspect(raw)
	if err != nil {
		t.Fatalf("Inspect() error = %v", err)
	}
	if c.UserID != "42" {
		t.Errorf("UserID = %q, want 42", c.UserID)
	}
	if c.TokenType != "access" {
		t.Errorf("TokenType = %q, want access", c.TokenType)
	}
	if !c.ExpiresAt.Equal(exp) {
		t.Errorf("ExpiresAt = %v, want %v", c.ExpiresAt, exp)
	}
	if !c.IssuedAt.Equal(iat) {
		t.Errorf("IssuedAt = %v, want %v", c.IssuedAt, iat)
	}
}

func TestInspect_ExpiredTokenStillDecodes(t *testing.T) {
	raw := sign(t, jwt.MapClaims{
		"sub": "jane",
		"exp": time.Now().Add(-time.Hour).Unix(),
	})

	c, err := Inspect(raw)
	if err != nil {
		t.Fatalf("Inspect() error = %v", err)
	}
	if !c.Expired(time.Now()) {
		t.Error("Expired() = false, want true")
	}
	if c.UserID != "jane" {
		t.Errorf("UserID = %q, want subject fallback jane", c.UserID)
	}
}

func TestInspect_Malformed(t *testing.T) {
	for _, raw := range []string{"", "not-a-token", "a.b.c"} {
		if _, err := Inspect(raw); !errors.Is(err, ErrMalformed) {
			t.Errorf("Inspect(%q) error = %v, want ErrMalformed", raw, err)
		}
	}
}

func TestClaims_Expired(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name string
		exp  time.Time
		want bool
	}{
		{"no exp", time.Time{}, false},
		{"future", now.Add(time.Second), false},
		{"exactly now", now, true},
		{"past", now.Add(-time.Second), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := (Claims{ExpiresAt: tt.exp}).Expired(now); got != tt.want {
				t.Errorf("Expired() = %v, want %v", got, tt.want)
			}
		})
	}
}
