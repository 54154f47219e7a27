package auth

import (
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "unit-test-secret"

func sign(t *testing.T, claims jwt.RegisteredClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return signed
}

func TestValidateAcceptsValidToken(t *testing.T) {
	t.Parallel()

	v := NewJWTValidator(testSecret)
	token := sign(t, jwt.RegisteredClaims{
		Subject:   "user-1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})

	claims, err := v.Validate(token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.Subject != "user-1" {
		t.Fatalf("unexpected subject %q", claims.Subject)
	}
}

func TestValidateRejectsMissingToken(t *testing.T) {
	t.Parallel()

	v := NewJWTValidator(testSecret)
	if _, err := v.Validate("   "); !errors.Is(err, ErrMissingToken) {
		t.Fatalf("expected ErrMissingToken, got %v", err)
	}
}

func TestValidateRejectsBadSignature(t *testing.T) {
	t.Parallel()

	other := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "user-1"})
	signed, err := other.SignedString([]byte("different-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	v := NewJWTValidator(testSecret)
	if _, err := v.Validate(signed); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestValidateRejectsExpiredToken(t *testing.T) {
	t.Parallel()

	v := NewJWTValidator(testSecret)
	token := sign(t, jwt.RegisteredClaims{
		Subject:   "user-1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
	})

	if _, err := v.Validate(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestValidateRejectsMissingSubject(t *testing.T) {
	t.Parallel()

	v := NewJWTValidator(testSecret)
	token := sign(t, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})

	if _, err := v.Validate(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestExtractToken(t *testing.T) {
	t.Parallel()

	r := httptest.NewRequest("GET", "/ws/notifications?token=query-token", nil)
	if got := ExtractToken(r, "token"); got != "query-token" {
		t.Fatalf("expected query token, got %q", got)
	}

	r.Header.Set("Authorization", "Bearer header-token")
	if got := ExtractToken(r, "token"); got != "header-token" {
		t.Fatalf("header token should win, got %q", got)
	}

	if got := ExtractToken(httptest.NewRequest("GET", "/", nil), ""); got != "" {
		t.Fatalf("expected empty token, got %q", got)
	}
}
