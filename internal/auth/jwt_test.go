package auth

import (
	"testing"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
)

func signToken(t *testing.T, secret string, claims gojwt.MapClaims) string {
	t.Helper()
	token := gojwt.NewWithClaims(gojwt.SigningMethodHS256, claims)
	s, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return s
}

func TestValidator_Validate(t *testing.T) {
	v, err := NewValidator("topsecret")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tokenString := signToken(t, "topsecret", gojwt.MapClaims{
		"sub": "user-1",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	claims, err := v.Validate(tokenString)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if claims["sub"] != "user-1" {
		t.Errorf("expected sub user-1, got %v", claims["sub"])
	}
}

func TestValidator_Validate_WrongSecret(t *testing.T) {
	v, _ := NewValidator("topsecret")
	tokenString := signToken(t, "othersecret", gojwt.MapClaims{"sub": "user-1"})

	if _, err := v.Validate(tokenString); err == nil {
		t.Fatal("expected error for wrong secret")
	}
}

func TestValidator_Validate_Expired(t *testing.T) {
	v, _ := NewValidator("topsecret")
	tokenString := signToken(t, "topsecret", gojwt.MapClaims{
		"exp": time.Now().Add(-time.Hour).Unix(),
	})

	if _, err := v.Validate(tokenString); err == nil {
		t.Fatal("expected error for expired token")
	}
}

func TestNewValidator_RequiresSecret(t *testing.T) {
	if _, err := NewValidator(""); err == nil {
		t.Fatal("expected error for empty secret")
	}
}
