// Package auth provides bearer-token validation for the whisperlm API.
// Tokens are HMAC-signed JWTs; the shared secret comes from configuration.
package auth

import (
	"errors"
	"fmt"

	gojwt "github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned when a token fails signature or claim checks.
var ErrInvalidToken = errors.New("auth: invalid token")

// Validator parses and validates HMAC-signed JWTs.
type Validator struct {
	secret []byte
}

// NewValidator creates a Validator for the given HMAC secret.
func NewValidator(secret string) (*Validator, error) {
	if secret == "" {
		return nil, errors.New("auth: secret is required")
	}
	return &Validator{secret: []byte(secret)}, nil
}

// Validate parses the token string and returns its claims as a map.
// Only HMAC signing methods are accepted.
func (v *Validator) Validate(tokenString string) (map[string]interface{}, error) {
	token, err := gojwt.Parse(tokenString, func(t *gojwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*gojwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("auth: unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(gojwt.MapClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	out := make(map[string]interface{}, len(claims))
	for k, val := range claims {
		out[k] = val
	}
	return out, nil
}
