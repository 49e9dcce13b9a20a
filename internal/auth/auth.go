// Package auth gates registry mutation behind the authorized coordinator.
//
// It intentionally avoids policy decisions and storage concerns: callers
// present a bearer token, and exactly one coordinator token is accepted.
package auth

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

var ErrUnauthorized = errors.New("auth: caller is not the authorized coordinator")

// Validator validates a coordinator credential.
type Validator interface {
	Validate(token string) error
}

// CoordinatorToken accepts a single shared coordinator token.
type CoordinatorToken struct {
	Token string
}

func (c CoordinatorToken) Validate(token string) error {
	if c.Token == "" {
		return ErrUnauthorized
	}
	if subtle.ConstantTimeCompare([]byte(c.Token), []byte(token)) != 1 {
		return ErrUnauthorized
	}
	return nil
}

// FuncValidator adapts a function into a Validator.
type FuncValidator func(token string) error

func (f FuncValidator) Validate(token string) error {
	return f(token)
}

// Middleware rejects requests whose Authorization bearer token fails v.
func Middleware(v Validator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := v.Validate(BearerToken(c.Request)); err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": ErrUnauthorized.Error()})
			return
		}
		c.Next()
	}
}

// BearerToken extracts the Authorization bearer credential, if any.
func BearerToken(r *http.Request) string {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	const prefix = "Bearer "
	if len(raw) > len(prefix) && strings.EqualFold(raw[:len(prefix)], prefix) {
		return strings.TrimSpace(raw[len(prefix):])
	}
	return ""
}
