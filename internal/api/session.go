package api

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrMissingSessionToken indicates no token was supplied.
	ErrMissingSessionToken = errors.New("api: session token required")
	// ErrMalformedSessionToken indicates the token could not be parsed.
	ErrMalformedSessionToken = errors.New("api: malformed session token")
	// ErrExpiredSessionToken indicates the token's expiry has passed.
	ErrExpiredSessionToken = errors.New("api: session token expired")
)

// SessionInspector reads expiry out of the backend-issued session JWT so
// the client can prompt for reauthentication before a request is wasted.
// Signature verification stays on the server; the client only inspects
// claims it was handed over TLS.
type SessionInspector struct {
	clock func() time.Time
}

// NewSessionInspector returns an inspector using the given clock, or
// time.Now when nil.
func NewSessionInspector(clock func() time.Time) *SessionInspector {
	if clock == nil {
		clock = time.Now
	}
	return &SessionInspector{clock: clock}
}

// CheckToken returns nil when the token is well formed and unexpired.
func (s *SessionInspector) CheckToken(tokenString string) error {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return ErrMissingSessionToken
	}
	claims := jwt.RegisteredClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(tokenString, &claims); err != nil {
		return ErrMalformedSessionToken
	}
	if claims.ExpiresAt == nil {
		return nil
	}
	if !s.clock().Before(claims.ExpiresAt.Time) {
		return ErrExpiredSessionToken
	}
	return nil
}

// ExpiresIn returns how long the token remains valid. Tokens without an
// expiry claim report ok false.
func (s *SessionInspector) ExpiresIn(tokenString string) (time.Duration, bool) {
	claims := jwt.RegisteredClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(strings.TrimSpace(tokenString), &claims); err != nil {
		return 0, false
	}
	if claims.ExpiresAt == nil {
		return 0, false
	}
	remaining := claims.ExpiresAt.Time.Sub(s.clock())
	if remaining < 0 {
		remaining = 0
	}
	return remaining, true
}
