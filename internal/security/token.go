package security

import (
	"crypto/subtle"
	"errors"
	"strings"
)

const bearerPrefix = "Bearer "

var (
	// ErrNoCredentials means no usable Authorization header was
	// presented. It is not a failed attempt and must not count
	// against the failed-auth limiter.
	ErrNoCredentials = errors.New("authorization required")

	// ErrInvalidToken means a bearer token was presented and did not
	// match the configured secret.
	ErrInvalidToken = errors.New("invalid api key")
)

// CheckBearer validates an Authorization header against the configured
// shared secret. The comparison is constant-time so the check leaks no
// timing signal about how much of the token matched.
func CheckBearer(header, secret string) error {
	if header == "" || !strings.HasPrefix(header, bearerPrefix) {
		return ErrNoCredentials
	}
	token := header[len(bearerPrefix):]
	if secret == "" {
		return ErrInvalidToken
	}
	if subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
		return ErrInvalidToken
	}
	return nil
}
