package auth

import (
	"errors"
	"strings"
)

var (
	// ErrMissingAuthorization is returned when no bearer token was sent.
	ErrMissingAuthorization = errors.New("missing authorization header")
	// ErrBadAuthorization is returned when the header is not a bearer JWT.
	ErrBadAuthorization = errors.New("bad auth header")
)

const bearerPrefix = "Bearer "

// BearerFromString validates the "Bearer a.b.c" form and returns a.b.c.
func BearerFromString(raw string) (string, error) {
	trimmed := strings.Trim(raw, " ")
	if trimmed == "" {
		return "", ErrMissingAuthorization
	}
	if len(trimmed) <= len(bearerPrefix) || !strings.HasPrefix(trimmed, bearerPrefix) {
		return "", ErrBadAuthorization
	}
	token := trimmed[len(bearerPrefix):]
	if strings.Count(token, ".") != 2 {
		return "", ErrBadAuthorization
	}
	return token, nil
}
