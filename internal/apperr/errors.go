// Package apperr defines the sentinel errors shared across services and
// handlers. Services wrap these with %w; handlers translate them into HTTP
// status codes through Status so the mapping lives in exactly one place.
package apperr

import (
	"errors"
	"net/http"
)

var (
	// ErrInvalidCredentials covers both "no such user" and "wrong password"
	// during sign-in. The two cases must stay indistinguishable to the client.
	ErrInvalidCredentials = errors.New("invalid username or password")

	ErrDuplicateUsername = errors.New("username already exists")
	ErrDuplicateEmail    = errors.New("email already exists")
	ErrNotFound          = errors.New("not found")
	ErrForbidden         = errors.New("forbidden")
	ErrInvalidInput      = errors.New("invalid input")

	ErrTokenExpired      = errors.New("token expired")
	ErrTokenInvalid      = errors.New("token invalid")
	ErrWrongTokenPurpose = errors.New("wrong token purpose")

	ErrAlreadyActive     = errors.New("account is already active")
	ErrNoUpdatableFields = errors.New("no updatable fields in payload")
	ErrMailDelivery      = errors.New("mail delivery failed")
)

// Status maps an error to the HTTP status code the boundary should answer
// with. Token errors collapse to 401 so expired-vs-malformed is not leaked;
// the distinction stays available server-side via errors.Is.
func Status(err error) int {
	switch {
	case errors.Is(err, ErrInvalidCredentials),
		errors.Is(err, ErrTokenExpired),
		errors.Is(err, ErrTokenInvalid),
		errors.Is(err, ErrWrongTokenPurpose):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrAlreadyActive):
		return http.StatusConflict
	case errors.Is(err, ErrMailDelivery):
		return http.StatusBadGateway
	case errors.Is(err, ErrDuplicateUsername),
		errors.Is(err, ErrDuplicateEmail),
		errors.Is(err, ErrInvalidInput),
		errors.Is(err, ErrNoUpdatableFields):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
