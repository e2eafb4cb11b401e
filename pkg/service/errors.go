package service

import (
	"errors"
	"net"

	"github.com/stmcginnis/gofish/common"
)

var (
	// ErrNotFound marks a missing resource or collection.
	ErrNotFound = errors.New("resource not found")

	// ErrUnauthorized marks rejected credentials.
	ErrUnauthorized = errors.New("authentication rejected")
)

// statusCode extracts the HTTP status carried by a client error, or 0.
func statusCode(err error) int {
	var clientErr *common.Error
	if errors.As(err, &clientErr) {
		return clientErr.HTTPReturnedStatusCode
	}

	return 0
}

// IsNotFound reports whether the error represents a 404.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || statusCode(err) == 404
}

// IsUnauthorized reports whether the error represents a 401 or 403.
func IsUnauthorized(err error) bool {
	code := statusCode(err)

	return errors.Is(err, ErrUnauthorized) || code == 401 || code == 403
}

// isTransient reports whether a read failure is worth retrying: network
// errors and gateway/unavailable statuses.
func isTransient(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	switch statusCode(err) {
	case 502, 503, 504:
		return true
	default:
		return false
	}
}
