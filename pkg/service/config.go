// Package service wraps the Redfish protocol client: session
// establishment, raw resource primitives, and bounded retry/poll used by
// the use case checkers.
package service

import (
	"fmt"
	"strings"
	"time"
)

// SecurityMode governs whether the service is reached over an encrypted
// transport.
type SecurityMode string

const (
	// SecurityAlways always uses HTTPS.
	SecurityAlways SecurityMode = "Always"

	// SecurityIfSendingCredentials uses HTTPS because every checker
	// session sends credentials.
	SecurityIfSendingCredentials SecurityMode = "IfSendingCredentials"

	// SecurityNever uses plain HTTP.
	SecurityNever SecurityMode = "Never"
)

// Validate checks the mode is one of the supported values.
func (m SecurityMode) Validate() error {
	switch m {
	case SecurityAlways, SecurityIfSendingCredentials, SecurityNever:
		return nil
	default:
		return fmt.Errorf("invalid security mode: %s (must be one of: Always, IfSendingCredentials, Never)", m)
	}
}

const (
	// DefaultRetryAttempts bounds transient-read retries.
	DefaultRetryAttempts = 3

	// DefaultRetryInterval is the delay between transient-read retries.
	DefaultRetryInterval = 2 * time.Second

	// DefaultHTTPTimeout bounds each individual request.
	DefaultHTTPTimeout = 15 * time.Second
)

// Config describes how to reach and authenticate to the service.
type Config struct {
	// Host is the service address, with or without a scheme.
	Host string

	Username string
	Password string

	// Security selects the transport policy; the scheme in Host, when
	// present, wins.
	Security SecurityMode

	// Insecure skips TLS certificate verification.
	Insecure bool

	// Timeout bounds each HTTP request.
	Timeout time.Duration

	// RetryAttempts and RetryInterval bound retries of transient read
	// failures.
	RetryAttempts int
	RetryInterval time.Duration
}

// Endpoint derives the base URL from Host and the security mode.
func (c Config) Endpoint() string {
	if strings.HasPrefix(c.Host, "http://") || strings.HasPrefix(c.Host, "https://") {
		return c.Host
	}
	if c.Security == SecurityNever {
		return "http://" + c.Host
	}

	return "https://" + c.Host
}

// withDefaults fills in unset tuning knobs.
func (c Config) withDefaults() Config {
	if c.Security == "" {
		c.Security = SecurityAlways
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultHTTPTimeout
	}
	if c.RetryAttempts <= 0 {
		c.RetryAttempts = DefaultRetryAttempts
	}
	if c.RetryInterval <= 0 {
		c.RetryInterval = DefaultRetryInterval
	}

	return c
}
