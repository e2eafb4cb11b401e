package service

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"time"

	"github.com/blang/semver/v4"
	"github.com/stmcginnis/gofish"
	"go.uber.org/zap"

	"github.com/redfish-tools/usecase-checkers/pkg/resource"
)

const rootURI = "/redfish/v1/"

// Client is an authenticated session against one Redfish service. It
// implements the checker.Service contract. Transport, session management,
// and authentication are delegated to gofish; payloads are surfaced as raw
// JSON objects so checkers keep presence/null semantics.
type Client struct {
	api     *gofish.APIClient
	cfg     Config
	root    resource.Object
	version *semver.Version
	clock   Clock
	log     *zap.SugaredLogger
}

// Option configures a Client.
type Option func(*Client)

// WithClock overrides the clock used for retry and poll delays.
func WithClock(clock Clock) Option {
	return func(c *Client) {
		c.clock = clock
	}
}

// WithLogger attaches a logger for request tracing.
func WithLogger(log *zap.SugaredLogger) Option {
	return func(c *Client) {
		c.log = log
	}
}

// Connect logs into the service and fetches the service root. An
// authentication or connectivity failure here is fatal for the run.
func Connect(ctx context.Context, cfg Config, opts ...Option) (*Client, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Security.Validate(); err != nil {
		return nil, err
	}

	httpClient := &http.Client{
		Timeout: cfg.Timeout,
	}
	if cfg.Insecure {
		httpClient.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, //nolint:gosec // --insecure flag
		}
	}

	api, err := gofish.ConnectContext(ctx, gofish.ClientConfig{
		Endpoint:   cfg.Endpoint(),
		Username:   cfg.Username,
		Password:   cfg.Password,
		Insecure:   cfg.Insecure,
		HTTPClient: httpClient,
	})
	if err != nil {
		if IsUnauthorized(err) {
			return nil, fmt.Errorf("logging into %s as %q: %w", cfg.Endpoint(), cfg.Username, ErrUnauthorized)
		}

		return nil, fmt.Errorf("connecting to %s: %w", cfg.Endpoint(), err)
	}

	c := &Client{
		api:   api,
		cfg:   cfg,
		clock: RealClock(),
		log:   zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(c)
	}

	root, err := c.Get(ctx, rootURI)
	if err != nil {
		api.Logout()

		return nil, fmt.Errorf("fetching service root: %w", err)
	}
	c.root = root

	if raw, ok := root.String("RedfishVersion"); ok {
		if ver, err := semver.ParseTolerant(raw); err == nil {
			c.version = &ver
		}
	}

	return c, nil
}

// Close logs out of the service.
func (c *Client) Close() error {
	c.api.Logout()

	return nil
}

// Root returns the service root payload fetched at login.
func (c *Client) Root() resource.Object {
	return c.root
}

// RedfishVersion returns the parsed service version, or nil when the
// service did not report a parseable RedfishVersion.
func (c *Client) RedfishVersion() *semver.Version {
	return c.version
}

// Config returns the connection configuration.
func (c *Client) Config() Config {
	return c.cfg
}

// Get fetches a resource. Transient failures are retried up to the
// configured budget before the error escalates.
func (c *Client) Get(ctx context.Context, uri string) (resource.Object, error) {
	var obj resource.Object
	var lastErr error

	for attempt := range c.cfg.RetryAttempts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if attempt > 0 {
			c.clock.Sleep(ctx, c.cfg.RetryInterval)
		}

		resp, err := c.api.Get(uri)
		if err != nil {
			lastErr = err
			if isTransient(err) {
				c.log.Debugw("retrying transient read failure", "uri", uri, "attempt", attempt+1, "error", err)

				continue
			}

			return nil, fmt.Errorf("GET %s: %w", uri, err)
		}

		obj, err = resource.Decode(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("GET %s: %w", uri, err)
		}

		return obj, nil
	}

	return nil, fmt.Errorf("GET %s after %d attempts: %w", uri, c.cfg.RetryAttempts, lastErr)
}

// Patch applies a partial update to a resource.
func (c *Client) Patch(ctx context.Context, uri string, body any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	resp, err := c.api.Patch(uri, body)
	if err != nil {
		return fmt.Errorf("PATCH %s: %w", uri, err)
	}
	resp.Body.Close()

	return nil
}

// Post issues a POST, used for actions and collection inserts.
func (c *Client) Post(ctx context.Context, uri string, body any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	resp, err := c.api.Post(uri, body)
	if err != nil {
		return fmt.Errorf("POST %s: %w", uri, err)
	}
	resp.Body.Close()

	return nil
}

// Delete removes a resource.
func (c *Client) Delete(ctx context.Context, uri string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	resp, err := c.api.Delete(uri)
	if err != nil {
		return fmt.Errorf("DELETE %s: %w", uri, err)
	}
	resp.Body.Close()

	return nil
}

// Members enumerates the member URIs of a collection, in order.
func (c *Client) Members(ctx context.Context, collectionURI string) ([]string, error) {
	obj, err := c.Get(ctx, collectionURI)
	if err != nil {
		return nil, err
	}

	return obj.MemberURIs(), nil
}

// Poll invokes fn up to attempts times with interval between tries until
// fn reports done. Returns false when the budget is exhausted. An error
// from fn or a canceled context stops polling immediately.
func (c *Client) Poll(ctx context.Context, attempts int, interval time.Duration, fn func(context.Context) (bool, error)) (bool, error) {
	for attempt := range attempts {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		if attempt > 0 {
			c.clock.Sleep(ctx, interval)
		}

		done, err := fn(ctx)
		if err != nil {
			return false, err
		}
		if done {
			return true, nil
		}
	}

	return false, nil
}

// NewSession opens an additional session with alternate credentials
// against the same service.
func (c *Client) NewSession(ctx context.Context, username, password string) (*Client, error) {
	cfg := c.cfg
	cfg.Username = username
	cfg.Password = password

	return Connect(ctx, cfg, WithClock(c.clock), WithLogger(c.log))
}
