// Package checker defines the use case checker contract and the framework
// that selects and executes checkers against a Redfish service.
package checker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/redfish-tools/usecase-checkers/pkg/checker/result"
	"github.com/redfish-tools/usecase-checkers/pkg/resource"
)

// Service is the protocol client surface consumed by checkers: an
// authenticated session plus raw resource primitives. The concrete
// implementation lives in pkg/service; tests substitute a fake.
type Service interface {
	// Root returns the service root payload fetched at login.
	Root() resource.Object

	// Get fetches a resource by URI.
	Get(ctx context.Context, uri string) (resource.Object, error)

	// Patch applies a partial update to a resource.
	Patch(ctx context.Context, uri string, body any) error

	// Post issues a POST, used for actions and collection inserts.
	Post(ctx context.Context, uri string, body any) error

	// Delete removes a resource.
	Delete(ctx context.Context, uri string) error

	// Members enumerates the member URIs of a collection, in order.
	Members(ctx context.Context, collectionURI string) ([]string, error)

	// Poll invokes fn up to attempts times, sleeping interval between
	// tries, until fn reports done. Returns false when the budget is
	// exhausted without fn reporting done.
	Poll(ctx context.Context, attempts int, interval time.Duration, fn func(context.Context) (bool, error)) (bool, error)

	// Close logs out of the service.
	Close() error
}

// SessionFactory opens an additional authenticated session against the same
// service, used by the account checker to verify new credentials.
type SessionFactory func(ctx context.Context, username, password string) (Service, error)

// Target bundles everything a checker needs for one run.
type Target struct {
	// Service is the authenticated session shared by all checkers.
	Service Service

	// Results receives every recorded outcome; shared across checkers and
	// owned by the orchestrator.
	Results *result.Set

	// NewSession opens an extra session with alternate credentials.
	NewSession SessionFactory

	// Selector restricts which members of a collection are exercised.
	Selector TargetSelector

	// BootTarget is the caller's preferred one-time boot device (Pxe or
	// Usb); the boot checker honors it when the service allows it.
	BootTarget string

	// FallbackSystemURI is tried directly when the service root has no
	// Systems collection, for services predating the collection.
	FallbackSystemURI string

	Log *zap.SugaredLogger
}

// Logger returns the target's logger, or a no-op logger when unset.
func (t *Target) Logger() *zap.SugaredLogger {
	if t.Log != nil {
		return t.Log
	}

	return zap.NewNop().Sugar()
}

// TestCase names one expectation within a checker, for listings and report
// headers.
type TestCase struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Details     string `json:"details"`
}

// Checker is a single use case validation flow.
type Checker interface {
	// ID is the selector-facing identifier, e.g. "power.control".
	ID() string

	// Category is the report-facing use case name, e.g. "Power Control".
	Category() string

	// Description summarizes what the checker validates.
	Description() string

	// Tests lists the discrete expectations the checker records results
	// for.
	Tests() []TestCase

	// Run drives the use case against the target, recording one result
	// per discrete expectation. An error return means the checker could
	// not proceed at all; partial findings are still in the result set.
	Run(ctx context.Context, target *Target) error
}

// Base carries the static checker metadata; embed it and set the fields in
// the constructor.
type Base struct {
	CheckerID          string
	CheckerCategory    string
	CheckerDescription string
	TestCases          []TestCase
}

func (b Base) ID() string          { return b.CheckerID }
func (b Base) Category() string    { return b.CheckerCategory }
func (b Base) Description() string { return b.CheckerDescription }
func (b Base) Tests() []TestCase   { return b.TestCases }
