// Package result holds the outcome records produced by use case checkers.
package result

import (
	"fmt"
	"time"
)

// Status is the outcome of a single recorded operation.
type Status string

const (
	StatusPass Status = "PASS"
	StatusWarn Status = "WARN"
	StatusFail Status = "FAIL"
	StatusSkip Status = "SKIP"

	// StatusFailWarn marks a violation of recommendation-level ("should")
	// language. It resolves to WARN when the run is in relaxed mode and to
	// FAIL otherwise; the resolved value is what gets stored.
	StatusFailWarn Status = "FAILWARN"
)

// Result is a single immutable check outcome.
type Result struct {
	// Category is the use case the result belongs to, e.g. "Power Control".
	Category string `json:"category"`

	// Test is the named expectation within the category, e.g. "Reset Type".
	Test string `json:"test"`

	// Operation describes the protocol operation that was performed.
	Operation string `json:"operation"`

	Status  Status    `json:"status"`
	Message string    `json:"message,omitempty"`
	Time    time.Time `json:"time"`
}

// Set is an ordered, insertion-preserving collection of results for one run.
// It is owned by a single goroutine for the duration of the run.
type Set struct {
	relaxed bool
	now     func() time.Time
	results []Result
}

// SetOption configures a Set.
type SetOption func(*Set)

// WithClock overrides the timestamp source, for tests.
func WithClock(now func() time.Time) SetOption {
	return func(s *Set) {
		s.now = now
	}
}

// NewSet creates an empty result set. When relaxed is true, FAILWARN
// results are recorded as warnings instead of failures.
func NewSet(relaxed bool, opts ...SetOption) *Set {
	s := &Set{
		relaxed: relaxed,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Relaxed reports whether soft requirements downgrade to warnings.
func (s *Set) Relaxed() bool {
	return s.relaxed
}

// Add appends a result. Category and test must be non-empty; an empty name
// is a programming error in the calling checker.
func (s *Set) Add(category, test, operation string, status Status, message string) {
	if category == "" || test == "" {
		panic(fmt.Sprintf("result: empty category or test name (category=%q, test=%q)", category, test))
	}

	if status == StatusFailWarn {
		if s.relaxed {
			status = StatusWarn
		} else {
			status = StatusFail
		}
	}

	s.results = append(s.results, Result{
		Category:  category,
		Test:      test,
		Operation: operation,
		Status:    status,
		Message:   message,
		Time:      s.now(),
	})
}

// Results returns a copy of the recorded results in insertion order.
func (s *Set) Results() []Result {
	out := make([]Result, len(s.results))
	copy(out, s.results)

	return out
}

// Len returns the number of recorded results.
func (s *Set) Len() int {
	return len(s.results)
}

// Counts holds per-status totals.
type Counts struct {
	Pass int `json:"pass"`
	Warn int `json:"warn"`
	Fail int `json:"fail"`
	Skip int `json:"skip"`
}

// Counts tallies the recorded results by status.
func (s *Set) Counts() Counts {
	var c Counts
	for _, r := range s.results {
		switch r.Status {
		case StatusPass:
			c.Pass++
		case StatusWarn:
			c.Warn++
		case StatusFail:
			c.Fail++
		case StatusSkip:
			c.Skip++
		}
	}

	return c
}

// Overall computes the aggregate status: FAIL if any result failed, else
// WARN if any result warned, else PASS. Skipped results never affect the
// aggregate.
func (s *Set) Overall() Status {
	c := s.Counts()

	switch {
	case c.Fail > 0:
		return StatusFail
	case c.Warn > 0:
		return StatusWarn
	default:
		return StatusPass
	}
}

// Categories returns category names in order of first appearance.
func (s *Set) Categories() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, r := range s.results {
		if _, ok := seen[r.Category]; ok {
			continue
		}
		seen[r.Category] = struct{}{}
		out = append(out, r.Category)
	}

	return out
}

// ByCategory returns the results recorded for one category, in order.
func (s *Set) ByCategory(category string) []Result {
	var out []Result
	for _, r := range s.results {
		if r.Category == category {
			out = append(out, r)
		}
	}

	return out
}
