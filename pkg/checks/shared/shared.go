// Package shared holds collection traversal helpers common to the use case
// checkers.
package shared

import (
	"context"
	"fmt"

	"github.com/redfish-tools/usecase-checkers/pkg/checker"
	"github.com/redfish-tools/usecase-checkers/pkg/checker/result"
	"github.com/redfish-tools/usecase-checkers/pkg/resource"
)

// Member is one fetched member of a collection.
type Member struct {
	URI    string
	Object resource.Object
}

// ID returns the member's resource identifier.
func (m Member) ID() string {
	if id := m.Object.ID(); id != "" {
		return id
	}

	return m.URI
}

// SkipAll records one SKIP per test case, used when a whole category cannot
// run because a root-level collection is missing.
func SkipAll(t *checker.Target, category string, tests []checker.TestCase, message string) {
	for _, test := range tests {
		t.Results.Add(category, test.Name, "", result.StatusSkip, message)
	}
}

// Collection counts and fetches the members of a root-level collection,
// recording one result per operation under the given test. Members not
// matched by the target selector are fetched but excluded from the returned
// slice. A fetch failure for one member does not stop the rest.
func Collection(ctx context.Context, t *checker.Target, category, test, rootKey, noun string) []Member {
	ref, ok := t.Service.Root().Object(rootKey)
	if !ok {
		t.Results.Add(category, test, fmt.Sprintf("Locating the %s collection", noun),
			result.StatusFail, fmt.Sprintf("Service does not contain a %s collection.", noun))

		return nil
	}
	collectionURI, ok := ref.ODataID()
	if !ok {
		t.Results.Add(category, test, fmt.Sprintf("Locating the %s collection", noun),
			result.StatusFail, fmt.Sprintf("The %s collection reference has no '@odata.id'.", noun))

		return nil
	}

	operation := fmt.Sprintf("Counting the members of the %s collection", noun)
	t.Logger().Infow(operation, "uri", collectionURI)

	uris, err := t.Service.Members(ctx, collectionURI)
	if err != nil {
		t.Results.Add(category, test, operation, result.StatusFail,
			fmt.Sprintf("Failed to get the %s list (%v).", noun, err))

		return nil
	}
	if len(uris) == 0 {
		t.Results.Add(category, test, operation, result.StatusFail,
			fmt.Sprintf("No %ss were found.", noun))

		return nil
	}
	t.Results.Add(category, test, operation, result.StatusPass, "")

	var members []Member
	for i, uri := range uris {
		operation := fmt.Sprintf("Getting %s '%s'", noun, uri)
		t.Logger().Infow(operation)

		obj, err := t.Service.Get(ctx, uri)
		if err != nil {
			t.Results.Add(category, test, operation, result.StatusFail,
				fmt.Sprintf("Failed to get the %s '%s' (%v).", noun, uri, err))

			continue
		}
		if !t.Selector.Matches(obj, uri, i) {
			continue
		}
		t.Results.Add(category, test, operation, result.StatusPass, "")
		members = append(members, Member{URI: uri, Object: obj})
	}

	return members
}

// Systems returns the systems to exercise. When the service root has no
// Systems collection the configured fallback system URI is tried directly,
// with a compatibility note recorded; services predating the collection
// expose their one system that way. Returns ok=false when neither path is
// available, leaving the skip decision to the caller.
func Systems(ctx context.Context, t *checker.Target, category, test string) ([]Member, bool) {
	if t.Service.Root().Has("Systems") {
		return Collection(ctx, t, category, test, "Systems", "system"), true
	}

	if t.FallbackSystemURI == "" {
		return nil, false
	}

	operation := "Locating the system collection"
	t.Results.Add(category, test, operation, result.StatusSkip,
		fmt.Sprintf("Service does not contain a system collection; using the configured system URI '%s'.", t.FallbackSystemURI))

	operation = fmt.Sprintf("Getting system '%s'", t.FallbackSystemURI)
	t.Logger().Infow(operation)

	obj, err := t.Service.Get(ctx, t.FallbackSystemURI)
	if err != nil {
		t.Results.Add(category, test, operation, result.StatusFail,
			fmt.Sprintf("Failed to get the system '%s' (%v).", t.FallbackSystemURI, err))

		return nil, true
	}
	t.Results.Add(category, test, operation, result.StatusPass, "")

	return []Member{{URI: t.FallbackSystemURI, Object: obj}}, true
}
