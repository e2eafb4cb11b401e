// Package query implements the query parameter use case: exercising the
// $filter, $select, $expand, and only query parameters the service
// advertises through ProtocolFeaturesSupported. Features the service does
// not advertise are not exercised and record no results.
package query

import (
	"context"
	"fmt"
	"net/url"
	"reflect"

	"github.com/redfish-tools/usecase-checkers/pkg/checker"
	"github.com/redfish-tools/usecase-checkers/pkg/checker/result"
	"github.com/redfish-tools/usecase-checkers/pkg/resource"
)

const (
	Category = "Query Parameters"

	testFilter = "Filter Check"
	testSelect = "Select Check"
	testExpand = "Expand Check"
	testOnly   = "Only Check"
)

// Checker drives the query parameter use case.
type Checker struct {
	checker.Base
}

// New creates the query parameter checker.
func New() *Checker {
	return &Checker{
		Base: checker.Base{
			CheckerID:          "query.parameters",
			CheckerCategory:    Category,
			CheckerDescription: "Verifies the advertised query parameters narrow, filter, and expand responses correctly",
			TestCases: []checker.TestCase{
				{
					Name:        testFilter,
					Description: "Verifies $filter returns the matching collection members",
					Details:     "Performs $filter requests on the role collection and checks the returned member counts.",
				},
				{
					Name:        testSelect,
					Description: "Verifies $select narrows a resource to the requested properties",
					Details:     "Performs a $select request on a role and compares the projection against the full resource.",
				},
				{
					Name:        testExpand,
					Description: "Verifies $expand inlines the requested reference objects",
					Details:     "Performs $expand requests on the service root and inspects which references were expanded.",
				},
				{
					Name:        testOnly,
					Description: "Verifies the only query returns the sole member of a collection",
					Details:     "Performs only requests on collections and singular resources referenced by the service root.",
				},
			},
		},
	}
}

func (c *Checker) Run(ctx context.Context, t *checker.Target) error {
	features, ok := t.Service.Root().Object("ProtocolFeaturesSupported")
	if !ok {
		// Nothing advertised, nothing to exercise.
		return nil
	}

	if enabled, _ := features.Bool("FilterQuery"); enabled {
		c.filterTest(ctx, t)
	}
	if enabled, _ := features.Bool("SelectQuery"); enabled {
		c.selectTest(ctx, t)
	}
	if expand, ok := features.Object("ExpandQuery"); ok {
		c.expandTest(ctx, t, expand)
	}
	if enabled, _ := features.Bool("OnlyMemberQuery"); enabled {
		c.onlyTest(ctx, t)
	}

	return nil
}

// roleCollection locates the role collection used for $filter and $select
// testing. A missing precondition records a SKIP and returns ok=false.
func (c *Checker) roleCollection(ctx context.Context, t *checker.Target, test string) (string, []string, bool) {
	ref, ok := t.Service.Root().Object("AccountService")
	if !ok {
		t.Results.Add(Category, test, "", result.StatusSkip, "Account service not found for testing.")

		return "", nil, false
	}
	serviceURI, _ := ref.ODataID()
	accountService, err := t.Service.Get(ctx, serviceURI)
	if err != nil {
		t.Results.Add(Category, test, "", result.StatusSkip,
			fmt.Sprintf("Failed to get the account service (%v).", err))

		return "", nil, false
	}
	rolesRef, ok := accountService.Object("Roles")
	if !ok {
		t.Results.Add(Category, test, "", result.StatusSkip, "Role collection not found for testing.")

		return "", nil, false
	}
	collectionURI, _ := rolesRef.ODataID()

	members, err := t.Service.Members(ctx, collectionURI)
	if err != nil {
		t.Results.Add(Category, test, "", result.StatusSkip,
			fmt.Sprintf("Failed to get the role collection (%v).", err))

		return "", nil, false
	}
	if len(members) == 0 {
		t.Results.Add(Category, test, "", result.StatusSkip, "Role collection is empty.")

		return "", nil, false
	}

	return collectionURI, members, true
}

// withQuery appends an encoded query parameter to a URI.
func withQuery(uri, key, value string) string {
	if value == "" {
		return uri + "?" + key
	}

	return uri + "?" + key + "=" + url.QueryEscape(value)
}

func (c *Checker) filterTest(ctx context.Context, t *checker.Target) {
	collectionURI, members, ok := c.roleCollection(ctx, t, testFilter)
	if !ok {
		return
	}

	first, err := t.Service.Get(ctx, members[0])
	if err != nil {
		t.Results.Add(Category, testFilter, "", result.StatusSkip,
			fmt.Sprintf("Failed to get the first role (%v).", err))

		return
	}
	last, err := t.Service.Get(ctx, members[len(members)-1])
	if err != nil {
		t.Results.Add(Category, testFilter, "", result.StatusSkip,
			fmt.Sprintf("Failed to get the last role (%v).", err))

		return
	}

	firstID := first.ID()
	lastID := last.ID()
	firstAndLast := 2
	if firstID == lastID {
		firstAndLast = 1
	}

	checks := []struct {
		expr     string
		expected int
	}{
		{fmt.Sprintf("Id eq '%s'", firstID), 1},
		{fmt.Sprintf("not (Id eq '%s')", firstID), len(members) - 1},
		{fmt.Sprintf("Id eq '%s' or Id eq '%s'", firstID, lastID), firstAndLast},
	}

	for _, check := range checks {
		operation := fmt.Sprintf("Performing $filter=%s on %s", check.expr, collectionURI)
		t.Logger().Infow(operation)

		filtered, err := t.Service.Get(ctx, withQuery(collectionURI, "$filter", check.expr))
		if err != nil {
			t.Results.Add(Category, testFilter, operation, result.StatusFail,
				fmt.Sprintf("Failed to perform the $filter request (%v).", err))

			continue
		}
		got := len(filtered.MemberURIs())
		if got != check.expected {
			t.Results.Add(Category, testFilter, operation, result.StatusFail,
				fmt.Sprintf("Query ($filter=%s) expected to return %d member(s); received %d.", check.expr, check.expected, got))
		} else {
			t.Results.Add(Category, testFilter, operation, result.StatusPass, "")
		}
	}

	// $filter on an individual member is supposed to be rejected.
	expr := fmt.Sprintf("Id eq '%s'", firstID)
	operation := fmt.Sprintf("Performing $filter=%s on %s", expr, members[0])
	t.Logger().Infow(operation)
	if _, err := t.Service.Get(ctx, withQuery(members[0], "$filter", expr)); err != nil {
		t.Results.Add(Category, testFilter, operation, result.StatusPass, "")
	} else {
		t.Results.Add(Category, testFilter, operation, result.StatusFail,
			fmt.Sprintf("Query ($filter=%s) expected to result in an error, but succeeded.", expr))
	}
}

func (c *Checker) selectTest(ctx context.Context, t *checker.Target) {
	_, members, ok := c.roleCollection(ctx, t, testSelect)
	if !ok {
		return
	}

	full, err := t.Service.Get(ctx, members[0])
	if err != nil {
		t.Results.Add(Category, testSelect, "", result.StatusSkip,
			fmt.Sprintf("Failed to get the first role (%v).", err))

		return
	}

	const selectExpr = "Name,AssignedPrivileges"
	operation := fmt.Sprintf("Performing $select=%s on %s", selectExpr, members[0])
	t.Logger().Infow(operation)

	selected, err := t.Service.Get(ctx, withQuery(members[0], "$select", selectExpr))
	if err != nil {
		t.Results.Add(Category, testSelect, operation, result.StatusFail,
			fmt.Sprintf("Failed to perform the $select request (%v).", err))

		return
	}

	remaining := make(resource.Object, len(selected))
	for key, value := range selected {
		remaining[key] = value
	}

	required := []string{"@odata.id", "@odata.type", "Name", "AssignedPrivileges"}
	for _, key := range required {
		if !selected.Has(key) {
			t.Results.Add(Category, testSelect, operation, result.StatusFail,
				fmt.Sprintf("Query ($select=%s) response expected to contain property '%s'.", selectExpr, key))

			return
		}
		if !reflect.DeepEqual(selected[key], full[key]) {
			t.Results.Add(Category, testSelect, operation, result.StatusFail,
				fmt.Sprintf("Query ($select=%s) response contains a different value for property '%s'.", selectExpr, key))

			return
		}
		delete(remaining, key)
	}

	optional := []string{"@odata.context", "@odata.etag"}
	for _, key := range optional {
		if !full.Has(key) {
			continue
		}
		if !selected.Has(key) {
			t.Results.Add(Category, testSelect, operation, result.StatusFail,
				fmt.Sprintf("Query ($select=%s) response expected to contain property '%s'.", selectExpr, key))

			return
		}
		if !reflect.DeepEqual(selected[key], full[key]) {
			t.Results.Add(Category, testSelect, operation, result.StatusFail,
				fmt.Sprintf("Query ($select=%s) response contains a different value for property '%s'.", selectExpr, key))

			return
		}
		delete(remaining, key)
	}

	for key := range remaining {
		t.Results.Add(Category, testSelect, operation, result.StatusFail,
			fmt.Sprintf("Query ($select=%s) response contains the extra property '%s'.", selectExpr, key))

		return
	}

	t.Results.Add(Category, testSelect, operation, result.StatusPass, "")
}

// expandVariants are the $expand expressions exercised against the service
// root, gated on the advertised expand terms.
var expandVariants = []struct {
	term   string
	expr   string
	sub    bool
	links  bool
	levels bool
}{
	{"ExpandAll", "*", true, true, false},
	{"NoLinks", ".", true, false, false},
	{"Links", "~", false, true, false},
	{"ExpandAll", "*($levels=1)", true, true, true},
	{"NoLinks", ".($levels=1)", true, false, true},
	{"Links", "~($levels=1)", false, true, true},
}

func (c *Checker) expandTest(ctx context.Context, t *checker.Target, expand resource.Object) {
	const rootURI = "/redfish/v1/"
	levelsSupported, _ := expand.Bool("Levels")

	for _, variant := range expandVariants {
		operation := fmt.Sprintf("Performing $expand=%s on %s", variant.expr, rootURI)

		if supported, _ := expand.Bool(variant.term); !supported {
			t.Results.Add(Category, testExpand, operation, result.StatusSkip,
				fmt.Sprintf("'%s' is not supported.", variant.term))

			continue
		}
		if variant.levels && !levelsSupported {
			t.Results.Add(Category, testExpand, operation, result.StatusSkip,
				"'$levels' is not supported on $expand.")

			continue
		}

		t.Logger().Infow(operation)
		response, err := t.Service.Get(ctx, withQuery(rootURI, "$expand", variant.expr))
		if err != nil {
			t.Results.Add(Category, testExpand, operation, result.StatusFail,
				fmt.Sprintf("Failed to perform the $expand request (%v).", err))

			continue
		}

		c.verifyExpansion(t, operation, response, variant.sub, variant.links)
	}
}

// verifyExpansion walks a response and checks each reference object was
// expanded or left alone as the variant requires. Links references follow
// the links flag, everything else the subordinate flag.
func (c *Checker) verifyExpansion(t *checker.Target, operation string, response resource.Object, sub, links bool) {
	for key, value := range response {
		if key == "Links" {
			linksObj, ok := value.(map[string]any)
			if !ok {
				continue
			}
			for linkKey, linkValue := range linksObj {
				switch lv := linkValue.(type) {
				case map[string]any:
					c.verifyReference(t, operation, linkKey, resource.Object(lv), links)
				case []any:
					for _, item := range lv {
						if obj, ok := item.(map[string]any); ok {
							c.verifyReference(t, operation, linkKey, resource.Object(obj), links)
						}
					}
				}
			}

			continue
		}
		if obj, ok := value.(map[string]any); ok {
			c.verifyReference(t, operation, key, resource.Object(obj), sub)
		}
	}
}

// verifyReference checks one reference object. Objects without @odata.id
// are plain nested structures, not references, and are ignored.
func (c *Checker) verifyReference(t *checker.Target, operation, name string, obj resource.Object, wantExpanded bool) {
	if !obj.Has("@odata.id") {
		return
	}

	expanded := len(obj) > 1
	switch {
	case expanded && !wantExpanded:
		t.Results.Add(Category, testExpand, operation, result.StatusFail,
			fmt.Sprintf("Expected to not expand the reference '%s'.", name))
	case !expanded && wantExpanded:
		t.Results.Add(Category, testExpand, operation, result.StatusFail,
			fmt.Sprintf("Expected to expand the reference '%s'.", name))
	default:
		t.Results.Add(Category, testExpand, operation, result.StatusPass, "")
	}
}

// onlyChecks are the service root references exercised with the only query;
// the flag marks collections, whose sole member should be returned.
var onlyChecks = []struct {
	key        string
	collection bool
}{
	{"AccountService", false},
	{"SessionService", false},
	{"Chassis", true},
	{"Systems", true},
	{"Managers", true},
}

func (c *Checker) onlyTest(ctx context.Context, t *checker.Target) {
	for _, check := range onlyChecks {
		ref, ok := t.Service.Root().Object(check.key)
		if !ok {
			t.Results.Add(Category, testOnly, "", result.StatusSkip,
				fmt.Sprintf("'%s' not found for testing.", check.key))

			continue
		}
		uri, _ := ref.ODataID()
		operation := fmt.Sprintf("Performing only on %s", uri)
		t.Logger().Infow(operation)

		if !check.collection {
			// A singular resource is supposed to reject the only query.
			if _, err := t.Service.Get(ctx, withQuery(uri, "only", "")); err != nil {
				t.Results.Add(Category, testOnly, operation, result.StatusPass, "")
			} else {
				t.Results.Add(Category, testOnly, operation, result.StatusFail,
					fmt.Sprintf("Query (only) expected to result in an error for %s, but succeeded.", uri))
			}

			continue
		}

		onlyResponse, err := t.Service.Get(ctx, withQuery(uri, "only", ""))
		if err != nil {
			t.Results.Add(Category, testOnly, operation, result.StatusFail,
				fmt.Sprintf("Failed to perform the only request (%v).", err))

			continue
		}
		full, err := t.Service.Get(ctx, uri)
		if err != nil {
			t.Results.Add(Category, testOnly, operation, result.StatusFail,
				fmt.Sprintf("Failed to get %s (%v).", uri, err))

			continue
		}

		members := full.MemberURIs()
		onlyID, _ := onlyResponse.ODataID()
		if len(members) == 1 {
			if onlyID == members[0] {
				t.Results.Add(Category, testOnly, operation, result.StatusPass, "")
			} else {
				t.Results.Add(Category, testOnly, operation, result.StatusFail,
					fmt.Sprintf("Query (only) response for %s expected the only collection member.", uri))
			}

			continue
		}

		fullID, _ := full.ODataID()
		if onlyID != fullID || !onlyResponse.Has("Members") {
			t.Results.Add(Category, testOnly, operation, result.StatusFail,
				fmt.Sprintf("Query (only) response for %s expected the collection itself.", uri))
		} else {
			t.Results.Add(Category, testOnly, operation, result.StatusPass, "")
		}
	}
}
