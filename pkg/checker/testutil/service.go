// Package testutil provides a fake Service implementation for checker
// tests.
package testutil

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redfish-tools/usecase-checkers/pkg/checker"
	"github.com/redfish-tools/usecase-checkers/pkg/checker/result"
	"github.com/redfish-tools/usecase-checkers/pkg/resource"
)

// Obj decodes a JSON literal into a resource Object; panics on malformed
// fixtures.
func Obj(literal string) resource.Object {
	obj, err := resource.Decode(strings.NewReader(literal))
	if err != nil {
		panic(fmt.Sprintf("testutil: bad fixture: %v", err))
	}

	return obj
}

// Operation records a mutating call made against the fake.
type Operation struct {
	URI  string
	Body any
}

// FakeService is an in-memory checker.Service. Resources maps URIs
// (including any query string) to payloads. Mutating calls are recorded;
// hooks let tests change the resource map mid-flow to simulate service
// side effects.
type FakeService struct {
	RootObject resource.Object
	Resources  map[string]resource.Object

	// Errors returned for specific URIs, keyed per method.
	GetErr    map[string]error
	PatchErr  map[string]error
	PostErr   map[string]error
	DeleteErr map[string]error

	// Hooks invoked after the corresponding call is recorded.
	OnPatch  func(uri string, body any)
	OnPost   func(uri string, body any)
	OnDelete func(uri string)

	Patches []Operation
	Posts   []Operation
	Deletes []string

	// PollIterations counts fn invocations across all Poll calls.
	PollIterations int

	Closed bool
}

var _ checker.Service = (*FakeService)(nil)

// NewFakeService creates a fake with the given service root.
func NewFakeService(root resource.Object) *FakeService {
	return &FakeService{
		RootObject: root,
		Resources:  make(map[string]resource.Object),
	}
}

// Set stores a resource payload under the given URI.
func (f *FakeService) Set(uri string, obj resource.Object) {
	f.Resources[uri] = obj
}

func (f *FakeService) Root() resource.Object {
	return f.RootObject
}

func (f *FakeService) Get(_ context.Context, uri string) (resource.Object, error) {
	if err := f.GetErr[uri]; err != nil {
		return nil, err
	}
	obj, ok := f.Resources[uri]
	if !ok {
		return nil, fmt.Errorf("%s: %w", uri, ErrNotFound)
	}

	// Deep copy so checkers comparing before/after snapshots don't observe
	// later mutations through shared maps.
	raw, err := json.Marshal(obj)
	if err != nil {
		return nil, err
	}
	var copied resource.Object
	if err := json.Unmarshal(raw, &copied); err != nil {
		return nil, err
	}

	return copied, nil
}

func (f *FakeService) Patch(_ context.Context, uri string, body any) error {
	if err := f.PatchErr[uri]; err != nil {
		return err
	}
	f.Patches = append(f.Patches, Operation{URI: uri, Body: body})
	if f.OnPatch != nil {
		f.OnPatch(uri, body)
	}

	return nil
}

func (f *FakeService) Post(_ context.Context, uri string, body any) error {
	if err := f.PostErr[uri]; err != nil {
		return err
	}
	f.Posts = append(f.Posts, Operation{URI: uri, Body: body})
	if f.OnPost != nil {
		f.OnPost(uri, body)
	}

	return nil
}

func (f *FakeService) Delete(_ context.Context, uri string) error {
	if err := f.DeleteErr[uri]; err != nil {
		return err
	}
	f.Deletes = append(f.Deletes, uri)
	if f.OnDelete != nil {
		f.OnDelete(uri)
	}

	return nil
}

func (f *FakeService) Members(ctx context.Context, collectionURI string) ([]string, error) {
	obj, err := f.Get(ctx, collectionURI)
	if err != nil {
		return nil, err
	}

	return obj.MemberURIs(), nil
}

// Poll runs fn immediately and without sleeping, honoring the attempt
// budget.
func (f *FakeService) Poll(ctx context.Context, attempts int, _ time.Duration, fn func(context.Context) (bool, error)) (bool, error) {
	for range attempts {
		f.PollIterations++
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

func (f *FakeService) Close() error {
	f.Closed = true

	return nil
}

// ErrNotFound marks a URI with no stored payload.
var ErrNotFound = fmt.Errorf("resource not found")

// NewTarget builds a checker target over the fake with a fresh result set.
func NewTarget(svc *FakeService, relaxed bool) *checker.Target {
	return &checker.Target{
		Service:  svc,
		Results:  result.NewSet(relaxed),
		Selector: checker.SelectAll,
	}
}
