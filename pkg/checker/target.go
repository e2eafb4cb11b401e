package checker

import (
	"strings"

	"github.com/redfish-tools/usecase-checkers/pkg/resource"
)

// TargetSelector restricts which members of a traversed collection a
// checker exercises. Supported forms:
//   - "all" (or empty): every member
//   - "first": only the first member returned by the collection
//   - a resource Id, e.g. "437XR1138R2"
//   - a resource URI, e.g. "/redfish/v1/Systems/437XR1138R2"
//   - an AssetTag value
type TargetSelector string

const (
	SelectAll   TargetSelector = "all"
	SelectFirst TargetSelector = "first"
)

// All reports whether the selector matches every member.
func (s TargetSelector) All() bool {
	return s == "" || s == SelectAll
}

// First reports whether only the first member should be exercised.
func (s TargetSelector) First() bool {
	return s == SelectFirst
}

// Matches reports whether a fetched member matches the selector by Id, URI,
// or AssetTag. Index is the member's position in the collection.
func (s TargetSelector) Matches(obj resource.Object, uri string, index int) bool {
	if s.All() {
		return true
	}
	if s.First() {
		return index == 0
	}

	raw := string(s)
	if strings.HasPrefix(raw, "/") {
		return raw == uri
	}
	if obj == nil {
		return false
	}
	if obj.ID() == raw {
		return true
	}
	if tag, ok := obj.String("AssetTag"); ok && tag == raw {
		return true
	}

	return false
}
