// Package resource models fetched Redfish payloads as tagged JSON values.
//
// Checkers need to distinguish a property that is absent from one that is
// present but null, and to inspect array slots without assuming a shape, so
// payloads stay as raw decoded JSON rather than typed client models.
package resource

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/go-viper/mapstructure/v2"
)

// Object is a decoded JSON object.
type Object map[string]any

// Decode reads a JSON object from r.
func Decode(r io.Reader) (Object, error) {
	var obj Object
	if err := json.NewDecoder(r).Decode(&obj); err != nil {
		return nil, fmt.Errorf("decoding resource payload: %w", err)
	}

	return obj, nil
}

// Has reports whether the property is present, even if null.
func (o Object) Has(key string) bool {
	_, ok := o[key]

	return ok
}

// IsNull reports whether the property is present and explicitly null.
func (o Object) IsNull(key string) bool {
	v, ok := o[key]

	return ok && v == nil
}

// String returns the property as a string. The second return is false when
// the property is absent, null, or not a string.
func (o Object) String(key string) (string, bool) {
	v, ok := o[key].(string)

	return v, ok
}

// StringOr returns the property as a string, or fallback when absent or of
// another type.
func (o Object) StringOr(key, fallback string) string {
	if v, ok := o.String(key); ok {
		return v
	}

	return fallback
}

// Bool returns the property as a bool.
func (o Object) Bool(key string) (bool, bool) {
	v, ok := o[key].(bool)

	return v, ok
}

// Float returns the property as a number; JSON numbers decode as float64.
func (o Object) Float(key string) (float64, bool) {
	v, ok := o[key].(float64)

	return v, ok
}

// Object returns the property as a nested object.
func (o Object) Object(key string) (Object, bool) {
	switch v := o[key].(type) {
	case map[string]any:
		return Object(v), true
	case Object:
		return v, true
	default:
		return nil, false
	}
}

// Array returns the property as a JSON array.
func (o Object) Array(key string) ([]any, bool) {
	v, ok := o[key].([]any)

	return v, ok
}

// Strings returns the property as a string array, dropping entries of other
// types. Used for @Redfish.AllowableValues style annotations.
func (o Object) Strings(key string) []string {
	arr, ok := o.Array(key)
	if !ok {
		return nil
	}

	out := make([]string, 0, len(arr))
	for _, v := range arr {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}

	return out
}

// Objects returns the property as an array of objects. Null slots are kept
// as nil entries so callers can inspect slot padding.
func (o Object) Objects(key string) ([]Object, bool) {
	arr, ok := o.Array(key)
	if !ok {
		return nil, false
	}

	out := make([]Object, 0, len(arr))
	for _, v := range arr {
		if m, ok := v.(map[string]any); ok {
			out = append(out, Object(m))
		} else {
			out = append(out, nil)
		}
	}

	return out, true
}

// ODataID returns the @odata.id of the object, if any.
func (o Object) ODataID() (string, bool) {
	return o.String("@odata.id")
}

// ID returns the resource Id property, falling back to the trailing
// @odata.id path segment.
func (o Object) ID() string {
	if id, ok := o.String("Id"); ok {
		return id
	}
	if uri, ok := o.ODataID(); ok {
		for i := len(uri) - 1; i >= 0; i-- {
			if uri[i] == '/' {
				return uri[i+1:]
			}
		}
	}

	return ""
}

// MemberURIs extracts the @odata.id of each entry in the Members array, in
// order.
func (o Object) MemberURIs() []string {
	members, ok := o.Objects("Members")
	if !ok {
		return nil
	}

	out := make([]string, 0, len(members))
	for _, m := range members {
		if m == nil {
			continue
		}
		if uri, ok := m.ODataID(); ok {
			out = append(out, uri)
		}
	}

	return out
}

// DecodeInto maps the object onto a typed view. Unknown payload properties
// are ignored; absent properties leave the zero value in place.
func (o Object) DecodeInto(out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:  out,
		TagName: "json",
	})
	if err != nil {
		return fmt.Errorf("building resource decoder: %w", err)
	}
	if err := dec.Decode(map[string]any(o)); err != nil {
		return fmt.Errorf("decoding resource into %T: %w", out, err)
	}

	return nil
}
