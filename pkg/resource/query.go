package resource

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"

	"github.com/itchyny/gojq"
)

// ErrNotFound is returned when a query doesn't find the requested field.
var ErrNotFound = errors.New("field not found")

// convertValue converts a value to a gojq-compatible representation. Maps
// and non-byte slices pass through directly; other types are normalized
// through JSON.
func convertValue(value any) (any, error) {
	if value == nil {
		return nil, nil
	}

	if v, ok := value.(Object); ok {
		return map[string]any(v), nil
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Map:
		return value, nil
	case reflect.Slice:
		if _, isByteSlice := value.([]byte); !isByteSlice {
			slice := make([]any, rv.Len())
			for i := range rv.Len() {
				slice[i] = rv.Index(i).Interface()
			}

			return slice, nil
		}
	}

	var normalized any
	jsonBytes, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal value: %w", err)
	}
	if err := json.Unmarshal(jsonBytes, &normalized); err != nil {
		return nil, fmt.Errorf("failed to unmarshal value: %w", err)
	}

	return normalized, nil
}

// Query executes a jq expression against the provided value and returns the
// first result cast to type T. A nil/null result returns ErrNotFound.
func Query[T any](value any, expr string) (T, error) {
	var zero T

	compiled, err := gojq.Parse(expr)
	if err != nil {
		return zero, fmt.Errorf("failed to parse jq query: %w", err)
	}

	normalized, err := convertValue(value)
	if err != nil {
		return zero, err
	}

	out, ok := compiled.Run(normalized).Next()
	if !ok {
		return zero, nil
	}

	if err, isErr := out.(error); isErr {
		return zero, fmt.Errorf("jq query error: %w", err)
	}

	if out == nil {
		return zero, ErrNotFound
	}

	// Direct type assertion first; fall back to JSON conversion for type
	// mismatches such as float64 vs int.
	if typed, ok := out.(T); ok {
		return typed, nil
	}

	data, err := json.Marshal(out)
	if err != nil {
		return zero, fmt.Errorf("marshaling query result: %w", err)
	}

	var converted T
	if err := json.Unmarshal(data, &converted); err != nil {
		return zero, fmt.Errorf("unmarshaling to type %T: %w", zero, err)
	}

	return converted, nil
}
