// Package validate contains pure semantic validators applied to Redfish
// payload fragments by the use case checkers.
package validate

import (
	"net/netip"

	"github.com/redfish-tools/usecase-checkers/pkg/resource"
)

// placeholder values a service must not report as configured addresses;
// unconfigured slots use null instead.
var placeholderAddresses = []string{"", "0.0.0.0", "::"}

// ValidIPv4 reports whether s is a well-formed dotted-quad IPv4 literal.
// The empty string and the unspecified address are rejected.
func ValidIPv4(s string) bool {
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return false
	}

	return addr.Is4() && !addr.IsUnspecified()
}

// InvalidAddress recursively scans a value (object, array, or string) for
// placeholder addresses and returns the first one found. The second return
// is false when every address is acceptable.
func InvalidAddress(v any) (string, bool) {
	switch val := v.(type) {
	case resource.Object:
		return InvalidAddress(map[string]any(val))
	case map[string]any:
		for _, nested := range val {
			if bad, found := InvalidAddress(nested); found {
				return bad, true
			}
		}
	case []any:
		for _, nested := range val {
			if bad, found := InvalidAddress(nested); found {
				return bad, true
			}
		}
	case string:
		for _, placeholder := range placeholderAddresses {
			if val == placeholder {
				return val, true
			}
		}
	}

	return "", false
}

// NullPadding reports whether every slot of an address array is either a
// configured object or an explicit null marker. Clients rely on array
// position (the first IPv4 entry carries the gateway), so unconfigured
// slots must be padded with null rather than omitted or replaced with
// another type.
func NullPadding(items []any) bool {
	for _, item := range items {
		if item == nil {
			continue
		}
		if _, ok := item.(map[string]any); ok {
			continue
		}
		if _, ok := item.(resource.Object); ok {
			continue
		}

		return false
	}

	return true
}

// GatewayOnlyFirst reports whether only the first slot of an IPv4 address
// array carries a Gateway property. Null slots are skipped.
func GatewayOnlyFirst(items []any) bool {
	for i, item := range items {
		if i == 0 {
			continue
		}
		obj, ok := item.(map[string]any)
		if !ok {
			if typed, isObj := item.(resource.Object); isObj {
				obj = map[string]any(typed)
			} else {
				continue
			}
		}
		if _, has := obj["Gateway"]; has {
			return false
		}
	}

	return true
}

// MissingProperties returns the members of required that are absent or null
// in the object, in the order given.
func MissingProperties(obj resource.Object, required []string) []string {
	var missing []string
	for _, key := range required {
		if !obj.Has(key) || obj.IsNull(key) {
			missing = append(missing, key)
		}
	}

	return missing
}

// SensorReading is the minimal view of a sensor used for plausibility
// checks.
type SensorReading struct {
	Name    string
	State   string
	Reading any
}

// PlausibleSensorReading checks a sensor's reported state against its
// reading. A sensor that is not enabled must not carry a live reading
// (e.g. reporting "0V" for an absent device); when the state is not
// "Enabled" the reading is expected to be null or to echo the state.
func PlausibleSensorReading(s SensorReading) bool {
	if s.State == "" || s.Reading == nil {
		return true
	}
	if s.State == "Enabled" {
		return true
	}
	if echoed, ok := s.Reading.(string); ok && echoed == s.State {
		return true
	}

	return false
}

// MissingEnabledReading reports whether a sensor claims to be enabled yet
// carries no reading at all. This is advisory; some implementations omit
// readings during power transitions.
func MissingEnabledReading(s SensorReading) bool {
	return s.State == "Enabled" && s.Reading == nil
}
