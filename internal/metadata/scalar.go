// Package metadata models the dynamic string-to-scalar bag carried on
// events and progress items, so the Firestore adapter can round-trip
// values without widening integers to floats or losing boolean-ness.
package metadata

// Map is a mapping from string keys to scalar values (spec §3). Each
// value must be one of string, bool, int64, or float64. Clean converts
// int and int32 to int64 and float32 to float64, and drops any other
// dynamic type.
type Map map[string]any

// Clean returns a copy of m containing only the supported scalar kinds,
// narrowing the ordinary Go int to int64 so callers building these maps
// by hand don't have to think about Firestore's wire representation.
func Clean(m Map) Map {
	if m == nil {
		return nil
	}
	out := make(Map, len(m))
	for k, v := range m {
		switch val := v.(type) {
		case string, bool, int64, float64:
			out[k] = val
		case int:
			out[k] = int64(val)
		case int32:
			out[k] = int64(val)
		case float32:
			out[k] = float64(val)
		default:
			// unsupported dynamic type; dropped rather than propagated
		}
	}
	return out
}

// Equal reports whether two metadata maps carry the same keys and values.
func Equal(a, b Map) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		other, ok := b[k]
		if !ok || other != v {
			return false
		}
	}
	return true
}
