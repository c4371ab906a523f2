package worker

import "encoding/json"

// dangerousKeys are stripped from every object level of a payload before
// delivery, guarding against prototype-pollution-style gadget payloads even
// though the Go JSON decoder itself doesn't exhibit that vulnerability class
// — spec.md §8 property 5 requires the invariant regardless.
var dangerousKeys = map[string]bool{
	"__proto__":   true,
	"constructor": true,
	"prototype":   true,
}

// Sanitize recursively strips dangerousKeys from every object (and nested
// object/array) in payload. Top-level arrays are sanitized element by
// element; an empty payload is returned as is.
func Sanitize(payload json.RawMessage) (json.RawMessage, error) {
	if len(payload) == 0 {
		return payload, nil
	}

	var v any
	if err := json.Unmarshal(payload, &v); err != nil {
		return nil, err
	}

	clean := sanitizeValue(v)
	out, err := json.Marshal(clean)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func sanitizeValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			if dangerousKeys[k] {
				continue
			}
			out[k] = sanitizeValue(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = sanitizeValue(val)
		}
		return out
	default:
		return t
	}
}
