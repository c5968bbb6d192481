// Package payload turns loosely structured purchase webhooks into a
// normalized Event.
//
// Senders change field locations between payload versions, so every
// attribute is read through an ordered list of candidate paths and the first
// non-empty value wins.
package payload

import (
	"encoding/json"
	"strconv"
	"strings"
)

// RawPayload is a decoded webhook body with no fixed schema.
type RawPayload map[string]any

// Path addresses a nested value, e.g. Path{"data", "buyer", "email"}.
type Path []string

// P builds a Path from a dotted string.
func P(dotted string) Path {
	return Path(strings.Split(dotted, "."))
}

func (p Path) String() string {
	return strings.Join(p, ".")
}

// Lookup returns the value at path as a trimmed string. Missing keys,
// objects, arrays and nulls all read as "".
func (r RawPayload) Lookup(path Path) string {
	if len(path) == 0 {
		return ""
	}
	var cur any = map[string]any(r)
	for _, key := range path {
		m, ok := asMap(cur)
		if !ok {
			return ""
		}
		cur, ok = m[key]
		if !ok {
			return ""
		}
	}
	return scalarString(cur)
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case RawPayload:
		return m, true
	default:
		return nil, false
	}
}

func scalarString(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	case []string:
		// Repeated form fields: the first value is the one that counts.
		if len(t) > 0 {
			return strings.TrimSpace(t[0])
		}
		return ""
	default:
		return ""
	}
}
