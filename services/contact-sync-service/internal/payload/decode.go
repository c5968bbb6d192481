package payload

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime"
	"net/url"
	"sort"
	"strings"
)

// Decode parses a JSON or form-encoded webhook body. An empty body decodes to
// an empty payload. The returned payload is never nil: a malformed JSON body
// yields an empty one, and a form body keeps every pair that parsed cleanly
// alongside the error.
func Decode(contentType string, body []byte) (RawPayload, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return RawPayload{}, nil
	}

	mediaType, _, _ := mime.ParseMediaType(contentType)
	switch {
	case mediaType == "application/x-www-form-urlencoded":
		return decodeForm(body)
	case mediaType == "application/json", strings.HasSuffix(mediaType, "+json"):
		return decodeJSON(body)
	default:
		// Some senders omit the content type; sniff the first byte.
		if trimmed := bytes.TrimSpace(body); trimmed[0] == '{' {
			return decodeJSON(body)
		}
		return decodeForm(body)
	}
}

func decodeJSON(body []byte) (RawPayload, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var out map[string]any
	if err := dec.Decode(&out); err != nil {
		return RawPayload{}, fmt.Errorf("decode json body: %w", err)
	}
	if out == nil {
		return RawPayload{}, nil
	}
	return RawPayload(out), nil
}

func decodeForm(body []byte) (RawPayload, error) {
	// ParseQuery keeps going past a bad pair and reports the first error.
	values, parseErr := url.ParseQuery(string(body))
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	out := RawPayload{}
	for _, key := range keys {
		if vals := values[key]; len(vals) > 0 {
			setNested(out, splitFormKey(key), vals[0])
		}
	}
	if parseErr != nil {
		return out, fmt.Errorf("decode form body: %w", parseErr)
	}
	return out, nil
}

// splitFormKey expands bracket notation: "buyer[email]" -> ["buyer", "email"].
func splitFormKey(key string) []string {
	open := strings.IndexByte(key, '[')
	if open <= 0 || !strings.HasSuffix(key, "]") {
		return []string{key}
	}
	parts := []string{key[:open]}
	rest := key[open:]
	for len(rest) > 0 {
		if rest[0] != '[' {
			return []string{key}
		}
		end := strings.IndexByte(rest, ']')
		if end < 0 {
			return []string{key}
		}
		parts = append(parts, rest[1:end])
		rest = rest[end+1:]
	}
	return parts
}

func setNested(root map[string]any, path []string, value string) {
	cur := root
	for i, key := range path {
		if i == len(path)-1 {
			if _, exists := cur[key]; !exists {
				cur[key] = value
			}
			return
		}
		next, ok := cur[key].(map[string]any)
		if !ok {
			if _, exists := cur[key]; exists {
				// A scalar already sits here; keep the first writer.
				return
			}
			next = map[string]any{}
			cur[key] = next
		}
		cur = next
	}
}
