package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
)

// Fingerprint computes a deterministic cache key for a logical request.
// The key covers the query, request type, and context; the user token is
// deliberately excluded so identical logical requests from different
// users collide on the same entry.
//
// Map ordering must not affect the key, so context maps are serialized
// with sorted keys.
func Fingerprint(query, requestType string, reqContext map[string]any) (string, error) {
	canonical, err := canonicalize(map[string]any{
		"query":        query,
		"request_type": requestType,
		"context":      normalizeContext(reqContext),
	})
	if err != nil {
		return "", fmt.Errorf("failed to canonicalize request: %w", err)
	}

	hash := sha256.Sum256(canonical)
	return "query:" + hex.EncodeToString(hash[:16]), nil
}

func normalizeContext(m map[string]any) map[string]any {
	if len(m) == 0 {
		return nil
	}
	return m
}

// canonicalize produces a deterministic JSON encoding: object keys are
// sorted recursively.
func canonicalize(v any) ([]byte, error) {
	switch val := v.(type) {
	case nil:
		return []byte("null"), nil
	case map[string]any:
		return canonicalizeMap(val)
	case []any:
		return canonicalizeSlice(val)
	default:
		return json.Marshal(v)
	}
}

func canonicalizeMap(m map[string]any) ([]byte, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	result := []byte("{")
	for i, k := range keys {
		if i > 0 {
			result = append(result, ',')
		}
		keyBytes, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		result = append(result, keyBytes...)
		result = append(result, ':')

		valBytes, err := canonicalize(m[k])
		if err != nil {
			return nil, err
		}
		result = append(result, valBytes...)
	}
	return append(result, '}'), nil
}

func canonicalizeSlice(s []any) ([]byte, error) {
	result := []byte("[")
	for i, v := range s {
		if i > 0 {
			result = append(result, ',')
		}
		valBytes, err := canonicalize(v)
		if err != nil {
			return nil, err
		}
		result = append(result, valBytes...)
	}
	return append(result, ']'), nil
}
