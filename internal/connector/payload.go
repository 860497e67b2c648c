package connector

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"solana-token-scanner/internal/domain"
)

// lookup walks a dotted path through nested objects.
func lookup(rec map[string]any, path string) (any, bool) {
	var cur any = rec
	for _, key := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[key]
		if !ok {
			return nil, false
		}
	}
	return cur, cur != nil
}

// str returns the first non-empty string found at paths.
func str(rec map[string]any, paths ...string) string {
	for _, p := range paths {
		v, ok := lookup(rec, p)
		if !ok {
			continue
		}
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return ""
}

// num returns the first numeric value found at paths. Providers send
// numbers both as JSON numbers and as decimal strings.
func num(rec map[string]any, paths ...string) (float64, bool) {
	for _, p := range paths {
		v, ok := lookup(rec, p)
		if !ok {
			continue
		}
		switch n := v.(type) {
		case float64:
			return n, true
		case json.Number:
			if f, err := n.Float64(); err == nil {
				return f, true
			}
		case string:
			if f, err := strconv.ParseFloat(n, 64); err == nil {
				return f, true
			}
		}
	}
	return 0, false
}

// numOr returns num or zero.
func numOr(rec map[string]any, paths ...string) float64 {
	f, _ := num(rec, paths...)
	return f
}

// decodeList decodes body and returns the array found at the first
// matching path. An empty path means the body itself is the array.
func decodeList(body []byte, paths ...string) ([]map[string]any, error) {
	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrMalformedPayload, err)
	}

	var list []any
	switch d := doc.(type) {
	case []any:
		list = d
	case map[string]any:
		for _, p := range paths {
			if v, ok := lookup(d, p); ok {
				if l, ok := v.([]any); ok {
					list = l
					break
				}
			}
		}
		if list == nil {
			return nil, fmt.Errorf("%w: no record list at %v", domain.ErrMalformedPayload, paths)
		}
	default:
		return nil, fmt.Errorf("%w: unexpected document", domain.ErrMalformedPayload)
	}

	out := make([]map[string]any, 0, len(list))
	for _, item := range list {
		if m, ok := item.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out, nil
}

// missingMint wraps ErrMissingMint with the source for error context.
func missingMint(source domain.Source) error {
	return fmt.Errorf("%s: %w", source, domain.ErrMissingMint)
}
