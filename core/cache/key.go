package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"sort"
	"strings"
)

// Canonical builds the normalized string form of a query: the endpoint path
// followed by parameters sorted by name, with lower-cased names, trimmed
// values, and multi-values sorted. Empty values are dropped.
func Canonical(path string, params url.Values) string {
	norm := make(map[string][]string, len(params))
	names := make([]string, 0, len(params))

	for name, values := range params {
		key := strings.ToLower(strings.TrimSpace(name))
		if key == "" {
			continue
		}
		var vs []string
		for _, v := range values {
			if v = strings.TrimSpace(v); v != "" {
				vs = append(vs, v)
			}
		}
		if len(vs) == 0 {
			continue
		}
		sort.Strings(vs)
		if _, seen := norm[key]; !seen {
			names = append(names, key)
		}
		norm[key] = append(norm[key], vs...)
	}
	sort.Strings(names)

	var sb strings.Builder
	sb.WriteString(strings.TrimRight(path, "/"))
	sep := "?"
	for _, name := range names {
		for _, v := range norm[name] {
			sb.WriteString(sep)
			sb.WriteString(name)
			sb.WriteString("=")
			sb.WriteString(v)
			sep = "&"
		}
	}
	return sb.String()
}

// Key derives a stable cache key from an endpoint path and query parameters.
// The same key doubles as the fallback store's query shape key.
func Key(path string, params url.Values) string {
	sum := sha256.Sum256([]byte(Canonical(path, params)))
	return hex.EncodeToString(sum[:16])
}
