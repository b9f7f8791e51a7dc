package cache

import "strings"

// Delimiter separates key segments, e.g. "demo:report:retail:30:10".
const Delimiter = ":"

// Key builds a namespaced cache key by joining the non-empty parts with the
// delimiter. Each part is trimmed of leading/trailing delimiter characters so
// a part can never introduce a spurious segment boundary, and empty parts are
// skipped entirely: Key("demo", "report", "", "30") == Key("demo", "report", "30").
//
// The same (namespace, parts) always yields the same key; callers are
// responsible for a fixed part order per report type. Never derive a part
// from a runtime hash: key fragments must be stable across restarts.
func Key(parts ...string) string {
	segs := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.Trim(p, Delimiter)
		if p == "" {
			continue
		}
		segs = append(segs, p)
	}
	return strings.Join(segs, Delimiter)
}
