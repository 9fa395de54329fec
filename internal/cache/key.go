package cache

import (
	"sort"
	"strings"

	"github.com/LexForumLab/lexforum/client/internal/resource"
)

// Key deterministically identifies one cached query result. Two lookups with
// the same resource and the same filter set produce the same Key regardless
// of the order the filters were supplied in.
type Key string

// NewKey derives a Key from a resource kind and its filter/pagination
// parameters. Parameters with empty values are dropped during
// canonicalization.
func NewKey(kind resource.Kind, params map[string]string) Key {
	if len(params) == 0 {
		return Key(kind.String())
	}

	names := make([]string, 0, len(params))
	for name, value := range params {
		if strings.TrimSpace(value) == "" {
			continue
		}
		names = append(names, name)
	}
	if len(names) == 0 {
		return Key(kind.String())
	}
	sort.Strings(names)

	var builder strings.Builder
	builder.WriteString(kind.String())
	builder.WriteByte('?')
	for i, name := range names {
		if i > 0 {
			builder.WriteByte('&')
		}
		builder.WriteString(name)
		builder.WriteByte('=')
		builder.WriteString(params[name])
	}
	return Key(builder.String())
}

// String returns the canonical key text.
func (k Key) String() string {
	return string(k)
}
