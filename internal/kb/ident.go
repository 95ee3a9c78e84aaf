package kb

import (
	"strings"

	"github.com/google/uuid"

	"github.com/couchkb/couchkb/internal/slugs"
)

// DefaultIDPrefix is used when no prefix is configured.
const DefaultIDPrefix = "kb"

const shortIDLen = 12

// NewID returns a fresh record id of the form "<prefix>:<short-id>".
func NewID(prefix string) string {
	p := slugs.Compact(prefix)
	if p == "" {
		p = DefaultIDPrefix
	}
	return p + ":" + shortID()
}

func shortID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:shortIDLen]
}
