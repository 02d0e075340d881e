package catalog

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	slugStrip   = regexp.MustCompile(`[^a-z0-9\s-]`)
	slugSpaces  = regexp.MustCompile(`\s+`)
	slugHyphens = regexp.MustCompile(`-{2,}`)
)

// Slugify derives a URL-safe slug from a product name: lowercase, strip
// everything outside [a-z0-9\s-], collapse whitespace runs to single hyphens,
// collapse repeated hyphens, trim edge hyphens.
func Slugify(name string) string {
	s := strings.ToLower(name)
	s = slugStrip.ReplaceAllString(s, "")
	s = slugSpaces.ReplaceAllString(s, "-")
	s = slugHyphens.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// SlugLedger assigns slugs and guarantees uniqueness across every assignment
// made since the last Reset. The first duplicate of a base slug gets a "-2"
// suffix, the second "-3", and so on, deterministic in assignment order.
type SlugLedger struct {
	seen map[string]int
}

// NewSlugLedger returns an empty ledger.
func NewSlugLedger() *SlugLedger {
	return &SlugLedger{seen: make(map[string]int)}
}

// Assign derives the slug for name and records it in the ledger.
func (l *SlugLedger) Assign(name string) string {
	base := Slugify(name)
	n := l.seen[base]
	l.seen[base] = n + 1
	if n == 0 {
		return base
	}
	return fmt.Sprintf("%s-%d", base, n+1)
}

// Reset forgets all prior assignments.
func (l *SlugLedger) Reset() {
	l.seen = make(map[string]int)
}
