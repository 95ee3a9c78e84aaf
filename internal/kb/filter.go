package kb

import "strings"

// Filter narrows List results. Zero fields match everything.
type Filter struct {
	// Context must equal the record's context exactly.
	Context string
	// Tags must all be present on the record.
	Tags []string
	// Text must occur in the record's message.
	Text string
}

// Match reports whether r passes the filter.
func (f Filter) Match(r *Record) bool {
	if f.Context != "" && r.Context != f.Context {
		return false
	}
	for _, tag := range f.Tags {
		if !r.HasTag(tag) {
			return false
		}
	}
	if f.Text != "" && !strings.Contains(r.Message, f.Text) {
		return false
	}
	return true
}
