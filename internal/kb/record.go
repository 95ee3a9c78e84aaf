// Package kb manages knowledge-base records stored in CouchDB.
package kb

import (
	"encoding/json"
	"time"
)

// CreatedLayout is the timestamp format stamped on new records: RFC 3339
// with microseconds and an explicit offset.
const CreatedLayout = "2006-01-02T15:04:05.000000-07:00"

// Field names of a stored record document.
const (
	fieldID       = "_id"
	fieldRev      = "_rev"
	fieldContext  = "context"
	fieldCreated  = "created"
	fieldHostname = "hostname"
	fieldTags     = "tags"
	fieldUser     = "user"
	fieldMessage  = "message"
)

// knownFields are the document keys Record maps to struct fields, in the
// order they appear in the edit buffer.
var knownFields = []string{fieldID, fieldContext, fieldCreated, fieldHostname, fieldTags, fieldUser}

func isKnownField(key string) bool {
	switch key {
	case fieldID, fieldRev, fieldContext, fieldCreated, fieldHostname, fieldTags, fieldUser, fieldMessage:
		return true
	}
	return false
}

// Record is one knowledge-base entry.
//
// Document keys that Record has no field for are kept in Extra, so records
// written by other clients survive a load and save unchanged.
type Record struct {
	ID       string
	Rev      string
	Context  string
	Created  string
	Hostname string
	Tags     []string
	User     string
	Message  string
	Extra    map[string]interface{}
}

// recordDoc is the stored shape of the known fields.
type recordDoc struct {
	ID       string   `json:"_id"`
	Rev      string   `json:"_rev,omitempty"`
	Context  string   `json:"context,omitempty"`
	Created  string   `json:"created,omitempty"`
	Hostname string   `json:"hostname,omitempty"`
	Tags     []string `json:"tags"`
	User     string   `json:"user,omitempty"`
	Message  string   `json:"message"`
}

// MarshalJSON writes the known fields over Extra. Empty strings are left
// out rather than stored, and tags are always an array.
func (r Record) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(r.Extra)+8)
	for k, v := range r.Extra {
		if !isKnownField(k) {
			out[k] = v
		}
	}
	out[fieldID] = r.ID
	setString(out, fieldRev, r.Rev)
	setString(out, fieldContext, r.Context)
	setString(out, fieldCreated, r.Created)
	setString(out, fieldHostname, r.Hostname)
	setString(out, fieldUser, r.User)
	tags := r.Tags
	if tags == nil {
		tags = []string{}
	}
	out[fieldTags] = tags
	out[fieldMessage] = r.Message
	return json.Marshal(out)
}

func setString(m map[string]interface{}, key, value string) {
	if value != "" {
		m[key] = value
	}
}

// UnmarshalJSON reads a stored document. A missing or null tags field
// decodes as an empty list.
func (r *Record) UnmarshalJSON(data []byte) error {
	var doc recordDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	var all map[string]interface{}
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	for k := range all {
		if isKnownField(k) {
			delete(all, k)
		}
	}
	if len(all) == 0 {
		all = nil
	}
	if doc.Tags == nil {
		doc.Tags = []string{}
	}
	*r = Record{
		ID:       doc.ID,
		Rev:      doc.Rev,
		Context:  doc.Context,
		Created:  doc.Created,
		Hostname: doc.Hostname,
		Tags:     doc.Tags,
		User:     doc.User,
		Message:  doc.Message,
		Extra:    all,
	}
	return nil
}

// HasTag reports whether the record carries tag.
func (r *Record) HasTag(tag string) bool {
	for _, t := range r.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// CreatedTime parses Created, returning the zero time when it is not a
// valid timestamp.
func (r *Record) CreatedTime() time.Time {
	t, err := time.Parse(time.RFC3339Nano, r.Created)
	if err != nil {
		return time.Time{}
	}
	return t
}

func (r *Record) clone() *Record {
	c := *r
	if r.Tags != nil {
		c.Tags = make([]string, len(r.Tags))
		copy(c.Tags, r.Tags)
	}
	if r.Extra != nil {
		c.Extra = make(map[string]interface{}, len(r.Extra))
		for k, v := range r.Extra {
			c.Extra[k] = v
		}
	}
	return &c
}
