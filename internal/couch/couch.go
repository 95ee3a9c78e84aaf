// Package couch is the narrow CouchDB capability used by kb and ccouch.
//
// Everything non-trivial (HTTP sessions, views, compaction, security
// semantics) happens in CouchDB and in the kivik client; this package only
// adapts kivik to the Client and Database interfaces so the rest of the
// module can be exercised against the in-memory fake in couchtest.
package couch

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	kivik "github.com/go-kivik/kivik/v4"
)

// DesignPrefix marks design document IDs.
const DesignPrefix = "_design/"

// Credentials locate and authenticate a CouchDB server.
type Credentials struct {
	URL      string
	Username string
	Password string
}

// DialFunc opens a client. Commands take one so tests can substitute a fake.
type DialFunc func(ctx context.Context, creds Credentials) (Client, error)

// Client is a connection to a CouchDB server.
type Client interface {
	AllDBs(ctx context.Context) ([]string, error)
	DBExists(ctx context.Context, name string) (bool, error)
	CreateDB(ctx context.Context, name string) error
	DB(name string) Database
	Close() error
}

// Database is a handle to one database on the server.
type Database interface {
	Name() string
	// Get decodes the document into dest, which should carry a _rev field.
	Get(ctx context.Context, id string, dest interface{}) error
	// Put creates or updates a document and returns the new revision.
	Put(ctx context.Context, id string, doc interface{}) (string, error)
	Delete(ctx context.Context, id, rev string) error
	// AllDocs returns every document, design documents included, with bodies.
	AllDocs(ctx context.Context) ([]Row, error)
	DesignDocs(ctx context.Context) ([]Row, error)
	Query(ctx context.Context, ddoc, view string, params map[string]interface{}) ([]Row, error)
	DocCount(ctx context.Context) (int64, error)
	// Compact asks the server to start compaction and returns without
	// waiting for it to finish.
	Compact(ctx context.Context) error
	Security(ctx context.Context) (*Security, error)
}

// Row is one row of a view or _all_docs result.
type Row struct {
	ID    string          `json:"id,omitempty"`
	Key   json.RawMessage `json:"key,omitempty"`
	Value json.RawMessage `json:"value,omitempty"`
	Doc   json.RawMessage `json:"doc,omitempty"`
}

// IsDesign reports whether the row belongs to a design document.
func (r Row) IsDesign() bool {
	return IsDesignID(r.ID)
}

// IsDesignID reports whether id names a design document.
func IsDesignID(id string) bool {
	return strings.HasPrefix(id, DesignPrefix)
}

// Members lists the names and roles of one security section.
type Members struct {
	Names []string `json:"names"`
	Roles []string `json:"roles"`
}

// Security is a database security object.
type Security struct {
	Admins  Members `json:"admins"`
	Members Members `json:"members"`
}

// AdminParty reports whether the database is readable by anyone, which is
// the case when no member names or roles are set.
func (s *Security) AdminParty() bool {
	return len(s.Members.Names) == 0 && len(s.Members.Roles) == 0
}

// IsNotFound reports whether err is a 404 from the server.
func IsNotFound(err error) bool {
	return err != nil && kivik.HTTPStatus(err) == http.StatusNotFound
}

// IsConflict reports whether err is a 409 from the server.
func IsConflict(err error) bool {
	return err != nil && kivik.HTTPStatus(err) == http.StatusConflict
}

// StatusError is an error carrying an HTTP status, in the shape kivik uses.
type StatusError struct {
	Status int
	Reason string
}

func (e *StatusError) Error() string {
	if e.Reason == "" {
		return http.StatusText(e.Status)
	}
	return http.StatusText(e.Status) + ": " + e.Reason
}

// HTTPStatus satisfies kivik's status inspection.
func (e *StatusError) HTTPStatus() int {
	return e.Status
}
