// Package admin implements the CouchDB server administration behind ccouch.
package admin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/couchkb/couchkb/internal/couch"
	"github.com/couchkb/couchkb/internal/logging"
)

const (
	// UsersDB is the server's authentication database.
	UsersDB = "_users"
	// UserPrefix starts the id of every user document.
	UserPrefix = "org.couchdb.user:"
	// DefaultAdminKey names the admin credentials in the secret store.
	DefaultAdminKey = "couchdb.slap.admin"
)

var (
	ErrMissingDatabaseName = errors.New("database name is required")
	ErrMissingUsername     = errors.New("username is required")
	ErrMissingPassword     = errors.New("password is required")
	ErrUserAlreadyExists   = errors.New("user already exists")
)

// DatabaseSummary is one line of the database listing.
type DatabaseSummary struct {
	Name     string `json:"name"`
	DocCount int64  `json:"doc_count"`
}

// User is a server user taken from the _users database.
type User struct {
	ID    string   `json:"id"`
	Name  string   `json:"name"`
	Roles []string `json:"roles"`
}

// DatabaseSecurity describes who may access a database.
type DatabaseSecurity struct {
	Database   string         `json:"database"`
	AdminParty bool           `json:"admin_party"`
	Security   couch.Security `json:"security"`
}

// Design is a design document with its top-level fields.
type Design struct {
	ID     string                     `json:"id"`
	Fields map[string]json.RawMessage `json:"fields"`
}

// FieldNames returns the design's field names in sorted order.
func (d Design) FieldNames() []string {
	names := make([]string, 0, len(d.Fields))
	for k := range d.Fields {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// NewUser describes a user to add.
type NewUser struct {
	Username string
	Password string
	Roles    []string
}

// Manager runs administrative operations against one server.
type Manager struct {
	client couch.Client
	log    logrus.FieldLogger
}

// NewManager returns a manager using client. A nil logger discards output.
func NewManager(client couch.Client, logger logrus.FieldLogger) *Manager {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Manager{client: client, log: logger}
}

// ListDatabases returns every database with its document count.
func (m *Manager) ListDatabases(ctx context.Context) ([]DatabaseSummary, error) {
	names, err := m.client.AllDBs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list databases: %w", err)
	}
	out := make([]DatabaseSummary, 0, len(names))
	for _, name := range names {
		n, err := m.client.DB(name).DocCount(ctx)
		if err != nil {
			return nil, fmt.Errorf("count documents in %s: %w", name, err)
		}
		out = append(out, DatabaseSummary{Name: name, DocCount: n})
	}
	return out, nil
}

// ListUsers returns the users defined on the server.
func (m *Manager) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := m.client.DB(UsersDB).AllDocs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	var users []User
	for _, row := range rows {
		if !strings.HasPrefix(row.ID, UserPrefix) {
			continue
		}
		var doc struct {
			Name  string   `json:"name"`
			Roles []string `json:"roles"`
		}
		if err := couch.DecodeDoc(row, &doc); err != nil {
			m.log.WithError(err).WithField("id", row.ID).Warn("skipping undecodable user document")
			continue
		}
		users = append(users, User{ID: row.ID, Name: doc.Name, Roles: doc.Roles})
	}
	return users, nil
}

// DatabaseSecurity returns the security object of db.
func (m *Manager) DatabaseSecurity(ctx context.Context, db string) (*DatabaseSecurity, error) {
	if db == "" {
		return nil, ErrMissingDatabaseName
	}
	sec, err := m.client.DB(db).Security(ctx)
	if err != nil {
		return nil, fmt.Errorf("get security for %s: %w", db, err)
	}
	return &DatabaseSecurity{Database: db, AdminParty: sec.AdminParty(), Security: *sec}, nil
}

// Designs returns the design documents of db.
func (m *Manager) Designs(ctx context.Context, db string) ([]Design, error) {
	if db == "" {
		return nil, ErrMissingDatabaseName
	}
	rows, err := m.client.DB(db).DesignDocs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list design documents in %s: %w", db, err)
	}
	designs := make([]Design, 0, len(rows))
	for _, row := range rows {
		var fields map[string]json.RawMessage
		if err := couch.DecodeDoc(row, &fields); err != nil {
			return nil, fmt.Errorf("decode %s: %w", row.ID, err)
		}
		designs = append(designs, Design{ID: row.ID, Fields: fields})
	}
	return designs, nil
}

// Compact starts compaction of db. The server compacts in the background.
func (m *Manager) Compact(ctx context.Context, db string) error {
	if db == "" {
		return ErrMissingDatabaseName
	}
	m.log.WithField("database", db).Debug("Compacting")
	if err := m.client.DB(db).Compact(ctx); err != nil {
		return fmt.Errorf("compact %s: %w", db, err)
	}
	return nil
}

type userDoc struct {
	ID       string   `json:"_id"`
	Name     string   `json:"name"`
	Type     string   `json:"type"`
	Roles    []string `json:"roles"`
	Password string   `json:"password"`
}

// AddUser creates a server user. It never overwrites an existing user.
func (m *Manager) AddUser(ctx context.Context, u NewUser) error {
	if u.Username == "" {
		return ErrMissingUsername
	}
	if u.Password == "" {
		return ErrMissingPassword
	}
	roles := u.Roles
	if roles == nil {
		roles = []string{}
	}
	id := UserPrefix + u.Username
	doc := userDoc{ID: id, Name: u.Username, Type: "user", Roles: roles, Password: u.Password}
	if _, err := m.client.DB(UsersDB).Put(ctx, id, doc); err != nil {
		if couch.IsConflict(err) {
			return fmt.Errorf("%w: %s", ErrUserAlreadyExists, u.Username)
		}
		return fmt.Errorf("add user %s: %w", u.Username, err)
	}
	m.log.WithFields(logrus.Fields{"user": u.Username, "roles": roles}).Info("user added")
	return nil
}

// ParseRoles splits a comma-delimited role list, dropping blanks.
func ParseRoles(s string) []string {
	roles := []string{}
	for _, r := range strings.Split(s, ",") {
		if r = strings.TrimSpace(r); r != "" {
			roles = append(roles, r)
		}
	}
	return roles
}
