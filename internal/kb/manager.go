package kb

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/user"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/couchkb/couchkb/internal/couch"
	"github.com/couchkb/couchkb/internal/editor"
	"github.com/couchkb/couchkb/internal/logging"
)

// Tag view coordinates.
const (
	TagDesign = "uniqueTags"
	TagView   = "tags"
)

// tagMap emits every tag of a record once per occurrence.
const tagMap = `function (doc) {
  if (doc.tags) {
    doc.tags.forEach(function (tag) {
      emit(tag, null);
    });
  }
}`

// DefaultTag is applied to records created without tags.
const DefaultTag = "general"

// TagCount is one row of the tag aggregation.
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// Options configure a Manager. Only Database is required.
type Options struct {
	Database string
	IDPrefix string
	Editor   editor.Editor
	Logger   logrus.FieldLogger

	// Now, Hostname and User stamp new records; nil uses the system.
	Now      func() time.Time
	Hostname func() (string, error)
	User     func() string
}

// Manager performs record operations against one database.
type Manager struct {
	client   couch.Client
	db       couch.Database
	idPrefix string
	editor   editor.Editor
	log      logrus.FieldLogger
	now      func() time.Time
	hostname func() (string, error)
	user     func() string

	ready bool
}

// NewManager returns a manager for opts.Database on client.
func NewManager(client couch.Client, opts Options) *Manager {
	m := &Manager{
		client:   client,
		db:       client.DB(opts.Database),
		idPrefix: opts.IDPrefix,
		editor:   opts.Editor,
		log:      opts.Logger,
		now:      opts.Now,
		hostname: opts.Hostname,
		user:     opts.User,
	}
	if m.log == nil {
		m.log = logging.Discard()
	}
	if m.now == nil {
		m.now = time.Now
	}
	if m.hostname == nil {
		m.hostname = os.Hostname
	}
	if m.user == nil {
		m.user = currentUser
	}
	return m
}

func currentUser() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	return os.Getenv("USER")
}

// EnsureDatabase creates the database when it does not exist yet.
func (m *Manager) EnsureDatabase(ctx context.Context) error {
	if m.ready {
		return nil
	}
	exists, err := m.client.DBExists(ctx, m.db.Name())
	if err != nil {
		return fmt.Errorf("check database %s: %w", m.db.Name(), err)
	}
	if !exists {
		m.log.Info("Knowledgebase doesn't exist. Creating...")
		if err := m.client.CreateDB(ctx, m.db.Name()); err != nil {
			return fmt.Errorf("create database %s: %w", m.db.Name(), err)
		}
	}
	m.ready = true
	return nil
}

type viewDef struct {
	Map    string `json:"map"`
	Reduce string `json:"reduce,omitempty"`
}

type designDoc struct {
	ID       string             `json:"_id"`
	Rev      string             `json:"_rev,omitempty"`
	Language string             `json:"language"`
	Views    map[string]viewDef `json:"views"`
}

// EnsureViews installs the tag view's design document when it is missing.
// An existing design document is left alone.
func (m *Manager) EnsureViews(ctx context.Context) error {
	id := couch.DesignPrefix + TagDesign
	var existing designDoc
	err := m.db.Get(ctx, id, &existing)
	if err == nil {
		return nil
	}
	if !couch.IsNotFound(err) {
		return fmt.Errorf("get %s: %w", id, err)
	}

	m.log.WithField("design", id).Info("installing tag view")
	doc := designDoc{
		ID:       id,
		Language: "javascript",
		Views: map[string]viewDef{
			TagView: {Map: tagMap, Reduce: "_count"},
		},
	}
	if _, err := m.db.Put(ctx, id, doc); err != nil && !couch.IsConflict(err) {
		return fmt.Errorf("create %s: %w", id, err)
	}
	return nil
}

// Tags returns every tag in use and how many records carry it, in view
// key order.
func (m *Manager) Tags(ctx context.Context) ([]TagCount, error) {
	if err := m.EnsureDatabase(ctx); err != nil {
		return nil, err
	}
	if err := m.EnsureViews(ctx); err != nil {
		return nil, err
	}
	rows, err := m.db.Query(ctx, TagDesign, TagView, map[string]interface{}{"group": true})
	if err != nil {
		return nil, fmt.Errorf("query tags: %w", err)
	}
	tags := make([]TagCount, 0, len(rows))
	for _, row := range rows {
		var tc TagCount
		if err := json.Unmarshal(row.Key, &tc.Tag); err != nil {
			m.log.WithField("key", string(row.Key)).Debug("skipping non-string tag")
			continue
		}
		if err := json.Unmarshal(row.Value, &tc.Count); err != nil {
			return nil, fmt.Errorf("decode count for tag %q: %w", tc.Tag, err)
		}
		tags = append(tags, tc)
	}
	return tags, nil
}

// List returns the records matching f in document id order. Design
// documents are never returned.
func (m *Manager) List(ctx context.Context, f Filter) ([]*Record, error) {
	if err := m.EnsureDatabase(ctx); err != nil {
		return nil, err
	}
	rows, err := m.db.AllDocs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	var records []*Record
	for _, row := range rows {
		if row.IsDesign() {
			continue
		}
		var r Record
		if err := couch.DecodeDoc(row, &r); err != nil {
			m.log.WithError(err).WithField("id", row.ID).Warn("skipping undecodable document")
			continue
		}
		if f.Match(&r) {
			records = append(records, &r)
		}
	}
	return records, nil
}

// Get fetches one record.
func (m *Manager) Get(ctx context.Context, id string) (*Record, error) {
	if err := m.EnsureDatabase(ctx); err != nil {
		return nil, err
	}
	var r Record
	if err := m.db.Get(ctx, id, &r); err != nil {
		if couch.IsNotFound(err) {
			return nil, fmt.Errorf("%w: %s", ErrRecordNotFound, id)
		}
		return nil, fmt.Errorf("get %s: %w", id, err)
	}
	return &r, nil
}

// CreateRequest describes a new record.
type CreateRequest struct {
	Context string
	Tags    []string
	Message string
}

// Create stores a new record stamped with the host, user and current time.
func (m *Manager) Create(ctx context.Context, req CreateRequest) (*Record, error) {
	if err := m.EnsureDatabase(ctx); err != nil {
		return nil, err
	}
	tags := req.Tags
	if len(tags) == 0 {
		tags = []string{DefaultTag}
	}
	host, err := m.hostname()
	if err != nil {
		m.log.WithError(err).Warn("could not determine hostname")
	}
	r := &Record{
		ID:       NewID(m.idPrefix),
		Context:  req.Context,
		Created:  m.now().UTC().Format(CreatedLayout),
		Hostname: host,
		Tags:     append([]string(nil), tags...),
		User:     m.user(),
		Message:  req.Message,
	}
	m.log.WithFields(logrus.Fields{"id": r.ID, "tags": r.Tags}).Debug("creating record")

	rev, err := m.db.Put(ctx, r.ID, r)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", r.ID, err)
	}
	r.Rev = rev
	return r, nil
}

// Edit opens the record in the editor and saves the result. It reports
// whether anything was written; an untouched buffer writes nothing. A
// buffer that cannot be parsed leaves the stored record unchanged.
func (m *Manager) Edit(ctx context.Context, id string) (*Record, bool, error) {
	if m.editor == nil {
		return nil, false, editor.ErrNoEditor
	}
	r, err := m.Get(ctx, id)
	if err != nil {
		return nil, false, err
	}
	buf, err := Serialize(r)
	if err != nil {
		return nil, false, err
	}
	edited, err := m.editor.Edit(ctx, r.ID, buf)
	if err != nil {
		return nil, false, err
	}
	if edited == buf {
		m.log.WithField("id", id).Info("no changes, record not saved")
		return r, false, nil
	}

	updated, err := Parse(r, edited)
	if err != nil {
		return nil, false, err
	}
	rev, err := m.db.Put(ctx, updated.ID, updated)
	if err != nil {
		if couch.IsConflict(err) {
			return nil, false, fmt.Errorf("%w: %s", ErrRecordConflict, id)
		}
		return nil, false, fmt.Errorf("save %s: %w", id, err)
	}
	updated.Rev = rev
	m.log.WithFields(logrus.Fields{"id": id, "rev": rev}).Info("record saved")
	return updated, true, nil
}

// Delete removes a record.
func (m *Manager) Delete(ctx context.Context, id string) error {
	r, err := m.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := m.db.Delete(ctx, r.ID, r.Rev); err != nil {
		if couch.IsConflict(err) {
			return fmt.Errorf("%w: %s", ErrRecordConflict, id)
		}
		return fmt.Errorf("delete %s: %w", id, err)
	}
	m.log.WithField("id", id).Info("record deleted")
	return nil
}
