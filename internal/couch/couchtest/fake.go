// Package couchtest provides an in-memory CouchDB for tests.
//
// The fake understands documents with revisions, design documents, views
// whose map functions are supplied as Go funcs, the _count reduce and
// database security objects. Every operation is counted so tests can
// assert that a command never reached the server.
package couchtest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/couchkb/couchkb/internal/couch"
)

// MapFunc is the Go rendition of a view map function.
type MapFunc func(doc map[string]interface{}, emit func(key, value interface{}))

// Server is an in-memory CouchDB server.
type Server struct {
	mu    sync.Mutex
	dbs   map[string]*DB
	views map[string]MapFunc
	seq   int

	dials   int
	creds   []couch.Credentials
	dialErr error
}

// NewServer returns an empty server.
func NewServer() *Server {
	return &Server{
		dbs:   make(map[string]*DB),
		views: make(map[string]MapFunc),
	}
}

// Dial satisfies couch.DialFunc.
func (s *Server) Dial(_ context.Context, creds couch.Credentials) (couch.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dials++
	s.creds = append(s.creds, creds)
	if s.dialErr != nil {
		return nil, s.dialErr
	}
	return &client{s: s}, nil
}

// FailDial makes every later Dial return err.
func (s *Server) FailDial(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dialErr = err
}

// Dials reports how many times Dial was called.
func (s *Server) Dials() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dials
}

// LastCredentials returns the credentials of the most recent Dial.
func (s *Server) LastCredentials() couch.Credentials {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.creds) == 0 {
		return couch.Credentials{}
	}
	return s.creds[len(s.creds)-1]
}

// AddDB creates a database, returning the existing one if present.
func (s *Server) AddDB(name string) *DB {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addDBLocked(name)
}

func (s *Server) addDBLocked(name string) *DB {
	if db, ok := s.dbs[name]; ok {
		return db
	}
	db := &DB{
		s:     s,
		name:  name,
		docs:  make(map[string]*storedDoc),
		calls: make(map[string]int),
		fail:  make(map[string]error),
	}
	s.dbs[name] = db
	return db
}

// Database returns the named database or nil.
func (s *Server) Database(name string) *DB {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dbs[name]
}

// DefineView registers the map function used when ddoc/view is queried.
// The design document itself must still exist in the database.
func (s *Server) DefineView(ddoc, view string, fn MapFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.views[strings.TrimPrefix(ddoc, couch.DesignPrefix)+"/"+view] = fn
}

func (s *Server) nextRev(gen int) string {
	s.seq++
	return fmt.Sprintf("%d-%08x", gen, s.seq)
}

type storedDoc struct {
	rev  string
	gen  int
	body map[string]interface{}
}

// DB is one in-memory database.
type DB struct {
	s        *Server
	name     string
	docs     map[string]*storedDoc
	security couch.Security
	compacts int
	calls    map[string]int
	fail     map[string]error
}

// SetSecurity replaces the security object.
func (d *DB) SetSecurity(sec couch.Security) {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()
	d.security = sec
}

// FailOn makes the named operation ("Get", "Put", "Query", ...) return err.
func (d *DB) FailOn(op string, err error) {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()
	d.fail[op] = err
}

// Calls reports how often op was invoked.
func (d *DB) Calls(op string) int {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()
	return d.calls[op]
}

// Compactions reports how many compactions were requested.
func (d *DB) Compactions() int {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()
	return d.compacts
}

// Seed stores doc under id without revision checks and returns its rev.
func (d *DB) Seed(id string, doc interface{}) string {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()
	body, err := toMap(doc)
	if err != nil {
		panic(fmt.Sprintf("couchtest: seed %s: %v", id, err))
	}
	return d.storeLocked(id, body)
}

// Doc returns a copy of the stored body, or nil when id is absent.
func (d *DB) Doc(id string) map[string]interface{} {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()
	sd, ok := d.docs[id]
	if !ok {
		return nil
	}
	out, _ := toMap(sd.body)
	return out
}

// Len reports the number of stored documents, design documents included.
func (d *DB) Len() int {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()
	return len(d.docs)
}

func (d *DB) storeLocked(id string, body map[string]interface{}) string {
	gen := 1
	if prev, ok := d.docs[id]; ok {
		gen = prev.gen + 1
	}
	rev := d.s.nextRev(gen)
	body["_id"] = id
	body["_rev"] = rev
	d.docs[id] = &storedDoc{rev: rev, gen: gen, body: body}
	return rev
}

func (d *DB) sortedIDs() []string {
	ids := make([]string, 0, len(d.docs))
	for id := range d.docs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func toMap(v interface{}) (map[string]interface{}, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	if m == nil {
		m = make(map[string]interface{})
	}
	return m, nil
}

func mustJSON(v interface{}) json.RawMessage {
	raw, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("couchtest: marshal: %v", err))
	}
	return raw
}

func notFound(reason string) error {
	return &couch.StatusError{Status: http.StatusNotFound, Reason: reason}
}

func conflict() error {
	return &couch.StatusError{Status: http.StatusConflict, Reason: "Document update conflict."}
}

type client struct {
	s *Server
}

var _ couch.Client = (*client)(nil)

func (c *client) AllDBs(context.Context) ([]string, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	names := make([]string, 0, len(c.s.dbs))
	for name := range c.s.dbs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (c *client) DBExists(_ context.Context, name string) (bool, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	_, ok := c.s.dbs[name]
	return ok, nil
}

func (c *client) CreateDB(_ context.Context, name string) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	if _, ok := c.s.dbs[name]; ok {
		return &couch.StatusError{Status: http.StatusPreconditionFailed, Reason: "The database could not be created, the file already exists."}
	}
	c.s.addDBLocked(name)
	return nil
}

func (c *client) DB(name string) couch.Database {
	return &handle{s: c.s, name: name}
}

func (c *client) Close() error { return nil }

// handle resolves its database on every call, like a real HTTP client.
type handle struct {
	s    *Server
	name string
}

var _ couch.Database = (*handle)(nil)

// enter locks the server and returns the database, counting the call.
// The caller must unlock s.mu.
func (h *handle) enter(op string) (*DB, error) {
	h.s.mu.Lock()
	db, ok := h.s.dbs[h.name]
	if !ok {
		return nil, notFound("Database does not exist.")
	}
	db.calls[op]++
	if err := db.fail[op]; err != nil {
		return nil, err
	}
	return db, nil
}

func (h *handle) Name() string { return h.name }

func (h *handle) Get(_ context.Context, id string, dest interface{}) error {
	defer h.s.mu.Unlock()
	db, err := h.enter("Get")
	if err != nil {
		return err
	}
	sd, ok := db.docs[id]
	if !ok {
		return notFound("missing")
	}
	return json.Unmarshal(mustJSON(sd.body), dest)
}

func (h *handle) Put(_ context.Context, id string, doc interface{}) (string, error) {
	defer h.s.mu.Unlock()
	db, err := h.enter("Put")
	if err != nil {
		return "", err
	}
	body, err := toMap(doc)
	if err != nil {
		return "", err
	}
	rev, _ := body["_rev"].(string)
	if prev, ok := db.docs[id]; ok {
		if rev != prev.rev {
			return "", conflict()
		}
	} else if rev != "" {
		return "", conflict()
	}
	return db.storeLocked(id, body), nil
}

func (h *handle) Delete(_ context.Context, id, rev string) error {
	defer h.s.mu.Unlock()
	db, err := h.enter("Delete")
	if err != nil {
		return err
	}
	sd, ok := db.docs[id]
	if !ok {
		return notFound("missing")
	}
	if sd.rev != rev {
		return conflict()
	}
	delete(db.docs, id)
	return nil
}

func (h *handle) AllDocs(context.Context) ([]couch.Row, error) {
	defer h.s.mu.Unlock()
	db, err := h.enter("AllDocs")
	if err != nil {
		return nil, err
	}
	return db.rows(func(string) bool { return true }), nil
}

func (h *handle) DesignDocs(context.Context) ([]couch.Row, error) {
	defer h.s.mu.Unlock()
	db, err := h.enter("DesignDocs")
	if err != nil {
		return nil, err
	}
	return db.rows(couch.IsDesignID), nil
}

func (d *DB) rows(keep func(id string) bool) []couch.Row {
	var rows []couch.Row
	for _, id := range d.sortedIDs() {
		if !keep(id) {
			continue
		}
		sd := d.docs[id]
		rows = append(rows, couch.Row{
			ID:    id,
			Key:   mustJSON(id),
			Value: mustJSON(map[string]string{"rev": sd.rev}),
			Doc:   mustJSON(sd.body),
		})
	}
	return rows
}

func (h *handle) Query(_ context.Context, ddoc, view string, params map[string]interface{}) ([]couch.Row, error) {
	defer h.s.mu.Unlock()
	db, err := h.enter("Query")
	if err != nil {
		return nil, err
	}
	ddoc = strings.TrimPrefix(ddoc, couch.DesignPrefix)
	design, ok := db.docs[couch.DesignPrefix+ddoc]
	if !ok {
		return nil, notFound("missing")
	}
	views, _ := design.body["views"].(map[string]interface{})
	def, ok := views[view].(map[string]interface{})
	if !ok {
		return nil, notFound("missing_named_view")
	}
	mapFn, ok := h.s.views[ddoc+"/"+view]
	if !ok {
		return nil, fmt.Errorf("couchtest: no map function registered for %s/%s", ddoc, view)
	}

	type emitted struct {
		id         string
		key, value json.RawMessage
		sortKey    interface{}
	}
	var out []emitted
	for _, id := range db.sortedIDs() {
		if couch.IsDesignID(id) {
			continue
		}
		body, _ := toMap(db.docs[id].body)
		mapFn(body, func(key, value interface{}) {
			out = append(out, emitted{id: id, key: mustJSON(key), value: mustJSON(value), sortKey: key})
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if c := collate(out[i].sortKey, out[j].sortKey); c != 0 {
			return c < 0
		}
		return out[i].id < out[j].id
	})

	reduce, _ := def["reduce"].(string)
	doReduce := reduce != ""
	if v, ok := params["reduce"].(bool); ok {
		doReduce = doReduce && v
	}
	includeDocs, _ := params["include_docs"].(bool)

	if !doReduce {
		rows := make([]couch.Row, 0, len(out))
		for _, e := range out {
			row := couch.Row{ID: e.id, Key: e.key, Value: e.value}
			if includeDocs {
				row.Doc = mustJSON(db.docs[e.id].body)
			}
			rows = append(rows, row)
		}
		return rows, nil
	}
	if reduce != "_count" {
		return nil, fmt.Errorf("couchtest: unsupported reduce %q", reduce)
	}

	group, _ := params["group"].(bool)
	if !group {
		return []couch.Row{{Key: json.RawMessage("null"), Value: mustJSON(len(out))}}, nil
	}
	var rows []couch.Row
	for _, e := range out {
		if n := len(rows); n > 0 && bytes.Equal(rows[n-1].Key, e.key) {
			var count int
			_ = json.Unmarshal(rows[n-1].Value, &count)
			rows[n-1].Value = mustJSON(count + 1)
			continue
		}
		rows = append(rows, couch.Row{Key: e.key, Value: mustJSON(1)})
	}
	return rows, nil
}

// collate orders keys the way CouchDB does for the types tests use:
// null, then numbers, then strings, then everything else by JSON text.
func collate(a, b interface{}) int {
	ra, rb := rank(a), rank(b)
	if ra != rb {
		return ra - rb
	}
	switch av := a.(type) {
	case string:
		return strings.Compare(av, b.(string))
	case float64, int:
		fa, fb := toFloat(a), toFloat(b)
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		}
		return 0
	case nil:
		return 0
	}
	return bytes.Compare(mustJSON(a), mustJSON(b))
}

func rank(v interface{}) int {
	switch v.(type) {
	case nil:
		return 0
	case float64, int:
		return 1
	case string:
		return 2
	}
	return 3
}

func toFloat(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	}
	return 0
}

func (h *handle) DocCount(context.Context) (int64, error) {
	defer h.s.mu.Unlock()
	db, err := h.enter("DocCount")
	if err != nil {
		return 0, err
	}
	return int64(len(db.docs)), nil
}

func (h *handle) Compact(context.Context) error {
	defer h.s.mu.Unlock()
	db, err := h.enter("Compact")
	if err != nil {
		return err
	}
	db.compacts++
	return nil
}

func (h *handle) Security(context.Context) (*couch.Security, error) {
	defer h.s.mu.Unlock()
	db, err := h.enter("Security")
	if err != nil {
		return nil, err
	}
	sec := db.security
	return &sec, nil
}
