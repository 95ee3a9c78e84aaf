package couch

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	kivik "github.com/go-kivik/kivik/v4"
	"github.com/go-kivik/kivik/v4/couchdb" // CouchDB driver
)

// Dial connects to the server described by creds through kivik's couch
// driver. No request is made until the first operation.
func Dial(_ context.Context, creds Credentials) (Client, error) {
	if strings.TrimSpace(creds.URL) == "" {
		return nil, fmt.Errorf("couchdb url is required")
	}
	var opts []kivik.Option
	if creds.Username != "" {
		opts = append(opts, couchdb.BasicAuth(creds.Username, creds.Password))
	}
	c, err := kivik.New("couch", creds.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", creds.URL, err)
	}
	return &kivikClient{client: c}, nil
}

type kivikClient struct {
	client *kivik.Client
}

var _ Client = (*kivikClient)(nil)

func (c *kivikClient) AllDBs(ctx context.Context) ([]string, error) {
	return c.client.AllDBs(ctx)
}

func (c *kivikClient) DBExists(ctx context.Context, name string) (bool, error) {
	return c.client.DBExists(ctx, name)
}

func (c *kivikClient) CreateDB(ctx context.Context, name string) error {
	return c.client.CreateDB(ctx, name)
}

func (c *kivikClient) DB(name string) Database {
	return &kivikDB{name: name, db: c.client.DB(name)}
}

func (c *kivikClient) Close() error {
	return c.client.Close()
}

type kivikDB struct {
	name string
	db   *kivik.DB
}

var _ Database = (*kivikDB)(nil)

func (d *kivikDB) Name() string { return d.name }

func (d *kivikDB) Get(ctx context.Context, id string, dest interface{}) error {
	return d.db.Get(ctx, id).ScanDoc(dest)
}

func (d *kivikDB) Put(ctx context.Context, id string, doc interface{}) (string, error) {
	return d.db.Put(ctx, id, doc)
}

func (d *kivikDB) Delete(ctx context.Context, id, rev string) error {
	_, err := d.db.Delete(ctx, id, rev)
	return err
}

func (d *kivikDB) AllDocs(ctx context.Context) ([]Row, error) {
	return collect(d.db.AllDocs(ctx, kivik.Param("include_docs", true)), true)
}

func (d *kivikDB) DesignDocs(ctx context.Context) ([]Row, error) {
	return collect(d.db.DesignDocs(ctx, kivik.Param("include_docs", true)), true)
}

func (d *kivikDB) Query(ctx context.Context, ddoc, view string, params map[string]interface{}) ([]Row, error) {
	withDocs, _ := params["include_docs"].(bool)
	return collect(d.db.Query(ctx, ddoc, view, kivik.Params(params)), withDocs)
}

func (d *kivikDB) DocCount(ctx context.Context) (int64, error) {
	stats, err := d.db.Stats(ctx)
	if err != nil {
		return 0, err
	}
	return stats.DocCount, nil
}

func (d *kivikDB) Compact(ctx context.Context) error {
	return d.db.Compact(ctx)
}

func (d *kivikDB) Security(ctx context.Context) (*Security, error) {
	sec, err := d.db.Security(ctx)
	if err != nil {
		return nil, err
	}
	return &Security{
		Admins:  Members{Names: sec.Admins.Names, Roles: sec.Admins.Roles},
		Members: Members{Names: sec.Members.Names, Roles: sec.Members.Roles},
	}, nil
}

func collect(rs *kivik.ResultSet, withDocs bool) ([]Row, error) {
	defer rs.Close()

	var rows []Row
	for rs.Next() {
		var row Row
		id, err := rs.ID()
		if err != nil {
			return nil, err
		}
		row.ID = id
		if err := rs.ScanKey(&row.Key); err != nil {
			return nil, err
		}
		if err := rs.ScanValue(&row.Value); err != nil {
			return nil, err
		}
		if withDocs {
			if err := rs.ScanDoc(&row.Doc); err != nil {
				return nil, err
			}
		}
		rows = append(rows, row)
	}
	if err := rs.Err(); err != nil {
		return nil, err
	}
	return rows, nil
}

// DecodeDoc unmarshals a row's document body.
func DecodeDoc(row Row, dest interface{}) error {
	if len(row.Doc) == 0 {
		return fmt.Errorf("row %q has no document", row.ID)
	}
	return json.Unmarshal(row.Doc, dest)
}
