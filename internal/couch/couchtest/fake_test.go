package couchtest

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/couchkb/couchkb/internal/couch"
)

func open(t *testing.T, s *Server, name string) couch.Database {
	t.Helper()
	c, err := s.Dial(context.Background(), couch.Credentials{URL: "http://fake"})
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	return c.DB(name)
}

func TestPutGetDelete(t *testing.T) {
	s := NewServer()
	s.AddDB("kb")
	db := open(t, s, "kb")
	ctx := context.Background()

	rev1, err := db.Put(ctx, "a", map[string]interface{}{"message": "one"})
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	t.Run("stale rev conflicts", func(t *testing.T) {
		_, err := db.Put(ctx, "a", map[string]interface{}{"message": "two"})
		if !couch.IsConflict(err) {
			t.Fatalf("expected conflict, got %v", err)
		}
	})

	t.Run("current rev updates", func(t *testing.T) {
		rev2, err := db.Put(ctx, "a", map[string]interface{}{"_rev": rev1, "message": "two"})
		if err != nil {
			t.Fatalf("Put() error = %v", err)
		}
		if rev2 == rev1 {
			t.Fatal("revision did not change")
		}
		var doc struct {
			Rev     string `json:"_rev"`
			Message string `json:"message"`
		}
		if err := db.Get(ctx, "a", &doc); err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if doc.Rev != rev2 || doc.Message != "two" {
			t.Fatalf("unexpected doc %+v", doc)
		}
		if err := db.Delete(ctx, "a", rev1); !couch.IsConflict(err) {
			t.Fatalf("delete with stale rev: expected conflict, got %v", err)
		}
		if err := db.Delete(ctx, "a", rev2); err != nil {
			t.Fatalf("Delete() error = %v", err)
		}
	})

	t.Run("missing doc", func(t *testing.T) {
		var doc map[string]interface{}
		if err := db.Get(ctx, "a", &doc); !couch.IsNotFound(err) {
			t.Fatalf("expected not found, got %v", err)
		}
	})
}

func TestMissingDatabase(t *testing.T) {
	s := NewServer()
	db := open(t, s, "nope")
	if _, err := db.AllDocs(context.Background()); !couch.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCreateDB(t *testing.T) {
	s := NewServer()
	c, _ := s.Dial(context.Background(), couch.Credentials{})
	ctx := context.Background()

	if err := c.CreateDB(ctx, "kb"); err != nil {
		t.Fatalf("CreateDB() error = %v", err)
	}
	if err := c.CreateDB(ctx, "kb"); err == nil {
		t.Fatal("expected error creating an existing database")
	}
	ok, _ := c.DBExists(ctx, "kb")
	if !ok {
		t.Fatal("database should exist")
	}
	names, _ := c.AllDBs(ctx)
	if d := cmp.Diff([]string{"kb"}, names); d != "" {
		t.Fatalf("AllDBs() mismatch (-want +got):\n%s", d)
	}
}

func TestGroupedCountView(t *testing.T) {
	s := NewServer()
	kb := s.AddDB("kb")
	kb.Seed("_design/tags", map[string]interface{}{
		"views": map[string]interface{}{
			"tags": map[string]interface{}{"map": "js", "reduce": "_count"},
		},
	})
	kb.Seed("r1", map[string]interface{}{"tags": []string{"a", "b"}})
	kb.Seed("r2", map[string]interface{}{"tags": []string{"b"}})
	kb.Seed("r3", map[string]interface{}{"tags": []string{"b", "c"}})
	s.DefineView("tags", "tags", func(doc map[string]interface{}, emit func(key, value interface{})) {
		tags, _ := doc["tags"].([]interface{})
		for _, tag := range tags {
			emit(tag, nil)
		}
	})

	db := open(t, s, "kb")
	rows, err := db.Query(context.Background(), "_design/tags", "tags", map[string]interface{}{"group": true})
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}

	got := map[string]int{}
	var order []string
	for _, row := range rows {
		var key string
		var count int
		_ = json.Unmarshal(row.Key, &key)
		_ = json.Unmarshal(row.Value, &count)
		got[key] = count
		order = append(order, key)
	}
	if d := cmp.Diff(map[string]int{"a": 1, "b": 3, "c": 1}, got); d != "" {
		t.Errorf("counts mismatch (-want +got):\n%s", d)
	}
	if d := cmp.Diff([]string{"a", "b", "c"}, order); d != "" {
		t.Errorf("order mismatch (-want +got):\n%s", d)
	}

	t.Run("ungrouped total", func(t *testing.T) {
		rows, err := db.Query(context.Background(), "tags", "tags", nil)
		if err != nil {
			t.Fatalf("Query() error = %v", err)
		}
		if len(rows) != 1 || string(rows[0].Value) != "5" {
			t.Fatalf("unexpected rows %+v", rows)
		}
	})

	t.Run("missing design doc", func(t *testing.T) {
		_, err := db.Query(context.Background(), "other", "tags", nil)
		if !couch.IsNotFound(err) {
			t.Fatalf("expected not found, got %v", err)
		}
	})
}

func TestDesignDocsAndCounters(t *testing.T) {
	s := NewServer()
	kb := s.AddDB("kb")
	kb.Seed("_design/x", map[string]interface{}{"language": "javascript"})
	kb.Seed("doc", map[string]interface{}{})
	db := open(t, s, "kb")
	ctx := context.Background()

	rows, err := db.DesignDocs(ctx)
	if err != nil {
		t.Fatalf("DesignDocs() error = %v", err)
	}
	if len(rows) != 1 || rows[0].ID != "_design/x" {
		t.Fatalf("unexpected rows %+v", rows)
	}

	n, _ := db.DocCount(ctx)
	if n != 2 {
		t.Errorf("DocCount() = %d, want 2", n)
	}
	if err := db.Compact(ctx); err != nil {
		t.Fatalf("Compact() error = %v", err)
	}
	if kb.Compactions() != 1 || kb.Calls("Compact") != 1 {
		t.Errorf("compaction not recorded")
	}
	if s.Dials() != 1 {
		t.Errorf("Dials() = %d, want 1", s.Dials())
	}
}

func TestFailOn(t *testing.T) {
	s := NewServer()
	kb := s.AddDB("kb")
	boom := errors.New("boom")
	kb.FailOn("Security", boom)

	_, err := open(t, s, "kb").Security(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("expected injected error, got %v", err)
	}
}
