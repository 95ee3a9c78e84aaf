package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSaveToRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kb", "kb.toml")

	cfg := &Config{
		CouchURL: "https://couch.example.com",
		Database: "notes",
		Username: "alice",
		Password: "s3cret",
		Editor:   "nvim",
	}
	if err := SaveTo(path, cfg); err != nil {
		t.Fatalf("SaveTo returned error: %v", err)
	}

	loaded, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom returned error: %v", err)
	}
	if loaded.CouchURL != cfg.CouchURL || loaded.Database != cfg.Database {
		t.Fatalf("unexpected server settings: %+v", loaded)
	}
	if loaded.Username != "alice" || loaded.Password != "s3cret" || loaded.Editor != "nvim" {
		t.Fatalf("unexpected user settings: %+v", loaded)
	}
	if loaded.EntityBase != DefaultEntityBase || loaded.IDPrefix != DefaultIDPrefix {
		t.Fatalf("expected defaults to be persisted, got %+v", loaded)
	}
}

func TestSaveToRequiresPath(t *testing.T) {
	if err := SaveTo(" ", Defaults()); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestCreateDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kb.toml")

	wrote, err := CreateDefault(path)
	if err != nil {
		t.Fatalf("CreateDefault returned error: %v", err)
	}
	if !wrote {
		t.Fatal("expected file to be written")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `database = "knowledge_base"`) {
		t.Fatalf("default config missing database key:\n%s", data)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("default config does not parse: %v", err)
	}
	if cfg.CouchURL != DefaultCouchURL {
		t.Errorf("expected default couch_url, got %q", cfg.CouchURL)
	}

	wrote, err = CreateDefault(path)
	if err != nil {
		t.Fatal(err)
	}
	if wrote {
		t.Fatal("existing config must not be overwritten")
	}
}
