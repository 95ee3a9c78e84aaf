package ccouchcmd

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/couchkb/couchkb/internal/admin"
	"github.com/couchkb/couchkb/internal/cli/output"
	"github.com/couchkb/couchkb/internal/couch"
	"github.com/couchkb/couchkb/internal/couch/couchtest"
	"github.com/couchkb/couchkb/internal/logging"
	"github.com/couchkb/couchkb/internal/secrets"
)

var testParams = secrets.KDFParams{N: 1 << 10, R: 8, P: 1}

const testPass = "correct horse"

var adminCreds = secrets.Credentials{Username: "admin", Password: "pw", URL: "http://couch.test:5984"}

type harness struct {
	t           *testing.T
	srv         *couchtest.Server
	secretsPath string
	passphrase  string
	prompts     int
	stdout      bytes.Buffer
	stderr      bytes.Buffer
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	path := filepath.Join(t.TempDir(), "secrets.enc")
	store, err := secrets.OpenWithParams(path, testPass, testParams)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Put(admin.DefaultAdminKey, adminCreds); err != nil {
		t.Fatal(err)
	}
	if err := store.Save(); err != nil {
		t.Fatal(err)
	}
	return &harness{t: t, srv: couchtest.NewServer(), secretsPath: path, passphrase: testPass}
}

func (h *harness) run(args ...string) int {
	h.t.Helper()
	h.stdout.Reset()
	h.stderr.Reset()
	deps := Deps{
		Dial: h.srv.Dial,
		Passphrase: func() (string, error) {
			h.prompts++
			return h.passphrase, nil
		},
		KDFParams: testParams,
		Stdout:    &h.stdout,
		Stderr:    &h.stderr,
		Logger:    logging.New(&h.stderr, logrus.WarnLevel),
	}
	return Execute(context.Background(), deps, append([]string{"--secrets", h.secretsPath}, args...))
}

func (h *harness) errorCode() string {
	h.t.Helper()
	var resp output.Response
	if err := json.Unmarshal(h.stdout.Bytes(), &resp); err != nil {
		h.t.Fatalf("output is not a JSON envelope: %v\n%s", err, h.stdout.String())
	}
	if resp.Error == nil {
		h.t.Fatalf("no error in envelope: %s", h.stdout.String())
	}
	return resp.Error.Code
}

func TestMissingArgumentsFailBeforeAnyLookup(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"designs without database", []string{"designs"}},
		{"compact without database", []string{"compact"}},
		{"security without database", []string{"security"}},
		{"adduser without username", []string{"adduser", "--password", "x"}},
		{"adduser without password", []string{"adduser", "--username", "dave"}},
		{"secret without url", []string{"secret", "-k", "other"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			if code := h.run(append(tt.args, "--json")...); code != 1 {
				t.Fatalf("exit %d, want 1", code)
			}
			if h.srv.Dials() != 0 {
				t.Fatal("server was contacted")
			}
			if h.prompts != 0 {
				t.Fatal("secret store was unlocked")
			}
			if got := h.errorCode(); got != output.ErrCodeMissingArgument {
				t.Fatalf("code = %q", got)
			}
		})
	}
}

func TestUnknownOperation(t *testing.T) {
	h := newHarness(t)
	if code := h.run("frobnicate", "--json"); code != 1 {
		t.Fatalf("exit %d, want 1", code)
	}
	if got := h.errorCode(); got != output.ErrCodeInvalidInput {
		t.Fatalf("code = %q", got)
	}
	if h.srv.Dials() != 0 {
		t.Fatal("server was contacted")
	}
}

func TestListIsDefault(t *testing.T) {
	h := newHarness(t)
	kb := h.srv.AddDB("knowledge_base")
	kb.Seed("a", map[string]interface{}{})
	kb.Seed("b", map[string]interface{}{})
	h.srv.AddDB("_users")

	for _, args := range [][]string{nil, {"list"}, {"LIST"}} {
		if code := h.run(args...); code != 0 {
			t.Fatalf("ccouch %v exited %d: %s", args, code, h.stderr.String())
		}
		out := h.stdout.String()
		for _, want := range []string{"Documents", "Database", "knowledge_base", "_users", "2"} {
			if !strings.Contains(out, want) {
				t.Errorf("ccouch %v output missing %q:\n%s", args, want, out)
			}
		}
	}

	got := h.srv.LastCredentials()
	want := couch.Credentials{URL: adminCreds.URL, Username: adminCreds.Username, Password: adminCreds.Password}
	if got != want {
		t.Fatalf("dialled with %+v, want %+v", got, want)
	}
}

func TestUsers(t *testing.T) {
	h := newHarness(t)
	users := h.srv.AddDB(admin.UsersDB)
	users.Seed("_design/_auth", map[string]interface{}{})
	users.Seed("org.couchdb.user:alice", map[string]interface{}{"name": "alice", "roles": []string{"r1", "r2"}})

	if code := h.run("users"); code != 0 {
		t.Fatalf("exit %d: %s", code, h.stderr.String())
	}
	out := h.stdout.String()
	for _, want := range []string{"org.couchdb.user:alice", "  username: alice\n", "  roles: r1,r2\n"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "_design") {
		t.Errorf("design document listed as a user:\n%s", out)
	}
}

func TestUsersWithDatabaseShowsSecurity(t *testing.T) {
	h := newHarness(t)
	h.srv.AddDB("kb").SetSecurity(couch.Security{Members: couch.Members{Names: []string{"bob"}}})

	if code := h.run("users", "-d", "kb", "--json"); code != 0 {
		t.Fatalf("exit %d: %s", code, h.stderr.String())
	}
	var resp struct {
		Data admin.DatabaseSecurity `json:"data"`
	}
	if err := json.Unmarshal(h.stdout.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if resp.Data.AdminParty || resp.Data.Database != "kb" {
		t.Fatalf("unexpected security %+v", resp.Data)
	}

	if code := h.run("security", "-d", "kb"); code != 0 {
		t.Fatalf("exit %d: %s", code, h.stderr.String())
	}
	if !strings.Contains(h.stdout.String(), "Admin party: false") || !strings.Contains(h.stdout.String(), "bob") {
		t.Fatalf("unexpected output:\n%s", h.stdout.String())
	}
}

func TestDesigns(t *testing.T) {
	h := newHarness(t)
	db := h.srv.AddDB("kb")
	db.Seed("_design/uniqueTags", map[string]interface{}{"language": "javascript"})

	if code := h.run("designs", "--database", "kb"); code != 0 {
		t.Fatalf("exit %d: %s", code, h.stderr.String())
	}
	if !strings.Contains(h.stdout.String(), "language\n  \"javascript\"\n") {
		t.Fatalf("unexpected output:\n%s", h.stdout.String())
	}
}

func TestCompact(t *testing.T) {
	h := newHarness(t)
	db := h.srv.AddDB("kb")

	if code := h.run("compact", "-d", "kb"); code != 0 {
		t.Fatalf("exit %d: %s", code, h.stderr.String())
	}
	if db.Compactions() != 1 {
		t.Fatalf("Compactions() = %d", db.Compactions())
	}
}

func TestAddUser(t *testing.T) {
	h := newHarness(t)
	users := h.srv.AddDB(admin.UsersDB)

	if code := h.run("adduser", "--username", "carol", "--password", "pw", "--roles", "reader, writer"); code != 0 {
		t.Fatalf("exit %d: %s", code, h.stderr.String())
	}
	doc := users.Doc("org.couchdb.user:carol")
	if doc == nil {
		t.Fatal("user not created")
	}
	if roles, _ := doc["roles"].([]interface{}); len(roles) != 2 {
		t.Fatalf("roles = %v", doc["roles"])
	}

	if code := h.run("adduser", "--username", "carol", "--password", "other", "--json"); code != 1 {
		t.Fatalf("second adduser exited %d, want 1", code)
	}
	if got := h.errorCode(); got != output.ErrCodeUserExists {
		t.Fatalf("code = %q", got)
	}
}

func TestSecret(t *testing.T) {
	h := newHarness(t)
	if code := h.run("secret", "-k", "couch.backup", "--url", "http://backup:5984", "--username", "u", "--password", "p"); code != 0 {
		t.Fatalf("exit %d: %s", code, h.stderr.String())
	}
	if h.srv.Dials() != 0 {
		t.Fatal("storing a secret must not contact the server")
	}

	store, err := secrets.Open(h.secretsPath, testPass)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	got, err := store.Credentials("couch.backup")
	if err != nil {
		t.Fatalf("Credentials() error = %v", err)
	}
	if got.URL != "http://backup:5984" || got.Username != "u" || got.Password != "p" {
		t.Fatalf("stored %+v", got)
	}
	if _, err := store.Credentials(admin.DefaultAdminKey); err != nil {
		t.Fatalf("existing secret lost: %v", err)
	}
}

func TestSecretErrors(t *testing.T) {
	t.Run("unknown key", func(t *testing.T) {
		h := newHarness(t)
		if code := h.run("list", "-k", "nope", "--json"); code != 1 {
			t.Fatalf("exit %d, want 1", code)
		}
		if got := h.errorCode(); got != output.ErrCodeSecretNotFound {
			t.Fatalf("code = %q", got)
		}
	})

	t.Run("wrong passphrase", func(t *testing.T) {
		h := newHarness(t)
		h.passphrase = "wrong"
		if code := h.run("list", "--json"); code != 1 {
			t.Fatalf("exit %d, want 1", code)
		}
		if got := h.errorCode(); got != output.ErrCodeWrongPassphrase {
			t.Fatalf("code = %q", got)
		}
		if h.srv.Dials() != 0 {
			t.Fatal("server was contacted")
		}
	})
}

func TestLoglevelCount(t *testing.T) {
	h := newHarness(t)
	h.srv.AddDB("kb")
	if code := h.run("-ll", "list"); code != 0 {
		t.Fatalf("exit %d: %s", code, h.stderr.String())
	}
	if !strings.Contains(h.stderr.String(), "level=debug") {
		t.Fatalf("expected debug logging, got:\n%s", h.stderr.String())
	}
}
