package kb

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func sampleRecord() *Record {
	return &Record{
		ID:       "kb:1a2b3c4d5e6f",
		Rev:      "3-abc",
		Context:  "/home/alice/src",
		Created:  "2024-05-01T09:30:00.000000+00:00",
		Hostname: "box.example.com",
		Tags:     []string{"go", "couchdb"},
		User:     "alice",
		Message:  "How to compact\n---\nnot a delimiter\n",
	}
}

func TestSerialize(t *testing.T) {
	buf, err := Serialize(sampleRecord())
	if err != nil {
		t.Fatalf("Serialize() error = %v", err)
	}
	if !strings.HasPrefix(buf, "---\n_id: ") {
		t.Errorf("buffer should open with the delimiter and _id, got:\n%s", buf)
	}
	if !strings.HasSuffix(buf, "\n---\nHow to compact\n---\nnot a delimiter\n") {
		t.Errorf("message should follow the closing delimiter verbatim, got:\n%s", buf)
	}
	for _, unwanted := range []string{"_rev", "message:", "3-abc"} {
		if strings.Contains(buf, unwanted) {
			t.Errorf("buffer should not contain %q:\n%s", unwanted, buf)
		}
	}
}

func TestParseRoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		modify func(r *Record)
	}{
		{"plain", func(*Record) {}},
		{"delimiter inside a field", func(r *Record) { r.Context = "line one\n---\nline two" }},
		{"delimiter inside an extra field", func(r *Record) {
			r.Extra = map[string]interface{}{"notes": "a\n  ---  \nb"}
		}},
		{"nil tags", func(r *Record) { r.Tags = nil }},
		{"empty tags", func(r *Record) { r.Tags = []string{} }},
		{"empty fields", func(r *Record) { r.Created, r.Hostname, r.User = "", "", "" }},
		{"extra fields", func(r *Record) {
			r.Extra = map[string]interface{}{
				"title":    "kept",
				"priority": float64(2),
				"links":    []interface{}{"a", "b"},
				"meta":     map[string]interface{}{"source": "import"},
			}
		}},
		{"numeric looking strings", func(r *Record) { r.Context, r.User = "123", "yes" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orig := sampleRecord()
			tt.modify(orig)
			buf, err := Serialize(orig)
			if err != nil {
				t.Fatalf("Serialize() error = %v", err)
			}
			got, err := Parse(orig, buf)
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if d := cmp.Diff(orig, got); d != "" {
				t.Fatalf("round trip mismatch (-want +got):\n%s\nbuffer:\n%s", d, buf)
			}
			again, err := Serialize(got)
			if err != nil {
				t.Fatalf("Serialize() error = %v", err)
			}
			if again != buf {
				t.Fatalf("buffer changed on second pass:\n%s\n---- vs ----\n%s", buf, again)
			}
		})
	}
}

func TestSerializeQuotesMultilineStrings(t *testing.T) {
	r := sampleRecord()
	r.Context = "line one\n---\nline two"
	buf, err := Serialize(r)
	if err != nil {
		t.Fatalf("Serialize() error = %v", err)
	}
	if !strings.Contains(buf, `context: "line one\n---\nline two"`) {
		t.Fatalf("multi-line context not double quoted:\n%s", buf)
	}
}

func TestParseExtraFields(t *testing.T) {
	orig := sampleRecord()
	orig.Extra = map[string]interface{}{"title": "old title", "kept": "untouched"}

	got, err := Parse(orig, "---\ntitle: new title\nproject: raven\ncount: 3\n---\nbody")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	want := map[string]interface{}{
		"title":   "new title",
		"kept":    "untouched",
		"project": "raven",
		"count":   float64(3),
	}
	if d := cmp.Diff(want, got.Extra); d != "" {
		t.Fatalf("extra mismatch (-want +got):\n%s", d)
	}
	if _, ok := orig.Extra["project"]; ok {
		t.Fatal("original record was modified")
	}
}

func TestParsePartialMetadata(t *testing.T) {
	orig := sampleRecord()
	buf := "---\ntags: [ops]\n---\nnew body"

	got, err := Parse(orig, buf)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	want := orig.clone()
	want.Tags = []string{"ops"}
	want.Message = "new body"
	if d := cmp.Diff(want, got); d != "" {
		t.Fatalf("mismatch (-want +got):\n%s", d)
	}
	if d := cmp.Diff([]string{"go", "couchdb"}, orig.Tags); d != "" {
		t.Fatalf("original record was modified:\n%s", d)
	}
}

func TestParseEmptyMetadata(t *testing.T) {
	orig := sampleRecord()
	got, err := Parse(orig, "---\n---\nonly the message")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if got.Message != "only the message" || got.Context != orig.Context {
		t.Fatalf("unexpected record %+v", got)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		buf  string
		want error
	}{
		{"no delimiters", "just text\n", ErrMalformedEditBuffer},
		{"one delimiter", "---\ncontext: x\n", ErrMalformedEditBuffer},
		{"empty", "", ErrMalformedEditBuffer},
		{"bad yaml", "---\ntags: [a\n---\nbody", ErrInvalidMetadataSyntax},
		{"not a mapping", "---\n- a\n- b\n---\nbody", ErrInvalidMetadataSyntax},
		{"wrong type", "---\ntags:\n  a: 1\n---\nbody", ErrInvalidMetadataSyntax},
		{"id changed", "---\n_id: kb:other\n---\nbody", ErrInvalidMetadataSyntax},
		{"rev set", "---\n_rev: 9-zzz\n---\nbody", ErrInvalidMetadataSyntax},
		{"message in metadata", "---\nmessage: hi\n---\nbody", ErrInvalidMetadataSyntax},
		{"context not a string", "---\ncontext: [a, b]\n---\nbody", ErrInvalidMetadataSyntax},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(sampleRecord(), tt.buf)
			if !errors.Is(err, tt.want) {
				t.Fatalf("Parse() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestParseIgnoresLeadingText(t *testing.T) {
	got, err := Parse(sampleRecord(), "preamble\n  ---  \ncontext: /tmp\n---\nbody")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if got.Context != "/tmp" || got.Message != "body" {
		t.Fatalf("unexpected record %+v", got)
	}
}
