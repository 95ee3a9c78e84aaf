package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/couchkb/couchkb/internal/cli/output"
)

func TestVersionCmdText(t *testing.T) {
	var buf bytes.Buffer
	cmd := NewVersionCmd("kb", &output.Printer{Out: &buf})
	cmd.SetArgs([]string{})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.HasPrefix(buf.String(), "kb ") || !strings.Contains(buf.String(), "platform: ") {
		t.Fatalf("unexpected output %q", buf.String())
	}
}

func TestVersionCmdJSON(t *testing.T) {
	var buf bytes.Buffer
	cmd := NewVersionCmd("ccouch", &output.Printer{Out: &buf, JSON: true})
	cmd.SetArgs([]string{})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	var resp struct {
		OK   bool `json:"ok"`
		Data struct {
			Version string `json:"version"`
		} `json:"data"`
	}
	if err := json.Unmarshal(buf.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if !resp.OK || resp.Data.Version == "" {
		t.Fatalf("unexpected response %+v", resp)
	}
}
