package output

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestPrinterJSON(t *testing.T) {
	var buf bytes.Buffer
	p := &Printer{Out: &buf, JSON: true}

	p.Printf("ignored %d\n", 1)
	if err := p.Success([]string{"a"}, &Meta{Count: 1}); err != nil {
		t.Fatalf("Success() error = %v", err)
	}

	var resp Response
	if err := json.Unmarshal(buf.Bytes(), &resp); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, buf.String())
	}
	if !resp.OK || resp.Meta.Count != 1 || resp.Error != nil {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestPrinterText(t *testing.T) {
	var buf bytes.Buffer
	p := &Printer{Out: &buf}

	p.Printf("%s=%d\n", "a", 1)
	p.Println("done")
	_ = p.Success("data", nil)
	_ = p.Fail(errors.New("boom"))

	if got := buf.String(); got != "a=1\ndone\n" {
		t.Fatalf("text output = %q", got)
	}
}

func TestPrinterFail(t *testing.T) {
	var buf bytes.Buffer
	p := &Printer{Out: &buf, JSON: true}
	if err := p.Fail(MissingArgument("--database", "pass -d NAME")); err != nil {
		t.Fatalf("Fail() error = %v", err)
	}

	var resp Response
	if err := json.Unmarshal(buf.Bytes(), &resp); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	want := &ErrorInfo{
		Code:       ErrCodeMissingArgument,
		Message:    "missing required argument: --database",
		Suggestion: "pass -d NAME",
	}
	if resp.OK {
		t.Fatal("error response must not be ok")
	}
	if d := cmp.Diff(want, resp.Error); d != "" {
		t.Fatalf("error mismatch (-want +got):\n%s", d)
	}
}

func TestClassify(t *testing.T) {
	sentinel := errors.New("record not found")
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{"coded", WithCode(sentinel, ErrCodeRecordNotFound, ""), ErrCodeRecordNotFound},
		{"wrapped coded", fmt.Errorf("edit: %w", WithCode(sentinel, ErrCodeRecordNotFound, "")), ErrCodeRecordNotFound},
		{"bare missing argument", fmt.Errorf("%w: id", ErrMissingArgument), ErrCodeMissingArgument},
		{"plain", errors.New("boom"), ErrCodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if code, _ := Classify(tt.err); code != tt.wantCode {
				t.Fatalf("Classify() = %q, want %q", code, tt.wantCode)
			}
		})
	}

	if !errors.Is(WithCode(sentinel, "X", ""), sentinel) {
		t.Fatal("WithCode must keep the error chain")
	}
	if WithCode(nil, "X", "") != nil {
		t.Fatal("WithCode(nil) must be nil")
	}
}

func TestExitCode(t *testing.T) {
	if ExitCode(nil) != 0 {
		t.Fatal("nil error exits 0")
	}
	if ExitCode(MissingArgument("id", "")) != 1 || ExitCode(errors.New("x")) != 1 {
		t.Fatal("failures exit 1")
	}
}

func TestConfirm(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{"n\n", false},
		{"\n", false},
		{"", false},
		{"yes", true},
	}
	for _, tt := range tests {
		t.Run(strings.TrimSpace(tt.in), func(t *testing.T) {
			var out bytes.Buffer
			if got := Confirm(strings.NewReader(tt.in), &out, "Delete kb:1?"); got != tt.want {
				t.Fatalf("Confirm(%q) = %v, want %v", tt.in, got, tt.want)
			}
			if !strings.Contains(out.String(), "Delete kb:1?") {
				t.Fatalf("prompt not written: %q", out.String())
			}
		})
	}
}

func TestIsInteractiveNonFile(t *testing.T) {
	if IsInteractive(strings.NewReader(""), &bytes.Buffer{}) {
		t.Fatal("buffers are never interactive")
	}
}
