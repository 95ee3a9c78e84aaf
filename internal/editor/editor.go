// Package editor hands text to an interactive editor and returns the result.
package editor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/couchkb/couchkb/internal/slugs"
)

// ErrNoEditor is returned when no editor command is configured.
var ErrNoEditor = errors.New("no editor configured")

// Editor lets a user change text. The call blocks until the user is done.
type Editor interface {
	Edit(ctx context.Context, name, text string) (string, error)
}

// Func adapts a plain function to Editor.
type Func func(ctx context.Context, name, text string) (string, error)

// Edit calls f.
func (f Func) Edit(ctx context.Context, name, text string) (string, error) {
	return f(ctx, name, text)
}

// External runs an editor program on a temporary file.
type External struct {
	// Command is the editor, e.g. "vim" or "code --wait".
	Command string
	// Dir holds the temporary file; empty means os.TempDir.
	Dir    string
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	Logger logrus.FieldLogger
}

// NewExternal returns an editor wired to the process's terminal.
func NewExternal(command string, logger logrus.FieldLogger) *External {
	return &External{
		Command: command,
		Stdin:   os.Stdin,
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
		Logger:  logger,
	}
}

// Edit writes text to a temporary file named after name, waits for the
// editor to exit and returns the file's new contents. The file is removed
// afterwards in every case.
func (e *External) Edit(ctx context.Context, name, text string) (string, error) {
	command := strings.TrimSpace(e.Command)
	if command == "" {
		return "", ErrNoEditor
	}

	pattern := "kb-*.md"
	if s := slugs.Component(name); s != "" {
		pattern = s + "-*.md"
	}
	f, err := os.CreateTemp(e.Dir, pattern)
	if err != nil {
		return "", fmt.Errorf("create edit file: %w", err)
	}
	path := f.Name()
	defer os.Remove(path)

	if _, err := f.WriteString(text); err != nil {
		f.Close()
		return "", fmt.Errorf("write edit file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close edit file: %w", err)
	}

	cmd := Command(ctx, command, path)
	cmd.Stdin = e.Stdin
	cmd.Stdout = e.Stdout
	cmd.Stderr = e.Stderr

	if e.Logger != nil {
		e.Logger.WithFields(logrus.Fields{"editor": command, "file": path}).Debug("launching editor")
	}
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("editor %q: %w", command, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read edit file: %w", err)
	}
	return string(data), nil
}

// Command builds the process for editing path. Editors given with
// arguments ("code --wait") run through sh so the arguments split the way
// the user wrote them.
func Command(ctx context.Context, editor, path string) *exec.Cmd {
	if strings.ContainsAny(editor, " \t") {
		return exec.CommandContext(ctx, "sh", "-c", editor+" "+Quote(path))
	}
	return exec.CommandContext(ctx, editor, path)
}

// Quote wraps s in single quotes, escaping any internal single quotes.
func Quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
