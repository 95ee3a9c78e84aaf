// Package kbcmd implements the kb command-line interface.
package kbcmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/couchkb/couchkb/internal/cli"
	"github.com/couchkb/couchkb/internal/cli/output"
	"github.com/couchkb/couchkb/internal/config"
	"github.com/couchkb/couchkb/internal/couch"
	"github.com/couchkb/couchkb/internal/editor"
	"github.com/couchkb/couchkb/internal/kb"
	"github.com/couchkb/couchkb/internal/logging"
)

// Deps are the outside-world hooks of the command tree. Zero fields fall
// back to the real implementations.
type Deps struct {
	Dial   couch.DialFunc
	Editor func(cfg *config.Config, log logrus.FieldLogger) editor.Editor
	Getwd  func() (string, error)

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// Logger is built once by main; its level follows --verbosity.
	Logger *logrus.Logger
}

func (d *Deps) fill() {
	if d.Dial == nil {
		d.Dial = couch.Dial
	}
	if d.Editor == nil {
		d.Editor = func(cfg *config.Config, log logrus.FieldLogger) editor.Editor {
			return editor.NewExternal(cfg.GetEditor(), log)
		}
	}
	if d.Getwd == nil {
		d.Getwd = os.Getwd
	}
	if d.Stdin == nil {
		d.Stdin = os.Stdin
	}
	if d.Stdout == nil {
		d.Stdout = os.Stdout
	}
	if d.Stderr == nil {
		d.Stderr = os.Stderr
	}
	if d.Logger == nil {
		d.Logger = logging.New(d.Stderr, logrus.InfoLevel)
	}
}

type app struct {
	deps Deps
	out  *output.Printer
	log  *logrus.Logger

	verbosity  string
	context    string
	configPath string

	cfg *config.Config
}

// Execute runs kb with args and returns the process exit status.
func Execute(ctx context.Context, deps Deps, args []string) int {
	deps.fill()
	a := &app{
		deps: deps,
		out:  &output.Printer{Out: deps.Stdout},
		log:  deps.Logger,
	}
	root := a.rootCmd()
	if args == nil {
		args = []string{}
	}
	root.SetArgs(args)
	root.SetIn(deps.Stdin)
	root.SetOut(deps.Stdout)
	root.SetErr(deps.Stderr)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	err = classify(err)
	if a.out.JSON {
		_ = a.out.Fail(err)
	}
	a.log.Error(err)
	return output.ExitCode(err)
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "kb",
		Short: "A knowledge base kept in CouchDB",
		Long: `kb keeps short notes in a CouchDB database. Each record has a
message, tags and the context (usually a directory) it was written in.

Running kb without a command lists the tags in use.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runTags(cmd.Context())
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&a.verbosity, "verbosity", "v", "INFO", "Logging level (DEBUG, INFO, WARNING, ERROR, CRITICAL)")
	pf.StringVarP(&a.context, "context", "c", "", "Context of entry (default: current directory)")
	pf.StringVar(&a.configPath, "config", "", "Path to config file")
	pf.BoolVar(&a.out.JSON, "json", false, "Output in JSON format")

	root.AddCommand(
		a.tagsCmd(),
		a.listCmd(),
		a.showCmd(),
		a.editCmd(),
		a.deleteCmd(),
		a.createCmd(),
		a.configCmd(),
		cli.NewVersionCmd("kb", a.out),
	)
	return root
}

// setup applies the global flags before any command runs.
func (a *app) setup(cmd *cobra.Command, args []string) error {
	level, ok := logging.ParseLevelName(a.verbosity)
	a.log.SetLevel(level)
	if !ok {
		a.log.Warnf("%s is not a log level, set to INFO", strings.ToUpper(a.verbosity))
	}

	if a.context == "" {
		wd, err := a.deps.Getwd()
		if err != nil {
			return fmt.Errorf("determine current directory: %w", err)
		}
		a.context = wd
	}

	// config init must work even when the current file is broken.
	if cmd.Parent() != nil && cmd.Parent().Name() == "config" {
		return nil
	}
	switch cmd.Name() {
	case "version", "help":
		return nil
	}

	cfg, err := config.LoadOrDefault(config.ResolveConfigPath(a.configPath))
	if err != nil {
		return output.WithCode(err, output.ErrCodeConfigInvalid, "Run 'kb config show' to check the file")
	}
	a.cfg = cfg
	a.log.WithFields(logrus.Fields{"url": cfg.CouchURL, "database": cfg.Database}).Debug("configuration loaded")
	return nil
}

// withManager dials the server, runs fn and closes the connection.
func (a *app) withManager(ctx context.Context, fn func(*kb.Manager) error) error {
	client, err := a.deps.Dial(ctx, couch.Credentials{
		URL:      a.cfg.CouchURL,
		Username: a.cfg.Username,
		Password: a.cfg.Password,
	})
	if err != nil {
		return err
	}
	defer func() {
		if cerr := client.Close(); cerr != nil {
			a.log.WithError(cerr).Debug("closing client")
		}
	}()

	m := kb.NewManager(client, kb.Options{
		Database: a.cfg.Database,
		IDPrefix: a.cfg.IDPrefix,
		Editor:   a.deps.Editor(a.cfg, a.log),
		Logger:   a.log,
	})
	return fn(m)
}

// requireID returns the trimmed record id argument.
func requireID(args []string, usage string) (string, error) {
	if len(args) == 0 || strings.TrimSpace(args[0]) == "" {
		return "", output.MissingArgument("record id", "Usage: "+usage)
	}
	return strings.TrimSpace(args[0]), nil
}

// classify attaches error codes to the errors kb commands return.
func classify(err error) error {
	if code, _ := output.Classify(err); code != output.ErrCodeInternal {
		return err
	}
	switch {
	case errors.Is(err, kb.ErrRecordNotFound):
		return output.WithCode(err, output.ErrCodeRecordNotFound, "Run 'kb list' to see record ids")
	case errors.Is(err, kb.ErrRecordConflict):
		return output.WithCode(err, output.ErrCodeRecordConflict, "The record changed while you were editing; edit it again")
	case errors.Is(err, kb.ErrMalformedEditBuffer):
		return output.WithCode(err, output.ErrCodeEditBuffer, "Keep the two --- lines around the metadata")
	case errors.Is(err, kb.ErrInvalidMetadataSyntax):
		return output.WithCode(err, output.ErrCodeMetadataInvalid, "")
	case errors.Is(err, editor.ErrNoEditor):
		return output.WithCode(err, output.ErrCodeEditorFailed, "Set 'editor' in the config file or $EDITOR")
	case couch.IsNotFound(err), couch.IsConflict(err):
		return output.WithCode(err, output.ErrCodeDatabaseError, "")
	}
	var exitErr interface{ ExitCode() int }
	if errors.As(err, &exitErr) {
		return output.WithCode(err, output.ErrCodeEditorFailed, "")
	}
	return err
}
