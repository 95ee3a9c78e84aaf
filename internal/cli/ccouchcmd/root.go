// Package ccouchcmd implements the ccouch administration command.
package ccouchcmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/couchkb/couchkb/internal/admin"
	"github.com/couchkb/couchkb/internal/cli"
	"github.com/couchkb/couchkb/internal/cli/output"
	"github.com/couchkb/couchkb/internal/config"
	"github.com/couchkb/couchkb/internal/couch"
	"github.com/couchkb/couchkb/internal/logging"
	"github.com/couchkb/couchkb/internal/secrets"
)

// Operations, in the order help lists them.
var operations = []string{"list", "users", "designs", "compact", "adduser", "security", "secret"}

// Deps are the outside-world hooks of the command. Zero fields fall back to
// the real implementations.
type Deps struct {
	Dial couch.DialFunc
	// Passphrase unlocks the secret store.
	Passphrase func() (string, error)
	// KDFParams are used when the secret store is written; zero means
	// secrets.DefaultKDFParams.
	KDFParams secrets.KDFParams

	Stdout io.Writer
	Stderr io.Writer

	// Logger is built once by main; its level follows --loglevel.
	Logger *logrus.Logger
}

func (d *Deps) fill() {
	if d.Dial == nil {
		d.Dial = couch.Dial
	}
	if d.Stdout == nil {
		d.Stdout = os.Stdout
	}
	if d.Stderr == nil {
		d.Stderr = os.Stderr
	}
	if d.Passphrase == nil {
		stderr := d.Stderr
		d.Passphrase = func() (string, error) {
			return secrets.ReadPassphrase(os.Stdin, stderr)
		}
	}
	if d.KDFParams == (secrets.KDFParams{}) {
		d.KDFParams = secrets.DefaultKDFParams
	}
	if d.Logger == nil {
		d.Logger = logging.New(d.Stderr, logrus.WarnLevel)
	}
}

type options struct {
	loglevel    int
	database    string
	adminKey    string
	username    string
	password    string
	roles       string
	url         string
	secretsPath string
}

type app struct {
	deps Deps
	out  *output.Printer
	log  *logrus.Logger
	opts options
}

// Execute runs ccouch with args and returns the process exit status.
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
		Use:   "ccouch [operation]",
		Short: "CouchDB administration",
		Long: `ccouch administers a CouchDB server with credentials taken from an
encrypted secret store.

Operations:
  list      databases and their document counts (default)
  users     server users, or the security of --database
  designs   design documents of --database
  compact   start compaction of --database
  adduser   add a user (--username, --password, --roles)
  security  security object of --database
  secret    store credentials under --admin_key (--url, --username, --password)

The secret store passphrase is read from $` + secrets.PassphraseEnv + ` or prompted for.`,
		Args:          cobra.MaximumNArgs(1),
		ValidArgs:     operations,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			op := "list"
			if len(args) == 1 {
				op = strings.ToLower(strings.TrimSpace(args[0]))
			}
			a.log.SetLevel(logging.LevelFromCount(a.opts.loglevel))
			return a.run(cmd.Context(), op)
		},
	}

	f := root.Flags()
	f.CountVarP(&a.opts.loglevel, "loglevel", "l", "Logging verbosity (repeat for more)")
	f.StringVarP(&a.opts.database, "database", "d", "", "Database name")
	f.StringVarP(&a.opts.adminKey, "admin_key", "k", admin.DefaultAdminKey, "Secret store key for the CouchDB admin credentials")
	f.StringVar(&a.opts.username, "username", "", "Username for adding a user or storing a secret")
	f.StringVar(&a.opts.password, "password", "", "Password for adding a user or storing a secret")
	f.StringVar(&a.opts.roles, "roles", "", "Comma delimited list of roles for the user")
	f.StringVar(&a.opts.url, "url", "", "Server URL when storing a secret")
	f.StringVar(&a.opts.secretsPath, "secrets", "", "Path to the secret store (default from the kb config)")
	f.BoolVar(&a.out.JSON, "json", false, "Output in JSON format")

	root.AddCommand(cli.NewVersionCmd("ccouch", a.out))
	return root
}

// validate checks the arguments op needs before anything touches the
// secret store or the network.
func (a *app) validate(op string) error {
	switch op {
	case "list", "users":
		return nil
	case "designs", "compact", "security":
		if a.opts.database == "" {
			return output.MissingArgument("--database", fmt.Sprintf("Database name is required for %s: ccouch %s -d NAME", op, op))
		}
	case "adduser":
		if a.opts.username == "" {
			return output.MissingArgument("--username", "Username is required when adding a user")
		}
		if a.opts.password == "" {
			return output.MissingArgument("--password", "Password is required when adding a user")
		}
	case "secret":
		if a.opts.url == "" {
			return output.MissingArgument("--url", "The server URL is required when storing a secret")
		}
	default:
		return output.WithCode(fmt.Errorf("unknown operation %q", op), output.ErrCodeInvalidInput,
			"Valid operations: "+strings.Join(operations, ", "))
	}
	return nil
}

func (a *app) run(ctx context.Context, op string) error {
	if err := a.validate(op); err != nil {
		return err
	}

	store, err := a.openSecrets()
	if err != nil {
		return err
	}
	if op == "secret" {
		return a.storeSecret(store)
	}

	creds, err := store.Credentials(a.opts.adminKey)
	if err != nil {
		a.log.WithField("keys", store.Keys()).Debug("known secrets")
		return err
	}
	client, err := a.deps.Dial(ctx, couch.Credentials{URL: creds.URL, Username: creds.Username, Password: creds.Password})
	if err != nil {
		return err
	}
	defer func() {
		if cerr := client.Close(); cerr != nil {
			a.log.WithError(cerr).Debug("closing client")
		}
	}()
	m := admin.NewManager(client, a.log)

	switch op {
	case "list":
		return a.listDatabases(ctx, m)
	case "users":
		if a.opts.database != "" {
			return a.security(ctx, m)
		}
		return a.listUsers(ctx, m)
	case "security":
		return a.security(ctx, m)
	case "designs":
		return a.designs(ctx, m)
	case "compact":
		return a.compact(ctx, m)
	case "adduser":
		return a.addUser(ctx, m)
	}
	return nil
}

func (a *app) secretsPath() string {
	if a.opts.secretsPath != "" {
		return a.opts.secretsPath
	}
	cfg, err := config.Load()
	if err != nil {
		a.log.WithError(err).Warn("ignoring unreadable kb config")
		return config.DefaultSecretsPath()
	}
	return cfg.GetSecretsFile()
}

func (a *app) openSecrets() (*secrets.Store, error) {
	path := a.secretsPath()
	pass, err := a.deps.Passphrase()
	if err != nil {
		return nil, err
	}
	a.log.WithField("path", path).Debug("opening secret store")
	return secrets.OpenWithParams(path, pass, a.deps.KDFParams)
}

// classify attaches error codes to the errors ccouch returns.
func classify(err error) error {
	if code, _ := output.Classify(err); code != output.ErrCodeInternal {
		return err
	}
	switch {
	case errors.Is(err, admin.ErrMissingDatabaseName),
		errors.Is(err, admin.ErrMissingUsername),
		errors.Is(err, admin.ErrMissingPassword):
		return output.WithCode(err, output.ErrCodeMissingArgument, "")
	case errors.Is(err, admin.ErrUserAlreadyExists):
		return output.WithCode(err, output.ErrCodeUserExists, "")
	case errors.Is(err, secrets.ErrSecretNotFound):
		return output.WithCode(err, output.ErrCodeSecretNotFound, "Store it with 'ccouch secret -k KEY --url URL --username USER --password PASS'")
	case errors.Is(err, secrets.ErrWrongPassphrase):
		return output.WithCode(err, output.ErrCodeWrongPassphrase, "")
	case couch.IsNotFound(err), couch.IsConflict(err):
		return output.WithCode(err, output.ErrCodeDatabaseError, "")
	}
	return err
}
