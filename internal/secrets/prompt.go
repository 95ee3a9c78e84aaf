package secrets

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/x/term"
)

// PassphraseEnv names the environment variable consulted before prompting.
const PassphraseEnv = "CCOUCH_PASSPHRASE"

// ReadPassphrase returns $CCOUCH_PASSPHRASE when set, otherwise prompts on
// out and reads from in without echo. in must be a terminal for prompting.
func ReadPassphrase(in *os.File, out io.Writer) (string, error) {
	if v, ok := os.LookupEnv(PassphraseEnv); ok {
		return v, nil
	}
	if in == nil || !term.IsTerminal(in.Fd()) {
		return "", fmt.Errorf("no terminal to prompt for the secret store passphrase; set %s", PassphraseEnv)
	}

	fmt.Fprint(out, "Secret store passphrase: ")
	b, err := term.ReadPassword(in.Fd())
	fmt.Fprintln(out)
	if err != nil {
		return "", fmt.Errorf("read passphrase: %w", err)
	}
	return strings.TrimRight(string(b), "\r\n"), nil
}
