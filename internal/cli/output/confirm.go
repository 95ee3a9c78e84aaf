package output

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/couchkb/couchkb/internal/ui"
)

// IsInteractive reports whether both streams are terminals.
func IsInteractive(in io.Reader, out io.Writer) bool {
	fin, ok := in.(*os.File)
	if !ok {
		return false
	}
	fout, ok := out.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(fin.Fd()) && isatty.IsTerminal(fout.Fd())
}

// Confirm asks a yes/no question and reads the answer from in. Anything
// but "y" or "yes" declines.
func Confirm(in io.Reader, out io.Writer, message string) bool {
	if message == "" {
		message = "Continue?"
	}
	fmt.Fprintf(out, "%s %s ", message, ui.Hint("[y/N]"))
	reader := bufio.NewReader(in)
	answer, err := reader.ReadString('\n')
	if err != nil && answer == "" {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}
