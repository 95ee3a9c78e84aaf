// Package cli holds pieces shared by the kb and ccouch command trees.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/couchkb/couchkb/internal/buildinfo"
	"github.com/couchkb/couchkb/internal/cli/output"
)

// NewVersionCmd returns a "version" command for the binary called name.
func NewVersionCmd(name string, p *output.Printer) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version and build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info := buildinfo.Current()
			if p.JSON {
				return p.Success(info, nil)
			}

			p.Printf("%s %s\n", name, info.Version)
			p.Printf("module: %s\n", info.ModulePath)
			if info.Commit != "" {
				p.Printf("commit: %s\n", info.Commit)
			}
			if info.CommitTime != "" {
				p.Printf("commit_time: %s\n", info.CommitTime)
			}
			p.Printf("go: %s\n", info.GoVersion)
			p.Printf("platform: %s/%s\n", info.GOOS, info.GOARCH)
			p.Printf("modified: %t\n", info.Modified)
			return nil
		},
	}
}
