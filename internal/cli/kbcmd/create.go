package kbcmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/couchkb/couchkb/internal/kb"
	"github.com/couchkb/couchkb/internal/ui"
)

func (a *app) createCmd() *cobra.Command {
	var (
		tags   []string
		noEdit bool
	)
	cmd := &cobra.Command{
		Use:   "create [message]",
		Short: "Create a record and open it in your editor",
		Long: `Create a record stamped with this host, user, time and context,
then open it in your editor.

Examples:
  kb create "compaction runs in the background"
  kb create -t couchdb -t ops
  kb create --no-edit -t todo "renew the certificate"`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var message string
			if len(args) == 1 {
				message = args[0]
			}
			ctx := cmd.Context()
			return a.withManager(ctx, func(m *kb.Manager) error {
				r, err := m.Create(ctx, kb.CreateRequest{
					Context: a.context,
					Tags:    cleanTags(tags),
					Message: message,
				})
				if err != nil {
					return err
				}
				if noEdit {
					if a.out.JSON {
						return a.out.Success(r, nil)
					}
					a.out.Println(ui.Successf("Created %s", ui.ID(r.ID)))
					return nil
				}
				if !a.out.JSON {
					a.out.Println(ui.Successf("Created %s", ui.ID(r.ID)))
				}
				return a.edit(ctx, m, r.ID)
			})
		},
	}
	cmd.Flags().StringArrayVarP(&tags, "tags", "t", nil, "Tag for the record (repeatable, default \"general\")")
	cmd.Flags().BoolVar(&noEdit, "no-edit", false, "Store the record without opening the editor")
	return cmd
}

func cleanTags(tags []string) []string {
	var out []string
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}
