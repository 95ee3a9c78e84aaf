package kbcmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/couchkb/couchkb/internal/cli/output"
	"github.com/couchkb/couchkb/internal/kb"
	"github.com/couchkb/couchkb/internal/ui"
)

func (a *app) deleteCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a record",
		Long: `Delete a record. On a terminal you are asked to confirm unless
--force is given.

Examples:
  kb delete kb:1a2b3c4d5e6f
  kb delete kb:1a2b3c4d5e6f --force`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := requireID(args, "kb delete <id>")
			if err != nil {
				return err
			}
			if !force && !a.out.JSON && output.IsInteractive(a.deps.Stdin, a.deps.Stdout) {
				if !output.Confirm(a.deps.Stdin, a.deps.Stdout, fmt.Sprintf("Delete %s?", id)) {
					a.out.Println(ui.Hint("Cancelled"))
					return nil
				}
			}
			ctx := cmd.Context()
			return a.withManager(ctx, func(m *kb.Manager) error {
				if err := m.Delete(ctx, id); err != nil {
					return err
				}
				if a.out.JSON {
					return a.out.Success(map[string]string{"deleted": id}, nil)
				}
				a.out.Println(ui.Successf("Deleted %s", ui.ID(id)))
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Skip confirmation")
	return cmd
}
