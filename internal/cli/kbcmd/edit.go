package kbcmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/couchkb/couchkb/internal/kb"
	"github.com/couchkb/couchkb/internal/ui"
)

type editResult struct {
	ID      string `json:"id"`
	Rev     string `json:"rev"`
	Changed bool   `json:"changed"`
}

func (a *app) editCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "edit <id>",
		Short: "Edit a record in your editor",
		Long: `Open a record in your editor. The metadata sits between two ---
lines as YAML; everything after the second --- is the message.

Closing the editor without changes leaves the record untouched.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := requireID(args, "kb edit <id>")
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			return a.withManager(ctx, func(m *kb.Manager) error {
				return a.edit(ctx, m, id)
			})
		},
	}
}

func (a *app) edit(ctx context.Context, m *kb.Manager, id string) error {
	r, changed, err := m.Edit(ctx, id)
	if err != nil {
		return err
	}
	if a.out.JSON {
		return a.out.Success(editResult{ID: r.ID, Rev: r.Rev, Changed: changed}, nil)
	}
	if changed {
		a.out.Println(ui.Successf("Saved %s", ui.ID(r.ID)))
	} else {
		a.out.Println(ui.Infof("No changes to %s", r.ID))
	}
	return nil
}
