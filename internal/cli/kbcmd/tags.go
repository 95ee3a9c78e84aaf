package kbcmd

import (
	"context"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/couchkb/couchkb/internal/cli/output"
	"github.com/couchkb/couchkb/internal/kb"
	"github.com/couchkb/couchkb/internal/ui"
)

func (a *app) tagsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tags",
		Short: "List tags with the number of records carrying each",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runTags(cmd.Context())
		},
	}
}

func (a *app) runTags(ctx context.Context) error {
	return a.withManager(ctx, func(m *kb.Manager) error {
		tags, err := m.Tags(ctx)
		if err != nil {
			return err
		}
		if a.out.JSON {
			return a.out.Success(tags, &output.Meta{Count: len(tags)})
		}
		if len(tags) == 0 {
			a.out.Println(ui.Hint("No tags yet. Add a record with 'kb create'."))
			return nil
		}
		tbl := ui.NewTable(2)
		tbl.AlignRight(1)
		for _, tc := range tags {
			tbl.AddRow(ui.Accent.Render(tc.Tag), strconv.Itoa(tc.Count))
		}
		a.out.Printf("%s", tbl.String())
		return nil
	})
}
