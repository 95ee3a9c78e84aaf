package kbcmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/couchkb/couchkb/internal/cli/output"
	"github.com/couchkb/couchkb/internal/kb"
	"github.com/couchkb/couchkb/internal/ui"
)

func (a *app) listCmd() *cobra.Command {
	var (
		filter kb.Filter
		here   bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List records",
		Long: `List records in document id order.

Examples:
  kb list
  kb list --tag couchdb --tag ops
  kb list --here          # records written in the current context
  kb list --text compact --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if here {
				filter.Context = a.context
			}
			ctx := cmd.Context()
			return a.withManager(ctx, func(m *kb.Manager) error {
				records, err := m.List(ctx, filter)
				if err != nil {
					return err
				}
				if a.out.JSON {
					if records == nil {
						records = []*kb.Record{}
					}
					return a.out.Success(records, &output.Meta{Count: len(records)})
				}
				tbl := ui.NewTable(3)
				for _, r := range records {
					tbl.AddRow(ui.ID(r.ID), r.Context, ui.Tags(r.Tags))
				}
				if tbl.Len() == 0 {
					a.out.Println(ui.Hint("No records"))
					return nil
				}
				a.out.Printf("%s", tbl.String())
				a.out.Println(ui.Hint(ui.Count(tbl.Len(), "record", "records")))
				return nil
			})
		},
	}
	addFilterFlags(cmd.Flags(), &filter)
	cmd.Flags().BoolVar(&here, "here", false, "Only records written in the current context")
	return cmd
}

func addFilterFlags(f *pflag.FlagSet, filter *kb.Filter) {
	f.StringVar(&filter.Context, "match-context", "", "Only records written in this context")
	f.StringArrayVarP(&filter.Tags, "tag", "t", nil, "Only records carrying this tag (repeatable)")
	f.StringVar(&filter.Text, "text", "", "Only records whose message contains this text")
}
