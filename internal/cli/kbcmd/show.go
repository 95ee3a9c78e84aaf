package kbcmd

import (
	"github.com/spf13/cobra"

	"github.com/couchkb/couchkb/internal/kb"
	"github.com/couchkb/couchkb/internal/ui"
)

func (a *app) showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Print one record",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := requireID(args, "kb show <id>")
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			return a.withManager(ctx, func(m *kb.Manager) error {
				r, err := m.Get(ctx, id)
				if err != nil {
					return err
				}
				if a.out.JSON {
					return a.out.Success(r, nil)
				}

				tbl := ui.NewTable(2)
				tbl.AddRow(ui.Hint("id"), ui.ID(r.ID))
				tbl.AddRow(ui.Hint("context"), r.Context)
				tbl.AddRow(ui.Hint("tags"), ui.Tags(r.Tags))
				tbl.AddRow(ui.Hint("created"), createdLabel(r))
				tbl.AddRow(ui.Hint("by"), r.User+"@"+r.Hostname)
				a.out.Printf("%s\n", tbl.String())

				display := ui.NewDisplayContext(a.deps.Stdout)
				if !display.IsTTY {
					a.out.Printf("%s\n", r.Message)
					return nil
				}
				rendered, err := ui.RenderMarkdown(r.Message, display.TermWidth)
				if err != nil {
					a.log.WithError(err).Debug("markdown rendering failed, printing raw message")
					rendered = r.Message + "\n"
				}
				a.out.Printf("%s", rendered)
				return nil
			})
		},
	}
}

// createdTimeFormat is how kb show prints a record's creation time.
const createdTimeFormat = "2006-01-02 15:04:05 MST"

// createdLabel renders the creation time in local time. A timestamp that
// does not parse is shown as stored.
func createdLabel(r *kb.Record) string {
	t := r.CreatedTime()
	if t.IsZero() {
		return r.Created
	}
	return t.Local().Format(createdTimeFormat)
}
