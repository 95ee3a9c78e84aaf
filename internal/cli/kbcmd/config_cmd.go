package kbcmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/couchkb/couchkb/internal/cli/output"
	"github.com/couchkb/couchkb/internal/config"
	"github.com/couchkb/couchkb/internal/ui"
)

func (a *app) configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the kb configuration file",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Write a commented default config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.ResolveConfigPath(a.configPath)
			created, err := config.CreateDefault(path)
			if err != nil {
				return err
			}
			if a.out.JSON {
				return a.out.Success(map[string]interface{}{"path": path, "created": created}, nil)
			}
			if created {
				a.out.Println(ui.Successf("Wrote %s", path))
			} else {
				a.out.Println(ui.Warningf("%s already exists, left unchanged", path))
			}
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.ResolveConfigPath(a.configPath)
			cfg, err := config.LoadOrDefault(path)
			if err != nil {
				return output.WithCode(err, output.ErrCodeConfigInvalid, "")
			}
			shown := cfg.Redacted()
			if a.out.JSON {
				return a.out.Success(map[string]interface{}{"path": path, "config": shown}, nil)
			}

			tbl := ui.NewTable(2)
			tbl.AddRow("config", path)
			tbl.AddRow("couch_url", shown.CouchURL)
			tbl.AddRow("database", shown.Database)
			tbl.AddRow("entitybase", shown.EntityBase)
			tbl.AddRow("username", shown.Username)
			tbl.AddRow("password", shown.Password)
			tbl.AddRow("editor", shown.GetEditor())
			tbl.AddRow("id_prefix", shown.IDPrefix)
			tbl.AddRow("secrets_file", shown.GetSecretsFile())
			a.out.Printf("%s", tbl.String())
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set one key in the config file",
		Long:  "Set one key in the config file. Keys: " + strings.Join(config.Keys, ", "),
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.ResolveConfigPath(a.configPath)
			cfg, err := config.LoadOrDefault(path)
			if err != nil {
				return output.WithCode(err, output.ErrCodeConfigInvalid, "")
			}
			if err := cfg.Set(args[0], args[1]); err != nil {
				return output.WithCode(err, output.ErrCodeInvalidInput, "")
			}
			if err := config.SaveTo(path, cfg); err != nil {
				return err
			}
			if a.out.JSON {
				return a.out.Success(map[string]interface{}{"path": path, "key": args[0]}, nil)
			}
			a.out.Println(ui.Successf("Set %s in %s", args[0], path))
			return nil
		},
	})
	return cmd
}
