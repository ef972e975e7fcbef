// Package cli implements the erpctl operator commands.
package cli

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/odyssey-erp/erp-api/internal/app"
)

// env is resolved once per invocation by the root command.
type env struct {
	cfg    *app.Config
	logger *slog.Logger
}

// NewRootCommand assembles the erpctl command tree.
func NewRootCommand() *cobra.Command {
	e := &env{}
	root := &cobra.Command{
		Use:           "erpctl",
		Short:         "Operator tooling for the ERP API",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.LoadConfig()
			if err != nil {
				return err
			}
			e.cfg = cfg
			e.logger = app.NewLogger(cfg)
			return nil
		},
	}
	root.AddCommand(newMigrateCommand(e), newSeedCommand(e), newJobsCommand(e))
	return root
}
