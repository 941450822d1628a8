package cli

import (
	"github.com/spf13/cobra"

	"github.com/unclebandit/crowdfund-backend/internal/app"
	"github.com/unclebandit/crowdfund-backend/internal/db"
)

func migrateCmd(open Opener) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(open, func(a *app.App) error {
				if err := db.Migrate(a.DB, a.Config.DBDriver); err != nil {
					return err
				}
				okColor.Fprintf(cmd.OutOrStdout(), "Schema applied (%s)\n", a.Config.DBDriver)
				return nil
			})
		},
	}
}
