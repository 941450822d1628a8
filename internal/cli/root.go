// Package cli holds the operator commands behind cmd/admin.
package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/unclebandit/crowdfund-backend/internal/app"
)

// Opener builds the application for a single command run.
type Opener func() (*app.App, error)

var (
	okColor   = color.New(color.FgGreen)
	warnColor = color.New(color.FgYellow)
	errColor  = color.New(color.FgRed, color.Bold)
	dimColor  = color.New(color.FgHiBlack)
)

func NewRootCmd(open Opener) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "crowdfund-admin",
		Short:         "Operator tools for the crowdfunding backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(migrateCmd(open))
	rootCmd.AddCommand(campaignCmd(open))
	rootCmd.AddCommand(categoryCmd(open))
	rootCmd.AddCommand(donationCmd(open))
	return rootCmd
}

// withApp opens the application, runs fn and closes it again.
func withApp(open Opener, fn func(a *app.App) error) error {
	a, err := open()
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}

func fprintf(cmd *cobra.Command, format string, args ...any) {
	fmt.Fprintf(cmd.OutOrStdout(), format, args...)
}
