package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/unclebandit/crowdfund-backend/internal/app"
)

func campaignCmd(open Opener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "campaign",
		Short: "Campaign maintenance",
	}
	cmd.AddCommand(campaignExpireCmd(open))
	cmd.AddCommand(campaignSetStatusCmd(open))
	cmd.AddCommand(campaignVerifyCmd(open))
	return cmd
}

func campaignExpireCmd(open Opener) *cobra.Command {
	return &cobra.Command{
		Use:   "expire",
		Short: "Mark active campaigns past their end date as expired",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(open, func(a *app.App) error {
				n, err := a.Campaigns.ExpireOverdue(cmd.Context())
				if err != nil {
					return err
				}
				okColor.Fprintf(cmd.OutOrStdout(), "Expired %d campaign(s)\n", n)
				return nil
			})
		},
	}
}

func campaignSetStatusCmd(open Opener) *cobra.Command {
	return &cobra.Command{
		Use:   "set-status [slug] [status]",
		Short: "Close a campaign as completed, cancelled or expired",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(open, func(a *app.App) error {
				c, err := a.Campaigns.SetStatus(cmd.Context(), args[0], args[1])
				if err != nil {
					return err
				}
				okColor.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", c.Slug, c.Status)
				return nil
			})
		},
	}
}

func campaignVerifyCmd(open Opener) *cobra.Command {
	return &cobra.Command{
		Use:   "verify [slug]",
		Short: "Compare amount_raised with the sum of completed donations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(open, func(a *app.App) error {
				check, err := a.Donations.VerifyLedger(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fprintf(cmd, "amount_raised:   %s\n", check.AmountRaised.StringFixed(2))
				fprintf(cmd, "completed total: %s\n", check.CompletedSum.StringFixed(2))
				if !check.Consistent {
					errColor.Fprintln(cmd.OutOrStdout(), "MISMATCH")
					return fmt.Errorf("ledger of %s is inconsistent", check.Slug)
				}
				okColor.Fprintln(cmd.OutOrStdout(), "OK")
				return nil
			})
		},
	}
}
