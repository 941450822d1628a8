package cli

import (
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/unclebandit/crowdfund-backend/internal/app"
	appErrors "github.com/unclebandit/crowdfund-backend/internal/errors"
)

func donationCmd(open Opener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "donation",
		Short: "Donation reconciliation",
	}
	cmd.AddCommand(donationSetStatusCmd(open))
	cmd.AddCommand(donationStaleCmd(open))
	return cmd
}

// donationSetStatusCmd applies a status change through the ledger rule, for
// refunds and outcomes confirmed out of band with the processor.
func donationSetStatusCmd(open Opener) *cobra.Command {
	return &cobra.Command{
		Use:   "set-status [id] [status]",
		Short: "Move a donation to completed, cancelled or refunded",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return appErrors.NewValidation("id", "must be an integer")
			}
			return withApp(open, func(a *app.App) error {
				t, err := a.Donations.SetStatus(cmd.Context(), id, args[1])
				if err != nil {
					return err
				}
				if !t.Changed {
					warnColor.Fprintf(cmd.OutOrStdout(), "Donation %d already %s\n", id, t.To)
					return nil
				}
				okColor.Fprintf(cmd.OutOrStdout(), "Donation %d: %s -> %s (campaign delta %s)\n",
					id, t.From, t.To, t.Delta.StringFixed(2))

				// The command exits before any queued event is consumed.
				if t.DonorID != nil {
					if err := a.Accounts.RefreshDonorTotals(cmd.Context(), *t.DonorID); err != nil {
						warnColor.Fprintln(cmd.OutOrStdout(), "could not refresh donor totals:", err)
					}
				}
				return nil
			})
		},
	}
}

func donationStaleCmd(open Opener) *cobra.Command {
	var olderThan time.Duration
	cmd := &cobra.Command{
		Use:   "stale",
		Short: "List donations still pending after a while",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(open, func(a *app.App) error {
				donations, err := a.Donations.StalePending(cmd.Context(), olderThan)
				if err != nil {
					return err
				}
				if len(donations) == 0 {
					okColor.Fprintln(cmd.OutOrStdout(), "No stale pending donations")
					return nil
				}
				for _, d := range donations {
					fprintf(cmd, "%6d  campaign %-6d %10s  %s  ", d.ID, d.CampaignID, d.Amount.StringFixed(2), d.CreatedAt.Format(time.RFC3339))
					dimColor.Fprintln(cmd.OutOrStdout(), d.TransactionID)
				}
				warnColor.Fprintf(cmd.OutOrStdout(), "%d donation(s) pending for more than %s\n", len(donations), olderThan)
				return nil
			})
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 24*time.Hour, "minimum age of a pending donation")
	return cmd
}
