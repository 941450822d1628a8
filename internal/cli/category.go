package cli

import (
	"github.com/spf13/cobra"

	"github.com/unclebandit/crowdfund-backend/internal/app"
	"github.com/unclebandit/crowdfund-backend/internal/model"
)

func categoryCmd(open Opener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "category",
		Short: "Manage campaign categories",
	}
	cmd.AddCommand(categoryAddCmd(open))
	cmd.AddCommand(categoryListCmd(open))
	return cmd
}

func categoryAddCmd(open Opener) *cobra.Command {
	var description, icon string
	cmd := &cobra.Command{
		Use:   "add [name]",
		Short: "Create a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(open, func(a *app.App) error {
				c := &model.Category{Name: args[0], Description: description, Icon: icon}
				if err := a.Campaigns.CreateCategory(cmd.Context(), c); err != nil {
					return err
				}
				okColor.Fprintf(cmd.OutOrStdout(), "Created category %d %q\n", c.ID, c.Name)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&description, "description", "d", "", "category description")
	cmd.Flags().StringVar(&icon, "icon", "", "icon name")
	return cmd
}

func categoryListCmd(open Opener) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(open, func(a *app.App) error {
				categories, err := a.Campaigns.Categories(cmd.Context())
				if err != nil {
					return err
				}
				for _, c := range categories {
					fprintf(cmd, "%4d  %s", c.ID, c.Name)
					if c.Description != "" {
						dimColor.Fprintf(cmd.OutOrStdout(), "  %s", c.Description)
					}
					fprintf(cmd, "\n")
				}
				return nil
			})
		},
	}
}
