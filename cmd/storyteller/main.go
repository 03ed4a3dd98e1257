package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/OliSalles/StoryTeller/internal/interfaces/cli/migrate"
	"github.com/OliSalles/StoryTeller/internal/interfaces/cli/seed"
	"github.com/OliSalles/StoryTeller/internal/interfaces/cli/server"
	"github.com/OliSalles/StoryTeller/internal/shared/version"
)

// @title StoryTeller Billing API
// @version 1.0
// @description Subscriptions, usage metering and Stripe reconciliation for StoryTeller.
// @BasePath /api
// @securityDefinitions.apikey Bearer
// @in header
// @name Authorization
func main() {
	rootCmd := &cobra.Command{
		Use:          "storyteller",
		Short:        "StoryTeller billing service",
		Long:         `StoryTeller billing service: HTTP API, Stripe webhooks, database migrations and catalog seeding.`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		server.NewCommand(),
		migrate.NewCommand(),
		seed.NewCommand(),
		&cobra.Command{
			Use:   "version",
			Short: "Print build information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintln(cmd.OutOrStdout(), version.String())
			},
		},
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
