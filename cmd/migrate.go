package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEngine(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		if err := env.Store.Migrate(ctx); err != nil {
			return err
		}
		fmt.Println("schema up to date")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show engine statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEngine(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		stats, err := env.Store.Stats(ctx)
		if err != nil {
			return err
		}

		fmt.Printf("active patterns      %d\n", stats.ActivePatterns)
		fmt.Printf("inactive patterns    %d\n", stats.InactivePatterns)
		fmt.Printf("corrections          %d\n", stats.Corrections)
		fmt.Printf("ground truth entries %d\n", stats.GroundTruthEntries)
		fmt.Printf("pending suggestions  %d\n", stats.PendingSuggestions)
		fmt.Printf("known venues         %d\n", stats.KnownVenues)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd, statusCmd)
}
