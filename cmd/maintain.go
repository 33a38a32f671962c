package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/scenescout/extract-cli/internal/model"
)

var maintainPurge bool

var maintainCmd = &cobra.Command{
	Use:   "maintain",
	Short: "Run bulk pattern and suggestion maintenance",
	Long:  "Deactivates chronically failing patterns, marks venue/address suggestions not applicable, and auto-approves high-frequency date/time/price suggestions. With --purge, also deletes resolved non-approved suggestions.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEngine(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		results, err := env.Manager.Maintain(ctx)
		if err != nil {
			return err
		}

		names := make([]string, 0, len(results))
		for name := range results {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			res := results[name]
			fmt.Printf("%-22s %d affected", name, res.Affected)
			if len(res.Failures) > 0 {
				fmt.Printf(", %d failures", len(res.Failures))
			}
			fmt.Println()
			for _, f := range res.Failures {
				fmt.Printf("  %s: %s\n", f.ID, f.Err)
			}
		}

		if maintainPurge {
			res, err := env.Manager.Purge(ctx, []model.SuggestionStatus{
				model.SuggestionRejected, model.SuggestionNotApplicable,
			})
			if err != nil {
				return err
			}
			fmt.Printf("%-22s %d affected\n", "purge", res.Affected)
		}

		return nil
	},
}

func init() {
	maintainCmd.Flags().BoolVar(&maintainPurge, "purge", false, "also purge resolved non-approved suggestions")
	rootCmd.AddCommand(maintainCmd)
}
