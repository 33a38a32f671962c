package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/scenescout/extract-cli/internal/model"
)

var correctionsCmd = &cobra.Command{
	Use:   "corrections",
	Short: "Record and inspect extraction corrections",
}

var (
	correctPostRef  string
	correctOriginal string
	correctRawText  string
)

var correctionsAddCmd = &cobra.Command{
	Use:   "add <field_name> <corrected_value>",
	Short: "Record a corrected field value",
	Long:  "Records a human correction, the primary training signal for pattern learning. Include --raw-text so learning can replay the correction against the original post.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEngine(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		c, err := env.Store.CreateCorrection(ctx, model.Correction{
			PostRef:        correctPostRef,
			FieldName:      args[0],
			OriginalValue:  correctOriginal,
			CorrectedValue: args[1],
			RawSourceText:  correctRawText,
		})
		if err != nil {
			return err
		}
		fmt.Printf("recorded correction %s\n", c.ID)
		return nil
	},
}

var groundTruthConfidence float64

var correctionsGroundTruthCmd = &cobra.Command{
	Use:   "ground-truth <field_name> <raw_text> <correct_value>",
	Short: "Record an oracle-verified extraction",
	Long:  "Records a high-trust training example. The oracle confidence must meet the trust floor or the entry is rejected.",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEngine(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		g, err := env.Store.CreateGroundTruth(ctx, model.GroundTruthEntry{
			PostRef:          correctPostRef,
			FieldName:        args[0],
			RawText:          args[1],
			CorrectValue:     args[2],
			SourceConfidence: groundTruthConfidence,
		})
		if err != nil {
			return err
		}
		fmt.Printf("recorded ground truth %s\n", g.ID)
		return nil
	},
}

var correctionsListLimit int

var correctionsListCmd = &cobra.Command{
	Use:   "list [field_name]",
	Short: "List recorded corrections",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEngine(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		field := ""
		if len(args) == 1 {
			field = args[0]
		}
		corrections, err := env.Store.ListCorrections(ctx, field, correctionsListLimit)
		if err != nil {
			return err
		}
		if len(corrections) == 0 {
			fmt.Println("no corrections recorded")
			return nil
		}
		for _, c := range corrections {
			fmt.Printf("%s  %-14s %q", c.CreatedAt.Format("2006-01-02"), c.FieldName, c.CorrectedValue)
			if c.OriginalValue != "" {
				fmt.Printf("  (was %q)", c.OriginalValue)
			}
			fmt.Println()
		}
		return nil
	},
}

func init() {
	correctionsAddCmd.Flags().StringVar(&correctPostRef, "post", "", "post reference")
	correctionsAddCmd.Flags().StringVar(&correctOriginal, "original", "", "the incorrect extracted value")
	correctionsAddCmd.Flags().StringVar(&correctRawText, "raw-text", "", "original post text for replay validation")
	correctionsGroundTruthCmd.Flags().StringVar(&correctPostRef, "post", "", "post reference")
	correctionsGroundTruthCmd.Flags().Float64Var(&groundTruthConfidence, "confidence", model.GroundTruthMinConfidence, "oracle confidence")
	correctionsListCmd.Flags().IntVar(&correctionsListLimit, "limit", 50, "max corrections to list")

	correctionsCmd.AddCommand(correctionsAddCmd, correctionsGroundTruthCmd, correctionsListCmd)
	rootCmd.AddCommand(correctionsCmd)
}
