package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/scenescout/extract-cli/internal/model"
	"github.com/scenescout/extract-cli/internal/seed"
	"github.com/scenescout/extract-cli/internal/store"
)

var patternsCmd = &cobra.Command{
	Use:   "patterns",
	Short: "Inspect and manage the pattern set",
}

var (
	patternsField      string
	patternsOnlyActive bool
)

var patternsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored patterns",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEngine(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		filter := store.PatternFilter{OnlyActive: patternsOnlyActive}
		if patternsField != "" {
			ft, err := model.FieldTypeForName(patternsField)
			if err != nil {
				return err
			}
			filter.FieldType = ft
		}

		patterns, err := env.Store.ListPatterns(ctx, filter)
		if err != nil {
			return err
		}
		if len(patterns) == 0 {
			fmt.Println("no patterns stored; run 'extract-cli patterns seed' to install defaults")
			return nil
		}
		printPatterns(os.Stdout, patterns)
		return nil
	},
}

var (
	addConfidence  float64
	addDescription string
)

var patternsAddCmd = &cobra.Command{
	Use:   "add <field_type> <regex>",
	Short: "Manually author a pattern",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		ft, err := model.ParseFieldType(args[0])
		if err != nil {
			return err
		}

		env, err := initEngine(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		p, err := env.Store.CreatePattern(ctx, model.ExtractionPattern{
			FieldType:   ft,
			RegexSource: args[1],
			Description: addDescription,
			Confidence:  addConfidence,
			Priority:    model.PriorityManual,
			IsActive:    true,
			Source:      model.SourceManual,
		})
		if err != nil {
			return err
		}
		fmt.Printf("created pattern %s\n", p.ID)
		return nil
	},
}

var patternsSeedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Install the default pattern set",
	Long:  "Inserts the built-in defaults so extraction works before any learning. Already-present patterns are left untouched.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEngine(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		n, err := seed.Apply(ctx, env.Store)
		if err != nil {
			return err
		}
		fmt.Printf("seeded %d patterns\n", n)
		return nil
	},
}

var patternsDeactivateCmd = &cobra.Command{
	Use:   "deactivate <id>",
	Short: "Deactivate a pattern",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEngine(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		if err := env.Store.SetPatternActive(ctx, args[0], false); err != nil {
			return err
		}
		env.Matcher.Invalidate(args[0])
		fmt.Println("deactivated")
		return nil
	},
}

func printPatterns(out io.Writer, patterns []model.ExtractionPattern) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tFIELD\tSOURCE\tPRIO\tCONF\tOK\tFAIL\tACTIVE\tREGEX")
	for _, p := range patterns {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%.2f\t%d\t%d\t%v\t%s\n",
			p.ID, p.FieldType, p.Source, p.Priority, p.Confidence,
			p.SuccessCount, p.FailureCount, p.IsActive, truncate(p.RegexSource, 48))
	}
	_ = w.Flush()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

func init() {
	patternsListCmd.Flags().StringVar(&patternsField, "field", "", "filter by field type")
	patternsListCmd.Flags().BoolVar(&patternsOnlyActive, "active", false, "only active patterns")
	patternsAddCmd.Flags().Float64Var(&addConfidence, "confidence", 0.8, "pattern confidence")
	patternsAddCmd.Flags().StringVar(&addDescription, "description", "", "pattern description")

	patternsCmd.AddCommand(patternsListCmd, patternsAddCmd, patternsSeedCmd, patternsDeactivateCmd)
	rootCmd.AddCommand(patternsCmd)
}
