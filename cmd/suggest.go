package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/scenescout/extract-cli/internal/model"
	"github.com/scenescout/extract-cli/internal/store"
)

var suggestCmd = &cobra.Command{
	Use:   "suggest",
	Short: "Manage the pattern suggestion queue",
}

var (
	suggestSample   string
	suggestExpected string
)

var suggestAddCmd = &cobra.Command{
	Use:   "add <field_type> <regex>",
	Short: "Enqueue a proposed pattern",
	Long:  "Adds an externally-proposed pattern to the review queue. Proposing an already-pending regex again bumps its attempt count instead of duplicating it.",
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

		s, err := env.Manager.Enqueue(ctx, ft, args[1], suggestSample, suggestExpected)
		if err != nil {
			return err
		}
		fmt.Printf("suggestion %s (%s, attempt %d)\n", s.ID, s.Status, s.AttemptCount)
		return nil
	},
}

var suggestStatus string

var suggestListCmd = &cobra.Command{
	Use:   "list",
	Short: "List suggestions",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEngine(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		filter := store.SuggestionFilter{}
		if suggestStatus != "" {
			filter.Status = model.SuggestionStatus(suggestStatus)
		}
		suggestions, err := env.Store.ListSuggestions(ctx, filter)
		if err != nil {
			return err
		}
		if len(suggestions) == 0 {
			fmt.Println("no suggestions")
			return nil
		}
		printSuggestions(os.Stdout, suggestions)
		return nil
	},
}

var approveRegexOverride string

var suggestApproveCmd = &cobra.Command{
	Use:   "approve <id>",
	Short: "Approve a pending suggestion",
	Long:  "Validates the suggestion's regex and promotes it to an active pattern. Fails without changing the suggestion when the regex does not compile.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEngine(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		p, err := env.Manager.Approve(ctx, args[0], approveRegexOverride)
		if err != nil {
			return err
		}
		fmt.Printf("created pattern %s (%s, confidence %.2f)\n", p.ID, p.FieldType, p.Confidence)
		return nil
	},
}

var suggestRejectCmd = &cobra.Command{
	Use:   "reject <id>",
	Short: "Reject a pending suggestion",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEngine(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		if err := env.Manager.Reject(ctx, args[0]); err != nil {
			return err
		}
		fmt.Println("rejected")
		return nil
	},
}

var suggestRetryCmd = &cobra.Command{
	Use:   "retry",
	Short: "Re-enter failed suggestions as pending",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEngine(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		n, err := env.Manager.RetryFailed(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("reset %d suggestions\n", n)
		return nil
	},
}

func printSuggestions(out io.Writer, suggestions []model.PatternSuggestion) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tFIELD\tSTATUS\tATTEMPTS\tREGEX")
	for _, s := range suggestions {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
			s.ID, s.FieldType, s.Status, s.AttemptCount, s.SuggestedRegex)
	}
	_ = w.Flush()
}

func init() {
	suggestAddCmd.Flags().StringVar(&suggestSample, "sample", "", "sample text that motivated the suggestion")
	suggestAddCmd.Flags().StringVar(&suggestExpected, "expected", "", "value the pattern should extract from the sample")
	suggestListCmd.Flags().StringVar(&suggestStatus, "status", "", "filter by status")
	suggestApproveCmd.Flags().StringVar(&approveRegexOverride, "regex", "", "override the suggested regex")

	suggestCmd.AddCommand(suggestAddCmd, suggestListCmd, suggestApproveCmd, suggestRejectCmd, suggestRetryCmd)
	rootCmd.AddCommand(suggestCmd)
}
