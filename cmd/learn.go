package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/scenescout/extract-cli/internal/learner"
)

var learnCmd = &cobra.Command{
	Use:   "learn [field_name]",
	Short: "Generalize corrections into new patterns",
	Long:  "Clusters corrected values by structural shape, replay-validates each candidate regex against history, and promotes the ones that hold up. Without a field name, every field with enough corrections is processed.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEngine(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		var results []learner.Result
		if len(args) == 1 {
			res, err := env.Learner.LearnField(ctx, args[0])
			if err != nil {
				return err
			}
			results = append(results, *res)
		} else {
			results, err = env.Learner.LearnAll(ctx)
			if err != nil {
				return err
			}
		}

		var promoted int
		for _, res := range results {
			promoted += len(res.Promoted)
		}
		if promoted == 0 && len(results) == 0 {
			fmt.Println("nothing to learn yet: no field has enough corrections")
			return nil
		}

		printLearnResults(os.Stdout, results)
		fmt.Printf("\npromoted %d patterns\n", promoted)
		return nil
	},
}

func printLearnResults(out io.Writer, results []learner.Result) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "FIELD\tCANDIDATE\tMEMBERS\tREPLAYS\tRATIO\tOUTCOME")
	for _, res := range results {
		for _, c := range res.Candidates {
			outcome := "promoted"
			if !c.Promoted {
				outcome = c.Reason
			}
			_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%.2f\t%s\n",
				res.FieldName, c.Regex, c.Members, c.Replays, c.Ratio, outcome)
		}
	}
	_ = w.Flush()
}

func init() {
	rootCmd.AddCommand(learnCmd)
}
