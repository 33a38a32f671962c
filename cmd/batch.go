package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/scenescout/extract-cli/internal/matcher"
	"github.com/scenescout/extract-cli/internal/model"
)

var batchConcurrency int

var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Extract fields from many posts",
	Long:  "Reads one post per line from the given file and extracts all fields from each. A failing post is reported and does not stop the batch.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		items, err := readBatchItems(args[0])
		if err != nil {
			return err
		}
		if len(items) == 0 {
			fmt.Println("no posts to process")
			return nil
		}

		env, err := initEngine(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		concurrency := batchConcurrency
		if concurrency == 0 {
			concurrency = cfg.Engine.BatchConcurrency
		}

		results, err := env.Matcher.ExtractBatch(ctx, items, concurrency)
		if err != nil {
			return eris.Wrap(err, "batch extract")
		}

		var failed int
		for _, res := range results {
			if res.Err != nil {
				failed++
				zap.L().Error("post extraction failed",
					zap.String("post", res.ID), zap.Error(res.Err))
				continue
			}
			fmt.Printf("--- %s\n", res.ID)
			if len(res.Extractions) == 0 {
				fmt.Println("no fields matched")
				continue
			}
			printExtractions(os.Stdout, res.Extractions)
		}

		fmt.Printf("\nprocessed %d posts, %d failed\n", len(results), failed)
		return nil
	},
}

func readBatchItems(path string) ([]matcher.BatchItem, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "open %s", path)
	}
	defer f.Close()

	var items []matcher.BatchItem
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		items = append(items, matcher.BatchItem{
			ID:   fmt.Sprintf("line-%d", line),
			Text: text,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, eris.Wrapf(err, "read %s", path)
	}
	return items, nil
}

// printExtractions writes a tabular representation of extractions to w.
func printExtractions(out io.Writer, extractions []model.Extraction) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "FIELD\tVALUE\tMETHOD\tCONFIDENCE\tPATTERN")
	for _, e := range extractions {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%.2f\t%s\n",
			e.FieldType, e.Value, e.Method, e.Confidence, e.PatternID)
	}
	_ = w.Flush()
}

func init() {
	batchCmd.Flags().IntVar(&batchConcurrency, "concurrency", 0, "concurrent posts (default from config)")
	rootCmd.AddCommand(batchCmd)
}
