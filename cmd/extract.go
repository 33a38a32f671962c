package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/scenescout/extract-cli/internal/model"
)

var (
	extractField string
	extractFile  string
)

var extractCmd = &cobra.Command{
	Use:   "extract [text]",
	Short: "Extract event fields from post text",
	Long:  "Applies the active pattern set to the given text (or a file via --file) and prints the extracted fields. With --field, only that field is extracted.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		text, err := inputText(args)
		if err != nil {
			return err
		}

		env, err := initEngine(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		fields := model.AllFieldTypes()
		if extractField != "" {
			ft, err := model.FieldTypeForName(extractField)
			if err != nil {
				return err
			}
			fields = []model.FieldType{ft}
		}

		var extractions []model.Extraction
		for _, ft := range fields {
			ext, err := env.Matcher.Extract(ctx, text, ft)
			if err != nil {
				return eris.Wrapf(err, "extract %s", ft)
			}
			if ext != nil {
				extractions = append(extractions, *ext)
			}
		}

		if len(extractions) == 0 {
			fmt.Println("no fields matched")
			return nil
		}
		printExtractions(os.Stdout, extractions)
		return nil
	},
}

func inputText(args []string) (string, error) {
	if extractFile != "" {
		data, err := os.ReadFile(extractFile)
		if err != nil {
			return "", eris.Wrapf(err, "read %s", extractFile)
		}
		return string(data), nil
	}
	if len(args) == 1 && strings.TrimSpace(args[0]) != "" {
		return args[0], nil
	}
	return "", eris.New("provide post text as an argument or via --file")
}

func init() {
	extractCmd.Flags().StringVar(&extractField, "field", "", "extract a single field (e.g. time, event_date, price)")
	extractCmd.Flags().StringVar(&extractFile, "file", "", "read post text from a file")
	rootCmd.AddCommand(extractCmd)
}
