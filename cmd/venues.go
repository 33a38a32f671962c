package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/scenescout/extract-cli/internal/model"
	"github.com/scenescout/extract-cli/internal/venue"
)

var venuesCmd = &cobra.Command{
	Use:   "venues",
	Short: "Resolve and manage the venue registry",
}

var resolveThreshold float64

var venuesResolveCmd = &cobra.Command{
	Use:   "resolve <query>",
	Short: "Fuzzy-match a venue spelling against the registry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEngine(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		matches, err := env.Resolver.FindSimilarVenues(ctx, args[0], resolveThreshold)
		if err != nil {
			return err
		}
		if len(matches) == 0 {
			fmt.Println("no similar venues")
			return nil
		}
		printVenueMatches(os.Stdout, matches)
		return nil
	},
}

var importSheet string

var venuesImportCmd = &cobra.Command{
	Use:   "import <workbook.xlsx>",
	Short: "Bulk-import venues from a spreadsheet",
	Long:  "Imports registry entries from an XLSX workbook (columns: name, aliases, address, city, lat, lng). Re-running the same workbook updates entries instead of duplicating them.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		venues, err := venue.ReadWorkbook(args[0], venue.ImportOptions{SheetName: importSheet})
		if err != nil {
			return err
		}
		if len(venues) == 0 {
			fmt.Println("workbook contains no venues")
			return nil
		}

		env, err := initEngine(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		n, err := env.Store.ImportVenues(ctx, venues)
		if err != nil {
			return err
		}
		fmt.Printf("imported %d venues\n", n)
		return nil
	},
}

var (
	confirmOriginalName string
	confirmOriginalAddr string
)

var venuesConfirmCmd = &cobra.Command{
	Use:   "confirm <corrected_venue_name>",
	Short: "Record evidence that a free-text spelling maps to a venue",
	Long:  "Accumulates a location correction. Repeating the same observation bumps its count and confidence instead of creating a duplicate.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEngine(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		lc, err := env.Store.RecordLocationCorrection(ctx, model.LocationCorrection{
			OriginalName:       confirmOriginalName,
			OriginalAddress:    confirmOriginalAddr,
			CorrectedVenueName: args[0],
			CorrectionCount:    1,
			ConfidenceScore:    0.5,
		})
		if err != nil {
			return err
		}
		fmt.Printf("correction count %d, confidence %.2f\n", lc.CorrectionCount, lc.ConfidenceScore)
		return nil
	},
}

var (
	nearbyLat    float64
	nearbyLng    float64
	nearbyRadius float64
)

var venuesNearbyCmd = &cobra.Command{
	Use:   "nearby",
	Short: "List registry venues near a coordinate",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEngine(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		venues, err := env.Store.ListVenues(ctx)
		if err != nil {
			return err
		}

		near := venue.Nearby(venues, nearbyLng, nearbyLat, nearbyRadius)
		if len(near) == 0 {
			fmt.Println("no venues in range")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(w, "VENUE\tCITY\tDISTANCE")
		for _, nv := range near {
			_, _ = fmt.Fprintf(w, "%s\t%s\t%.1f km\n", nv.Venue.Name, nv.Venue.City, nv.DistanceKm)
		}
		_ = w.Flush()
		return nil
	},
}

func printVenueMatches(out io.Writer, matches []model.VenueMatch) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "VENUE\tSIMILARITY\tMATCHED\tCONFIRMATIONS")
	for _, m := range matches {
		_, _ = fmt.Fprintf(w, "%s\t%.2f\t%s\t%d\n",
			m.Venue.Name, m.Similarity, m.MatchedText, m.CorrectionCount)
	}
	_ = w.Flush()
}

func init() {
	venuesResolveCmd.Flags().Float64Var(&resolveThreshold, "threshold", 0, "similarity threshold (default from config)")
	venuesImportCmd.Flags().StringVar(&importSheet, "sheet", "", "sheet name (default first sheet)")
	venuesConfirmCmd.Flags().StringVar(&confirmOriginalName, "name", "", "free-text venue name as seen in a post")
	venuesConfirmCmd.Flags().StringVar(&confirmOriginalAddr, "address", "", "free-text address as seen in a post")
	venuesNearbyCmd.Flags().Float64Var(&nearbyLat, "lat", 0, "latitude")
	venuesNearbyCmd.Flags().Float64Var(&nearbyLng, "lng", 0, "longitude")
	venuesNearbyCmd.Flags().Float64Var(&nearbyRadius, "radius", 10, "radius in km")

	venuesCmd.AddCommand(venuesResolveCmd, venuesImportCmd, venuesConfirmCmd, venuesNearbyCmd)
	rootCmd.AddCommand(venuesCmd)
}
