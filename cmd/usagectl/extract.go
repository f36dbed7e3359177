package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/powertothepeople/usage-engine/internal/domain"
)

var extractJSON bool

var extractCmd = &cobra.Command{
	Use:   "extract [file]",
	Short: "Run the full extraction and print the normalized record",
	Long: `Classifies and parses the file, annualizes the readings, and prints the
normalized usage record the service would produce. Files that can't be read
fall back to the regional default, exactly as the service does.`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

func init() {
	extractCmd.Flags().BoolVar(&extractJSON, "json", false, "print the record as JSON")
	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
	h, err := loadHeuristics()
	if err != nil {
		return err
	}
	in, err := readInput(args[0])
	if err != nil {
		return err
	}

	rec := extractRecord(in, h)
	if extractJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rec)
	}

	printRecord(rec)
	return nil
}

// extractRecord mirrors the service's file path: rejection or parse failure
// degrades to the regional-default record.
func extractRecord(in domain.RawInput, h domain.Heuristics) domain.NormalizedUsageRecord {
	cls := domain.Classify(in, h)
	if !cls.Accepted {
		fmt.Printf("note: file rejected (%s); falling back to regional default\n", cls.Reason)
		return domain.Reconcile(nil, h)
	}

	var ex *domain.Extraction
	var err error
	switch cls.Format {
	case domain.FormatSMTCSV:
		ex, err = domain.ParseUsageCSV(in.Content, h)
	default:
		ex, err = domain.ParseGreenButton(in.Content, h)
	}
	if err != nil {
		fmt.Printf("note: parse failed (%v); falling back to regional default\n", err)
		return domain.Reconcile(nil, h)
	}

	est, err := domain.Annualize(*ex, h)
	if err != nil {
		fmt.Println("note: no usable readings; falling back to regional default")
		return domain.Reconcile(nil, h)
	}

	warning := cls.Warning
	if warning == "" {
		warning = ex.Warning
	}
	return domain.Reconcile([]domain.Candidate{
		domain.FileCandidate(ex.Series, est, warning),
	}, h)
}

func printRecord(rec domain.NormalizedUsageRecord) {
	fmt.Printf("annual usage: %s kWh\n", humanize.Comma(int64(rec.AnnualKWh)))
	fmt.Printf("source:       %s\n", rec.Source)
	if rec.Method != "" {
		fmt.Printf("method:       %s\n", rec.Method)
	}
	if rec.Quality != "" {
		fmt.Printf("quality:      %s\n", rec.Quality)
	}
	if rec.MeterID != "" {
		fmt.Printf("meter:        %s\n", rec.MeterID)
	}
	if len(rec.Monthly.Entries) > 0 {
		fmt.Printf("months:       %d\n", len(rec.Monthly.Entries))
		for _, m := range rec.Monthly.Entries {
			fmt.Printf("  %04d-%02d  %10s kWh\n", m.Year, m.Month, humanize.CommafWithDigits(m.KWh, 1))
		}
	}
	if rec.Warning != "" {
		fmt.Printf("warning:      %s\n", rec.Warning)
	}
}
