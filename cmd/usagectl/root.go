package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/powertothepeople/usage-engine/internal/config"
	"github.com/powertothepeople/usage-engine/internal/domain"
)

var rootCmd = &cobra.Command{
	Use:   "usagectl",
	Short: "Inspect utility usage files and run extractions from the command line",
	Long: `usagectl runs the same classification, parsing, and annualization the
service applies to uploads, against local files. Useful for checking why a
customer's export was rejected or what estimate it would produce.`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadHeuristics honors HEURISTICS_FILE the same way the service does.
func loadHeuristics() (domain.Heuristics, error) {
	cfg, err := config.Load()
	if err != nil {
		return domain.Heuristics{}, err
	}
	return cfg.Heuristics, nil
}

func readInput(path string) (domain.RawInput, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return domain.RawInput{}, fmt.Errorf("reading %s: %w", path, err)
	}
	return domain.RawInput{Filename: path, Content: content}, nil
}
