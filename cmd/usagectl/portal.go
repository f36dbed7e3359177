package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/powertothepeople/usage-engine/internal/adapter/smt"
	"github.com/powertothepeople/usage-engine/internal/config"
	"github.com/powertothepeople/usage-engine/internal/domain"
)

var portalUsername string

var portalCmd = &cobra.Command{
	Use:   "portal",
	Short: "Fetch usage through a live metering-portal session",
	Long: `Authenticates against the portal configured via PORTAL_BASE_URL and prints
the normalized record. The password comes from PORTAL_PASSWORD or is read
from stdin; it is never stored.`,
	RunE: runPortal,
}

func init() {
	portalCmd.Flags().StringVarP(&portalUsername, "username", "u", "", "portal account username")
	rootCmd.AddCommand(portalCmd)
}

func runPortal(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.PortalBaseURL == "" {
		return fmt.Errorf("PORTAL_BASE_URL is not set")
	}
	if portalUsername == "" {
		return fmt.Errorf("--username is required")
	}

	password := os.Getenv("PORTAL_PASSWORD")
	if password == "" {
		fmt.Fprint(os.Stderr, "password: ")
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil {
			return fmt.Errorf("reading password: %w", err)
		}
		password = strings.TrimSpace(line)
	}
	if password == "" {
		return fmt.Errorf("a password is required")
	}

	client := smt.NewClient(cfg.PortalBaseURL, cfg.PortalTimeout, slog.Default())
	usage, err := client.FetchUsage(context.Background(), portalUsername, password)
	if err != nil {
		return err
	}

	rec := domain.Reconcile([]domain.Candidate{domain.PortalCandidate(usage)}, cfg.Heuristics)
	fmt.Printf("annual usage: %s kWh (live portal)\n", humanize.Comma(int64(rec.AnnualKWh)))
	if rec.MeterID != "" {
		fmt.Printf("meter:        %s\n", rec.MeterID)
	}
	if rec.Warning != "" {
		fmt.Printf("warning:      %s\n", rec.Warning)
	}
	return nil
}
