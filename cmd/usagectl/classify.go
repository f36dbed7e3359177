package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/powertothepeople/usage-engine/internal/domain"
)

var classifyCmd = &cobra.Command{
	Use:   "classify [file]",
	Short: "Show how a usage file would be classified",
	Args:  cobra.ExactArgs(1),
	RunE:  runClassify,
}

func init() {
	rootCmd.AddCommand(classifyCmd)
}

func runClassify(cmd *cobra.Command, args []string) error {
	h, err := loadHeuristics()
	if err != nil {
		return err
	}
	in, err := readInput(args[0])
	if err != nil {
		return err
	}

	cls := domain.Classify(in, h)
	if cls.Accepted {
		fmt.Printf("accepted: format=%s\n", cls.Format)
		if cls.Warning != "" {
			fmt.Printf("warning: %s\n", cls.Warning)
		}
		return nil
	}

	fmt.Printf("rejected: reason=%s\n", cls.Reason)
	fmt.Printf("message: %s\n", cls.Message)
	return nil
}
