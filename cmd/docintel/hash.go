package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"docintel/internal/dedup"
)

var hashCmd = &cobra.Command{
	Use:   "hash [file...]",
	Short: "Print the content hash used for deduplication",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, path := range args {
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read %s: %w", path, err)
			}
			cmd.Printf("%s  %s\n", dedup.ComputeHash(data), path)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(hashCmd)
}
