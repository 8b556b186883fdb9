package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var ingestJSON bool

var ingestCmd = &cobra.Command{
	Use:   "ingest [path...]",
	Short: "Add files or folders to the knowledge base",
	Long: `Embeds every allowed file under the given paths into the knowledge-base
collection. Files already stored are reported as duplicates.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().BoolVar(&ingestJSON, "json", false, "print the result as JSON")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.Service.IngestPaths(cmd.Context(), args...)
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}
	if ingestJSON {
		data, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal result: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}
	for _, d := range res.Details {
		cmd.Printf("%-10s %s\n", d.Status, d.Filename)
	}
	cmd.Printf("Ingested %d file(s) (job %d)\n", res.IngestedCount, res.JobID)
	return nil
}
