package main

import (
	"time"

	"github.com/spf13/cobra"

	"docintel/internal/watcher"
)

var (
	watchDebounce time.Duration
	watchNoScan   bool
)

var watchCmd = &cobra.Command{
	Use:   "watch [folder]",
	Short: "Ingest documents as they appear in a folder",
	Args:  cobra.ExactArgs(1),
	RunE:  runWatch,
}

func init() {
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", watcher.DefaultDebounce, "quiet period before a changed file is ingested")
	watchCmd.Flags().BoolVar(&watchNoScan, "no-scan", false, "skip ingesting files already present")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signalContext(cmd.Context())
	defer stop()
	w := watcher.New(a.Service, a.Config.IsAllowedExtension, watchDebounce)
	return w.Run(ctx, args[0], !watchNoScan)
}
