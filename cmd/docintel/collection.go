package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"docintel/internal/domain"
)

var initCollectionRecreate bool

var initCollectionCmd = &cobra.Command{
	Use:   "init-collection",
	Short: "Create the knowledge-base collection",
	Long: `Creates the configured collection with the configured vector size and
distance. With --recreate an existing collection is dropped first.`,
	Args: cobra.NoArgs,
	RunE: runInitCollection,
}

func init() {
	initCollectionCmd.Flags().BoolVar(&initCollectionRecreate, "recreate", false, "drop and recreate an existing collection")
	rootCmd.AddCommand(initCollectionCmd)
}

func runInitCollection(cmd *cobra.Command, _ []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.Close()

	q := a.Config.Qdrant
	distance := domain.ParseDistance(q.Distance)
	if initCollectionRecreate {
		err = a.Store.RecreateCollection(cmd.Context(), q.CollectionName, q.VectorSize, distance)
	} else {
		err = a.Store.EnsureCollection(cmd.Context(), q.CollectionName, q.VectorSize, distance)
	}
	if err != nil {
		return fmt.Errorf("init collection %s: %w", q.CollectionName, err)
	}
	info, err := a.Store.CollectionInfo(cmd.Context(), q.CollectionName)
	if err != nil {
		return err
	}
	cmd.Printf("Collection %s ready (size %d, distance %s)\n", info.Name, info.Size, info.Distance)
	return nil
}
