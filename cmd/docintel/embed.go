package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"docintel/internal/embedding"
	"docintel/internal/embedding/llama"
	"docintel/internal/inference"
)

var (
	embedHost string
	embedPort int
)

var embedCmd = &cobra.Command{
	Use:   "embed [text...]",
	Short: "Print the pooled embedding of a text",
	Long: `Embeds the given text through the inference server, chunking and pooling
exactly as ingestion does, and prints the vector as JSON.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runEmbed,
}

func init() {
	embedCmd.Flags().StringVar(&embedHost, "host", "", "inference server host (overrides llama_server.host)")
	embedCmd.Flags().IntVar(&embedPort, "port", 0, "inference server port (overrides llama_server.port)")
	rootCmd.AddCommand(embedCmd)
}

func runEmbed(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	host, port := cfg.LlamaServer.Host, cfg.LlamaServer.Port
	if embedHost != "" {
		host = embedHost
	}
	if embedPort != 0 {
		port = embedPort
	}

	emb := embedding.NewEmbedder(llama.NewHostClient(host, port, inference.NewGate()), embedding.Config{
		HiddenSize:   cfg.EmbeddingHiddenSize,
		MaxChunkSize: cfg.MaxEmbeddingInputLength,
		ChunkPause:   cfg.Embedding.ChunkPause(),
	})
	vec, err := emb.Embed(cmd.Context(), strings.Join(args, " "))
	if err != nil {
		return fmt.Errorf("embed failed: %w", err)
	}
	data, err := json.Marshal(vec)
	if err != nil {
		return err
	}
	cmd.Println(string(data))
	return nil
}
