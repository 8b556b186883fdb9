package main

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"docintel/internal/tui"
)

var (
	chatSession string
	chatTopK    int
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the knowledge base in the terminal",
	Args:  cobra.NoArgs,
	RunE:  runChat,
}

func init() {
	chatCmd.Flags().StringVar(&chatSession, "session", "", "resume an existing session id")
	chatCmd.Flags().IntVarP(&chatTopK, "top-k", "k", 0, "number of chunks to retrieve (0 uses retrieval.top_k)")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, _ []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.Close()

	m := tui.New(cmd.Context(), a.Service, chatSession, chatTopK)
	_, err = tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}
