package main

import (
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"docintel/internal/server"
)

var (
	serveAddr  string
	serveDebug bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides server.addr)")
	serveCmd.Flags().BoolVar(&serveDebug, "debug", false, "run gin in debug mode")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if !serveDebug {
		gin.SetMode(gin.ReleaseMode)
	}
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.Close()

	addr := a.Config.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}
	ctx, stop := signalContext(cmd.Context())
	defer stop()
	return server.New(a).Run(ctx, addr)
}
