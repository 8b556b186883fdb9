// Package server exposes the document service over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"docintel/internal/app"
	"docintel/internal/logger"
)

// Server serves the HTTP API of one App.
type Server struct {
	app    *app.App
	engine *gin.Engine
}

func New(a *app.App) *Server {
	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger())
	s := &Server{app: a, engine: engine}
	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.engine
	r.GET("/healthz", s.health)
	r.POST("/gen_summary", s.genSummary)
	r.POST("/qna_on_docs", s.qnaOnDocs)
	r.POST("/find_obligations", s.findObligations)
	r.POST("/find_risks", s.findRisks)
	r.POST("/ingest", s.ingest)
	r.POST("/chat_with_kb", s.chatWithKB)
	r.POST("/chat_with_docs", s.chatWithDocs)
	r.GET("/sessions/:id", s.sessionHistory)
	r.DELETE("/sessions/:id", s.deleteSession)
	r.GET("/jobs", s.listJobs)
}

// Handler returns the HTTP handler of the API.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on addr until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP API listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	logger.Info("Shutting down HTTP API")
	return srv.Shutdown(shutdownCtx)
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.With("http").Info("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start).Round(time.Millisecond))
	}
}
