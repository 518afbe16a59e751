// Package server wires the HTTP server, the store, the AI services, and the
// background runners into one process.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/hrygo/thoughtstream/internal/profile"
	"github.com/hrygo/thoughtstream/plugin/ai"
	"github.com/hrygo/thoughtstream/plugin/ai/vector"
	"github.com/hrygo/thoughtstream/server/internal/observability"
	apiv1 "github.com/hrygo/thoughtstream/server/router/api/v1"
	"github.com/hrygo/thoughtstream/server/runner/embedding"
	"github.com/hrygo/thoughtstream/store"
)

type Server struct {
	Profile *profile.Profile
	Store   *store.Store

	echoServer *echo.Echo
	apiV1      *apiv1.APIV1Service
	runner     *embedding.Runner
}

// NewServer creates the server: vector index, v1 API, and the reindex
// runner. The index is optional; without AI credentials the service still
// captures thoughts and answers lexical searches.
func NewServer(ctx context.Context, p *profile.Profile, s *store.Store) (*Server, error) {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(echomw.Recover())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: p.AllowedOrigins(),
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
	}))

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "Service ready.")
	})
	e.GET("/metrics", func(c echo.Context) error {
		return c.JSON(http.StatusOK, observability.GlobalMetrics().Snapshot())
	})

	index, err := buildIndex(ctx, p, s)
	if err != nil {
		// Degraded mode keeps the capture and lexical paths alive.
		slog.Warn("vector index unavailable, running lexical-only", "error", err)
		index = nil
	}

	server := &Server{
		Profile:    p,
		Store:      s,
		echoServer: e,
	}

	server.apiV1 = apiv1.NewAPIV1Service(p.APIKey, p, s, index)
	server.apiV1.Register(e)

	if index != nil {
		server.runner = embedding.NewRunner(s, index)
		server.apiV1.Tracker = server.runner
	}

	return server, nil
}

// buildIndex picks the vector backend from the profile. Both backends need
// an embedding service; without one there is no semantic index.
func buildIndex(ctx context.Context, p *profile.Profile, s *store.Store) (vector.Index, error) {
	if !p.IsAIEnabled() {
		return nil, errors.New("AI is not enabled")
	}
	aiConfig := ai.NewConfigFromProfile(p)
	if err := aiConfig.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid AI configuration")
	}
	embedder, err := ai.NewEmbeddingService(&aiConfig.Embedding)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create embedding service")
	}

	switch p.VectorBackend {
	case "chroma":
		_, collection, err := vector.OpenChromaCollection(ctx, p.ChromaURL, p.ChromaCollection)
		if err != nil {
			return nil, errors.Wrap(err, "failed to open chroma collection")
		}
		return vector.NewChromaIndex(collection, embedder), nil
	case "postgres":
		return vector.NewStoreIndex(s, embedder), nil
	default:
		return nil, errors.Errorf("unknown vector backend %q", p.VectorBackend)
	}
}

// Start runs the HTTP listener and the background runner until the context
// is cancelled.
func (s *Server) Start(ctx context.Context) error {
	if s.runner != nil {
		go s.runner.Run(ctx)
	}

	address := fmt.Sprintf("%s:%d", s.Profile.Addr, s.Profile.Port)
	slog.Info("server started", "address", address, "mode", s.Profile.Mode)
	if err := s.echoServer.Start(address); err != nil && err != http.ErrServerClosed {
		return errors.Wrap(err, "failed to start echo server")
	}
	return nil
}

// Shutdown drains in-flight requests and closes the store.
func (s *Server) Shutdown(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := s.echoServer.Shutdown(ctx); err != nil {
		slog.Error("failed to shut down server", "error", err)
	}
	if err := s.Store.Close(); err != nil {
		slog.Error("failed to close store", "error", err)
	}
	slog.Info("server shut down")
}
