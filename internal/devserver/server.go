// Package devserver is an in-memory lobby server that speaks the same event
// contract as the production chat server. It backs local runs and tests.
package devserver

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/globalchat-lobby/internal/config"
)

// Server serves the room catalog and the lobby websocket.
type Server struct {
	cfg    config.Config
	rooms  *Rooms
	engine *gin.Engine
	log    *zerolog.Logger
}

// New builds the dev server with its routes.
func New(cfg config.Config, logger *zerolog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		cfg:   cfg,
		rooms: NewRooms(cfg.RoomCleanupDelay, logger),
		log:   logger,
	}

	ws := &wsHandler{rooms: s.rooms, maxPerMinute: cfg.MaxMessagesPerMinute, log: logger}

	engine := gin.New()
	engine.Use(gin.Recovery(), LoggerMiddleware(logger))
	engine.GET("/health", healthHandler)
	engine.GET(cfg.CatalogPath, s.listRooms)
	engine.GET(cfg.WSPath, ws.serve)
	s.engine = engine

	return s
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Rooms exposes the registry.
func (s *Server) Rooms() *Rooms {
	return s.rooms
}

// Run listens on cfg.DevAddr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.cfg.DevAddr,
		Handler:           s.engine,
		ReadHeaderTimeout: s.cfg.ReadHeaderTimeout,
	}
	defer s.rooms.Close()

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()
	s.log.Info().Str("addr", s.cfg.DevAddr).Msg("dev server listening")

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()

		s.log.Info().Msg("shutting down dev server")
		if err := server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return <-serverErr
	}
}

func (s *Server) listRooms(c *gin.Context) {
	c.JSON(http.StatusOK, s.rooms.List())
}

func healthHandler(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}
