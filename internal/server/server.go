// Package server exposes the engine's command surface over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"go-jobcard-manager/internal/engine"
	"go-jobcard-manager/internal/settings"
)

// Controller is the part of the engine the server drives.
type Controller interface {
	Handle(ctx context.Context, cmd engine.Command) engine.Response
	Stats() engine.Stats
	Settings() settings.Settings
}

type Server struct {
	ctrl   Controller
	router *gin.Engine
}

func New(ctrl Controller) *Server {
	r := gin.New()
	r.Use(gin.Recovery())
	s := &Server{ctrl: ctrl, router: r}

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "Job card manager is running!",
			"status":  "healthy",
		})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	api.GET("/ping", s.ping)
	api.GET("/stats", s.stats)
	api.GET("/settings", s.getSettings)
	api.POST("/commands", s.command)
	return s
}

// Handler returns the HTTP handler, for tests and custom servers.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) ping(c *gin.Context) {
	c.JSON(http.StatusOK, s.ctrl.Handle(c.Request.Context(), engine.Command{Action: "ping"}))
}

func (s *Server) stats(c *gin.Context) {
	c.JSON(http.StatusOK, s.ctrl.Stats())
}

func (s *Server) getSettings(c *gin.Context) {
	c.JSON(http.StatusOK, s.ctrl.Settings())
}

func (s *Server) command(c *gin.Context) {
	var cmd engine.Command
	if err := c.ShouldBindJSON(&cmd); err != nil {
		c.JSON(http.StatusBadRequest, engine.Response{Status: engine.StatusError, Message: fmt.Sprintf("invalid command: %v", err)})
		return
	}
	if cmd.Action == "" {
		c.JSON(http.StatusBadRequest, engine.Response{Status: engine.StatusError, Message: "missing action"})
		return
	}
	c.JSON(http.StatusOK, s.ctrl.Handle(c.Request.Context(), cmd))
}

// Run serves on addr until ctx ends, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("🌐 Command server listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("command server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown command server: %w", err)
		}
		return nil
	}
}
