package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/hrygo/angelo/ai"
	"github.com/hrygo/angelo/internal/profile"
	"github.com/hrygo/angelo/internal/version"
	apiv1 "github.com/hrygo/angelo/server/router/api/v1"
	"github.com/hrygo/angelo/store"
)

// Server is the assistant HTTP server.
type Server struct {
	Profile   *profile.Profile
	Store     *store.Store
	Assistant *ai.Assistant

	echoServer *echo.Echo
}

func NewServer(ctx context.Context, profile *profile.Profile, store *store.Store, assistant *ai.Assistant) (*Server, error) {
	s := &Server{
		Profile:   profile,
		Store:     store,
		Assistant: assistant,
	}

	echoServer := echo.New()
	echoServer.Debug = profile.IsDev()
	echoServer.HideBanner = true
	echoServer.HidePort = true
	echoServer.Use(middleware.Recover())
	echoServer.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:  true,
		LogURI:     true,
		LogMethod:  true,
		LogLatency: true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			slog.Debug("http request",
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency_ms", v.Latency.Milliseconds(),
			)
			return nil
		},
	}))
	s.echoServer = echoServer

	echoServer.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version.GetCurrentVersion(profile.Mode),
		})
	})
	echoServer.GET("/metrics", echo.WrapHandler(assistant.Metrics.Handler()))

	apiV1Service := apiv1.NewAPIV1Service(profile, store, assistant)
	apiV1Service.RegisterRoutes(echoServer)

	go assistant.Warmup(ctx)
	return s, nil
}

// Echo exposes the router, for tests.
func (s *Server) Echo() *echo.Echo {
	return s.echoServer
}

// Start serves until Shutdown. A clean shutdown returns nil.
func (s *Server) Start(_ context.Context) error {
	address := fmt.Sprintf("%s:%d", s.Profile.Addr, s.Profile.Port)
	slog.Info("Angelo started", "address", address, "mode", s.Profile.Mode, "version", version.String())
	if err := s.echoServer.Start(address); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "failed to start server")
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	slog.Info("server shutting down")
	if err := s.echoServer.Shutdown(ctx); err != nil {
		slog.Error("failed to shutdown server", slog.String("error", err.Error()))
	}
	s.Assistant.Close()
	if err := s.Store.Close(); err != nil {
		slog.Error("failed to close database", slog.String("error", err.Error()))
	}
	slog.Info("server stopped properly")
}
