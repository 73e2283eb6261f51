// Package server exposes the update job as an HTTP function.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/labstack/echo/v4"

	"telesheet/internal/retry"
)

// ScheduledHeader is set by the scheduler that invokes the function.
const ScheduledHeader = "X-Netlify-Scheduled"

// Job performs one update.
type Job func(ctx context.Context) error

type Options struct {
	Timeout          time.Duration // zero for none
	RequireScheduled bool          // reject calls without ScheduledHeader
}

type Server struct {
	echo    *echo.Echo
	job     Job
	opts    Options
	log     *slog.Logger
	running atomic.Bool
}

func New(job Job, opts Options, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{echo: echo.New(), job: job, opts: opts, log: log}
	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.echo.Use(s.recoverPanics, s.logRequests)

	s.echo.GET("/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "OK")
	})
	s.echo.POST("/run", s.handleRun)
	return s
}

// Handler is the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.echo
}

func message(msg string) map[string]string { return map[string]string{"message": msg} }
func failure(msg string) map[string]string { return map[string]string{"error": msg} }

func (s *Server) handleRun(c echo.Context) error {
	if s.opts.RequireScheduled && c.Request().Header.Get(ScheduledHeader) == "" {
		return c.JSON(http.StatusBadRequest, message("This function can only be triggered by a schedule."))
	}
	if !s.running.CompareAndSwap(false, true) {
		return c.JSON(http.StatusConflict, failure("An update is already running"))
	}

	// released when the job returns, which may be after a timeout response
	err := retry.WithTimeout(c.Request().Context(), s.opts.Timeout, func(ctx context.Context) error {
		defer s.running.Store(false)
		return s.job(ctx)
	})
	switch {
	case err == nil:
		return c.JSON(http.StatusOK, message("Data updated successfully"))
	case errors.Is(err, retry.ErrTimeout):
		s.log.Error("update timed out", "timeout", s.opts.Timeout)
		return c.JSON(http.StatusGatewayTimeout, failure("Update timed out"))
	default:
		s.log.Error("update failed", "err", err)
		return c.JSON(http.StatusInternalServerError, failure("Failed to update data"))
	}
}

func (s *Server) recoverPanics(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		defer func() {
			if r := recover(); r != nil {
				s.log.Error("recovered from panic", "panic", r)
				err = c.JSON(http.StatusInternalServerError, failure("Failed to update data"))
			}
		}()
		return next(c)
	}
}

func (s *Server) logRequests(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		if err != nil {
			c.Error(err)
		}
		req := c.Request()
		s.log.Info("request",
			"method", req.Method,
			"path", req.URL.Path,
			"status", c.Response().Status,
			"latency", time.Since(start),
			"ip", c.RealIP(),
		)
		return nil
	}
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	errc := make(chan error, 1)
	go func() {
		s.log.Info("server listening", "addr", addr)
		errc <- s.echo.Start(addr)
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("failed to serve: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.echo.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down: %w", err)
		}
		return nil
	}
}
