package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"github.com/Ramsey-B/fern/pkg/middleware"
	"github.com/Ramsey-B/fern/pkg/routes/health"
	"github.com/Ramsey-B/fern/pkg/routes/quality"
	"github.com/Ramsey-B/fern/pkg/routes/runs"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the run API",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		cfg, logger := current.cfg, current.logger
		s, err := buildServices(ctx, current)
		if err != nil {
			return err
		}
		defer s.stop(ctx)

		e := echo.New()
		e.HideBanner = true
		e.HidePort = true
		e.HTTPErrorHandler = middleware.Error(logger)
		e.Server.ReadTimeout = time.Duration(cfg.HttpServerReadTimeoutSeconds) * time.Second
		e.Server.WriteTimeout = time.Duration(cfg.HttpServerWriteTimeoutSeconds) * time.Second
		e.Server.IdleTimeout = time.Duration(cfg.HttpServerIdleTimeoutSeconds) * time.Second

		e.Use(echomw.Recover())
		e.Use(otelecho.Middleware(cfg.AppName))
		e.Use(middleware.Context())
		e.Use(middleware.Logger(logger))
		e.Use(echomw.CORSWithConfig(echomw.CORSConfig{AllowOrigins: cfg.AllowOrigins}))

		checker := health.NewChecker(Version, s.healthChecks())
		checker.RegisterRoutes(e)
		e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

		api := e.Group("/api/v1")
		if cfg.AuthEnabled {
			verifier, err := middleware.NewOIDCVerifier(ctx, cfg.AuthIssuerURL, cfg.AuthClientID)
			if err != nil {
				return err
			}
			api.Use(middleware.Authentication(logger, verifier))
		}

		var store runs.WellStore
		if s.runs != nil {
			store = s.runs
		}
		triggered := runs.Register(api, s.runner, store, logger)
		quality.Register(api, s.runner)

		errCh := make(chan error, 1)
		go func() {
			logger.WithContext(ctx).Infof("Listening on :%d", cfg.Port)
			if err := e.Start(fmt.Sprintf(":%d", cfg.Port)); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()
		checker.SetReady(true)

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}

		checker.SetReady(false)
		logger.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := e.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := triggered.Wait(shutdownCtx); err != nil {
			logger.WithError(err).Warn("Triggered run still in progress at shutdown")
		}
		return nil
	},
}
