package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ehr/healthsync/internal/config"
	"github.com/ehr/healthsync/internal/domain/healthrecord"
	"github.com/ehr/healthsync/internal/domain/identity"
	"github.com/ehr/healthsync/internal/fhirsync"
	"github.com/ehr/healthsync/internal/platform/auth"
	"github.com/ehr/healthsync/internal/platform/db"
	"github.com/ehr/healthsync/internal/platform/middleware"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "healthsync",
		Short:        "Sync a patient's health record from a remote FHIR server",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(syncCmd())
	rootCmd.AddCommand(bootstrapCmd())
	rootCmd.AddCommand(statusCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server and the sync scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func newLogger(cfg *config.Config) zerolog.Logger {
	var logger zerolog.Logger
	if cfg.IsDev() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout})
	} else {
		logger = zerolog.New(os.Stdout)
	}
	return logger.Level(cfg.Level()).With().Timestamp().Logger()
}

func newEcho(a *app) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(a.logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(a.logger))
	e.Use(echomw.BodyLimit("1M"))

	e.GET("/health", db.HealthHandler(a.pool, a.checks()...))

	authMW := auth.DevAuthMiddleware()
	if !a.cfg.IsDev() {
		authMW = auth.JWTMiddleware(auth.JWTConfig{
			SigningKey: []byte(a.cfg.AuthSigningKey),
			Issuer:     a.cfg.AuthIssuer,
			Audience:   a.cfg.AuthAudience,
		})
	}
	apiV1 := e.Group("/api/v1", authMW, auth.RequirePatient())

	identity.NewHandler(identity.NewService(a.patients)).RegisterRoutes(apiV1)
	healthrecord.NewHandler(a.records, a.patients).RegisterRoutes(apiV1)
	fhirsync.NewHandler(a.scheduler, a.patients).RegisterRoutes(apiV1)
	return e
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger := newLogger(cfg)
	if cfg.IsDev() {
		logger.Warn().Msg("development mode: API requests are not authenticated")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	if cfg.PatientFHIRID != "" {
		p, err := a.resolvePatient(ctx, cfg.PatientUserID, cfg.PatientFHIRID)
		if err != nil {
			return err
		}
		if err := a.scheduler.Start(ctx, p); err != nil {
			return err
		}
		defer a.scheduler.Stop()
	} else {
		logger.Info().Msg("PATIENT_FHIR_ID not set; scheduler idle")
	}

	e := newEcho(a)
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("fhir", cfg.FHIRBaseURL).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("server error")
			stop()
		}
	}()

	<-ctx.Done()

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}
