package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/dentaray/dentaray/internal/config"
	"github.com/dentaray/dentaray/internal/domain/analysis"
	"github.com/dentaray/dentaray/internal/domain/identity"
	"github.com/dentaray/dentaray/internal/domain/note"
	"github.com/dentaray/dentaray/internal/domain/organization"
	"github.com/dentaray/dentaray/internal/domain/patient"
	"github.com/dentaray/dentaray/internal/platform/auth"
	"github.com/dentaray/dentaray/internal/platform/db"
	"github.com/dentaray/dentaray/internal/platform/detect"
	"github.com/dentaray/dentaray/internal/platform/imagestore"
	"github.com/dentaray/dentaray/internal/platform/middleware"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "dentaray-server",
		Short: "Dental X-ray analysis API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			count, err := migrator.Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			statuses, err := migrator.Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	return cmd
}

func runServer() error {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	images, err := imagestore.NewDiskStore(cfg.UploadDir, cfg.MaxUploadSize, cfg.AllowedExts)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to prepare upload directory")
	}

	detector := detect.NewHTTPDetector(cfg.DetectURL, cfg.DetectTimeout)

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))
	e.Use(middleware.BodyLimit(cfg.MaxUploadSize + 1024*1024))

	// Repositories and services
	userRepo := identity.NewRepo(pool)
	orgRepo := organization.NewRepo(pool)
	patientRepo := patient.NewRepo(pool)
	analysisRepo := analysis.NewRepo(pool)
	noteRepo := note.NewRepo(pool)

	identitySvc := identity.NewService(userRepo, nil)
	identitySvc.SetLogger(logger)
	orgSvc := organization.NewService(orgRepo, identitySvc)
	identitySvc.SetOrganizationJoiner(orgSvc)
	patientSvc := patient.NewService(patientRepo)
	analysisSvc := analysis.NewService(analysisRepo, images, detector)
	noteSvc := note.NewService(noteRepo)

	// Auth: locally issued tokens or an external identity provider.
	var issuer *auth.TokenIssuer
	var authMW echo.MiddlewareFunc
	if cfg.AuthMode == "federated" {
		directory := identity.NewDirectory(userRepo)
		authMW = auth.FederatedAuthMiddleware(auth.FederatedConfig{
			Issuer:  cfg.AuthIssuer,
			JWKSURL: cfg.AuthJWKSURL,
		}, directory, logger)
		logger.Info().Str("issuer", cfg.AuthIssuer).Msg("federated auth enabled")
	} else {
		issuer = auth.NewTokenIssuer(cfg.TokenSecret, cfg.TokenTTL, "dentaray")
		authMW = auth.LocalAuthMiddleware(issuer)
	}

	// Public routes
	e.GET("/health", func(c echo.Context) error {
		status := http.StatusOK
		dbStatus := "ok"
		if err := db.Ping(c.Request().Context(), pool); err != nil {
			status = http.StatusServiceUnavailable
			dbStatus = "down"
		}
		detectStatus := "ok"
		if !detector.Ready(c.Request().Context()) {
			detectStatus = "down"
		}
		return c.JSON(status, map[string]string{
			"status":   dbStatus,
			"detector": detectStatus,
			"version":  "0.1.0",
		})
	})

	imagestore.NewHandler(images).RegisterRoutes(e.Group(""))

	public := e.Group("/api/v1")

	api := e.Group("/api/v1", authMW)
	rateLimitCfg := middleware.DefaultRateLimitConfig()
	api.Use(middleware.RateLimit(rateLimitCfg))

	identity.NewHandler(identitySvc, issuer).RegisterRoutes(public, api)
	organization.NewHandler(orgSvc).RegisterRoutes(api)
	patient.NewHandler(patientSvc).RegisterRoutes(api)
	analysis.NewHandler(analysisSvc).RegisterRoutes(api)
	note.NewHandler(noteSvc).RegisterRoutes(api)

	// Start and wait for shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("server listening")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server stopped")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
