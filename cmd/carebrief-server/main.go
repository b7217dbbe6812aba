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

	"github.com/carebrief/carebrief/internal/config"
	"github.com/carebrief/carebrief/internal/domain/access"
	"github.com/carebrief/carebrief/internal/domain/summary"
	"github.com/carebrief/carebrief/internal/platform/auth"
	"github.com/carebrief/carebrief/internal/platform/db"
	"github.com/carebrief/carebrief/internal/platform/middleware"
	"github.com/carebrief/carebrief/internal/platform/notification"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "carebrief-server",
		Short: "Clinical discharge summary API server",
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
			if err := cfg.Validate(); err != nil {
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
			if err := cfg.Validate(); err != nil {
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
				return err
			}

			for _, s := range statuses {
				state := "pending"
				if s.Applied {
					state = "applied"
				}
				fmt.Printf("%03d  %-40s %s\n", s.Version, s.Name, state)
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	return cmd
}

func runServer() error {
	// Logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}
	if cfg.IsDev() {
		logger.Warn().Msg("running in development mode: permissive auth enabled")
	}

	// Database
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.BodyLimit("1M"))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))
	e.Use(middleware.Audit(logger))
	e.Use(middleware.RequestTimeout(30 * time.Second))

	jwtCfg := auth.JWTConfig{
		Issuer:     cfg.AuthIssuer,
		Audience:   cfg.AuthAudience,
		JWKSURL:    cfg.AuthJWKSURL,
		SigningKey: []byte(cfg.AuthDevSigningKey),
	}

	// Rate limiting
	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}

	// Doctor API: authenticated, rate limited.
	apiV1 := e.Group("/api/v1")
	apiV1.Use(middleware.RateLimit(rateLimitCfg))
	if cfg.IsDev() {
		apiV1.Use(auth.DevAuthMiddleware())
	} else {
		apiV1.Use(auth.JWTMiddleware(jwtCfg))
	}

	// Patient viewer: access keys authorize reads, bearer tokens are
	// optional and only needed for the claim flow.
	patientGroup := e.Group("/patient")
	patientGroup.Use(middleware.RateLimit(rateLimitCfg))
	if cfg.IsDev() {
		patientGroup.Use(auth.DevAuthMiddleware())
	} else {
		patientGroup.Use(auth.OptionalJWT(jwtCfg))
	}

	// Health check
	e.GET("/health", db.HealthHandler(pool))

	// Domain wiring
	summaryRepo := summary.NewRepoPG(pool)
	summarySvc := summary.NewService(summaryRepo)

	claimSecret := []byte(cfg.ClaimTokenSecret)
	if len(claimSecret) == 0 {
		claimSecret = []byte(cfg.AuthDevSigningKey)
	}
	if len(claimSecret) == 0 {
		logger.Fatal().Msg("CLAIM_TOKEN_SECRET (or AUTH_DEV_SIGNING_KEY in development) must be set")
	}
	claimTokens := auth.NewClaimTokenIssuer(claimSecret, time.Duration(cfg.ClaimTokenTTLDays)*24*time.Hour)

	accessRepo := access.NewRepoPG(pool)
	accessManager := access.NewManager(accessRepo, cfg.BaseURL, time.Duration(cfg.AccessKeyTTLDays)*24*time.Hour)
	accessValidator := access.NewValidator(accessRepo)

	var notifier access.Notifier
	if cfg.SMSConfigured() {
		sender := notification.NewHTTPSMSSender(notification.ProviderConfig{
			BaseURL:    cfg.SMSProviderURL,
			AccountSID: cfg.SMSAccountSID,
			AuthToken:  cfg.SMSAuthToken,
			FromNumber: cfg.SMSFromNumber,
		})
		notifier = notification.NewManager(sender, notification.NewTemplateEngine())
		logger.Info().Msg("SMS sharing enabled")
	} else {
		logger.Warn().Msg("SMS sharing disabled: provider not configured")
	}

	summary.NewHandler(summarySvc, claimTokens, logger).RegisterRoutes(apiV1)
	access.NewHandler(accessManager, summarySvc, notifier, logger).RegisterRoutes(apiV1)
	summary.NewViewerHandler(summarySvc, accessValidator, claimTokens, logger).RegisterRoutes(patientGroup)

	// Start server
	addr := ":" + cfg.Port
	go func() {
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("forced shutdown")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}
