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

	"github.com/wardkit/wardkit/internal/config"
	"github.com/wardkit/wardkit/internal/domain/audit"
	"github.com/wardkit/wardkit/internal/domain/identity"
	"github.com/wardkit/wardkit/internal/domain/medication"
	"github.com/wardkit/wardkit/internal/domain/order"
	"github.com/wardkit/wardkit/internal/domain/patient"
	"github.com/wardkit/wardkit/internal/domain/rbac"
	"github.com/wardkit/wardkit/internal/domain/ward"
	"github.com/wardkit/wardkit/internal/platform/enummeta"
	"github.com/wardkit/wardkit/internal/platform/middleware"
	"github.com/wardkit/wardkit/internal/platform/seed"
	"github.com/wardkit/wardkit/internal/platform/store"
	"github.com/wardkit/wardkit/internal/schema"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "wardkit",
		Short: "Ward management data layer and API",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(seedCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the wardkit API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Bootstrap an empty data file with default roles and the admin user",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger("info", true)
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			db, err := store.Open(cfg.DataPath, schema.All(), logger)
			if err != nil {
				return err
			}
			seeded, err := seed.Run(db, logger, seed.Options{
				AdminUsername: cfg.AdminUsername,
				AdminPassword: cfg.AdminPassword,
				BcryptCost:    cfg.BcryptCost,
			})
			if err != nil {
				return err
			}
			if !seeded {
				fmt.Println("store already has users, nothing to do")
			}
			return db.Close()
		},
	}
}

func newLogger(level string, dev bool) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	if dev {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).Level(lvl).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).Level(lvl).With().Timestamp().Logger()
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := newLogger(cfg.LogLevel, cfg.IsDev())
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	db, err := store.Open(cfg.DataPath, schema.All(), logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open data file")
	}
	defer db.Close()
	logger.Info().Str("path", cfg.DataPath).Msg("store opened")

	if cfg.SeedOnStart {
		if _, err := seed.Run(db, logger, seed.Options{
			AdminUsername: cfg.AdminUsername,
			AdminPassword: cfg.AdminPassword,
			BcryptCost:    cfg.BcryptCost,
		}); err != nil {
			logger.Fatal().Err(err).Msg("seeding failed")
		}
	}

	// Services
	permissionCache := rbac.NewCache(cfg.PermissionCacheTTL)
	rbacSvc := rbac.NewService(db, logger, permissionCache)

	identitySvc := identity.NewService(db, logger, cfg.SessionTTL, cfg.BcryptCost)
	identitySvc.SetPermissionInvalidator(permissionCache)

	auditSvc := audit.NewService(db, logger)
	wardSvc := ward.NewService(db, logger)
	patientSvc := patient.NewService(db, logger)
	orderSvc := order.NewService(db, logger)
	medSvc := medication.NewService(db, logger, cfg.NotifyBefore)

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORS())

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	enums := enummeta.Defaults()
	e.GET("/api/v1/meta/enums/:name", func(c echo.Context) error {
		return c.JSON(http.StatusOK, enums.Variants(c.Param("name")))
	})

	public := e.Group("/api/v1")
	api := e.Group("/api/v1", middleware.Session(identitySvc), middleware.Audit(auditSvc))

	identity.NewHandler(identitySvc).RegisterRoutes(public, api)
	ward.NewHandler(wardSvc).RegisterRoutes(api)
	patient.NewHandler(patientSvc).RegisterRoutes(api)
	order.NewHandler(orderSvc).RegisterRoutes(api)
	medication.NewHandler(medSvc).RegisterRoutes(api)

	// Role and permission administration requires the roles wildcard;
	// the operation log is readable with its own grant.
	admin := api.Group("", middleware.RequirePermission(rbacSvc, "roles", rbac.ActionManage))
	rbac.NewHandler(rbacSvc).RegisterRoutes(admin)
	logs := api.Group("", middleware.RequirePermission(rbacSvc, "operation_logs", rbac.ActionRead))
	audit.NewHandler(auditSvc).RegisterRoutes(logs)

	// Periodic snapshot flush alongside the flush on shutdown.
	flushCtx, stopFlush := context.WithCancel(context.Background())
	defer stopFlush()
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-flushCtx.Done():
				return
			case <-ticker.C:
				if err := db.Flush(); err != nil {
					logger.Error().Err(err).Msg("snapshot flush failed")
				}
			}
		}
	}()

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

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("shutdown error")
	}
	return db.Close()
}
