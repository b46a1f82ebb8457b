package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"portlink-backend/config"
	"portlink-backend/internal/api"
	"portlink-backend/internal/console"
	"portlink-backend/internal/db"
	"portlink-backend/internal/store"
	"portlink-backend/internal/sweep"
)

var configPath string

func main() {
	rootCmd := &cobra.Command{
		Use:   "portlinkd",
		Short: "Port provisioning and cable registry service",
		Long: `portlinkd generates device ports from templates, matches connectable
ports between devices and records the resulting cables.`,
		RunE:         runServe,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Configuration file path (default $CONFIG_PATH or ./config/config.yaml)")

	rootCmd.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the HTTP API",
			RunE:  runServe,
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Create or update the database schema",
			RunE:  runMigrate,
		},
		&cobra.Command{
			Use:   "reconcile",
			Short: "Add missing template ports to every device",
			RunE:  runReconcile,
		},
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, string, error) {
	path := configPath
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path == "" {
		path = "./config/config.yaml" // Default path for local development
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, path, fmt.Errorf("failed to load configuration from %s: %w", path, err)
	}
	return cfg, path, nil
}

func newStore(cfg *config.Config, gormDB *gorm.DB) store.Store {
	return store.NewGormStore(gormDB,
		store.WithDirectionAttribute(cfg.Ports.DirectionAttributeCode),
		store.WithPageSizes(cfg.Cables.DefaultPageSize, cfg.Cables.MaxPageSize),
	)
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := log.New(os.Stdout, "portlinkd ", log.LstdFlags)

	cfg, path, err := loadConfig()
	if err != nil {
		logger.Fatalf("%v", err)
	}
	logger.Printf("configuration loaded successfully from %s", path)

	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		logger.Fatalf("failed to initialize database: %v", err)
	}
	logger.Println("database initialized successfully")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	appStore := newStore(cfg, gormDB)
	logger.Println("data store initialized")

	if cfg.Ports.ReconcileOnStartup {
		go func() {
			if _, err := sweep.NewService(cfg, appStore).SweepOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Printf("startup reconcile failed: %v", err)
			}
		}()
	}

	router := api.NewRouter(appStore, &cfg.Server)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Printf("HTTP server starting on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("HTTP server ListenAndServe: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	<-stop
	logger.Println("Shutdown signal received, stopping services...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatalf("HTTP server Shutdown: %v", err)
	}

	logger.Println("Server gracefully stopped")
	return nil
}

func runMigrate(cmd *cobra.Command, args []string) error {
	out := console.New()

	cfg, _, err := loadConfig()
	if err != nil {
		out.Error("Failed to load configuration", err)
		return err
	}
	gormDB, err := db.Open(&cfg.Database)
	if err != nil {
		out.Error("Failed to open database", err)
		return err
	}
	if err := db.Migrate(gormDB); err != nil {
		out.Error("Migration failed", err)
		return err
	}
	out.Success("Schema is up to date")
	return nil
}

func runReconcile(cmd *cobra.Command, args []string) error {
	out := console.New()

	cfg, _, err := loadConfig()
	if err != nil {
		out.Error("Failed to load configuration", err)
		return err
	}
	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		out.Error("Failed to initialize database", err)
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	out.Info("Reconciling template ports with %d workers...", cfg.Sweep.Workers)
	report, err := sweep.NewService(cfg, newStore(cfg, gormDB)).SweepOnce(ctx)
	if err != nil {
		out.Error("Sweep aborted", err)
		return err
	}
	out.Report(report)
	if len(report.Failures) > 0 {
		return fmt.Errorf("%d devices failed to reconcile", len(report.Failures))
	}
	return nil
}
