package main

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/docstager/backend/internal/api"
	"github.com/docstager/backend/internal/config"
	"github.com/docstager/backend/internal/ingest"
	"github.com/docstager/backend/internal/journal"
	"github.com/docstager/backend/internal/logging"
	"github.com/docstager/backend/internal/staging"
	"github.com/docstager/backend/internal/state"
	"github.com/docstager/backend/internal/storage"
)

// Version info (set during build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// Get the executable's directory for config resolution
	exePath, err := os.Executable()
	if err != nil {
		fmt.Printf("Failed to get executable path: %v\n", err)
		os.Exit(1)
	}
	exeDir := filepath.Dir(exePath)

	// Load XML configuration
	configPath := filepath.Join(exeDir, "DocStager.exe.config")
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		fmt.Printf("Failed to create directories: %v\n", err)
		os.Exit(1)
	}

	log := logging.New(cfg.Advanced.LogLevel, cfg.Advanced.LogDevelopment)
	defer log.Sync()

	// Intake policy
	var policy staging.Policy
	if cfg.Staging.PermissiveMode {
		policy = staging.PermissivePolicy()
	} else {
		policy, err = staging.LoadPolicy(cfg.Staging.PolicyFile)
		if err != nil {
			log.Warn("policy load failed, using defaults", zap.Error(err))
		}
	}

	// Blob storage for staged content
	blobs, err := storage.NewLocalBlobStore(cfg.Storage.BlobsDirectory)
	if err != nil {
		log.Fatal("failed to initialize blob storage", zap.Error(err))
	}

	// Ingestion journal
	jrnl, err := journal.Open(cfg.Storage.JournalDirectory)
	if err != nil {
		log.Fatal("failed to open ingestion journal", zap.Error(err))
	}
	defer jrnl.Close()

	// Background journal retention cleanup
	cleanupEvery := time.Duration(cfg.Staging.CleanupIntervalMinutes) * time.Minute
	if cleanupEvery <= 0 {
		cleanupEvery = 30 * time.Minute
	}
	go func() {
		ticker := time.NewTicker(cleanupEvery)
		defer ticker.Stop()
		for range ticker.C {
			if err := jrnl.CleanupOlderThan(time.Duration(cfg.Staging.JournalRetentionMinutes) * time.Minute); err != nil {
				log.Warn("journal cleanup failed", zap.Error(err))
			}
		}
	}()

	// Shared state store, owned here and injected everywhere
	store := state.NewStore()

	// Ingestion pipeline
	pipeline := ingest.NewPipeline(policy, store, blobs, jrnl, log)

	// API handlers
	handlers := api.NewHandlers(&api.Dependencies{
		Pipeline: pipeline,
		Store:    store,
		Journal:  jrnl,
		Log:      log,
		Version:  Version,
	})

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = api.ErrorHandler

	// Configure middleware
	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Skipper: func(c echo.Context) bool {
			if !cfg.Advanced.EnableRequestLogging {
				return true
			}
			path := c.Request().URL.Path
			return path == "/api/health" || strings.HasPrefix(path, "/api/ws/")
		},
	}))

	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize:         1024 * 4,
		DisablePrintStack: false,
	}))

	e.Use(middleware.BodyLimit(cfg.Server.BodyLimit))

	e.Use(middleware.GzipWithConfig(middleware.GzipConfig{
		Skipper: func(c echo.Context) bool {
			return strings.HasPrefix(c.Request().URL.Path, "/api/ws/")
		},
	}))

	// CORS configuration
	if cfg.Server.EnableCORS {
		origins := strings.Split(cfg.Server.AllowOrigins, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
		if len(origins) == 0 || (len(origins) == 1 && origins[0] == "") {
			origins = []string{"*"}
		}
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: origins,
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
		}))
	}

	api.RegisterRoutes(e, handlers)

	// Configure server with settings from XML config
	s := &http.Server{
		Addr:         cfg.GetServerAddr(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	log.Info("document stager listening",
		zap.String("version", Version),
		zap.String("buildTime", BuildTime),
		zap.String("addr", cfg.GetServerAddr()),
		zap.String("config", configPath),
		zap.String("dataDir", cfg.Storage.DataDirectory))

	e.Logger.Fatal(e.StartServer(s))
}
