package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/vertextoedge/secure-file-share/internal/adapter/cache"
	"github.com/vertextoedge/secure-file-share/internal/adapter/filesystem"
	"github.com/vertextoedge/secure-file-share/internal/adapter/sqlite"
	"github.com/vertextoedge/secure-file-share/internal/config"
	"github.com/vertextoedge/secure-file-share/internal/logger"
	"github.com/vertextoedge/secure-file-share/internal/port"
	"github.com/vertextoedge/secure-file-share/internal/service/server"
	"github.com/vertextoedge/secure-file-share/internal/service/share"
	"github.com/vertextoedge/secure-file-share/internal/util/ratelimiter"
)

const version = "0.1.0"

func main() {
	// Parse command line flags
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.Format); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	zapLogger := logger.GetZapLogger()
	zapLogger.Info("starting secure-file-share",
		zap.String("version", version),
		zap.String("config", *configPath),
	)

	// Initialize the content filesystem
	contentFS, err := filesystem.NewLocal(cfg.Sharing.RootDir)
	if err != nil {
		zapLogger.Fatal("failed to open content root", zap.Error(err), zap.String("root", cfg.Sharing.RootDir))
	}

	// Open database
	dbPath := cfg.Database.Path
	if dbPath == "" {
		dbPath = filepath.Join(cfg.Sharing.RootDir, "shares.db")
	}

	store, err := sqlite.Open(dbPath, &sqlite.Config{
		CacheSizeMB:   cfg.Database.CacheSizeMB,
		BusyTimeoutMs: cfg.Database.BusyTimeoutMs,
	})
	if err != nil {
		zapLogger.Fatal("failed to open database", zap.Error(err), zap.String("path", dbPath))
	}
	defer store.Close()

	// Select the share cache backend
	var shareCache port.Cache
	if cfg.Redis.Enabled {
		redisCache := cache.NewRedis(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		defer redisCache.Close()
		shareCache = redisCache
		zapLogger.Info("using redis share cache", zap.String("addr", cfg.Redis.Addr))
	} else {
		shareCache = cache.NewMemory()
		zapLogger.Info("using in-memory share cache")
	}

	// Wire the share service
	registry := ratelimiter.NewRegistry()
	evaluator := share.NewSecurityEvaluator(registry, shareCache, zapLogger)
	accessLog := share.NewAccessLogger(store, zapLogger)

	shareCfg := &share.Config{
		BaseURL:    cfg.HTTP.BaseURL,
		CacheTTL:   cfg.Sharing.GetCacheTTL(),
		BcryptCost: cfg.Sharing.BcryptCost,
	}
	shareService := share.NewService(shareCfg, store, shareCache, evaluator, accessLog, registry, zapLogger)

	// Create HTTP server
	serverCfg := &server.Config{
		BindAddr:      cfg.HTTP.BindAddr,
		AdminUsername: cfg.HTTP.AdminUsername,
		AdminPassword: cfg.HTTP.AdminPassword,
		ReadTimeout:   cfg.HTTP.GetReadTimeout(),
		WriteTimeout:  cfg.HTTP.GetWriteTimeout(),
		IdleTimeout:   cfg.HTTP.GetIdleTimeout(),
	}
	httpServer := server.New(serverCfg, store, shareService, contentFS, zapLogger)

	// Start HTTP server
	go func() {
		if err := httpServer.Start(); err != nil {
			zapLogger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	zapLogger.Info("application started successfully",
		zap.String("http_addr", cfg.HTTP.BindAddr),
		zap.String("content_root", cfg.Sharing.RootDir),
	)
	<-sigChan

	zapLogger.Info("shutdown signal received, stopping services...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Stop(shutdownCtx); err != nil {
		zapLogger.Error("failed to stop HTTP server gracefully", zap.Error(err))
	}

	zapLogger.Info("application stopped successfully")
}
