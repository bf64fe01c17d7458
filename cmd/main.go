/*
Package main is the entry point for the PunkSpace server.

It loads configuration, initializes the global logging system, connects to PostgreSQL
(applying migrations), wires the upload storage, token revocation and chat hub into the
HTTP server, and shuts everything down gracefully on SIGINT or SIGTERM.
*/
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"punkspace/internal/app/chat"
	"punkspace/internal/app/db"
	"punkspace/internal/app/storage"
	"punkspace/internal/configs"
	"punkspace/internal/handler"
	"punkspace/internal/pkg/auth/jwt"
	"punkspace/internal/pkg/auth/revoke"
	"punkspace/internal/pkg/logx"
	"punkspace/internal/pkg/pow"
)

func main() {
	// Load configuration from environment variables
	cfg, err := configs.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize global logger
	logx.InitGlobalLogger(cfg.IsDevelopment())
	logx.Logger().Info().
		Str("environment", cfg.Environment).
		Int("port", cfg.Port).
		Strs("allowed_origins", cfg.AllowedOrigins).
		Int("pow_difficulty", cfg.PowDifficulty).
		Bool("s3", cfg.UseS3()).
		Bool("redis", cfg.RedisURL != "").
		Msg("Configuration loaded successfully")

	// Create a context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.DatabaseDSN)
	if err != nil {
		logx.Fatal(err, "Failed to connect to database")
	}
	defer pool.Close()
	queries := db.NewQueries(pool)

	var revoker revoke.Store
	if cfg.RedisURL != "" {
		redisStore, err := revoke.NewRedisStore(ctx, cfg.RedisURL)
		if err != nil {
			logx.Fatal(err, "Failed to connect to Redis")
		}
		defer redisStore.Close()
		revoker = redisStore
	} else {
		revoker = revoke.NewMemoryStore()
	}

	files, err := storage.NewStorageService(ctx, storage.ServiceConfig{
		UploadDir:         cfg.UploadDir,
		URLPath:           cfg.UploadURLPath,
		S3BucketName:      cfg.S3BucketName,
		S3Endpoint:        cfg.S3Endpoint,
		S3AccessKeyID:     cfg.S3AccessKeyID,
		S3SecretAccessKey: cfg.S3SecretAccessKey,
		S3PublicURL:       cfg.S3PublicURL,
	})
	if err != nil {
		logx.Fatal(err, "Failed to initialize upload storage")
	}

	hub := chat.NewHub()

	deps := &handler.AppDeps{
		Hub:            hub,
		Ingestor:       chat.NewIngestor(queries, hub, files),
		Config:         cfg,
		StorageService: files,
		DB:             queries,
		Auth: &jwt.Resolver{
			SecretKey:  cfg.JWTSecret,
			CookieName: cfg.CookieName,
			Revoked:    revoker,
		},
		Revoker: revoker,
		PoW:     pow.NewPoWManager(ctx, cfg.PowDifficulty),
	}

	// Setup HTTP server and routes
	serverAddr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      handler.Router(ctx, deps),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logx.Info("PunkSpace server starting", "addr", serverAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logx.Fatal(err, "Server failed to start")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server with a timeout of 5 seconds.
	<-ctx.Done()
	logx.Info("Received shutdown signal. Starting graceful shutdown...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logx.Error(err, "Server forced to shutdown")
	}

	hub.Shutdown()

	logx.Info("Server gracefully stopped.")
}
