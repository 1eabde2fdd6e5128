package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
	flag "github.com/spf13/pflag"

	"github.com/litian80/tcg-manager-sub000/config"
	"github.com/litian80/tcg-manager-sub000/db"
	"github.com/litian80/tcg-manager-sub000/handlers"
	"github.com/litian80/tcg-manager-sub000/middleware"
	"github.com/litian80/tcg-manager-sub000/realtime"
	"github.com/litian80/tcg-manager-sub000/repositories"
	"github.com/litian80/tcg-manager-sub000/routes"
	"github.com/litian80/tcg-manager-sub000/services"
	"github.com/litian80/tcg-manager-sub000/storage"
)

const shutdownTimeout = 15 * time.Second

func main() {
	port := flag.Int("port", 0, "HTTP port (overrides SERVER_PORT)")
	migrateOnly := flag.Bool("migrate", false, "apply the database schema and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	if *port > 0 {
		cfg.ServerPort = *port
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort), slog.String("log_level", cfg.LogLevel.String()))

	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		} else {
			logger.Info("database connection closed")
		}
	}()
	logger.Info("database connection established")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *migrateOnly {
		if err := db.Migrate(ctx, dbConn); err != nil {
			logger.Error("migration failed", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("schema applied")
		return
	}

	var archive services.Archiver
	if cfg.ArchiveEnabled() {
		uploader, err := storage.NewCloudflareR2Uploader(ctx, storage.CloudflareR2UploaderConfig{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicBaseURL:   cfg.R2PublicBaseURL,
		})
		if err != nil {
			logger.Error("failed to initialize Cloudflare R2 uploader", slog.Any("error", err))
			os.Exit(1)
		}
		archive = storage.NewTDFArchive(uploader)
		logger.Info("TDF archive enabled", slog.String("bucket", cfg.R2BucketName))
	} else {
		logger.Info("TDF archive disabled, R2 settings incomplete")
	}

	hub := realtime.NewHub(logger)
	go hub.Run(ctx)

	tournamentRepo := repositories.NewPostgresTournamentRepository(dbConn)
	playerRepo := repositories.NewPostgresPlayerRepository(dbConn)
	rosterRepo := repositories.NewPostgresRosterRepository(dbConn)
	matchRepo := repositories.NewPostgresMatchRepository(dbConn)
	standingRepo := repositories.NewPostgresStandingRepository(dbConn)

	importService := services.NewImportService(dbConn, tournamentRepo, playerRepo, rosterRepo, matchRepo, standingRepo, archive, hub, logger)
	exportService := services.NewExportService(tournamentRepo, rosterRepo, archive, logger)
	tournamentService := services.NewTournamentService(tournamentRepo, matchRepo, standingRepo)
	rosterService := services.NewRosterService(tournamentRepo, playerRepo, rosterRepo)

	router := chi.NewRouter()
	routes.SetupRoutes(router, routes.Handlers{
		Tournament: handlers.NewTournamentHandler(tournamentService, logger),
		Roster:     handlers.NewRosterHandler(rosterService, logger),
		Import:     handlers.NewImportHandler(importService, cfg.MaxUploadBytes, logger),
		Export:     handlers.NewExportHandler(exportService, logger),
		WebSocket:  handlers.NewWebSocketHandler(hub, tournamentService, cfg.CORSAllowedOrigins, logger),
	}, middleware.NewAuthenticator(cfg.JWTSecretKey, logger), cfg.CORSAllowedOrigins)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
		} else {
			logger.Info("server shutdown complete")
		}
	}
	logger.Info("application exited")
}
