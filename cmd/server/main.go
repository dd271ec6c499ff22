package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/cors"

	"github.com/carhive/listing-service/internal/adapter/httpapi"
	"github.com/carhive/listing-service/internal/adapter/messaging/nats"
	"github.com/carhive/listing-service/internal/adapter/repository/cache"
	"github.com/carhive/listing-service/internal/adapter/repository/memory"
	"github.com/carhive/listing-service/internal/adapter/repository/mongodb"
	"github.com/carhive/listing-service/internal/adapter/storage/s3"
	"github.com/carhive/listing-service/internal/config"
	"github.com/carhive/listing-service/internal/listing/usecase"
	"github.com/carhive/listing-service/internal/mailer"
	"github.com/carhive/listing-service/internal/platform/logger"
	"github.com/carhive/listing-service/internal/platform/tracer"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger := logger.NewLogger()

	ctx := context.Background()

	if cfg.OTLPEndpoint != "" {
		tp, err := tracer.Init(ctx, cfg.OTLPEndpoint)
		if err != nil {
			appLogger.Error("Failed to initialize tracer", "error", err.Error())
			os.Exit(1)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tp.Shutdown(shutdownCtx); err != nil {
				appLogger.Warn("Tracer shutdown failed", "error", err.Error())
			}
		}()
	}

	mongoClient, err := mongodb.Connect(ctx, cfg.MongoURI)
	if err != nil {
		appLogger.Error("Failed to connect to MongoDB", "error", err.Error())
		os.Exit(1)
	}
	defer mongoClient.Disconnect(context.Background())
	appLogger.Info("Connected to MongoDB", "database", cfg.MongoDatabase)

	listingRepo := mongodb.NewListingRepository(mongoClient.Database(cfg.MongoDatabase))
	if err := listingRepo.EnsureIndexes(ctx); err != nil {
		appLogger.Error("Failed to ensure listing indexes", "error", err.Error())
		os.Exit(1)
	}

	imageStorage, err := s3.NewImageStorage(cfg.MinIOEndpoint, cfg.MinIOAccessKey, cfg.MinIOSecretKey, cfg.MinIOBucket, cfg.MinIOUseSSL, appLogger)
	if err != nil {
		appLogger.Error("Failed to initialize image storage", "error", err.Error())
		os.Exit(1)
	}

	liveUsecase := usecase.NewListingUsecase(listingRepo, imageStorage, appLogger)

	// Secondary collaborators are optional: the service degrades to
	// cache-less, event-less operation when they are unreachable.
	var listingCache *cache.ListingCache
	if c, err := cache.NewListingCache(cfg.RedisAddress); err != nil {
		appLogger.Warn("Redis unavailable, continuing without cache", "address", cfg.RedisAddress, "error", err.Error())
	} else {
		listingCache = c
		appLogger.Info("Connected to Redis", "address", cfg.RedisAddress)
	}

	if publisher, err := nats.NewPublisher(cfg.NATSURL); err != nil {
		appLogger.Warn("NATS unavailable, continuing without events", "url", cfg.NATSURL, "error", err.Error())
	} else {
		defer publisher.Close()
		liveUsecase.WithPublisher(publisher)
		appLogger.Info("Connected to NATS", "url", cfg.NATSURL)
	}

	if cfg.NotifyEmail != "" && cfg.SMTPEmail != "" {
		smtpMailer := mailer.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPEmail, cfg.SMTPPass)
		liveUsecase.WithMailer(smtpMailer, cfg.NotifyEmail)
	}

	// Demo sessions run against the seeded in-memory mirror with a
	// pass-through uploader; no credential or network calls on that path.
	demoUsecase := usecase.NewListingUsecase(memory.NewSeededMirror(), memory.PassthroughUploader{}, appLogger)

	authenticator := httpapi.NewAuthenticator(cfg.JWTSecret, appLogger)
	handler := httpapi.NewHandler(liveUsecase, demoUsecase, listingCache, appLogger)
	router := httpapi.NewRouter(handler, authenticator, appLogger)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   []string{cfg.ClientOrigin},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	}).Handler(router)

	server := &http.Server{
		Addr:           ":" + cfg.HTTPPort,
		Handler:        corsHandler,
		ReadTimeout:    30 * time.Second,
		WriteTimeout:   30 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		appLogger.Info("Server running", "port", cfg.HTTPPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error("Server error", "error", err.Error())
			os.Exit(1)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	appLogger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Error during server shutdown", "error", err.Error())
		os.Exit(1)
	}
	appLogger.Info("Server gracefully stopped")
}
