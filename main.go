package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"news-verify/config"
	"news-verify/providers/classifier"
	"news-verify/services"
	"news-verify/storage"
)

// routerDeps bundles everything the HTTP layer calls into.
type routerDeps struct {
	Submission *services.SubmissionService
	Consensus  *services.ConsensusService
	Moderation *services.ModerationService
	Health     pinger
	Images     imageStore
}

func newRouter(cfg *config.Config, deps routerDeps, log *zap.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	setupHealthRoutes(router, deps.Health, log)
	setupImageRoutes(router, deps.Images, cfg.ImageMaxBytes, log)
	setupNewsRoutes(router, deps.Submission, log)
	setupReportRoutes(router, deps.Consensus, log)
	setupAdminRoutes(router, deps.Moderation, cfg.AdminAPIKey, log)
	return router
}

func main() {
	logging, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logging.Sync()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal("Config load error", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(cfg, logging)
	if err != nil {
		logging.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer store.Close()

	logging.Info("Running database auto-migration...")
	if err := store.Migrate(); err != nil {
		logging.Fatal("Auto-migration failed", zap.Error(err))
	}

	var images imageStore
	if cfg.ImagesEnabled() {
		objects, err := storage.NewObjectStore(ctx, storage.S3Settings{
			Endpoint: cfg.S3Endpoint,
			Region:   cfg.S3Region,
			Key:      cfg.S3Key,
			Secret:   cfg.S3Secret,
			Bucket:   cfg.S3Bucket,
		})
		if err != nil {
			logging.Fatal("S3 client creation failed", zap.Error(err))
		}
		images = objects
		logging.Info("Image uploads enabled", zap.String("bucket", cfg.S3Bucket))
	} else {
		logging.Info("S3 not configured, image uploads disabled")
	}

	detector := classifier.NewClient(cfg, logging)
	submission := services.NewSubmissionService(store, detector, logging)
	consensus := services.NewConsensusService(store, logging)
	moderation := services.NewModerationService(store, consensus, logging, cfg.RegistryCacheTTL)

	if cfg.AdminAPIKey == "" {
		logging.Warn("ADMIN_API_KEY is empty, admin routes will refuse every request")
	}

	router := newRouter(cfg, routerDeps{
		Submission: submission,
		Consensus:  consensus,
		Moderation: moderation,
		Health:     store,
		Images:     images,
	}, logging)

	cronScheduler := cron.New()
	_, err = cronScheduler.AddFunc(cfg.StatsSchedule, func() {
		jobCtx, cancel := context.WithTimeout(ctx, time.Minute)
		defer cancel()
		if err := moderation.RefreshGauges(jobCtx); err != nil {
			logging.Error("Stats job failed", zap.Error(err))
		}
	})
	if err != nil {
		logging.Fatal("Invalid STATS_SCHEDULE", zap.String("schedule", cfg.StatsSchedule), zap.Error(err))
	}
	cronScheduler.Start()
	if err := moderation.RefreshGauges(ctx); err != nil {
		logging.Warn("Initial stats refresh failed", zap.Error(err))
	}

	logging.Info("Starting server", zap.String("port", cfg.HTTPPort))
	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		// submissions wait for the classifier
		WriteTimeout: cfg.ClassifierTimeout + 30*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			logging.Error("Failed to run server", zap.Error(err))
		}
	case <-ctx.Done():
		logging.Info("Shutting down")
	}

	<-cronScheduler.Stop().Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Error("Graceful shutdown failed", zap.Error(err))
	}
}
