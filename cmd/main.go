package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Kyz7/juna/internal/admin"
	"github.com/Kyz7/juna/internal/cache"
	"github.com/Kyz7/juna/internal/config"
	"github.com/Kyz7/juna/internal/database"
	"github.com/Kyz7/juna/internal/jobs"
	"github.com/Kyz7/juna/internal/logger"
	"github.com/Kyz7/juna/internal/metrics"
	"github.com/Kyz7/juna/internal/server"
	"github.com/Kyz7/juna/internal/storage"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("invalid configuration")
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Format)

	// ========== DATABASE ==========
	db, err := database.Connect(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("database connection failed")
	}
	if err := database.Migrate(db); err != nil {
		log.WithError(err).Fatal("database migration failed")
	}
	if err := database.RunMigrations(db, log); err != nil {
		log.WithError(err).Fatal("sql migrations failed")
	}
	log.Info("database ready")

	// ========== CACHE ==========
	var (
		store       cache.Cache = cache.Noop{}
		redisClient *redis.Client
	)
	if cfg.Redis.Enabled {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		redisClient, err = cache.NewRedisClient(ctx, cfg.Redis)
		cancel()
		if err != nil {
			log.WithError(err).Warn("redis unavailable, caching disabled")
		} else {
			store = cache.NewRedisCache(redisClient)
			log.WithField("addr", cfg.RedisAddr()).Info("redis connected")
		}
	}

	// ========== OBJECT STORAGE ==========
	var presigner storage.Presigner
	s3, err := storage.NewS3(cfg.S3)
	switch {
	case errors.Is(err, storage.ErrNotConfigured):
		log.Info("object storage not configured, document uploads disabled")
	case err != nil:
		log.WithError(err).Warn("object storage init failed, document uploads disabled")
	default:
		presigner = s3
		log.WithFields(logrus.Fields{"bucket": cfg.S3.Bucket, "region": cfg.S3.Region}).Info("object storage ready")
	}

	// ========== SEED ==========
	seedCtx, cancelSeed := context.WithTimeout(context.Background(), 10*time.Second)
	if err := admin.SeedSuperAdmin(seedCtx, db, cfg.SuperAdmin, cfg.BcryptCost, log); err != nil {
		log.WithError(err).Error("failed to seed super admin")
	}
	cancelSeed()

	// ========== BACKGROUND JOBS ==========
	scheduler, err := jobs.NewScheduler(db, time.Minute, log)
	if err != nil {
		log.WithError(err).Fatal("failed to schedule jobs")
	}
	scheduler.Start()

	// ========== SERVER ==========
	app := server.New(server.Deps{
		Config:  cfg,
		DB:      db,
		Log:     log,
		Cache:   store,
		Metrics: metrics.New(),
		Storage: presigner,
	})

	go func() {
		log.WithFields(logrus.Fields{"addr": cfg.Server.Addr, "env": cfg.Server.Env}).Info("juna api starting")
		if err := app.Listen(cfg.Server.Addr); err != nil {
			log.WithError(err).Fatal("server stopped")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.WithError(err).Error("server shutdown failed")
	}
	scheduler.Stop(ctx)
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			log.WithError(err).Warn("redis close failed")
		}
	}
	if err := database.Close(db); err != nil {
		log.WithError(err).Warn("database close failed")
	}
	log.Info("shutdown complete")
}
