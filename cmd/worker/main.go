package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"

	"marketplace-backend/internal/config"
	"marketplace-backend/internal/domains/publication/job"
	"marketplace-backend/internal/infrastructure/storage"
	"marketplace-backend/pkg/logger"
)

// The worker only consumes background tasks; it talks to Redis and the blob
// store but never to the database.
func main() {
	if err := godotenv.Load(); err != nil {
		logger.Info("no .env file found, using system environment variables", nil)
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Error("invalid configuration", err)
		os.Exit(1)
	}
	logger.Init(cfg.App.Environment)

	blobStore, err := newBlobStore(context.Background(), cfg)
	if err != nil {
		logger.Error("failed to initialize blob store", err)
		os.Exit(1)
	}

	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		asynq.Config{
			Concurrency: 5,
		},
	)

	mux := asynq.NewServeMux()
	mux.Handle(job.TypeCleanupBlobs, job.NewCleanupBlobsHandler(blobStore))

	if err := srv.Start(mux); err != nil {
		logger.Error("failed to start worker", err)
		os.Exit(1)
	}
	logger.Info("worker started", map[string]interface{}{"queue": cfg.Redis.Addr})

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down worker", nil)
	srv.Shutdown()
}

func newBlobStore(ctx context.Context, cfg *config.Config) (storage.BlobStore, error) {
	switch cfg.Storage.Backend {
	case "filesystem":
		return storage.NewFilesystemStorage(cfg.Storage.UploadRoot, cfg.Storage.BaseURL)
	default:
		return storage.NewMinIOStorage(ctx, storage.MinIOConfig{
			Endpoint:  cfg.Storage.Endpoint,
			AccessKey: cfg.Storage.AccessKey,
			SecretKey: cfg.Storage.SecretKey,
			Bucket:    cfg.Storage.Bucket,
			UseSSL:    cfg.Storage.UseSSL,
		})
	}
}
