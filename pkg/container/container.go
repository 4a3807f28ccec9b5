package container

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"

	"marketplace-backend/internal/config"
	infraCache "marketplace-backend/internal/infrastructure/cache"
	"marketplace-backend/internal/infrastructure/database"
	"marketplace-backend/internal/infrastructure/storage"
	"marketplace-backend/pkg/cache"
	"marketplace-backend/pkg/jwt"

	publicationHandler "marketplace-backend/internal/domains/publication/handler"
	publicationJob "marketplace-backend/internal/domains/publication/job"
	publicationRepo "marketplace-backend/internal/domains/publication/repository"
	publicationService "marketplace-backend/internal/domains/publication/service"
	userHandler "marketplace-backend/internal/domains/user/handler"
	userRepo "marketplace-backend/internal/domains/user/repository"
	userService "marketplace-backend/internal/domains/user/service"
)

// Container is the root of the dependency graph. Everything in it is a
// singleton built once at startup.
type Container struct {
	Config     *config.Config
	DB         database.DB
	Cache      cache.Cache
	BlobStore  storage.BlobStore
	JWTManager *jwt.Manager

	AsynqClient *asynq.Client

	UserService        userService.Service
	PublicationService publicationService.Service

	UserHandler        *userHandler.UserHandler
	PublicationHandler *publicationHandler.PublicationHandler
}

// New builds the full graph: infrastructure first (driver and backend chosen
// by config), then repositories, services and handlers.
func New(ctx context.Context, cfg *config.Config) (*Container, error) {
	db, err := newDatabase(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := database.EnsureSchema(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	blobStore, err := newBlobStore(ctx, cfg)
	if err != nil {
		db.Close()
		return nil, err
	}

	redisCache := infraCache.NewRedisCache(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	jwtManager := jwt.NewManager(cfg.JWT.Secret, cfg.JWT.ExpiryHours)

	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	uRepo := userRepo.NewRepository()
	uService := userService.NewService(db, uRepo, jwtManager)

	pRepo := publicationRepo.NewRepository()
	pService := publicationService.NewService(
		db,
		pRepo,
		storage.NewImageProcessor(),
		blobStore,
		redisCache,
		publicationJob.NewAsynqEnqueuer(asynqClient),
	)

	return &Container{
		Config:             cfg,
		DB:                 db,
		Cache:              redisCache,
		BlobStore:          blobStore,
		JWTManager:         jwtManager,
		AsynqClient:        asynqClient,
		UserService:        uService,
		PublicationService: pService,
		UserHandler:        userHandler.NewHandler(uService),
		PublicationHandler: publicationHandler.NewHandler(pService),
	}, nil
}

func newDatabase(ctx context.Context, cfg *config.Config) (database.DB, error) {
	switch cfg.Database.Driver {
	case "sqlite":
		return database.NewSQLiteDB(cfg.Database.SQLitePath)
	default:
		return database.NewPostgresDB(ctx, database.PostgresConfig{
			Host:       cfg.Database.Host,
			Port:       cfg.Database.Port,
			User:       cfg.Database.User,
			Password:   cfg.Database.Password,
			Database:   cfg.Database.Database,
			SSLMode:    cfg.Database.SSLMode,
			MaxConns:   int32(cfg.Database.MaxConns),
			MinConns:   int32(cfg.Database.MinConns),
			MaxRetries: cfg.Database.MaxRetries,
			RetryDelay: cfg.Database.RetryDelay,
		})
	}
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

// Close releases long-lived resources in reverse construction order.
func (c *Container) Close() {
	if c.AsynqClient != nil {
		c.AsynqClient.Close()
	}
	if c.DB != nil {
		c.DB.Close()
	}
}
