package main

import (
	"DriveKeeper/internal/config"
	"DriveKeeper/internal/handlers"
	"DriveKeeper/internal/middleware"
	"DriveKeeper/internal/repo"
	"DriveKeeper/internal/security"
	"DriveKeeper/internal/service"
	"DriveKeeper/internal/storage"
	"net/http"
	"time"

	"go.uber.org/zap"
)

func main() {
	cfg := config.NewConfig()

	// создаём предустановленный регистратор zap
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}

	// делаем регистратор SugaredLogger
	sugar := logger.Sugar()
	middleware.SetLogger(sugar) // передаём логгер в middleware
	//сброс буфера логгера
	defer func() {
		if err := logger.Sync(); err != nil {
			sugar.Errorw("Failed to sync logger", "error", err)
		}
	}()

	gormDB, err := repo.InitDB(cfg.DatabaseDSN)
	if err != nil {
		sugar.Fatalw("failed to initialize database", "error", err)
	}

	var blobStorage storage.BlobStorage
	switch cfg.StorageType {
	case "s3":
		blobStorage = storage.NewS3Storage(storage.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
		})
	default:
		blobStorage, err = storage.NewLocalStorage(cfg.LocalStoragePath)
		if err != nil {
			sugar.Fatalw("failed to initialize local storage", "error", err)
		}
	}

	uow := repo.NewUnitOfWork(gormDB)
	tokens := security.NewTokenManager(cfg.AuthSecret, time.Duration(cfg.AccessTokenTTLMin)*time.Minute)
	tokenHasher := security.NewTokenHasher(cfg.TokenPepper)
	passwordHasher := security.NewArgon2Hasher()
	logbook := service.NewLogbookService()

	authService := service.NewAuthService(
		uow, passwordHasher, tokens, tokenHasher, logbook,
		time.Duration(cfg.RefreshTokenTTLDays)*24*time.Hour, sugar,
	)
	fileService := service.NewFileService(uow, blobStorage, logbook, cfg.MaxUploadSizeBytes(), sugar)

	h := handlers.NewHandler(authService, fileService, tokens, sugar, cfg)

	addr := cfg.BaseURL

	sugar.Infow(
		"Starting server",
		"addr", addr,
	)

	sugar.Infow("Config",
		"BaseURL", cfg.BaseURL,
		"EnableHTTPS", cfg.EnableHTTPS,
		"StorageType", cfg.StorageType,
		"MaxUploadSizeMB", cfg.MaxUploadSizeMB,
	)

	if err := http.ListenAndServe(addr, h.Router); err != nil {
		sugar.Fatalw("Server failed", "error", err)
	}
}
