package main

import (
	"context"

	"github.com/pkg/errors"

	"task-tracker/internal/auth"
	"task-tracker/internal/avatar"
	"task-tracker/internal/config"
	"task-tracker/internal/logger"
	"task-tracker/internal/manager"
	"task-tracker/internal/storage"
)

// app общие для serve и bot компоненты.
type app struct {
	store *storage.SQLiteStorage
	users *manager.UserManager
	tasks *manager.TaskManager
	auth  *auth.Authenticator
	disk  *avatar.DiskStore // nil при хранении аватаров в S3
}

func newApp(ctx context.Context, cfg config.Config) (*app, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}

	key := []byte(cfg.JWTSecret)
	if len(key) == 0 {
		var err error
		if key, err = auth.RandomKey(); err != nil {
			return nil, err
		}
		logger.Warn(ctx, "JWT_SECRET не задан, используется случайный ключ: токены не переживут перезапуск")
	}

	store, err := storage.NewSQLiteStorage(ctx, cfg.DatabasePath)
	if err != nil {
		return nil, errors.Wrap(err, "ошибка инициализации SQLite хранилища")
	}
	logger.Info(ctx, "SQLite хранилище успешно инициализировано", "path", cfg.DatabasePath)

	a := &app{store: store}

	var avatars avatar.Store
	switch cfg.AvatarBackend {
	case config.AvatarBackendS3:
		avatars = avatar.NewS3Store(avatar.NewS3Client(cfg.S3), cfg.S3, cfg.UploadMaxBytes)
		logger.Info(ctx, "Аватары сохраняются в S3", "bucket", cfg.S3.Bucket)
	default:
		disk, err := avatar.NewDiskStore(cfg.UploadDir, "/uploads", cfg.UploadMaxBytes)
		if err != nil {
			if closeErr := store.Close(); closeErr != nil {
				logger.Error(ctx, closeErr, "Ошибка закрытия хранилища")
			}
			return nil, err
		}
		a.disk = disk
		avatars = disk
	}

	tokens := auth.NewTokenIssuer(key, cfg.TokenTTL)
	a.users = manager.NewUserManager(store, auth.NewPasswordHasher(cfg.BcryptCost), tokens, avatars)
	a.tasks = manager.NewTaskManager(store)
	a.auth = auth.NewAuthenticator(tokens, a.users)
	return a, nil
}

func (a *app) Close(ctx context.Context) {
	if err := a.store.Close(); err != nil {
		logger.Error(ctx, err, "Ошибка закрытия хранилища")
	}
}
