package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"task-tracker/internal/config"
	"task-tracker/internal/storage"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.DatabasePath = filepath.Join(dir, "tasks.db")
	cfg.UploadDir = filepath.Join(dir, "uploads")
	cfg.BcryptCost = bcrypt.MinCost
	return cfg
}

func TestNewApp(t *testing.T) {
	ctx := context.Background()
	a, err := newApp(ctx, testConfig(t))
	if err != nil {
		t.Fatalf("newApp: %v", err)
	}
	defer a.Close(ctx)

	if a.disk == nil || a.users == nil || a.tasks == nil || a.auth == nil {
		t.Fatalf("Компоненты не собраны: %+v", a)
	}
	if err := a.store.Ping(ctx); err != nil {
		t.Errorf("Ping: %v", err)
	}
}

func TestNewAppClosesStoreOnAvatarFailure(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	// каталог загрузок занят обычным файлом
	if err := os.WriteFile(cfg.UploadDir, []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if _, err := newApp(ctx, cfg); err == nil {
		t.Fatal("Ожидалась ошибка создания хранилища аватаров")
	}

	// база освобождена и открывается заново
	store, err := storage.NewSQLiteStorage(ctx, cfg.DatabasePath)
	if err != nil {
		t.Fatalf("NewSQLiteStorage: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}

func TestNewAppRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.TokenTTL = 0
	if _, err := newApp(context.Background(), cfg); err == nil {
		t.Error("Ожидалась ошибка валидации")
	}
	if _, err := os.Stat(cfg.DatabasePath); !os.IsNotExist(err) {
		t.Error("При неверной конфигурации база не должна создаваться")
	}
}
