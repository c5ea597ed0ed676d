package main

import (
	"github.com/spf13/cobra"

	"task-tracker/internal/config"
	"task-tracker/internal/logger"
	"task-tracker/internal/storage"
)

func migrateCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the database schema and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := storage.NewSQLiteStorage(ctx, cfg.DatabasePath)
			if err != nil {
				return err
			}
			defer func() {
				if err := store.Close(); err != nil {
					logger.Error(ctx, err, "Ошибка закрытия хранилища")
				}
			}()

			logger.Info(ctx, "Схема базы данных готова", "path", cfg.DatabasePath)
			return nil
		},
	}
}
