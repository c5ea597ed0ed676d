package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"task-tracker/internal/config"
	"task-tracker/internal/logger"
)

// Версия проставляется при сборке через -ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	var (
		cfg      config.Config
		dbPath   string
		logLevel string
	)

	rootCmd := &cobra.Command{
		Use:   "task-tracker",
		Short: "Task tracker: HTTP API, Telegram bot and schema tools",
		Long: `task-tracker хранит задачи пользователей в SQLite.

Настройки читаются из переменных окружения (HTTP_ADDR, DATABASE_PATH,
JWT_SECRET, TOKEN_TTL, ...), флаги командной строки имеют приоритет.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.Load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("db") {
				loaded.DatabasePath = dbPath
			}
			if cmd.Flags().Changed("log-level") {
				loaded.LogLevel = logLevel
			}
			cfg = loaded
			logger.SetLevel(logger.ParseLevel(cfg.LogLevel))
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Path to the SQLite database (overrides DATABASE_PATH)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error (overrides LOG_LEVEL)")

	rootCmd.AddCommand(
		serveCmd(&cfg),
		migrateCmd(&cfg),
		botCmd(&cfg),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
