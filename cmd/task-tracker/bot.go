package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"task-tracker/internal/bot"
	"task-tracker/internal/config"
	"task-tracker/internal/logger"
)

func botCmd(cfg *config.Config) *cobra.Command {
	var token string

	cmd := &cobra.Command{
		Use:   "bot",
		Short: "Run the Telegram bot",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("token") {
				cfg.TelegramToken = token
			}
			if cfg.TelegramToken == "" {
				return errors.New("TELEGRAM_TOKEN is required")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			logger.Info(ctx, "Запуск Telegram-бота...")
			a, err := newApp(ctx, *cfg)
			if err != nil {
				return err
			}
			defer a.Close(ctx)

			b, err := bot.NewBot(cfg.TelegramToken, bot.NewHandler(a.users, a.tasks, a.auth))
			if err != nil {
				return err
			}
			return b.Run(ctx)
		},
	}

	cmd.Flags().StringVar(&token, "token", "", "Telegram bot token (overrides TELEGRAM_TOKEN)")

	return cmd
}
