package bot

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"
	"github.com/pkg/errors"

	"task-tracker/internal/logger"
)

type Bot struct {
	api     *tgbotapi.BotAPI
	handler *Handler
}

func NewBot(token string, handler *Handler) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, errors.Wrap(err, "ошибка создания бота")
	}

	logger.Info(context.Background(), "Авторизован в Telegram", "bot", api.Self.UserName)
	return &Bot{api: api, handler: handler}, nil
}

// Run читает обновления до отмены ctx.
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates, err := b.api.GetUpdatesChan(u)
	if err != nil {
		return errors.Wrap(err, "ошибка получения updates")
	}

	logger.Info(ctx, "Бот запущен и слушает сообщения...")

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil {
				continue
			}
			go b.handleMessage(ctx, update.Message)
		}
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	// текст сообщения не логируется: в /login он содержит пароль
	var command, args string
	if msg.IsCommand() {
		command, args = msg.Command(), msg.CommandArguments()
	} else {
		args = msg.Text
	}
	logger.Info(ctx, "Получено сообщение", "chat", msg.Chat.ID, "command", command)

	b.sendMessage(ctx, msg.Chat.ID, b.handler.Handle(ctx, msg.Chat.ID, command, args))
}

func (b *Bot) sendMessage(ctx context.Context, chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = "Markdown"

	if _, err := b.api.Send(msg); err != nil {
		logger.Error(ctx, err, "Ошибка отправки сообщения", "chat", chatID)
	}
}
