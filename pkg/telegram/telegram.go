package telegram

import (
	"fmt"
	"golang.org/x/net/context"
	"os"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type ISender interface {
	SendText(ctx context.Context, text string) error
}

type sender struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

// New builds a sender for TELEGRAM_BOT_TOKEN posting to TELEGRAM_CHAT_ID.
func New() (ISender, error) {
	token := os.Getenv("TELEGRAM_BOT_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN not set")
	}
	chatID, err := strconv.ParseInt(os.Getenv("TELEGRAM_CHAT_ID"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid TELEGRAM_CHAT_ID: %w", err)
	}

	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram login: %w", err)
	}

	return &sender{bot: bot, chatID: chatID}, nil
}

func (s *sender) SendText(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := tgbotapi.NewMessage(s.chatID, text)
	if _, err := s.bot.Send(msg); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}
