// File: internal/infra/adapters/telegram/notify_bot.go
package telegram

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"jobsieve/internal/domain/model"
	"jobsieve/internal/domain/ports/adapter"
)

var _ adapter.Notifier = (*NotifyBot)(nil)

// NotifyBot pushes pipeline events to a single operator chat. Send failures
// are logged and swallowed so the pipeline never stalls on Telegram.
type NotifyBot struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	logger zerolog.Logger
}

func NewNotifyBot(token string, chatID int64, logger *zerolog.Logger) (*NotifyBot, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot init: %w", err)
	}
	return &NotifyBot{
		bot:    bot,
		chatID: chatID,
		logger: logger.With().Str("component", "telegram_notify").Logger(),
	}, nil
}

func (n *NotifyBot) PostingRemoved(_ context.Context, postingID, title, reason string) {
	n.send(fmt.Sprintf("🚫 Posting removed\n%s\nreason: %s\nid: %s", title, reason, postingID))
}

func (n *NotifyBot) ScanFinished(_ context.Context, s model.ScanSummary) {
	n.send(fmt.Sprintf("📬 Scan finished: %d processed, %d enqueued, %d skipped, %d failed",
		s.Processed, s.Enqueued, s.Skipped, s.Failed))
}

func (n *NotifyBot) send(text string) {
	msg := tgbotapi.NewMessage(n.chatID, text)
	if _, err := n.bot.Send(msg); err != nil {
		n.logger.Warn().Err(err).Msg("telegram send failed")
	}
}
