package notifier

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/venue_booking/internal/model"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// MessageSender is the part of *bot.Bot used for notifications.
type MessageSender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
}

// Telegram delivers notifications as chat messages to users that linked a
// Telegram account. Users without one are skipped.
type Telegram struct {
	sender MessageSender
	logger *zap.Logger
}

func NewTelegram(sender MessageSender, logger *zap.Logger) *Telegram {
	return &Telegram{sender: sender, logger: logger}
}

func (t *Telegram) Notify(ctx context.Context, n model.Notification) error {
	if n.Recipient == nil || n.Recipient.TelegramID == 0 {
		t.logger.Debug("Recipient has no telegram chat, skipping",
			zap.String("kind", string(n.Kind)),
			zap.Int64("booking_id", n.Booking.ID),
		)
		return nil
	}

	_, err := t.sender.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    n.Recipient.TelegramID,
		Text:      FormatNotification(n),
		ParseMode: models.ParseModeHTML,
	})
	if err != nil {
		return fmt.Errorf("send telegram message to %d: %w", n.Recipient.TelegramID, err)
	}
	return nil
}
