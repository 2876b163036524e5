package controller

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Freeeeeet/venue_booking/internal/controller/state"
	"github.com/Freeeeeet/venue_booking/internal/model"
	"github.com/Freeeeeet/venue_booking/internal/notifier"
	"github.com/Freeeeeet/venue_booking/internal/service"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

const (
	callbackApprove = "approve_booking:"
	callbackReject  = "reject_booking:"

	skipCommand = "/skip"

	// defaultRejectionReason is used when the administrator answers /skip.
	defaultRejectionReason = "Rejected by an administrator"

	maxPendingListed = 20
)

var (
	errNotAdmin = errors.New("administrator role required")
	errNoDialog = errors.New("no rejection in progress")
)

// HandleStart tells the user whether their chat is linked to an account.
func (c *BotController) HandleStart(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}

	user, err := c.users.GetByTelegramID(ctx, update.Message.From.ID)
	if err != nil {
		c.logger.Error("Failed to resolve telegram user", zap.Int64("telegram_id", update.Message.From.ID), zap.Error(err))
	}

	var text string
	switch {
	case user == nil:
		text = fmt.Sprintf("This chat is not linked to a venue booking account.\nYour Telegram ID: <code>%d</code>", update.Message.From.ID)
	case user.IsAdmin():
		text = fmt.Sprintf("Hello, %s. You will receive new booking requests here.\nUse /pending to review the queue.", user.Name)
	default:
		text = fmt.Sprintf("Hello, %s. You will be notified here when your bookings are decided.", user.Name)
	}

	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    update.Message.Chat.ID,
		Text:      text,
		ParseMode: models.ParseModeHTML,
	})
}

// HandlePending sends one message per pending booking with decision buttons.
func (c *BotController) HandlePending(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	if _, err := c.requireAdmin(ctx, update.Message.From.ID); err != nil {
		b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: errorText(err)})
		return
	}

	pending, err := c.bookings.GetPendingBookings(ctx)
	if err != nil {
		c.logger.Error("Failed to list pending bookings", zap.Error(err))
		b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: errorText(err)})
		return
	}

	if len(pending) == 0 {
		b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: "No bookings are awaiting approval."})
		return
	}

	for i, booking := range pending {
		if i == maxPendingListed {
			b.SendMessage(ctx, &bot.SendMessageParams{
				ChatID: chatID,
				Text:   fmt.Sprintf("...and %d more. Decide these first and run /pending again.", len(pending)-maxPendingListed),
			})
			break
		}

		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID:      chatID,
			Text:        notifier.FormatBooking(booking),
			ParseMode:   models.ParseModeHTML,
			ReplyMarkup: decisionKeyboard(booking.ID),
		})
	}
}

// HandleDecisionCallback handles the Approve and Reject buttons. Approve
// takes effect immediately; Reject asks for a reason first.
func (c *BotController) HandleDecisionCallback(ctx context.Context, b *bot.Bot, update *models.Update) {
	callback := update.CallbackQuery
	if callback == nil {
		return
	}

	var prompt state.Dialog
	if msg := callback.Message.Message; msg != nil {
		prompt.PromptChatID = msg.Chat.ID
		prompt.PromptMessageID = msg.ID
	}

	action, bookingID, err := parseDecision(callback.Data)
	if err == nil {
		switch action {
		case callbackApprove:
			var result string
			result, err = c.approve(ctx, callback.From.ID, bookingID)
			if err == nil {
				b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{CallbackQueryID: callback.ID, Text: result})
				editPrompt(ctx, b, prompt, result)
				return
			}
		case callbackReject:
			err = c.startReject(ctx, callback.From.ID, bookingID, prompt)
			if err == nil {
				b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{CallbackQueryID: callback.ID})
				b.SendMessage(ctx, &bot.SendMessageParams{
					ChatID: callback.From.ID,
					Text:   fmt.Sprintf("Send the rejection reason for booking #%d, or %s to use the default.", bookingID, skipCommand),
				})
				return
			}
		}
	}

	b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: callback.ID,
		Text:            errorText(err),
		ShowAlert:       true,
	})
}

// HandleRejectReason completes a rejection started by the Reject button.
func (c *BotController) HandleRejectReason(ctx context.Context, b *bot.Bot, update *models.Update) {
	msg := update.Message

	result, dialog, err := c.completeReject(ctx, msg.From.ID, msg.Text)
	if err != nil {
		b.SendMessage(ctx, &bot.SendMessageParams{ChatID: msg.Chat.ID, Text: errorText(err)})
		return
	}

	b.SendMessage(ctx, &bot.SendMessageParams{ChatID: msg.Chat.ID, Text: result})
	editPrompt(ctx, b, dialog, result)
}

// awaitingRejectReason matches plain text (and /skip) from users with an
// open rejection dialog. Other commands keep their own handlers.
func (c *BotController) awaitingRejectReason(update *models.Update) bool {
	msg := update.Message
	if msg == nil || msg.From == nil {
		return false
	}
	text := strings.TrimSpace(msg.Text)
	if strings.HasPrefix(text, "/") && text != skipCommand {
		return false
	}
	return c.dialogs.InState(msg.From.ID, state.StateAwaitingRejectReason)
}

func (c *BotController) approve(ctx context.Context, telegramID, bookingID int64) (string, error) {
	admin, err := c.requireAdmin(ctx, telegramID)
	if err != nil {
		return "", err
	}

	booking, err := c.bookings.Approve(ctx, bookingID, admin.ID, "")
	if err != nil {
		c.logDecisionError("approve", bookingID, admin.ID, err)
		return "", err
	}
	return decisionText(booking), nil
}

func (c *BotController) startReject(ctx context.Context, telegramID, bookingID int64, prompt state.Dialog) error {
	if _, err := c.requireAdmin(ctx, telegramID); err != nil {
		return err
	}

	prompt.State = state.StateAwaitingRejectReason
	prompt.BookingID = bookingID
	c.dialogs.Set(telegramID, prompt)
	return nil
}

func (c *BotController) completeReject(ctx context.Context, telegramID int64, text string) (string, state.Dialog, error) {
	dialog, ok := c.dialogs.Take(telegramID)
	if !ok || dialog.State != state.StateAwaitingRejectReason {
		return "", dialog, errNoDialog
	}

	admin, err := c.requireAdmin(ctx, telegramID)
	if err != nil {
		return "", dialog, err
	}

	reason := strings.TrimSpace(text)
	if reason == skipCommand {
		reason = defaultRejectionReason
	}

	booking, err := c.bookings.Reject(ctx, dialog.BookingID, admin.ID, reason)
	if err != nil {
		c.logDecisionError("reject", dialog.BookingID, admin.ID, err)
		return "", dialog, err
	}
	return decisionText(booking), dialog, nil
}

func (c *BotController) requireAdmin(ctx context.Context, telegramID int64) (*model.User, error) {
	user, err := c.users.GetByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, fmt.Errorf("resolve telegram user: %w", err)
	}
	if !user.IsAdmin() {
		return nil, errNotAdmin
	}
	return user, nil
}

func (c *BotController) logDecisionError(action string, bookingID, adminID int64, err error) {
	c.logger.Warn("Booking decision failed",
		zap.String("action", action),
		zap.Int64("booking_id", bookingID),
		zap.Int64("admin_id", adminID),
		zap.Error(err),
	)
}

func editPrompt(ctx context.Context, b *bot.Bot, d state.Dialog, text string) {
	if d.PromptChatID == 0 || d.PromptMessageID == 0 {
		return
	}
	b.EditMessageText(ctx, &bot.EditMessageTextParams{
		ChatID:    d.PromptChatID,
		MessageID: d.PromptMessageID,
		Text:      text,
	})
}

// parseDecision splits "approve_booking:42" into its action prefix and id.
func parseDecision(data string) (string, int64, error) {
	var action string
	switch {
	case strings.HasPrefix(data, callbackApprove):
		action = callbackApprove
	case strings.HasPrefix(data, callbackReject):
		action = callbackReject
	default:
		return "", 0, fmt.Errorf("unknown callback %q", data)
	}

	id, err := strconv.ParseInt(strings.TrimPrefix(data, action), 10, 64)
	if err != nil || id <= 0 {
		return "", 0, fmt.Errorf("invalid booking id in callback %q", data)
	}
	return action, id, nil
}

func decisionKeyboard(bookingID int64) *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{{
			{Text: "Approve", CallbackData: callbackApprove + strconv.FormatInt(bookingID, 10)},
			{Text: "Reject", CallbackData: callbackReject + strconv.FormatInt(bookingID, 10)},
		}},
	}
}

func decisionText(b *model.Booking) string {
	return fmt.Sprintf("Booking %s (%s) is now %s", b.ReferenceCode, b.EventTitle, b.Status)
}

// errorText turns a core error into a short message for the chat.
func errorText(err error) string {
	var transition *service.InvalidTransitionError
	var conflict *service.ConflictError

	switch {
	case errors.Is(err, errNotAdmin):
		return "This action is available to administrators only."
	case errors.Is(err, errNoDialog):
		return "Nothing to reply to. Use /pending to pick a booking."
	case errors.As(err, &transition):
		return fmt.Sprintf("Booking is already %s.", transition.From)
	case errors.As(err, &conflict):
		return "Cannot approve: " + conflict.Reason
	case errors.Is(err, model.ErrBookingNotFound):
		return "Booking not found."
	case errors.Is(err, service.ErrValidation):
		return err.Error()
	default:
		return "Something went wrong, please try again."
	}
}
