package controller

import (
	"context"

	"github.com/Freeeeeet/venue_booking/internal/controller/state"
	"github.com/Freeeeeet/venue_booking/internal/model"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// AdminBookingService is the part of the booking core the admin bot drives.
type AdminBookingService interface {
	Approve(ctx context.Context, bookingID, adminID int64, notes string) (*model.Booking, error)
	Reject(ctx context.Context, bookingID, adminID int64, reason string) (*model.Booking, error)
	GetPendingBookings(ctx context.Context) ([]*model.Booking, error)
}

// TelegramUsers resolves chat users; nil, nil when the chat is not linked.
type TelegramUsers interface {
	GetByTelegramID(ctx context.Context, telegramID int64) (*model.User, error)
}

// BotController is the Telegram surface for administrators: it lists the
// pending queue and approves or rejects bookings from inline buttons.
type BotController struct {
	bot      *bot.Bot
	bookings AdminBookingService
	users    TelegramUsers
	dialogs  *state.Manager
	logger   *zap.Logger
}

func NewBotController(botInstance *bot.Bot, bookings AdminBookingService, users TelegramUsers, logger *zap.Logger) *BotController {
	return &BotController{
		bot:      botInstance,
		bookings: bookings,
		users:    users,
		dialogs:  state.NewManager(),
		logger:   logger,
	}
}

// RegisterHandlers wires commands and callbacks and publishes the command menu.
func (c *BotController) RegisterHandlers(ctx context.Context) error {
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/start", bot.MatchTypeExact, c.HandleStart)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/help", bot.MatchTypeExact, c.HandleStart)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/pending", bot.MatchTypeExact, c.HandlePending)

	c.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, callbackApprove, bot.MatchTypePrefix, c.HandleDecisionCallback)
	c.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, callbackReject, bot.MatchTypePrefix, c.HandleDecisionCallback)

	// Free-text replies while a rejection reason is being collected.
	c.bot.RegisterHandlerMatchFunc(c.awaitingRejectReason, c.HandleRejectReason)

	return c.setCommands(ctx)
}

func (c *BotController) setCommands(ctx context.Context) error {
	commands := []models.BotCommand{
		{Command: "start", Description: "Show your account status"},
		{Command: "pending", Description: "Bookings awaiting approval (admin)"},
	}

	_, err := c.bot.SetMyCommands(ctx, &bot.SetMyCommandsParams{
		Commands: commands,
	})
	if err != nil {
		c.logger.Error("Failed to set bot commands", zap.Error(err))
		return err
	}

	c.logger.Info("Bot commands menu set")
	return nil
}

// Start blocks polling updates until ctx is done.
func (c *BotController) Start(ctx context.Context) {
	c.logger.Info("Starting bot")
	c.bot.Start(ctx)
}
