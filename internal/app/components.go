package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/Freeeeeet/venue_booking/internal/config"
	"github.com/Freeeeeet/venue_booking/internal/lock"
	"github.com/Freeeeeet/venue_booking/internal/notifier"
	"github.com/Freeeeeet/venue_booking/internal/repository"
	"github.com/Freeeeeet/venue_booking/internal/service"
	"github.com/go-redis/redis/v8"
	"github.com/go-telegram/bot"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const sweepLockKey = "venue_booking:expiry_sweep"

// ErrSharedGuardRequired is returned by Build when the caller needs a sweep
// guard visible to other processes and REDIS_ADDR is not set.
var ErrSharedGuardRequired = errors.New("REDIS_ADDR is required for a cross-process sweep guard")

type buildOptions struct {
	requireSharedGuard bool
}

type BuildOption func(*buildOptions)

// RequireSharedGuard makes Build fail instead of falling back to an
// in-process guard. Separate processes such as cmd/sweep need it to exclude
// the server's scheduler.
func RequireSharedGuard() BuildOption {
	return func(o *buildOptions) { o.requireSharedGuard = true }
}

// Components is the assembled core shared by the server and the one-shot
// sweep command.
type Components struct {
	Pool      *pgxpool.Pool
	Store     *repository.Store
	Bookings  *service.BookingService
	Venues    *service.VenueService
	Scheduler *Scheduler
	// Bot is nil when TELEGRAM_TOKEN is not set.
	Bot *bot.Bot

	closers []func() error
}

// Build connects to every configured backend and wires the core.
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts ...BuildOption) (*Components, error) {
	var o buildOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.requireSharedGuard && cfg.RedisAddr == "" {
		return nil, ErrSharedGuardRequired
	}

	c := &Components{}

	pool, err := pgxpool.New(ctx, cfg.DBDSN)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	c.Pool = pool
	c.closers = append(c.closers, func() error { pool.Close(); return nil })

	if err := pool.Ping(ctx); err != nil {
		c.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	c.Store = repository.NewStore(pool)

	var notifiers []service.Notifier

	if cfg.TelegramToken != "" {
		c.Bot, err = bot.New(cfg.TelegramToken)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("create telegram bot: %w", err)
		}
		notifiers = append(notifiers, notifier.NewTelegram(c.Bot, logger.Named("telegram")))
	} else {
		logger.Info("TELEGRAM_TOKEN not set, telegram bot and notifications disabled")
	}

	if len(cfg.KafkaBrokers) > 0 {
		writer := notifier.NewKafkaWriter(cfg.KafkaBrokers, cfg.KafkaTopic)
		c.closers = append(c.closers, writer.Close)
		notifiers = append(notifiers, notifier.NewKafka(writer))
	} else {
		logger.Info("KAFKA_BROKERS not set, booking events are not published")
	}

	var guard lock.Guard
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			c.Close()
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		c.closers = append(c.closers, client.Close)
		guard = lock.NewRedisGuard(client, sweepLockKey, cfg.SweepLockTTL)
	} else {
		logger.Info("REDIS_ADDR not set, using in-process sweep guard")
		guard = lock.NewLocalGuard()
	}

	dispatcher := service.NewDispatcher(c.Store, logger.Named("dispatcher"),
		service.WithNotifiers(notifiers...),
		service.WithAuditor(c.Store.Audit()),
		service.WithRetry(cfg.NotifyMaxRetries, service.DefaultRetryDelay),
	)

	clock := service.SystemClock{}
	c.Bookings = service.NewBookingService(c.Store, dispatcher, clock, logger.Named("bookings"))
	c.Venues = service.NewVenueService(c.Store, logger.Named("venues"))
	sweeper := service.NewExpirySweeper(c.Store, c.Bookings, clock, logger.Named("sweeper"))
	c.Scheduler = NewScheduler(sweeper, guard, cfg.SweepInterval, logger.Named("scheduler"))

	return c, nil
}

// Close releases connections in reverse order of creation.
func (c *Components) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}
