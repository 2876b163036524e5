// Package api exposes the booking core over HTTP/JSON.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/Freeeeeet/venue_booking/internal/model"
	"github.com/Freeeeeet/venue_booking/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// BookingService is implemented by *service.BookingService.
type BookingService interface {
	Validate(ctx context.Context, req service.BookingRequest) (service.ValidationErrors, error)
	Submit(ctx context.Context, req service.BookingRequest) (*model.Booking, error)
	Approve(ctx context.Context, bookingID, adminID int64, notes string) (*model.Booking, error)
	Reject(ctx context.Context, bookingID, adminID int64, reason string) (*model.Booking, error)
	Cancel(ctx context.Context, bookingID, requesterID int64) (*model.Booking, error)
	GetByID(ctx context.Context, bookingID int64) (*model.Booking, error)
	GetRequesterBookings(ctx context.Context, requesterID int64) ([]*model.Booking, error)
	GetPendingBookings(ctx context.Context) ([]*model.Booking, error)
}

// VenueService is implemented by *service.VenueService.
type VenueService interface {
	GetByID(ctx context.Context, venueID int64) (*model.Venue, error)
	Available(ctx context.Context, q service.VenueSearch) ([]*model.Venue, error)
}

// Sweeper runs one guarded expiry sweep; implemented by *app.Scheduler.
type Sweeper interface {
	RunOnce(ctx context.Context) (*service.SweepResult, error)
}

// UserGetter resolves the acting user; nil, nil when unknown.
type UserGetter interface {
	GetByID(ctx context.Context, id int64) (*model.User, error)
}

type Handler struct {
	bookings BookingService
	venues   VenueService
	sweeper  Sweeper
	users    UserGetter
	logger   *zap.Logger
}

func NewHandler(bookings BookingService, venues VenueService, sweeper Sweeper, users UserGetter, logger *zap.Logger) *Handler {
	return &Handler{
		bookings: bookings,
		venues:   venues,
		sweeper:  sweeper,
		users:    users,
		logger:   logger,
	}
}

// Routes builds the router. Every /api route requires an X-User-ID header
// naming an existing user; /api/admin routes additionally require the admin role.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(h.withActor)

		r.Post("/bookings", h.submitBooking)
		r.Post("/bookings/validate", h.validateBooking)
		r.Get("/bookings", h.listMyBookings)
		r.Get("/bookings/{id}", h.getBooking)
		r.Post("/bookings/{id}/cancel", h.cancelBooking)

		r.Get("/venues/available", h.listAvailableVenues)
		r.Get("/venues/{id}", h.getVenue)

		r.Route("/admin", func(r chi.Router) {
			r.Use(requireAdmin)

			r.Get("/bookings/pending", h.listPending)
			r.Post("/bookings/{id}/approve", h.approveBooking)
			r.Post("/bookings/{id}/reject", h.rejectBooking)
			r.Post("/sweep", h.runSweep)
		})
	})

	return r
}
