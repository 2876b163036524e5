package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/Freeeeeet/venue_booking/internal/app"
	"github.com/Freeeeeet/venue_booking/internal/model"
	"github.com/Freeeeeet/venue_booking/internal/service"
	"github.com/go-chi/chi/v5"
)

func (h *Handler) submitBooking(w http.ResponseWriter, r *http.Request) {
	var req service.BookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error(), nil)
		return
	}
	req.RequesterID = actorFrom(r.Context()).ID

	booking, err := h.bookings.Submit(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, booking)
}

type validationResponse struct {
	Valid  bool                 `json:"valid"`
	Fields []service.FieldError `json:"fields"`
}

// validateBooking runs the admission checks without creating anything.
func (h *Handler) validateBooking(w http.ResponseWriter, r *http.Request) {
	var req service.BookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error(), nil)
		return
	}
	req.RequesterID = actorFrom(r.Context()).ID

	verrs, err := h.bookings.Validate(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if verrs == nil {
		verrs = service.ValidationErrors{}
	}
	writeJSON(w, http.StatusOK, validationResponse{Valid: len(verrs) == 0, Fields: verrs})
}

func (h *Handler) getBooking(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "booking")
	if !ok {
		return
	}

	booking, err := h.bookings.GetByID(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	actor := actorFrom(r.Context())
	if booking.RequesterID != actor.ID && !actor.IsAdmin() {
		h.writeServiceError(w, r, service.ErrForbidden)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func (h *Handler) listMyBookings(w http.ResponseWriter, r *http.Request) {
	bookings, err := h.bookings.GetRequesterBookings(r.Context(), actorFrom(r.Context()).ID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(bookings))
}

func (h *Handler) cancelBooking(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "booking")
	if !ok {
		return
	}

	booking, err := h.bookings.Cancel(r.Context(), id, actorFrom(r.Context()).ID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func (h *Handler) listPending(w http.ResponseWriter, r *http.Request) {
	bookings, err := h.bookings.GetPendingBookings(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(bookings))
}

func (h *Handler) approveBooking(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "booking")
	if !ok {
		return
	}

	var body struct {
		Notes string `json:"notes"`
	}
	if !decodeOptional(w, r, &body) {
		return
	}

	booking, err := h.bookings.Approve(r.Context(), id, actorFrom(r.Context()).ID, body.Notes)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func (h *Handler) rejectBooking(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "booking")
	if !ok {
		return
	}

	var body struct {
		Reason string `json:"reason"`
	}
	if !decodeOptional(w, r, &body) {
		return
	}

	booking, err := h.bookings.Reject(r.Context(), id, actorFrom(r.Context()).ID, body.Reason)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func (h *Handler) getVenue(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "venue")
	if !ok {
		return
	}

	venue, err := h.venues.GetByID(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, venue)
}

// listAvailableVenues serves ?start=&end=&min_capacity= with RFC 3339 times.
func (h *Handler) listAvailableVenues(w http.ResponseWriter, r *http.Request) {
	var (
		q   service.VenueSearch
		err error
	)
	query := r.URL.Query()

	if v := query.Get("start"); v != "" {
		if q.StartTime, err = time.Parse(time.RFC3339, v); err != nil {
			writeError(w, http.StatusBadRequest, "invalid start: "+err.Error(), nil)
			return
		}
	}
	if v := query.Get("end"); v != "" {
		if q.EndTime, err = time.Parse(time.RFC3339, v); err != nil {
			writeError(w, http.StatusBadRequest, "invalid end: "+err.Error(), nil)
			return
		}
	}
	if v := query.Get("min_capacity"); v != "" {
		if q.MinCapacity, err = strconv.Atoi(v); err != nil {
			writeError(w, http.StatusBadRequest, "invalid min_capacity", nil)
			return
		}
	}

	venues, err := h.venues.Available(r.Context(), q)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if venues == nil {
		venues = []*model.Venue{}
	}
	writeJSON(w, http.StatusOK, venues)
}

func (h *Handler) runSweep(w http.ResponseWriter, r *http.Request) {
	result, err := h.sweeper.RunOnce(r.Context())
	if errors.Is(err, app.ErrSweepInProgress) {
		writeError(w, http.StatusConflict, err.Error(), nil)
		return
	}
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func pathID(w http.ResponseWriter, r *http.Request, resource string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid "+resource+" id", nil)
		return 0, false
	}
	return id, true
}

// decodeOptional accepts an empty body.
func decodeOptional(w http.ResponseWriter, r *http.Request, dst any) bool {
	if r.ContentLength == 0 {
		return true
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error(), nil)
		return false
	}
	return true
}

func nonNil(bookings []*model.Booking) []*model.Booking {
	if bookings == nil {
		return []*model.Booking{}
	}
	return bookings
}
