package model

import (
	"errors"
	"time"
)

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"   // Waiting for an administrator decision
	BookingStatusApproved  BookingStatus = "approved"  // Approved by an administrator
	BookingStatusRejected  BookingStatus = "rejected"  // Rejected by an administrator or expired
	BookingStatusCancelled BookingStatus = "cancelled" // Cancelled by the requester
)

// ExpiredRejectionReason is recorded on bookings rejected by the expiry sweeper.
const ExpiredRejectionReason = "booking expired: event start time passed without admin action"

var ErrBookingNotFound = errors.New("booking not found")

// HoldsVenue reports whether a booking in this status occupies its venue slot.
func (s BookingStatus) HoldsVenue() bool {
	return s == BookingStatusPending || s == BookingStatusApproved
}

// HoldsEquipment reports whether a booking in this status keeps its equipment reserved.
func (s BookingStatus) HoldsEquipment() bool {
	return s == BookingStatusPending || s == BookingStatusApproved
}

// BookingEquipment is one equipment line item of a booking.
type BookingEquipment struct {
	BookingID     int64 `json:"booking_id,omitempty"`
	EquipmentID   int64 `json:"equipment_id"`
	Quantity      int   `json:"quantity"`
	SubtotalCents int64 `json:"subtotal_cents"` // unit rental rate at submission times Quantity
}

type Booking struct {
	ID                int64         `json:"id"`
	ReferenceCode     string        `json:"reference_code"`
	VenueID           int64         `json:"venue_id"`
	RequesterID       int64         `json:"requester_id"`
	EventTitle        string        `json:"event_title"`
	EventDescription  string        `json:"event_description"`
	StartTime         time.Time     `json:"start_time"`
	EndTime           time.Time     `json:"end_time"`
	ExpectedAttendees int           `json:"expected_attendees"`
	Status            BookingStatus `json:"status"`
	AdminNotes        string        `json:"admin_notes,omitempty"`
	RejectionReason   string        `json:"rejection_reason,omitempty"` // only set when status is rejected
	TotalCostCents    *int64        `json:"total_cost_cents,omitempty"` // set on approval
	CreatedAt         time.Time     `json:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at"`

	Equipment []BookingEquipment `json:"equipment"`
}

// StatusChange carries the fields written together with a new booking status.
type StatusChange struct {
	AdminNotes      string
	RejectionReason string
	TotalCostCents  *int64 // written only when non-nil
}

// Clone returns a deep copy of the booking.
func (b *Booking) Clone() *Booking {
	if b == nil {
		return nil
	}
	c := *b
	c.Equipment = append([]BookingEquipment(nil), b.Equipment...)
	if b.TotalCostCents != nil {
		total := *b.TotalCostCents
		c.TotalCostCents = &total
	}
	return &c
}
