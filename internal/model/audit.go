package model

import "time"

const (
	AuditActionBookingCreated   = "booking_created"
	AuditActionBookingApproved  = "booking_approved"
	AuditActionBookingRejected  = "booking_rejected"
	AuditActionBookingCancelled = "booking_cancelled"
	AuditActionBookingExpired   = "booking_expired"
)

const AuditTargetBooking = "booking"

type AuditEntry struct {
	ID          int64          `json:"id"`
	ActorID     *int64         `json:"actor_id"` // nil for system actions
	Action      string         `json:"action"`
	TargetType  string         `json:"target_type"`
	TargetID    int64          `json:"target_id"`
	Before      map[string]any `json:"before"`
	After       map[string]any `json:"after"`
	Description string         `json:"description"`
	CreatedAt   time.Time      `json:"created_at"`
}
