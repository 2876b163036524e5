package model

type NotificationKind string

const (
	NotificationBookingSubmitted NotificationKind = "booking_submitted"
	NotificationBookingApproved  NotificationKind = "booking_approved"
	NotificationBookingRejected  NotificationKind = "booking_rejected"
	NotificationBookingExpired   NotificationKind = "booking_expired"
)

// Notification is a single delivery request: one event kind for one recipient.
type Notification struct {
	Kind      NotificationKind
	Booking   *Booking
	Recipient *User
}
