package notifier

import (
	"fmt"
	"html"
	"strings"

	"github.com/Freeeeeet/venue_booking/internal/model"
)

const timeLayout = "02.01.2006 15:04"

// FormatBooking renders the booking as Telegram HTML.
func FormatBooking(b *model.Booking) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "<b>%s</b> (%s)\n", html.EscapeString(b.EventTitle), html.EscapeString(b.ReferenceCode))
	fmt.Fprintf(&sb, "Venue #%d, %s - %s\n", b.VenueID, b.StartTime.Format(timeLayout), b.EndTime.Format(timeLayout))
	fmt.Fprintf(&sb, "Attendees: %d\n", b.ExpectedAttendees)

	if len(b.Equipment) > 0 {
		sb.WriteString("Equipment:")
		for _, item := range b.Equipment {
			fmt.Fprintf(&sb, " #%d x%d", item.EquipmentID, item.Quantity)
		}
		sb.WriteString("\n")
	}

	if b.TotalCostCents != nil {
		fmt.Fprintf(&sb, "Total: %s\n", FormatCents(*b.TotalCostCents))
	}

	return sb.String()
}

// FormatCents renders minor units as a decimal amount, e.g. 38550 -> "385.50".
func FormatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign, cents = "-", -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}

// FormatNotification renders the message text for one notification.
func FormatNotification(n model.Notification) string {
	b := n.Booking

	var header string
	switch n.Kind {
	case model.NotificationBookingSubmitted:
		header = "New booking request awaiting approval"
	case model.NotificationBookingApproved:
		header = "Your booking was approved"
	case model.NotificationBookingRejected:
		header = "Your booking was rejected"
	case model.NotificationBookingExpired:
		header = "Your booking expired without a decision"
	default:
		header = "Booking update"
	}

	text := header + "\n\n" + FormatBooking(b)

	if b.AdminNotes != "" && n.Kind == model.NotificationBookingApproved {
		text += "\nNotes: " + html.EscapeString(b.AdminNotes)
	}
	if b.RejectionReason != "" {
		text += "\nReason: " + html.EscapeString(b.RejectionReason)
	}
	return text
}
