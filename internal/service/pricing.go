package service

import (
	"time"

	"github.com/Freeeeeet/venue_booking/internal/model"
)

// VenueCost prices [start, end) at hourlyRateCents, prorated per whole
// minute and rounded half up to the cent.
func VenueCost(hourlyRateCents int64, start, end time.Time) int64 {
	if hourlyRateCents <= 0 || !end.After(start) {
		return 0
	}
	minutes := int64(end.Sub(start) / time.Minute)
	return (hourlyRateCents*minutes + 30) / 60
}

// EquipmentSubtotal is the rental price of one equipment line.
func EquipmentSubtotal(e *model.Equipment, quantity int) int64 {
	if e == nil || quantity <= 0 {
		return 0
	}
	return e.RentalRateCents * int64(quantity)
}

// BookingCost is the venue cost for the booking window plus the equipment
// subtotals fixed at submission.
func BookingCost(venue *model.Venue, b *model.Booking) int64 {
	var total int64
	if venue != nil {
		total = VenueCost(venue.HourlyRateCents, b.StartTime, b.EndTime)
	}
	for _, item := range b.Equipment {
		total += item.SubtotalCents
	}
	return total
}
