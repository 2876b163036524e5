package service

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/venue_booking/internal/model"
)

type EquipmentViolationReason string

const (
	EquipmentNotFound     EquipmentViolationReason = "not_found"
	EquipmentInactive     EquipmentViolationReason = "inactive"
	EquipmentInsufficient EquipmentViolationReason = "insufficient"
)

// EquipmentViolation describes why one line item cannot be served.
type EquipmentViolation struct {
	Index       int // position of the line item in the request
	EquipmentID int64
	Name        string
	Reason      EquipmentViolationReason
	Requested   int
	Available   int
	Shortfall   int
}

// CheckEquipment is the read-only admission check for equipment line items.
// It never changes available quantities.
func CheckEquipment(ctx context.Context, src EquipmentGetter, items []model.BookingEquipment) ([]EquipmentViolation, error) {
	var violations []EquipmentViolation

	for i, item := range items {
		eq, err := src.GetEquipment(ctx, item.EquipmentID)
		if err != nil {
			return nil, fmt.Errorf("get equipment %d: %w", item.EquipmentID, err)
		}

		v := EquipmentViolation{
			Index:       i,
			EquipmentID: item.EquipmentID,
			Requested:   item.Quantity,
		}

		switch {
		case eq == nil:
			v.Reason = EquipmentNotFound
		case !eq.IsActive:
			v.Name = eq.Name
			v.Reason = EquipmentInactive
		case item.Quantity > eq.AvailableQuantity:
			v.Name = eq.Name
			v.Reason = EquipmentInsufficient
			v.Available = eq.AvailableQuantity
			v.Shortfall = item.Quantity - eq.AvailableQuantity
		default:
			continue
		}

		violations = append(violations, v)
	}

	return violations, nil
}
