package model

import (
	"errors"
	"time"
)

var (
	ErrEquipmentNotFound = errors.New("equipment not found")
	// ErrInsufficientQuantity is returned when an adjustment would move
	// available_quantity outside [0, quantity].
	ErrInsufficientQuantity = errors.New("insufficient equipment quantity")
)

type Equipment struct {
	ID                int64     `json:"id"`
	Name              string    `json:"name"`
	Category          string    `json:"category"` // Projector, Microphone, Table, Chair...
	Quantity          int       `json:"quantity"`
	AvailableQuantity int       `json:"available_quantity"`
	RentalRateCents   int64     `json:"rental_rate_per_unit_cents"`
	IsActive          bool      `json:"is_active"`
	CreatedAt         time.Time `json:"created_at"`
}

// CanAdjust reports whether available_quantity stays within [0, quantity] after adding delta.
func (e *Equipment) CanAdjust(delta int) bool {
	next := e.AvailableQuantity + delta
	return next >= 0 && next <= e.Quantity
}
