package model

import (
	"errors"
	"time"
)

var ErrVenueNotFound = errors.New("venue not found")

type Venue struct {
	ID              int64     `json:"id"`
	Name            string    `json:"name"`
	Location        string    `json:"location"`
	Capacity        int       `json:"capacity"`
	HourlyRateCents int64     `json:"hourly_rate_cents"` // minor units, 0 means free
	IsActive        bool      `json:"is_active"`
	CreatedAt       time.Time `json:"created_at"`
}
