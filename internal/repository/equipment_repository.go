package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/venue_booking/internal/model"
	"github.com/Freeeeeet/venue_booking/internal/repository/base"
)

type EquipmentRepository struct {
	*base.Repository
}

func NewEquipmentRepository(q base.Querier) *EquipmentRepository {
	return &EquipmentRepository{Repository: base.NewRepository(q)}
}

// GetByID returns nil, nil when the equipment does not exist.
func (r *EquipmentRepository) GetByID(ctx context.Context, id int64) (*model.Equipment, error) {
	query := `
		SELECT id, name, category, quantity, available_quantity, rental_rate_per_unit_cents, is_active, created_at
		FROM equipment
		WHERE id = $1
	`

	var e model.Equipment
	err := r.Q().QueryRow(ctx, query, id).Scan(
		&e.ID,
		&e.Name,
		&e.Category,
		&e.Quantity,
		&e.AvailableQuantity,
		&e.RentalRateCents,
		&e.IsActive,
		&e.CreatedAt,
	)
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get equipment by id: %w", err)
	}
	return &e, nil
}

// LockForUpdate row-locks the given equipment in id order so concurrent
// reservations over overlapping sets cannot deadlock.
func (r *EquipmentRepository) LockForUpdate(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	rows, err := r.Q().Query(ctx, `SELECT id FROM equipment WHERE id = ANY($1) ORDER BY id FOR UPDATE`, ids)
	if err != nil {
		return fmt.Errorf("lock equipment: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("lock equipment: %w", err)
	}
	return nil
}

// AdjustAvailableQuantity adds delta to available_quantity. The update only
// matches while the result stays within [0, quantity]; otherwise it returns
// model.ErrInsufficientQuantity, or model.ErrEquipmentNotFound for unknown ids.
func (r *EquipmentRepository) AdjustAvailableQuantity(ctx context.Context, id int64, delta int) error {
	query := `
		UPDATE equipment
		SET available_quantity = available_quantity + $2,
		    updated_at = NOW()
		WHERE id = $1
		  AND available_quantity + $2 BETWEEN 0 AND quantity
	`

	affected, err := r.ExecAffected(ctx, query, id, delta)
	if err != nil {
		return fmt.Errorf("adjust equipment %d by %d: %w", id, delta, err)
	}
	if affected == 1 {
		return nil
	}

	var exists bool
	if err := r.Q().QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM equipment WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("check equipment %d: %w", id, err)
	}
	if !exists {
		return fmt.Errorf("adjust equipment %d: %w", id, model.ErrEquipmentNotFound)
	}
	return fmt.Errorf("adjust equipment %d by %d: %w", id, delta, model.ErrInsufficientQuantity)
}
