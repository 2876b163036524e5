package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Freeeeeet/venue_booking/internal/model"
	"github.com/Freeeeeet/venue_booking/internal/repository/base"
)

type AuditRepository struct {
	*base.Repository
}

func NewAuditRepository(q base.Querier) *AuditRepository {
	return &AuditRepository{Repository: base.NewRepository(q)}
}

// Record appends an entry to audit_logs. Before and After are stored as JSONB.
func (r *AuditRepository) Record(ctx context.Context, entry *model.AuditEntry) error {
	before, err := marshalSnapshot(entry.Before)
	if err != nil {
		return fmt.Errorf("marshal audit before: %w", err)
	}
	after, err := marshalSnapshot(entry.After)
	if err != nil {
		return fmt.Errorf("marshal audit after: %w", err)
	}

	query := `
		INSERT INTO audit_logs (actor_id, action, target_type, target_id, before, after, description)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`

	err = r.Q().QueryRow(
		ctx, query,
		entry.ActorID,
		entry.Action,
		entry.TargetType,
		entry.TargetID,
		before,
		after,
		entry.Description,
	).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("record audit entry: %w", err)
	}
	return nil
}

// ListByTarget returns the history of one object, oldest first.
func (r *AuditRepository) ListByTarget(ctx context.Context, targetType string, targetID int64) ([]*model.AuditEntry, error) {
	query := `
		SELECT id, actor_id, action, target_type, target_id, before, after, description, created_at
		FROM audit_logs
		WHERE target_type = $1 AND target_id = $2
		ORDER BY created_at, id
	`

	rows, err := r.Q().Query(ctx, query, targetType, targetID)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()

	var entries []*model.AuditEntry
	for rows.Next() {
		var (
			e             model.AuditEntry
			before, after []byte
		)
		if err := rows.Scan(&e.ID, &e.ActorID, &e.Action, &e.TargetType, &e.TargetID, &before, &after, &e.Description, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		if len(before) > 0 {
			if err := json.Unmarshal(before, &e.Before); err != nil {
				return nil, fmt.Errorf("decode audit before: %w", err)
			}
		}
		if len(after) > 0 {
			if err := json.Unmarshal(after, &e.After); err != nil {
				return nil, fmt.Errorf("decode audit after: %w", err)
			}
		}
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit entries: %w", err)
	}
	return entries, nil
}

func marshalSnapshot(snapshot map[string]any) ([]byte, error) {
	if snapshot == nil {
		return nil, nil
	}
	return json.Marshal(snapshot)
}
