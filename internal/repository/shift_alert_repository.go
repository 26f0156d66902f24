package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/shift-bots/internal/models"
)

// ShiftAlertRepository persists closed-shift detections.
type ShiftAlertRepository struct {
	db *sqlx.DB
}

// NewShiftAlertRepository constructs the repository.
func NewShiftAlertRepository(db *sqlx.DB) *ShiftAlertRepository {
	return &ShiftAlertRepository{db: db}
}

// Create inserts an alert row, filling id and detected_at when unset.
func (r *ShiftAlertRepository) Create(ctx context.Context, alert *models.ShiftAlert) error {
	if alert.ID == "" {
		alert.ID = uuid.NewString()
	}
	if alert.DetectedAt.IsZero() {
		alert.DetectedAt = time.Now().UTC()
	}
	const query = `INSERT INTO shift_alerts (id, calendar_id, event_id, summary, starts_at, detected_at)
VALUES (:id, :calendar_id, :event_id, :summary, :starts_at, :detected_at)`
	if _, err := r.db.NamedExecContext(ctx, query, alert); err != nil {
		return fmt.Errorf("create shift alert: %w", err)
	}
	return nil
}
