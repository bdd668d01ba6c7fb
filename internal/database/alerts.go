package database

import (
	"context"
	"fmt"

	"github.com/ktanui/circulate/internal/models"
)

// AlertStore defines broadcast announcement operations.
type AlertStore interface {
	CreateAlert(ctx context.Context, a *models.Alert) (*models.Alert, error)
	ListAlerts(ctx context.Context) ([]models.Alert, error)
	DeleteAlert(ctx context.Context, id int32) error
}

const alertColumns = `id, text, day, date, created_at`

// CreateAlert inserts a broadcast and prunes everything beyond the newest
// five in the same transaction.
func (s *Store) CreateAlert(ctx context.Context, a *models.Alert) (*models.Alert, error) {
	var alert *models.Alert
	err := s.transact(ctx, func(tx *Store) error {
		row := tx.db.QueryRow(ctx, `
			INSERT INTO alerts (text, day, date)
			VALUES ($1, $2, $3)
			RETURNING `+alertColumns,
			a.Text, a.Day, a.Date)

		var out models.Alert
		if err := row.Scan(&out.ID, &out.Text, &out.Day, &out.Date, &out.CreatedAt); err != nil {
			return fmt.Errorf("failed to insert alert: %w", err)
		}

		_, err := tx.db.Exec(ctx, `
			DELETE FROM alerts
			WHERE id NOT IN (
				SELECT id FROM alerts ORDER BY created_at DESC LIMIT $1
			)`, models.MaxAlerts)
		if err != nil {
			return fmt.Errorf("failed to prune alerts: %w", err)
		}

		alert = &out
		return nil
	})
	return alert, err
}

func (s *Store) ListAlerts(ctx context.Context) ([]models.Alert, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+alertColumns+` FROM alerts
		ORDER BY created_at DESC
		LIMIT $1`, models.MaxAlerts)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var alerts []models.Alert
	for rows.Next() {
		var a models.Alert
		if err := rows.Scan(&a.ID, &a.Text, &a.Day, &a.Date, &a.CreatedAt); err != nil {
			return nil, err
		}
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

func (s *Store) DeleteAlert(ctx context.Context, id int32) error {
	_, err := s.db.Exec(ctx, `DELETE FROM alerts WHERE id = $1`, id)
	return err
}
