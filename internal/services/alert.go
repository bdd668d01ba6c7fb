package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ktanui/circulate/internal/database"
	"github.com/ktanui/circulate/internal/models"
)

// AlertService manages broadcast announcements. Only the newest
// models.MaxAlerts are kept; posting prunes the rest.
type AlertService struct {
	store  database.AlertStore
	logger *slog.Logger
}

func NewAlertService(store database.AlertStore, logger *slog.Logger) *AlertService {
	return &AlertService{store: store, logger: logger}
}

// Post publishes an announcement stamped with the posting day and date.
func (s *AlertService) Post(ctx context.Context, req *models.PostAlertRequest) (*models.Alert, error) {
	now := time.Now()
	alert, err := s.store.CreateAlert(ctx, &models.Alert{
		Text: req.Text,
		Day:  now.Format("Monday"),
		Date: now.Format("2006-01-02"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create alert: %w", err)
	}

	s.logger.Info("alert posted", slog.Int("alert_id", int(alert.ID)))
	return alert, nil
}

// List returns the retained announcements, newest first.
func (s *AlertService) List(ctx context.Context) ([]models.Alert, error) {
	alerts, err := s.store.ListAlerts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}
	if alerts == nil {
		alerts = []models.Alert{}
	}
	return alerts, nil
}

// Delete removes one announcement.
func (s *AlertService) Delete(ctx context.Context, id int32) error {
	if err := s.store.DeleteAlert(ctx, id); err != nil {
		return fmt.Errorf("failed to delete alert: %w", err)
	}
	return nil
}
