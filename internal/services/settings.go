package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ktanui/circulate/internal/database"
	"github.com/ktanui/circulate/internal/models"
)

// SettingsService manages the singleton library configuration and serves
// as the LoanPolicy for the lending engine. A duration change applies to
// approvals made after it; existing due dates are never recomputed.
type SettingsService struct {
	store  database.SettingsStore
	logger *slog.Logger
}

func NewSettingsService(store database.SettingsStore, logger *slog.Logger) *SettingsService {
	return &SettingsService{store: store, logger: logger}
}

// LoanDuration returns the configured duration in days, falling back to
// the default when the read fails. Issuing a book must not depend on the
// settings row being reachable.
func (s *SettingsService) LoanDuration(ctx context.Context) int32 {
	cfg, err := s.store.GetLibraryConfig(ctx)
	if err != nil {
		s.logger.Warn("failed to read library config, using default",
			slog.String("error", err.Error()))
		return models.DefaultLoanDurationDays
	}
	if cfg.LoanDuration < 1 {
		return models.DefaultLoanDurationDays
	}
	return cfg.LoanDuration
}

// GetConfig returns the stored configuration.
func (s *SettingsService) GetConfig(ctx context.Context) (*models.LibraryConfig, error) {
	cfg, err := s.store.GetLibraryConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get library config: %w", err)
	}
	return cfg, nil
}

// UpdateConfig stores a new loan duration.
func (s *SettingsService) UpdateConfig(ctx context.Context, req *models.UpdateLibraryConfigRequest) (*models.LibraryConfig, error) {
	cfg := &models.LibraryConfig{LoanDuration: req.LoanDuration}
	if err := s.store.UpsertLibraryConfig(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to update library config: %w", err)
	}

	s.logger.Info("loan duration updated", slog.Int("days", int(req.LoanDuration)))
	return cfg, nil
}
