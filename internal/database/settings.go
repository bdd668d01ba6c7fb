package database

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/ktanui/circulate/internal/models"
)

// SettingsStore defines access to the singleton library configuration.
type SettingsStore interface {
	GetLibraryConfig(ctx context.Context) (*models.LibraryConfig, error)
	UpsertLibraryConfig(ctx context.Context, cfg *models.LibraryConfig) error
}

// GetLibraryConfig returns the stored config, falling back to the default
// loan duration when none has been saved yet.
func (s *Store) GetLibraryConfig(ctx context.Context) (*models.LibraryConfig, error) {
	var cfg models.LibraryConfig
	err := s.db.QueryRow(ctx, `SELECT loan_duration FROM library_config WHERE id = true`).
		Scan(&cfg.LoanDuration)
	if errors.Is(err, pgx.ErrNoRows) {
		return &models.LibraryConfig{LoanDuration: models.DefaultLoanDurationDays}, nil
	}
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (s *Store) UpsertLibraryConfig(ctx context.Context, cfg *models.LibraryConfig) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO library_config (id, loan_duration)
		VALUES (true, $1)
		ON CONFLICT (id) DO UPDATE SET loan_duration = EXCLUDED.loan_duration`,
		cfg.LoanDuration)
	return err
}
