package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ktanui/circulate/internal/database"
	"github.com/ktanui/circulate/internal/models"
)

// PasswordHasher is satisfied by AuthService; the user service never sees
// raw argon2 parameters.
type PasswordHasher interface {
	HashPassword(password string) (string, error)
	GenerateEmailVerificationToken(userID int32) (string, error)
}

// UserService manages accounts: registration, profile edits, blocking
// and deletion.
type UserService struct {
	store  database.UserStore
	hasher PasswordHasher
	logger *slog.Logger
}

func NewUserService(store database.UserStore, hasher PasswordHasher, logger *slog.Logger) *UserService {
	return &UserService{store: store, hasher: hasher, logger: logger}
}

// CreateUser registers an account in the given role. The account starts
// unverified; a verification token is issued so the confirmation link can
// be delivered.
func (s *UserService) CreateUser(ctx context.Context, req *models.CreateUserRequest, role models.UserRole) (*models.User, error) {
	if !role.IsValid() {
		role = models.RoleStudent
	}

	hash, err := s.hasher.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user, err := s.store.CreateUser(ctx, &models.User{
		DisplayName:  req.DisplayName,
		Email:        req.Email,
		PasswordHash: hash,
		Department:   req.Department,
		Role:         role,
		Status:       models.UserStatusActive,
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	if _, err := s.hasher.GenerateEmailVerificationToken(user.ID); err != nil {
		s.logger.Warn("failed to issue verification token",
			slog.Int("user_id", int(user.ID)),
			slog.String("error", err.Error()))
	}

	s.logger.Info("user created",
		slog.Int("user_id", int(user.ID)),
		slog.String("role", string(user.Role)))

	return user, nil
}

// GetUser fetches one account.
func (s *UserService) GetUser(ctx context.Context, id int32) (*models.User, error) {
	user, err := s.store.GetUser(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// ListUsers returns a page of accounts for one role.
func (s *UserService) ListUsers(ctx context.Context, role models.UserRole, page, limit int) (*models.UserListResponse, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	offset := int32((page - 1) * limit)

	users, err := s.store.ListUsers(ctx, role, int32(limit), offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	total, err := s.store.CountUsers(ctx, role)
	if err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}

	responses := make([]models.UserResponse, 0, len(users))
	for i := range users {
		responses = append(responses, users[i].ToResponse())
	}

	return &models.UserListResponse{
		Users: responses,
		Pagination: models.Pagination{
			Page:       page,
			Limit:      limit,
			Total:      total,
			TotalPages: int((total + int64(limit) - 1) / int64(limit)),
		},
	}, nil
}

// UpdateProfile edits display name and department.
func (s *UserService) UpdateProfile(ctx context.Context, id int32, req *models.UpdateUserRequest) (*models.User, error) {
	user, err := s.store.GetUser(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	displayName := user.DisplayName
	if req.DisplayName != nil {
		displayName = *req.DisplayName
	}
	department := user.Department
	if req.Department != nil {
		department = *req.Department
	}

	updated, err := s.store.UpdateUserProfile(ctx, id, displayName, department)
	if err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return updated, nil
}

// SetStatus blocks or unblocks an account. A blocked student keeps their
// issued books but cannot submit new requests or log in.
func (s *UserService) SetStatus(ctx context.Context, id int32, status models.UserStatus) error {
	if status != models.UserStatusActive && status != models.UserStatusBlocked {
		return fmt.Errorf("invalid user status: %s", status)
	}

	if _, err := s.store.GetUser(ctx, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to get user: %w", err)
	}

	if err := s.store.SetUserStatus(ctx, id, status); err != nil {
		return fmt.Errorf("failed to set user status: %w", err)
	}

	s.logger.Info("user status changed",
		slog.Int("user_id", int(id)),
		slog.String("status", string(status)))

	return nil
}

// DeleteUser removes an account. Deletion is refused while the student
// still holds issued books; they must come back first.
func (s *UserService) DeleteUser(ctx context.Context, id int32) error {
	if _, err := s.store.GetUser(ctx, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to get user: %w", err)
	}

	active, err := s.store.CountActiveLoansByStudent(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to count active loans: %w", err)
	}
	if active > 0 {
		return ErrHasActiveLoans
	}

	if err := s.store.DeleteUser(ctx, id); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return ErrHasLoanHistory
		}
		return fmt.Errorf("failed to delete user: %w", err)
	}

	s.logger.Info("user deleted", slog.Int("user_id", int(id)))
	return nil
}
