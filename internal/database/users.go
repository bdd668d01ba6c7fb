package database

import (
	"context"

	"github.com/ktanui/circulate/internal/models"
)

// UserStore defines the account operations used by the user and auth
// services.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) (*models.User, error)
	GetUser(ctx context.Context, id int32) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	ListUsers(ctx context.Context, role models.UserRole, limit, offset int32) ([]models.User, error)
	UpdateUserProfile(ctx context.Context, id int32, displayName, department string) (*models.User, error)
	SetUserStatus(ctx context.Context, id int32, status models.UserStatus) error
	SetEmailVerified(ctx context.Context, id int32) error
	UpdatePassword(ctx context.Context, id int32, passwordHash string) error
	DeleteUser(ctx context.Context, id int32) error
	CountUsers(ctx context.Context, role models.UserRole) (int64, error)
	CountActiveLoansByStudent(ctx context.Context, studentID int32) (int64, error)
}

const userColumns = `id, display_name, email, password_hash, department, role, status, email_verified, created_at`

func scanUser(row interface{ Scan(dest ...any) error }) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.DisplayName, &u.Email, &u.PasswordHash, &u.Department,
		&u.Role, &u.Status, &u.EmailVerified, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Store) CreateUser(ctx context.Context, user *models.User) (*models.User, error) {
	row := s.db.QueryRow(ctx, `
		INSERT INTO users (display_name, email, password_hash, department, role, status, email_verified)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+userColumns,
		user.DisplayName, user.Email, user.PasswordHash, user.Department,
		user.Role, user.Status, user.EmailVerified)
	return scanUser(row)
}

func (s *Store) GetUser(ctx context.Context, id int32) (*models.User, error) {
	row := s.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	row := s.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email)
	return scanUser(row)
}

func (s *Store) ListUsers(ctx context.Context, role models.UserRole, limit, offset int32) ([]models.User, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+userColumns+` FROM users
		WHERE role = $1
		ORDER BY display_name ASC
		LIMIT $2 OFFSET $3`, role, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

func (s *Store) UpdateUserProfile(ctx context.Context, id int32, displayName, department string) (*models.User, error) {
	row := s.db.QueryRow(ctx, `
		UPDATE users SET display_name = $2, department = $3
		WHERE id = $1
		RETURNING `+userColumns,
		id, displayName, department)
	return scanUser(row)
}

func (s *Store) SetUserStatus(ctx context.Context, id int32, status models.UserStatus) error {
	_, err := s.db.Exec(ctx, `UPDATE users SET status = $2 WHERE id = $1`, id, status)
	return err
}

func (s *Store) SetEmailVerified(ctx context.Context, id int32) error {
	_, err := s.db.Exec(ctx, `UPDATE users SET email_verified = true WHERE id = $1`, id)
	return err
}

func (s *Store) UpdatePassword(ctx context.Context, id int32, passwordHash string) error {
	_, err := s.db.Exec(ctx, `UPDATE users SET password_hash = $2 WHERE id = $1`, id, passwordHash)
	return err
}

func (s *Store) DeleteUser(ctx context.Context, id int32) error {
	_, err := s.db.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	return err
}

func (s *Store) CountUsers(ctx context.Context, role models.UserRole) (int64, error) {
	var count int64
	err := s.db.QueryRow(ctx, `SELECT count(*) FROM users WHERE role = $1`, role).Scan(&count)
	return count, err
}

func (s *Store) CountActiveLoansByStudent(ctx context.Context, studentID int32) (int64, error) {
	var count int64
	err := s.db.QueryRow(ctx, `
		SELECT count(*) FROM loans
		WHERE student_id = $1 AND status IN ('Issued', 'Reissued')`, studentID).Scan(&count)
	return count, err
}
