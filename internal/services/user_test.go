package services

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ktanui/circulate/internal/models"
)

// MockUserStore implements database.UserStore for testing
type MockUserStore struct {
	mock.Mock
}

func (m *MockUserStore) CreateUser(ctx context.Context, user *models.User) (*models.User, error) {
	args := m.Called(ctx, user)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserStore) GetUser(ctx context.Context, id int32) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserStore) ListUsers(ctx context.Context, role models.UserRole, limit, offset int32) ([]models.User, error) {
	args := m.Called(ctx, role, limit, offset)
	return args.Get(0).([]models.User), args.Error(1)
}

func (m *MockUserStore) UpdateUserProfile(ctx context.Context, id int32, displayName, department string) (*models.User, error) {
	args := m.Called(ctx, id, displayName, department)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserStore) SetUserStatus(ctx context.Context, id int32, status models.UserStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockUserStore) SetEmailVerified(ctx context.Context, id int32) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockUserStore) UpdatePassword(ctx context.Context, id int32, passwordHash string) error {
	args := m.Called(ctx, id, passwordHash)
	return args.Error(0)
}

func (m *MockUserStore) DeleteUser(ctx context.Context, id int32) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockUserStore) CountUsers(ctx context.Context, role models.UserRole) (int64, error) {
	args := m.Called(ctx, role)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockUserStore) CountActiveLoansByStudent(ctx context.Context, studentID int32) (int64, error) {
	args := m.Called(ctx, studentID)
	return args.Get(0).(int64), args.Error(1)
}

// MockHasher implements PasswordHasher for testing
type MockHasher struct {
	mock.Mock
}

func (m *MockHasher) HashPassword(password string) (string, error) {
	args := m.Called(password)
	return args.String(0), args.Error(1)
}

func (m *MockHasher) GenerateEmailVerificationToken(userID int32) (string, error) {
	args := m.Called(userID)
	return args.String(0), args.Error(1)
}

func newTestUserService(store *MockUserStore, hasher *MockHasher) *UserService {
	return NewUserService(store, hasher, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestUserService_CreateUser_Success(t *testing.T) {
	store := &MockUserStore{}
	hasher := &MockHasher{}
	service := newTestUserService(store, hasher)
	ctx := context.Background()

	created := testStudentUser()
	created.EmailVerified = false

	hasher.On("HashPassword", "secret-password").Return("$argon2id$hash", nil)
	store.On("CreateUser", ctx, mock.MatchedBy(func(u *models.User) bool {
		return u.Role == models.RoleStudent && u.Status == models.UserStatusActive && u.PasswordHash == "$argon2id$hash"
	})).Return(created, nil)
	hasher.On("GenerateEmailVerificationToken", created.ID).Return("token", nil)

	user, err := service.CreateUser(ctx, &models.CreateUserRequest{
		DisplayName: "Jordan Kiprotich",
		Email:       "jordan@example.com",
		Password:    "secret-password",
	}, models.RoleStudent)

	require.NoError(t, err)
	assert.False(t, user.EmailVerified)
	store.AssertExpectations(t)
	hasher.AssertExpectations(t)
}

func TestUserService_DeleteUser_BlockedByActiveLoans(t *testing.T) {
	store := &MockUserStore{}
	service := newTestUserService(store, &MockHasher{})
	ctx := context.Background()

	store.On("GetUser", ctx, int32(7)).Return(testStudentUser(), nil)
	store.On("CountActiveLoansByStudent", ctx, int32(7)).Return(int64(1), nil)

	err := service.DeleteUser(ctx, 7)

	require.ErrorIs(t, err, ErrHasActiveLoans)
	store.AssertNotCalled(t, "DeleteUser", mock.Anything, mock.Anything)
	store.AssertExpectations(t)
}

func TestUserService_DeleteUser_Success(t *testing.T) {
	store := &MockUserStore{}
	service := newTestUserService(store, &MockHasher{})
	ctx := context.Background()

	store.On("GetUser", ctx, int32(7)).Return(testStudentUser(), nil)
	store.On("CountActiveLoansByStudent", ctx, int32(7)).Return(int64(0), nil)
	store.On("DeleteUser", ctx, int32(7)).Return(nil)

	err := service.DeleteUser(ctx, 7)

	require.NoError(t, err)
	store.AssertExpectations(t)
}

func TestUserService_DeleteUser_RetainedLoanHistory(t *testing.T) {
	store := &MockUserStore{}
	service := newTestUserService(store, &MockHasher{})
	ctx := context.Background()

	store.On("GetUser", ctx, int32(7)).Return(testStudentUser(), nil)
	store.On("CountActiveLoansByStudent", ctx, int32(7)).Return(int64(0), nil)
	store.On("DeleteUser", ctx, int32(7)).Return(&pgconn.PgError{Code: "23503"})

	err := service.DeleteUser(ctx, 7)

	require.ErrorIs(t, err, ErrHasLoanHistory)
	store.AssertExpectations(t)
}

func TestUserService_SetStatus_Block(t *testing.T) {
	store := &MockUserStore{}
	service := newTestUserService(store, &MockHasher{})
	ctx := context.Background()

	store.On("GetUser", ctx, int32(7)).Return(testStudentUser(), nil)
	store.On("SetUserStatus", ctx, int32(7), models.UserStatusBlocked).Return(nil)

	err := service.SetStatus(ctx, 7, models.UserStatusBlocked)

	require.NoError(t, err)
	store.AssertExpectations(t)
}

func TestUserService_SetStatus_InvalidValue(t *testing.T) {
	store := &MockUserStore{}
	service := newTestUserService(store, &MockHasher{})

	err := service.SetStatus(context.Background(), 7, models.UserStatus("Suspended"))

	require.Error(t, err)
	store.AssertNotCalled(t, "SetUserStatus", mock.Anything, mock.Anything, mock.Anything)
}

func TestUserService_GetUser_NotFound(t *testing.T) {
	store := &MockUserStore{}
	service := newTestUserService(store, &MockHasher{})
	ctx := context.Background()

	store.On("GetUser", ctx, int32(99)).Return(nil, pgx.ErrNoRows)

	_, err := service.GetUser(ctx, 99)

	require.ErrorIs(t, err, ErrNotFound)
	store.AssertExpectations(t)
}
