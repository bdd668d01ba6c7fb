package services

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ktanui/circulate/internal/models"
)

func testRSAKeyPEM(t *testing.T) string {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return string(pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	}))
}

func newTestAuthService(t *testing.T, users *MockUserStore) *AuthService {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	service, err := NewAuthService(users, testRSAKeyPEM(t), testRSAKeyPEM(t), time.Hour, 24*time.Hour, logger, nil)
	require.NoError(t, err)
	return service
}

func TestAuthService_HashPassword(t *testing.T) {
	service := newTestAuthService(t, &MockUserStore{})

	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{name: "valid password", password: "password123", wantErr: false},
		{name: "minimum length password", password: "12345678", wantErr: false},
		{name: "too short password", password: "123", wantErr: true},
		{name: "empty password", password: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash, err := service.HashPassword(tt.password)

			if tt.wantErr {
				assert.Error(t, err)
				assert.Empty(t, hash)
			} else {
				assert.NoError(t, err)
				assert.NotEmpty(t, hash)
				assert.Contains(t, hash, "$argon2id$")
			}
		})
	}
}

func TestAuthService_VerifyPassword(t *testing.T) {
	service := newTestAuthService(t, &MockUserStore{})

	hash, err := service.HashPassword("correct-horse-battery")
	require.NoError(t, err)

	ok, err := service.VerifyPassword(hash, "correct-horse-battery")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = service.VerifyPassword(hash, "wrong-password")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = service.VerifyPassword("not-a-hash", "anything")
	assert.Error(t, err)
}

func TestAuthService_GenerateAndValidateTokens(t *testing.T) {
	service := newTestAuthService(t, &MockUserStore{})
	user := testStudentUser()

	access, refresh, err := service.GenerateTokens(user)
	require.NoError(t, err)
	require.NotEmpty(t, access)
	require.NotEmpty(t, refresh)

	claims, err := service.ValidateToken(access)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, user.Email, claims.Email)
	assert.Equal(t, models.RoleStudent, claims.Role)

	refreshClaims, err := service.ValidateRefreshToken(refresh)
	require.NoError(t, err)
	assert.Equal(t, user.ID, refreshClaims.UserID)

	// Tokens are signed by different keys; an access token must not pass
	// as a refresh token.
	_, err = service.ValidateRefreshToken(access)
	assert.Error(t, err)
}

func TestAuthService_Login_Success(t *testing.T) {
	users := &MockUserStore{}
	service := newTestAuthService(t, users)
	ctx := context.Background()

	hash, err := service.HashPassword("secret-password")
	require.NoError(t, err)

	user := testStudentUser()
	user.PasswordHash = hash
	user.EmailVerified = true
	users.On("GetUserByEmail", ctx, "jordan@example.com").Return(user, nil)

	resp, err := service.Login(ctx, "jordan@example.com", "secret-password", models.RoleStudent)

	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, "Bearer", resp.TokenType)
	assert.Equal(t, user.ID, resp.User.ID)
	users.AssertExpectations(t)
}

func TestAuthService_Login_WrongPassword(t *testing.T) {
	users := &MockUserStore{}
	service := newTestAuthService(t, users)
	ctx := context.Background()

	hash, err := service.HashPassword("secret-password")
	require.NoError(t, err)

	user := testStudentUser()
	user.PasswordHash = hash
	user.EmailVerified = true
	users.On("GetUserByEmail", ctx, "jordan@example.com").Return(user, nil)

	_, err = service.Login(ctx, "jordan@example.com", "wrong", models.RoleStudent)

	require.ErrorIs(t, err, ErrInvalidCredentials)
}

// A student account cannot enter the admin portal even with the right
// password.
func TestAuthService_Login_WrongPortal(t *testing.T) {
	users := &MockUserStore{}
	service := newTestAuthService(t, users)
	ctx := context.Background()

	hash, err := service.HashPassword("secret-password")
	require.NoError(t, err)

	user := testStudentUser()
	user.PasswordHash = hash
	user.EmailVerified = true
	users.On("GetUserByEmail", ctx, "jordan@example.com").Return(user, nil)

	_, err = service.Login(ctx, "jordan@example.com", "secret-password", models.RoleAdmin)

	require.ErrorIs(t, err, ErrWrongPortal)
}

func TestAuthService_Login_UnverifiedEmail(t *testing.T) {
	users := &MockUserStore{}
	service := newTestAuthService(t, users)
	ctx := context.Background()

	hash, err := service.HashPassword("secret-password")
	require.NoError(t, err)

	user := testStudentUser()
	user.PasswordHash = hash
	user.EmailVerified = false
	users.On("GetUserByEmail", ctx, "jordan@example.com").Return(user, nil)

	_, err = service.Login(ctx, "jordan@example.com", "secret-password", models.RoleStudent)

	require.ErrorIs(t, err, ErrEmailNotVerified)
}

func TestAuthService_Login_BlockedUser(t *testing.T) {
	users := &MockUserStore{}
	service := newTestAuthService(t, users)
	ctx := context.Background()

	hash, err := service.HashPassword("secret-password")
	require.NoError(t, err)

	user := testStudentUser()
	user.PasswordHash = hash
	user.EmailVerified = true
	user.Status = models.UserStatusBlocked
	users.On("GetUserByEmail", ctx, "jordan@example.com").Return(user, nil)

	_, err = service.Login(ctx, "jordan@example.com", "secret-password", models.RoleStudent)

	require.ErrorIs(t, err, ErrUserBlocked)
}
