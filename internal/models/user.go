package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type UserRole string

const (
	RoleAdmin   UserRole = "admin"
	RoleStudent UserRole = "student"
)

// IsValid checks if the role is valid
func (r UserRole) IsValid() bool {
	return r == RoleAdmin || r == RoleStudent
}

type UserStatus string

const (
	UserStatusActive  UserStatus = "Active"
	UserStatusBlocked UserStatus = "Blocked"
)

// User represents an account in the system. Role gates which portal the
// account may log in through; a Blocked student cannot create loan requests.
type User struct {
	ID            int32      `json:"id" db:"id"`
	DisplayName   string     `json:"display_name" db:"display_name"`
	Email         string     `json:"email" db:"email"`
	PasswordHash  string     `json:"-" db:"password_hash"`
	Department    string     `json:"department" db:"department"`
	Role          UserRole   `json:"role" db:"role"`
	Status        UserStatus `json:"status" db:"status"`
	EmailVerified bool       `json:"email_verified" db:"email_verified"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
}

// CreateUserRequest represents an admin registering a student account
type CreateUserRequest struct {
	DisplayName string `json:"display_name" binding:"required,min=1,max=100"`
	Email       string `json:"email" binding:"required,email"`
	Department  string `json:"department" binding:"omitempty,max=100"`
	Password    string `json:"password" binding:"required,min=8"`
}

// UpdateUserRequest edits a student's profile
type UpdateUserRequest struct {
	DisplayName *string `json:"display_name" binding:"omitempty,min=1,max=100"`
	Department  *string `json:"department" binding:"omitempty,max=100"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	User         *UserResponse `json:"user"`
	AccessToken  string        `json:"access_token"`
	RefreshToken string        `json:"refresh_token"`
	TokenType    string        `json:"token_type"`
	ExpiresIn    int           `json:"expires_in"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type ResetPasswordRequest struct {
	Token       string `json:"token" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=8"`
}

type VerifyEmailRequest struct {
	Token string `json:"token" binding:"required"`
}

// UserResponse is the wire shape of an account, password hash excluded
type UserResponse struct {
	ID            int32      `json:"id"`
	DisplayName   string     `json:"display_name"`
	Email         string     `json:"email"`
	Department    string     `json:"department"`
	Role          UserRole   `json:"role"`
	Status        UserStatus `json:"status"`
	EmailVerified bool       `json:"email_verified"`
	CreatedAt     time.Time  `json:"created_at"`
}

// ToResponse converts a User to a UserResponse
func (u *User) ToResponse() UserResponse {
	return UserResponse{
		ID:            u.ID,
		DisplayName:   u.DisplayName,
		Email:         u.Email,
		Department:    u.Department,
		Role:          u.Role,
		Status:        u.Status,
		EmailVerified: u.EmailVerified,
		CreatedAt:     u.CreatedAt,
	}
}

// UserListResponse represents a paginated list of users
type UserListResponse struct {
	Users      []UserResponse `json:"users"`
	Pagination Pagination     `json:"pagination"`
}

type JWTClaims struct {
	UserID int32    `json:"user_id"`
	Email  string   `json:"email"`
	Role   UserRole `json:"role"`
	jwt.RegisteredClaims
}

type RefreshTokenClaims struct {
	UserID int32  `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}
