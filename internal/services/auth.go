package services

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/subtle"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/argon2"

	"github.com/ktanui/circulate/internal/database"
	"github.com/ktanui/circulate/internal/models"
)

// AuthService handles password hashing, JWT issuance and validation, and
// the Redis-backed token blacklist and reset/verification tokens.
type AuthService struct {
	users             database.UserStore
	jwtPrivateKey     *rsa.PrivateKey
	jwtPublicKey      *rsa.PublicKey
	refreshPrivateKey *rsa.PrivateKey
	refreshPublicKey  *rsa.PublicKey
	tokenExpiry       time.Duration
	refreshExpiry     time.Duration
	argon2Config      *Argon2Config
	logger            *slog.Logger
	redisClient       *redis.Client
}

type Argon2Config struct {
	Memory      uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

func NewAuthService(users database.UserStore, jwtPrivateKeyPEM, refreshPrivateKeyPEM string, tokenExpiry, refreshExpiry time.Duration, logger *slog.Logger, redisClient *redis.Client) (*AuthService, error) {
	jwtPrivateKey, err := parseRSAPrivateKey(jwtPrivateKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("failed to parse JWT private key: %w", err)
	}

	refreshPrivateKey, err := parseRSAPrivateKey(refreshPrivateKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("failed to parse refresh private key: %w", err)
	}

	return &AuthService{
		users:             users,
		jwtPrivateKey:     jwtPrivateKey,
		jwtPublicKey:      &jwtPrivateKey.PublicKey,
		refreshPrivateKey: refreshPrivateKey,
		refreshPublicKey:  &refreshPrivateKey.PublicKey,
		tokenExpiry:       tokenExpiry,
		refreshExpiry:     refreshExpiry,
		argon2Config: &Argon2Config{
			Memory:      64 * 1024,
			Iterations:  3,
			Parallelism: 2,
			SaltLength:  16,
			KeyLength:   32,
		},
		logger:      logger,
		redisClient: redisClient,
	}, nil
}

func parseRSAPrivateKey(privateKeyPEM string) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode([]byte(privateKeyPEM))
	if block == nil {
		return nil, ErrInvalidRSAKey
	}

	privateKey, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err != nil {
		// Try PKCS8 format
		parsedKey, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, err
		}
		if rsaKey, ok := parsedKey.(*rsa.PrivateKey); ok {
			return rsaKey, nil
		}
		return nil, ErrInvalidRSAKey
	}

	return privateKey, nil
}

// Login authenticates a user against one portal. Admin accounts cannot
// enter the student portal and vice versa; unverified or blocked accounts
// are turned away before a token is ever issued.
func (s *AuthService) Login(ctx context.Context, email, password string, portal models.UserRole) (*models.LoginResponse, error) {
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	ok, err := s.VerifyPassword(user.PasswordHash, password)
	if err != nil {
		return nil, fmt.Errorf("failed to verify password: %w", err)
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}

	if user.Role != portal {
		return nil, ErrWrongPortal
	}
	if !user.EmailVerified {
		return nil, ErrEmailNotVerified
	}
	if user.Status == models.UserStatusBlocked {
		return nil, ErrUserBlocked
	}

	accessToken, refreshToken, err := s.GenerateTokens(user)
	if err != nil {
		return nil, fmt.Errorf("failed to generate tokens: %w", err)
	}

	s.logger.Info("user logged in",
		slog.Int("user_id", int(user.ID)),
		slog.String("role", string(user.Role)))

	userResp := user.ToResponse()
	return &models.LoginResponse{
		User:         &userResp,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int(s.tokenExpiry.Seconds()),
	}, nil
}

func (s *AuthService) HashPassword(password string) (string, error) {
	if len(password) < 8 {
		return "", ErrInvalidPassword
	}

	salt := make([]byte, s.argon2Config.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}

	hash := argon2.IDKey(
		[]byte(password),
		salt,
		s.argon2Config.Iterations,
		s.argon2Config.Memory,
		s.argon2Config.Parallelism,
		s.argon2Config.KeyLength,
	)

	b64Salt := base64.RawStdEncoding.EncodeToString(salt)
	b64Hash := base64.RawStdEncoding.EncodeToString(hash)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		s.argon2Config.Memory,
		s.argon2Config.Iterations,
		s.argon2Config.Parallelism,
		b64Salt,
		b64Hash,
	), nil
}

func (s *AuthService) VerifyPassword(hashedPassword, password string) (bool, error) {
	parts := strings.Split(hashedPassword, "$")
	if len(parts) != 6 {
		return false, errors.New("invalid hash format")
	}

	if parts[1] != "argon2id" {
		return false, errors.New("invalid hash type")
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return false, fmt.Errorf("invalid version: %w", err)
	}
	if version != argon2.Version {
		return false, errors.New("incompatible argon2 version")
	}

	var memory, iterations uint32
	var parallelism uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &iterations, &parallelism); err != nil {
		return false, fmt.Errorf("invalid parameters: %w", err)
	}

	decodedSalt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false, fmt.Errorf("error decoding salt: %w", err)
	}

	decodedHash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false, fmt.Errorf("error decoding hash: %w", err)
	}

	computedHash := argon2.IDKey(
		[]byte(password),
		decodedSalt,
		iterations,
		memory,
		parallelism,
		uint32(len(decodedHash)),
	)

	return subtle.ConstantTimeCompare(decodedHash, computedHash) == 1, nil
}

func (s *AuthService) GenerateTokens(user *models.User) (string, string, error) {
	now := time.Now()

	accessClaims := &models.JWTClaims{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenExpiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Subject:   fmt.Sprintf("user_%d", user.ID),
		},
	}

	accessToken := jwt.NewWithClaims(jwt.SigningMethodRS256, accessClaims)
	accessTokenString, err := accessToken.SignedString(s.jwtPrivateKey)
	if err != nil {
		return "", "", err
	}

	refreshClaims := &models.RefreshTokenClaims{
		UserID: user.ID,
		Email:  user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.refreshExpiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Subject:   fmt.Sprintf("user_%d", user.ID),
		},
	}

	refreshToken := jwt.NewWithClaims(jwt.SigningMethodRS256, refreshClaims)
	refreshTokenString, err := refreshToken.SignedString(s.refreshPrivateKey)
	if err != nil {
		return "", "", err
	}

	return accessTokenString, refreshTokenString, nil
}

func (s *AuthService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtPublicKey, nil
	})
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*models.JWTClaims); ok && token.Valid {
		if s.redisClient != nil {
			ctx := context.Background()
			blacklisted, err := s.redisClient.Exists(ctx, fmt.Sprintf("blacklist:%s", tokenString)).Result()
			if err != nil {
				s.logger.Error("Failed to check token blacklist", "error", err)
				// Continue validation if Redis is down
			}
			if blacklisted > 0 {
				return nil, ErrInvalidToken
			}
		}
		return claims, nil
	}

	return nil, ErrInvalidToken
}

func (s *AuthService) ValidateRefreshToken(tokenString string) (*models.RefreshTokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.RefreshTokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.refreshPublicKey, nil
	})
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*models.RefreshTokenClaims); ok && token.Valid {
		if s.redisClient != nil {
			ctx := context.Background()
			blacklisted, err := s.redisClient.Exists(ctx, fmt.Sprintf("blacklist:refresh:%s", tokenString)).Result()
			if err != nil {
				s.logger.Error("Failed to check refresh token blacklist", "error", err)
				// Continue validation if Redis is down
			}
			if blacklisted > 0 {
				return nil, ErrInvalidToken
			}
		}
		return claims, nil
	}

	return nil, ErrInvalidToken
}

// RefreshTokens exchanges a valid refresh token for a new token pair. The
// user is re-read so a block or role change applies immediately.
func (s *AuthService) RefreshTokens(ctx context.Context, refreshTokenString string) (string, string, error) {
	claims, err := s.ValidateRefreshToken(refreshTokenString)
	if err != nil {
		return "", "", err
	}

	user, err := s.users.GetUser(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", "", ErrInvalidToken
		}
		return "", "", fmt.Errorf("failed to look up user: %w", err)
	}
	if user.Status == models.UserStatusBlocked {
		return "", "", ErrUserBlocked
	}

	return s.GenerateTokens(user)
}

// BlacklistToken adds a token to the blacklist until its natural expiry.
func (s *AuthService) BlacklistToken(tokenString string) error {
	if s.redisClient == nil {
		return errors.New("redis client not configured")
	}

	ctx := context.Background()

	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtPublicKey, nil
	})
	if err != nil {
		return err
	}

	if claims, ok := token.Claims.(*models.JWTClaims); ok {
		expiry := time.Until(claims.ExpiresAt.Time)
		if expiry <= 0 {
			// Token already expired, no need to blacklist
			return nil
		}

		if err := s.redisClient.Set(ctx, fmt.Sprintf("blacklist:%s", tokenString), "1", expiry).Err(); err != nil {
			s.logger.Error("Failed to blacklist token", "error", err)
			return err
		}

		s.logger.Info("Token blacklisted", "user_id", claims.UserID)
		return nil
	}

	return ErrInvalidToken
}

// BlacklistRefreshToken adds a refresh token to the blacklist.
func (s *AuthService) BlacklistRefreshToken(tokenString string) error {
	if s.redisClient == nil {
		return errors.New("redis client not configured")
	}

	ctx := context.Background()

	token, err := jwt.ParseWithClaims(tokenString, &models.RefreshTokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.refreshPublicKey, nil
	})
	if err != nil {
		return err
	}

	if claims, ok := token.Claims.(*models.RefreshTokenClaims); ok {
		expiry := time.Until(claims.ExpiresAt.Time)
		if expiry <= 0 {
			return nil
		}

		if err := s.redisClient.Set(ctx, fmt.Sprintf("blacklist:refresh:%s", tokenString), "1", expiry).Err(); err != nil {
			s.logger.Error("Failed to blacklist refresh token", "error", err)
			return err
		}

		s.logger.Info("Refresh token blacklisted", "user_id", claims.UserID)
		return nil
	}

	return ErrInvalidToken
}

// GeneratePasswordResetToken generates a secure password reset token
// stored in Redis with a 1 hour expiry.
func (s *AuthService) GeneratePasswordResetToken(email string) (string, error) {
	if s.redisClient == nil {
		return "", errors.New("redis client not configured")
	}

	ctx := context.Background()

	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	token := base64.URLEncoding.EncodeToString(tokenBytes)

	key := fmt.Sprintf("password_reset:%s", token)
	if err := s.redisClient.Set(ctx, key, email, time.Hour).Err(); err != nil {
		s.logger.Error("Failed to store password reset token", "error", err)
		return "", err
	}

	return token, nil
}

// ValidatePasswordResetToken returns the email a reset token was issued for.
func (s *AuthService) ValidatePasswordResetToken(token string) (string, error) {
	if s.redisClient == nil {
		return "", errors.New("redis client not configured")
	}

	ctx := context.Background()
	key := fmt.Sprintf("password_reset:%s", token)

	email, err := s.redisClient.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrInvalidResetToken
		}
		s.logger.Error("Failed to validate password reset token", "error", err)
		return "", err
	}

	return email, nil
}

// InvalidatePasswordResetToken removes a password reset token from Redis.
func (s *AuthService) InvalidatePasswordResetToken(token string) error {
	if s.redisClient == nil {
		return errors.New("redis client not configured")
	}

	ctx := context.Background()
	key := fmt.Sprintf("password_reset:%s", token)

	if err := s.redisClient.Del(ctx, key).Err(); err != nil {
		s.logger.Error("Failed to invalidate password reset token", "error", err)
		return err
	}
	return nil
}

// GenerateEmailVerificationToken creates a verification token bound to one
// user, stored in Redis for 24 hours. The link containing it would be sent
// by mail; delivery is out of scope here.
func (s *AuthService) GenerateEmailVerificationToken(userID int32) (string, error) {
	if s.redisClient == nil {
		return "", errors.New("redis client not configured")
	}

	ctx := context.Background()

	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	token := base64.URLEncoding.EncodeToString(tokenBytes)

	key := fmt.Sprintf("email_verify:%s", token)
	if err := s.redisClient.Set(ctx, key, userID, 24*time.Hour).Err(); err != nil {
		s.logger.Error("Failed to store email verification token", "error", err)
		return "", err
	}

	return token, nil
}

// VerifyEmailToken marks the token's user as verified and consumes the token.
func (s *AuthService) VerifyEmailToken(ctx context.Context, token string) error {
	if s.redisClient == nil {
		return errors.New("redis client not configured")
	}

	key := fmt.Sprintf("email_verify:%s", token)
	userID, err := s.redisClient.Get(ctx, key).Int()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrInvalidToken
		}
		s.logger.Error("Failed to validate email verification token", "error", err)
		return err
	}

	if err := s.users.SetEmailVerified(ctx, int32(userID)); err != nil {
		return fmt.Errorf("failed to mark email verified: %w", err)
	}

	if err := s.redisClient.Del(ctx, key).Err(); err != nil {
		s.logger.Error("Failed to consume email verification token", "error", err)
	}

	s.logger.Info("email verified", slog.Int("user_id", userID))
	return nil
}

// ResetPassword consumes a reset token and stores the new password hash.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	email, err := s.ValidatePasswordResetToken(token)
	if err != nil {
		return err
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrInvalidResetToken
		}
		return fmt.Errorf("failed to look up user: %w", err)
	}

	hash, err := s.HashPassword(newPassword)
	if err != nil {
		return err
	}

	if err := s.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	return s.InvalidatePasswordResetToken(token)
}
