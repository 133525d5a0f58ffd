package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/crypto/bcrypt"

	"github.com/atelier-studio/atelier-api/config"
	"github.com/atelier-studio/atelier-api/internal/api"
	"github.com/atelier-studio/atelier-api/internal/api/audit"
	"github.com/atelier-studio/atelier-api/internal/types"
)

// bcryptCost matches the cost the rest of the fleet uses; raising it is
// a config change of this constant plus a rehash-on-login migration.
const bcryptCost = 12

var _ AuthService = (*AuthServiceImpl)(nil)

// AuthService covers registration, login and bearer-token verification.
type AuthService interface {
	Register(ctx context.Context, email, password, name string) (*types.User, string, error)
	Login(ctx context.Context, email, password string) (*types.User, string, error)
	VerifyToken(tokenString string) (uuid.UUID, error)
	GetUserByID(ctx context.Context, userID uuid.UUID) (*types.User, error)
	HashPassword(password string) (string, error)
}

// Claims is the JWT payload. Only the user id travels in the token; the
// principal is resolved against the database on every request.
type Claims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

type AuthServiceImpl struct {
	logger *slog.Logger
	repo   UserRepo
	audit  audit.Recorder
	jwtCfg config.JWTConfig
}

func NewAuthService(repo UserRepo, auditRec audit.Recorder, jwtCfg config.JWTConfig, logger *slog.Logger) *AuthServiceImpl {
	return &AuthServiceImpl{
		logger: logger,
		repo:   repo,
		audit:  auditRec,
		jwtCfg: jwtCfg,
	}
}

// Register creates a user with the USER role and returns it with a
// fresh bearer token. A taken email surfaces as ErrConflict.
func (s *AuthServiceImpl) Register(ctx context.Context, email, password, name string) (*types.User, string, error) {
	ctx, span := otel.Tracer("AuthService").Start(ctx, "Register")
	defer span.End()

	email = strings.ToLower(strings.TrimSpace(email))

	hashed, err := s.HashPassword(password)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Password hash failed")
		return nil, "", fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.repo.CreateUser(ctx, email, hashed, name, types.RoleUser)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "User insert failed")
		return nil, "", err
	}

	if err := s.audit.Record(ctx, types.AuditEntry{
		Action:  types.AuditUserRegistered,
		UserID:  user.ID,
		Details: map[string]any{"email": user.Email, "name": user.Name},
	}); err != nil {
		s.logger.WarnContext(ctx, "Failed to audit registration", slog.Any("error", err))
	}

	token, err := s.issueToken(user.ID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Token issue failed")
		return nil, "", err
	}

	s.logger.InfoContext(ctx, "New user registered", slog.String("email", user.Email))
	span.SetStatus(codes.Ok, "User registered")
	return user, token, nil
}

// Login verifies credentials and returns the user with a bearer token.
// Unknown email and wrong password are indistinguishable to the caller.
func (s *AuthServiceImpl) Login(ctx context.Context, email, password string) (*types.User, string, error) {
	ctx, span := otel.Tracer("AuthService").Start(ctx, "Login")
	defer span.End()

	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, api.ErrNotFound) {
			span.SetStatus(codes.Error, "Unknown email")
			return nil, "", fmt.Errorf("invalid credentials: %w", api.ErrUnauthenticated)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "User lookup failed")
		return nil, "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		span.SetStatus(codes.Error, "Password mismatch")
		return nil, "", fmt.Errorf("invalid credentials: %w", api.ErrUnauthenticated)
	}

	if err := s.audit.Record(ctx, types.AuditEntry{
		Action:  types.AuditUserLogin,
		UserID:  user.ID,
		Details: map[string]any{"email": user.Email},
	}); err != nil {
		s.logger.WarnContext(ctx, "Failed to audit login", slog.Any("error", err))
	}

	token, err := s.issueToken(user.ID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Token issue failed")
		return nil, "", err
	}

	s.logger.InfoContext(ctx, "User logged in", slog.String("email", user.Email))
	span.SetStatus(codes.Ok, "Login successful")
	return user, token, nil
}

// VerifyToken checks signature, structure and expiry, and returns the
// user id the token was issued for.
func (s *AuthServiceImpl) VerifyToken(tokenString string) (uuid.UUID, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.jwtCfg.Secret), nil
	})
	if err != nil || !token.Valid {
		return uuid.Nil, fmt.Errorf("invalid or expired token: %w", api.ErrUnauthenticated)
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("malformed token subject: %w", api.ErrUnauthenticated)
	}
	return userID, nil
}

func (s *AuthServiceImpl) GetUserByID(ctx context.Context, userID uuid.UUID) (*types.User, error) {
	return s.repo.GetUserByID(ctx, userID)
}

// HashPassword produces a bcrypt hash; the salt is embedded in the hash.
func (s *AuthServiceImpl) HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}

func (s *AuthServiceImpl) issueToken(userID uuid.UUID) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: userID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.jwtCfg.ExpiresIn)),
			Issuer:    s.jwtCfg.Issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.jwtCfg.Secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}
