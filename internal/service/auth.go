package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"authdemo/internal/crypto"
	"authdemo/internal/models"
	"authdemo/internal/repository"
	"authdemo/internal/session"
	"authdemo/internal/validate"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ( // Define custom errors
	ErrUserAlreadyExists = errors.New("user already exists")
	// ErrInvalidCredentials covers every failed sign-in: unknown account,
	// wrong password, unverified email and soft-deleted accounts are
	// indistinguishable on purpose.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidInput       = errors.New("invalid input")
)

type AuthService interface {
	// Authorize verifies the credentials and, on success, prepares a fresh
	// claim set for the matched user. Every failure yields
	// ErrInvalidCredentials.
	Authorize(ctx context.Context, account, password string) (*models.Claims, error)

	// Refresh runs the claims refresh decision for an already issued token.
	// It returns the claims to use and whether they were re-fetched from the
	// user store. When the lookup fails the prior claims are kept unchanged.
	Refresh(ctx context.Context, claims *models.Claims, force bool) (*models.Claims, bool)

	// PrepareClaims builds a claim set from a user record. A start of 0
	// stamps the claims with the current time, otherwise start is taken
	// as-is. The stamp gets recorded in the freshness map.
	PrepareClaims(user *models.User, start int64) *models.Claims

	// SignOut drops the freshness entry of the user, notifying other
	// sessions of the same user on their next refresh decision.
	SignOut(uid int64)

	// Register validates the input and stores a new, unverified user.
	Register(ctx context.Context, input RegisterInput) (*models.User, error)

	// IssueToken signs the claims and returns the token with its expiry.
	IssueToken(claims *models.Claims) (string, time.Time, error)

	// ParseToken verifies a signed token and returns its claims.
	ParseToken(tokenString string) (*models.Claims, error)
}

type RegisterInput struct {
	Account    string
	Password   string
	Email      string
	Firstname  string
	Middlename string
	Lastname   string
	Nickname   string
}

type authService struct {
	repo   repository.UserRepository
	fresh  *session.Freshness
	logger *zap.Logger
	secret []byte
	maxAge time.Duration
}

func NewAuthService(repo repository.UserRepository, fresh *session.Freshness, secret string, maxAge time.Duration, logger *zap.Logger) AuthService {
	return &authService{
		repo:   repo,
		fresh:  fresh,
		logger: logger,
		secret: []byte(secret),
		maxAge: maxAge,
	}
}

func (s *authService) Authorize(ctx context.Context, account, password string) (*models.Claims, error) {
	// The pre-lookup time is the claims stamp, so a concurrent record change
	// during the lookup marks this token stale right away.
	start := time.Now().UnixMilli()

	user, err := s.repo.FindUser(ctx, account)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	if !user.IsUsable(time.Now()) {
		s.logger.Debug("Rejected unusable account", zap.Int64("uid", user.ID))
		return nil, ErrInvalidCredentials
	}
	if !crypto.VerifyPassword(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	s.logger.Info("SIGNIN", zap.Int64("uid", user.ID), zap.String("account", user.Account))
	return s.PrepareClaims(user, start), nil
}

func (s *authService) PrepareClaims(user *models.User, start int64) *models.Claims {
	if start == 0 {
		start = time.Now().UnixMilli()
	}
	claims := &models.Claims{
		UID:        user.ID,
		Name:       user.Account,
		Firstname:  user.Firstname,
		Middlename: deref(user.Middlename),
		Lastname:   user.Lastname,
		Nickname:   deref(user.Nickname),
		Role:       user.Role.OrDefault(),
		Lang:       deref(user.Lang),
		LM:         start,
	}
	s.fresh.Set(user.ID, start)
	return claims
}

func (s *authService) Refresh(ctx context.Context, claims *models.Claims, force bool) (*models.Claims, bool) {
	if claims == nil || claims.UID == 0 {
		return claims, false
	}

	lm := s.fresh.Get(claims.UID) // 0 when logged out from another session
	if !force && lm != 0 && claims.LM >= lm {
		return claims, false
	}

	user, err := s.repo.FindByID(ctx, claims.UID)
	if err != nil {
		// Degrade gracefully: keep the prior claims instead of invalidating
		// the session over a store hiccup.
		return claims, false
	}
	start := lm
	if force {
		start = 0
	}
	return s.PrepareClaims(user, start), true
}

func (s *authService) SignOut(uid int64) {
	s.fresh.Delete(uid)
	s.logger.Info("SIGNOUT", zap.Int64("uid", uid))
}

func (s *authService) Register(ctx context.Context, input RegisterInput) (*models.User, error) {
	account := validate.Normalize(input.Account)
	if len(account) < validate.MinAccountLen || len(account) >= validate.MaxNameLen ||
		account != validate.ToLowerAscii(account) || !validate.IsPrintable(account, false) {
		return nil, fmt.Errorf("%w: account", ErrInvalidInput)
	}
	email := validate.Normalize(input.Email)
	if len(email) > validate.MaxEmailLen || !validate.CheckEmail(email) {
		return nil, fmt.Errorf("%w: email", ErrInvalidInput)
	}
	if len(input.Password) < validate.MinPasswordLen || len(input.Password) > validate.MaxPasswordLen {
		return nil, fmt.Errorf("%w: password", ErrInvalidInput)
	}
	firstname := validate.Normalize(input.Firstname)
	lastname := validate.Normalize(input.Lastname)
	if !validName(firstname) || !validName(lastname) {
		return nil, fmt.Errorf("%w: name", ErrInvalidInput)
	}

	// Pre-check instead of decoding driver specific unique-violation errors.
	// The race with a concurrent registration is caught by the DB constraint.
	if _, err := s.repo.FindUser(ctx, account); err == nil {
		return nil, ErrUserAlreadyExists
	}

	hash, err := crypto.HashPassword(input.Password)
	if err != nil {
		s.logger.Error("Failed to hash password", zap.Error(err))
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Account:       account,
		Firstname:     firstname,
		Middlename:    optional(validate.Normalize(input.Middlename)),
		Lastname:      lastname,
		Nickname:      optional(validate.Normalize(input.Nickname)),
		Role:          models.RoleUser,
		PasswordHash:  hash,
		Email:         email,
		EmailVerified: false,
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		s.logger.Error("Failed to create user", zap.Error(err))
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

func validName(s string) bool {
	return len(s) >= validate.MinLen && len(s) <= validate.MaxNameLen &&
		validate.IsPrintable(s, true)
}

func (s *authService) IssueToken(claims *models.Claims) (string, time.Time, error) {
	expirationTime := time.Now().Add(s.maxAge)
	claims.RegisteredClaims = jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(expirationTime),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ID:        uuid.NewString(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.secret)
	if err != nil {
		s.logger.Error("Failed to generate JWT token", zap.Error(err))
		return "", time.Time{}, fmt.Errorf("failed to generate token: %w", err)
	}
	return tokenString, expirationTime, nil
}

func (s *authService) ParseToken(tokenString string) (*models.Claims, error) {
	claims := &models.Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		// Ensure the token's signing method is what we expect
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, jwt.ErrTokenUnverifiable
	}
	return claims, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
