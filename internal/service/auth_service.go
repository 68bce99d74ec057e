package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"poultrymarket/internal/config"
	"poultrymarket/internal/model"
	"poultrymarket/internal/payment"
	"poultrymarket/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 8

// authService implements AuthService.
type authService struct {
	users  repository.UserRepository
	cfg    config.AuthConfig
	now    func() time.Time
	logger zerolog.Logger
}

// NewAuthService creates a new auth service.
func NewAuthService(users repository.UserRepository, cfg config.AuthConfig, logger zerolog.Logger) AuthService {
	return &authService{
		users:  users,
		cfg:    cfg,
		now:    time.Now,
		logger: logger.With().Str("service", "auth").Logger(),
	}
}

// HashToken returns the stored form of a bearer token.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func (s *authService) Register(ctx context.Context, req *model.RegisterRequest) (*model.AuthResponse, error) {
	email, err := normaliseEmail(req.Email)
	if err != nil {
		return nil, err
	}
	if len(req.Password) < minPasswordLength {
		return nil, model.Validationf("password must be at least %d characters", minPasswordLength)
	}
	fullName := strings.TrimSpace(req.FullName)
	if fullName == "" {
		return nil, model.Validationf("fullName is required")
	}

	role := req.Role
	if role == "" {
		role = model.RoleCustomer
	}
	if !role.Valid() || role == model.RoleAdmin {
		return nil, model.Validationf("role must be one of CUSTOMER, SELLER, COMPANY, DELIVERY_AGENT")
	}

	phone := ""
	if strings.TrimSpace(req.Phone) != "" {
		if phone, err = payment.NormalisePhone(req.Phone); err != nil {
			return nil, err
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := s.now()
	user := &model.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: string(hash),
		FullName:     fullName,
		Phone:        phone,
		Role:         role,
		Status:       model.UserActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info().Str("user_id", user.ID.String()).Str("role", string(role)).Msg("user registered")

	return s.issueToken(ctx, user)
}

func (s *authService) Login(ctx context.Context, req *model.LoginRequest) (*model.AuthResponse, error) {
	user, err := s.users.GetByEmail(ctx, strings.TrimSpace(req.Email))
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, model.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		s.logger.Debug().Str("user_id", user.ID.String()).Msg("password mismatch")
		return nil, model.ErrInvalidCredentials
	}
	if user.Status == model.UserSuspended {
		return nil, model.ErrAccountSuspended
	}

	return s.issueToken(ctx, user)
}

func (s *authService) Authenticate(ctx context.Context, token string) (*model.User, error) {
	if token == "" {
		return nil, model.ErrUnauthorised
	}

	stored, err := s.users.GetToken(ctx, HashToken(token))
	if err != nil {
		return nil, err
	}
	if stored == nil || stored.RevokedAt != nil {
		return nil, model.ErrUnauthorised
	}
	if !s.now().Before(stored.ExpiresAt) {
		return nil, model.ErrTokenExpired
	}

	user, err := s.users.GetByID(ctx, stored.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, model.ErrUnauthorised
	}
	if user.Status == model.UserSuspended {
		return nil, model.ErrAccountSuspended
	}

	return user, nil
}

func (s *authService) Logout(ctx context.Context, token string) error {
	return s.users.RevokeToken(ctx, HashToken(token))
}

func (s *authService) UpdateProfile(ctx context.Context, user *model.User, req *model.UpdateProfileRequest) (*model.User, error) {
	updated := *user

	if req.FullName != nil {
		name := strings.TrimSpace(*req.FullName)
		if name == "" {
			return nil, model.Validationf("fullName cannot be empty")
		}
		updated.FullName = name
	}
	if req.Phone != nil {
		updated.Phone = ""
		if strings.TrimSpace(*req.Phone) != "" {
			phone, err := payment.NormalisePhone(*req.Phone)
			if err != nil {
				return nil, err
			}
			updated.Phone = phone
		}
	}
	if req.Password != nil {
		if len(*req.Password) < minPasswordLength {
			return nil, model.Validationf("password must be at least %d characters", minPasswordLength)
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(*req.Password), s.cfg.BcryptCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		updated.PasswordHash = string(hash)
	}

	if err := s.users.Update(ctx, &updated); err != nil {
		return nil, err
	}

	return &updated, nil
}

func (s *authService) issueToken(ctx context.Context, user *model.User) (*model.AuthResponse, error) {
	raw := uuid.NewString()
	now := s.now()
	token := &model.AuthToken{
		ID:        uuid.New(),
		UserID:    user.ID,
		TokenHash: HashToken(raw),
		ExpiresAt: now.Add(s.cfg.TokenTTL),
		CreatedAt: now,
	}
	if err := s.users.CreateToken(ctx, token); err != nil {
		return nil, err
	}

	return &model.AuthResponse{Token: raw, ExpiresAt: token.ExpiresAt, User: user}, nil
}

func normaliseEmail(raw string) (string, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(raw))
	if err != nil || addr.Address != strings.TrimSpace(raw) {
		return "", model.Validationf("email is not valid")
	}
	return strings.ToLower(addr.Address), nil
}
