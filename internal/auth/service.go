package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/odyssey-erp/erp-api/internal/shared"
)

// Service wraps authentication business rules.
type Service struct {
	repo     Repository
	tokens   *TokenManager
	hashCost int
}

// Option customises the service.
type Option func(*Service)

// WithHashCost overrides the bcrypt cost.
func WithHashCost(cost int) Option {
	return func(s *Service) { s.hashCost = cost }
}

// NewService constructs a new Service.
func NewService(repo Repository, tokens *TokenManager, opts ...Option) *Service {
	s := &Service{repo: repo, tokens: tokens, hashCost: bcrypt.DefaultCost}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates an account. New accounts get the Sales role unless an
// authenticated admin chooses another one.
func (s *Service) Register(ctx context.Context, in RegisterInput, actor *shared.Identity) (*Session, error) {
	role := shared.RoleSales
	if in.Role != "" {
		parsed, ok := shared.ParseRole(in.Role)
		if !ok {
			return nil, shared.Invalid("role must be one of [Admin Sales Purchase Inventory]")
		}
		if parsed != shared.RoleSales && (actor == nil || actor.Role != shared.RoleAdmin) {
			return nil, shared.Forbidden("Only an admin can assign the %s role", parsed)
		}
		role = parsed
	}

	email := shared.NormalizeEmail(in.Email)
	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		return nil, shared.Conflict("User already exists")
	} else if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	hash, err := s.hash(in.Password)
	if err != nil {
		return nil, err
	}
	user := &User{
		Name:         strings.TrimSpace(in.Name),
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}
	return s.session(user)
}

// Login validates email/password credentials and issues a token.
func (s *Service) Login(ctx context.Context, in LoginInput) (*Session, error) {
	user, err := s.repo.FindByEmail(ctx, shared.NormalizeEmail(in.Email))
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.Unauthorized("Invalid email or password")
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)) != nil {
		return nil, shared.Unauthorized("Invalid email or password")
	}
	if !user.IsActive {
		return nil, shared.Unauthorized("User account is inactive")
	}
	return s.session(user)
}

// Profile returns the account of userID.
func (s *Service) Profile(ctx context.Context, userID int64) (*User, error) {
	return s.repo.FindByID(ctx, userID)
}

// UpdateProfile applies the name/email/password allow-list and issues a fresh token.
func (s *Service) UpdateProfile(ctx context.Context, userID int64, in ProfileInput) (*Session, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if name := shared.TrimPtr(in.Name); name != nil {
		user.Name = *name
	}
	if in.Email != nil {
		email := shared.NormalizeEmail(*in.Email)
		if email != "" && email != user.Email {
			if _, err := s.repo.FindByEmail(ctx, email); err == nil {
				return nil, shared.Conflict("User already exists")
			} else if !errors.Is(err, shared.ErrNotFound) {
				return nil, err
			}
			user.Email = email
		}
	}
	if in.Password != nil && *in.Password != "" {
		hash, err := s.hash(*in.Password)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hash
	}
	if err := s.repo.UpdateProfile(ctx, user); err != nil {
		return nil, err
	}
	return s.session(user)
}

// HashPassword exposes the service's bcrypt settings to the seeder.
func (s *Service) HashPassword(password string) (string, error) {
	return s.hash(password)
}

func (s *Service) hash(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hashed), nil
}

func (s *Service) session(user *User) (*Session, error) {
	token, expiresAt, err := s.tokens.Issue(user.ID, user.Role)
	if err != nil {
		return nil, err
	}
	return &Session{
		ID:        user.ID,
		Name:      user.Name,
		Email:     user.Email,
		Role:      user.Role,
		IsActive:  user.IsActive,
		Token:     token,
		ExpiresAt: expiresAt,
	}, nil
}
