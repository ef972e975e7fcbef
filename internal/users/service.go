package users

import (
	"context"
	"strings"
	"time"

	"github.com/odyssey-erp/erp-api/internal/auth"
	"github.com/odyssey-erp/erp-api/internal/shared"
)

// AuditPort records account changes.
type AuditPort interface {
	Write(ctx context.Context, entry shared.AuditLog)
}

// Service handles account administration.
type Service struct {
	repo  Repository
	audit AuditPort
}

// NewService builds Service instance.
func NewService(repo Repository, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit}
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]auth.User, int, error) {
	filter.PageRequest = filter.PageRequest.Normalize()
	if filter.Role != "" && !filter.Role.Valid() {
		return nil, 0, shared.Invalid("invalid role %q", filter.Role)
	}
	return s.repo.List(ctx, filter)
}

func (s *Service) Get(ctx context.Context, id int64) (*auth.User, error) {
	return s.repo.Get(ctx, id)
}

// Update applies the allow-listed fields. Admins cannot demote or deactivate
// their own account.
func (s *Service) Update(ctx context.Context, id int64, in UpdateInput, actor *shared.Identity) (*auth.User, error) {
	user, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	self := actor != nil && actor.UserID == user.ID
	changes := map[string]any{}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if len(name) < 2 || len(name) > 50 {
			return nil, shared.Invalid("name must be between 2 and 50 characters")
		}
		user.Name = name
		changes["name"] = name
	}
	if in.Role != nil && *in.Role != user.Role {
		if !in.Role.Valid() {
			return nil, shared.Invalid("invalid role %q", *in.Role)
		}
		if self {
			return nil, shared.Rule("You cannot change your own role")
		}
		changes["role"] = map[string]any{"from": user.Role, "to": *in.Role}
		user.Role = *in.Role
	}
	if in.IsActive != nil && *in.IsActive != user.IsActive {
		if self && !*in.IsActive {
			return nil, shared.Rule("You cannot deactivate your own account")
		}
		user.IsActive = *in.IsActive
		changes["isActive"] = user.IsActive
	}

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, err
	}
	if s.audit != nil && len(changes) > 0 {
		var actorID int64
		if actor != nil {
			actorID = actor.UserID
		}
		s.audit.Write(ctx, shared.AuditLog{
			ActorID:  actorID,
			Action:   "user.update",
			Entity:   "user",
			EntityID: user.ID,
			Meta:     changes,
			At:       time.Now(),
		})
	}
	return user, nil
}
