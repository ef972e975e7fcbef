package customers

import (
	"context"
	"strings"
	"time"

	"github.com/odyssey-erp/erp-api/internal/shared"
)

// AuditPort records customer changes.
type AuditPort interface {
	Write(ctx context.Context, entry shared.AuditLog)
}

type Service struct {
	repo        Repository
	audit       AuditPort
	phoneRegion string
	now         func() time.Time
}

// NewService builds the customer service. audit may be nil.
func NewService(repo Repository, audit AuditPort, phoneRegion string) *Service {
	return &Service{repo: repo, audit: audit, phoneRegion: phoneRegion, now: time.Now}
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]Customer, int, error) {
	filter.PageRequest = filter.PageRequest.Normalize()
	return s.repo.List(ctx, filter)
}

func (s *Service) Get(ctx context.Context, id int64) (Customer, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, in CreateInput, actorID int64) (Customer, error) {
	c := Customer{
		CustomerCode: shared.NormalizeCode(in.CustomerCode),
		Name:         strings.TrimSpace(in.Name),
		Email:        shared.NormalizeEmail(in.Email),
		Phone:        in.Phone,
		Address:      in.Address.Trimmed(),
		Company:      strings.TrimSpace(in.Company),
		TaxID:        strings.TrimSpace(in.TaxID),
		CreditLimit:  in.CreditLimit.Round(2),
		IsActive:     true,
	}
	if in.IsActive != nil {
		c.IsActive = *in.IsActive
	}
	if actorID > 0 {
		c.CreatedBy = &actorID
	}
	if err := s.validate(&c); err != nil {
		return Customer{}, err
	}
	if err := s.repo.Create(ctx, &c); err != nil {
		return Customer{}, err
	}
	s.recordAudit(ctx, actorID, "customer.create", c.ID, map[string]any{"customerCode": c.CustomerCode})
	return c, nil
}

func (s *Service) Update(ctx context.Context, id int64, in UpdateInput, actorID int64) (Customer, error) {
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		return Customer{}, err
	}
	if in.CustomerCode != nil {
		c.CustomerCode = shared.NormalizeCode(*in.CustomerCode)
	}
	if in.Name != nil {
		c.Name = strings.TrimSpace(*in.Name)
	}
	if in.Email != nil {
		c.Email = shared.NormalizeEmail(*in.Email)
	}
	if in.Phone != nil {
		c.Phone = *in.Phone
	}
	if in.Address != nil {
		c.Address = in.Address.Trimmed()
	}
	if in.Company != nil {
		c.Company = strings.TrimSpace(*in.Company)
	}
	if in.TaxID != nil {
		c.TaxID = strings.TrimSpace(*in.TaxID)
	}
	if in.CreditLimit != nil {
		c.CreditLimit = in.CreditLimit.Round(2)
	}
	if in.IsActive != nil {
		c.IsActive = *in.IsActive
	}
	if err := s.validate(&c); err != nil {
		return Customer{}, err
	}
	if err := s.repo.Update(ctx, &c); err != nil {
		return Customer{}, err
	}
	s.recordAudit(ctx, actorID, "customer.update", c.ID, nil)
	return c, nil
}

func (s *Service) Delete(ctx context.Context, id int64, actorID int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, "customer.delete", id, nil)
	return nil
}

func (s *Service) validate(c *Customer) error {
	if c.CustomerCode == "" {
		return shared.Invalid("customerCode is required")
	}
	if n := len([]rune(c.Name)); n < 2 || n > 200 {
		return shared.Invalid("name must be between 2 and 200 characters")
	}
	if c.Email == "" {
		return shared.Invalid("email is required")
	}
	phone, err := shared.ValidatePhone(c.Phone, s.phoneRegion)
	if err != nil {
		return err
	}
	c.Phone = phone
	if c.CreditLimit.IsNegative() {
		return shared.Invalid("creditLimit must be greater than or equal to 0")
	}
	return nil
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	s.audit.Write(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "customer",
		EntityID: id,
		Meta:     meta,
		At:       s.now(),
	})
}
