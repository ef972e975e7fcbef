package suppliers

import (
	"context"
	"strings"
	"time"

	"github.com/odyssey-erp/erp-api/internal/shared"
)

// AuditPort records supplier changes.
type AuditPort interface {
	Write(ctx context.Context, entry shared.AuditLog)
}

type Service struct {
	repo        Repository
	audit       AuditPort
	phoneRegion string
	now         func() time.Time
}

// NewService builds the supplier service. audit may be nil.
func NewService(repo Repository, audit AuditPort, phoneRegion string) *Service {
	return &Service{repo: repo, audit: audit, phoneRegion: phoneRegion, now: time.Now}
}

func (s *Service) List(ctx context.Context, filters ListFilters) ([]Supplier, int, error) {
	filters.PageRequest = filters.PageRequest.Normalize()
	return s.repo.List(ctx, filters)
}

func (s *Service) Get(ctx context.Context, id int64) (Supplier, error) {
	if id <= 0 {
		return Supplier{}, shared.Invalid("invalid supplier ID")
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, in CreateInput, actorID int64) (Supplier, error) {
	supplier := Supplier{
		SupplierCode: in.SupplierCode,
		Name:         in.Name,
		Email:        in.Email,
		Phone:        in.Phone,
		Address:      in.Address,
		Company:      in.Company,
		TaxID:        in.TaxID,
		PaymentTerms: in.PaymentTerms,
		IsActive:     true,
	}
	if in.IsActive != nil {
		supplier.IsActive = *in.IsActive
	}
	if actorID > 0 {
		supplier.CreatedBy = &actorID
	}
	supplier, err := s.validate(supplier)
	if err != nil {
		return Supplier{}, err
	}
	created, err := s.repo.Create(ctx, supplier)
	if err != nil {
		return Supplier{}, err
	}
	s.recordAudit(ctx, actorID, "supplier.create", created.ID, map[string]any{"supplierCode": created.SupplierCode})
	return created, nil
}

func (s *Service) Update(ctx context.Context, id int64, in UpdateInput, actorID int64) (Supplier, error) {
	supplier, err := s.Get(ctx, id)
	if err != nil {
		return Supplier{}, err
	}
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(&supplier.SupplierCode, in.SupplierCode)
	set(&supplier.Name, in.Name)
	set(&supplier.Email, in.Email)
	set(&supplier.Phone, in.Phone)
	set(&supplier.Company, in.Company)
	set(&supplier.TaxID, in.TaxID)
	set(&supplier.PaymentTerms, in.PaymentTerms)
	if in.Address != nil {
		supplier.Address = *in.Address
	}
	if in.IsActive != nil {
		supplier.IsActive = *in.IsActive
	}
	supplier, err = s.validate(supplier)
	if err != nil {
		return Supplier{}, err
	}
	updated, err := s.repo.Update(ctx, id, supplier)
	if err != nil {
		return Supplier{}, err
	}
	s.recordAudit(ctx, actorID, "supplier.update", id, nil)
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, id int64, actorID int64) error {
	if id <= 0 {
		return shared.Invalid("invalid supplier ID")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, "supplier.delete", id, nil)
	return nil
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	s.audit.Write(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "supplier",
		EntityID: id,
		Meta:     meta,
		At:       s.now(),
	})
}

func trim(v string) string { return strings.TrimSpace(v) }
