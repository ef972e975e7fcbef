package procurement

import (
	"context"
	"strings"

	"github.com/odyssey-erp/erp-api/internal/inventory"
	"github.com/odyssey-erp/erp-api/internal/shared"
)

// ListGRNs returns a page of goods received notes.
func (s *Service) ListGRNs(ctx context.Context, filters ListFilters) ([]GRN, int, error) {
	filters.PageRequest = filters.PageRequest.Normalize()
	if filters.Status != "" && !GRNStatus(filters.Status).Valid() {
		return nil, 0, shared.Invalid("invalid status %q", filters.Status)
	}
	return s.repo.ListGRNs(ctx, filters)
}

// GetGRN returns one goods received note.
func (s *Service) GetGRN(ctx context.Context, id int64) (GRN, error) {
	return s.repo.GetGRN(ctx, id)
}

// CreateGRN records goods received against a purchase order. Accepted
// quantities are added to the order lines' received quantities and the order
// status is re-derived. Stock does not move until approval.
func (s *Service) CreateGRN(ctx context.Context, input CreateGRNInput, actorID int64) (GRN, error) {
	if len(input.Items) == 0 {
		return GRN{}, shared.Invalid("at least one item is required")
	}
	now := s.now()
	grn := GRN{
		GRNNumber:       shared.NormalizeCode(input.GRNNumber),
		PurchaseOrderID: input.PurchaseOrderID,
		ReceiptDate:     now,
		Status:          GRNStatusPending,
		Notes:           strings.TrimSpace(input.Notes),
	}
	if grn.GRNNumber == "" {
		grn.GRNNumber = shared.GenerateNumber("GRN", now)
	}
	if input.ReceiptDate != nil {
		grn.ReceiptDate = *input.ReceiptDate
	}
	if actorID > 0 {
		grn.ReceivedBy = &actorID
	}

	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		po, err := tx.GetPOForUpdate(ctx, input.PurchaseOrderID)
		if err != nil {
			return err
		}
		switch po.Status {
		case POStatusCancelled:
			return shared.Rule("Cannot receive goods against a cancelled purchase order")
		case POStatusReceived:
			return shared.Rule("Purchase order is already fully received")
		}
		grn.PONumber = po.PONumber
		grn.SupplierID = po.SupplierID
		grn.SupplierName = po.SupplierName

		grn.Items = make([]GRNLine, 0, len(input.Items))
		for i, in := range input.Items {
			idx := po.lineFor(in.ProductID)
			if idx < 0 {
				p, err := tx.Product(ctx, in.ProductID)
				if err != nil {
					return err
				}
				return shared.Rule("Product %s is not on purchase order %s", p.Name, po.PONumber)
			}
			line, err := buildGRNLine(i+1, in, po.Items[idx])
			if err != nil {
				return err
			}
			po.Items[idx].ReceivedQuantity += line.AcceptedQuantity
			grn.Items = append(grn.Items, line)
		}
		grn.TotalAmount = GRNTotal(grn.Items)

		po.Status = DeriveReceiptStatus(po.Items, po.Status)
		if err := tx.UpdatePOReceipts(ctx, &po); err != nil {
			return err
		}
		return tx.InsertGRN(ctx, &grn)
	})
	if err != nil {
		return GRN{}, err
	}
	s.recordAudit(ctx, actorID, "grn.create", "grn", grn.ID, map[string]any{"grnNumber": grn.GRNNumber, "purchaseOrder": grn.PurchaseOrderID})
	return grn, nil
}

func buildGRNLine(n int, in GRNLineInput, poLine POLine) (GRNLine, error) {
	line := GRNLine{
		ProductID:        in.ProductID,
		ProductSKU:       poLine.ProductSKU,
		ProductName:      poLine.ProductName,
		OrderedQuantity:  poLine.Quantity,
		ReceivedQuantity: in.ReceivedQuantity,
		AcceptedQuantity: in.AcceptedQuantity,
		UnitPrice:        poLine.UnitPrice,
		Remarks:          strings.TrimSpace(in.Remarks),
	}
	if in.OrderedQuantity != nil {
		line.OrderedQuantity = *in.OrderedQuantity
	}
	if in.UnitPrice != nil {
		line.UnitPrice = in.UnitPrice.Round(2)
	}
	if line.ReceivedQuantity < 0 || line.AcceptedQuantity < 0 || line.UnitPrice.IsNegative() {
		return GRNLine{}, shared.Invalid("item %d: quantities and unit price must not be negative", n)
	}
	if line.AcceptedQuantity > line.ReceivedQuantity {
		return GRNLine{}, shared.Invalid("item %d: accepted quantity cannot exceed received quantity", n)
	}
	line.RejectedQuantity = line.ReceivedQuantity - line.AcceptedQuantity
	if in.RejectedQuantity != nil {
		line.RejectedQuantity = *in.RejectedQuantity
	}
	return line, nil
}

// UpdateGRN changes the receipt date or notes of a GRN that is not approved.
func (s *Service) UpdateGRN(ctx context.Context, id int64, input UpdateGRNInput, actorID int64) (GRN, error) {
	var grn GRN
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		if grn, err = tx.GetGRNForUpdate(ctx, id); err != nil {
			return err
		}
		if grn.Status == GRNStatusApproved {
			return shared.Rule("Cannot update approved GRN")
		}
		if input.ReceiptDate != nil {
			grn.ReceiptDate = *input.ReceiptDate
		}
		if input.Notes != nil {
			grn.Notes = strings.TrimSpace(*input.Notes)
		}
		return tx.UpdateGRN(ctx, &grn)
	})
	if err != nil {
		return GRN{}, err
	}
	s.recordAudit(ctx, actorID, "grn.update", "grn", grn.ID, nil)
	return grn, nil
}

// ApproveGRN adds every accepted quantity to product stock and marks the GRN
// Approved. A GRN can be approved once.
func (s *Service) ApproveGRN(ctx context.Context, id int64, actorID int64) (GRN, error) {
	var grn GRN
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		if grn, err = tx.GetGRNForUpdate(ctx, id); err != nil {
			return err
		}
		switch grn.Status {
		case GRNStatusApproved:
			return shared.Rule("GRN already approved")
		case GRNStatusRejected:
			return shared.Rule("Cannot approve a rejected GRN")
		}
		for _, line := range grn.Items {
			if line.AcceptedQuantity == 0 {
				continue
			}
			_, err := tx.ApplyStock(ctx, inventory.Change{
				ProductID: line.ProductID,
				Op:        inventory.OpAdd,
				Quantity:  line.AcceptedQuantity,
				Reason:    inventory.ReasonGRNApproval,
				Reference: grn.GRNNumber,
				ActorID:   actorID,
			})
			if err != nil {
				return err
			}
		}
		at := s.now()
		grn.Status = GRNStatusApproved
		grn.ApprovedAt = &at
		if actorID > 0 {
			grn.ApprovedBy = &actorID
		}
		return tx.SetGRNStatus(ctx, &grn)
	})
	if err != nil {
		return GRN{}, err
	}
	s.recordAudit(ctx, actorID, "grn.approve", "grn", grn.ID, map[string]any{"grnNumber": grn.GRNNumber})
	return grn, nil
}

// RejectGRN moves a Pending GRN to Rejected and takes its accepted quantities
// back off the purchase order.
func (s *Service) RejectGRN(ctx context.Context, id int64, actorID int64) (GRN, error) {
	var grn GRN
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		if grn, err = tx.GetGRNForUpdate(ctx, id); err != nil {
			return err
		}
		if grn.Status != GRNStatusPending {
			return shared.Rule("Only pending GRNs can be rejected")
		}
		if err := reverseReceipts(ctx, tx, grn); err != nil {
			return err
		}
		grn.Status = GRNStatusRejected
		return tx.SetGRNStatus(ctx, &grn)
	})
	if err != nil {
		return GRN{}, err
	}
	s.recordAudit(ctx, actorID, "grn.reject", "grn", grn.ID, map[string]any{"grnNumber": grn.GRNNumber})
	return grn, nil
}

// DeleteGRN removes a GRN that is not approved. Pending receipts are reversed
// first; rejected ones were reversed on rejection.
func (s *Service) DeleteGRN(ctx context.Context, id int64, actorID int64) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		grn, err := tx.GetGRNForUpdate(ctx, id)
		if err != nil {
			return err
		}
		switch grn.Status {
		case GRNStatusApproved:
			return shared.Rule("Cannot delete approved GRN")
		case GRNStatusPending:
			if err := reverseReceipts(ctx, tx, grn); err != nil {
				return err
			}
		}
		return tx.DeleteGRN(ctx, id)
	})
	if err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, "grn.delete", "grn", id, nil)
	return nil
}

func reverseReceipts(ctx context.Context, tx TxRepository, grn GRN) error {
	po, err := tx.GetPOForUpdate(ctx, grn.PurchaseOrderID)
	if err != nil {
		return err
	}
	for _, line := range grn.Items {
		idx := po.lineFor(line.ProductID)
		if idx < 0 {
			continue
		}
		po.Items[idx].ReceivedQuantity = max(po.Items[idx].ReceivedQuantity-line.AcceptedQuantity, 0)
	}
	if po.Status != POStatusCancelled {
		po.Status = DeriveReceiptStatus(po.Items, po.Status)
	}
	return tx.UpdatePOReceipts(ctx, &po)
}
