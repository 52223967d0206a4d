package http

import (
	"time"

	"github.com/jhoicas/lotledger/internal/application/dto"
	appinv "github.com/jhoicas/lotledger/internal/application/inventory"
	"github.com/jhoicas/lotledger/internal/domain"
	"github.com/jhoicas/lotledger/internal/domain/entity"
	"github.com/jhoicas/lotledger/internal/domain/inventory"
)

func toLotQuantities(in []inventory.LotQuantity) []dto.LotQuantityDTO {
	out := make([]dto.LotQuantityDTO, 0, len(in))
	for _, l := range in {
		out = append(out, dto.LotQuantityDTO{LotID: l.LotID, Quantity: l.Quantity})
	}
	return out
}

func toViolations(in []domain.Violation) []domain.Violation {
	if in == nil {
		return []domain.Violation{}
	}
	return in
}

func toLotResponse(l entity.Lot) dto.LotResponse {
	return dto.LotResponse{
		LotID:             l.ID,
		ProductID:         l.ProductID,
		BatchNumber:       l.BatchNumber,
		ProductionDate:    l.ProductionDate,
		ExpirationDate:    l.ExpirationDate,
		Warehouse:         string(l.Zone),
		AvailableQuantity: l.AvailableQuantity,
	}
}

func toDraftResponse(d *entity.Draft) dto.DraftResponse {
	out := dto.DraftResponse{
		DraftID:              d.ID,
		CausingKind:          string(d.CausingKind),
		CausingID:            d.CausingID,
		Flow:                 string(d.Flow),
		Warehouse:            string(d.Zone),
		DestinationWarehouse: string(d.DestinationZone),
		State:                string(d.State),
		RequiredItems:        make([]dto.RequiredItemDTO, 0, len(d.RequiredItems)),
		Lines:                make([]dto.DraftLineResponse, 0, len(d.Lines)),
		EvidenceRef:          d.EvidenceRef,
		Notes:                d.Notes,
		TokenIssued:          d.Token != "" && d.State == entity.DraftAwaitConfirmation,
		TransactionID:        d.TransactionID,
		CreatedAt:            d.CreatedAt,
		UpdatedAt:            d.UpdatedAt,
	}
	for _, it := range d.RequiredItems {
		out.RequiredItems = append(out.RequiredItems, dto.RequiredItemDTO{
			ProductID:        it.ProductID,
			RequiredQuantity: it.RequiredQuantity,
			Reconciliation:   string(it.Reconciliation),
			Note:             it.Note,
		})
	}
	for _, l := range d.Lines {
		line := dto.DraftLineResponse{
			ProductID:        l.ProductID,
			RequiredQuantity: l.RequiredQuantity,
			Allocation:       make([]dto.DraftAllocatedLotDTO, 0, len(l.Allocation)),
			Shortfall:        l.Shortfall,
			Recommended:      l.Recommended,
		}
		for _, a := range l.Allocation {
			line.Allocation = append(line.Allocation, dto.DraftAllocatedLotDTO{
				LotID:          a.LotID,
				Quantity:       a.Quantity,
				Provisional:    a.Provisional,
				BatchNumber:    a.BatchNumber,
				ProductionDate: a.ProductionDate,
				ExpirationDate: a.ExpirationDate,
			})
		}
		out.Lines = append(out.Lines, line)
	}
	return out
}

func toTransactionResponse(t *entity.Transaction) dto.TransactionResponse {
	out := dto.TransactionResponse{
		ID:            t.ID,
		DraftID:       t.DraftID,
		CausingKind:   string(t.CausingKind),
		CausingID:     t.CausingID,
		Notes:         t.Notes,
		EvidenceRef:   t.EvidenceRef,
		PostingStatus: string(t.PostingStatus),
		CommittedAt:   t.CommittedAt,
		CommittedBy:   t.CommittedBy,
		PostedAt:      t.PostedAt,
		Movements:     make([]dto.MovementResponse, 0, len(t.Movements)),
	}
	for _, m := range t.Movements {
		out.Movements = append(out.Movements, dto.MovementResponse{
			ID:        m.ID,
			ProductID: m.ProductID,
			LotID:     m.LotID,
			Warehouse: string(m.Zone),
			Kind:      string(m.Kind),
			Quantity:  m.Quantity,
			CreatedAt: m.CreatedAt,
			CreatedBy: m.CreatedBy,
		})
	}
	return out
}

func toReconcileResponse(r *appinv.ReconcileReport) dto.ReconcileResponse {
	out := dto.ReconcileResponse{
		Consistent: len(r.Mismatches) == 0,
		Movements:  r.Movements,
		Balances:   r.Balances,
		Mismatches: make([]dto.BalanceMismatchDTO, 0, len(r.Mismatches)),
		CheckedAt:  r.CheckedAt,
	}
	for _, m := range r.Mismatches {
		out.Mismatches = append(out.Mismatches, dto.BalanceMismatchDTO{
			LotID:        m.LotID,
			Warehouse:    string(m.Zone),
			Ledger:       m.Ledger,
			Materialized: m.Materialized,
		})
	}
	return out
}

// parseDate fecha YYYY-MM-DD en UTC; vacía devuelve nil. El formato ya lo
// garantiza la validación del cuerpo.
func parseDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil
	}
	return &t
}

func toLineInputs(in []dto.DraftLineDTO) []appinv.LineInput {
	out := make([]appinv.LineInput, 0, len(in))
	for _, l := range in {
		line := appinv.LineInput{
			ProductID:        l.ProductID,
			RequiredQuantity: l.RequiredQuantity,
			Allocation:       make([]appinv.AllocationInput, 0, len(l.Allocation)),
		}
		for _, a := range l.Allocation {
			line.Allocation = append(line.Allocation, appinv.AllocationInput{
				LotID:          a.LotID,
				BatchNumber:    a.BatchNumber,
				ProductionDate: parseDate(a.ProductionDate),
				ExpirationDate: parseDate(a.ExpirationDate),
				Quantity:       a.Quantity,
			})
		}
		out = append(out, line)
	}
	return out
}
