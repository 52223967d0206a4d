package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/lotledger/internal/domain"
	"github.com/jhoicas/lotledger/internal/domain/entity"
	"github.com/jhoicas/lotledger/internal/domain/inventory"
)

// OpeningLot saldo inicial de un lote al migrar desde otro sistema.
type OpeningLot struct {
	ProductID      string
	BatchNumber    string
	ProductionDate *time.Time
	ExpirationDate *time.Time
	Quantity       decimal.Decimal
}

// LoadOpeningStock registra saldos iniciales como una recepción confirmada en la
// zona, sin pasar por el flujo de borrador. reference identifica la carga: repetirla
// devuelve la transacción ya registrada.
func (c *Coordinator) LoadOpeningStock(ctx context.Context, reference string, zone entity.WarehouseZone, lots []OpeningLot) (*entity.Transaction, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, fieldError("la carga inicial requiere una referencia")
	}
	zone = entity.ZoneOrDefault(zone)
	if !zone.IsValid() {
		return nil, fieldError("zona desconocida: " + string(zone))
	}
	if len(lots) == 0 {
		return nil, fieldError("la carga inicial no tiene lotes")
	}

	now := c.now()
	d := &entity.Draft{
		ID:          "opening-" + reference + "-" + strings.ToLower(string(zone)),
		CausingKind: entity.CausingPurchaseOrder,
		CausingID:   "OPENING-" + reference,
		Flow:        entity.MovementPurchaseReceipt,
		Zone:        zone,
		State:       entity.DraftAwaitConfirmation,
		Notes:       "saldo inicial",
		CreatedBy:   OperatorFrom(ctx),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	var violations []domain.Violation
	for i, l := range lots {
		switch {
		case l.ProductID == "":
			violations = append(violations, domain.Violation{Line: i, Rule: domain.RuleInvalidField, Message: "producto requerido"})
			continue
		case strings.TrimSpace(l.BatchNumber) == "":
			violations = append(violations, domain.Violation{ProductID: l.ProductID, Line: i, Rule: domain.RuleLotRequired, Message: "número de lote requerido"})
			continue
		case !l.Quantity.IsPositive():
			violations = append(violations, domain.Violation{ProductID: l.ProductID, Line: i, Rule: domain.RuleQuantityNegative, Message: "la cantidad debe ser positiva"})
			continue
		case !inventory.WithinScale(l.Quantity):
			violations = append(violations, domain.Violation{ProductID: l.ProductID, Line: i, Rule: domain.RuleQuantityScale,
				Message: fmt.Sprintf("la cantidad %s tiene más de %d decimales", l.Quantity.String(), inventory.QuantityScale)})
			continue
		}
		if err := c.lotStore.requireProduct(ctx, l.ProductID); err != nil {
			return nil, err
		}
		alloc := entity.AllocatedLot{
			LotID:          c.newID(),
			Quantity:       l.Quantity,
			Provisional:    true,
			BatchNumber:    strings.TrimSpace(l.BatchNumber),
			ProductionDate: l.ProductionDate,
			ExpirationDate: l.ExpirationDate,
		}
		idx := d.LineIndex(l.ProductID)
		if idx < 0 {
			d.Lines = append(d.Lines, entity.DraftLine{ProductID: l.ProductID})
			idx = len(d.Lines) - 1
		}
		d.Lines[idx].Allocation = append(d.Lines[idx].Allocation, alloc)
		d.Lines[idx].RequiredQuantity = d.Lines[idx].Total()
	}
	if len(violations) > 0 {
		return nil, &domain.ValidationError{Violations: violations}
	}

	txn := &entity.Transaction{
		ID:            c.newID(),
		DraftID:       d.ID,
		CausingKind:   d.CausingKind,
		CausingID:     d.CausingID,
		Notes:         d.Notes,
		PostingStatus: entity.PostingPending,
		CommittedAt:   now,
		CommittedBy:   d.CreatedBy,
	}
	err := c.txRunner.Run(ctx, func(r TxRepos) error { return c.apply(ctx, r, d, txn) })
	if errors.Is(err, domain.ErrDuplicate) {
		existing, gerr := c.transactions.GetByDraftID(ctx, d.ID)
		if gerr == nil && existing != nil {
			return c.withMovements(ctx, existing)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("load opening stock: %w", err)
	}
	c.log.Info().Str("transaction_id", txn.ID).Str("zone", string(zone)).
		Int("movements", len(txn.Movements)).Msg("saldo inicial cargado")
	return txn, nil
}
