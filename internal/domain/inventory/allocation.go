package inventory

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/lotledger/internal/domain"
	"github.com/jhoicas/lotledger/internal/domain/entity"
)

// DefaultMaxLots máximo de lotes por línea cuando no se configura otro.
const DefaultMaxLots = 3

// SumTolerance diferencia aceptada entre la suma asignada y la cantidad requerida.
var SumTolerance = decimal.New(1, -2)

// LotQuantity cantidad tomada de un lote.
type LotQuantity struct {
	LotID    string
	Quantity decimal.Decimal
}

// Recommendation resultado de la recomendación FEFO para un producto.
type Recommendation struct {
	ProductID    string
	Zone         entity.WarehouseZone
	Required     decimal.Decimal
	Lines        []LotQuantity
	Covered      decimal.Decimal
	FullyCovered bool
}

// Shortfall cantidad no cubierta.
func (r Recommendation) Shortfall() decimal.Decimal {
	if r.Covered.GreaterThanOrEqual(r.Required) {
		return decimal.Zero
	}
	return r.Required.Sub(r.Covered)
}

// SortFEFO ordena lotes por vencimiento ascendente (sin vencimiento al final), luego
// por fecha de producción y luego por fecha de creación. El orden es estable.
func SortFEFO(lots []entity.Lot) {
	sort.SliceStable(lots, func(i, j int) bool {
		a, b := lots[i], lots[j]
		if c := compareDates(a.ExpirationDate, b.ExpirationDate); c != 0 {
			return c < 0
		}
		if c := compareDates(a.ProductionDate, b.ProductionDate); c != 0 {
			return c < 0
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
}

// compareDates nil se considera posterior a cualquier fecha.
func compareDates(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	case a.Before(*b):
		return -1
	case b.Before(*a):
		return 1
	}
	return 0
}

// Recommend recorre los lotes en orden FEFO tomando de cada uno min(saldo, restante)
// hasta cubrir required o usar maxLots lotes. Si no se cubre, devuelve la
// recomendación parcial junto con un *domain.InsufficientStockError.
func Recommend(productID string, lots []entity.Lot, required decimal.Decimal, maxLots int) (Recommendation, error) {
	rec := Recommendation{ProductID: productID, Required: required, Covered: decimal.Zero}
	if !required.IsPositive() {
		return rec, &domain.ValidationError{Violations: []domain.Violation{{
			ProductID: productID, Line: -1, Rule: domain.RuleRequiredQuantity,
			Message: "la cantidad requerida debe ser mayor que cero",
		}}}
	}
	if !WithinScale(required) {
		return rec, &domain.ValidationError{Violations: []domain.Violation{{
			ProductID: productID, Line: -1, Rule: domain.RuleQuantityScale,
			Message: fmt.Sprintf("la cantidad requerida %s tiene más de %d decimales", required.String(), QuantityScale),
		}}}
	}
	if maxLots <= 0 {
		maxLots = DefaultMaxLots
	}

	sorted := make([]entity.Lot, 0, len(lots))
	for _, l := range lots {
		if l.AvailableQuantity.IsPositive() {
			sorted = append(sorted, l)
		}
	}
	SortFEFO(sorted)
	if len(sorted) > 0 {
		rec.Zone = sorted[0].Zone
	}

	remaining := required
	used := 0
	for _, l := range sorted {
		if !remaining.IsPositive() || used == maxLots {
			break
		}
		take := decimal.Min(l.AvailableQuantity, remaining)
		rec.Lines = append(rec.Lines, LotQuantity{LotID: l.ID, Quantity: take})
		rec.Covered = rec.Covered.Add(take)
		remaining = remaining.Sub(take)
		used++
	}

	if !remaining.IsPositive() {
		rec.FullyCovered = true
		return rec, nil
	}
	return rec, &domain.InsufficientStockError{
		ProductID:     productID,
		Required:      required,
		Covered:       rec.Covered,
		LotCapReached: used == maxLots && used < len(sorted),
	}
}

// AllocationEntry cantidad declarada por el operador para un lote. Quantity nil
// significa que el campo quedó vacío. Provisional marca un lote de recepción que
// aún no existe: solo se valida contra lo declarado.
type AllocationEntry struct {
	LotID       string
	Quantity    *decimal.Decimal
	Provisional bool
}

// ValidationResult asignación normalizada y violaciones encontradas.
type ValidationResult struct {
	ProductID  string
	Required   decimal.Decimal
	Merged     []LotQuantity
	Total      decimal.Decimal
	Violations []domain.Violation
}

// Valid true cuando no hay violaciones.
func (r ValidationResult) Valid() bool { return len(r.Violations) == 0 }

// Err nil o *domain.ValidationError con las violaciones.
func (r ValidationResult) Err() error {
	if r.Valid() {
		return nil
	}
	return &domain.ValidationError{Violations: r.Violations}
}

// QuantityScale decimales que conserva el libro; coincide con NUMERIC(18, 4).
const QuantityScale = 4

// WithinScale true si q no tiene decimales significativos más allá de QuantityScale.
func WithinScale(q decimal.Decimal) bool {
	return q.Equal(q.Truncate(QuantityScale))
}

// Validate aplica las reglas de asignación en orden: cantidades declaradas y no
// negativas (los ceros se descartan), fusión de lotes repetidos, tope por saldo
// disponible y suma igual a la requerida dentro de SumTolerance. available da el
// saldo por lote; un lote ausente tiene saldo cero.
func Validate(productID string, entries []AllocationEntry, required decimal.Decimal, available map[string]decimal.Decimal) ValidationResult {
	res := ValidationResult{ProductID: productID, Required: required, Total: decimal.Zero}
	addViolation := func(line int, lotID string, rule domain.Rule, msg string) {
		res.Violations = append(res.Violations, domain.Violation{
			ProductID: productID, Line: line, LotID: lotID, Rule: rule, Message: msg,
		})
	}

	type merged struct {
		line        int
		qty         decimal.Decimal
		provisional bool
	}
	byLot := make(map[string]*merged)
	order := make([]string, 0, len(entries))
	incomplete := false

	for i, e := range entries {
		switch {
		case e.Quantity == nil:
			addViolation(i, e.LotID, domain.RuleQuantityMissing, fmt.Sprintf("línea %d: cantidad sin declarar", i))
			incomplete = true
			continue
		case e.Quantity.IsNegative():
			addViolation(i, e.LotID, domain.RuleQuantityNegative, fmt.Sprintf("línea %d: cantidad negativa", i))
			incomplete = true
			continue
		case !WithinScale(*e.Quantity):
			addViolation(i, e.LotID, domain.RuleQuantityScale,
				fmt.Sprintf("línea %d: la cantidad %s tiene más de %d decimales", i, e.Quantity.String(), QuantityScale))
			incomplete = true
			continue
		case e.Quantity.IsZero():
			continue
		case e.LotID == "":
			addViolation(i, "", domain.RuleLotRequired, fmt.Sprintf("línea %d: lote sin indicar", i))
			incomplete = true
			continue
		}
		if m, ok := byLot[e.LotID]; ok {
			m.qty = m.qty.Add(*e.Quantity)
			m.provisional = m.provisional && e.Provisional
			continue
		}
		byLot[e.LotID] = &merged{line: i, qty: *e.Quantity, provisional: e.Provisional}
		order = append(order, e.LotID)
	}

	for _, lotID := range order {
		m := byLot[lotID]
		if !m.provisional {
			avail := available[lotID]
			if m.qty.GreaterThan(avail) {
				addViolation(m.line, lotID, domain.RuleExceedsAvailable,
					fmt.Sprintf("lote %s: asignado %s supera disponible %s", lotID, m.qty.String(), avail.String()))
			}
		}
		res.Merged = append(res.Merged, LotQuantity{LotID: lotID, Quantity: m.qty})
		res.Total = res.Total.Add(m.qty)
	}

	if !incomplete && res.Total.Sub(required).Abs().GreaterThan(SumTolerance) {
		addViolation(-1, "", domain.RuleSumMismatch,
			fmt.Sprintf("la suma asignada %s no coincide con la requerida %s", res.Total.String(), required.String()))
	}
	return res
}
