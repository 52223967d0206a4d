package inventory

import (
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/lotledger/internal/domain/entity"
)

// ErrNegativeBalance un saldo quedó negativo al reproducir el libro.
var ErrNegativeBalance = errors.New("saldo negativo en el libro")

// Ledger acumulador de saldos por (lote, zona) a partir de movimientos.
type Ledger struct {
	balances map[entity.BalanceKey]decimal.Decimal
}

// NewLedger libro vacío.
func NewLedger() *Ledger {
	return &Ledger{balances: make(map[entity.BalanceKey]decimal.Decimal)}
}

// Apply suma el movimiento a su saldo. Devuelve ErrNegativeBalance si el saldo
// resultante es negativo; el movimiento queda aplicado igualmente.
func (l *Ledger) Apply(m entity.Movement) error {
	key := entity.BalanceKey{LotID: m.LotID, Zone: m.Zone}
	next := l.balances[key].Add(m.Quantity)
	l.balances[key] = next
	if next.IsNegative() {
		return fmt.Errorf("%w: lote %s zona %s queda en %s tras movimiento %s",
			ErrNegativeBalance, m.LotID, m.Zone, next.String(), m.ID)
	}
	return nil
}

// Balance saldo actual de (lote, zona).
func (l *Ledger) Balance(lotID string, zone entity.WarehouseZone) decimal.Decimal {
	return l.balances[entity.BalanceKey{LotID: lotID, Zone: zone}]
}

// LotBalance saldo del lote sumando todas las zonas.
func (l *Ledger) LotBalance(lotID string) decimal.Decimal {
	sum := decimal.Zero
	for k, v := range l.balances {
		if k.LotID == lotID {
			sum = sum.Add(v)
		}
	}
	return sum
}

// Balances copia de los saldos.
func (l *Ledger) Balances() map[entity.BalanceKey]decimal.Decimal {
	out := make(map[entity.BalanceKey]decimal.Decimal, len(l.balances))
	for k, v := range l.balances {
		out[k] = v
	}
	return out
}

// Replay reproduce los movimientos en orden y devuelve los saldos resultantes.
// Falla con ErrNegativeBalance en el primer saldo negativo.
func Replay(movements []entity.Movement) (map[entity.BalanceKey]decimal.Decimal, error) {
	l := NewLedger()
	for _, m := range movements {
		if err := l.Apply(m); err != nil {
			return nil, err
		}
	}
	return l.Balances(), nil
}

// BalanceOf saldo de un lote en todas sus zonas según los movimientos.
func BalanceOf(movements []entity.Movement, lotID string) decimal.Decimal {
	sum := decimal.Zero
	for _, m := range movements {
		if m.LotID == lotID {
			sum = sum.Add(m.Quantity)
		}
	}
	return sum
}

// BalanceMismatch diferencia entre el saldo del libro y el saldo materializado.
type BalanceMismatch struct {
	LotID        string
	Zone         entity.WarehouseZone
	Ledger       decimal.Decimal
	Materialized decimal.Decimal
}

// CompareBalances lista las diferencias entre saldos reproducidos y materializados.
// Un saldo ausente se toma como cero. El resultado sale ordenado por lote y zona.
func CompareBalances(replayed, materialized map[entity.BalanceKey]decimal.Decimal) []BalanceMismatch {
	keys := make(map[entity.BalanceKey]struct{}, len(replayed)+len(materialized))
	for k := range replayed {
		keys[k] = struct{}{}
	}
	for k := range materialized {
		keys[k] = struct{}{}
	}
	var out []BalanceMismatch
	for k := range keys {
		a, b := replayed[k], materialized[k]
		if !a.Equal(b) {
			out = append(out, BalanceMismatch{LotID: k.LotID, Zone: k.Zone, Ledger: a, Materialized: b})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].LotID != out[j].LotID {
			return out[i].LotID < out[j].LotID
		}
		return out[i].Zone < out[j].Zone
	})
	return out
}
