package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/lotledger/internal/domain"
	"github.com/jhoicas/lotledger/internal/domain/entity"
	"github.com/jhoicas/lotledger/internal/domain/repository"
)

var (
	_ repository.ProductRepository     = (*ProductRepo)(nil)
	_ repository.LotRepository         = (*LotRepo)(nil)
	_ repository.MovementRepository    = (*MovementRepo)(nil)
	_ repository.TransactionRepository = (*TransactionRepo)(nil)
	_ repository.OutboxRepository      = (*OutboxRepo)(nil)
)

// ProductRepo productos en memoria.
type ProductRepo struct{ h *handle }

func (r *ProductRepo) Create(_ context.Context, p *entity.Product) error {
	return r.h.write("product.create", func(st *state) error {
		if _, ok := st.products[p.ID]; ok {
			return fmt.Errorf("create product: %w", domain.ErrDuplicate)
		}
		st.products[p.ID] = *p
		return nil
	})
}

func (r *ProductRepo) GetByID(_ context.Context, id string) (*entity.Product, error) {
	var out *entity.Product
	r.h.read(func(st *state) {
		if p, ok := st.products[id]; ok {
			out = &p
		}
	})
	return out, nil
}

// LotRepo lotes y saldos en memoria.
type LotRepo struct{ h *handle }

func (r *LotRepo) Create(_ context.Context, lot *entity.Lot) error {
	return r.h.write("lot.create", func(st *state) error {
		if _, ok := st.lots[lot.ID]; ok {
			return fmt.Errorf("create lot: %w", domain.ErrDuplicate)
		}
		for _, l := range st.lots {
			if l.ProductID == lot.ProductID && l.BatchKey == lot.BatchKey {
				return fmt.Errorf("create lot: %w", domain.ErrDuplicate)
			}
		}
		st.lots[lot.ID] = *lot
		return nil
	})
}

func (r *LotRepo) GetByID(_ context.Context, id string) (*entity.Lot, error) {
	var out *entity.Lot
	r.h.read(func(st *state) {
		if l, ok := st.lots[id]; ok {
			out = &l
		}
	})
	return out, nil
}

func (r *LotRepo) FindByBatch(_ context.Context, productID, batchKey string) (*entity.Lot, error) {
	var out *entity.Lot
	r.h.read(func(st *state) {
		for _, l := range st.lots {
			if l.ProductID == productID && l.BatchKey == batchKey {
				l := l
				out = &l
				return
			}
		}
	})
	return out, nil
}

func (r *LotRepo) ListAvailable(_ context.Context, productID string, zone entity.WarehouseZone) ([]entity.Lot, error) {
	var out []entity.Lot
	r.h.read(func(st *state) {
		for k, qty := range st.balances {
			if k.Zone != zone || !qty.IsPositive() {
				continue
			}
			l, ok := st.lots[k.LotID]
			if !ok || l.ProductID != productID {
				continue
			}
			l.Zone = zone
			l.AvailableQuantity = qty
			out = append(out, l)
		}
	})
	// orden determinista; el orden FEFO lo aplica el dominio
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *LotRepo) Balances(_ context.Context, productID string, zone entity.WarehouseZone, lotIDs []string) (map[string]decimal.Decimal, error) {
	out := make(map[string]decimal.Decimal, len(lotIDs))
	r.h.read(func(st *state) {
		for _, id := range lotIDs {
			l, ok := st.lots[id]
			if !ok || l.ProductID != productID {
				continue
			}
			if qty, ok := st.balances[entity.BalanceKey{LotID: id, Zone: zone}]; ok {
				out[id] = qty
			}
		}
	})
	return out, nil
}

func (r *LotRepo) GetBalanceForUpdate(_ context.Context, lotID string, zone entity.WarehouseZone) (decimal.Decimal, error) {
	var out decimal.Decimal
	r.h.read(func(st *state) { out = st.balances[entity.BalanceKey{LotID: lotID, Zone: zone}] })
	return out, nil
}

func (r *LotRepo) UpsertBalance(_ context.Context, lotID string, zone entity.WarehouseZone, quantity decimal.Decimal) error {
	return r.h.write("balance.upsert", func(st *state) error {
		if quantity.IsNegative() {
			return fmt.Errorf("upsert balance: %w", domain.ErrInsufficientStock)
		}
		if _, ok := st.lots[lotID]; !ok {
			return fmt.Errorf("upsert balance: %w", domain.NewNotFound("lote", lotID))
		}
		st.balances[entity.BalanceKey{LotID: lotID, Zone: zone}] = quantity
		return nil
	})
}

func (r *LotRepo) AllBalances(_ context.Context) (map[entity.BalanceKey]decimal.Decimal, error) {
	out := make(map[entity.BalanceKey]decimal.Decimal)
	r.h.read(func(st *state) {
		for k, v := range st.balances {
			if !v.IsZero() {
				out[k] = v
			}
		}
	})
	return out, nil
}

// MovementRepo libro en memoria (orden de inserción).
type MovementRepo struct{ h *handle }

func (r *MovementRepo) Create(_ context.Context, m *entity.Movement) error {
	return r.h.write("movement.create", func(st *state) error {
		if _, ok := st.lots[m.LotID]; !ok {
			return fmt.Errorf("insert movement: %w", domain.NewNotFound("lote", m.LotID))
		}
		if _, ok := st.transactions[m.TransactionID]; !ok {
			return fmt.Errorf("insert movement: %w", domain.NewNotFound("transacción", m.TransactionID))
		}
		st.movements = append(st.movements, *m)
		return nil
	})
}

func (r *MovementRepo) ListByLot(_ context.Context, lotID string) ([]entity.Movement, error) {
	return r.filter(func(m entity.Movement) bool { return m.LotID == lotID }), nil
}

func (r *MovementRepo) ListByTransaction(_ context.Context, transactionID string) ([]entity.Movement, error) {
	return r.filter(func(m entity.Movement) bool { return m.TransactionID == transactionID }), nil
}

func (r *MovementRepo) ForEach(_ context.Context, fn func(entity.Movement) error) error {
	all := r.filter(func(entity.Movement) bool { return true })
	for _, m := range all {
		if err := fn(m); err != nil {
			return err
		}
	}
	return nil
}

func (r *MovementRepo) filter(keep func(entity.Movement) bool) []entity.Movement {
	var out []entity.Movement
	r.h.read(func(st *state) {
		for _, m := range st.movements {
			if keep(m) {
				out = append(out, m)
			}
		}
	})
	return out
}

// TransactionRepo cabeceras en memoria.
type TransactionRepo struct{ h *handle }

func (r *TransactionRepo) Create(_ context.Context, tx *entity.Transaction) error {
	return r.h.write("transaction.create", func(st *state) error {
		for _, t := range st.transactions {
			if t.DraftID == tx.DraftID {
				return fmt.Errorf("insert transaction: %w", domain.ErrDuplicate)
			}
		}
		st.transactions[tx.ID] = *tx
		return nil
	})
}

func (r *TransactionRepo) GetByID(_ context.Context, id string) (*entity.Transaction, error) {
	var out *entity.Transaction
	r.h.read(func(st *state) {
		if t, ok := st.transactions[id]; ok {
			t.Movements = nil
			out = &t
		}
	})
	return out, nil
}

func (r *TransactionRepo) GetByDraftID(_ context.Context, draftID string) (*entity.Transaction, error) {
	var out *entity.Transaction
	r.h.read(func(st *state) {
		for _, t := range st.transactions {
			if t.DraftID == draftID {
				t.Movements = nil
				out = &t
				return
			}
		}
	})
	return out, nil
}

func (r *TransactionRepo) MarkPosted(_ context.Context, id string, at time.Time) error {
	return r.h.write("transaction.posted", func(st *state) error {
		t, ok := st.transactions[id]
		if !ok || t.PostingStatus == entity.PostingPosted {
			return nil
		}
		t.PostingStatus = entity.PostingPosted
		t.PostedAt = &at
		st.transactions[id] = t
		return nil
	})
}

// OutboxRepo eventos en memoria.
type OutboxRepo struct{ h *handle }

func (r *OutboxRepo) Create(_ context.Context, e *entity.OutboxEvent) error {
	return r.h.write("outbox.create", func(st *state) error {
		ev := *e
		ev.Payload = append([]byte(nil), e.Payload...)
		st.outbox = append(st.outbox, ev)
		return nil
	})
}

func (r *OutboxRepo) ListPending(_ context.Context, limit, maxAttempts int) ([]*entity.OutboxEvent, error) {
	var out []*entity.OutboxEvent
	r.h.read(func(st *state) {
		for _, e := range st.outbox {
			if len(out) == limit {
				return
			}
			if (e.Status == entity.OutboxPending || e.Status == entity.OutboxFailed) && e.Attempts < maxAttempts {
				e := e
				out = append(out, &e)
			}
		}
	})
	return out, nil
}

func (r *OutboxRepo) MarkPublished(_ context.Context, id string, at time.Time) error {
	return r.update(id, func(e *entity.OutboxEvent) {
		e.Status = entity.OutboxPublished
		e.PublishedAt = &at
		e.Attempts++
	})
}

func (r *OutboxRepo) MarkFailed(_ context.Context, id string, reason string) error {
	return r.update(id, func(e *entity.OutboxEvent) {
		e.Status = entity.OutboxFailed
		e.LastError = reason
		e.Attempts++
	})
}

// Events copia de todos los eventos (para inspección en tests).
func (r *OutboxRepo) Events() []entity.OutboxEvent {
	var out []entity.OutboxEvent
	r.h.read(func(st *state) { out = append(out, st.outbox...) })
	return out
}

func (r *OutboxRepo) update(id string, fn func(e *entity.OutboxEvent)) error {
	return r.h.write("outbox.update", func(st *state) error {
		for i := range st.outbox {
			if st.outbox[i].ID == id {
				fn(&st.outbox[i])
				return nil
			}
		}
		return domain.NewNotFound("evento", id)
	})
}
