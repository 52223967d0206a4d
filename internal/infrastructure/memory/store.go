// Package memory implementa los puertos de persistencia en memoria. Run trabaja
// sobre una copia del estado y solo la publica si fn termina sin error.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/lotledger/internal/application/inventory"
	"github.com/jhoicas/lotledger/internal/domain/entity"
)

var _ inventory.TxRunner = (*Store)(nil)

type state struct {
	products     map[string]entity.Product
	lots         map[string]entity.Lot
	balances     map[entity.BalanceKey]decimal.Decimal
	movements    []entity.Movement
	transactions map[string]entity.Transaction
	outbox       []entity.OutboxEvent
}

func newState() *state {
	return &state{
		products:     make(map[string]entity.Product),
		lots:         make(map[string]entity.Lot),
		balances:     make(map[entity.BalanceKey]decimal.Decimal),
		transactions: make(map[string]entity.Transaction),
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.products {
		c.products[k] = v
	}
	for k, v := range s.lots {
		c.lots[k] = v
	}
	for k, v := range s.balances {
		c.balances[k] = v
	}
	for k, v := range s.transactions {
		c.transactions[k] = v
	}
	c.movements = append([]entity.Movement(nil), s.movements...)
	c.outbox = append([]entity.OutboxEvent(nil), s.outbox...)
	return c
}

// Store estado compartido por todos los repositorios en memoria.
type Store struct {
	mu sync.RWMutex
	st *state

	// Fault, si no es nil, se consulta antes de cada escritura dentro de Run con el
	// nombre de la operación; un error aborta la transacción.
	Fault func(op string) error
}

// NewStore almacén vacío.
func NewStore() *Store {
	return &Store{st: newState()}
}

// Run ejecuta fn sobre una copia del estado y la publica solo si fn no falla.
// Las transacciones se serializan.
func (s *Store) Run(ctx context.Context, fn func(repos inventory.TxRepos) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := s.st.clone()
	h := &handle{store: s, tx: tx}
	repos := inventory.TxRepos{
		Lots:         &LotRepo{h: h},
		Movements:    &MovementRepo{h: h},
		Transactions: &TransactionRepo{h: h},
		Outbox:       &OutboxRepo{h: h},
	}
	if err := fn(repos); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.st = tx
	return nil
}

// Products repositorio de productos fuera de transacción.
func (s *Store) Products() *ProductRepo { return &ProductRepo{h: &handle{store: s}} }

// Lots repositorio de lotes fuera de transacción.
func (s *Store) Lots() *LotRepo { return &LotRepo{h: &handle{store: s}} }

// Movements repositorio del libro fuera de transacción.
func (s *Store) Movements() *MovementRepo { return &MovementRepo{h: &handle{store: s}} }

// Transactions repositorio de transacciones fuera de transacción.
func (s *Store) Transactions() *TransactionRepo { return &TransactionRepo{h: &handle{store: s}} }

// Outbox repositorio de eventos fuera de transacción.
func (s *Store) Outbox() *OutboxRepo { return &OutboxRepo{h: &handle{store: s}} }

// AddProduct registra un producto.
func (s *Store) AddProduct(p entity.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.products[p.ID] = p
}

// Receive siembra un lote con una recepción: crea el lote si no existe, agrega un
// movimiento PURCHASE_RECEIPT y actualiza el saldo, de modo que el libro y los
// saldos queden coherentes.
func (s *Store) Receive(lot entity.Lot, zone entity.WarehouseZone, qty decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.st.lots[lot.ID]; !ok {
		if lot.CreatedAt.IsZero() {
			lot.CreatedAt = time.Now()
		}
		lot.Zone = ""
		lot.AvailableQuantity = decimal.Zero
		s.st.lots[lot.ID] = lot
	}
	txID := fmt.Sprintf("seed-%d", len(s.st.movements)+1)
	s.st.transactions[txID] = entity.Transaction{
		ID: txID, DraftID: txID, CausingKind: entity.CausingPurchaseOrder,
		PostingStatus: entity.PostingPosted, CommittedAt: lot.CreatedAt,
	}
	s.st.movements = append(s.st.movements, entity.Movement{
		ID: txID, TransactionID: txID, ProductID: lot.ProductID, LotID: lot.ID,
		Zone: zone, Kind: entity.MovementPurchaseReceipt, Quantity: qty, CreatedAt: lot.CreatedAt,
	})
	key := entity.BalanceKey{LotID: lot.ID, Zone: zone}
	s.st.balances[key] = s.st.balances[key].Add(qty)
}

// handle da acceso al estado: el de la transacción si existe, si no el compartido con bloqueo.
type handle struct {
	store *Store
	tx    *state
}

func (h *handle) read(fn func(st *state)) {
	if h.tx != nil {
		fn(h.tx)
		return
	}
	h.store.mu.RLock()
	defer h.store.mu.RUnlock()
	fn(h.store.st)
}

func (h *handle) write(op string, fn func(st *state) error) error {
	if h.tx != nil {
		if h.store.Fault != nil {
			if err := h.store.Fault(op); err != nil {
				return err
			}
		}
		return fn(h.tx)
	}
	h.store.mu.Lock()
	defer h.store.mu.Unlock()
	return fn(h.store.st)
}
