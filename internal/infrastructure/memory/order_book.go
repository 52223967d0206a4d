package memory

import (
	"context"
	"sync"

	"github.com/jhoicas/lotledger/internal/application/inventory"
	"github.com/jhoicas/lotledger/internal/domain"
	"github.com/jhoicas/lotledger/internal/domain/entity"
)

var _ inventory.OrderSource = (*OrderBook)(nil)

// OrderBook órdenes de compra y producción estáticas (desarrollo y tests).
type OrderBook struct {
	mu     sync.RWMutex
	orders map[string]entity.SourceOrder
}

// NewOrderBook libro de órdenes vacío.
func NewOrderBook() *OrderBook {
	return &OrderBook{orders: make(map[string]entity.SourceOrder)}
}

// Put registra o reemplaza una orden.
func (b *OrderBook) Put(o entity.SourceOrder) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.orders[string(o.Kind)+"/"+o.ID] = o
}

// FindOrder orden por tipo e ID.
func (b *OrderBook) FindOrder(_ context.Context, kind entity.CausingKind, id string) (*entity.SourceOrder, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	o, ok := b.orders[string(kind)+"/"+id]
	if !ok {
		return nil, domain.NewNotFound("orden", id)
	}
	o.Items = append([]entity.RequiredItem(nil), o.Items...)
	return &o, nil
}
