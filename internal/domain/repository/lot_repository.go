package repository

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/lotledger/internal/domain/entity"
)

// LotRepository lotes y sus saldos materializados por zona.
// Los métodos Get devuelven nil, nil cuando el lote no existe.
type LotRepository interface {
	Create(ctx context.Context, lot *entity.Lot) error
	GetByID(ctx context.Context, id string) (*entity.Lot, error)
	// FindByBatch busca por producto y número de lote normalizado.
	FindByBatch(ctx context.Context, productID, batchKey string) (*entity.Lot, error)
	// ListAvailable lotes del producto con saldo positivo en la zona (sin orden garantizado).
	ListAvailable(ctx context.Context, productID string, zone entity.WarehouseZone) ([]entity.Lot, error)
	// Balances saldo en la zona de los lotes indicados que pertenecen al producto.
	Balances(ctx context.Context, productID string, zone entity.WarehouseZone, lotIDs []string) (map[string]decimal.Decimal, error)
	// GetBalanceForUpdate bloquea la fila del saldo (SELECT FOR UPDATE); cero si no existe.
	GetBalanceForUpdate(ctx context.Context, lotID string, zone entity.WarehouseZone) (decimal.Decimal, error)
	UpsertBalance(ctx context.Context, lotID string, zone entity.WarehouseZone, quantity decimal.Decimal) error
	// AllBalances todos los saldos materializados, para conciliar contra el libro.
	AllBalances(ctx context.Context) (map[entity.BalanceKey]decimal.Decimal, error)
}
