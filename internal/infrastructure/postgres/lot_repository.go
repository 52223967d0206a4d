package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/lotledger/internal/domain"
	"github.com/jhoicas/lotledger/internal/domain/entity"
	"github.com/jhoicas/lotledger/internal/domain/repository"
)

var _ repository.LotRepository = (*LotRepo)(nil)

// LotRepo lotes y saldos por zona (tabla lot_balances) sobre PostgreSQL.
type LotRepo struct {
	q Querier
}

// NewLotRepository construye el adaptador. Pasar pool o tx (Querier).
func NewLotRepository(q Querier) *LotRepo {
	return &LotRepo{q: q}
}

const lotColumns = `l.id, l.product_id, l.batch_number, l.batch_key, l.production_date, l.expiration_date, l.created_at`

func scanLot(row pgx.Row, extra ...any) (*entity.Lot, error) {
	var l entity.Lot
	dest := append([]any{&l.ID, &l.ProductID, &l.BatchNumber, &l.BatchKey, &l.ProductionDate, &l.ExpirationDate, &l.CreatedAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	return &l, nil
}

// Create inserta el lote. Un número de lote repetido para el producto devuelve domain.ErrDuplicate.
func (r *LotRepo) Create(ctx context.Context, lot *entity.Lot) error {
	query := `
		INSERT INTO lots (id, product_id, batch_number, batch_key, production_date, expiration_date, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.q.Exec(ctx, query, lot.ID, lot.ProductID, lot.BatchNumber, lot.BatchKey,
		lot.ProductionDate, lot.ExpirationDate, lot.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("create lot: %w", domain.ErrDuplicate)
		}
		return fmt.Errorf("create lot: %w", err)
	}
	return nil
}

// GetByID obtiene un lote; nil, nil si no existe.
func (r *LotRepo) GetByID(ctx context.Context, id string) (*entity.Lot, error) {
	query := `SELECT ` + lotColumns + ` FROM lots l WHERE l.id = $1`
	lot, err := scanLot(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get lot: %w", err)
	}
	return lot, nil
}

// FindByBatch busca por producto y clave normalizada; nil, nil si no existe.
func (r *LotRepo) FindByBatch(ctx context.Context, productID, batchKey string) (*entity.Lot, error) {
	query := `SELECT ` + lotColumns + ` FROM lots l WHERE l.product_id = $1 AND l.batch_key = $2`
	lot, err := scanLot(r.q.QueryRow(ctx, query, productID, batchKey))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find lot by batch: %w", err)
	}
	return lot, nil
}

// ListAvailable lotes del producto con saldo positivo en la zona, ya en orden FEFO.
func (r *LotRepo) ListAvailable(ctx context.Context, productID string, zone entity.WarehouseZone) ([]entity.Lot, error) {
	query := `
		SELECT ` + lotColumns + `, b.zone, b.quantity
		FROM lots l
		JOIN lot_balances b ON b.lot_id = l.id
		WHERE l.product_id = $1 AND b.zone = $2 AND b.quantity > 0
		ORDER BY l.expiration_date ASC NULLS LAST, l.production_date ASC NULLS LAST, l.created_at ASC`
	rows, err := r.q.Query(ctx, query, productID, string(zone))
	if err != nil {
		return nil, fmt.Errorf("list available lots: %w", err)
	}
	defer rows.Close()

	var out []entity.Lot
	for rows.Next() {
		var z string
		var qty decimal.Decimal
		lot, err := scanLot(rows, &z, &qty)
		if err != nil {
			return nil, fmt.Errorf("scan lot: %w", err)
		}
		lot.Zone = entity.WarehouseZone(z)
		lot.AvailableQuantity = qty
		out = append(out, *lot)
	}
	return out, rows.Err()
}

// Balances saldo en la zona de los lotes indicados que pertenecen al producto.
func (r *LotRepo) Balances(ctx context.Context, productID string, zone entity.WarehouseZone, lotIDs []string) (map[string]decimal.Decimal, error) {
	query := `
		SELECT b.lot_id, b.quantity
		FROM lot_balances b
		JOIN lots l ON l.id = b.lot_id
		WHERE l.product_id = $1 AND b.zone = $2 AND b.lot_id = ANY($3)`
	rows, err := r.q.Query(ctx, query, productID, string(zone), lotIDs)
	if err != nil {
		return nil, fmt.Errorf("lot balances: %w", err)
	}
	defer rows.Close()

	out := make(map[string]decimal.Decimal, len(lotIDs))
	for rows.Next() {
		var id string
		var qty decimal.Decimal
		if err := rows.Scan(&id, &qty); err != nil {
			return nil, fmt.Errorf("scan balance: %w", err)
		}
		out[id] = qty
	}
	return out, rows.Err()
}

// GetBalanceForUpdate asegura la fila del saldo y la bloquea (SELECT FOR UPDATE).
// La fila se crea en cero si no existía, para que dos entradas concurrentes a una
// zona nueva también queden serializadas.
func (r *LotRepo) GetBalanceForUpdate(ctx context.Context, lotID string, zone entity.WarehouseZone) (decimal.Decimal, error) {
	ensure := `
		INSERT INTO lot_balances (lot_id, zone, quantity, updated_at)
		VALUES ($1, $2, 0, now())
		ON CONFLICT (lot_id, zone) DO NOTHING`
	if _, err := r.q.Exec(ctx, ensure, lotID, string(zone)); err != nil {
		return decimal.Zero, fmt.Errorf("ensure balance row: %w", err)
	}
	query := `SELECT quantity FROM lot_balances WHERE lot_id = $1 AND zone = $2 FOR UPDATE`
	var qty decimal.Decimal
	if err := r.q.QueryRow(ctx, query, lotID, string(zone)).Scan(&qty); err != nil {
		return decimal.Zero, fmt.Errorf("get balance for update: %w", err)
	}
	return qty, nil
}

// UpsertBalance fija el saldo de (lote, zona).
func (r *LotRepo) UpsertBalance(ctx context.Context, lotID string, zone entity.WarehouseZone, quantity decimal.Decimal) error {
	query := `
		INSERT INTO lot_balances (lot_id, zone, quantity, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (lot_id, zone)
		DO UPDATE SET quantity = EXCLUDED.quantity, updated_at = now()`
	if _, err := r.q.Exec(ctx, query, lotID, string(zone), quantity); err != nil {
		if isCheckViolation(err) {
			return fmt.Errorf("upsert balance: %w", domain.ErrInsufficientStock)
		}
		return fmt.Errorf("upsert balance: %w", err)
	}
	return nil
}

// AllBalances todos los saldos materializados distintos de cero.
func (r *LotRepo) AllBalances(ctx context.Context) (map[entity.BalanceKey]decimal.Decimal, error) {
	rows, err := r.q.Query(ctx, `SELECT lot_id, zone, quantity FROM lot_balances WHERE quantity <> 0`)
	if err != nil {
		return nil, fmt.Errorf("all balances: %w", err)
	}
	defer rows.Close()

	out := make(map[entity.BalanceKey]decimal.Decimal)
	for rows.Next() {
		var lotID, zone string
		var qty decimal.Decimal
		if err := rows.Scan(&lotID, &zone, &qty); err != nil {
			return nil, fmt.Errorf("scan balance: %w", err)
		}
		out[entity.BalanceKey{LotID: lotID, Zone: entity.WarehouseZone(zone)}] = qty
	}
	return out, rows.Err()
}
