package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/lotledger/internal/domain/entity"
	"github.com/jhoicas/lotledger/internal/domain/repository"
)

var _ repository.MovementRepository = (*MovementRepo)(nil)

// MovementRepo libro de movimientos sobre PostgreSQL. seq da el orden de inserción.
type MovementRepo struct {
	q Querier
}

// NewMovementRepository construye el adaptador. Pasar pool o tx (Querier).
func NewMovementRepository(q Querier) *MovementRepo {
	return &MovementRepo{q: q}
}

const movementColumns = `id, transaction_id, product_id, lot_id, zone, kind, quantity, created_at, created_by`

// Create agrega un movimiento al libro.
func (r *MovementRepo) Create(ctx context.Context, m *entity.Movement) error {
	query := `
		INSERT INTO inventory_movements (` + movementColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.q.Exec(ctx, query, m.ID, m.TransactionID, m.ProductID, m.LotID,
		string(m.Zone), string(m.Kind), m.Quantity, m.CreatedAt, m.CreatedBy)
	if err != nil {
		return fmt.Errorf("insert movement: %w", err)
	}
	return nil
}

// ListByLot movimientos del lote en orden de inserción.
func (r *MovementRepo) ListByLot(ctx context.Context, lotID string) ([]entity.Movement, error) {
	return r.list(ctx, `SELECT `+movementColumns+` FROM inventory_movements WHERE lot_id = $1 ORDER BY seq`, lotID)
}

// ListByTransaction movimientos de una transacción.
func (r *MovementRepo) ListByTransaction(ctx context.Context, transactionID string) ([]entity.Movement, error) {
	return r.list(ctx, `SELECT `+movementColumns+` FROM inventory_movements WHERE transaction_id = $1 ORDER BY seq`, transactionID)
}

// ForEach recorre todo el libro en orden de inserción sin cargarlo completo en memoria.
func (r *MovementRepo) ForEach(ctx context.Context, fn func(entity.Movement) error) error {
	rows, err := r.q.Query(ctx, `SELECT `+movementColumns+` FROM inventory_movements ORDER BY seq`)
	if err != nil {
		return fmt.Errorf("scan ledger: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			return err
		}
		if err := fn(m); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (r *MovementRepo) list(ctx context.Context, query string, arg any) ([]entity.Movement, error) {
	rows, err := r.q.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("list movements: %w", err)
	}
	defer rows.Close()
	var out []entity.Movement
	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func scanMovement(rows pgx.Rows) (entity.Movement, error) {
	var m entity.Movement
	var zone, kind string
	if err := rows.Scan(&m.ID, &m.TransactionID, &m.ProductID, &m.LotID, &zone, &kind,
		&m.Quantity, &m.CreatedAt, &m.CreatedBy); err != nil {
		return m, fmt.Errorf("scan movement: %w", err)
	}
	m.Zone = entity.WarehouseZone(zone)
	m.Kind = entity.MovementKind(kind)
	return m, nil
}
