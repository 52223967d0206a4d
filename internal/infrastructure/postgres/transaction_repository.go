package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/lotledger/internal/domain"
	"github.com/jhoicas/lotledger/internal/domain/entity"
	"github.com/jhoicas/lotledger/internal/domain/repository"
)

var _ repository.TransactionRepository = (*TransactionRepo)(nil)

// TransactionRepo cabeceras de transacción sobre PostgreSQL.
type TransactionRepo struct {
	q Querier
}

// NewTransactionRepository construye el adaptador. Pasar pool o tx (Querier).
func NewTransactionRepository(q Querier) *TransactionRepo {
	return &TransactionRepo{q: q}
}

const transactionColumns = `id, draft_id, causing_kind, causing_id, notes, evidence_ref, posting_status, committed_at, committed_by, posted_at`

// Create inserta la cabecera. El índice único sobre draft_id hace que una segunda
// confirmación del mismo borrador espere a la primera y termine en domain.ErrDuplicate.
func (r *TransactionRepo) Create(ctx context.Context, tx *entity.Transaction) error {
	query := `
		INSERT INTO inventory_transactions (` + transactionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := r.q.Exec(ctx, query, tx.ID, tx.DraftID, string(tx.CausingKind), tx.CausingID, tx.Notes,
		tx.EvidenceRef, string(tx.PostingStatus), tx.CommittedAt, tx.CommittedBy, tx.PostedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert transaction: %w", domain.ErrDuplicate)
		}
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// GetByID nil, nil si no existe.
func (r *TransactionRepo) GetByID(ctx context.Context, id string) (*entity.Transaction, error) {
	return r.get(ctx, `SELECT `+transactionColumns+` FROM inventory_transactions WHERE id = $1`, id)
}

// GetByDraftID nil, nil si no existe.
func (r *TransactionRepo) GetByDraftID(ctx context.Context, draftID string) (*entity.Transaction, error) {
	return r.get(ctx, `SELECT `+transactionColumns+` FROM inventory_transactions WHERE draft_id = $1`, draftID)
}

// MarkPosted pasa la transacción a POSTED si estaba pendiente.
func (r *TransactionRepo) MarkPosted(ctx context.Context, id string, at time.Time) error {
	query := `
		UPDATE inventory_transactions SET posting_status = $2, posted_at = $3
		WHERE id = $1 AND posting_status <> $2`
	if _, err := r.q.Exec(ctx, query, id, string(entity.PostingPosted), at); err != nil {
		return fmt.Errorf("mark posted: %w", err)
	}
	return nil
}

func (r *TransactionRepo) get(ctx context.Context, query string, arg string) (*entity.Transaction, error) {
	var t entity.Transaction
	var kind, status string
	err := r.q.QueryRow(ctx, query, arg).Scan(&t.ID, &t.DraftID, &kind, &t.CausingID, &t.Notes,
		&t.EvidenceRef, &status, &t.CommittedAt, &t.CommittedBy, &t.PostedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get transaction: %w", err)
	}
	t.CausingKind = entity.CausingKind(kind)
	t.PostingStatus = entity.PostingStatus(status)
	return &t, nil
}
