package repository

import (
	"context"
	"time"

	"github.com/jhoicas/lotledger/internal/domain/entity"
)

// TransactionRepository cabeceras de transacción. Create devuelve domain.ErrDuplicate
// si ya existe una transacción para el mismo borrador.
type TransactionRepository interface {
	Create(ctx context.Context, tx *entity.Transaction) error
	GetByID(ctx context.Context, id string) (*entity.Transaction, error)
	GetByDraftID(ctx context.Context, draftID string) (*entity.Transaction, error)
	// MarkPosted pasa a POSTED; no hace nada si ya lo estaba.
	MarkPosted(ctx context.Context, id string, at time.Time) error
}
