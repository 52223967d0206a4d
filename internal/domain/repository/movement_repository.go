package repository

import (
	"context"

	"github.com/jhoicas/lotledger/internal/domain/entity"
)

// MovementRepository libro de movimientos (solo inserción).
type MovementRepository interface {
	Create(ctx context.Context, movement *entity.Movement) error
	ListByLot(ctx context.Context, lotID string) ([]entity.Movement, error)
	ListByTransaction(ctx context.Context, transactionID string) ([]entity.Movement, error)
	// ForEach recorre todo el libro en orden cronológico.
	ForEach(ctx context.Context, fn func(entity.Movement) error) error
}
