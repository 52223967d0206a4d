package inventory

import (
	"context"

	"github.com/jhoicas/lotledger/internal/domain/entity"
	"github.com/jhoicas/lotledger/internal/domain/repository"
)

// TxRepos repositorios atados a una misma transacción de BD.
type TxRepos struct {
	Lots         repository.LotRepository
	Movements    repository.MovementRepository
	Transactions repository.TransactionRepository
	Outbox       repository.OutboxRepository
}

// TxRunner ejecuta una función dentro de una transacción de BD, pasando repositorios atados a esa tx.
// Si fn devuelve error se hace rollback y nada de lo escrito queda visible.
type TxRunner interface {
	Run(ctx context.Context, fn func(repos TxRepos) error) error
}

// DraftStore almacén de borradores, separado del libro. Get devuelve
// *domain.NotFoundError si el borrador no existe o expiró. Save exige que la
// versión guardada coincida con draft.Version (si no, domain.ErrConflict) y la incrementa.
type DraftStore interface {
	Create(ctx context.Context, draft *entity.Draft) error
	Get(ctx context.Context, id string) (*entity.Draft, error)
	Save(ctx context.Context, draft *entity.Draft) error
}

// OrderSource resuelve órdenes de compra y de producción.
// Devuelve *domain.NotFoundError si la orden no existe.
type OrderSource interface {
	FindOrder(ctx context.Context, kind entity.CausingKind, id string) (*entity.SourceOrder, error)
}

// EvidenceVerifier comprueba que la referencia de evidencia (foto de remisión, acta) existe.
type EvidenceVerifier interface {
	Verify(ctx context.Context, reference string) error
}
