package repository

import (
	"context"
	"time"

	"github.com/jhoicas/lotledger/internal/domain/entity"
)

// OutboxRepository eventos pendientes de publicar.
type OutboxRepository interface {
	Create(ctx context.Context, event *entity.OutboxEvent) error
	// ListPending eventos PENDING o FAILED con menos de maxAttempts intentos, más antiguos primero.
	ListPending(ctx context.Context, limit, maxAttempts int) ([]*entity.OutboxEvent, error)
	MarkPublished(ctx context.Context, id string, at time.Time) error
	MarkFailed(ctx context.Context, id string, reason string) error
}
