package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jhoicas/lotledger/internal/domain/entity"
	"github.com/jhoicas/lotledger/internal/domain/repository"
)

var _ repository.OutboxRepository = (*OutboxRepo)(nil)

// OutboxRepo eventos pendientes sobre PostgreSQL.
type OutboxRepo struct {
	q Querier
}

// NewOutboxRepository construye el adaptador. Pasar pool o tx (Querier).
func NewOutboxRepository(q Querier) *OutboxRepo {
	return &OutboxRepo{q: q}
}

// Create inserta el evento (normalmente dentro de la tx que lo origina).
func (r *OutboxRepo) Create(ctx context.Context, e *entity.OutboxEvent) error {
	query := `
		INSERT INTO outbox_events (id, event_type, aggregate_id, payload, status, attempts, created_at)
		VALUES ($1, $2, $3, $4, $5, 0, $6)`
	if _, err := r.q.Exec(ctx, query, e.ID, e.EventType, e.AggregateID, e.Payload, string(e.Status), e.CreatedAt); err != nil {
		return fmt.Errorf("insert outbox event: %w", err)
	}
	return nil
}

// ListPending eventos por publicar, más antiguos primero.
func (r *OutboxRepo) ListPending(ctx context.Context, limit, maxAttempts int) ([]*entity.OutboxEvent, error) {
	query := `
		SELECT id, event_type, aggregate_id, payload, status, attempts, last_error, created_at, published_at
		FROM outbox_events
		WHERE status IN ('PENDING', 'FAILED') AND attempts < $2
		ORDER BY created_at ASC
		LIMIT $1`
	rows, err := r.q.Query(ctx, query, limit, maxAttempts)
	if err != nil {
		return nil, fmt.Errorf("list pending events: %w", err)
	}
	defer rows.Close()

	var out []*entity.OutboxEvent
	for rows.Next() {
		var e entity.OutboxEvent
		var status string
		if err := rows.Scan(&e.ID, &e.EventType, &e.AggregateID, &e.Payload, &status,
			&e.Attempts, &e.LastError, &e.CreatedAt, &e.PublishedAt); err != nil {
			return nil, fmt.Errorf("scan outbox event: %w", err)
		}
		e.Status = entity.OutboxStatus(status)
		out = append(out, &e)
	}
	return out, rows.Err()
}

// MarkPublished marca el evento como entregado.
func (r *OutboxRepo) MarkPublished(ctx context.Context, id string, at time.Time) error {
	query := `UPDATE outbox_events SET status = 'PUBLISHED', published_at = $2, attempts = attempts + 1 WHERE id = $1`
	if _, err := r.q.Exec(ctx, query, id, at); err != nil {
		return fmt.Errorf("mark published: %w", err)
	}
	return nil
}

// MarkFailed registra un intento fallido.
func (r *OutboxRepo) MarkFailed(ctx context.Context, id string, reason string) error {
	query := `UPDATE outbox_events SET status = 'FAILED', last_error = $2, attempts = attempts + 1 WHERE id = $1`
	if _, err := r.q.Exec(ctx, query, id, reason); err != nil {
		return fmt.Errorf("mark failed: %w", err)
	}
	return nil
}
