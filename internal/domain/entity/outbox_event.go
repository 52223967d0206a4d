package entity

import "time"

// Tipos de evento publicados desde el outbox.
const (
	EventTransactionCommitted = "transaction.committed"
	EventReceiptDisputed      = "receipt.disputed"
)

// OutboxStatus estado de entrega de un evento.
type OutboxStatus string

const (
	OutboxPending   OutboxStatus = "PENDING"
	OutboxPublished OutboxStatus = "PUBLISHED"
	OutboxFailed    OutboxStatus = "FAILED"
)

// OutboxEvent evento escrito en la misma transacción que el cambio que lo origina.
type OutboxEvent struct {
	ID          string
	EventType   string
	AggregateID string
	Payload     []byte
	Status      OutboxStatus
	Attempts    int
	LastError   string
	CreatedAt   time.Time
	PublishedAt *time.Time
}
