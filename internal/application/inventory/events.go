package inventory

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/lotledger/internal/domain/entity"
)

// TransactionCommittedEvent carga de transaction.committed para contabilidad.
type TransactionCommittedEvent struct {
	TransactionID string          `json:"transaction_id"`
	DraftID       string          `json:"draft_id"`
	CausingKind   string          `json:"causing_kind"`
	CausingID     string          `json:"causing_id,omitempty"`
	EvidenceRef   string          `json:"evidence_ref,omitempty"`
	CommittedBy   string          `json:"committed_by,omitempty"`
	CommittedAt   time.Time       `json:"committed_at"`
	Movements     []MovementEvent `json:"movements"`
}

// MovementEvent movimiento dentro del evento.
type MovementEvent struct {
	MovementID string          `json:"movement_id"`
	ProductID  string          `json:"product_id"`
	LotID      string          `json:"lot_id"`
	Zone       string          `json:"warehouse"`
	Kind       string          `json:"kind"`
	Quantity   decimal.Decimal `json:"quantity"`
}

// ReceiptDisputedEvent carga de receipt.disputed para compras.
type ReceiptDisputedEvent struct {
	DraftID          string          `json:"draft_id"`
	CausingID        string          `json:"causing_id"`
	ProductID        string          `json:"product_id"`
	RequiredQuantity decimal.Decimal `json:"required_quantity"`
	Note             string          `json:"note,omitempty"`
	ReportedBy       string          `json:"reported_by,omitempty"`
	ReportedAt       time.Time       `json:"reported_at"`
}

func newCommittedEvent(txn *entity.Transaction, movements []entity.Movement) TransactionCommittedEvent {
	ev := TransactionCommittedEvent{
		TransactionID: txn.ID,
		DraftID:       txn.DraftID,
		CausingKind:   string(txn.CausingKind),
		CausingID:     txn.CausingID,
		EvidenceRef:   txn.EvidenceRef,
		CommittedBy:   txn.CommittedBy,
		CommittedAt:   txn.CommittedAt,
		Movements:     make([]MovementEvent, 0, len(movements)),
	}
	for _, m := range movements {
		ev.Movements = append(ev.Movements, MovementEvent{
			MovementID: m.ID,
			ProductID:  m.ProductID,
			LotID:      m.LotID,
			Zone:       string(m.Zone),
			Kind:       string(m.Kind),
			Quantity:   m.Quantity,
		})
	}
	return ev
}
