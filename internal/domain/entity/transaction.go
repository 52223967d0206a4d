package entity

import "time"

// CausingKind documento que origina una transacción de inventario.
type CausingKind string

const (
	CausingPurchaseOrder       CausingKind = "PURCHASE_ORDER"
	CausingProductionOrder     CausingKind = "PRODUCTION_ORDER"
	CausingWarehouseTransfer   CausingKind = "WAREHOUSE_TRANSFER"
	CausingWarehouseAdjustment CausingKind = "WAREHOUSE_ADJUSTMENT"
)

// PostingStatus estado de contabilización de la transacción.
type PostingStatus string

const (
	PostingPending PostingStatus = "PENDING"
	PostingPosted  PostingStatus = "POSTED"
)

// Transaction agrupa los movimientos confirmados de un borrador.
type Transaction struct {
	ID            string
	DraftID       string
	CausingKind   CausingKind
	CausingID     string
	Notes         string
	EvidenceRef   string
	PostingStatus PostingStatus
	CommittedAt   time.Time
	CommittedBy   string
	PostedAt      *time.Time
	Movements     []Movement
}
