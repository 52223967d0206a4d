package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// RecommendAllocationRequest body para POST /api/recommend-allocation.
type RecommendAllocationRequest struct {
	ProductID        string           `json:"product_id" validate:"required"`
	RequiredQuantity *decimal.Decimal `json:"required_quantity" validate:"required"`
	Warehouse        string           `json:"warehouse" validate:"omitempty,oneof=GENERAL PERDIDAS QUALITY_HOLD RETURNS"`
	MaxLots          int              `json:"max_lots" validate:"min=0,max=50"`
}

// LotQuantityDTO cantidad asignada a un lote.
type LotQuantityDTO struct {
	LotID    string          `json:"lot_id"`
	Quantity decimal.Decimal `json:"quantity"`
}

// RecommendAllocationResponse propuesta FEFO.
type RecommendAllocationResponse struct {
	ProductID       string           `json:"product_id"`
	Warehouse       string           `json:"warehouse"`
	Allocation      []LotQuantityDTO `json:"allocation"`
	FullyCovered    bool             `json:"fully_covered"`
	CoveredQuantity decimal.Decimal  `json:"covered_quantity"`
	Shortfall       decimal.Decimal  `json:"shortfall"`
	LotCapReached   bool             `json:"lot_cap_reached,omitempty"`
	Error           *ErrorResponse   `json:"error,omitempty"`
}

// AllocationEntryDTO entrada de asignación enviada por el operador. Quantity
// ausente es una violación de regla, no un error de formato.
type AllocationEntryDTO struct {
	LotID    string           `json:"lot_id"`
	Quantity *decimal.Decimal `json:"quantity"`
}

// ValidateAllocationRequest body para POST /api/validate-allocation.
type ValidateAllocationRequest struct {
	ProductID        string               `json:"product_id" validate:"required"`
	RequiredQuantity *decimal.Decimal     `json:"required_quantity" validate:"required"`
	Warehouse        string               `json:"warehouse" validate:"omitempty,oneof=GENERAL PERDIDAS QUALITY_HOLD RETURNS"`
	Allocation       []AllocationEntryDTO `json:"allocation"`
}

// ValidateAllocationResponse asignación normalizada y violaciones.
type ValidateAllocationResponse struct {
	Valid      bool             `json:"valid"`
	Allocation []LotQuantityDTO `json:"allocation"`
	Total      decimal.Decimal  `json:"total"`
	Errors     interface{}      `json:"errors"`
}

// LotResponse lote con su saldo en una zona.
type LotResponse struct {
	LotID             string          `json:"lot_id"`
	ProductID         string          `json:"product_id"`
	BatchNumber       string          `json:"batch_number"`
	ProductionDate    *time.Time      `json:"production_date,omitempty"`
	ExpirationDate    *time.Time      `json:"expiration_date,omitempty"`
	Warehouse         string          `json:"warehouse"`
	AvailableQuantity decimal.Decimal `json:"available_quantity"`
}

// BalanceResponse saldo de un lote derivado del libro.
type BalanceResponse struct {
	ProductID string          `json:"product_id"`
	LotID     string          `json:"lot_id"`
	Balance   decimal.Decimal `json:"balance"`
}

// BalanceMismatchDTO diferencia entre libro y saldo materializado.
type BalanceMismatchDTO struct {
	LotID        string          `json:"lot_id"`
	Warehouse    string          `json:"warehouse"`
	Ledger       decimal.Decimal `json:"ledger"`
	Materialized decimal.Decimal `json:"materialized"`
}

// ReconcileResponse resultado de la conciliación del libro.
type ReconcileResponse struct {
	Consistent bool                 `json:"consistent"`
	Movements  int                  `json:"movements"`
	Balances   int                  `json:"balances"`
	Mismatches []BalanceMismatchDTO `json:"mismatches"`
	CheckedAt  time.Time            `json:"checked_at"`
}

// MovementResponse movimiento del libro.
type MovementResponse struct {
	ID        string          `json:"id"`
	ProductID string          `json:"product_id"`
	LotID     string          `json:"lot_id"`
	Warehouse string          `json:"warehouse"`
	Kind      string          `json:"kind"`
	Quantity  decimal.Decimal `json:"quantity"`
	CreatedAt time.Time       `json:"created_at"`
	CreatedBy string          `json:"created_by,omitempty"`
}

// TransactionResponse transacción confirmada con sus movimientos.
type TransactionResponse struct {
	ID            string             `json:"id"`
	DraftID       string             `json:"draft_id"`
	CausingKind   string             `json:"causing_entity_kind"`
	CausingID     string             `json:"causing_entity_id,omitempty"`
	Notes         string             `json:"notes,omitempty"`
	EvidenceRef   string             `json:"evidence_ref,omitempty"`
	PostingStatus string             `json:"posting_status"`
	CommittedAt   time.Time          `json:"committed_at"`
	CommittedBy   string             `json:"committed_by,omitempty"`
	PostedAt      *time.Time         `json:"posted_at,omitempty"`
	Movements     []MovementResponse `json:"movements"`
}
