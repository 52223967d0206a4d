package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// BeginDraftRequest body para POST /api/drafts.
type BeginDraftRequest struct {
	CausingKind          string `json:"causing_entity_kind" validate:"required,oneof=PURCHASE_ORDER PRODUCTION_ORDER WAREHOUSE_TRANSFER WAREHOUSE_ADJUSTMENT"`
	CausingID            string `json:"causing_entity_id"`
	Flow                 string `json:"flow" validate:"omitempty,oneof=PURCHASE_RECEIPT LOSS CONSUMPTION BACKFLUSH SALE TRANSFER_OUT"`
	Warehouse            string `json:"warehouse" validate:"omitempty,oneof=GENERAL PERDIDAS QUALITY_HOLD RETURNS"`
	DestinationWarehouse string `json:"destination_warehouse" validate:"omitempty,oneof=GENERAL PERDIDAS QUALITY_HOLD RETURNS"`
	Notes                string `json:"notes" validate:"max=2000"`
}

// IdentifySourceRequest body para POST /api/drafts/:id/source.
type IdentifySourceRequest struct {
	CausingID string `json:"causing_entity_id" validate:"required"`
}

// DraftAllocationDTO asignación de una línea. En recepciones se usa batch_number
// con sus fechas (YYYY-MM-DD) en lugar de lot_id.
type DraftAllocationDTO struct {
	LotID          string           `json:"lot_id"`
	BatchNumber    string           `json:"batch_number" validate:"max=100"`
	ProductionDate string           `json:"production_date" validate:"omitempty,datetime=2006-01-02"`
	ExpirationDate string           `json:"expiration_date" validate:"omitempty,datetime=2006-01-02"`
	Quantity       *decimal.Decimal `json:"quantity"`
}

// DraftLineDTO línea enviada al borrador.
type DraftLineDTO struct {
	ProductID        string               `json:"product_id" validate:"required"`
	RequiredQuantity *decimal.Decimal     `json:"required_quantity"`
	Allocation       []DraftAllocationDTO `json:"allocation" validate:"dive"`
}

// AddLinesRequest body para POST /api/drafts/:id/lines.
type AddLinesRequest struct {
	Lines []DraftLineDTO `json:"lines" validate:"required,min=1,dive"`
}

// AddLinesResponse resultado de conciliar las líneas.
type AddLinesResponse struct {
	Validated bool          `json:"validated"`
	Errors    interface{}   `json:"errors"`
	State     string        `json:"state"`
	Draft     DraftResponse `json:"draft"`
}

// EvidenceRequest body para POST /api/drafts/:id/evidence.
type EvidenceRequest struct {
	Reference string `json:"reference" validate:"required,max=1024"`
}

// TokenResponse token de confirmación emitido.
type TokenResponse struct {
	DraftID  string    `json:"draft_id"`
	Token    string    `json:"token"`
	IssuedAt time.Time `json:"issued_at"`
}

// CommitRequest body para POST /api/drafts/:id/commit.
type CommitRequest struct {
	Token string `json:"token" validate:"required,max=16"`
}

// CommitResponse transacción creada.
type CommitResponse struct {
	TransactionID string `json:"transaction_id"`
}

// DisputeRequest body para POST /api/drafts/:id/dispute.
type DisputeRequest struct {
	ProductID string `json:"product_id" validate:"required"`
	Note      string `json:"note" validate:"max=2000"`
}

// RequiredItemDTO cantidad exigida por la orden de origen.
type RequiredItemDTO struct {
	ProductID        string          `json:"product_id"`
	RequiredQuantity decimal.Decimal `json:"required_quantity"`
	Reconciliation   string          `json:"reconciliation"`
	Note             string          `json:"note,omitempty"`
}

// DraftAllocatedLotDTO lote asignado en una línea del borrador.
type DraftAllocatedLotDTO struct {
	LotID          string          `json:"lot_id"`
	Quantity       decimal.Decimal `json:"quantity"`
	Provisional    bool            `json:"provisional,omitempty"`
	BatchNumber    string          `json:"batch_number,omitempty"`
	ProductionDate *time.Time      `json:"production_date,omitempty"`
	ExpirationDate *time.Time      `json:"expiration_date,omitempty"`
}

// DraftLineResponse línea validada del borrador.
type DraftLineResponse struct {
	ProductID        string                 `json:"product_id"`
	RequiredQuantity decimal.Decimal        `json:"required_quantity"`
	Allocation       []DraftAllocatedLotDTO `json:"allocation"`
	Shortfall        decimal.Decimal        `json:"shortfall"`
	Recommended      bool                   `json:"recommended,omitempty"`
}

// DraftResponse estado del borrador. El token nunca se expone aquí.
type DraftResponse struct {
	DraftID              string              `json:"draft_id"`
	CausingKind          string              `json:"causing_entity_kind"`
	CausingID            string              `json:"causing_entity_id,omitempty"`
	Flow                 string              `json:"flow"`
	Warehouse            string              `json:"warehouse"`
	DestinationWarehouse string              `json:"destination_warehouse,omitempty"`
	State                string              `json:"state"`
	RequiredItems        []RequiredItemDTO   `json:"required_items"`
	Lines                []DraftLineResponse `json:"lines"`
	EvidenceRef          string              `json:"evidence_ref,omitempty"`
	Notes                string              `json:"notes,omitempty"`
	TokenIssued          bool                `json:"token_issued"`
	TransactionID        string              `json:"transaction_id,omitempty"`
	CreatedAt            time.Time           `json:"created_at"`
	UpdatedAt            time.Time           `json:"updated_at"`
}

// BeginDraftResponse borrador creado. SourceError indica que la orden de origen no
// pudo resolverse todavía; el borrador queda en IDENTIFY_SOURCE para reintentar.
type BeginDraftResponse struct {
	DraftResponse
	SourceError *ErrorResponse `json:"source_error,omitempty"`
}
