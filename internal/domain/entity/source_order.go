package entity

import "github.com/shopspring/decimal"

// Reconciliation estado de conciliación de un ítem requerido.
type Reconciliation string

const (
	ReconciliationPending   Reconciliation = "PENDING"
	ReconciliationConfirmed Reconciliation = "QUANTITY_CONFIRMED"
	ReconciliationDisputed  Reconciliation = "QUANTITY_DISPUTED"
)

// RequiredItem producto y cantidad que la orden de origen espera mover.
type RequiredItem struct {
	ProductID        string          `json:"product_id"`
	RequiredQuantity decimal.Decimal `json:"required_quantity"`
	Reconciliation   Reconciliation  `json:"reconciliation"`
	Note             string          `json:"note,omitempty"`
}

// SourceOrder orden de compra o de producción que origina un borrador.
type SourceOrder struct {
	Kind   CausingKind
	ID     string
	Closed bool
	Items  []RequiredItem
}
