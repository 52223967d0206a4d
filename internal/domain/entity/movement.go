package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// MovementKind tipo de movimiento del libro; determina el signo de la cantidad.
type MovementKind string

const (
	MovementPurchaseReceipt MovementKind = "PURCHASE_RECEIPT" // entrada
	MovementLoss            MovementKind = "LOSS"             // salida
	MovementConsumption     MovementKind = "CONSUMPTION"      // salida
	MovementBackflush       MovementKind = "BACKFLUSH"        // salida
	MovementSale            MovementKind = "SALE"             // salida
	MovementTransferOut     MovementKind = "TRANSFER_OUT"     // salida de la zona origen
	MovementTransferIn      MovementKind = "TRANSFER_IN"      // entrada a la zona destino
)

// IsValid indica si el tipo es uno de los conocidos.
func (k MovementKind) IsValid() bool {
	switch k {
	case MovementPurchaseReceipt, MovementLoss, MovementConsumption, MovementBackflush,
		MovementSale, MovementTransferOut, MovementTransferIn:
		return true
	}
	return false
}

// IsInbound true para los tipos que suman al saldo.
func (k MovementKind) IsInbound() bool {
	return k == MovementPurchaseReceipt || k == MovementTransferIn
}

// Signed aplica el signo del tipo a una cantidad positiva.
func (k MovementKind) Signed(q decimal.Decimal) decimal.Decimal {
	q = q.Abs()
	if k.IsInbound() {
		return q
	}
	return q.Neg()
}

// Movement línea inmutable del libro. Quantity lleva signo: positivo entrada, negativo salida.
// Los movimientos de una misma confirmación comparten TransactionID.
type Movement struct {
	ID            string
	TransactionID string
	ProductID     string
	LotID         string
	Zone          WarehouseZone
	Kind          MovementKind
	Quantity      decimal.Decimal
	CreatedAt     time.Time
	CreatedBy     string
}
