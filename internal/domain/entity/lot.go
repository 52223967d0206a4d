package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Lot lote de un producto. BatchKey es el número de lote normalizado y, junto al
// producto, identifica el lote de forma única.
type Lot struct {
	ID             string
	ProductID      string
	BatchNumber    string
	BatchKey       string
	ProductionDate *time.Time
	ExpirationDate *time.Time
	CreatedAt      time.Time

	// Zone y AvailableQuantity se rellenan al consultar saldos por zona.
	Zone              WarehouseZone
	AvailableQuantity decimal.Decimal
}

// BalanceKey identifica un saldo materializado (lote, zona).
type BalanceKey struct {
	LotID string
	Zone  WarehouseZone
}
