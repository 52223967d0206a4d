package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// DraftState estado del flujo de captura de un borrador.
type DraftState string

const (
	DraftIdentifySource    DraftState = "IDENTIFY_SOURCE"
	DraftReconcileLines    DraftState = "RECONCILE_LINES"
	DraftAttachEvidence    DraftState = "ATTACH_EVIDENCE"
	DraftAwaitConfirmation DraftState = "AWAIT_CONFIRMATION"
	DraftCommitted         DraftState = "COMMITTED"
	DraftAborted           DraftState = "ABORTED"
	DraftDisputed          DraftState = "DISPUTED"
)

// AllocatedLot cantidad tomada (o recibida) de un lote. Provisional marca un lote
// que todavía no existe y se crea al confirmar una recepción.
type AllocatedLot struct {
	LotID          string          `json:"lot_id"`
	Quantity       decimal.Decimal `json:"quantity"`
	Provisional    bool            `json:"provisional,omitempty"`
	BatchNumber    string          `json:"batch_number,omitempty"`
	ProductionDate *time.Time      `json:"production_date,omitempty"`
	ExpirationDate *time.Time      `json:"expiration_date,omitempty"`
}

// DraftLine línea validada de un borrador: un producto y su asignación por lote.
type DraftLine struct {
	ProductID        string          `json:"product_id"`
	RequiredQuantity decimal.Decimal `json:"required_quantity"`
	Allocation       []AllocatedLot  `json:"allocation"`
	Shortfall        decimal.Decimal `json:"shortfall"`
	Recommended      bool            `json:"recommended,omitempty"`
}

// Total suma de la asignación de la línea.
func (l DraftLine) Total() decimal.Decimal {
	sum := decimal.Zero
	for _, a := range l.Allocation {
		sum = sum.Add(a.Quantity)
	}
	return sum
}

// Draft transacción en construcción. Vive en el almacén de borradores y nunca
// toca el libro hasta la confirmación.
type Draft struct {
	ID               string         `json:"id"`
	CausingKind      CausingKind    `json:"causing_kind"`
	CausingID        string         `json:"causing_id,omitempty"`
	Flow             MovementKind   `json:"flow"`
	Zone             WarehouseZone  `json:"zone"`
	DestinationZone  WarehouseZone  `json:"destination_zone,omitempty"`
	State            DraftState     `json:"state"`
	RequiredItems    []RequiredItem `json:"required_items,omitempty"`
	Lines            []DraftLine    `json:"lines,omitempty"`
	EvidenceRef      string         `json:"evidence_ref,omitempty"`
	Notes            string         `json:"notes,omitempty"`
	Token            string         `json:"token,omitempty"`
	TokenFingerprint string         `json:"token_fingerprint,omitempty"`
	TokenIssuedAt    *time.Time     `json:"token_issued_at,omitempty"`
	TransactionID    string         `json:"transaction_id,omitempty"`
	CreatedBy        string         `json:"created_by,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	Version          int64          `json:"version"`
}

// LineIndex posición de la línea del producto, o -1.
func (d *Draft) LineIndex(productID string) int {
	for i := range d.Lines {
		if d.Lines[i].ProductID == productID {
			return i
		}
	}
	return -1
}

// RequiredItemIndex posición del ítem requerido del producto, o -1.
func (d *Draft) RequiredItemIndex(productID string) int {
	for i := range d.RequiredItems {
		if d.RequiredItems[i].ProductID == productID {
			return i
		}
	}
	return -1
}

// PutLine reemplaza la línea del producto o la agrega al final.
func (d *Draft) PutLine(line DraftLine) {
	if i := d.LineIndex(line.ProductID); i >= 0 {
		d.Lines[i] = line
		return
	}
	d.Lines = append(d.Lines, line)
}

// RemoveLine quita la línea del producto si existe.
func (d *Draft) RemoveLine(productID string) {
	if i := d.LineIndex(productID); i >= 0 {
		d.Lines = append(d.Lines[:i], d.Lines[i+1:]...)
	}
}

// ClearToken invalida el token emitido.
func (d *Draft) ClearToken() {
	d.Token = ""
	d.TokenFingerprint = ""
	d.TokenIssuedAt = nil
}

// LinesComplete true cuando cada ítem requerido tiene línea validada; sin orden de
// origen basta con tener al menos una línea.
func (d *Draft) LinesComplete() bool {
	if len(d.RequiredItems) == 0 {
		return len(d.Lines) > 0
	}
	for _, it := range d.RequiredItems {
		if d.LineIndex(it.ProductID) < 0 {
			return false
		}
	}
	return true
}

// Movements construye los movimientos candidatos del borrador (sin IDs ni transacción).
// Un traslado genera un par salida/entrada por cada lote asignado.
func (d *Draft) Movements() []Movement {
	var out []Movement
	for _, line := range d.Lines {
		for _, a := range line.Allocation {
			if a.Quantity.IsZero() {
				continue
			}
			if d.Flow == MovementTransferOut || d.Flow == MovementTransferIn {
				out = append(out,
					Movement{ProductID: line.ProductID, LotID: a.LotID, Zone: d.Zone,
						Kind: MovementTransferOut, Quantity: MovementTransferOut.Signed(a.Quantity)},
					Movement{ProductID: line.ProductID, LotID: a.LotID, Zone: d.DestinationZone,
						Kind: MovementTransferIn, Quantity: MovementTransferIn.Signed(a.Quantity)},
				)
				continue
			}
			out = append(out, Movement{ProductID: line.ProductID, LotID: a.LotID, Zone: d.Zone,
				Kind: d.Flow, Quantity: d.Flow.Signed(a.Quantity)})
		}
	}
	return out
}
