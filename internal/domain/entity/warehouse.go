package entity

// WarehouseZone zona lógica de la bodega; el saldo de un lote se lleva por zona.
type WarehouseZone string

const (
	ZoneGeneral     WarehouseZone = "GENERAL"
	ZoneLosses      WarehouseZone = "PERDIDAS"
	ZoneQualityHold WarehouseZone = "QUALITY_HOLD"
	ZoneReturns     WarehouseZone = "RETURNS"
)

// IsValid indica si la zona es una de las conocidas.
func (z WarehouseZone) IsValid() bool {
	switch z {
	case ZoneGeneral, ZoneLosses, ZoneQualityHold, ZoneReturns:
		return true
	}
	return false
}

// ZoneOrDefault devuelve GENERAL cuando la zona viene vacía.
func ZoneOrDefault(z WarehouseZone) WarehouseZone {
	if z == "" {
		return ZoneGeneral
	}
	return z
}
