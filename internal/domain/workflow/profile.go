package workflow

import (
	"github.com/jhoicas/lotledger/internal/domain"
	"github.com/jhoicas/lotledger/internal/domain/entity"
)

// Profile reglas del flujo según el documento origen.
type Profile struct {
	CausingKind entity.CausingKind
	Flows       []entity.MovementKind
	DefaultFlow entity.MovementKind
	// RequiresSource exige resolver la orden de origen antes de conciliar líneas.
	RequiresSource bool
	// RequiresEvidence exige referencia de evidencia antes de emitir el token.
	RequiresEvidence bool
	// AllowsDispute permite reportar diferencias de cantidad (solo recepciones).
	AllowsDispute bool
	// AutoRecommend completa con FEFO las líneas de salida enviadas sin asignación.
	AutoRecommend bool
	// RequiresDestination exige zona destino distinta de la de origen.
	RequiresDestination bool
}

var profiles = map[entity.CausingKind]Profile{
	entity.CausingPurchaseOrder: {
		CausingKind:      entity.CausingPurchaseOrder,
		Flows:            []entity.MovementKind{entity.MovementPurchaseReceipt},
		DefaultFlow:      entity.MovementPurchaseReceipt,
		RequiresSource:   true,
		RequiresEvidence: true,
		AllowsDispute:    true,
	},
	entity.CausingProductionOrder: {
		CausingKind:    entity.CausingProductionOrder,
		Flows:          []entity.MovementKind{entity.MovementConsumption, entity.MovementBackflush},
		DefaultFlow:    entity.MovementConsumption,
		RequiresSource: true,
		AutoRecommend:  true,
	},
	entity.CausingWarehouseAdjustment: {
		CausingKind: entity.CausingWarehouseAdjustment,
		Flows:       []entity.MovementKind{entity.MovementLoss, entity.MovementSale},
		DefaultFlow: entity.MovementLoss,
	},
	entity.CausingWarehouseTransfer: {
		CausingKind:         entity.CausingWarehouseTransfer,
		Flows:               []entity.MovementKind{entity.MovementTransferOut},
		DefaultFlow:         entity.MovementTransferOut,
		AutoRecommend:       true,
		RequiresDestination: true,
	},
}

// ProfileFor perfil del tipo de documento; ErrInvalidInput si no existe.
func ProfileFor(kind entity.CausingKind) (Profile, error) {
	p, ok := profiles[kind]
	if !ok {
		return Profile{}, &domain.ValidationError{Violations: []domain.Violation{{
			Line: -1, Rule: domain.RuleInvalidField, Message: "tipo de documento origen desconocido: " + string(kind),
		}}}
	}
	return p, nil
}

// ResolveFlow valida el flujo pedido o devuelve el predeterminado si viene vacío.
func (p Profile) ResolveFlow(flow entity.MovementKind) (entity.MovementKind, error) {
	if flow == "" {
		return p.DefaultFlow, nil
	}
	for _, f := range p.Flows {
		if f == flow {
			return flow, nil
		}
	}
	return "", &domain.ValidationError{Violations: []domain.Violation{{
		Line: -1, Rule: domain.RuleInvalidField,
		Message: "flujo " + string(flow) + " no aplica a " + string(p.CausingKind),
	}}}
}

// Inbound true si el flujo suma saldo a lotes (recepciones).
func (p Profile) Inbound() bool { return p.DefaultFlow.IsInbound() }
