package inventory

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"

	"github.com/jhoicas/lotledger/internal/domain/entity"
	"github.com/jhoicas/lotledger/internal/domain/inventory"
	"github.com/jhoicas/lotledger/internal/domain/repository"
)

// AllocationConfig política de asignación.
type AllocationConfig struct {
	MaxLots      int
	AllowPartial bool
}

// AllocationUseCase recomienda y valida asignaciones por lote.
type AllocationUseCase struct {
	lotStore *LotStoreUseCase
	lotRepo  repository.LotRepository
	cfg      AllocationConfig
}

// NewAllocationUseCase construye el caso de uso.
func NewAllocationUseCase(lotStore *LotStoreUseCase, lotRepo repository.LotRepository, cfg AllocationConfig) *AllocationUseCase {
	if cfg.MaxLots <= 0 {
		cfg.MaxLots = inventory.DefaultMaxLots
	}
	return &AllocationUseCase{lotStore: lotStore, lotRepo: lotRepo, cfg: cfg}
}

// Config política vigente.
func (uc *AllocationUseCase) Config() AllocationConfig { return uc.cfg }

// Recommend asignación FEFO para cubrir required en la zona. maxLots <= 0 usa el
// configurado. Si el stock no alcanza, devuelve la recomendación parcial y un
// *domain.InsufficientStockError.
func (uc *AllocationUseCase) Recommend(ctx context.Context, productID string, required decimal.Decimal, zone entity.WarehouseZone, maxLots int) (rec inventory.Recommendation, err error) {
	ctx, span := tracer.Start(ctx, "allocation.Recommend")
	span.SetAttributes(attribute.String("product_id", productID), attribute.String("required", required.String()))
	defer func() { endSpan(span, err) }()

	zone = entity.ZoneOrDefault(zone)
	lots, err := uc.lotStore.ListAvailableLots(ctx, productID, zone)
	if err != nil {
		return inventory.Recommendation{}, err
	}
	if maxLots <= 0 {
		maxLots = uc.cfg.MaxLots
	}
	rec, err = inventory.Recommend(productID, lots, required, maxLots)
	rec.Zone = zone
	return rec, err
}

// Validate aplica las reglas de asignación contra los saldos actuales de la zona.
// Las entradas provisionales solo se validan contra lo declarado. Producto
// inexistente: *domain.NotFoundError.
func (uc *AllocationUseCase) Validate(ctx context.Context, productID string, zone entity.WarehouseZone, entries []inventory.AllocationEntry, required decimal.Decimal) (res inventory.ValidationResult, err error) {
	ctx, span := tracer.Start(ctx, "allocation.Validate")
	span.SetAttributes(attribute.String("product_id", productID), attribute.Int("entries", len(entries)))
	defer func() { endSpan(span, err) }()

	if err = uc.lotStore.requireProduct(ctx, productID); err != nil {
		return inventory.ValidationResult{}, err
	}
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.LotID != "" && !e.Provisional {
			ids = append(ids, e.LotID)
		}
	}
	available := map[string]decimal.Decimal{}
	if len(ids) > 0 {
		available, err = uc.lotRepo.Balances(ctx, productID, entity.ZoneOrDefault(zone), ids)
		if err != nil {
			return inventory.ValidationResult{}, fmt.Errorf("lot balances: %w", err)
		}
	}
	return inventory.Validate(productID, entries, required, available), nil
}
