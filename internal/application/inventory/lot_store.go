package inventory

import (
	"context"
	"fmt"

	"github.com/jhoicas/lotledger/internal/domain"
	"github.com/jhoicas/lotledger/internal/domain/entity"
	"github.com/jhoicas/lotledger/internal/domain/inventory"
	"github.com/jhoicas/lotledger/internal/domain/repository"
)

// LotStoreUseCase consultas de lotes disponibles.
type LotStoreUseCase struct {
	productRepo repository.ProductRepository
	lotRepo     repository.LotRepository
}

// NewLotStoreUseCase construye el caso de uso.
func NewLotStoreUseCase(productRepo repository.ProductRepository, lotRepo repository.LotRepository) *LotStoreUseCase {
	return &LotStoreUseCase{productRepo: productRepo, lotRepo: lotRepo}
}

// ListAvailableLots lotes del producto con saldo positivo en la zona, en orden FEFO.
// Producto inexistente: *domain.NotFoundError.
func (uc *LotStoreUseCase) ListAvailableLots(ctx context.Context, productID string, zone entity.WarehouseZone) ([]entity.Lot, error) {
	if err := uc.requireProduct(ctx, productID); err != nil {
		return nil, err
	}
	zone = entity.ZoneOrDefault(zone)
	lots, err := uc.lotRepo.ListAvailable(ctx, productID, zone)
	if err != nil {
		return nil, fmt.Errorf("list available lots: %w", err)
	}
	out := lots[:0]
	for _, l := range lots {
		if l.AvailableQuantity.IsPositive() {
			out = append(out, l)
		}
	}
	inventory.SortFEFO(out)
	return out, nil
}

// FindByBatch lote del producto con ese número de lote (comparación normalizada), o nil.
func (uc *LotStoreUseCase) FindByBatch(ctx context.Context, productID, batchNumber string) (*entity.Lot, error) {
	lot, err := uc.lotRepo.FindByBatch(ctx, productID, inventory.NormalizeBatch(batchNumber))
	if err != nil {
		return nil, fmt.Errorf("find lot by batch: %w", err)
	}
	return lot, nil
}

func (uc *LotStoreUseCase) requireProduct(ctx context.Context, productID string) error {
	if productID == "" {
		return domain.NewNotFound("producto", productID)
	}
	p, err := uc.productRepo.GetByID(ctx, productID)
	if err != nil {
		return fmt.Errorf("get product: %w", err)
	}
	if p == nil {
		return domain.NewNotFound("producto", productID)
	}
	return nil
}
