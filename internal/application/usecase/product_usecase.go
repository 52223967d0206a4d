package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/lotledger/internal/application/dto"
	"github.com/jhoicas/lotledger/internal/domain"
	"github.com/jhoicas/lotledger/internal/domain/entity"
	"github.com/jhoicas/lotledger/internal/domain/repository"
)

// ProductUseCase alta y consulta de productos. Los saldos se manejan por lotes.
type ProductUseCase struct {
	repo repository.ProductRepository
	now  func() time.Time
}

// NewProductUseCase construye el caso de uso.
func NewProductUseCase(repo repository.ProductRepository) *ProductUseCase {
	return &ProductUseCase{repo: repo, now: time.Now}
}

// Create registra un producto. Un ID repetido devuelve domain.ErrDuplicate.
func (uc *ProductUseCase) Create(ctx context.Context, in dto.CreateProductRequest) (*dto.ProductResponse, error) {
	class := entity.ProductClass(in.Class)
	if !class.IsValid() || strings.TrimSpace(in.Name) == "" {
		return nil, domain.ErrInvalidInput
	}
	id := strings.TrimSpace(in.ID)
	if id == "" {
		id = uuid.New().String()
	}
	existing, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	if existing != nil {
		return nil, domain.ErrDuplicate
	}
	if in.UnitMeasure == "" {
		in.UnitMeasure = "UND"
	}
	now := uc.now()
	product := &entity.Product{
		ID:          id,
		Name:        strings.TrimSpace(in.Name),
		Class:       class,
		UnitMeasure: in.UnitMeasure,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := uc.repo.Create(ctx, product); err != nil {
		return nil, err
	}
	return toProductResponse(product), nil
}

// GetByID obtiene un producto por ID; nil, nil si no existe.
func (uc *ProductUseCase) GetByID(ctx context.Context, id string) (*dto.ProductResponse, error) {
	product, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, nil
	}
	return toProductResponse(product), nil
}

func toProductResponse(p *entity.Product) *dto.ProductResponse {
	if p == nil {
		return nil
	}
	return &dto.ProductResponse{
		ID:          p.ID,
		Name:        p.Name,
		Class:       string(p.Class),
		UnitMeasure: p.UnitMeasure,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}
