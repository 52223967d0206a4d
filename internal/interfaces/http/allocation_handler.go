package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/lotledger/internal/application/dto"
	appinv "github.com/jhoicas/lotledger/internal/application/inventory"
	"github.com/jhoicas/lotledger/internal/domain"
	"github.com/jhoicas/lotledger/internal/domain/entity"
	"github.com/jhoicas/lotledger/internal/domain/inventory"
	"github.com/jhoicas/lotledger/pkg/logger"
)

// AllocationHandler recomendación y validación de asignaciones por lote, y
// consulta de lotes disponibles.
type AllocationHandler struct {
	allocation *appinv.AllocationUseCase
	lots       *appinv.LotStoreUseCase
	log        *logger.Logger
}

// NewAllocationHandler construye el handler.
func NewAllocationHandler(allocation *appinv.AllocationUseCase, lots *appinv.LotStoreUseCase, log *logger.Logger) *AllocationHandler {
	return &AllocationHandler{allocation: allocation, lots: lots, log: log}
}

// Recommend godoc
// @Summary      Recomendar asignación FEFO
// @Description  Reparte la cantidad requerida entre los lotes que vencen primero. Si el
//
//	stock no alcanza responde 200 con fully_covered=false, la asignación parcial y el
//	error INSUFFICIENT_STOCK en el campo error.
//
// @Tags         allocation
// @Accept       json
// @Produce      json
// @Param        body  body  dto.RecommendAllocationRequest  true  "product_id, required_quantity, warehouse, max_lots"
// @Success      200   {object}  dto.RecommendAllocationResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/recommend-allocation [post]
func (h *AllocationHandler) Recommend(c *fiber.Ctx) error {
	var in dto.RecommendAllocationRequest
	if ok, err := bindBody(c, &in); !ok {
		return err
	}
	rec, err := h.allocation.Recommend(c.UserContext(), in.ProductID, *in.RequiredQuantity, entity.WarehouseZone(in.Warehouse), in.MaxLots)
	var insufficient *domain.InsufficientStockError
	if err != nil && !errors.As(err, &insufficient) {
		return writeError(c, h.log, err)
	}
	out := dto.RecommendAllocationResponse{
		ProductID:       rec.ProductID,
		Warehouse:       string(rec.Zone),
		Allocation:      toLotQuantities(rec.Lines),
		FullyCovered:    rec.FullyCovered,
		CoveredQuantity: rec.Covered,
		Shortfall:       rec.Shortfall(),
	}
	if insufficient != nil {
		_, body := mapError(insufficient)
		out.LotCapReached = insufficient.LotCapReached
		out.Error = &body
	}
	return c.JSON(out)
}

// Validate godoc
// @Summary      Validar asignación
// @Description  Aplica las reglas de asignación (cantidades, disponibilidad, suma exacta)
//
//	sin modificar nada. Las violaciones vuelven en errors con el índice de la entrada.
//
// @Tags         allocation
// @Accept       json
// @Produce      json
// @Param        body  body  dto.ValidateAllocationRequest  true  "product_id, required_quantity, warehouse, allocation"
// @Success      200   {object}  dto.ValidateAllocationResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/validate-allocation [post]
func (h *AllocationHandler) Validate(c *fiber.Ctx) error {
	var in dto.ValidateAllocationRequest
	if ok, err := bindBody(c, &in); !ok {
		return err
	}
	entries := make([]inventory.AllocationEntry, 0, len(in.Allocation))
	for _, a := range in.Allocation {
		entries = append(entries, inventory.AllocationEntry{LotID: a.LotID, Quantity: a.Quantity})
	}
	res, err := h.allocation.Validate(c.UserContext(), in.ProductID, entity.WarehouseZone(in.Warehouse), entries, *in.RequiredQuantity)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.ValidateAllocationResponse{
		Valid:      res.Valid(),
		Allocation: toLotQuantities(res.Merged),
		Total:      res.Total,
		Errors:     toViolations(res.Violations),
	})
}

// ListLots godoc
// @Summary      Lotes disponibles
// @Description  Lotes con saldo positivo del producto en la zona, en orden FEFO.
// @Tags         lots
// @Produce      json
// @Param        product_id  query  string  true   "Producto"
// @Param        warehouse   query  string  false  "Zona (GENERAL por defecto)"
// @Success      200  {array}   dto.LotResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/lots [get]
func (h *AllocationHandler) ListLots(c *fiber.Ctx) error {
	productID := c.Query("product_id")
	if productID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "product_id requerido"})
	}
	zone := entity.ZoneOrDefault(entity.WarehouseZone(c.Query("warehouse")))
	if !zone.IsValid() {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "zona desconocida"})
	}
	lots, err := h.lots.ListAvailableLots(c.UserContext(), productID, zone)
	if err != nil {
		return writeError(c, h.log, err)
	}
	out := make([]dto.LotResponse, 0, len(lots))
	for _, l := range lots {
		out = append(out, toLotResponse(l))
	}
	return c.JSON(out)
}
