package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/lotledger/internal/application/dto"
	appinv "github.com/jhoicas/lotledger/internal/application/inventory"
	"github.com/jhoicas/lotledger/pkg/logger"
)

// LedgerHandler consultas sobre el libro de movimientos y transacciones.
type LedgerHandler struct {
	uc  *appinv.LedgerUseCase
	log *logger.Logger
}

// NewLedgerHandler construye el handler.
func NewLedgerHandler(uc *appinv.LedgerUseCase, log *logger.Logger) *LedgerHandler {
	return &LedgerHandler{uc: uc, log: log}
}

// Balance godoc
// @Summary      Saldo de un lote según el libro
// @Tags         ledger
// @Produce      json
// @Param        product_id  query  string  true  "Producto"
// @Param        lot_id      query  string  true  "Lote"
// @Success      200  {object}  dto.BalanceResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/ledger/balance [get]
func (h *LedgerHandler) Balance(c *fiber.Ctx) error {
	productID, lotID := c.Query("product_id"), c.Query("lot_id")
	if productID == "" || lotID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "product_id y lot_id son requeridos"})
	}
	bal, err := h.uc.BalanceOf(c.UserContext(), productID, lotID)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.BalanceResponse{ProductID: productID, LotID: lotID, Balance: bal})
}

// Reconcile godoc
// @Summary      Conciliar libro contra saldos
// @Description  Reproduce todos los movimientos y compara con los saldos materializados.
// @Tags         ledger
// @Produce      json
// @Success      200  {object}  dto.ReconcileResponse
// @Failure      500  {object}  dto.ErrorResponse
// @Router       /api/ledger/reconcile [get]
func (h *LedgerHandler) Reconcile(c *fiber.Ctx) error {
	report, err := h.uc.Reconcile(c.UserContext())
	if err != nil {
		return writeError(c, h.log, err)
	}
	if len(report.Mismatches) > 0 {
		h.log.Warn().Int("mismatches", len(report.Mismatches)).Msg("el libro no coincide con los saldos materializados")
	}
	return c.JSON(toReconcileResponse(report))
}

// GetTransaction godoc
// @Summary      Obtener transacción
// @Tags         ledger
// @Produce      json
// @Param        id   path  string  true  "ID de la transacción"
// @Success      200  {object}  dto.TransactionResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/transactions/{id} [get]
func (h *LedgerHandler) GetTransaction(c *fiber.Ctx) error {
	txn, err := h.uc.GetTransaction(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(toTransactionResponse(txn))
}

// MarkPosted godoc
// @Summary      Marcar transacción contabilizada
// @Description  Contabilidad confirma que procesó el evento. Idempotente.
// @Tags         ledger
// @Produce      json
// @Param        id   path  string  true  "ID de la transacción"
// @Success      200  {object}  dto.TransactionResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/transactions/{id}/posted [post]
func (h *LedgerHandler) MarkPosted(c *fiber.Ctx) error {
	txn, err := h.uc.MarkPosted(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(toTransactionResponse(txn))
}
