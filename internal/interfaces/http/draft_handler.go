package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/lotledger/internal/application/dto"
	appinv "github.com/jhoicas/lotledger/internal/application/inventory"
	"github.com/jhoicas/lotledger/internal/domain/entity"
	"github.com/jhoicas/lotledger/pkg/logger"
)

// DraftHandler flujo de captura: borrador, líneas, evidencia, token y confirmación.
type DraftHandler struct {
	coord *appinv.Coordinator
	log   *logger.Logger
}

// NewDraftHandler construye el handler.
func NewDraftHandler(coord *appinv.Coordinator, log *logger.Logger) *DraftHandler {
	return &DraftHandler{coord: coord, log: log}
}

// Begin godoc
// @Summary      Abrir borrador
// @Description  Abre un borrador para la entidad causante. Si la orden de origen no se
//
//	resuelve el borrador queda en IDENTIFY_SOURCE y source_error explica el motivo.
//
// @Tags         drafts
// @Accept       json
// @Produce      json
// @Param        body  body  dto.BeginDraftRequest  true  "causing_entity_kind, causing_entity_id, flow, warehouse"
// @Success      201   {object}  dto.BeginDraftResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/drafts [post]
func (h *DraftHandler) Begin(c *fiber.Ctx) error {
	var in dto.BeginDraftRequest
	if ok, err := bindBody(c, &in); !ok {
		return err
	}
	d, err := h.coord.BeginDraft(c.UserContext(), appinv.BeginDraftInput{
		CausingKind:     entity.CausingKind(in.CausingKind),
		CausingID:       in.CausingID,
		Flow:            entity.MovementKind(in.Flow),
		Zone:            entity.WarehouseZone(in.Warehouse),
		DestinationZone: entity.WarehouseZone(in.DestinationWarehouse),
		Notes:           in.Notes,
	})
	if d == nil {
		return writeError(c, h.log, err)
	}
	out := dto.BeginDraftResponse{DraftResponse: toDraftResponse(d)}
	if err != nil {
		status, body := mapError(err)
		if status >= fiber.StatusInternalServerError {
			return writeError(c, h.log, err)
		}
		out.SourceError = &body
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// Get godoc
// @Summary      Consultar borrador
// @Tags         drafts
// @Produce      json
// @Param        id   path  string  true  "ID del borrador"
// @Success      200  {object}  dto.DraftResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/drafts/{id} [get]
func (h *DraftHandler) Get(c *fiber.Ctx) error {
	d, err := h.coord.GetDraft(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(toDraftResponse(d))
}

// IdentifySource godoc
// @Summary      Identificar orden de origen
// @Tags         drafts
// @Accept       json
// @Produce      json
// @Param        id    path  string                     true  "ID del borrador"
// @Param        body  body  dto.IdentifySourceRequest  true  "causing_entity_id"
// @Success      200   {object}  dto.DraftResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Failure      422   {object}  dto.ErrorResponse
// @Router       /api/drafts/{id}/source [post]
func (h *DraftHandler) IdentifySource(c *fiber.Ctx) error {
	var in dto.IdentifySourceRequest
	if ok, err := bindBody(c, &in); !ok {
		return err
	}
	d, err := h.coord.IdentifySource(c.UserContext(), c.Params("id"), in.CausingID)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(toDraftResponse(d))
}

// AddLines godoc
// @Summary      Conciliar líneas
// @Description  Valida cada línea contra la orden y los lotes. Las líneas con errores se
//
//	retiran del borrador y se reportan en errors; validated=true cuando todas pasan.
//
// @Tags         drafts
// @Accept       json
// @Produce      json
// @Param        id    path  string               true  "ID del borrador"
// @Param        body  body  dto.AddLinesRequest  true  "lines"
// @Success      200   {object}  dto.AddLinesResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      422   {object}  dto.ErrorResponse
// @Router       /api/drafts/{id}/lines [post]
func (h *DraftHandler) AddLines(c *fiber.Ctx) error {
	var in dto.AddLinesRequest
	if ok, err := bindBody(c, &in); !ok {
		return err
	}
	res, err := h.coord.AddLines(c.UserContext(), c.Params("id"), toLineInputs(in.Lines))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.AddLinesResponse{
		Validated: res.Validated,
		Errors:    toViolations(res.Violations),
		State:     string(res.Draft.State),
		Draft:     toDraftResponse(res.Draft),
	})
}

// AttachEvidence godoc
// @Summary      Adjuntar evidencia
// @Tags         drafts
// @Accept       json
// @Produce      json
// @Param        id    path  string               true  "ID del borrador"
// @Param        body  body  dto.EvidenceRequest  true  "reference"
// @Success      200   {object}  dto.OKResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      422   {object}  dto.ErrorResponse
// @Router       /api/drafts/{id}/evidence [post]
func (h *DraftHandler) AttachEvidence(c *fiber.Ctx) error {
	var in dto.EvidenceRequest
	if ok, err := bindBody(c, &in); !ok {
		return err
	}
	if _, err := h.coord.AttachEvidence(c.UserContext(), c.Params("id"), in.Reference); err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.OKResponse{OK: true})
}

// IssueToken godoc
// @Summary      Emitir token de confirmación
// @Tags         drafts
// @Produce      json
// @Param        id   path  string  true  "ID del borrador"
// @Success      200  {object}  dto.TokenResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      422  {object}  dto.ErrorResponse
// @Router       /api/drafts/{id}/token/issue [post]
func (h *DraftHandler) IssueToken(c *fiber.Ctx) error {
	d, err := h.coord.IssueToken(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	out := dto.TokenResponse{DraftID: d.ID, Token: d.Token}
	if d.TokenIssuedAt != nil {
		out.IssuedAt = *d.TokenIssuedAt
	}
	return c.JSON(out)
}

// Commit godoc
// @Summary      Confirmar borrador
// @Description  Confirma con el token emitido. 409 COMMIT_CONFLICT si otro borrador consumió
//
//	el saldo (el borrador vuelve a RECONCILE_LINES); 409 INVALID_TOKEN si el token no
//	coincide o el borrador ya fue confirmado; 422 si el estado no admite confirmar.
//
// @Tags         drafts
// @Accept       json
// @Produce      json
// @Param        id    path  string             true  "ID del borrador"
// @Param        body  body  dto.CommitRequest  true  "token"
// @Success      200   {object}  dto.CommitResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Failure      422   {object}  dto.ErrorResponse
// @Router       /api/drafts/{id}/commit [post]
func (h *DraftHandler) Commit(c *fiber.Ctx) error {
	var in dto.CommitRequest
	if ok, err := bindBody(c, &in); !ok {
		return err
	}
	txn, err := h.coord.Commit(c.UserContext(), c.Params("id"), in.Token)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.CommitResponse{TransactionID: txn.ID})
}

// Abort godoc
// @Summary      Descartar borrador
// @Tags         drafts
// @Produce      json
// @Param        id   path  string  true  "ID del borrador"
// @Success      200  {object}  dto.OKResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      422  {object}  dto.ErrorResponse
// @Router       /api/drafts/{id}/abort [post]
func (h *DraftHandler) Abort(c *fiber.Ctx) error {
	if _, err := h.coord.Abort(c.UserContext(), c.Params("id")); err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.OKResponse{OK: true})
}

// Dispute godoc
// @Summary      Reportar discrepancia de recepción
// @Description  Marca la cantidad de la orden de compra como disputada y notifica a compras.
// @Tags         drafts
// @Accept       json
// @Produce      json
// @Param        id    path  string              true  "ID del borrador"
// @Param        body  body  dto.DisputeRequest  true  "product_id, note"
// @Success      200   {object}  dto.DraftResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      422   {object}  dto.ErrorResponse
// @Router       /api/drafts/{id}/dispute [post]
func (h *DraftHandler) Dispute(c *fiber.Ctx) error {
	var in dto.DisputeRequest
	if ok, err := bindBody(c, &in); !ok {
		return err
	}
	d, err := h.coord.ReportDiscrepancy(c.UserContext(), c.Params("id"), in.ProductID, in.Note)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(toDraftResponse(d))
}
