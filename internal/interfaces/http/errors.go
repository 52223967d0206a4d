package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/lotledger/internal/application/dto"
	"github.com/jhoicas/lotledger/internal/domain"
	"github.com/jhoicas/lotledger/pkg/logger"
)

// writeError traduce errores de dominio a respuestas HTTP y registra el error una
// sola vez, aquí en el borde.
func writeError(c *fiber.Ctx, log *logger.Logger, err error) error {
	status, body := mapError(err)
	if status >= fiber.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.Path()).Str("method", c.Method()).Msg("error interno")
	} else {
		log.Debug().Err(err).Str("path", c.Path()).Int("status", status).Msg("petición rechazada")
	}
	return c.Status(status).JSON(body)
}

func mapError(err error) (int, dto.ErrorResponse) {
	var (
		validation   *domain.ValidationError
		conflict     *domain.CommitConflictError
		insufficient *domain.InsufficientStockError
		notFound     *domain.NotFoundError
		transition   *domain.TransitionError
		token        *domain.InvalidTokenError
	)
	switch {
	case errors.As(err, &validation):
		return fiber.StatusBadRequest, dto.ErrorResponse{Code: "VALIDATION", Message: err.Error(), Details: validation.Violations}
	case errors.As(err, &conflict):
		return fiber.StatusConflict, dto.ErrorResponse{Code: "COMMIT_CONFLICT", Message: err.Error(), Details: conflict.Shortages}
	case errors.As(err, &insufficient):
		return fiber.StatusConflict, dto.ErrorResponse{Code: "INSUFFICIENT_STOCK", Message: err.Error(), Details: fiber.Map{
			"product_id":      insufficient.ProductID,
			"required":        insufficient.Required,
			"covered":         insufficient.Covered,
			"lot_cap_reached": insufficient.LotCapReached,
		}}
	case errors.As(err, &notFound):
		return fiber.StatusNotFound, dto.ErrorResponse{Code: "NOT_FOUND", Message: err.Error(), Details: fiber.Map{
			"resource": notFound.Resource,
			"id":       notFound.ID,
		}}
	case errors.Is(err, domain.ErrNotFound):
		return fiber.StatusNotFound, dto.ErrorResponse{Code: "NOT_FOUND", Message: err.Error()}
	case errors.As(err, &token):
		details := fiber.Map{"draft_id": token.DraftID}
		if token.TransactionID != "" {
			details["transaction_id"] = token.TransactionID
		}
		return fiber.StatusConflict, dto.ErrorResponse{Code: "INVALID_TOKEN", Message: err.Error(), Details: details}
	case errors.Is(err, domain.ErrInvalidToken):
		return fiber.StatusConflict, dto.ErrorResponse{Code: "INVALID_TOKEN", Message: err.Error()}
	case errors.As(err, &transition):
		return fiber.StatusUnprocessableEntity, dto.ErrorResponse{Code: "INVALID_TRANSITION", Message: err.Error(), Details: fiber.Map{
			"state":  transition.From,
			"action": transition.Action,
		}}
	case errors.Is(err, domain.ErrInvalidTransition):
		return fiber.StatusUnprocessableEntity, dto.ErrorResponse{Code: "INVALID_TRANSITION", Message: err.Error()}
	case errors.Is(err, domain.ErrInvalidInput):
		return fiber.StatusBadRequest, dto.ErrorResponse{Code: "VALIDATION", Message: err.Error()}
	case errors.Is(err, domain.ErrInsufficientStock):
		return fiber.StatusConflict, dto.ErrorResponse{Code: "INSUFFICIENT_STOCK", Message: err.Error()}
	case errors.Is(err, domain.ErrDuplicate):
		return fiber.StatusConflict, dto.ErrorResponse{Code: "DUPLICATE", Message: err.Error()}
	case errors.Is(err, domain.ErrConflict):
		return fiber.StatusConflict, dto.ErrorResponse{Code: "CONFLICT", Message: err.Error()}
	}
	return fiber.StatusInternalServerError, dto.ErrorResponse{Code: "INTERNAL", Message: "error interno"}
}
