package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/lotledger/internal/application/dto"
	"github.com/jhoicas/lotledger/internal/application/inventory"
	"github.com/jhoicas/lotledger/pkg/jwt"
)

// LocalOperatorID clave en c.Locals del operador autenticado.
const LocalOperatorID = "operator_id"

// HeaderOperatorID cabecera con el operador cuando no hay JWT configurado.
const HeaderOperatorID = "X-Operator-ID"

// OperatorMiddleware resuelve la identidad del operador. Con jwtSecret configurado
// exige Bearer Token y toma operator_id de sus claims; sin secreto usa la cabecera
// X-Operator-ID (puede venir vacía). El operador queda en c.Locals y en el
// contexto de usuario para que los casos de uso lo registren en movimientos.
func OperatorMiddleware(jwtSecret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		operatorID := strings.TrimSpace(c.Get(HeaderOperatorID))
		if jwtSecret != "" {
			authHeader := c.Get("Authorization")
			if authHeader == "" {
				return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "MISSING_TOKEN", Message: "Authorization header requerido"})
			}
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "INVALID_TOKEN", Message: "formato: Bearer <token>"})
			}
			tokenString := strings.TrimSpace(parts[1])
			if tokenString == "" {
				return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "MISSING_TOKEN", Message: "token vacío"})
			}
			claims, err := jwt.Parse(jwtSecret, tokenString)
			if err != nil || claims.OperatorID == "" {
				return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "INVALID_TOKEN", Message: "token inválido o expirado"})
			}
			operatorID = claims.OperatorID
		}
		c.Locals(LocalOperatorID, operatorID)
		c.SetUserContext(inventory.WithOperator(c.UserContext(), operatorID))
		return c.Next()
	}
}

// GetOperatorID devuelve el operador del contexto (después del middleware).
func GetOperatorID(c *fiber.Ctx) string {
	v := c.Locals(LocalOperatorID)
	if v == nil {
		return ""
	}
	s, _ := v.(string)
	return s
}
