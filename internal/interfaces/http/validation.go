package http

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/lotledger/internal/application/dto"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Los errores usan el nombre JSON del campo.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// bindBody parsea el cuerpo y lo valida. Si falla ya escribió la respuesta 400 y
// devuelve ok=false.
func bindBody(c *fiber.Ctx, out interface{}) (bool, error) {
	if err := c.BodyParser(out); err != nil {
		return false, c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	if err := validate.Struct(out); err != nil {
		return false, c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Code:    "VALIDATION",
			Message: "datos inválidos",
			Details: fieldErrors(err),
		})
	}
	return true, nil
}

func fieldErrors(err error) []dto.FieldError {
	var out []dto.FieldError
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return []dto.FieldError{{Message: err.Error()}}
	}
	for _, e := range verrs {
		out = append(out, dto.FieldError{Field: fieldPath(e), Message: fieldMessage(e)})
	}
	return out
}

// fieldPath ruta del campo sin el nombre del struct raíz (lines[0].product_id).
func fieldPath(e validator.FieldError) string {
	ns := e.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func fieldMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "campo requerido"
	case "oneof":
		return "valor no permitido, use uno de: " + e.Param()
	case "datetime":
		return "fecha inválida, formato " + e.Param()
	case "min":
		if e.Kind() == reflect.Slice {
			return "debe tener al menos " + e.Param() + " elementos"
		}
		return "valor mínimo " + e.Param()
	case "max":
		if e.Kind() == reflect.String {
			return "máximo " + e.Param() + " caracteres"
		}
		return "valor máximo " + e.Param()
	}
	return "valor inválido (" + e.Tag() + ")"
}
