package dto

// ErrorResponse cuerpo de error HTTP. Details lleva las violaciones de reglas o
// los lotes en conflicto cuando aplica.
type ErrorResponse struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// FieldError campo rechazado por la validación del cuerpo.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// OKResponse respuesta mínima de acciones sin cuerpo propio.
type OKResponse struct {
	OK bool `json:"ok"`
}
