package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound          = errors.New("recurso no encontrado")
	ErrInvalidInput      = errors.New("entrada inválida")
	ErrDuplicate         = errors.New("recurso duplicado")
	ErrConflict          = errors.New("conflicto con el estado actual")
	ErrInsufficientStock = errors.New("stock insuficiente")
	ErrInvalidToken      = errors.New("token de confirmación inválido")
	ErrInvalidTransition = errors.New("transición de flujo no permitida")
)

// NotFoundError producto, lote, borrador u orden de origen inexistente.
type NotFoundError struct {
	Resource string
	ID       string
}

// NewNotFound construye un NotFoundError.
func NewNotFound(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q no encontrado", e.Resource, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// Rule identifica la regla de asignación incumplida por una línea.
type Rule string

const (
	RuleQuantityMissing    Rule = "QUANTITY_MISSING"
	RuleQuantityNegative   Rule = "QUANTITY_NEGATIVE"
	RuleQuantityScale      Rule = "QUANTITY_SCALE"
	RuleLotRequired        Rule = "LOT_REQUIRED"
	RuleExpirationRequired Rule = "EXPIRATION_REQUIRED"
	RuleExceedsAvailable   Rule = "EXCEEDS_AVAILABLE"
	RuleSumMismatch        Rule = "SUM_MISMATCH"
	RuleRequiredQuantity   Rule = "REQUIRED_QUANTITY"
	RuleProductNotRequired Rule = "PRODUCT_NOT_REQUIRED"
	RuleInsufficientStock  Rule = "INSUFFICIENT_STOCK"
	RuleInvalidField       Rule = "INVALID_FIELD"
)

// Violation una regla incumplida. Line es el índice de la entrada en la asignación
// enviada; -1 cuando la regla aplica a la línea completa (p. ej. la suma).
type Violation struct {
	ProductID string `json:"product_id,omitempty"`
	Line      int    `json:"line"`
	LotID     string `json:"lot_id,omitempty"`
	Rule      Rule   `json:"rule"`
	Message   string `json:"message"`
}

// ValidationError conjunto de violaciones de reglas de asignación.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	if len(e.Violations) == 0 {
		return ErrInvalidInput.Error()
	}
	msgs := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		msgs = append(msgs, v.Message)
	}
	return "asignación inválida: " + strings.Join(msgs, "; ")
}

func (e *ValidationError) Is(target error) bool { return target == ErrInvalidInput }

// InsufficientStockError el stock disponible no cubre la cantidad requerida.
// Covered es lo que sí pudo asignarse; LotCapReached indica que había más stock
// pero se alcanzó el máximo de lotes por línea.
type InsufficientStockError struct {
	ProductID     string
	Required      decimal.Decimal
	Covered       decimal.Decimal
	LotCapReached bool
}

func (e *InsufficientStockError) Error() string {
	msg := fmt.Sprintf("stock insuficiente para producto %s: requerido %s, cubierto %s",
		e.ProductID, e.Required.String(), e.Covered.String())
	if e.LotCapReached {
		msg += " (límite de lotes alcanzado)"
	}
	return msg
}

func (e *InsufficientStockError) Is(target error) bool { return target == ErrInsufficientStock }

// LotShortage saldo de un lote que ya no alcanza al momento de confirmar.
type LotShortage struct {
	LotID     string          `json:"lot_id"`
	Zone      string          `json:"warehouse"`
	Requested decimal.Decimal `json:"requested"`
	Available decimal.Decimal `json:"available"`
}

// CommitConflictError la revalidación al confirmar encontró saldos cambiados por otro borrador.
type CommitConflictError struct {
	DraftID   string
	Shortages []LotShortage
}

func (e *CommitConflictError) Error() string {
	lots := make([]string, 0, len(e.Shortages))
	for _, s := range e.Shortages {
		lots = append(lots, fmt.Sprintf("%s/%s (pedido %s, disponible %s)",
			s.LotID, s.Zone, s.Requested.String(), s.Available.String()))
	}
	return fmt.Sprintf("conflicto al confirmar borrador %s: %s", e.DraftID, strings.Join(lots, ", "))
}

// Is coincide con ErrConflict y con ErrInsufficientStock: el conflicto siempre es por saldo.
func (e *CommitConflictError) Is(target error) bool {
	return target == ErrConflict || target == ErrInsufficientStock
}

// InvalidTokenError el token tecleado no corresponde al emitido para el borrador.
// TransactionID se informa cuando el borrador ya fue confirmado.
type InvalidTokenError struct {
	DraftID       string
	TransactionID string
	Reason        string
}

func (e *InvalidTokenError) Error() string {
	return fmt.Sprintf("token inválido para borrador %s: %s", e.DraftID, e.Reason)
}

func (e *InvalidTokenError) Is(target error) bool { return target == ErrInvalidToken }

// TransitionError acción no permitida en el estado actual del flujo.
type TransitionError struct {
	From   string
	Action string
	Reason string
}

func (e *TransitionError) Error() string {
	msg := fmt.Sprintf("acción %s no permitida en estado %s", e.Action, e.From)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *TransitionError) Is(target error) bool { return target == ErrInvalidTransition }
