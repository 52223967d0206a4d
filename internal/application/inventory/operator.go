package inventory

import "context"

type operatorKey struct{}

// WithOperator asocia el operador que ejecuta la operación al contexto.
func WithOperator(ctx context.Context, operatorID string) context.Context {
	return context.WithValue(ctx, operatorKey{}, operatorID)
}

// OperatorFrom operador del contexto, o "" si no hay.
func OperatorFrom(ctx context.Context) string {
	v, _ := ctx.Value(operatorKey{}).(string)
	return v
}
