// Package orders resuelve órdenes de compra y producción contra el servicio de
// órdenes, detrás de un circuit breaker.
package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"

	"github.com/jhoicas/lotledger/internal/application/inventory"
	"github.com/jhoicas/lotledger/internal/domain"
	"github.com/jhoicas/lotledger/internal/domain/entity"
)

var _ inventory.OrderSource = (*HTTPSource)(nil)

// ErrUnavailable el servicio de órdenes no responde o el breaker está abierto.
var ErrUnavailable = errors.New("servicio de órdenes no disponible")

type orderResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Items  []struct {
		ProductID string          `json:"product_id"`
		Quantity  decimal.Decimal `json:"quantity"`
	} `json:"items"`
}

// HTTPSource cliente del servicio de órdenes.
type HTTPSource struct {
	baseURL string
	timeout time.Duration
	breaker *gobreaker.CircuitBreaker
}

// NewHTTPSource construye el cliente. El breaker abre tras 5 fallos seguidos y
// prueba de nuevo a los 30 s.
func NewHTTPSource(baseURL string, timeout time.Duration) *HTTPSource {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPSource{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "orders",
			MaxRequests: 1,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(c gobreaker.Counts) bool { return c.ConsecutiveFailures >= 5 },
		}),
	}
}

// FindOrder GET /purchase-orders/{id} o /production-orders/{id}.
func (s *HTTPSource) FindOrder(ctx context.Context, kind entity.CausingKind, id string) (*entity.SourceOrder, error) {
	var path string
	switch kind {
	case entity.CausingPurchaseOrder:
		path = "/purchase-orders/"
	case entity.CausingProductionOrder:
		path = "/production-orders/"
	default:
		return nil, fmt.Errorf("%w: %s no tiene orden de origen", domain.ErrInvalidInput, kind)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result, err := s.breaker.Execute(func() (interface{}, error) {
		agent := fiber.Get(s.baseURL + path + url.PathEscape(id))
		agent.Timeout(s.timeout)
		code, body, errs := agent.Bytes()
		if len(errs) > 0 {
			return nil, errs[0]
		}
		switch {
		case code == http.StatusNotFound:
			// no cuenta como fallo del servicio
			return (*orderResponse)(nil), nil
		case code != http.StatusOK:
			return nil, fmt.Errorf("orders: status %d", code)
		}
		var resp orderResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, fmt.Errorf("orders: decode: %w", err)
		}
		return &resp, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	resp := result.(*orderResponse)
	if resp == nil {
		return nil, domain.NewNotFound("orden", id)
	}

	order := &entity.SourceOrder{
		Kind:   kind,
		ID:     resp.ID,
		Closed: strings.EqualFold(resp.Status, "CLOSED") || strings.EqualFold(resp.Status, "CANCELLED"),
	}
	for _, it := range resp.Items {
		order.Items = append(order.Items, entity.RequiredItem{
			ProductID:        it.ProductID,
			RequiredQuantity: it.Quantity,
			Reconciliation:   entity.ReconciliationPending,
		})
	}
	return order, nil
}
