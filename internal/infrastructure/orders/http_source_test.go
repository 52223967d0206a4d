package orders_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/lotledger/internal/domain"
	"github.com/jhoicas/lotledger/internal/domain/entity"
	"github.com/jhoicas/lotledger/internal/infrastructure/orders"
)

func TestFindOrder_OrdenAbierta(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/purchase-orders/PO-9", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"PO-9","status":"OPEN","items":[{"product_id":"P1","quantity":"12.5"}]}`))
	}))
	defer srv.Close()

	src := orders.NewHTTPSource(srv.URL, time.Second)
	o, err := src.FindOrder(context.Background(), entity.CausingPurchaseOrder, "PO-9")
	require.NoError(t, err)
	assert.False(t, o.Closed)
	require.Len(t, o.Items, 1)
	assert.Equal(t, "P1", o.Items[0].ProductID)
	assert.Equal(t, "12.5", o.Items[0].RequiredQuantity.String())
}

func TestFindOrder_Cerrada(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"id":"MO-1","status":"CLOSED","items":[]}`))
	}))
	defer srv.Close()

	o, err := orders.NewHTTPSource(srv.URL, time.Second).FindOrder(context.Background(), entity.CausingProductionOrder, "MO-1")
	require.NoError(t, err)
	assert.True(t, o.Closed)
}

func TestFindOrder_NoEncontrada(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, err := orders.NewHTTPSource(srv.URL, time.Second).FindOrder(context.Background(), entity.CausingPurchaseOrder, "PO-X")
	var nf *domain.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "PO-X", nf.ID)
}

// Tras cinco errores seguidos el breaker abre y deja de llamar al servicio.
func TestFindOrder_BreakerAbre(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	src := orders.NewHTTPSource(srv.URL, time.Second)
	for i := 0; i < 7; i++ {
		_, err := src.FindOrder(context.Background(), entity.CausingPurchaseOrder, "PO-1")
		assert.ErrorIs(t, err, orders.ErrUnavailable)
	}
	assert.EqualValues(t, 5, atomic.LoadInt32(&calls))
}

func TestFindOrder_TipoSinOrden(t *testing.T) {
	_, err := orders.NewHTTPSource("http://localhost:1", time.Second).FindOrder(context.Background(), entity.CausingWarehouseTransfer, "T-1")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
