package http_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/lotledger/internal/application/dto"
	"github.com/jhoicas/lotledger/internal/application/inventory"
	"github.com/jhoicas/lotledger/internal/application/usecase"
	"github.com/jhoicas/lotledger/internal/domain/entity"
	"github.com/jhoicas/lotledger/internal/infrastructure/memory"
	"github.com/jhoicas/lotledger/internal/infrastructure/storage"
	apphttp "github.com/jhoicas/lotledger/internal/interfaces/http"
)

type testServer struct {
	app    *fiber.App
	store  *memory.Store
	orders *memory.OrderBook
}

func date(s string) *time.Time {
	t, _ := time.Parse("2006-01-02", s)
	return &t
}

// newTestServer API completa sobre adaptadores en memoria. El producto MP-1 tiene
// dos lotes en GENERAL: L-A (5, vence antes) y L-B (10).
func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store := memory.NewStore()
	store.AddProduct(entity.Product{ID: "MP-1", Name: "Ácido cítrico", Class: entity.ProductClassRawMaterial, UnitMeasure: "KG"})
	store.Receive(entity.Lot{ID: "L-A", ProductID: "MP-1", BatchNumber: "A", BatchKey: "a", ExpirationDate: date("2025-01-01")},
		entity.ZoneGeneral, decimal.NewFromInt(5))
	store.Receive(entity.Lot{ID: "L-B", ProductID: "MP-1", BatchNumber: "B", BatchKey: "b", ExpirationDate: date("2025-06-01")},
		entity.ZoneGeneral, decimal.NewFromInt(10))

	orders := memory.NewOrderBook()
	lotStore := inventory.NewLotStoreUseCase(store.Products(), store.Lots())
	allocation := inventory.NewAllocationUseCase(lotStore, store.Lots(), inventory.AllocationConfig{MaxLots: 3})
	coord := inventory.NewCoordinator(inventory.CoordinatorDeps{
		Drafts:       memory.NewDraftStore(time.Hour),
		TxRunner:     store,
		Lots:         store.Lots(),
		Movements:    store.Movements(),
		Transactions: store.Transactions(),
		Orders:       orders,
		Evidence:     storage.StubVerifier{},
		LotStore:     lotStore,
		Allocation:   allocation,
	})

	app := fiber.New()
	apphttp.Router(app, apphttp.RouterDeps{
		ProductUC:   usecase.NewProductUseCase(store.Products()),
		LotStore:    lotStore,
		Allocation:  allocation,
		Coordinator: coord,
		Ledger:      inventory.NewLedgerUseCase(store.Lots(), store.Movements(), store.Transactions()),
	})
	return &testServer{app: app, store: store, orders: orders}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}, out interface{}) int {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rdr)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(apphttp.HeaderOperatorID, "op-1")
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestRecommendAllocation_FEFO(t *testing.T) {
	s := newTestServer(t)

	var out dto.RecommendAllocationResponse
	status := s.do(t, http.MethodPost, "/api/recommend-allocation", fiber.Map{
		"product_id": "MP-1", "required_quantity": "8",
	}, &out)

	require.Equal(t, fiber.StatusOK, status)
	assert.True(t, out.FullyCovered)
	assert.Equal(t, "GENERAL", out.Warehouse)
	require.Len(t, out.Allocation, 2)
	assert.Equal(t, "L-A", out.Allocation[0].LotID)
	assert.True(t, out.Allocation[0].Quantity.Equal(dec("5")))
	assert.Equal(t, "L-B", out.Allocation[1].LotID)
	assert.True(t, out.Allocation[1].Quantity.Equal(dec("3")))
	assert.Nil(t, out.Error)
}

func TestRecommendAllocation_StockInsuficienteDevuelveParcial(t *testing.T) {
	s := newTestServer(t)

	var out dto.RecommendAllocationResponse
	status := s.do(t, http.MethodPost, "/api/recommend-allocation", fiber.Map{
		"product_id": "MP-1", "required_quantity": 20,
	}, &out)

	require.Equal(t, fiber.StatusOK, status)
	assert.False(t, out.FullyCovered)
	assert.True(t, out.CoveredQuantity.Equal(dec("15")))
	assert.True(t, out.Shortfall.Equal(dec("5")))
	require.NotNil(t, out.Error)
	assert.Equal(t, "INSUFFICIENT_STOCK", out.Error.Code)
}

func TestRecommendAllocation_LimiteDeLotes(t *testing.T) {
	s := newTestServer(t)

	var out dto.RecommendAllocationResponse
	status := s.do(t, http.MethodPost, "/api/recommend-allocation", fiber.Map{
		"product_id": "MP-1", "required_quantity": "8", "max_lots": 1,
	}, &out)

	require.Equal(t, fiber.StatusOK, status)
	assert.False(t, out.FullyCovered)
	assert.True(t, out.LotCapReached)
	require.Len(t, out.Allocation, 1)
}

func TestRecommendAllocation_ProductoInexistente(t *testing.T) {
	s := newTestServer(t)

	var out dto.ErrorResponse
	status := s.do(t, http.MethodPost, "/api/recommend-allocation", fiber.Map{
		"product_id": "NOPE", "required_quantity": "1",
	}, &out)

	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", out.Code)
}

func TestRecommendAllocation_CuerpoInvalido(t *testing.T) {
	s := newTestServer(t)

	var out struct {
		Code    string           `json:"code"`
		Details []dto.FieldError `json:"details"`
	}
	status := s.do(t, http.MethodPost, "/api/recommend-allocation", fiber.Map{
		"warehouse": "SOTANO",
	}, &out)

	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION", out.Code)
	fields := make([]string, 0, len(out.Details))
	for _, d := range out.Details {
		fields = append(fields, d.Field)
	}
	assert.ElementsMatch(t, []string{"product_id", "required_quantity", "warehouse"}, fields)
}

func TestValidateAllocation_SumaDistinta(t *testing.T) {
	s := newTestServer(t)

	var out struct {
		Valid  bool `json:"valid"`
		Errors []struct {
			Rule string `json:"rule"`
			Line int    `json:"line"`
		} `json:"errors"`
	}
	status := s.do(t, http.MethodPost, "/api/validate-allocation", fiber.Map{
		"product_id": "MP-1", "required_quantity": "8",
		"allocation": []fiber.Map{{"lot_id": "L-A", "quantity": "5"}, {"lot_id": "L-B", "quantity": "2"}},
	}, &out)

	require.Equal(t, fiber.StatusOK, status)
	assert.False(t, out.Valid)
	require.Len(t, out.Errors, 1)
	assert.Equal(t, "SUM_MISMATCH", out.Errors[0].Rule)
	assert.Equal(t, -1, out.Errors[0].Line)
}

func TestValidateAllocation_Valida(t *testing.T) {
	s := newTestServer(t)

	var out dto.ValidateAllocationResponse
	status := s.do(t, http.MethodPost, "/api/validate-allocation", fiber.Map{
		"product_id": "MP-1", "required_quantity": "8",
		"allocation": []fiber.Map{{"lot_id": "L-B", "quantity": "8"}},
	}, &out)

	require.Equal(t, fiber.StatusOK, status)
	assert.True(t, out.Valid)
	assert.True(t, out.Total.Equal(dec("8")))
}

func TestListLots_OrdenFEFO(t *testing.T) {
	s := newTestServer(t)

	var out []dto.LotResponse
	status := s.do(t, http.MethodGet, "/api/lots?product_id=MP-1", nil, &out)

	require.Equal(t, fiber.StatusOK, status)
	require.Len(t, out, 2)
	assert.Equal(t, "L-A", out[0].LotID)
	assert.Equal(t, "L-B", out[1].LotID)
}

func TestDraftFlow_AjustePorPerdida(t *testing.T) {
	s := newTestServer(t)

	var begun dto.BeginDraftResponse
	status := s.do(t, http.MethodPost, "/api/drafts", fiber.Map{
		"causing_entity_kind": "WAREHOUSE_ADJUSTMENT", "flow": "LOSS", "notes": "derrame",
	}, &begun)
	require.Equal(t, fiber.StatusCreated, status)
	assert.Equal(t, "RECONCILE_LINES", begun.State)
	assert.Nil(t, begun.SourceError)
	path := "/api/drafts/" + begun.DraftID

	var lines dto.AddLinesResponse
	status = s.do(t, http.MethodPost, path+"/lines", fiber.Map{
		"lines": []fiber.Map{{
			"product_id": "MP-1", "required_quantity": "6",
			"allocation": []fiber.Map{{"lot_id": "L-A", "quantity": "5"}, {"lot_id": "L-B", "quantity": "1"}},
		}},
	}, &lines)
	require.Equal(t, fiber.StatusOK, status)
	assert.True(t, lines.Validated)
	assert.Equal(t, "ATTACH_EVIDENCE", lines.State)

	var tok dto.TokenResponse
	require.Equal(t, fiber.StatusOK, s.do(t, http.MethodPost, path+"/token/issue", nil, &tok))
	require.Len(t, tok.Token, 6)

	var bad dto.ErrorResponse
	status = s.do(t, http.MethodPost, path+"/commit", fiber.Map{"token": "ZZZZZZ"}, &bad)
	assert.Equal(t, fiber.StatusConflict, status)
	assert.Equal(t, "INVALID_TOKEN", bad.Code)

	var committed dto.CommitResponse
	require.Equal(t, fiber.StatusOK, s.do(t, http.MethodPost, path+"/commit", fiber.Map{"token": tok.Token}, &committed))
	require.NotEmpty(t, committed.TransactionID)

	var txn dto.TransactionResponse
	require.Equal(t, fiber.StatusOK, s.do(t, http.MethodGet, "/api/transactions/"+committed.TransactionID, nil, &txn))
	assert.Equal(t, "PENDING", txn.PostingStatus)
	assert.Equal(t, "op-1", txn.CommittedBy)
	require.Len(t, txn.Movements, 2)
	for _, m := range txn.Movements {
		assert.Equal(t, "LOSS", m.Kind)
		assert.True(t, m.Quantity.IsNegative())
	}

	var bal dto.BalanceResponse
	require.Equal(t, fiber.StatusOK, s.do(t, http.MethodGet, "/api/ledger/balance?product_id=MP-1&lot_id=L-B", nil, &bal))
	assert.True(t, bal.Balance.Equal(dec("9")))

	var rec dto.ReconcileResponse
	require.Equal(t, fiber.StatusOK, s.do(t, http.MethodGet, "/api/ledger/reconcile", nil, &rec))
	assert.True(t, rec.Consistent)
	assert.Equal(t, 4, rec.Movements)

	var posted dto.TransactionResponse
	require.Equal(t, fiber.StatusOK, s.do(t, http.MethodPost, "/api/transactions/"+committed.TransactionID+"/posted", nil, &posted))
	assert.Equal(t, "POSTED", posted.PostingStatus)
	assert.NotNil(t, posted.PostedAt)

	// El token ya no vale tras confirmar; el error indica la transacción registrada.
	var reenvio struct {
		Code    string `json:"code"`
		Details struct {
			TransactionID string `json:"transaction_id"`
		} `json:"details"`
	}
	require.Equal(t, fiber.StatusConflict, s.do(t, http.MethodPost, path+"/commit", fiber.Map{"token": tok.Token}, &reenvio))
	assert.Equal(t, "INVALID_TOKEN", reenvio.Code)
	assert.Equal(t, committed.TransactionID, reenvio.Details.TransactionID)
}

func TestDraftFlow_LineasInvalidasSeReportan(t *testing.T) {
	s := newTestServer(t)

	var begun dto.BeginDraftResponse
	require.Equal(t, fiber.StatusCreated, s.do(t, http.MethodPost, "/api/drafts", fiber.Map{
		"causing_entity_kind": "WAREHOUSE_ADJUSTMENT",
	}, &begun))

	var lines struct {
		Validated bool   `json:"validated"`
		State     string `json:"state"`
		Errors    []struct {
			Rule string `json:"rule"`
		} `json:"errors"`
	}
	status := s.do(t, http.MethodPost, "/api/drafts/"+begun.DraftID+"/lines", fiber.Map{
		"lines": []fiber.Map{{
			"product_id": "MP-1", "required_quantity": "20",
			"allocation": []fiber.Map{{"lot_id": "L-A", "quantity": "20"}},
		}},
	}, &lines)

	require.Equal(t, fiber.StatusOK, status)
	assert.False(t, lines.Validated)
	assert.Equal(t, "RECONCILE_LINES", lines.State)
	require.NotEmpty(t, lines.Errors)
	assert.Equal(t, "EXCEEDS_AVAILABLE", lines.Errors[0].Rule)

	var tokErr dto.ErrorResponse
	status = s.do(t, http.MethodPost, "/api/drafts/"+begun.DraftID+"/token/issue", nil, &tokErr)
	assert.Equal(t, fiber.StatusUnprocessableEntity, status)
	assert.Equal(t, "INVALID_TRANSITION", tokErr.Code)
}

func TestDraftFlow_OrdenDeCompraNoEncontrada(t *testing.T) {
	s := newTestServer(t)

	var begun dto.BeginDraftResponse
	status := s.do(t, http.MethodPost, "/api/drafts", fiber.Map{
		"causing_entity_kind": "PURCHASE_ORDER", "causing_entity_id": "OC-404",
	}, &begun)

	require.Equal(t, fiber.StatusCreated, status)
	assert.Equal(t, "IDENTIFY_SOURCE", begun.State)
	require.NotNil(t, begun.SourceError)
	assert.Equal(t, "NOT_FOUND", begun.SourceError.Code)

	s.orders.Put(entity.SourceOrder{Kind: entity.CausingPurchaseOrder, ID: "OC-405", Items: []entity.RequiredItem{
		{ProductID: "MP-1", RequiredQuantity: dec("12")},
	}})
	var draft dto.DraftResponse
	require.Equal(t, fiber.StatusOK, s.do(t, http.MethodPost, "/api/drafts/"+begun.DraftID+"/source",
		fiber.Map{"causing_entity_id": "OC-405"}, &draft))
	assert.Equal(t, "RECONCILE_LINES", draft.State)
	require.Len(t, draft.RequiredItems, 1)
	assert.Equal(t, "PENDING", draft.RequiredItems[0].Reconciliation)
}

func TestDraftFlow_AbortarYConfirmar(t *testing.T) {
	s := newTestServer(t)

	var begun dto.BeginDraftResponse
	require.Equal(t, fiber.StatusCreated, s.do(t, http.MethodPost, "/api/drafts", fiber.Map{
		"causing_entity_kind": "WAREHOUSE_ADJUSTMENT",
	}, &begun))

	var ok dto.OKResponse
	require.Equal(t, fiber.StatusOK, s.do(t, http.MethodPost, "/api/drafts/"+begun.DraftID+"/abort", nil, &ok))
	assert.True(t, ok.OK)

	var out dto.ErrorResponse
	status := s.do(t, http.MethodPost, "/api/drafts/"+begun.DraftID+"/commit", fiber.Map{"token": "ABCDEF"}, &out)
	assert.Equal(t, fiber.StatusUnprocessableEntity, status)
	assert.Equal(t, "INVALID_TRANSITION", out.Code)
}

func TestDraft_NoEncontrado(t *testing.T) {
	s := newTestServer(t)

	var out dto.ErrorResponse
	status := s.do(t, http.MethodGet, "/api/drafts/no-existe", nil, &out)

	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", out.Code)
}

func TestProducts_CrearYConsultar(t *testing.T) {
	s := newTestServer(t)

	var created dto.ProductResponse
	status := s.do(t, http.MethodPost, "/api/products", fiber.Map{
		"id": "PT-9", "name": "Jarabe 120ml", "class": "FINISHED",
	}, &created)
	require.Equal(t, fiber.StatusCreated, status)
	assert.Equal(t, "UND", created.UnitMeasure)

	var dup dto.ErrorResponse
	assert.Equal(t, fiber.StatusConflict, s.do(t, http.MethodPost, "/api/products", fiber.Map{
		"id": "PT-9", "name": "Otro", "class": "FINISHED",
	}, &dup))

	var got dto.ProductResponse
	require.Equal(t, fiber.StatusOK, s.do(t, http.MethodGet, "/api/products/PT-9", nil, &got))
	assert.Equal(t, "Jarabe 120ml", got.Name)

	assert.Equal(t, fiber.StatusNotFound, s.do(t, http.MethodGet, "/api/products/PT-0", nil, nil))
}
