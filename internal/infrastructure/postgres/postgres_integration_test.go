//go:build integration

package postgres_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/jhoicas/lotledger/internal/application/inventory"
	"github.com/jhoicas/lotledger/internal/domain"
	"github.com/jhoicas/lotledger/internal/domain/entity"
	"github.com/jhoicas/lotledger/internal/infrastructure/memory"
	"github.com/jhoicas/lotledger/internal/infrastructure/postgres"
	"github.com/jhoicas/lotledger/internal/infrastructure/storage"
	"github.com/jhoicas/lotledger/pkg/config"
	"github.com/jhoicas/lotledger/pkg/logger"
)

type env struct {
	coord    *inventory.Coordinator
	ledger   *inventory.LedgerUseCase
	products *postgres.ProductRepo
	lots     *postgres.LotRepo
	outbox   *postgres.OutboxRepo
}

// setupDB levanta PostgreSQL en un contenedor desechable, aplica las migraciones
// y arma el coordinador sobre los repositorios reales.
func setupDB(t *testing.T) *env {
	t.Helper()
	if testing.Short() {
		t.Skip("integración con PostgreSQL omitida en modo -short")
	}
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("lotledger_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	require.NoError(t, postgres.Migrate(dsn, logger.Nop()))

	pool, err := postgres.NewPool(ctx, config.DBConfig{DatabaseURL: dsn, MaxConns: 8})
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	products := postgres.NewProductRepository(pool)
	lots := postgres.NewLotRepository(pool)
	movements := postgres.NewMovementRepository(pool)
	transactions := postgres.NewTransactionRepository(pool)

	lotStore := inventory.NewLotStoreUseCase(products, lots)
	alloc := inventory.NewAllocationUseCase(lotStore, lots, inventory.AllocationConfig{MaxLots: 3})
	coord := inventory.NewCoordinator(inventory.CoordinatorDeps{
		Drafts:       memory.NewDraftStore(time.Hour),
		TxRunner:     postgres.NewTxRunner(pool),
		Lots:         lots,
		Movements:    movements,
		Transactions: transactions,
		Orders:       memory.NewOrderBook(),
		Evidence:     storage.StubVerifier{},
		LotStore:     lotStore,
		Allocation:   alloc,
	})

	now := time.Now()
	require.NoError(t, products.Create(ctx, &entity.Product{ID: "MP-1", Name: "Azúcar", Class: entity.ProductClassRawMaterial,
		UnitMeasure: "KG", CreatedAt: now, UpdatedAt: now}))
	exp := time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)
	_, err = coord.LoadOpeningStock(ctx, "inicial", entity.ZoneGeneral, []inventory.OpeningLot{
		{ProductID: "MP-1", BatchNumber: "A-1", ExpirationDate: &exp, Quantity: decimal.NewFromInt(5)},
	})
	require.NoError(t, err)

	return &env{
		coord:    coord,
		ledger:   inventory.NewLedgerUseCase(lots, movements, transactions),
		products: products,
		lots:     lots,
		outbox:   postgres.NewOutboxRepository(pool),
	}
}

func (e *env) lotA1(t *testing.T) *entity.Lot {
	t.Helper()
	lot, err := e.lots.FindByBatch(context.Background(), "MP-1", "a-1")
	require.NoError(t, err)
	require.NotNil(t, lot)
	return lot
}

func (e *env) readyDraft(t *testing.T, lotID string, q int64) *entity.Draft {
	t.Helper()
	ctx := context.Background()
	d, err := e.coord.BeginDraft(ctx, inventory.BeginDraftInput{CausingKind: entity.CausingWarehouseAdjustment})
	require.NoError(t, err)
	qty := decimal.NewFromInt(q)
	res, err := e.coord.AddLines(ctx, d.ID, []inventory.LineInput{{
		ProductID: "MP-1", RequiredQuantity: &qty,
		Allocation: []inventory.AllocationInput{{LotID: lotID, Quantity: &qty}},
	}})
	require.NoError(t, err)
	require.True(t, res.Validated, "%v", res.Violations)
	d, err = e.coord.IssueToken(ctx, d.ID)
	require.NoError(t, err)
	return d
}

func TestIntegration_ConfirmacionesConcurrentes(t *testing.T) {
	e := setupDB(t)
	ctx := context.Background()
	lot := e.lotA1(t)

	drafts := []*entity.Draft{e.readyDraft(t, lot.ID, 5), e.readyDraft(t, lot.ID, 5)}
	errs := make([]error, len(drafts))
	var wg sync.WaitGroup
	for i, d := range drafts {
		wg.Add(1)
		go func(i int, d *entity.Draft) {
			defer wg.Done()
			_, errs[i] = e.coord.Commit(ctx, d.ID, d.Token)
		}(i, d)
	}
	wg.Wait()

	ok, conflicts := 0, 0
	for _, err := range errs {
		var conflict *domain.CommitConflictError
		switch {
		case err == nil:
			ok++
		case errors.As(err, &conflict):
			conflicts++
		default:
			t.Fatalf("error inesperado: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, conflicts)

	bal, err := e.ledger.BalanceOf(ctx, "MP-1", lot.ID)
	require.NoError(t, err)
	assert.True(t, bal.IsZero())

	report, err := e.ledger.Reconcile(ctx)
	require.NoError(t, err)
	assert.Empty(t, report.Mismatches)
	assert.Equal(t, 2, report.Movements)
}

func TestIntegration_MismoBorradorDosVeces(t *testing.T) {
	e := setupDB(t)
	ctx := context.Background()
	lot := e.lotA1(t)
	d := e.readyDraft(t, lot.ID, 2)

	ids := make([]string, 2)
	var wg sync.WaitGroup
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			txn, err := e.coord.Commit(ctx, d.ID, d.Token)
			if err == nil {
				ids[i] = txn.ID
				return
			}
			// si el otro ya guardó el borrador confirmado, el token ya no vale
			var invalid *domain.InvalidTokenError
			if assert.ErrorAs(t, err, &invalid) {
				ids[i] = invalid.TransactionID
			}
		}(i)
	}
	wg.Wait()
	require.NotEmpty(t, ids[0])
	assert.Equal(t, ids[0], ids[1])

	bal, err := e.ledger.BalanceOf(ctx, "MP-1", lot.ID)
	require.NoError(t, err)
	assert.True(t, bal.Equal(decimal.NewFromInt(3)))
}

func TestIntegration_CargaInicialYEventos(t *testing.T) {
	e := setupDB(t)
	ctx := context.Background()

	exp := time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)
	again, err := e.coord.LoadOpeningStock(ctx, "inicial", entity.ZoneGeneral, []inventory.OpeningLot{
		{ProductID: "MP-1", BatchNumber: "A-1", ExpirationDate: &exp, Quantity: decimal.NewFromInt(5)},
	})
	require.NoError(t, err)
	assert.Len(t, again.Movements, 1)

	lot := e.lotA1(t)
	require.NotNil(t, lot.ExpirationDate)
	assert.Equal(t, "2025-01-31", lot.ExpirationDate.Format("2006-01-02"))

	pending, err := e.outbox.ListPending(ctx, 10, 5)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, entity.EventTransactionCommitted, pending[0].EventType)

	require.NoError(t, e.outbox.MarkPublished(ctx, pending[0].ID, time.Now()))
	pending, err = e.outbox.ListPending(ctx, 10, 5)
	require.NoError(t, err)
	assert.Empty(t, pending)

	err = e.products.Create(ctx, &entity.Product{ID: "MP-1", Name: "x", Class: entity.ProductClassRawMaterial, UnitMeasure: "KG"})
	assert.ErrorIs(t, err, domain.ErrDuplicate)
}
