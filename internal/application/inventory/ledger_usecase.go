package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/lotledger/internal/domain"
	"github.com/jhoicas/lotledger/internal/domain/entity"
	"github.com/jhoicas/lotledger/internal/domain/inventory"
	"github.com/jhoicas/lotledger/internal/domain/repository"
)

// LedgerUseCase consultas sobre el libro: saldos, conciliación y transacciones.
type LedgerUseCase struct {
	lotRepo         repository.LotRepository
	movementRepo    repository.MovementRepository
	transactionRepo repository.TransactionRepository
	now             func() time.Time
}

// NewLedgerUseCase construye el caso de uso.
func NewLedgerUseCase(lotRepo repository.LotRepository, movementRepo repository.MovementRepository, transactionRepo repository.TransactionRepository) *LedgerUseCase {
	return &LedgerUseCase{lotRepo: lotRepo, movementRepo: movementRepo, transactionRepo: transactionRepo, now: time.Now}
}

// BalanceOf saldo del lote según el libro (todas las zonas). El lote debe
// pertenecer al producto; si no, *domain.NotFoundError.
func (uc *LedgerUseCase) BalanceOf(ctx context.Context, productID, lotID string) (decimal.Decimal, error) {
	lot, err := uc.lotRepo.GetByID(ctx, lotID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("get lot: %w", err)
	}
	if lot == nil || lot.ProductID != productID {
		return decimal.Zero, domain.NewNotFound("lote", lotID)
	}
	movs, err := uc.movementRepo.ListByLot(ctx, lotID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("list lot movements: %w", err)
	}
	return inventory.BalanceOf(movs, lotID), nil
}

// ReconcileReport resultado de comparar el libro con los saldos materializados.
type ReconcileReport struct {
	Movements  int
	Balances   int
	Mismatches []inventory.BalanceMismatch
	CheckedAt  time.Time
}

// Reconcile reproduce todo el libro y lo compara con los saldos materializados.
// Un saldo negativo durante la reproducción se devuelve como error.
func (uc *LedgerUseCase) Reconcile(ctx context.Context) (*ReconcileReport, error) {
	ledger := inventory.NewLedger()
	count := 0
	err := uc.movementRepo.ForEach(ctx, func(m entity.Movement) error {
		count++
		return ledger.Apply(m)
	})
	if err != nil {
		return nil, fmt.Errorf("replay ledger: %w", err)
	}
	materialized, err := uc.lotRepo.AllBalances(ctx)
	if err != nil {
		return nil, fmt.Errorf("materialized balances: %w", err)
	}
	replayed := ledger.Balances()
	return &ReconcileReport{
		Movements:  count,
		Balances:   len(replayed),
		Mismatches: inventory.CompareBalances(replayed, materialized),
		CheckedAt:  uc.now(),
	}, nil
}

// GetTransaction transacción con sus movimientos.
func (uc *LedgerUseCase) GetTransaction(ctx context.Context, id string) (*entity.Transaction, error) {
	tx, err := uc.transactionRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get transaction: %w", err)
	}
	if tx == nil {
		return nil, domain.NewNotFound("transacción", id)
	}
	movs, err := uc.movementRepo.ListByTransaction(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list transaction movements: %w", err)
	}
	tx.Movements = movs
	return tx, nil
}

// MarkPosted registra que contabilidad procesó la transacción. Idempotente.
func (uc *LedgerUseCase) MarkPosted(ctx context.Context, id string) (*entity.Transaction, error) {
	tx, err := uc.transactionRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get transaction: %w", err)
	}
	if tx == nil {
		return nil, domain.NewNotFound("transacción", id)
	}
	if tx.PostingStatus != entity.PostingPosted {
		if err := uc.transactionRepo.MarkPosted(ctx, id, uc.now()); err != nil {
			return nil, fmt.Errorf("mark posted: %w", err)
		}
	}
	return uc.GetTransaction(ctx, id)
}
