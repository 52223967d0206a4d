package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/lotledger/internal/application/inventory"
	"github.com/jhoicas/lotledger/internal/domain"
	"github.com/jhoicas/lotledger/internal/domain/entity"
)

func TestDraftStore_VersionYExpiracion(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	s := NewDraftStore(time.Hour)
	s.SetClock(func() time.Time { return now })

	d := &entity.Draft{ID: "d1", State: entity.DraftReconcileLines}
	require.NoError(t, s.Create(ctx, d))
	assert.Equal(t, int64(1), d.Version)
	assert.ErrorIs(t, s.Create(ctx, &entity.Draft{ID: "d1"}), domain.ErrDuplicate)

	a, err := s.Get(ctx, "d1")
	require.NoError(t, err)
	b, err := s.Get(ctx, "d1")
	require.NoError(t, err)

	a.Notes = "primero"
	require.NoError(t, s.Save(ctx, a))
	assert.Equal(t, int64(2), a.Version)

	b.Notes = "segundo"
	assert.ErrorIs(t, s.Save(ctx, b), domain.ErrConflict)

	a.Lines = append(a.Lines, entity.DraftLine{ProductID: "P1"})
	got, err := s.Get(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, "primero", got.Notes)
	assert.Empty(t, got.Lines)

	now = now.Add(2 * time.Hour)
	_, err = s.Get(ctx, "d1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, s.Save(ctx, got), domain.ErrNotFound)
}

func TestStore_RunDescartaAnteError(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	s.Receive(entity.Lot{ID: "L1", ProductID: "P1", BatchKey: "l1"}, entity.ZoneGeneral, decimal.NewFromInt(3))

	boom := errors.New("boom")
	err := s.Run(ctx, func(r inventory.TxRepos) error {
		require.NoError(t, r.Lots.UpsertBalance(ctx, "L1", entity.ZoneGeneral, decimal.NewFromInt(1)))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	bal, err := s.Lots().GetBalanceForUpdate(ctx, "L1", entity.ZoneGeneral)
	require.NoError(t, err)
	assert.True(t, bal.Equal(decimal.NewFromInt(3)))

	err = s.Run(ctx, func(r inventory.TxRepos) error {
		return r.Lots.UpsertBalance(ctx, "L1", entity.ZoneGeneral, decimal.NewFromInt(-1))
	})
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	s.Fault = func(op string) error {
		if op == "lot.create" {
			return boom
		}
		return nil
	}
	err = s.Run(ctx, func(r inventory.TxRepos) error {
		return r.Lots.Create(ctx, &entity.Lot{ID: "L2", ProductID: "P1", BatchKey: "l2"})
	})
	assert.ErrorIs(t, err, boom)
	lot, err := s.Lots().GetByID(ctx, "L2")
	require.NoError(t, err)
	assert.Nil(t, lot)
}

func TestLotRepo_LoteDuplicadoPorClave(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	require.NoError(t, s.Lots().Create(ctx, &entity.Lot{ID: "L1", ProductID: "P1", BatchKey: "abc"}))

	err := s.Lots().Create(ctx, &entity.Lot{ID: "L2", ProductID: "P1", BatchKey: "abc"})
	assert.ErrorIs(t, err, domain.ErrDuplicate)
	require.NoError(t, s.Lots().Create(ctx, &entity.Lot{ID: "L3", ProductID: "P2", BatchKey: "abc"}))
}

func TestOutboxRepo_Pendientes(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	repo := s.Outbox()
	for _, id := range []string{"e1", "e2", "e3"} {
		require.NoError(t, repo.Create(ctx, &entity.OutboxEvent{ID: id, EventType: entity.EventTransactionCommitted, Status: entity.OutboxPending}))
	}
	require.NoError(t, repo.MarkPublished(ctx, "e1", time.Now()))
	require.NoError(t, repo.MarkFailed(ctx, "e2", "sin conexión"))
	require.NoError(t, repo.MarkFailed(ctx, "e2", "sin conexión"))

	pending, err := repo.ListPending(ctx, 10, 2)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "e3", pending[0].ID)

	assert.ErrorIs(t, repo.MarkPublished(ctx, "nope", time.Now()), domain.ErrNotFound)
}
