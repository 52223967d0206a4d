package outbox_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/lotledger/internal/domain/entity"
	"github.com/jhoicas/lotledger/internal/infrastructure/memory"
	"github.com/jhoicas/lotledger/internal/infrastructure/outbox"
)

type fakePublisher struct {
	fail map[string]bool
	sent []string
}

func (p *fakePublisher) Publish(_ context.Context, _ string, messageID string, _ []byte) error {
	if p.fail[messageID] {
		return errors.New("broker caído")
	}
	p.sent = append(p.sent, messageID)
	return nil
}

func seedEvents(t *testing.T, store *memory.Store, ids ...string) {
	t.Helper()
	for i, id := range ids {
		require.NoError(t, store.Outbox().Create(context.Background(), &entity.OutboxEvent{
			ID: id, EventType: entity.EventTransactionCommitted, AggregateID: "tx-" + id,
			Payload: []byte(`{}`), Status: entity.OutboxPending,
			CreatedAt: time.Date(2026, 1, 1, 0, i, 0, 0, time.UTC),
		}))
	}
}

func TestDispatchOnce_PublicaYMarca(t *testing.T) {
	store := memory.NewStore()
	seedEvents(t, store, "e1", "e2")
	pub := &fakePublisher{}
	d := outbox.NewDispatcher(store.Outbox(), pub, outbox.Config{BatchSize: 10}, nil)

	n, err := d.DispatchOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"e1", "e2"}, pub.sent)

	for _, ev := range store.Outbox().Events() {
		assert.Equal(t, entity.OutboxPublished, ev.Status)
		assert.NotNil(t, ev.PublishedAt)
	}

	n, err = d.DispatchOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestDispatchOnce_FalloSeReintentaHastaMaxAttempts(t *testing.T) {
	store := memory.NewStore()
	seedEvents(t, store, "e1", "e2")
	pub := &fakePublisher{fail: map[string]bool{"e1": true}}
	d := outbox.NewDispatcher(store.Outbox(), pub, outbox.Config{BatchSize: 10, MaxAttempts: 2}, nil)

	n, err := d.DispatchOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = d.DispatchOnce(context.Background())
	require.NoError(t, err)
	_, err = d.DispatchOnce(context.Background())
	require.NoError(t, err)

	for _, ev := range store.Outbox().Events() {
		if ev.ID == "e1" {
			assert.Equal(t, entity.OutboxFailed, ev.Status)
			assert.Equal(t, 2, ev.Attempts)
			assert.Equal(t, "broker caído", ev.LastError)
		}
	}
	assert.Equal(t, []string{"e2"}, pub.sent)
}
