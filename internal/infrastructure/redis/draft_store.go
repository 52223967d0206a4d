// Package redis guarda los borradores en Redis con vigencia (TTL) y control de
// versión optimista vía WATCH/MULTI.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/jhoicas/lotledger/internal/application/inventory"
	"github.com/jhoicas/lotledger/internal/domain"
	"github.com/jhoicas/lotledger/internal/domain/entity"
)

var _ inventory.DraftStore = (*DraftStore)(nil)

const keyPrefix = "lotledger:draft:"

// DraftStore borradores serializados en JSON bajo lotledger:draft:<id>.
type DraftStore struct {
	client goredis.UniversalClient
	ttl    time.Duration
}

// NewDraftStore construye el almacén. Cada escritura renueva la vigencia.
func NewDraftStore(client goredis.UniversalClient, ttl time.Duration) *DraftStore {
	return &DraftStore{client: client, ttl: ttl}
}

func key(id string) string { return keyPrefix + id }

// Create guarda un borrador nuevo con versión 1; domain.ErrDuplicate si el ID ya existe.
func (s *DraftStore) Create(ctx context.Context, d *entity.Draft) error {
	d.Version = 1
	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("encode draft: %w", err)
	}
	ok, err := s.client.SetNX(ctx, key(d.ID), data, s.ttl).Result()
	if err != nil {
		return fmt.Errorf("create draft: %w", err)
	}
	if !ok {
		return fmt.Errorf("create draft: %w", domain.ErrDuplicate)
	}
	return nil
}

// Get borrador por ID; *domain.NotFoundError si no existe o expiró.
func (s *DraftStore) Get(ctx context.Context, id string) (*entity.Draft, error) {
	data, err := s.client.Get(ctx, key(id)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, domain.NewNotFound("borrador", id)
		}
		return nil, fmt.Errorf("get draft: %w", err)
	}
	var d entity.Draft
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("decode draft: %w", err)
	}
	return &d, nil
}

// Save reemplaza el borrador si la versión guardada coincide con d.Version.
// Una escritura concurrente (WATCH) o una versión distinta devuelven domain.ErrConflict.
func (s *DraftStore) Save(ctx context.Context, d *entity.Draft) error {
	k := key(d.ID)
	next := *d
	next.Version = d.Version + 1
	data, err := json.Marshal(&next)
	if err != nil {
		return fmt.Errorf("encode draft: %w", err)
	}

	err = s.client.Watch(ctx, func(tx *goredis.Tx) error {
		raw, err := tx.Get(ctx, k).Bytes()
		if err != nil {
			if errors.Is(err, goredis.Nil) {
				return domain.NewNotFound("borrador", d.ID)
			}
			return err
		}
		var cur struct {
			Version int64 `json:"version"`
		}
		if err := json.Unmarshal(raw, &cur); err != nil {
			return fmt.Errorf("decode draft: %w", err)
		}
		if cur.Version != d.Version {
			return fmt.Errorf("save draft %s: %w", d.ID, domain.ErrConflict)
		}
		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.Set(ctx, k, data, s.ttl)
			return nil
		})
		return err
	}, k)
	if err != nil {
		if errors.Is(err, goredis.TxFailedErr) {
			return fmt.Errorf("save draft %s: %w", d.ID, domain.ErrConflict)
		}
		if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrConflict) {
			return err
		}
		return fmt.Errorf("save draft: %w", err)
	}
	d.Version = next.Version
	return nil
}
