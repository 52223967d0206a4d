package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/jhoicas/lotledger/internal/application/inventory"
	"github.com/jhoicas/lotledger/internal/domain"
	"github.com/jhoicas/lotledger/internal/domain/entity"
)

var _ inventory.DraftStore = (*DraftStore)(nil)

type storedDraft struct {
	data      []byte
	version   int64
	expiresAt time.Time
}

// DraftStore borradores en memoria con expiración. Guarda copias serializadas para
// que quien llama nunca comparta punteros con el almacén.
type DraftStore struct {
	mu     sync.Mutex
	ttl    time.Duration
	now    func() time.Time
	drafts map[string]storedDraft
}

// NewDraftStore almacén con la vigencia indicada.
func NewDraftStore(ttl time.Duration) *DraftStore {
	return &DraftStore{ttl: ttl, now: time.Now, drafts: make(map[string]storedDraft)}
}

// SetClock reemplaza el reloj (tests de expiración).
func (s *DraftStore) SetClock(now func() time.Time) { s.now = now }

func (s *DraftStore) Create(_ context.Context, d *entity.Draft) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.drafts[d.ID]; ok && s.now().Before(cur.expiresAt) {
		return fmt.Errorf("create draft: %w", domain.ErrDuplicate)
	}
	d.Version = 1
	return s.put(d)
}

func (s *DraftStore) Get(_ context.Context, id string) (*entity.Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.drafts[id]
	if !ok || !s.now().Before(cur.expiresAt) {
		delete(s.drafts, id)
		return nil, domain.NewNotFound("borrador", id)
	}
	var d entity.Draft
	if err := json.Unmarshal(cur.data, &d); err != nil {
		return nil, fmt.Errorf("decode draft: %w", err)
	}
	return &d, nil
}

func (s *DraftStore) Save(_ context.Context, d *entity.Draft) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.drafts[d.ID]
	if !ok || !s.now().Before(cur.expiresAt) {
		return domain.NewNotFound("borrador", d.ID)
	}
	if cur.version != d.Version {
		return fmt.Errorf("save draft %s: %w", d.ID, domain.ErrConflict)
	}
	d.Version++
	return s.put(d)
}

func (s *DraftStore) put(d *entity.Draft) error {
	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("encode draft: %w", err)
	}
	s.drafts[d.ID] = storedDraft{data: data, version: d.Version, expiresAt: s.now().Add(s.ttl)}
	return nil
}
