package callback

import (
	"context"
	"sync"

	"gateway-emulator/internal/apperr"
	"gateway-emulator/internal/model"
	"github.com/google/uuid"
)

type DeliveryStore interface {
	Create(ctx context.Context, delivery *model.Delivery) error
	Update(ctx context.Context, delivery *model.Delivery) error
	// GetByID returns an apperr NotFound error for unknown or evicted ids.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Delivery, error)
	ListRecent(ctx context.Context, limit int) ([]model.Delivery, error)
}

// MemoryStore keeps the most recent deliveries, evicting the oldest past its capacity.
type MemoryStore struct {
	mu       sync.Mutex
	capacity int
	order    []uuid.UUID
	byID     map[uuid.UUID]model.Delivery
}

func NewMemoryStore(capacity int) *MemoryStore {
	if capacity <= 0 {
		capacity = 1
	}
	return &MemoryStore{
		capacity: capacity,
		byID:     make(map[uuid.UUID]model.Delivery),
	}
}

func (s *MemoryStore) Create(_ context.Context, delivery *model.Delivery) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[delivery.ID]; !ok {
		s.order = append(s.order, delivery.ID)
	}
	s.byID[delivery.ID] = *delivery

	for len(s.order) > s.capacity {
		delete(s.byID, s.order[0])
		s.order = s.order[1:]
	}
	return nil
}

func (s *MemoryStore) Update(_ context.Context, delivery *model.Delivery) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// evicted records are not resurrected
	if _, ok := s.byID[delivery.ID]; ok {
		s.byID[delivery.ID] = *delivery
	}
	return nil
}

func (s *MemoryStore) GetByID(_ context.Context, id uuid.UUID) (*model.Delivery, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.byID[id]
	if !ok {
		return nil, apperr.NotFound("delivery %s not found", id)
	}
	return &d, nil
}

// ListRecent returns up to limit deliveries, newest first.
func (s *MemoryStore) ListRecent(_ context.Context, limit int) ([]model.Delivery, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 || limit > len(s.order) {
		limit = len(s.order)
	}
	out := make([]model.Delivery, 0, limit)
	for i := len(s.order) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.byID[s.order[i]])
	}
	return out, nil
}
