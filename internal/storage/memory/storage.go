package memory

import (
	"context"
	"sync"

	"github.com/mcoot/partycoord/internal/model"
	"github.com/mcoot/partycoord/internal/storage"
)

// Storage is an in-memory implementation of the storage interface
type Storage struct {
	mu      sync.RWMutex
	parties map[model.PartyCode]model.PartySummary
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		parties: make(map[model.PartyCode]model.PartySummary),
	}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

func (s *Storage) SaveParty(ctx context.Context, summary *model.PartySummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.parties[summary.Code] = *summary
	return nil
}

func (s *Storage) GetParty(ctx context.Context, code model.PartyCode) (*model.PartySummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	summary, ok := s.parties[code]
	if !ok {
		return nil, model.ErrPartyNotFound
	}
	return &summary, nil
}

func (s *Storage) DeleteParty(ctx context.Context, code model.PartyCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.parties, code)
	return nil
}

func (s *Storage) ListParties(ctx context.Context) ([]*model.PartySummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*model.PartySummary, 0, len(s.parties))
	for _, summary := range s.parties {
		result = append(result, &summary)
	}
	storage.SortByCreation(result)
	return result, nil
}

// Len returns the number of stored parties
func (s *Storage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.parties)
}
