package store

import (
	"sync"

	"github.com/mcclellann/pawnledger/pkg/models"
)

// MemoryStore keeps the book in process memory. Loans are deep-copied on the
// way in and out, so callers see the same isolation a database gives them.
type MemoryStore struct {
	mu    sync.Mutex
	loans []*models.Loan
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) LoadLoans() ([]*models.Loan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneAll(m.loans), nil
}

func (m *MemoryStore) SaveLoans(loans []*models.Loan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loans = cloneAll(loans)
	return nil
}

func (m *MemoryStore) Close() error { return nil }

func cloneAll(loans []*models.Loan) []*models.Loan {
	out := make([]*models.Loan, len(loans))
	for i, loan := range loans {
		out[i] = loan.Clone()
	}
	return out
}
