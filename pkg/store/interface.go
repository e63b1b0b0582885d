package store

import (
	"github.com/mcclellann/pawnledger/pkg/models"
)

// Storage persists the whole loan book. Loans and their payments come back in
// the order they were saved; Save replaces everything stored before.
type Storage interface {
	LoadLoans() ([]*models.Loan, error)
	SaveLoans(loans []*models.Loan) error

	Close() error
}
