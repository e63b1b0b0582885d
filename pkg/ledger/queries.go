package ledger

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mcclellann/pawnledger/pkg/interest"
	"github.com/mcclellann/pawnledger/pkg/models"
	"github.com/mcclellann/pawnledger/pkg/textutil"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// ListFilter narrows ListLoans. Zero values match everything.
type ListFilter struct {
	Status       models.EffectiveStatus // effective status, so "overdue" works
	Search       string                 // customer name, device model, loan id or phone
	CustomerName string                 // exact name, ignoring case and diacritics
}

func (f ListFilter) matches(v models.LoanView) bool {
	if f.Status != "" && v.EffectiveStatus != f.Status {
		return false
	}
	if f.CustomerName != "" && textutil.Fold(v.Customer.Name) != textutil.Fold(f.CustomerName) {
		return false
	}
	if term := textutil.Fold(strings.TrimSpace(f.Search)); term != "" {
		return strings.Contains(textutil.Fold(v.Customer.Name), term) ||
			strings.Contains(textutil.Fold(v.Device.Model), term) ||
			strings.Contains(v.ID.String(), term) ||
			strings.Contains(v.Customer.Phone, term)
	}
	return true
}

// GetLoan retrieves a single loan with its figures as of today.
func (l *Ledger) GetLoan(id uuid.UUID) (*models.LoanView, error) {
	loans, err := l.storage.LoadLoans()
	if err != nil {
		return nil, fmt.Errorf("failed to load loans: %w", err)
	}
	idx := indexOf(loans, id)
	if idx < 0 {
		return nil, ErrLoanNotFound
	}
	v := l.view(loans[idx], l.clock.Now())
	return &v, nil
}

// ListLoans returns the loans matching f, newest first.
func (l *Ledger) ListLoans(f ListFilter) ([]models.LoanView, error) {
	loans, err := l.storage.LoadLoans()
	if err != nil {
		return nil, fmt.Errorf("failed to load loans: %w", err)
	}

	now := l.clock.Now()
	views := make([]models.LoanView, 0, len(loans))
	for _, loan := range loans {
		if v := l.view(loan, now); f.matches(v) {
			views = append(views, v)
		}
	}
	return views, nil
}

// Overdue lists the active loans past their due date.
func (l *Ledger) Overdue() ([]models.LoanView, error) {
	return l.ListLoans(ListFilter{Status: models.EffectiveOverdue})
}

// Customers returns each distinct customer once, most recent loan first. A
// customer is the same person when name (ignoring case) and phone match.
func (l *Ledger) Customers(search string) ([]models.Customer, error) {
	loans, err := l.storage.LoadLoans()
	if err != nil {
		return nil, fmt.Errorf("failed to load loans: %w", err)
	}

	term := strings.TrimSpace(search)
	seen := make(map[string]bool)
	customers := []models.Customer{}
	for _, loan := range loans {
		key := customerKey(loan.Customer.Name, loan.Customer.Phone)
		if seen[key] {
			continue
		}
		seen[key] = true
		if term != "" && !textutil.Contains(loan.Customer.Name, term) && !strings.Contains(loan.Customer.Phone, term) {
			continue
		}
		customers = append(customers, loan.Customer)
	}
	return customers, nil
}

// CustomerHistory lists every loan taken out under name.
func (l *Ledger) CustomerHistory(name string) ([]models.LoanView, error) {
	return l.ListLoans(ListFilter{CustomerName: name})
}

// CustomerItems lists the distinct devices name has pawned, with the
// principal of the most recent loan on each.
func (l *Ledger) CustomerItems(name string) ([]models.PawnedItem, error) {
	loans, err := l.storage.LoadLoans()
	if err != nil {
		return nil, fmt.Errorf("failed to load loans: %w", err)
	}

	want := textutil.Fold(name)
	seen := make(map[string]bool)
	items := []models.PawnedItem{}
	for _, loan := range loans {
		if textutil.Fold(loan.Customer.Name) != want {
			continue
		}
		key := loan.Device.Brand + "_" + loan.Device.Model
		if seen[key] {
			continue
		}
		seen[key] = true
		items = append(items, models.PawnedItem{
			Brand:     loan.Device.Brand,
			Model:     loan.Device.Model,
			Principal: loan.Principal,
		})
	}
	return items, nil
}

// Stats summarises the book as of today.
func (l *Ledger) Stats() (*models.Stats, error) {
	loans, err := l.storage.LoadLoans()
	if err != nil {
		return nil, fmt.Errorf("failed to load loans: %w", err)
	}

	now := l.clock.Now()
	stats := &models.Stats{
		TotalLoaned:      decimal.Zero,
		TotalReceivable:  decimal.Zero,
		RevenueThisMonth: decimal.Zero,
	}
	for _, loan := range loans {
		for _, p := range loan.Payments {
			if p.Kind == models.PaymentKindInterest && sameMonth(p.Date.In(now.Location()), now) {
				stats.RevenueThisMonth = stats.RevenueThisMonth.Add(p.Amount)
			}
		}
		if loan.Status != models.StatusActive {
			continue
		}

		v := l.view(loan, now)
		stats.ActiveCount++
		if v.EffectiveStatus == models.EffectiveOverdue {
			stats.OverdueCount++
		}
		stats.TotalLoaned = stats.TotalLoaned.Add(loan.Principal)
		stats.TotalReceivable = stats.TotalReceivable.Add(v.PayoffAmount)
	}
	return stats, nil
}

// view computes the derived figures for loan. A record whose dates or basis
// make interest incomputable is shown with zero interest rather than hiding
// the rest of the book.
func (l *Ledger) view(loan *models.Loan, now time.Time) models.LoanView {
	v := models.LoanView{
		Loan:            loan,
		EffectiveStatus: interest.EffectiveStatus(loan, now),
		DaysOverdue:     interest.DaysOverdue(loan, now),
		OwedInterest:    decimal.Zero,
		PayoffAmount:    loan.Principal,
	}
	owed, err := interest.OwedInterest(loan, now)
	if err != nil {
		log.Warn().Err(err).Str("loan_id", loan.ID.String()).Msg("Cannot compute interest for loan")
		return v
	}
	v.OwedInterest = owed
	v.PayoffAmount = loan.Principal.Add(owed)
	return v
}

func customerKey(name, phone string) string {
	return strings.ToLower(strings.TrimSpace(name)) + "_" + strings.TrimSpace(phone)
}

func sameMonth(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month()
}
