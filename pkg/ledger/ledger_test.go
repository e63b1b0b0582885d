package ledger

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mcclellann/pawnledger/pkg/config"
	"github.com/mcclellann/pawnledger/pkg/interest"
	"github.com/mcclellann/pawnledger/pkg/models"
	"github.com/mcclellann/pawnledger/pkg/store"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ict = time.FixedZone("ICT", 7*60*60)

// MockStore is an in-memory Storage that can be told to fail.
type MockStore struct {
	*store.MemoryStore
	saveErr error
	saves   int
}

func NewMockStore() *MockStore {
	return &MockStore{MemoryStore: store.NewMemoryStore()}
}

func (m *MockStore) SaveLoans(loans []*models.Loan) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	return m.MemoryStore.SaveLoans(loans)
}

type fixedClock struct{ now time.Time }

func (c *fixedClock) Now() time.Time { return c.now }

func (c *fixedClock) advance(days int) { c.now = c.now.AddDate(0, 0, days) }

func newTestLedger(t *testing.T) (*Ledger, *MockStore, *fixedClock) {
	t.Helper()
	s := NewMockStore()
	clock := &fixedClock{now: time.Date(2024, 3, 1, 10, 0, 0, 0, ict)}
	return NewLedger(s, WithClock(clock)), s, clock
}

func loanInput(name, phone string, principal int64) CreateLoanInput {
	return CreateLoanInput{
		Customer:  CustomerInput{Name: name, Phone: phone},
		Device:    DeviceInput{Brand: "Apple", Model: "iPhone 13 Pro", Condition: "99%"},
		Principal: decimal.NewFromInt(principal),
	}
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestCreateLoan_Defaults(t *testing.T) {
	l, s, _ := newTestLedger(t)

	loan, err := l.CreateLoan(loanInput("Nguyễn Văn An", "0901234567", 10_000_000))
	require.NoError(t, err)

	assert.Equal(t, models.StatusActive, loan.Status)
	assert.True(t, decimal.NewFromInt(3000).Equal(loan.InterestRate))
	assert.Equal(t, models.RateBasisPerDay, loan.InterestRateBasis)
	assert.Equal(t, day(2024, 3, 1), loan.OriginDate)
	assert.Equal(t, day(2024, 3, 31), loan.DueDate)
	assert.Nil(t, loan.LastInterestSettledDate)
	assert.True(t, loan.ResidualCredit.IsZero())
	assert.Empty(t, loan.Payments)

	assert.Equal(t, "unknown", loan.Customer.IDCard)
	assert.Equal(t, "unknown", loan.Device.IMEI)
	assert.True(t, decimal.NewFromInt(15_000_000).Equal(loan.Device.EstimatedValue), "got %s", loan.Device.EstimatedValue)

	stored, err := s.LoadLoans()
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, loan.ID, stored[0].ID)
}

func TestCreateLoan_ExplicitTermsAndConfiguredDefaults(t *testing.T) {
	s := NewMockStore()
	clock := &fixedClock{now: time.Date(2024, 3, 1, 10, 0, 0, 0, ict)}
	l := NewLedger(s, WithClock(clock), WithDefaults(config.LoanDefaults{
		InterestRate: decimal.NewFromInt(5),
		RateBasis:    models.RateBasisPerMonth,
		DurationDays: 15,
	}))

	loan, err := l.CreateLoan(loanInput("Lê Thị Hoa", "0912", 2_000_000))
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(5).Equal(loan.InterestRate))
	assert.Equal(t, models.RateBasisPerMonth, loan.InterestRateBasis)
	assert.Equal(t, day(2024, 3, 16), loan.DueDate)

	rate := decimal.NewFromInt(2500)
	origin := time.Date(2024, 2, 10, 18, 0, 0, 0, ict)
	duration := 0
	value := decimal.NewFromInt(9_000_000)
	in := loanInput("Lê Thị Hoa", "0912", 2_000_000)
	in.InterestRate = &rate
	in.RateBasis = models.RateBasisPerDay
	in.OriginDate = &origin
	in.DurationDays = &duration
	in.EstimatedValue = &value
	in.Customer.IDCard = " 079123456789 "

	loan, err = l.CreateLoan(in)
	require.NoError(t, err)
	assert.True(t, rate.Equal(loan.InterestRate))
	assert.Equal(t, models.RateBasisPerDay, loan.InterestRateBasis)
	assert.Equal(t, day(2024, 2, 10), loan.OriginDate)
	assert.Equal(t, day(2024, 2, 10), loan.DueDate)
	assert.True(t, value.Equal(loan.Device.EstimatedValue))
	assert.Equal(t, "079123456789", loan.Customer.IDCard)
}

func TestCreateLoan_NewestFirstAndReturningCustomer(t *testing.T) {
	l, s, _ := newTestLedger(t)

	first, err := l.CreateLoan(loanInput("Trần Bình", "0987", 1_000_000))
	require.NoError(t, err)
	second, err := l.CreateLoan(loanInput("trần bình", "0987", 2_000_000))
	require.NoError(t, err)
	other, err := l.CreateLoan(loanInput("Trần Bình", "0111", 3_000_000))
	require.NoError(t, err)

	assert.Equal(t, first.Customer.ID, second.Customer.ID)
	assert.NotEqual(t, first.Customer.ID, other.Customer.ID)

	stored, err := s.LoadLoans()
	require.NoError(t, err)
	require.Len(t, stored, 3)
	assert.Equal(t, []uuid.UUID{other.ID, second.ID, first.ID},
		[]uuid.UUID{stored[0].ID, stored[1].ID, stored[2].ID})
}

func TestCreateLoan_Validation(t *testing.T) {
	negative := decimal.NewFromInt(-1)
	badDuration := -3

	tests := []struct {
		name   string
		modify func(*CreateLoanInput)
	}{
		{"missing customer name", func(in *CreateLoanInput) { in.Customer.Name = "  " }},
		{"zero principal", func(in *CreateLoanInput) { in.Principal = decimal.Zero }},
		{"negative principal", func(in *CreateLoanInput) { in.Principal = decimal.NewFromInt(-5) }},
		{"negative rate", func(in *CreateLoanInput) { in.InterestRate = &negative }},
		{"unknown basis", func(in *CreateLoanInput) { in.RateBasis = "week" }},
		{"negative duration", func(in *CreateLoanInput) { in.DurationDays = &badDuration }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, s, _ := newTestLedger(t)
			in := loanInput("An", "0901", 1_000_000)
			tt.modify(&in)

			loan, err := l.CreateLoan(in)
			assert.ErrorIs(t, err, ErrInvalidLoan)
			assert.Nil(t, loan)
			assert.Zero(t, s.saves)
		})
	}
}

func TestPayInterest(t *testing.T) {
	l, s, clock := newTestLedger(t)
	loan, err := l.CreateLoan(loanInput("An", "0901", 10_000_000))
	require.NoError(t, err)

	view, err := l.GetLoan(loan.ID)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(30_000).Equal(view.OwedInterest), "got %s", view.OwedInterest)

	res, err := l.PayInterest(loan.ID, decimal.NewFromInt(100_000))
	require.NoError(t, err)
	assert.Equal(t, 3, res.ExtensionDays)
	assert.True(t, decimal.NewFromInt(10_000).Equal(res.ResidualCredit), "got %s", res.ResidualCredit)
	assert.Equal(t, day(2024, 4, 3), res.Loan.DueDate)
	require.NotNil(t, res.Loan.LastInterestSettledDate)
	assert.Equal(t, day(2024, 3, 3), *res.Loan.LastInterestSettledDate)

	stored, err := s.LoadLoans()
	require.NoError(t, err)
	require.Len(t, stored[0].Payments, 1)
	assert.Equal(t, models.PaymentKindInterest, stored[0].Payments[0].Kind)
	assert.Equal(t, day(2024, 4, 3), stored[0].DueDate)

	// Paid through the 3rd with 10,000 credit: on the 5th two days are owed.
	clock.advance(4)
	view, err = l.GetLoan(loan.ID)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(50_000).Equal(view.OwedInterest), "got %s", view.OwedInterest)
}

func TestPayInterest_Rejections(t *testing.T) {
	l, s, _ := newTestLedger(t)
	loan, err := l.CreateLoan(loanInput("An", "0901", 10_000_000))
	require.NoError(t, err)
	saves := s.saves

	_, err = l.PayInterest(loan.ID, decimal.Zero)
	assert.ErrorIs(t, err, interest.ErrInvalidAmount)

	_, err = l.PayInterest(uuid.New(), decimal.NewFromInt(1000))
	assert.ErrorIs(t, err, ErrLoanNotFound)

	assert.Equal(t, saves, s.saves)

	_, err = l.Redeem(loan.ID)
	require.NoError(t, err)
	_, err = l.PayInterest(loan.ID, decimal.NewFromInt(1000))
	assert.ErrorIs(t, err, ErrLoanNotActive)
}

func TestPayInterest_ZeroRate(t *testing.T) {
	l, _, _ := newTestLedger(t)
	zero := decimal.Zero
	in := loanInput("An", "0901", 10_000_000)
	in.InterestRate = &zero
	loan, err := l.CreateLoan(in)
	require.NoError(t, err)

	_, err = l.PayInterest(loan.ID, decimal.NewFromInt(1000))
	assert.ErrorIs(t, err, interest.ErrZeroRateUnpayable)
}

func TestAdjustPrincipal(t *testing.T) {
	l, _, _ := newTestLedger(t)
	loan, err := l.CreateLoan(loanInput("An", "0901", 10_000_000))
	require.NoError(t, err)

	updated, err := l.AdjustPrincipal(loan.ID, decimal.NewFromInt(2_000_000), models.DirectionIncrease)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(12_000_000).Equal(updated.Principal))

	updated, err = l.AdjustPrincipal(loan.ID, decimal.NewFromInt(20_000_000), models.DirectionDecrease)
	require.NoError(t, err)
	assert.True(t, updated.Principal.IsZero())
	assert.Len(t, updated.Payments, 2)

	_, err = l.Liquidate(loan.ID)
	require.NoError(t, err)
	_, err = l.AdjustPrincipal(loan.ID, decimal.NewFromInt(1), models.DirectionIncrease)
	assert.ErrorIs(t, err, ErrLoanNotActive)
}

func TestUpdateLoan(t *testing.T) {
	l, _, _ := newTestLedger(t)
	loan, err := l.CreateLoan(loanInput("An", "0901", 10_000_000))
	require.NoError(t, err)

	notes := "screen cracked"
	duration := 45
	principal := decimal.NewFromInt(8_000_000)
	updated, err := l.UpdateLoan(loan.ID, UpdateLoanInput{
		Notes:        &notes,
		Principal:    &principal,
		DurationDays: &duration,
		Device:       &DeviceInput{Brand: "Samsung", Model: "S23", IMEI: ""},
	})
	require.NoError(t, err)
	assert.Equal(t, notes, updated.Notes)
	assert.True(t, principal.Equal(updated.Principal))
	assert.Equal(t, day(2024, 4, 15), updated.DueDate)
	assert.Equal(t, "S23", updated.Device.Model)
	assert.Equal(t, "unknown", updated.Device.IMEI)
	assert.Equal(t, "An", updated.Customer.Name)

	_, err = l.PayInterest(loan.ID, decimal.NewFromInt(24_000))
	require.NoError(t, err)

	_, err = l.UpdateLoan(loan.ID, UpdateLoanInput{Principal: &principal})
	assert.ErrorIs(t, err, ErrTermsLocked)

	notes = "customer called"
	updated, err = l.UpdateLoan(loan.ID, UpdateLoanInput{Notes: &notes})
	require.NoError(t, err)
	assert.Equal(t, notes, updated.Notes)

	_, err = l.UpdateLoan(loan.ID, UpdateLoanInput{Customer: &CustomerInput{Name: ""}})
	assert.ErrorIs(t, err, ErrInvalidLoan)
}

func TestRedeem(t *testing.T) {
	l, s, clock := newTestLedger(t)
	loan, err := l.CreateLoan(loanInput("An", "0901", 10_000_000))
	require.NoError(t, err)

	clock.advance(9) // ten days owed, origin included
	redeemed, err := l.Redeem(loan.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRedeemed, redeemed.Status)
	assert.True(t, redeemed.Principal.IsZero())
	require.Len(t, redeemed.Payments, 1)
	assert.Equal(t, models.PaymentKindRedemption, redeemed.Payments[0].Kind)
	assert.True(t, decimal.NewFromInt(10_300_000).Equal(redeemed.Payments[0].Amount), "got %s", redeemed.Payments[0].Amount)

	saves := s.saves
	_, err = l.Redeem(loan.ID)
	assert.ErrorIs(t, err, interest.ErrInvalidTransition)
	_, err = l.Liquidate(loan.ID)
	assert.ErrorIs(t, err, interest.ErrInvalidTransition)
	assert.Equal(t, saves, s.saves)

	view, err := l.GetLoan(loan.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EffectiveRedeemed, view.EffectiveStatus)
	assert.True(t, view.PayoffAmount.IsZero())
}

func TestLiquidate_ViewReportsPayoff(t *testing.T) {
	l, _, clock := newTestLedger(t)
	loan, err := l.CreateLoan(loanInput("An", "0901", 10_000_000))
	require.NoError(t, err)

	clock.advance(9)
	_, err = l.Liquidate(loan.ID)
	require.NoError(t, err)

	view, err := l.GetLoan(loan.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EffectiveLiquidated, view.EffectiveStatus)
	assert.True(t, decimal.NewFromInt(10_000_000).Equal(view.Principal))
	assert.True(t, decimal.NewFromInt(300_000).Equal(view.OwedInterest), "got %s", view.OwedInterest)
	assert.True(t, view.Principal.Add(view.OwedInterest).Equal(view.PayoffAmount), "got %s", view.PayoffAmount)

	stats, err := l.Stats()
	require.NoError(t, err)
	assert.Zero(t, stats.ActiveCount)
	assert.True(t, stats.TotalReceivable.IsZero())
}

func TestDeleteLoan(t *testing.T) {
	l, s, _ := newTestLedger(t)
	keep, err := l.CreateLoan(loanInput("An", "0901", 1_000_000))
	require.NoError(t, err)
	drop, err := l.CreateLoan(loanInput("Bình", "0902", 1_000_000))
	require.NoError(t, err)
	_, err = l.Liquidate(drop.ID)
	require.NoError(t, err)

	require.NoError(t, l.DeleteLoan(drop.ID))
	assert.ErrorIs(t, l.DeleteLoan(drop.ID), ErrLoanNotFound)

	stored, err := s.LoadLoans()
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, keep.ID, stored[0].ID)
}

func TestFailedSaveLeavesBookUnchanged(t *testing.T) {
	l, s, _ := newTestLedger(t)
	loan, err := l.CreateLoan(loanInput("An", "0901", 10_000_000))
	require.NoError(t, err)

	s.saveErr = errors.New("disk full")
	_, err = l.PayInterest(loan.ID, decimal.NewFromInt(100_000))
	assert.ErrorContains(t, err, "disk full")
	_, err = l.CreateLoan(loanInput("Bình", "0902", 1_000_000))
	assert.Error(t, err)
	assert.Error(t, l.DeleteLoan(loan.ID))

	stored, err := s.LoadLoans()
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Empty(t, stored[0].Payments)
	assert.Equal(t, day(2024, 3, 31), stored[0].DueDate)
}

func TestListLoans(t *testing.T) {
	l, _, clock := newTestLedger(t)

	an, err := l.CreateLoan(loanInput("Nguyễn Văn An", "0901234567", 10_000_000))
	require.NoError(t, err)
	short := 2
	in := loanInput("Đỗ Thị Bình", "0987654321", 5_000_000)
	in.Device.Model = "Galaxy S23"
	in.DurationDays = &short
	binh, err := l.CreateLoan(in)
	require.NoError(t, err)
	gone, err := l.CreateLoan(loanInput("Phạm Cường", "0911", 1_000_000))
	require.NoError(t, err)
	_, err = l.Redeem(gone.ID)
	require.NoError(t, err)

	clock.advance(5)

	ids := func(views []models.LoanView) []uuid.UUID {
		out := make([]uuid.UUID, len(views))
		for i, v := range views {
			out[i] = v.ID
		}
		return out
	}

	tests := []struct {
		name   string
		filter ListFilter
		want   []uuid.UUID
	}{
		{"all", ListFilter{}, []uuid.UUID{gone.ID, binh.ID, an.ID}},
		{"overdue", ListFilter{Status: models.EffectiveOverdue}, []uuid.UUID{binh.ID}},
		{"active excludes overdue", ListFilter{Status: models.EffectiveActive}, []uuid.UUID{an.ID}},
		{"redeemed", ListFilter{Status: models.EffectiveRedeemed}, []uuid.UUID{gone.ID}},
		{"search without diacritics", ListFilter{Search: "nguyen van"}, []uuid.UUID{an.ID}},
		{"search stroke d", ListFilter{Search: "do thi"}, []uuid.UUID{binh.ID}},
		{"search model", ListFilter{Search: "galaxy"}, []uuid.UUID{binh.ID}},
		{"search phone", ListFilter{Search: "0901234"}, []uuid.UUID{an.ID}},
		{"search id prefix", ListFilter{Search: an.ID.String()[:8]}, []uuid.UUID{an.ID}},
		{"customer name", ListFilter{CustomerName: "pham cuong"}, []uuid.UUID{gone.ID}},
		{"no match", ListFilter{Search: "xiaomi"}, []uuid.UUID{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			views, err := l.ListLoans(tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(views))
		})
	}

	overdue, err := l.Overdue()
	require.NoError(t, err)
	require.Len(t, overdue, 1)
	assert.Equal(t, 3, overdue[0].DaysOverdue)
}

func TestListLoans_CorruptRecordStillListed(t *testing.T) {
	l, s, _ := newTestLedger(t)
	loan, err := l.CreateLoan(loanInput("An", "0901", 10_000_000))
	require.NoError(t, err)

	stored, err := s.LoadLoans()
	require.NoError(t, err)
	stored[0].DueDate = stored[0].OriginDate.AddDate(0, 0, -1)
	require.NoError(t, s.SaveLoans(stored))

	views, err := l.ListLoans(ListFilter{})
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, loan.ID, views[0].ID)
	assert.True(t, views[0].OwedInterest.IsZero())
}

func TestCustomers(t *testing.T) {
	l, _, _ := newTestLedger(t)
	for _, in := range []CreateLoanInput{
		loanInput("Nguyễn Văn An", "0901", 1_000_000),
		loanInput("nguyễn văn an", "0901", 2_000_000),
		loanInput("Nguyễn Văn An", "0999", 3_000_000),
		loanInput("Trần Bình", "0777", 4_000_000),
	} {
		_, err := l.CreateLoan(in)
		require.NoError(t, err)
	}

	all, err := l.Customers("")
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.Equal(t, "Trần Bình", all[0].Name)

	matched, err := l.Customers("nguyen")
	require.NoError(t, err)
	assert.Len(t, matched, 2)

	byPhone, err := l.Customers("0777")
	require.NoError(t, err)
	require.Len(t, byPhone, 1)
	assert.Equal(t, "Trần Bình", byPhone[0].Name)

	history, err := l.CustomerHistory("NGUYEN VAN AN")
	require.NoError(t, err)
	assert.Len(t, history, 3)
}

func TestCustomerItems(t *testing.T) {
	l, _, _ := newTestLedger(t)
	first := loanInput("An", "0901", 5_000_000)
	again := loanInput("An", "0901", 7_000_000)
	other := loanInput("An", "0901", 3_000_000)
	other.Device.Brand, other.Device.Model = "Samsung", "S23"
	for _, in := range []CreateLoanInput{first, again, other, loanInput("Bình", "0902", 9_000_000)} {
		_, err := l.CreateLoan(in)
		require.NoError(t, err)
	}

	items, err := l.CustomerItems("an")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "S23", items[0].Model)
	assert.Equal(t, "iPhone 13 Pro", items[1].Model)
	assert.True(t, decimal.NewFromInt(7_000_000).Equal(items[1].Principal))
}

func TestStats(t *testing.T) {
	l, _, clock := newTestLedger(t)

	a, err := l.CreateLoan(loanInput("An", "0901", 10_000_000))
	require.NoError(t, err)
	short := 1
	in := loanInput("Bình", "0902", 5_000_000)
	in.DurationDays = &short
	_, err = l.CreateLoan(in)
	require.NoError(t, err)
	c, err := l.CreateLoan(loanInput("Cường", "0903", 1_000_000))
	require.NoError(t, err)

	_, err = l.PayInterest(a.ID, decimal.NewFromInt(100_000))
	require.NoError(t, err)
	_, err = l.Liquidate(c.ID)
	require.NoError(t, err)

	clock.advance(2) // 2024-03-03
	stats, err := l.Stats()
	require.NoError(t, err)
	assert.Equal(t, 2, stats.ActiveCount)
	assert.Equal(t, 1, stats.OverdueCount)
	assert.True(t, decimal.NewFromInt(15_000_000).Equal(stats.TotalLoaned), "got %s", stats.TotalLoaned)
	// An: settled through the 3rd, nothing owed. Bình: three days at 15,000.
	assert.True(t, decimal.NewFromInt(15_045_000).Equal(stats.TotalReceivable), "got %s", stats.TotalReceivable)
	assert.True(t, decimal.NewFromInt(100_000).Equal(stats.RevenueThisMonth), "got %s", stats.RevenueThisMonth)

	clock.advance(30) // April
	stats, err = l.Stats()
	require.NoError(t, err)
	assert.True(t, stats.RevenueThisMonth.IsZero())
}

func TestSuggestValue_WithoutAdvisor(t *testing.T) {
	l, _, _ := newTestLedger(t)
	assert.Nil(t, l.SuggestValue(t.Context(), "Apple", "iPhone 13", "99%"))
}

func TestPayInterest_OversizedAmountKeepsBookReadable(t *testing.T) {
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "book.db"))
	require.NoError(t, err)
	defer s.Close()
	clock := &fixedClock{now: time.Date(2024, 3, 1, 10, 0, 0, 0, ict)}
	l := NewLedger(s, WithClock(clock))

	loan, err := l.CreateLoan(loanInput("An", "0901", 10_000_000))
	require.NoError(t, err)
	_, err = l.CreateLoan(loanInput("Bình", "0902", 5_000_000))
	require.NoError(t, err)

	for _, amount := range []string{"1000000000000000000000000", "90000000000000"} {
		_, err = l.PayInterest(loan.ID, decimal.RequireFromString(amount))
		assert.ErrorIs(t, err, interest.ErrInvalidAmount, amount)
	}

	views, err := l.ListLoans(ListFilter{})
	require.NoError(t, err)
	require.Len(t, views, 2)
	view, err := l.GetLoan(loan.ID)
	require.NoError(t, err)
	assert.Equal(t, day(2024, 3, 31), view.DueDate)
	assert.Empty(t, view.Payments)
}

func TestDurationIsBounded(t *testing.T) {
	l, s, _ := newTestLedger(t)

	tooLong := MaxDurationDays + 1
	in := loanInput("An", "0901", 1_000_000)
	in.DurationDays = &tooLong
	_, err := l.CreateLoan(in)
	assert.ErrorIs(t, err, ErrInvalidLoan)

	lateOrigin := time.Date(9999, time.December, 1, 0, 0, 0, 0, time.UTC)
	in = loanInput("An", "0901", 1_000_000)
	in.OriginDate = &lateOrigin
	_, err = l.CreateLoan(in)
	assert.ErrorIs(t, err, ErrInvalidLoan)
	assert.Zero(t, s.saves)

	longest := MaxDurationDays
	in = loanInput("An", "0901", 1_000_000)
	in.DurationDays = &longest
	loan, err := l.CreateLoan(in)
	require.NoError(t, err)

	_, err = l.UpdateLoan(loan.ID, UpdateLoanInput{DurationDays: &tooLong})
	assert.ErrorIs(t, err, ErrInvalidLoan)
	view, err := l.GetLoan(loan.ID)
	require.NoError(t, err)
	assert.Equal(t, interest.AddDays(loan.OriginDate, MaxDurationDays), view.DueDate)
}
