// Package interest holds the pawn-loan arithmetic: how much interest a loan
// owes on a day, how a cash payment turns into due-date extension, and how
// principal changes and status transitions are applied.
//
// Every function is pure. The day being evaluated is always passed in, and
// mutations return a new *models.Loan leaving the argument untouched.
package interest

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mcclellann/pawnledger/pkg/models"
	"github.com/shopspring/decimal"
)

var (
	perDayScale   = decimal.NewFromInt(1_000_000) // rate is per million of principal
	perMonthScale = decimal.NewFromInt(100 * 30)  // rate is a percent, spread over 30 days
)

// dailyRatio returns one day of interest as the unreduced fraction num/den.
func dailyRatio(loan *models.Loan) (num, den decimal.Decimal, err error) {
	num = loan.Principal.Mul(loan.InterestRate)
	switch loan.InterestRateBasis {
	case models.RateBasisPerDay:
		return num, perDayScale, nil
	case models.RateBasisPerMonth:
		return num, perMonthScale, nil
	default:
		return decimal.Zero, decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidRateBasis, loan.InterestRateBasis)
	}
}

// DailyRate is the interest one day of the loan costs at its current principal.
func DailyRate(loan *models.Loan) (decimal.Decimal, error) {
	num, den, err := dailyRatio(loan)
	if err != nil {
		return decimal.Zero, err
	}
	return num.Div(den), nil
}

// checkDates rejects records whose stored dates cannot have come from this
// package's own operations.
func checkDates(loan *models.Loan) error {
	origin := Midnight(loan.OriginDate)
	if Midnight(loan.DueDate).Before(origin) {
		return fmt.Errorf("%w: due date %s before origin %s", ErrInvalidDateRange,
			loan.DueDate.Format(time.DateOnly), loan.OriginDate.Format(time.DateOnly))
	}
	if s := loan.LastInterestSettledDate; s != nil && Midnight(*s).Before(origin) {
		return fmt.Errorf("%w: settled date %s before origin %s", ErrInvalidDateRange,
			s.Format(time.DateOnly), loan.OriginDate.Format(time.DateOnly))
	}
	return nil
}

// accrualDays counts the days of interest outstanding on asOf. Until the first
// interest payment the origin day itself is owed, so it is counted too.
func accrualDays(loan *models.Loan, asOf time.Time) int {
	var days int
	if loan.LastInterestSettledDate == nil {
		days = WholeDaysBetween(loan.OriginDate, asOf) + 1
	} else {
		days = WholeDaysBetween(*loan.LastInterestSettledDate, asOf)
	}
	return max(0, days)
}

// OwedInterest returns the interest due on asOf, rounded to a whole currency
// unit, less any residual credit left by the previous payment. Never negative.
func OwedInterest(loan *models.Loan, asOf time.Time) (decimal.Decimal, error) {
	if err := checkDates(loan); err != nil {
		return decimal.Zero, err
	}
	num, den, err := dailyRatio(loan)
	if err != nil {
		return decimal.Zero, err
	}
	if num.IsZero() {
		return decimal.Zero, nil
	}

	days := decimal.NewFromInt(int64(accrualDays(loan, asOf)))
	gross := num.Mul(days).Div(den).Round(0)

	owed := gross.Sub(loan.ResidualCredit)
	if owed.IsNegative() {
		return decimal.Zero, nil
	}
	return owed, nil
}

// PayoffAmount is what closes the loan on asOf: principal plus owed interest.
func PayoffAmount(loan *models.Loan, asOf time.Time) (decimal.Decimal, error) {
	owed, err := OwedInterest(loan, asOf)
	if err != nil {
		return decimal.Zero, err
	}
	return loan.Principal.Add(owed), nil
}

// PaymentResult describes what an interest payment bought.
type PaymentResult struct {
	Loan           *models.Loan
	Payment        models.Payment
	ExtensionDays  int
	ResidualCredit decimal.Decimal
}

// ApplyInterestPayment converts cash (plus any residual credit) into whole days
// of due-date extension at the loan's current daily rate. The remainder that
// does not buy a full day becomes the new residual credit.
//
// The loan's status is not checked: callers must not pay interest on redeemed
// or liquidated loans. A successful payment always leaves the loan Active.
func ApplyInterestPayment(loan *models.Loan, cash decimal.Decimal, paidAt time.Time) (*PaymentResult, error) {
	if !cash.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if err := checkDates(loan); err != nil {
		return nil, err
	}
	num, den, err := dailyRatio(loan)
	if err != nil {
		return nil, err
	}
	if !num.IsPositive() {
		return nil, ErrZeroRateUnpayable
	}

	available := cash.Add(loan.ResidualCredit)
	// available/(num/den) == available*den/num; the remainder r is in units of
	// 1/den, so r/den is the leftover cash.
	q, r := available.Mul(den).QuoRem(num, 0)
	if q.GreaterThan(decimal.NewFromInt(int64(WholeDaysBetween(loan.DueDate, LastDate)))) {
		return nil, fmt.Errorf("%w: %s buys %s days, past %s", ErrInvalidAmount,
			cash, q, LastDate.Format(time.DateOnly))
	}
	extension := int(q.IntPart())
	residual := r.Div(den)

	firstPayment := loan.LastInterestSettledDate == nil
	reference := loan.OriginDate
	increment := extension
	if firstPayment {
		increment = extension - 1
	} else {
		reference = *loan.LastInterestSettledDate
	}
	settled := AddDays(reference, max(0, increment))

	updated := loan.Clone()
	updated.DueDate = AddDays(loan.DueDate, extension)
	updated.LastInterestSettledDate = &settled
	updated.ResidualCredit = residual
	updated.Status = models.StatusActive
	updated.UpdatedAt = paidAt

	payment := models.Payment{
		ID:     uuid.New(),
		LoanID: loan.ID,
		Date:   paidAt,
		Amount: cash,
		Kind:   models.PaymentKindInterest,
		Note:   fmt.Sprintf("extended %d days, residual %s", extension, residual.StringFixed(2)),
	}
	updated.Payments = append(updated.Payments, payment)

	return &PaymentResult{
		Loan:           updated,
		Payment:        payment,
		ExtensionDays:  extension,
		ResidualCredit: residual,
	}, nil
}

// AdjustPrincipal raises or lowers the outstanding principal. A decrease larger
// than the principal is capped at zero. The interest schedule is left alone;
// the next OwedInterest simply uses the new principal.
func AdjustPrincipal(loan *models.Loan, amount decimal.Decimal, dir models.Direction, at time.Time) (*models.Loan, models.Payment, error) {
	if !amount.IsPositive() {
		return nil, models.Payment{}, ErrInvalidAmount
	}

	updated := loan.Clone()
	var note string
	switch dir {
	case models.DirectionIncrease:
		updated.Principal = loan.Principal.Add(amount)
		note = "principal increased"
	case models.DirectionDecrease:
		updated.Principal = decimal.Max(decimal.Zero, loan.Principal.Sub(amount))
		note = "principal paid down"
	default:
		return nil, models.Payment{}, fmt.Errorf("%w: %q", ErrInvalidDirection, dir)
	}
	updated.UpdatedAt = at

	payment := models.Payment{
		ID:     uuid.New(),
		LoanID: loan.ID,
		Date:   at,
		Amount: amount,
		Kind:   models.PaymentKindPrincipal,
		Note:   note,
	}
	updated.Payments = append(updated.Payments, payment)
	return updated, payment, nil
}
