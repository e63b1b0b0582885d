package interest

import (
	"time"

	"github.com/google/uuid"
	"github.com/mcclellann/pawnledger/pkg/models"
	"github.com/shopspring/decimal"
)

// DaysOverdue is how many days asOf lies past the due date. Zero or negative
// means the loan is not yet due.
func DaysOverdue(loan *models.Loan, asOf time.Time) int {
	return WholeDaysBetween(loan.DueDate, asOf)
}

// EffectiveStatus derives the displayed status. An Active loan past its due
// date shows as Overdue; nothing is written, so a loan left alone becomes
// overdue by itself.
func EffectiveStatus(loan *models.Loan, asOf time.Time) models.EffectiveStatus {
	switch loan.Status {
	case models.StatusRedeemed:
		return models.EffectiveRedeemed
	case models.StatusLiquidated:
		return models.EffectiveLiquidated
	}
	if DaysOverdue(loan, asOf) > 0 {
		return models.EffectiveOverdue
	}
	return models.EffectiveActive
}

// Redeem closes an Active loan. The payoff owed on the redemption day is
// recorded as a Redemption payment (skipped when nothing is owed), and
// principal and residual credit drop to zero.
func Redeem(loan *models.Loan, at time.Time) (*models.Loan, *models.Payment, error) {
	if loan.Status != models.StatusActive {
		return nil, nil, ErrInvalidTransition
	}
	payoff, err := PayoffAmount(loan, at)
	if err != nil {
		return nil, nil, err
	}

	updated := loan.Clone()
	updated.Principal = decimal.Zero
	updated.ResidualCredit = decimal.Zero
	updated.Status = models.StatusRedeemed
	updated.UpdatedAt = at

	if !payoff.IsPositive() {
		return updated, nil, nil
	}
	payment := models.Payment{
		ID:     uuid.New(),
		LoanID: loan.ID,
		Date:   at,
		Amount: payoff,
		Kind:   models.PaymentKindRedemption,
		Note:   "redeemed: principal " + loan.Principal.StringFixed(0) + " plus interest",
	}
	updated.Payments = append(updated.Payments, payment)
	return updated, &payment, nil
}

// Liquidate marks an Active loan as forfeited; the shop keeps the device.
func Liquidate(loan *models.Loan, at time.Time) (*models.Loan, error) {
	if loan.Status != models.StatusActive {
		return nil, ErrInvalidTransition
	}
	updated := loan.Clone()
	updated.Status = models.StatusLiquidated
	updated.UpdatedAt = at
	return updated, nil
}
