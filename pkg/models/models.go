package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RateBasis says how InterestRate is read.
type RateBasis string

const (
	RateBasisPerDay   RateBasis = "day"   // currency units per day per 1,000,000 of principal
	RateBasisPerMonth RateBasis = "month" // percent of principal per 30-day month
)

// Status is the stored lifecycle state. Overdue is never stored, see EffectiveStatus.
type Status string

const (
	StatusActive     Status = "active"
	StatusRedeemed   Status = "redeemed"
	StatusLiquidated Status = "liquidated"
)

// EffectiveStatus is what a loan shows as on a given day.
type EffectiveStatus string

const (
	EffectiveActive     EffectiveStatus = "active"
	EffectiveOverdue    EffectiveStatus = "overdue"
	EffectiveRedeemed   EffectiveStatus = "redeemed"
	EffectiveLiquidated EffectiveStatus = "liquidated"
)

type PaymentKind string

const (
	PaymentKindInterest   PaymentKind = "interest"
	PaymentKindPrincipal  PaymentKind = "principal"
	PaymentKindRedemption PaymentKind = "redemption"
)

// Direction of a principal adjustment.
type Direction string

const (
	DirectionIncrease Direction = "increase" // customer borrows more against the same device
	DirectionDecrease Direction = "decrease" // partial paydown
)

type Customer struct {
	ID     uuid.UUID `json:"id"`
	Name   string    `json:"name"`
	Phone  string    `json:"phone"`
	IDCard string    `json:"id_card"`
}

type Device struct {
	Brand          string          `json:"brand"`
	Model          string          `json:"model"`
	IMEI           string          `json:"imei"`
	Condition      string          `json:"condition"`
	EstimatedValue decimal.Decimal `json:"estimated_value"`
}

type Loan struct {
	ID                      uuid.UUID       `json:"id"`
	Customer                Customer        `json:"customer"`
	Device                  Device          `json:"device"`
	Principal               decimal.Decimal `json:"principal"`
	InterestRate            decimal.Decimal `json:"interest_rate"`
	InterestRateBasis       RateBasis       `json:"interest_rate_basis"`
	OriginDate              time.Time       `json:"origin_date"`
	DueDate                 time.Time       `json:"due_date"`
	LastInterestSettledDate *time.Time      `json:"last_interest_settled_date,omitempty"` // nil until the first interest payment
	ResidualCredit          decimal.Decimal `json:"residual_credit"`                      // prepaid interest worth less than one day
	Status                  Status          `json:"status"`
	Notes                   string          `json:"notes,omitempty"`
	PrivateNotes            string          `json:"private_notes,omitempty"`
	IsNoPaper               bool            `json:"is_no_paper"` // pawned without the device's paperwork
	Payments                []Payment       `json:"payments"`
	CreatedAt               time.Time       `json:"created_at"`
	UpdatedAt               time.Time       `json:"updated_at"`
}

// Clone returns a deep copy so mutations never touch the caller's value.
func (l *Loan) Clone() *Loan {
	c := *l
	if l.LastInterestSettledDate != nil {
		settled := *l.LastInterestSettledDate
		c.LastInterestSettledDate = &settled
	}
	c.Payments = make([]Payment, len(l.Payments))
	copy(c.Payments, l.Payments)
	return &c
}

type Payment struct {
	ID     uuid.UUID       `json:"id"`
	LoanID uuid.UUID       `json:"loan_id"`
	Date   time.Time       `json:"date"`
	Amount decimal.Decimal `json:"amount"`
	Kind   PaymentKind     `json:"kind"`
	Note   string          `json:"note,omitempty"`
}

// LoanView is a loan together with the figures derived from it on a given day.
// PayoffAmount is principal plus owed interest whatever the status, so a
// redeemed loan shows zero and a liquidated one shows what it would still take
// to close it.
type LoanView struct {
	*Loan
	EffectiveStatus EffectiveStatus `json:"effective_status"`
	DaysOverdue     int             `json:"days_overdue"`
	OwedInterest    decimal.Decimal `json:"owed_interest"`
	PayoffAmount    decimal.Decimal `json:"payoff_amount"`
}

// PawnedItem is a device a customer has pawned before.
type PawnedItem struct {
	Brand     string          `json:"brand"`
	Model     string          `json:"model"`
	Principal decimal.Decimal `json:"principal"`
}

// Stats is the dashboard summary.
type Stats struct {
	ActiveCount      int             `json:"active_count"`
	OverdueCount     int             `json:"overdue_count"`
	TotalLoaned      decimal.Decimal `json:"total_loaned"`
	TotalReceivable  decimal.Decimal `json:"total_receivable"`
	RevenueThisMonth decimal.Decimal `json:"revenue_this_month"`
}
