package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mcclellann/pawnledger/pkg/config"
	"github.com/mcclellann/pawnledger/pkg/interest"
	"github.com/mcclellann/pawnledger/pkg/metrics"
	"github.com/mcclellann/pawnledger/pkg/models"
	"github.com/mcclellann/pawnledger/pkg/store"
	"github.com/mcclellann/pawnledger/pkg/valuation"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

var (
	ErrLoanNotFound  = errors.New("loan not found")
	ErrLoanNotActive = errors.New("loan is not active")
	ErrTermsLocked   = errors.New("loan terms cannot change once payments are recorded")
	ErrInvalidLoan   = errors.New("invalid loan")
)

const unknownField = "unknown"

// MaxDurationDays bounds the term of a new or edited loan.
const MaxDurationDays = 10 * 365

// Without a valuation the device is assumed to be worth half again the loan.
var defaultValueMultiplier = decimal.NewFromFloat(1.5)

// Clock supplies the current instant. Its location decides which calendar day
// "today" is.
type Clock interface {
	Now() time.Time
}

type systemClock struct {
	loc *time.Location
}

func (c systemClock) Now() time.Time { return time.Now().In(c.loc) }

// SystemClock reads the wall clock in loc.
func SystemClock(loc *time.Location) Clock {
	return systemClock{loc: loc}
}

// Ledger handles the business logic for pawn loans and their payments.
type Ledger struct {
	storage  store.Storage
	clock    Clock
	defaults config.LoanDefaults
	advisor  *valuation.Advisor
}

// Option configures a Ledger.
type Option func(*Ledger)

func WithClock(c Clock) Option { return func(l *Ledger) { l.clock = c } }

func WithDefaults(d config.LoanDefaults) Option { return func(l *Ledger) { l.defaults = d } }

func WithAdvisor(a *valuation.Advisor) Option { return func(l *Ledger) { l.advisor = a } }

// NewLedger creates a new Ledger with a given Storage implementation.
func NewLedger(s store.Storage, opts ...Option) *Ledger {
	l := &Ledger{
		storage: s,
		clock:   SystemClock(time.UTC),
		defaults: config.LoanDefaults{
			InterestRate: decimal.NewFromInt(3000),
			RateBasis:    models.RateBasisPerDay,
			DurationDays: 30,
		},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// CustomerInput identifies the borrower.
type CustomerInput struct {
	Name   string `json:"name"`
	Phone  string `json:"phone"`
	IDCard string `json:"id_card"`
}

// DeviceInput describes the pawned device.
type DeviceInput struct {
	Brand     string `json:"brand"`
	Model     string `json:"model"`
	IMEI      string `json:"imei"`
	Condition string `json:"condition"`
}

// CreateLoanInput is everything needed to open a loan. Nil pointers fall back
// to the configured defaults; a nil OriginDate means today.
type CreateLoanInput struct {
	Customer       CustomerInput    `json:"customer"`
	Device         DeviceInput      `json:"device"`
	Principal      decimal.Decimal  `json:"principal"`
	InterestRate   *decimal.Decimal `json:"interest_rate,omitempty"`
	RateBasis      models.RateBasis `json:"interest_rate_basis,omitempty"`
	OriginDate     *time.Time       `json:"origin_date,omitempty"`
	DurationDays   *int             `json:"duration_days,omitempty"`
	EstimatedValue *decimal.Decimal `json:"estimated_value,omitempty"` // usually a valuation's market value
	Notes          string           `json:"notes,omitempty"`
	PrivateNotes   string           `json:"private_notes,omitempty"`
	IsNoPaper      bool             `json:"is_no_paper"`
}

// CreateLoan opens a new Active loan and puts it at the head of the book.
func (l *Ledger) CreateLoan(input CreateLoanInput) (*models.Loan, error) {
	now := l.clock.Now()

	rate := l.defaults.InterestRate
	if input.InterestRate != nil {
		rate = *input.InterestRate
	}
	basis := l.defaults.RateBasis
	if input.RateBasis != "" {
		basis = input.RateBasis
	}
	origin := interest.Midnight(now)
	if input.OriginDate != nil {
		origin = interest.Midnight(*input.OriginDate)
	}
	duration := l.defaults.DurationDays
	if input.DurationDays != nil {
		duration = *input.DurationDays
	}
	if err := validateTerms(input.Customer.Name, input.Principal, rate, basis, origin, duration); err != nil {
		metrics.MutationsRejected.WithLabelValues("create").Inc()
		return nil, err
	}

	estimated := input.Principal.Mul(defaultValueMultiplier)
	if input.EstimatedValue != nil && input.EstimatedValue.IsPositive() {
		estimated = *input.EstimatedValue
	}

	loans, err := l.storage.LoadLoans()
	if err != nil {
		return nil, fmt.Errorf("failed to load loans: %w", err)
	}

	loan := &models.Loan{
		ID: uuid.New(),
		Customer: models.Customer{
			ID:     customerID(loans, input.Customer),
			Name:   strings.TrimSpace(input.Customer.Name),
			Phone:  strings.TrimSpace(input.Customer.Phone),
			IDCard: orUnknown(input.Customer.IDCard),
		},
		Device: models.Device{
			Brand:          strings.TrimSpace(input.Device.Brand),
			Model:          strings.TrimSpace(input.Device.Model),
			IMEI:           orUnknown(input.Device.IMEI),
			Condition:      strings.TrimSpace(input.Device.Condition),
			EstimatedValue: estimated,
		},
		Principal:         input.Principal,
		InterestRate:      rate,
		InterestRateBasis: basis,
		OriginDate:        origin,
		DueDate:           interest.AddDays(origin, duration),
		ResidualCredit:    decimal.Zero,
		Status:            models.StatusActive,
		Notes:             input.Notes,
		PrivateNotes:      input.PrivateNotes,
		IsNoPaper:         input.IsNoPaper,
		Payments:          []models.Payment{},
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := l.storage.SaveLoans(append([]*models.Loan{loan}, loans...)); err != nil {
		return nil, fmt.Errorf("failed to store loan: %w", err)
	}

	metrics.LoansCreated.Inc()
	log.Info().Str("loan_id", loan.ID.String()).Str("customer", loan.Customer.Name).
		Str("principal", loan.Principal.String()).Str("due_date", loan.DueDate.Format(time.DateOnly)).
		Msg("Loan created")
	return loan, nil
}

// UpdateLoanInput edits an existing loan. Nil fields are left as they are.
// Principal, rate, basis, origin and duration are terms and can only change
// while the loan has no payments.
type UpdateLoanInput struct {
	Customer     *CustomerInput    `json:"customer,omitempty"`
	Device       *DeviceInput      `json:"device,omitempty"`
	Notes        *string           `json:"notes,omitempty"`
	PrivateNotes *string           `json:"private_notes,omitempty"`
	IsNoPaper    *bool             `json:"is_no_paper,omitempty"`
	Principal    *decimal.Decimal  `json:"principal,omitempty"`
	InterestRate *decimal.Decimal  `json:"interest_rate,omitempty"`
	RateBasis    *models.RateBasis `json:"interest_rate_basis,omitempty"`
	OriginDate   *time.Time        `json:"origin_date,omitempty"`
	DurationDays *int              `json:"duration_days,omitempty"`
}

func (in UpdateLoanInput) changesTerms() bool {
	return in.Principal != nil || in.InterestRate != nil || in.RateBasis != nil ||
		in.OriginDate != nil || in.DurationDays != nil
}

// UpdateLoan applies input to the loan with the given id.
func (l *Ledger) UpdateLoan(id uuid.UUID, input UpdateLoanInput) (*models.Loan, error) {
	return l.mutate(id, "update", func(loan *models.Loan, now time.Time) (*models.Loan, error) {
		if input.changesTerms() && len(loan.Payments) > 0 {
			return nil, ErrTermsLocked
		}

		updated := loan.Clone()
		if c := input.Customer; c != nil {
			updated.Customer.Name = strings.TrimSpace(c.Name)
			updated.Customer.Phone = strings.TrimSpace(c.Phone)
			updated.Customer.IDCard = orUnknown(c.IDCard)
		}
		if d := input.Device; d != nil {
			updated.Device.Brand = strings.TrimSpace(d.Brand)
			updated.Device.Model = strings.TrimSpace(d.Model)
			updated.Device.IMEI = orUnknown(d.IMEI)
			updated.Device.Condition = strings.TrimSpace(d.Condition)
		}
		if input.Notes != nil {
			updated.Notes = *input.Notes
		}
		if input.PrivateNotes != nil {
			updated.PrivateNotes = *input.PrivateNotes
		}
		if input.IsNoPaper != nil {
			updated.IsNoPaper = *input.IsNoPaper
		}

		duration := interest.WholeDaysBetween(loan.OriginDate, loan.DueDate)
		if input.Principal != nil {
			updated.Principal = *input.Principal
		}
		if input.InterestRate != nil {
			updated.InterestRate = *input.InterestRate
		}
		if input.RateBasis != nil {
			updated.InterestRateBasis = *input.RateBasis
		}
		if input.OriginDate != nil {
			updated.OriginDate = interest.Midnight(*input.OriginDate)
		}
		if input.DurationDays != nil {
			duration = *input.DurationDays
		}
		if err := validateTerms(updated.Customer.Name, updated.Principal, updated.InterestRate, updated.InterestRateBasis, updated.OriginDate, duration); err != nil {
			return nil, err
		}
		updated.DueDate = interest.AddDays(updated.OriginDate, duration)
		updated.UpdatedAt = now
		return updated, nil
	})
}

// PayInterest records cash paid toward interest and extends the due date by
// the whole days it buys.
func (l *Ledger) PayInterest(id uuid.UUID, amount decimal.Decimal) (*interest.PaymentResult, error) {
	var result *interest.PaymentResult
	_, err := l.mutate(id, "pay_interest", func(loan *models.Loan, now time.Time) (*models.Loan, error) {
		if loan.Status != models.StatusActive {
			return nil, ErrLoanNotActive
		}
		res, err := interest.ApplyInterestPayment(loan, amount, now)
		if err != nil {
			return nil, err
		}
		result = res
		return res.Loan, nil
	})
	if err != nil {
		return nil, err
	}

	metrics.PaymentsRecorded.WithLabelValues(string(models.PaymentKindInterest)).Inc()
	log.Info().Str("loan_id", id.String()).Str("amount", amount.String()).
		Int("extension_days", result.ExtensionDays).Str("residual", result.ResidualCredit.StringFixed(2)).
		Str("due_date", result.Loan.DueDate.Format(time.DateOnly)).
		Msg("Interest payment recorded")
	return result, nil
}

// AdjustPrincipal lends more against the device or takes a partial paydown.
func (l *Ledger) AdjustPrincipal(id uuid.UUID, amount decimal.Decimal, dir models.Direction) (*models.Loan, error) {
	loan, err := l.mutate(id, "adjust_principal", func(loan *models.Loan, now time.Time) (*models.Loan, error) {
		if loan.Status != models.StatusActive {
			return nil, ErrLoanNotActive
		}
		updated, _, err := interest.AdjustPrincipal(loan, amount, dir, now)
		return updated, err
	})
	if err != nil {
		return nil, err
	}

	metrics.PaymentsRecorded.WithLabelValues(string(models.PaymentKindPrincipal)).Inc()
	log.Info().Str("loan_id", id.String()).Str("direction", string(dir)).Str("amount", amount.String()).
		Str("principal", loan.Principal.String()).Msg("Principal adjusted")
	return loan, nil
}

// Redeem closes the loan after the customer has paid the payoff amount.
func (l *Ledger) Redeem(id uuid.UUID) (*models.Loan, error) {
	var payment *models.Payment
	loan, err := l.mutate(id, "redeem", func(loan *models.Loan, now time.Time) (*models.Loan, error) {
		updated, p, err := interest.Redeem(loan, now)
		payment = p
		return updated, err
	})
	if err != nil {
		return nil, err
	}

	metrics.StatusTransitions.WithLabelValues(string(models.StatusRedeemed)).Inc()
	event := log.Info().Str("loan_id", id.String())
	if payment != nil {
		metrics.PaymentsRecorded.WithLabelValues(string(models.PaymentKindRedemption)).Inc()
		event = event.Str("payoff", payment.Amount.String())
	}
	event.Msg("Loan redeemed")
	return loan, nil
}

// Liquidate forfeits the device; the loan is closed without payment.
func (l *Ledger) Liquidate(id uuid.UUID) (*models.Loan, error) {
	loan, err := l.mutate(id, "liquidate", func(loan *models.Loan, now time.Time) (*models.Loan, error) {
		return interest.Liquidate(loan, now)
	})
	if err != nil {
		return nil, err
	}

	metrics.StatusTransitions.WithLabelValues(string(models.StatusLiquidated)).Inc()
	log.Info().Str("loan_id", id.String()).Msg("Loan liquidated")
	return loan, nil
}

// DeleteLoan removes a loan and its payments, whatever its status.
func (l *Ledger) DeleteLoan(id uuid.UUID) error {
	loans, err := l.storage.LoadLoans()
	if err != nil {
		return fmt.Errorf("failed to load loans: %w", err)
	}
	idx := indexOf(loans, id)
	if idx < 0 {
		return ErrLoanNotFound
	}

	kept := append(loans[:idx:idx], loans[idx+1:]...)
	if err := l.storage.SaveLoans(kept); err != nil {
		return fmt.Errorf("failed to delete loan: %w", err)
	}
	log.Info().Str("loan_id", id.String()).Msg("Loan deleted")
	return nil
}

// SuggestValue asks the valuation service for a price. Nil means no suggestion.
func (l *Ledger) SuggestValue(ctx context.Context, brand, model, condition string) *valuation.Estimate {
	return l.advisor.Suggest(ctx, brand, model, condition)
}

// mutate is the single read-modify-write path: load the book, let fn produce
// the replacement loan, save the book. fn must not modify its argument; when it
// fails nothing is written.
func (l *Ledger) mutate(id uuid.UUID, op string, fn func(loan *models.Loan, now time.Time) (*models.Loan, error)) (*models.Loan, error) {
	loans, err := l.storage.LoadLoans()
	if err != nil {
		return nil, fmt.Errorf("failed to load loans: %w", err)
	}
	idx := indexOf(loans, id)
	if idx < 0 {
		return nil, ErrLoanNotFound
	}

	updated, err := fn(loans[idx], l.clock.Now())
	if err != nil {
		metrics.MutationsRejected.WithLabelValues(op).Inc()
		log.Debug().Err(err).Str("loan_id", id.String()).Str("operation", op).Msg("Mutation rejected")
		return nil, err
	}

	loans[idx] = updated
	if err := l.storage.SaveLoans(loans); err != nil {
		return nil, fmt.Errorf("failed to save loans: %w", err)
	}
	return updated, nil
}

func indexOf(loans []*models.Loan, id uuid.UUID) int {
	for i, loan := range loans {
		if loan.ID == id {
			return i
		}
	}
	return -1
}

func validateTerms(customerName string, principal, rate decimal.Decimal, basis models.RateBasis, origin time.Time, duration int) error {
	switch {
	case strings.TrimSpace(customerName) == "":
		return fmt.Errorf("%w: customer name is required", ErrInvalidLoan)
	case !principal.IsPositive():
		return fmt.Errorf("%w: principal must be positive", ErrInvalidLoan)
	case rate.IsNegative():
		return fmt.Errorf("%w: interest rate must not be negative", ErrInvalidLoan)
	case basis != models.RateBasisPerDay && basis != models.RateBasisPerMonth:
		return fmt.Errorf("%w: %w", ErrInvalidLoan, interest.ErrInvalidRateBasis)
	case duration < 0:
		return fmt.Errorf("%w: duration must not be negative", ErrInvalidLoan)
	case duration > MaxDurationDays:
		return fmt.Errorf("%w: duration must not exceed %d days", ErrInvalidLoan, MaxDurationDays)
	case interest.AddDays(origin, duration).After(interest.LastDate):
		return fmt.Errorf("%w: due date past %s", ErrInvalidLoan, interest.LastDate.Format(time.DateOnly))
	}
	return nil
}

// customerID reuses the id of a returning customer (same name and phone).
func customerID(loans []*models.Loan, in CustomerInput) uuid.UUID {
	key := customerKey(in.Name, in.Phone)
	for _, loan := range loans {
		if customerKey(loan.Customer.Name, loan.Customer.Phone) == key {
			return loan.Customer.ID
		}
	}
	return uuid.New()
}

func orUnknown(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return unknownField
	}
	return s
}
