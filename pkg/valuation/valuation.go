// Package valuation looks up a suggested loan amount for a pawned device.
// Results are advisory: loan creation never waits on, or fails because of,
// a missing estimate.
package valuation

import (
	"context"
	"errors"

	"github.com/mcclellann/pawnledger/pkg/metrics"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

var (
	ErrUnavailable = errors.New("valuation service unavailable")
	ErrRateLimited = errors.New("valuation rate limit reached")
	ErrBadResponse = errors.New("valuation response could not be read")
)

// Estimate is a market price guess for a used device.
type Estimate struct {
	MarketValue   decimal.Decimal `json:"market_value"`   // quick-sale price
	SuggestedLoan decimal.Decimal `json:"suggested_loan"` // 60-70% of market value
	RiskLevel     string          `json:"risk_level"`
	Advice        string          `json:"advice"`
}

// Estimator prices a device by brand, model and free-text condition.
type Estimator interface {
	Estimate(ctx context.Context, brand, model, condition string) (*Estimate, error)
}

// Advisor turns every estimator failure into "no suggestion".
type Advisor struct {
	estimator Estimator
}

// NewAdvisor wraps estimator. A nil estimator gives an Advisor that never
// suggests anything.
func NewAdvisor(estimator Estimator) *Advisor {
	return &Advisor{estimator: estimator}
}

// Suggest returns an estimate, or nil when none is available.
func (a *Advisor) Suggest(ctx context.Context, brand, model, condition string) *Estimate {
	if a == nil || a.estimator == nil {
		metrics.ValuationRequests.WithLabelValues("disabled").Inc()
		return nil
	}

	est, err := a.estimator.Estimate(ctx, brand, model, condition)
	switch {
	case errors.Is(err, ErrRateLimited):
		metrics.ValuationRequests.WithLabelValues("limited").Inc()
		log.Warn().Str("brand", brand).Str("model", model).Msg("Valuation skipped: rate limited")
		return nil
	case err != nil:
		metrics.ValuationRequests.WithLabelValues("error").Inc()
		log.Warn().Err(err).Str("brand", brand).Str("model", model).Msg("Valuation failed")
		return nil
	case est == nil:
		metrics.ValuationRequests.WithLabelValues("error").Inc()
		return nil
	}

	metrics.ValuationRequests.WithLabelValues("ok").Inc()
	return est
}
