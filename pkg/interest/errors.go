package interest

import "errors"

var (
	ErrInvalidAmount     = errors.New("amount must be positive")
	ErrZeroRateUnpayable = errors.New("daily interest is zero, payment cannot buy any extension")
	ErrInvalidDateRange  = errors.New("loan dates are out of order")
	ErrInvalidRateBasis  = errors.New("unknown interest rate basis")
	ErrInvalidDirection  = errors.New("unknown principal adjustment direction")
	ErrInvalidTransition = errors.New("loan is no longer active")
)
