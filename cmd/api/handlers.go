package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/mcclellann/pawnledger/pkg/interest"
	"github.com/mcclellann/pawnledger/pkg/ledger"
	"github.com/mcclellann/pawnledger/pkg/models"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// createLoanRequest takes dates as "2006-01-02" in the shop's timezone.
type createLoanRequest struct {
	ledger.CreateLoanInput
	OriginDate string `json:"origin_date,omitempty"`
}

type updateLoanRequest struct {
	ledger.UpdateLoanInput
	OriginDate *string `json:"origin_date,omitempty"`
}

type amountRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

type adjustPrincipalRequest struct {
	Amount    decimal.Decimal  `json:"amount"`
	Direction models.Direction `json:"direction"`
}

type valuationRequest struct {
	Brand     string `json:"brand"`
	Model     string `json:"model"`
	Condition string `json:"condition"`
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) createLoanHandler(w http.ResponseWriter, r *http.Request) {
	var req createLoanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	input := req.CreateLoanInput
	if req.OriginDate != "" {
		origin, err := s.parseDate(req.OriginDate)
		if err != nil {
			writeMessage(w, http.StatusBadRequest, "Invalid origin_date, expected YYYY-MM-DD")
			return
		}
		input.OriginDate = &origin
	}
	if input.EstimatedValue == nil {
		if est := s.ledger.SuggestValue(r.Context(), input.Device.Brand, input.Device.Model, input.Device.Condition); est != nil {
			input.EstimatedValue = &est.MarketValue
		}
	}

	loan, err := s.ledger.CreateLoan(input)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, loan)
}

func (s *Server) getLoanHandler(w http.ResponseWriter, r *http.Request) {
	loanID, ok := loanIDFrom(w, r)
	if !ok {
		return
	}

	view, err := s.ledger.GetLoan(loanID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) listLoansHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	views, err := s.ledger.ListLoans(ledger.ListFilter{
		Status:       models.EffectiveStatus(q.Get("status")),
		Search:       q.Get("q"),
		CustomerName: q.Get("customer"),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) updateLoanHandler(w http.ResponseWriter, r *http.Request) {
	loanID, ok := loanIDFrom(w, r)
	if !ok {
		return
	}

	var req updateLoanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	input := req.UpdateLoanInput
	if req.OriginDate != nil {
		origin, err := s.parseDate(*req.OriginDate)
		if err != nil {
			writeMessage(w, http.StatusBadRequest, "Invalid origin_date, expected YYYY-MM-DD")
			return
		}
		input.OriginDate = &origin
	}

	loan, err := s.ledger.UpdateLoan(loanID, input)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, loan)
}

func (s *Server) deleteLoanHandler(w http.ResponseWriter, r *http.Request) {
	loanID, ok := loanIDFrom(w, r)
	if !ok {
		return
	}

	if err := s.ledger.DeleteLoan(loanID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) payInterestHandler(w http.ResponseWriter, r *http.Request) {
	loanID, ok := loanIDFrom(w, r)
	if !ok {
		return
	}

	var req amountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := s.ledger.PayInterest(loanID, req.Amount)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"loan":            res.Loan,
		"payment":         res.Payment,
		"extension_days":  res.ExtensionDays,
		"residual_credit": res.ResidualCredit,
	})
}

func (s *Server) adjustPrincipalHandler(w http.ResponseWriter, r *http.Request) {
	loanID, ok := loanIDFrom(w, r)
	if !ok {
		return
	}

	var req adjustPrincipalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	loan, err := s.ledger.AdjustPrincipal(loanID, req.Amount, req.Direction)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, loan)
}

func (s *Server) redeemHandler(w http.ResponseWriter, r *http.Request) {
	loanID, ok := loanIDFrom(w, r)
	if !ok {
		return
	}

	loan, err := s.ledger.Redeem(loanID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, loan)
}

func (s *Server) liquidateHandler(w http.ResponseWriter, r *http.Request) {
	loanID, ok := loanIDFrom(w, r)
	if !ok {
		return
	}

	loan, err := s.ledger.Liquidate(loanID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, loan)
}

func (s *Server) overdueHandler(w http.ResponseWriter, r *http.Request) {
	views, err := s.ledger.Overdue()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) customersHandler(w http.ResponseWriter, r *http.Request) {
	customers, err := s.ledger.Customers(r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, customers)
}

func (s *Server) customerLoansHandler(w http.ResponseWriter, r *http.Request) {
	views, err := s.ledger.CustomerHistory(mux.Vars(r)["name"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) customerItemsHandler(w http.ResponseWriter, r *http.Request) {
	items, err := s.ledger.CustomerItems(mux.Vars(r)["name"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	stats, err := s.ledger.Stats()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// valuationHandler answers 204 when no estimate is available.
func (s *Server) valuationHandler(w http.ResponseWriter, r *http.Request) {
	var req valuationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Brand == "" || req.Model == "" {
		writeMessage(w, http.StatusBadRequest, "brand and model are required")
		return
	}

	est := s.ledger.SuggestValue(r.Context(), req.Brand, req.Model, req.Condition)
	if est == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, est)
}

func (s *Server) parseDate(v string) (time.Time, error) {
	return time.ParseInLocation(time.DateOnly, v, s.location)
}

func loanIDFrom(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	loanID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid loan ID")
		return uuid.Nil, false
	}
	return loanID, true
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ledger.ErrLoanNotFound):
		return http.StatusNotFound
	case errors.Is(err, ledger.ErrInvalidLoan),
		errors.Is(err, interest.ErrInvalidAmount),
		errors.Is(err, interest.ErrInvalidDirection),
		errors.Is(err, interest.ErrInvalidRateBasis):
		return http.StatusBadRequest
	case errors.Is(err, ledger.ErrLoanNotActive),
		errors.Is(err, ledger.ErrTermsLocked),
		errors.Is(err, interest.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, interest.ErrZeroRateUnpayable),
		errors.Is(err, interest.ErrInvalidDateRange):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Msg("Request failed")
		writeMessage(w, status, "internal error")
		return
	}
	writeMessage(w, status, err.Error())
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("Failed to write response")
	}
}
