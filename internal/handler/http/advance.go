package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/cmlabs-hris/shift-payroll-go/internal/domain/advance"
	"github.com/cmlabs-hris/shift-payroll-go/internal/handler/http/response"
	"github.com/cmlabs-hris/shift-payroll-go/internal/pkg/period"
)

type AdvanceHandler interface {
	GetLoan(w http.ResponseWriter, r *http.Request)
	ListOverdue(w http.ResponseWriter, r *http.Request)
	SkipPeriod(w http.ResponseWriter, r *http.Request)
	RemoveSkip(w http.ResponseWriter, r *http.Request)
}

type advanceHandlerImpl struct {
	advanceService advance.Service
	now            func() time.Time
}

func NewAdvanceHandler(advanceService advance.Service) AdvanceHandler {
	return &advanceHandlerImpl{advanceService: advanceService, now: time.Now}
}

// currentPeriod reads ?period= and defaults to the current month.
func (h *advanceHandlerImpl) currentPeriod(r *http.Request) (period.Period, error) {
	if p := r.URL.Query().Get("period"); p != "" {
		return period.Parse(p)
	}
	return period.Of(h.now()), nil
}

func (h *advanceHandlerImpl) GetLoan(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		response.BadRequest(w, "Loan ID is required", nil)
		return
	}

	current, err := h.currentPeriod(r)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	result, err := h.advanceService.GetLoanDetail(r.Context(), id, current)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

func (h *advanceHandlerImpl) ListOverdue(w http.ResponseWriter, r *http.Request) {
	result, err := h.advanceService.ListOverdueLoans(r.Context(), r.URL.Query().Get("period"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

func (h *advanceHandlerImpl) SkipPeriod(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		response.BadRequest(w, "Loan ID is required", nil)
		return
	}

	var req advance.SkipPeriodRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}
	req.LoanID = id

	result, err := h.advanceService.ApplySkip(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Advance deduction skipped", result)
}

func (h *advanceHandlerImpl) RemoveSkip(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		response.BadRequest(w, "Loan ID is required", nil)
		return
	}

	req := advance.RemoveSkipRequest{
		LoanID: id,
		Period: chi.URLParam(r, "period"),
	}

	result, err := h.advanceService.RemoveSkip(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Advance skip removed", result)
}
