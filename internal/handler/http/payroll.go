package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/cmlabs-hris/shift-payroll-go/internal/domain/payroll"
	"github.com/cmlabs-hris/shift-payroll-go/internal/handler/http/response"
	"github.com/cmlabs-hris/shift-payroll-go/internal/pkg/period"
	"github.com/cmlabs-hris/shift-payroll-go/internal/pkg/validator"
)

type PayrollHandler interface {
	// Calculation
	Preview(w http.ResponseWriter, r *http.Request)
	RunBatch(w http.ResponseWriter, r *http.Request)
	SaveRecords(w http.ResponseWriter, r *http.Request)
	RunAndSave(w http.ResponseWriter, r *http.Request)

	// Records
	GetRecord(w http.ResponseWriter, r *http.Request)
	ListRecords(w http.ResponseWriter, r *http.Request)
	EditRecord(w http.ResponseWriter, r *http.Request)
	ApplyBulkDeduction(w http.ResponseWriter, r *http.Request)

	// Disbursement
	Disburse(w http.ResponseWriter, r *http.Request)
	DisburseBulk(w http.ResponseWriter, r *http.Request)

	// Summary
	GetPeriodSummary(w http.ResponseWriter, r *http.Request)
	ListDeductionTypes(w http.ResponseWriter, r *http.Request)
}

type payrollHandlerImpl struct {
	payrollService payroll.PayrollService
}

func NewPayrollHandler(payrollService payroll.PayrollService) PayrollHandler {
	return &payrollHandlerImpl{payrollService: payrollService}
}

type periodRequest struct {
	Period string `json:"period" validate:"required,period"`
}

// ========== CALCULATION ==========

func (h *payrollHandlerImpl) Preview(w http.ResponseWriter, r *http.Request) {
	employeeID := r.URL.Query().Get("employee_id")
	p := r.URL.Query().Get("period")
	if employeeID == "" || p == "" {
		response.BadRequest(w, "employee_id and period are required", nil)
		return
	}

	result, err := h.payrollService.ComputeSalary(r.Context(), employeeID, p)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

func (h *payrollHandlerImpl) RunBatch(w http.ResponseWriter, r *http.Request) {
	var req periodRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}
	if err := validator.Struct(&req); err != nil {
		response.HandleError(w, err)
		return
	}

	result, err := h.payrollService.RunBatch(r.Context(), req.Period)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

func (h *payrollHandlerImpl) SaveRecords(w http.ResponseWriter, r *http.Request) {
	var req payroll.SaveRecordsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}

	result, err := h.payrollService.SaveSalaryRecords(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Salary records saved", result)
}

func (h *payrollHandlerImpl) RunAndSave(w http.ResponseWriter, r *http.Request) {
	var req periodRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}
	if err := validator.Struct(&req); err != nil {
		response.HandleError(w, err)
		return
	}

	result, err := h.payrollService.RunAndSave(r.Context(), req.Period)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Payroll generated", result)
}

// ========== RECORDS ==========

func (h *payrollHandlerImpl) GetRecord(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		response.BadRequest(w, "Record ID is required", nil)
		return
	}

	result, err := h.payrollService.GetRecord(r.Context(), id)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

func (h *payrollHandlerImpl) ListRecords(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	var filter payroll.RecordFilter

	if pageStr := query.Get("page"); pageStr != "" {
		if page, err := strconv.Atoi(pageStr); err == nil && page > 0 {
			filter.Page = page
		}
	}
	if limitStr := query.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil && limit > 0 {
			filter.Limit = limit
		}
	}
	if p := query.Get("period"); p != "" {
		parsed, err := period.Parse(p)
		if err != nil {
			response.HandleError(w, err)
			return
		}
		filter.Period = &parsed
	}
	if status := query.Get("status"); status != "" {
		s := payroll.DisbursementStatus(status)
		if s != payroll.DisbursementPending && s != payroll.DisbursementDisbursed {
			response.ValidationError(w, map[string]string{"status": "must be one of: pending disbursed"})
			return
		}
		filter.Status = &s
	}
	if employeeID := query.Get("employee_id"); employeeID != "" {
		filter.EmployeeID = &employeeID
	}

	result, err := h.payrollService.ListRecords(r.Context(), filter)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMeta(w, result.Data, response.NewMeta(result.Page, result.Limit, result.TotalCount))
}

func (h *payrollHandlerImpl) EditRecord(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		response.BadRequest(w, "Record ID is required", nil)
		return
	}

	var req payroll.EditRecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}
	req.ID = id

	result, err := h.payrollService.EditRecord(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Salary record updated", result)
}

func (h *payrollHandlerImpl) ApplyBulkDeduction(w http.ResponseWriter, r *http.Request) {
	var req payroll.BulkDeductionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}

	result, err := h.payrollService.ApplyBulkDeduction(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Bulk deduction applied", result)
}

// ========== DISBURSEMENT ==========

func (h *payrollHandlerImpl) Disburse(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		response.BadRequest(w, "Record ID is required", nil)
		return
	}

	result, err := h.payrollService.Disburse(r.Context(), id)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Salary disbursed", result)
}

func (h *payrollHandlerImpl) DisburseBulk(w http.ResponseWriter, r *http.Request) {
	var req payroll.DisburseBulkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}

	result, err := h.payrollService.DisburseBulk(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// ========== SUMMARY ==========

func (h *payrollHandlerImpl) GetPeriodSummary(w http.ResponseWriter, r *http.Request) {
	p := r.URL.Query().Get("period")
	if p == "" {
		response.BadRequest(w, "period is required", nil)
		return
	}

	result, err := h.payrollService.GetPeriodSummary(r.Context(), p)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

func (h *payrollHandlerImpl) ListDeductionTypes(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("active_only") == "true"

	result, err := h.payrollService.ListDeductionTypes(r.Context(), activeOnly)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}
