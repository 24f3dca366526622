package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/iho/loanledger/internal/adapter/http/dto"
	"github.com/iho/loanledger/internal/domain"
	"github.com/iho/loanledger/internal/usecase"
)

// LoanService is the loan lifecycle surface the handler needs.
type LoanService interface {
	CreateLoan(ctx context.Context, input usecase.CreateLoanInput) (*domain.Loan, error)
	PreviewSchedule(productCode string, terms domain.LoanTerms, disbursement time.Time) ([]domain.Installment, error)
	GetLoan(ctx context.Context, id string) (*domain.Loan, error)
	ListLoans(ctx context.Context, filter usecase.LoanFilter) ([]*domain.Loan, error)
	Disburse(ctx context.Context, id string, at time.Time) (*domain.Loan, error)
	Transition(ctx context.Context, id string, to domain.LoanStatus, reason string) (*domain.Loan, error)
	Restructure(ctx context.Context, id string, input usecase.RestructureInput) (*domain.Loan, *domain.Loan, error)
	PreviewPenalties(ctx context.Context, id string, asOf time.Time) (*usecase.DueSummary, error)
	EvaluateDelinquency(ctx context.Context, id string, asOf time.Time) (*usecase.EvaluationResult, error)
}

// LoanHandler handles loan-related HTTP requests.
type LoanHandler struct {
	loanUC       LoanService
	defaultScale int32
	now          func() time.Time
}

// NewLoanHandler creates a new LoanHandler. defaultScale fills terms that
// carry no money scale.
func NewLoanHandler(loanUC LoanService, defaultScale int32) *LoanHandler {
	return &LoanHandler{
		loanUC:       loanUC,
		defaultScale: defaultScale,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Create records a loan application.
func (h *LoanHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateLoanRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	loan, err := h.loanUC.CreateLoan(r.Context(), req.ToUseCaseInput(h.defaultScale, h.now()))
	if err != nil {
		writeDomainError(w, "failed to create loan", err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.LoanFromDomain(loan))
}

// PreviewSchedule returns a schedule for terms without creating a loan.
func (h *LoanHandler) PreviewSchedule(w http.ResponseWriter, r *http.Request) {
	var req dto.SchedulePreviewRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	schedule, err := h.loanUC.PreviewSchedule(req.ProductCode, req.Terms.ToDomain(h.defaultScale), req.DisbursementDate.OrNow(h.now()))
	if err != nil {
		writeDomainError(w, "failed to generate schedule", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ScheduleFromDomain(schedule))
}

// Get retrieves a loan by ID.
func (h *LoanHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing loan ID", "")
		return
	}

	loan, err := h.loanUC.GetLoan(r.Context(), id)
	if err != nil {
		writeDomainError(w, "failed to get loan", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.LoanFromDomain(loan))
}

// List lists loans filtered by status and borrower.
func (h *LoanHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := usecase.LoanFilter{
		Status:     domain.LoanStatus(r.URL.Query().Get("status")),
		BorrowerID: r.URL.Query().Get("borrower_id"),
		Limit:      parseIntQuery(r, "limit", 20),
		Offset:     parseIntQuery(r, "offset", 0),
	}

	loans, err := h.loanUC.ListLoans(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list loans", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.LoansFromDomain(loans))
}

// Disburse opens a processing loan and regenerates its schedule from the
// actual disbursement date.
func (h *LoanHandler) Disburse(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req dto.DisburseRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	loan, err := h.loanUC.Disburse(r.Context(), id, req.DisbursementDate.OrNow(h.now()))
	if err != nil {
		writeDomainError(w, "failed to disburse loan", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.LoanFromDomain(loan))
}

// Transition moves a loan to another status.
func (h *LoanHandler) Transition(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req dto.TransitionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if req.Status == "" {
		writeError(w, http.StatusBadRequest, "missing target status", "")
		return
	}

	loan, err := h.loanUC.Transition(r.Context(), id, req.Status, req.Reason)
	if err != nil {
		writeDomainError(w, "failed to transition loan", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.LoanFromDomain(loan))
}

// Restructure ends a loan as restructured and opens its replacement.
func (h *LoanHandler) Restructure(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req dto.RestructureRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	original, replacement, err := h.loanUC.Restructure(r.Context(), id, req.ToUseCaseInput(h.defaultScale))
	if err != nil {
		writeDomainError(w, "failed to restructure loan", err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.RestructureResponse{
		Original:    dto.LoanFromDomain(original),
		Replacement: dto.LoanFromDomain(replacement),
	})
}

// Penalties returns penalties and the amount due as of a date.
func (h *LoanHandler) Penalties(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	asOf, err := parseDateQuery(r, "as_of", h.now())
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid as_of", err.Error())
		return
	}

	summary, err := h.loanUC.PreviewPenalties(r.Context(), id, asOf)
	if err != nil {
		writeDomainError(w, "failed to compute penalties", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.DueFromSummary(summary))
}

// Evaluate runs delinquency evaluation for one loan.
func (h *LoanHandler) Evaluate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req dto.EvaluateRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	result, err := h.loanUC.EvaluateDelinquency(r.Context(), id, req.AsOf.OrNow(h.now()))
	if err != nil {
		writeDomainError(w, "failed to evaluate loan", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.EvaluationFromResult(result))
}
