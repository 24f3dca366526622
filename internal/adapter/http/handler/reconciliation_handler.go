package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/loanledger/internal/adapter/http/dto"
	"github.com/iho/loanledger/internal/usecase"
)

// ReconciliationService checks recorded balances against repayment events.
type ReconciliationService interface {
	ReconcileLoan(ctx context.Context, loanID string) (*usecase.ReconciliationResult, error)
	GenerateReconciliationReport(ctx context.Context) (*usecase.ReconciliationReport, error)
	CheckLedgerConsistency(ctx context.Context) error
}

// ReconciliationHandler exposes reconciliation checks.
type ReconciliationHandler struct {
	reconciliationUC ReconciliationService
}

// NewReconciliationHandler creates a new ReconciliationHandler.
func NewReconciliationHandler(reconciliationUC ReconciliationService) *ReconciliationHandler {
	return &ReconciliationHandler{reconciliationUC: reconciliationUC}
}

// ReconcileLoan reconciles one loan.
func (h *ReconciliationHandler) ReconcileLoan(w http.ResponseWriter, r *http.Request) {
	result, err := h.reconciliationUC.ReconcileLoan(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, "failed to reconcile loan", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ReconciliationFromResult(result))
}

// Report reconciles every loan.
func (h *ReconciliationHandler) Report(w http.ResponseWriter, r *http.Request) {
	report, err := h.reconciliationUC.GenerateReconciliationReport(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to generate report", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.ReportFromDomain(report))
}

// Consistency runs the ledger-wide consistency check. An inconsistent ledger
// is reported with 409.
func (h *ReconciliationHandler) Consistency(w http.ResponseWriter, r *http.Request) {
	err := h.reconciliationUC.CheckLedgerConsistency(r.Context())
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, dto.ConsistencyResponse{Consistent: true})
	case errors.Is(err, usecase.ErrInconsistentLedger):
		writeJSON(w, http.StatusConflict, dto.ConsistencyResponse{Consistent: false, Message: err.Error()})
	default:
		writeError(w, http.StatusInternalServerError, "failed to check ledger", err.Error())
	}
}
