package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/iho/loanledger/internal/adapter/http/dto"
	"github.com/iho/loanledger/internal/adapter/importer"
	"github.com/iho/loanledger/internal/domain"
	"github.com/iho/loanledger/internal/usecase"
)

// IdempotencyKeyHeader carries the repayment idempotency key when the body
// does not.
const IdempotencyKeyHeader = "Idempotency-Key"

const importFileField = "file"

// RepaymentService is the repayment surface the handler needs.
type RepaymentService interface {
	ApplyRepayment(ctx context.Context, input usecase.ApplyRepaymentInput) (*usecase.ApplyRepaymentResult, error)
	ListRepayments(ctx context.Context, loanID string, limit, offset int) ([]*domain.RepaymentEvent, error)
	ImportRepayments(ctx context.Context, rows []usecase.ImportRow, concurrency int) []usecase.ImportResult
}

// RepaymentConfig tunes repayment endpoints.
type RepaymentConfig struct {
	MaxImportBytes    int64
	ImportConcurrency int
}

// RepaymentHandler handles repayment-related HTTP requests.
type RepaymentHandler struct {
	repaymentUC RepaymentService
	cfg         RepaymentConfig
	now         func() time.Time
}

// NewRepaymentHandler creates a new RepaymentHandler.
func NewRepaymentHandler(repaymentUC RepaymentService, cfg RepaymentConfig) *RepaymentHandler {
	if cfg.MaxImportBytes <= 0 {
		cfg.MaxImportBytes = 10 << 20
	}
	return &RepaymentHandler{
		repaymentUC: repaymentUC,
		cfg:         cfg,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Apply allocates a repayment to a loan exactly once per idempotency key.
func (h *RepaymentHandler) Apply(w http.ResponseWriter, r *http.Request) {
	loanID := chi.URLParam(r, "id")

	var req dto.ApplyRepaymentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	input := req.ToUseCaseInput(loanID, r.Header.Get(IdempotencyKeyHeader), h.now())
	if input.IdempotencyKey == "" {
		writeError(w, http.StatusBadRequest, "missing idempotency key", "set idempotency_key or the Idempotency-Key header")
		return
	}

	result, err := h.repaymentUC.ApplyRepayment(r.Context(), input)
	if err != nil {
		writeDomainError(w, "failed to apply repayment", err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.ApplyRepaymentFromResult(result))
}

// ListByLoan lists the repayment events of a loan.
func (h *RepaymentHandler) ListByLoan(w http.ResponseWriter, r *http.Request) {
	loanID := chi.URLParam(r, "id")

	repayments, err := h.repaymentUC.ListRepayments(r.Context(), loanID,
		parseIntQuery(r, "limit", 50), parseIntQuery(r, "offset", 0))
	if err != nil {
		writeDomainError(w, "failed to list repayments", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.RepaymentsFromDomain(repayments))
}

// Import applies a CSV or XLSX file of repayments. Each row succeeds or fails
// on its own; the response lists every row.
func (h *RepaymentHandler) Import(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxImportBytes)
	if err := r.ParseMultipartForm(h.cfg.MaxImportBytes); err != nil {
		if isBodyTooLarge(err) {
			writeError(w, http.StatusRequestEntityTooLarge, "import file too large", err.Error())
			return
		}
		writeError(w, http.StatusBadRequest, "invalid multipart form", err.Error())
		return
	}

	file, header, err := r.FormFile(importFileField)
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing import file", err.Error())
		return
	}
	defer func() { _ = file.Close() }()

	format := importer.Format(r.URL.Query().Get("format"))
	if format == "" {
		format, err = importer.DetectFormat(header.Filename, header.Header.Get("Content-Type"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "unsupported import format", err.Error())
			return
		}
	}

	parsed, err := importer.Parse(file, format)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to parse import file", err.Error())
		return
	}

	results := h.repaymentUC.ImportRepayments(r.Context(), parsed.Rows, h.cfg.ImportConcurrency)
	results = append(results, parsed.Failures()...)

	writeJSON(w, http.StatusOK, dto.ImportFromResults(results))
}

// isBodyTooLarge reports whether err came from the MaxBytesReader limit.
// multipart does not always wrap the reader error with %w.
func isBodyTooLarge(err error) bool {
	var tooLarge *http.MaxBytesError
	return errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large")
}
