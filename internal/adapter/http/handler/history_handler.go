package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/loanledger/internal/adapter/http/dto"
	"github.com/iho/loanledger/internal/domain"
)

// AuditReader reads the audit trail.
type AuditReader interface {
	GetByResourceID(ctx context.Context, resourceType, resourceID string) ([]*domain.AuditLog, error)
}

// EventReader reads outbox events of an aggregate.
type EventReader interface {
	GetByAggregate(ctx context.Context, aggregateType, aggregateID string, limit, offset int) ([]*domain.OutboxEvent, error)
}

// HistoryHandler serves the audit trail and domain events of a loan.
type HistoryHandler struct {
	audit  AuditReader
	events EventReader
}

// NewHistoryHandler creates a new HistoryHandler.
func NewHistoryHandler(audit AuditReader, events EventReader) *HistoryHandler {
	return &HistoryHandler{audit: audit, events: events}
}

// Audit lists audit entries of a loan.
func (h *HistoryHandler) Audit(w http.ResponseWriter, r *http.Request) {
	logs, err := h.audit.GetByResourceID(r.Context(), domain.ResourceTypeLoan, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list audit logs", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.AuditLogsFromDomain(logs))
}

// Events lists domain events emitted for a loan.
func (h *HistoryHandler) Events(w http.ResponseWriter, r *http.Request) {
	events, err := h.events.GetByAggregate(r.Context(), domain.AggregateTypeLoan, chi.URLParam(r, "id"),
		parseIntQuery(r, "limit", 100), parseIntQuery(r, "offset", 0))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list events", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.EventsFromDomain(events))
}
