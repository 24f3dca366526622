package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/iho/loanledger/internal/adapter/http/dto"
	"github.com/iho/loanledger/internal/domain"
)

type auditReaderStub struct {
	logs []*domain.AuditLog
	err  error

	resourceType string
	resourceID   string
}

func (s *auditReaderStub) GetByResourceID(ctx context.Context, resourceType, resourceID string) ([]*domain.AuditLog, error) {
	s.resourceType, s.resourceID = resourceType, resourceID
	return s.logs, s.err
}

type eventReaderStub struct {
	events []*domain.OutboxEvent
	err    error
	limit  int
}

func (s *eventReaderStub) GetByAggregate(ctx context.Context, aggregateType, aggregateID string, limit, offset int) ([]*domain.OutboxEvent, error) {
	s.limit = limit
	return s.events, s.err
}

func TestHistoryHandler_Audit(t *testing.T) {
	audit := &auditReaderStub{logs: []*domain.AuditLog{
		{ID: "a-1", Actor: "ops", Action: string(domain.AuditActionLoanDisburse), ResourceType: domain.ResourceTypeLoan, ResourceID: "loan-1", Status: "success", CreatedAt: time.Now()},
	}}
	h := NewHistoryHandler(audit, &eventReaderStub{})

	rec := httptest.NewRecorder()
	h.Audit(rec, withURLParam(httptest.NewRequest(http.MethodGet, "/loans/loan-1/audit", nil), "id", "loan-1"))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if audit.resourceType != domain.ResourceTypeLoan || audit.resourceID != "loan-1" {
		t.Fatalf("unexpected lookup %s/%s", audit.resourceType, audit.resourceID)
	}

	var resp []dto.AuditLogResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp) != 1 || resp[0].Action != "loan.disburse" {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestHistoryHandler_Events(t *testing.T) {
	events := &eventReaderStub{events: []*domain.OutboxEvent{
		{ID: "e-1", AggregateID: "loan-1", EventType: domain.EventTypePaymentApplied, Payload: map[string]any{"loan_id": "loan-1"}},
	}}
	h := NewHistoryHandler(&auditReaderStub{}, events)

	rec := httptest.NewRecorder()
	h.Events(rec, withURLParam(httptest.NewRequest(http.MethodGet, "/loans/loan-1/events?limit=5", nil), "id", "loan-1"))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if events.limit != 5 {
		t.Fatalf("expected limit 5, got %d", events.limit)
	}

	events.err = errors.New("db down")
	rec = httptest.NewRecorder()
	h.Events(rec, withURLParam(httptest.NewRequest(http.MethodGet, "/loans/loan-1/events", nil), "id", "loan-1"))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}
