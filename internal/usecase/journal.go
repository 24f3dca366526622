package usecase

import (
	"context"
	"time"

	"github.com/iho/loanledger/internal/domain"
	"github.com/iho/loanledger/internal/infrastructure/metrics"
)

// journal writes outbox events and audit logs inside the caller's
// transaction so they commit or roll back with the state change.
type journal struct {
	outboxRepo OutboxRepository
	auditRepo  AuditRepository
	idGen      IDGenerator
	metrics    *metrics.Metrics
}

func (j journal) emit(ctx context.Context, tx Transaction, loanID, eventType string, payload any, now time.Time) error {
	event := &domain.OutboxEvent{
		ID:            j.idGen.Generate(),
		AggregateID:   loanID,
		AggregateType: domain.AggregateTypeLoan,
		EventType:     eventType,
		Payload:       domain.MarshalState(payload),
		CreatedAt:     now,
		Published:     false,
	}
	return j.outboxRepo.Create(ctx, tx, event)
}

func (j journal) statusChanged(ctx context.Context, tx Transaction, change domain.StatusChange, now time.Time) error {
	if err := j.emit(ctx, tx, change.LoanID, domain.EventTypeStatusChanged, domain.NewStatusChangedEvent(change), now); err != nil {
		return err
	}
	if j.metrics != nil {
		j.metrics.StatusTransitions.WithLabelValues(string(change.From), string(change.To)).Inc()
	}
	return nil
}

func (j journal) audit(ctx context.Context, tx Transaction, action domain.AuditAction, resourceType, resourceID string, before, after any) error {
	if j.auditRepo == nil {
		return nil
	}

	log := &domain.AuditLog{
		ID:           j.idGen.Generate(),
		Actor:        domain.ActorFromContext(ctx),
		RequestID:    domain.RequestIDFromContext(ctx),
		Action:       string(action),
		ResourceType: resourceType,
		ResourceID:   resourceID,
		BeforeState:  domain.MarshalState(before),
		AfterState:   domain.MarshalState(after),
		Status:       string(domain.AuditStatusSuccess),
		CreatedAt:    time.Now().UTC(),
	}
	if err := j.auditRepo.CreateTx(ctx, tx, log); err != nil {
		return err
	}
	if j.metrics != nil {
		j.metrics.AuditLogsCreated.WithLabelValues(log.Action, log.Status).Inc()
	}
	return nil
}

// loanState is the audited view of a loan.
func loanState(l *domain.Loan) map[string]any {
	if l == nil {
		return nil
	}
	return map[string]any{
		"id":                  l.ID,
		"status":              l.Status,
		"outstanding_balance": l.OutstandingBalance.String(),
		"cumulative_paid":     l.CumulativePaid.String(),
		"credit_balance":      l.CreditBalance.String(),
		"version":             l.Version,
	}
}
