package postgres

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/iho/loanledger/internal/domain"
	"github.com/iho/loanledger/internal/usecase"
)

// DiscardOutboxRepository drops events instead of storing them. It backs
// deployments that run with the outbox disabled.
type DiscardOutboxRepository struct {
	discarded atomic.Int64
}

// NewDiscardOutboxRepository creates a new DiscardOutboxRepository.
func NewDiscardOutboxRepository() *DiscardOutboxRepository {
	return &DiscardOutboxRepository{}
}

func (r *DiscardOutboxRepository) Create(_ context.Context, _ usecase.Transaction, _ *domain.OutboxEvent) error {
	r.discarded.Add(1)
	return nil
}

// Discarded reports how many events were dropped.
func (r *DiscardOutboxRepository) Discarded() int64 {
	return r.discarded.Load()
}

func (r *DiscardOutboxRepository) GetUnpublished(context.Context, int) ([]*domain.OutboxEvent, error) {
	return nil, nil
}

func (r *DiscardOutboxRepository) MarkPublished(context.Context, string, time.Time) error {
	return nil
}

func (r *DiscardOutboxRepository) GetByAggregate(context.Context, string, string, int, int) ([]*domain.OutboxEvent, error) {
	return nil, nil
}

func (r *DiscardOutboxRepository) DeletePublished(context.Context, time.Time) error {
	return nil
}
