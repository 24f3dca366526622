package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"

	"github.com/iho/loanledger/internal/domain"
)

func TestAuditRepositoryCreateTxAssignsID(t *testing.T) {
	pool := newMockPool(t)
	tx := beginTx(t, pool)
	pool.ExpectExec(`INSERT INTO audit_logs`).WithArgs(anyArgs(13)...).WillReturnResult(pgxmock.NewResult("INSERT", 1))

	log := &domain.AuditLog{
		Actor:        "collector-7",
		Action:       string(domain.AuditActionRepaymentApply),
		ResourceType: domain.ResourceTypeLoan,
		ResourceID:   "loan-1",
		AfterState:   domain.JSON{"outstanding_balance": "1232"},
		Status:       string(domain.AuditStatusSuccess),
		CreatedAt:    time.Now(),
	}
	if err := NewAuditRepository(pool).CreateTx(context.Background(), tx, log); err != nil {
		t.Fatalf("CreateTx: %v", err)
	}
	if log.ID == "" {
		t.Fatalf("expected generated id")
	}
	assertExpectations(t, pool)
}

func TestAuditRepositoryGetByResourceID(t *testing.T) {
	created := time.Date(2024, 2, 10, 12, 0, 0, 0, time.UTC)

	pool := newMockPool(t)
	pool.ExpectQuery(`FROM audit_logs`).
		WithArgs("", "", "loan", "loan-1", pgxmock.AnyArg(), pgxmock.AnyArg(), int32(defaultAuditLimit), int32(0)).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "actor", "action", "resource_type", "resource_id", "ip_address", "user_agent",
			"request_id", "before_state", "after_state", "status", "error_message", "created_at",
		}).AddRow("a-1", "system", "loan.create", "loan", "loan-1", "", "", "",
			nil, []byte(`{"status":"processing"}`), "success", "", created))

	logs, err := NewAuditRepository(pool).GetByResourceID(context.Background(), "loan", "loan-1")
	if err != nil {
		t.Fatalf("GetByResourceID: %v", err)
	}
	if len(logs) != 1 {
		t.Fatalf("logs = %d, want 1", len(logs))
	}
	if logs[0].AfterState["status"] != "processing" || logs[0].BeforeState != nil {
		t.Fatalf("unexpected states: %+v", logs[0])
	}
	assertExpectations(t, pool)
}
