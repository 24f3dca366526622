package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/iho/loanledger/internal/domain"
	"github.com/iho/loanledger/internal/usecase"
	"github.com/iho/loanledger/internal/usecase/mockgen"
)

type gomockLoanDeps struct {
	txManager *mockgen.MockTransactionManager
	tx        *mockgen.MockTransaction
	loans     *mockgen.MockLoanRepository
	outbox    *mockgen.MockOutboxRepository
	audit     *mockgen.MockAuditRepository
	ids       *mockgen.MockIDGenerator
	cache     *mockgen.MockCache
}

func newGomockLoanDeps(ctrl *gomock.Controller) *gomockLoanDeps {
	d := &gomockLoanDeps{
		txManager: mockgen.NewMockTransactionManager(ctrl),
		tx:        mockgen.NewMockTransaction(ctrl),
		loans:     mockgen.NewMockLoanRepository(ctrl),
		outbox:    mockgen.NewMockOutboxRepository(ctrl),
		audit:     mockgen.NewMockAuditRepository(ctrl),
		ids:       mockgen.NewMockIDGenerator(ctrl),
		cache:     mockgen.NewMockCache(ctrl),
	}
	d.ids.EXPECT().Generate().Return("gen-id").AnyTimes()
	return d
}

func (d *gomockLoanDeps) loanUseCase(catalog usecase.ProductCatalog) *usecase.LoanUseCase {
	return usecase.NewLoanUseCase(d.txManager, d.loans, d.outbox, d.audit, d.ids, nil, usecase.LoanUseCaseConfig{
		Catalog: catalog,
		Cache:   d.cache,
	})
}

func processingLoan(t *testing.T) *domain.Loan {
	t.Helper()
	loan, err := domain.NewLoan("loan-1", flatTerms(), date(2024, 1, 10), date(2024, 1, 10))
	require.NoError(t, err)
	return loan
}

func TestLoanUseCase_TransitionCommitsInOneTransaction(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	d := newGomockLoanDeps(ctrl)
	loan := processingLoan(t)

	gomock.InOrder(
		d.txManager.EXPECT().Begin(gomock.Any()).Return(d.tx, nil),
		d.loans.EXPECT().GetByIDForUpdate(gomock.Any(), d.tx, "loan-1").Return(loan, nil),
		d.outbox.EXPECT().Create(gomock.Any(), d.tx, gomock.Any()).DoAndReturn(
			func(_ context.Context, _ usecase.Transaction, event *domain.OutboxEvent) error {
				assert.Equal(t, domain.EventTypeStatusChanged, event.EventType)
				return nil
			},
		),
		d.loans.EXPECT().Update(gomock.Any(), d.tx, loan).Return(nil),
		d.audit.EXPECT().CreateTx(gomock.Any(), d.tx, gomock.Any()).Return(nil),
		d.tx.EXPECT().Commit(gomock.Any()).Return(nil),
		d.tx.EXPECT().Rollback(gomock.Any()).Return(nil),
		d.cache.EXPECT().Delete(gomock.Any(), "loan:loan-1").Return(nil),
	)

	got, err := d.loanUseCase(nil).Transition(context.Background(), "loan-1", domain.LoanDenied, "kyc failed")
	require.NoError(t, err)
	assert.Equal(t, domain.LoanDenied, got.Status)
}

func TestLoanUseCase_TransitionRollsBackWhenUpdateFails(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	d := newGomockLoanDeps(ctrl)
	updateErr := errors.New("version conflict")

	gomock.InOrder(
		d.txManager.EXPECT().Begin(gomock.Any()).Return(d.tx, nil),
		d.loans.EXPECT().GetByIDForUpdate(gomock.Any(), d.tx, "loan-1").Return(processingLoan(t), nil),
		d.outbox.EXPECT().Create(gomock.Any(), d.tx, gomock.Any()).Return(nil),
		d.loans.EXPECT().Update(gomock.Any(), d.tx, gomock.Any()).Return(updateErr),
		d.tx.EXPECT().Rollback(gomock.Any()).Return(nil),
	)

	_, err := d.loanUseCase(nil).Transition(context.Background(), "loan-1", domain.LoanDenied, "kyc failed")
	assert.ErrorIs(t, err, updateErr)
}

func TestLoanUseCase_BeginFailureTouchesNothing(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	d := newGomockLoanDeps(ctrl)
	beginErr := errors.New("pool exhausted")
	d.txManager.EXPECT().Begin(gomock.Any()).Return(nil, beginErr)

	_, err := d.loanUseCase(nil).Disburse(context.Background(), "loan-1", date(2024, 1, 10))
	assert.ErrorIs(t, err, beginErr)
}

func TestLoanUseCase_CreateLoanFromProduct_Gomock(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	d := newGomockLoanDeps(ctrl)
	catalog := mockgen.NewMockProductCatalog(ctrl)
	catalog.EXPECT().Product("micro-weekly").Return(domain.LoanTerms{
		AnnualRate:     dec("0.26"),
		InterestMethod: domain.InterestFlat,
		Term:           8,
		Cycle:          domain.CycleWeekly,
		Currency:       "USD",
	}, nil)

	var events []string
	d.txManager.EXPECT().Begin(gomock.Any()).Return(d.tx, nil)
	d.loans.EXPECT().Create(gomock.Any(), d.tx, gomock.Any()).Return(nil)
	d.outbox.EXPECT().Create(gomock.Any(), d.tx, gomock.Any()).DoAndReturn(
		func(_ context.Context, _ usecase.Transaction, event *domain.OutboxEvent) error {
			events = append(events, event.EventType)
			return nil
		},
	).Times(2)
	d.audit.EXPECT().CreateTx(gomock.Any(), d.tx, gomock.Any()).Return(nil)
	d.tx.EXPECT().Commit(gomock.Any()).Return(nil)
	d.tx.EXPECT().Rollback(gomock.Any()).Return(nil)

	loan, err := d.loanUseCase(catalog).CreateLoan(context.Background(), usecase.CreateLoanInput{
		ProductCode:          "micro-weekly",
		BorrowerID:           "b-1",
		Terms:                domain.LoanTerms{Principal: dec("800")},
		ExpectedDisbursement: date(2024, 1, 10),
	})
	require.NoError(t, err)

	assert.Equal(t, domain.LoanProcessing, loan.Status)
	assert.Equal(t, domain.CycleWeekly, loan.Terms.Cycle)
	assert.Len(t, loan.Installments, 8)
	assert.Equal(t, []string{domain.EventTypeLoanCreated, domain.EventTypeScheduleGenerated}, events)
}

func TestRepaymentUseCase_DuplicateKeyRollsBack(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	d := newGomockLoanDeps(ctrl)
	repayments := mockgen.NewMockRepaymentRepository(ctrl)

	loan := processingLoan(t)
	_, err := loan.Transition(domain.LoanOpen, domain.TransitionContext{At: date(2024, 1, 10)})
	require.NoError(t, err)

	gomock.InOrder(
		d.txManager.EXPECT().Begin(gomock.Any()).Return(d.tx, nil),
		d.loans.EXPECT().GetByIDForUpdate(gomock.Any(), d.tx, "loan-1").Return(loan, nil),
		repayments.EXPECT().GetByIdempotencyKey(gomock.Any(), d.tx, "loan-1", "rcpt-1").Return(&domain.RepaymentEvent{ID: "r-0"}, nil),
		d.tx.EXPECT().Rollback(gomock.Any()).Return(nil),
	)

	uc := usecase.NewRepaymentUseCase(d.txManager, d.loans, repayments, d.outbox, d.audit, d.ids, nil, nil, d.cache, nil)
	_, err = uc.ApplyRepayment(context.Background(), usecase.ApplyRepaymentInput{
		LoanID: "loan-1", Amount: dec("112"), IdempotencyKey: "rcpt-1",
	})
	assert.ErrorIs(t, err, domain.ErrDuplicateRepayment)
	assert.True(t, loan.CumulativePaid.IsZero())
}

func TestReconciliationUseCase_LedgerQueryError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ledger := mockgen.NewMockLedgerRepository(ctrl)
	queryErr := errors.New("statement timeout")
	ledger.EXPECT().CheckConsistency(gomock.Any()).Return(decimal.Zero, decimal.Zero, queryErr)

	uc := usecase.NewReconciliationUseCase(nil, nil, ledger)
	err := uc.CheckLedgerConsistency(context.Background())
	assert.ErrorIs(t, err, queryErr)
	assert.NotErrorIs(t, err, usecase.ErrInconsistentLedger)
}
