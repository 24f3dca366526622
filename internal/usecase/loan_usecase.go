package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/loanledger/internal/domain"
	"github.com/iho/loanledger/internal/infrastructure/metrics"
)

// LoanUseCase handles the loan lifecycle outside of repayments.
type LoanUseCase struct {
	txManager TransactionManager
	loanRepo  LoanRepository
	catalog   ProductCatalog
	cache     Cache
	cacheTTL  time.Duration
	threshold int
	journal   journal
	metrics   *metrics.Metrics
}

// LoanUseCaseConfig holds optional collaborators and policy.
type LoanUseCaseConfig struct {
	Catalog               ProductCatalog
	Cache                 Cache
	CacheTTL              time.Duration
	MissedCyclesThreshold int
}

// NewLoanUseCase creates a new LoanUseCase.
func NewLoanUseCase(
	txManager TransactionManager,
	loanRepo LoanRepository,
	outboxRepo OutboxRepository,
	auditRepo AuditRepository,
	idGen IDGenerator,
	metrics *metrics.Metrics,
	cfg LoanUseCaseConfig,
) *LoanUseCase {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultLoanCacheTTL
	}
	if cfg.MissedCyclesThreshold <= 0 {
		cfg.MissedCyclesThreshold = domain.DefaultMissedCyclesThreshold
	}

	return &LoanUseCase{
		txManager: txManager,
		loanRepo:  loanRepo,
		catalog:   cfg.Catalog,
		cache:     cfg.Cache,
		cacheTTL:  cfg.CacheTTL,
		threshold: cfg.MissedCyclesThreshold,
		journal:   journal{outboxRepo: outboxRepo, auditRepo: auditRepo, idGen: idGen, metrics: metrics},
		metrics:   metrics,
	}
}

// CreateLoanInput represents a loan application.
type CreateLoanInput struct {
	ProductCode           string
	BorrowerID            string
	Terms                 domain.LoanTerms
	ExpectedDisbursement  time.Time
	MissedCyclesThreshold int
	CustomFields          map[string]any
}

// CreateLoan records an application in processing with its schedule.
func (uc *LoanUseCase) CreateLoan(ctx context.Context, input CreateLoanInput) (*domain.Loan, error) {
	terms, err := uc.ResolveTerms(input.ProductCode, input.Terms)
	if err != nil {
		return nil, err
	}
	if err := domain.ValidateCurrency(terms.Currency); err != nil {
		return nil, err
	}
	if err := domain.ValidateCustomFields(input.CustomFields); err != nil {
		return nil, err
	}

	expected := input.ExpectedDisbursement
	if expected.IsZero() {
		expected = time.Now().UTC()
	}

	now := time.Now().UTC()
	loan, err := domain.NewLoan(uc.journal.idGen.Generate(), terms, expected, now)
	if err != nil {
		return nil, err
	}
	loan.ProductCode = input.ProductCode
	loan.BorrowerID = input.BorrowerID
	loan.CustomFields = input.CustomFields
	loan.MissedCyclesThreshold = uc.threshold
	if input.MissedCyclesThreshold > 0 {
		loan.MissedCyclesThreshold = input.MissedCyclesThreshold
	}
	for i := range loan.Installments {
		loan.Installments[i].ID = uc.journal.idGen.Generate()
	}

	err = inTx(ctx, uc.txManager, func(txCtx context.Context, tx Transaction) error {
		if err := uc.loanRepo.Create(txCtx, tx, loan); err != nil {
			return err
		}

		created := map[string]any{
			"loan_id":      loan.ID,
			"borrower_id":  loan.BorrowerID,
			"product_code": loan.ProductCode,
			"principal":    loan.Terms.Principal.String(),
			"currency":     loan.Terms.Currency,
		}
		if err := uc.journal.emit(txCtx, tx, loan.ID, domain.EventTypeLoanCreated, created, now); err != nil {
			return err
		}
		if err := uc.journal.emit(txCtx, tx, loan.ID, domain.EventTypeScheduleGenerated, domain.NewScheduleGeneratedEvent(loan), now); err != nil {
			return err
		}
		return uc.journal.audit(txCtx, tx, domain.AuditActionLoanCreate, domain.ResourceTypeLoan, loan.ID, nil, loanState(loan))
	})
	if err != nil {
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.LoansCreated.Inc()
		uc.metrics.SchedulesGenerated.WithLabelValues(string(terms.InterestMethod)).Inc()
	}

	return loan, nil
}

// ResolveTerms merges application terms over the product defaults. Without
// a product code the application terms are used as given.
func (uc *LoanUseCase) ResolveTerms(productCode string, override domain.LoanTerms) (domain.LoanTerms, error) {
	if productCode == "" {
		return override, nil
	}
	if uc.catalog == nil {
		return domain.LoanTerms{}, fmt.Errorf("%w: product catalog not configured", domain.ErrInvalidTerms)
	}

	terms, err := uc.catalog.Product(productCode)
	if err != nil {
		return domain.LoanTerms{}, err
	}

	terms.Principal = override.Principal
	if override.Term > 0 {
		terms.Term = override.Term
	}
	if !override.AnnualRate.IsZero() {
		terms.AnnualRate = override.AnnualRate
	}
	if override.InterestMethod != "" {
		terms.InterestMethod = override.InterestMethod
	}
	if override.Cycle != "" {
		terms.Cycle = override.Cycle
	}
	if override.Currency != "" {
		terms.Currency = override.Currency
	}
	if override.GraceDays > 0 {
		terms.GraceDays = override.GraceDays
	}
	if len(override.Fees) > 0 {
		terms.Fees = override.Fees
	}
	terms.FirstRepaymentDate = override.FirstRepaymentDate
	terms.FirstRepaymentAmount = override.FirstRepaymentAmount

	return terms, nil
}

// PreviewSchedule generates a schedule without persisting anything.
func (uc *LoanUseCase) PreviewSchedule(productCode string, terms domain.LoanTerms, disbursement time.Time) ([]domain.Installment, error) {
	resolved, err := uc.ResolveTerms(productCode, terms)
	if err != nil {
		return nil, err
	}
	return domain.GenerateSchedule(resolved, disbursement)
}

// GetLoan returns a loan, reading through the cache when one is configured.
func (uc *LoanUseCase) GetLoan(ctx context.Context, id string) (*domain.Loan, error) {
	if uc.cache != nil {
		if data, err := uc.cache.Get(ctx, loanCacheKey(id)); err == nil && data != nil {
			var loan domain.Loan
			if err := json.Unmarshal(data, &loan); err == nil {
				uc.observeCache("hit")
				return &loan, nil
			}
		}
		uc.observeCache("miss")
	}

	loan, err := uc.loanRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if uc.cache != nil {
		if data, err := json.Marshal(loan); err == nil {
			_ = uc.cache.Set(ctx, loanCacheKey(id), data, uc.cacheTTL)
		}
	}

	return loan, nil
}

// ListLoans lists loans with pagination.
func (uc *LoanUseCase) ListLoans(ctx context.Context, filter LoanFilter) ([]*domain.Loan, error) {
	filter.Limit, filter.Offset, _ = domain.ValidatePagination(filter.Limit, filter.Offset)
	return uc.loanRepo.List(ctx, filter)
}

// Disburse regenerates the schedule from the actual disbursement date and
// opens the loan.
func (uc *LoanUseCase) Disburse(ctx context.Context, id string, at time.Time) (*domain.Loan, error) {
	if at.IsZero() {
		at = time.Now().UTC()
	}

	return uc.mutate(ctx, id, domain.AuditActionLoanDisburse, func(txCtx context.Context, tx Transaction, loan *domain.Loan, now time.Time) error {
		if err := loan.Reschedule(at); err != nil {
			return err
		}
		for i := range loan.Installments {
			loan.Installments[i].ID = uc.journal.idGen.Generate()
		}

		change, err := loan.Transition(domain.LoanOpen, domain.TransitionContext{At: at, Reason: "disbursed"})
		if err != nil {
			return err
		}

		if err := uc.journal.emit(txCtx, tx, loan.ID, domain.EventTypeScheduleGenerated, domain.NewScheduleGeneratedEvent(loan), now); err != nil {
			return err
		}
		if uc.metrics != nil {
			uc.metrics.SchedulesGenerated.WithLabelValues(string(loan.Terms.InterestMethod)).Inc()
		}
		return uc.journal.statusChanged(txCtx, tx, change, now)
	})
}

// Transition applies an explicit status decision such as denial. Opening a
// loan goes through Disburse and restructuring through Restructure.
func (uc *LoanUseCase) Transition(ctx context.Context, id string, to domain.LoanStatus, reason string) (*domain.Loan, error) {
	switch to {
	case domain.LoanOpen:
		return uc.Disburse(ctx, id, time.Now().UTC())
	case domain.LoanRestructured:
		return nil, fmt.Errorf("%w: restructuring requires new terms", domain.ErrInvalidTransition)
	}

	return uc.mutate(ctx, id, domain.AuditActionLoanTransition, func(txCtx context.Context, tx Transaction, loan *domain.Loan, now time.Time) error {
		change, err := loan.Transition(to, domain.TransitionContext{At: now, Reason: reason})
		if err != nil {
			return err
		}
		return uc.journal.statusChanged(txCtx, tx, change, now)
	})
}

// RestructureInput describes the replacement loan. A zero principal carries
// over the outstanding balance of the original loan.
type RestructureInput struct {
	Terms  domain.LoanTerms
	At     time.Time
	Reason string
}

// Restructure ends an open loan as restructured and creates an open
// replacement loan with a fresh schedule referencing it.
func (uc *LoanUseCase) Restructure(ctx context.Context, id string, input RestructureInput) (*domain.Loan, *domain.Loan, error) {
	at := input.At
	if at.IsZero() {
		at = time.Now().UTC()
	}

	var old, replacement *domain.Loan
	err := inTx(ctx, uc.txManager, func(txCtx context.Context, tx Transaction) error {
		var err error
		old, replacement, err = uc.restructure(txCtx, tx, id, input, at)
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	uc.invalidate(ctx, old.ID)
	if uc.metrics != nil {
		uc.metrics.LoansCreated.Inc()
	}

	return old, replacement, nil
}

func (uc *LoanUseCase) restructure(txCtx context.Context, tx Transaction, id string, input RestructureInput, at time.Time) (*domain.Loan, *domain.Loan, error) {
	old, err := uc.loanRepo.GetByIDForUpdate(txCtx, tx, id)
	if err != nil {
		return nil, nil, err
	}
	before := loanState(old)

	terms := input.Terms
	if terms.Principal.IsZero() {
		terms.Principal = old.OutstandingBalance
	}
	if terms.Currency == "" {
		terms.Currency = old.Terms.Currency
	}

	now := time.Now().UTC()
	replacement, err := domain.NewLoan(uc.journal.idGen.Generate(), terms, at, now)
	if err != nil {
		return nil, nil, err
	}

	change, err := old.Transition(domain.LoanRestructured, domain.TransitionContext{At: now, Reason: input.Reason})
	if err != nil {
		return nil, nil, err
	}

	replacement.BorrowerID = old.BorrowerID
	replacement.ProductCode = old.ProductCode
	replacement.CustomFields = old.CustomFields
	replacement.MissedCyclesThreshold = old.MissedCyclesThreshold
	replacement.RestructuredFrom = old.ID
	for i := range replacement.Installments {
		replacement.Installments[i].ID = uc.journal.idGen.Generate()
	}
	opened, err := replacement.Transition(domain.LoanOpen, domain.TransitionContext{At: at, Reason: "restructured from " + old.ID})
	if err != nil {
		return nil, nil, err
	}

	if err := uc.loanRepo.Update(txCtx, tx, old); err != nil {
		return nil, nil, err
	}
	if err := uc.loanRepo.Create(txCtx, tx, replacement); err != nil {
		return nil, nil, err
	}

	if err := uc.journal.statusChanged(txCtx, tx, change, now); err != nil {
		return nil, nil, err
	}
	restructured := domain.LoanRestructuredEvent{
		OriginalLoanID: old.ID,
		NewLoanID:      replacement.ID,
		Principal:      replacement.Terms.Principal.String(),
	}
	if err := uc.journal.emit(txCtx, tx, old.ID, domain.EventTypeLoanRestructured, restructured, now); err != nil {
		return nil, nil, err
	}
	if err := uc.journal.emit(txCtx, tx, replacement.ID, domain.EventTypeScheduleGenerated, domain.NewScheduleGeneratedEvent(replacement), now); err != nil {
		return nil, nil, err
	}
	if err := uc.journal.statusChanged(txCtx, tx, opened, now); err != nil {
		return nil, nil, err
	}
	if err := uc.journal.audit(txCtx, tx, domain.AuditActionLoanRestructure, domain.ResourceTypeLoan, old.ID, before, loanState(replacement)); err != nil {
		return nil, nil, err
	}

	return old, replacement, nil
}

// DueSummary is what a borrower owes as of a date.
type DueSummary struct {
	AsOf      time.Time
	Fees      decimal.Decimal
	Penalties decimal.Decimal
	Interest  decimal.Decimal
	Principal decimal.Decimal
	Total     decimal.Decimal
	Snapshot  domain.PenaltySnapshot
}

// PreviewPenalties computes penalties and the amount due as of a date
// without changing the loan.
func (uc *LoanUseCase) PreviewPenalties(ctx context.Context, id string, asOf time.Time) (*DueSummary, error) {
	loan, err := uc.loanRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	snapshot, err := domain.ComputePenalties(loan, asOf)
	if err != nil {
		return nil, err
	}

	summary := &DueSummary{AsOf: asOf, Snapshot: snapshot, Penalties: snapshot.Total()}
	for i := range loan.Installments {
		inst := &loan.Installments[i]
		if domain.DateOnly(inst.DueDate).After(domain.DateOnly(asOf)) {
			continue
		}
		summary.Fees = summary.Fees.Add(inst.FeeRemaining())
		summary.Interest = summary.Interest.Add(inst.InterestRemaining())
		summary.Principal = summary.Principal.Add(inst.PrincipalRemaining())
	}
	summary.Total = summary.Fees.Add(summary.Penalties).Add(summary.Interest).Add(summary.Principal)

	return summary, nil
}

// EvaluationResult reports a delinquency evaluation.
type EvaluationResult struct {
	LoanID            string
	MarkedOverdue     int
	ConsecutiveMissed int
	Penalties         decimal.Decimal
	Defaulted         bool
	Status            domain.LoanStatus
}

// EvaluateDelinquency marks overdue installments, runs the penalty
// calculator and moves the loan to default when missed cycles exceed the
// loan's threshold.
func (uc *LoanUseCase) EvaluateDelinquency(ctx context.Context, id string, asOf time.Time) (*EvaluationResult, error) {
	result := &EvaluationResult{LoanID: id}

	_, err := uc.mutate(ctx, id, domain.AuditActionLoanEvaluate, func(txCtx context.Context, tx Transaction, loan *domain.Loan, now time.Time) error {
		if loan.Status != domain.LoanOpen && loan.Status != domain.LoanDefault {
			return fmt.Errorf("%w: cannot evaluate a %s loan", domain.ErrInvalidTransition, loan.Status)
		}

		result.MarkedOverdue = loan.MarkOverdue(asOf)
		result.ConsecutiveMissed = loan.ConsecutiveMissedCycles(asOf)

		snapshot, err := domain.ComputePenalties(loan, asOf)
		if err != nil {
			return err
		}
		result.Penalties = snapshot.Total()

		if loan.ShouldDefault(asOf) {
			change, err := loan.Transition(domain.LoanDefault, domain.TransitionContext{
				At:     asOf,
				Reason: fmt.Sprintf("%d consecutive missed cycles", result.ConsecutiveMissed),
			})
			if err != nil {
				return err
			}
			result.Defaulted = true
			if err := uc.journal.statusChanged(txCtx, tx, change, now); err != nil {
				return err
			}
		}

		result.Status = loan.Status
		return nil
	})
	if err != nil {
		return nil, err
	}

	if uc.metrics != nil {
		outcome := "current"
		switch {
		case result.Defaulted:
			outcome = "defaulted"
		case result.ConsecutiveMissed > 0:
			outcome = "overdue"
		}
		uc.metrics.DelinquencyResults.WithLabelValues(outcome).Inc()
	}

	return result, nil
}

// SweepDelinquency evaluates every open loan as of asOf. Failures on one
// loan do not stop the sweep; they are returned joined.
func (uc *LoanUseCase) SweepDelinquency(ctx context.Context, asOf time.Time) (evaluated, defaulted int, err error) {
	if uc.metrics != nil {
		uc.metrics.DelinquencySweeps.Inc()
	}

	var ids []string
	for offset := 0; ; offset += sweepPageSize {
		loans, err := uc.loanRepo.List(ctx, LoanFilter{Status: domain.LoanOpen, Limit: sweepPageSize, Offset: offset})
		if err != nil {
			return 0, 0, err
		}
		for _, l := range loans {
			ids = append(ids, l.ID)
		}
		if len(loans) < sweepPageSize {
			break
		}
	}

	var errs []error
	for _, id := range ids {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		res, evalErr := uc.EvaluateDelinquency(ctx, id, asOf)
		if evalErr != nil {
			errs = append(errs, fmt.Errorf("loan %s: %w", id, evalErr))
			continue
		}
		evaluated++
		if res.Defaulted {
			defaulted++
		}
	}

	return evaluated, defaulted, errors.Join(errs...)
}

// mutate runs fn on a locked loan inside a transaction and persists it.
func (uc *LoanUseCase) mutate(
	ctx context.Context,
	id string,
	action domain.AuditAction,
	fn func(txCtx context.Context, tx Transaction, loan *domain.Loan, now time.Time) error,
) (*domain.Loan, error) {
	var loan *domain.Loan
	err := inTx(ctx, uc.txManager, func(txCtx context.Context, tx Transaction) error {
		l, err := uc.loanRepo.GetByIDForUpdate(txCtx, tx, id)
		if err != nil {
			return err
		}
		before := loanState(l)

		now := time.Now().UTC()
		if err := fn(txCtx, tx, l, now); err != nil {
			return err
		}
		l.UpdatedAt = now

		if err := uc.loanRepo.Update(txCtx, tx, l); err != nil {
			return err
		}
		if err := uc.journal.audit(txCtx, tx, action, domain.ResourceTypeLoan, l.ID, before, loanState(l)); err != nil {
			return err
		}
		loan = l
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.invalidate(ctx, loan.ID)
	return loan, nil
}

func (uc *LoanUseCase) invalidate(ctx context.Context, id string) {
	if uc.cache != nil {
		_ = uc.cache.Delete(ctx, loanCacheKey(id))
	}
}

func (uc *LoanUseCase) observeCache(result string) {
	if uc.metrics != nil {
		uc.metrics.CacheLookups.WithLabelValues(result).Inc()
	}
}

func loanCacheKey(id string) string {
	return "loan:" + id
}
