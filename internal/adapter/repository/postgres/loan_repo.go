package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/iho/loanledger/internal/domain"
	"github.com/iho/loanledger/internal/infrastructure/postgres/generated"
	"github.com/iho/loanledger/internal/usecase"
)

// ErrVersionConflict is returned when a loan changed since it was read.
var ErrVersionConflict = errors.New("loan version conflict")

// LoanRepository implements usecase.LoanRepository. Loans are stored as one
// row plus one row per installment.
type LoanRepository struct {
	db      generated.DBTX
	queries *generated.Queries
}

// NewLoanRepository creates a new LoanRepository.
func NewLoanRepository(db generated.DBTX) *LoanRepository {
	return &LoanRepository{
		db:      db,
		queries: generated.New(db),
	}
}

// Create inserts the loan and its schedule.
func (r *LoanRepository) Create(ctx context.Context, tx usecase.Transaction, loan *domain.Loan) error {
	q := queriesFor(r.db, tx)

	terms, err := json.Marshal(loan.Terms)
	if err != nil {
		return fmt.Errorf("marshal terms: %w", err)
	}
	custom, err := marshalCustomFields(loan.CustomFields)
	if err != nil {
		return err
	}

	err = q.CreateLoan(ctx, generated.CreateLoanParams{
		ID:                    loan.ID,
		BorrowerID:            loan.BorrowerID,
		ProductCode:           loan.ProductCode,
		Status:                string(loan.Status),
		Currency:              loan.Terms.Currency,
		Principal:             decimalToNumeric(loan.Terms.Principal),
		Terms:                 terms,
		TotalInterest:         decimalToNumeric(loan.TotalInterest),
		TotalRepayable:        decimalToNumeric(loan.TotalRepayable),
		CumulativePaid:        decimalToNumeric(loan.CumulativePaid),
		OutstandingBalance:    decimalToNumeric(loan.OutstandingBalance),
		FeesPaid:              decimalToNumeric(loan.FeesPaid),
		PenaltiesPaid:         decimalToNumeric(loan.PenaltiesPaid),
		MaturityPenaltyPaid:   decimalToNumeric(loan.MaturityPenaltyPaid),
		CreditBalance:         decimalToNumeric(loan.CreditBalance),
		MissedCyclesThreshold: int32(loan.MissedCyclesThreshold),
		ApplicationDate:       timeToPgTimestamptz(loan.ApplicationDate),
		DisbursementDate:      optionalDate(loan.DisbursementDate),
		MaturityDate:          timeToPgDate(loan.MaturityDate),
		RestructuredFrom:      textOrNull(loan.RestructuredFrom),
		CustomFields:          custom,
		Version:               loan.Version,
		CreatedAt:             timeToPgTimestamptz(loan.CreatedAt),
		UpdatedAt:             timeToPgTimestamptz(loan.UpdatedAt),
	})
	if err != nil {
		return err
	}

	return r.saveInstallments(ctx, q, loan)
}

// GetByID retrieves a loan with its schedule.
func (r *LoanRepository) GetByID(ctx context.Context, id string) (*domain.Loan, error) {
	row, err := r.queries.GetLoanByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrLoanNotFound
		}

		return nil, err
	}

	return r.hydrate(ctx, r.queries, row)
}

// GetByIDForUpdate retrieves a loan and locks its row until the transaction ends.
func (r *LoanRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.Loan, error) {
	q := queriesFor(r.db, tx)

	row, err := q.GetLoanByIDForUpdate(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrLoanNotFound
		}

		return nil, err
	}

	return r.hydrate(ctx, q, row)
}

// Update writes balances, status and schedule. The stored version must match
// loan.Version; on success loan.Version is incremented.
func (r *LoanRepository) Update(ctx context.Context, tx usecase.Transaction, loan *domain.Loan) error {
	q := queriesFor(r.db, tx)

	terms, err := json.Marshal(loan.Terms)
	if err != nil {
		return fmt.Errorf("marshal terms: %w", err)
	}
	custom, err := marshalCustomFields(loan.CustomFields)
	if err != nil {
		return err
	}

	affected, err := q.UpdateLoan(ctx, generated.UpdateLoanParams{
		ID:                  loan.ID,
		Status:              string(loan.Status),
		Principal:           decimalToNumeric(loan.Terms.Principal),
		Terms:               terms,
		TotalInterest:       decimalToNumeric(loan.TotalInterest),
		TotalRepayable:      decimalToNumeric(loan.TotalRepayable),
		CumulativePaid:      decimalToNumeric(loan.CumulativePaid),
		OutstandingBalance:  decimalToNumeric(loan.OutstandingBalance),
		FeesPaid:            decimalToNumeric(loan.FeesPaid),
		PenaltiesPaid:       decimalToNumeric(loan.PenaltiesPaid),
		MaturityPenaltyPaid: decimalToNumeric(loan.MaturityPenaltyPaid),
		CreditBalance:       decimalToNumeric(loan.CreditBalance),
		DisbursementDate:    optionalDate(loan.DisbursementDate),
		MaturityDate:        timeToPgDate(loan.MaturityDate),
		CustomFields:        custom,
		UpdatedAt:           timeToPgTimestamptz(loan.UpdatedAt),
		Version:             loan.Version,
	})
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrVersionConflict, loan.ID)
	}
	loan.Version++

	return r.saveInstallments(ctx, q, loan)
}

// List returns loans filtered by status and borrower.
func (r *LoanRepository) List(ctx context.Context, filter usecase.LoanFilter) ([]*domain.Loan, error) {
	rows, err := r.queries.ListLoans(ctx, generated.ListLoansParams{
		Status:     string(filter.Status),
		BorrowerID: filter.BorrowerID,
		Limit:      int32(filter.Limit),
		Offset:     int32(filter.Offset),
	})
	if err != nil {
		return nil, err
	}

	loans := make([]*domain.Loan, 0, len(rows))
	for _, row := range rows {
		loan, err := r.hydrate(ctx, r.queries, row)
		if err != nil {
			return nil, err
		}
		loans = append(loans, loan)
	}

	return loans, nil
}

func (r *LoanRepository) saveInstallments(ctx context.Context, q *generated.Queries, loan *domain.Loan) error {
	keep := make([]string, 0, len(loan.Installments))
	for i := range loan.Installments {
		inst := &loan.Installments[i]
		if inst.ID == "" {
			inst.ID = installmentID(loan.ID, inst.Sequence)
		}
		keep = append(keep, inst.ID)

		err := q.UpsertInstallment(ctx, generated.UpsertInstallmentParams{
			ID:            inst.ID,
			LoanID:        loan.ID,
			Sequence:      int32(inst.Sequence),
			DueDate:       timeToPgDate(inst.DueDate),
			PrincipalDue:  decimalToNumeric(inst.PrincipalDue),
			InterestDue:   decimalToNumeric(inst.InterestDue),
			TotalDue:      decimalToNumeric(inst.TotalDue),
			FeeDue:        decimalToNumeric(inst.FeeDue),
			PrincipalPaid: decimalToNumeric(inst.PrincipalPaid),
			InterestPaid:  decimalToNumeric(inst.InterestPaid),
			FeePaid:       decimalToNumeric(inst.FeePaid),
			PenaltyPaid:   decimalToNumeric(inst.PenaltyPaid),
			AmountPaid:    decimalToNumeric(inst.AmountPaid),
			Remaining:     decimalToNumeric(inst.Remaining),
			Status:        string(inst.Status),
		})
		if err != nil {
			return fmt.Errorf("save installment %d: %w", inst.Sequence, err)
		}
	}

	return q.DeleteStaleInstallments(ctx, generated.DeleteStaleInstallmentsParams{
		LoanID: loan.ID,
		Keep:   keep,
	})
}

func (r *LoanRepository) hydrate(ctx context.Context, q *generated.Queries, row generated.Loan) (*domain.Loan, error) {
	loan, err := rowToLoan(row)
	if err != nil {
		return nil, err
	}

	rows, err := q.ListInstallmentsByLoan(ctx, row.ID)
	if err != nil {
		return nil, err
	}
	loan.Installments = make([]domain.Installment, 0, len(rows))
	for _, inst := range rows {
		loan.Installments = append(loan.Installments, rowToInstallment(inst))
	}

	return loan, nil
}

func rowToLoan(row generated.Loan) (*domain.Loan, error) {
	var terms domain.LoanTerms
	if err := json.Unmarshal(row.Terms, &terms); err != nil {
		return nil, fmt.Errorf("unmarshal terms of loan %s: %w", row.ID, err)
	}

	var custom map[string]any
	if len(row.CustomFields) > 0 {
		if err := json.Unmarshal(row.CustomFields, &custom); err != nil {
			return nil, fmt.Errorf("unmarshal custom fields of loan %s: %w", row.ID, err)
		}
	}

	return &domain.Loan{
		ID:                    row.ID,
		BorrowerID:            row.BorrowerID,
		ProductCode:           row.ProductCode,
		Terms:                 terms,
		TotalInterest:         numericToDecimal(row.TotalInterest),
		TotalRepayable:        numericToDecimal(row.TotalRepayable),
		CumulativePaid:        numericToDecimal(row.CumulativePaid),
		OutstandingBalance:    numericToDecimal(row.OutstandingBalance),
		FeesPaid:              numericToDecimal(row.FeesPaid),
		PenaltiesPaid:         numericToDecimal(row.PenaltiesPaid),
		MaturityPenaltyPaid:   numericToDecimal(row.MaturityPenaltyPaid),
		CreditBalance:         numericToDecimal(row.CreditBalance),
		Status:                domain.LoanStatus(row.Status),
		MissedCyclesThreshold: int(row.MissedCyclesThreshold),
		ApplicationDate:       row.ApplicationDate.Time.UTC(),
		DisbursementDate:      dateToTime(row.DisbursementDate),
		MaturityDate:          row.MaturityDate.Time.UTC(),
		RestructuredFrom:      row.RestructuredFrom.String,
		CustomFields:          custom,
		Version:               row.Version,
		CreatedAt:             row.CreatedAt.Time,
		UpdatedAt:             row.UpdatedAt.Time,
	}, nil
}

func rowToInstallment(row generated.Installment) domain.Installment {
	return domain.Installment{
		ID:            row.ID,
		Sequence:      int(row.Sequence),
		DueDate:       row.DueDate.Time.UTC(),
		PrincipalDue:  numericToDecimal(row.PrincipalDue),
		InterestDue:   numericToDecimal(row.InterestDue),
		TotalDue:      numericToDecimal(row.TotalDue),
		PrincipalPaid: numericToDecimal(row.PrincipalPaid),
		InterestPaid:  numericToDecimal(row.InterestPaid),
		AmountPaid:    numericToDecimal(row.AmountPaid),
		Remaining:     numericToDecimal(row.Remaining),
		FeeDue:        numericToDecimal(row.FeeDue),
		FeePaid:       numericToDecimal(row.FeePaid),
		PenaltyPaid:   numericToDecimal(row.PenaltyPaid),
		Status:        domain.InstallmentStatus(row.Status),
	}
}

func installmentID(loanID string, seq int) string {
	return fmt.Sprintf("%s-%03d", loanID, seq)
}

func marshalCustomFields(fields map[string]any) ([]byte, error) {
	if len(fields) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("marshal custom fields: %w", err)
	}
	return data, nil
}
