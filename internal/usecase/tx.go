package usecase

import "context"

// inTx runs fn in a transaction bounded by DefaultTransactionTimeout and
// commits when fn succeeds. Any error rolls the transaction back.
func inTx(ctx context.Context, tm TransactionManager, fn func(txCtx context.Context, tx Transaction) error) error {
	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := tm.Begin(txCtx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	if err := fn(txCtx, tx); err != nil {
		return err
	}

	return tx.Commit(txCtx)
}
