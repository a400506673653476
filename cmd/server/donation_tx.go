package main

import (
	"context"
	"database/sql"
	"time"

	dErrors "k9hope/pkg/domain-errors"
	txcontext "k9hope/pkg/platform/tx"
)

const defaultDonationTxTimeout = 5 * time.Second

// donationPostgresTx runs the appointment completion boundary inside one
// database transaction. The tx rides the context, so every store touched by
// the callback joins it through its execer. The lock key is only meaningful
// to the in-memory boundary; here concurrent transitions are arbitrated by
// the stores' conditional status updates, and the loser rolls back.
type donationPostgresTx struct {
	db      *sql.DB
	timeout time.Duration
}

func newDonationPostgresTx(db *sql.DB) *donationPostgresTx {
	return &donationPostgresTx{db: db}
}

func (t *donationPostgresTx) RunInTx(ctx context.Context, _ string, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = defaultDonationTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(txcontext.WithTx(ctx, tx)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	return nil
}
