// Package tx rides a *sql.Tx on the context so that stores touched inside a
// transaction boundary join it without changing their signatures. The
// donation boundary opens the transaction; each store's execer checks the
// context and falls back to its own *sql.DB when no transaction is carried.
package tx

import (
	"context"
	"database/sql"
)

type ctxKey struct{}

var txKey = ctxKey{}

// WithTx attaches tx to the context. A nil tx leaves the context untouched.
func WithTx(ctx context.Context, tx *sql.Tx) context.Context {
	if tx == nil {
		return ctx
	}
	return context.WithValue(ctx, txKey, tx)
}

// From reports the transaction carried in ctx, if any.
func From(ctx context.Context) (*sql.Tx, bool) {
	tx, ok := ctx.Value(txKey).(*sql.Tx)
	return tx, ok
}
