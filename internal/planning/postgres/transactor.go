// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CityPlanner Contributors

package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/samber/oops"

	"github.com/cityplanner/cityplanner/internal/planning"
)

type beginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Transactor implements planning.Transactor on a pgx pool. The active
// pgx.Tx travels in the context so repository calls made with it join
// the transaction.
type Transactor struct {
	pool beginner
}

// NewTransactor creates a Transactor backed by the given connection pool.
func NewTransactor(pool beginner) *Transactor {
	return &Transactor{pool: pool}
}

// InTransaction begins a transaction, stores it in context, and calls fn.
// If fn returns nil, the transaction is committed. Otherwise it is rolled back.
func (t *Transactor) InTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	tx, err := t.pool.Begin(ctx)
	if err != nil {
		return oops.Code("TX_BEGIN_FAILED").Wrap(err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	txCtx := context.WithValue(ctx, txKey{}, tx)
	if err := fn(txCtx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return oops.Code("TX_COMMIT_FAILED").Wrap(err)
	}
	return nil
}

var _ planning.Transactor = (*Transactor)(nil)
