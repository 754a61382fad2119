package moderation

import (
	"context"
	"database/sql"

	"github.com/phrazzld/moderation-api/internal/store"
)

// Repositories are the stores one transaction works with.
type Repositories struct {
	Tasks      store.ModeratorTaskStore
	Principals store.PrincipalStore
}

// TxRunner runs a unit of work in a transaction. The repositories handed to
// fn are bound to that transaction; fn returning an error rolls it back.
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
}

// NewSQLTxRunner creates a TxRunner that opens transactions on db and binds
// the given stores to them.
func NewSQLTxRunner(db *sql.DB, tasks store.ModeratorTaskStore, principals store.PrincipalStore) TxRunner {
	if db == nil {
		panic("db cannot be nil")
	}
	if tasks == nil {
		panic("tasks cannot be nil")
	}
	if principals == nil {
		panic("principals cannot be nil")
	}

	return &sqlTxRunner{
		db:         db,
		tasks:      tasks,
		principals: principals,
	}
}

// sqlTxRunner adapts database/sql transactions to the TxRunner interface
type sqlTxRunner struct {
	db         *sql.DB
	tasks      store.ModeratorTaskStore
	principals store.PrincipalStore
}

// WithinTx implements TxRunner.WithinTx
func (r *sqlTxRunner) WithinTx(ctx context.Context, fn func(context.Context, Repositories) error) error {
	return store.RunInTransaction(ctx, r.db, func(ctx context.Context, tx *sql.Tx) error {
		return fn(ctx, Repositories{
			Tasks:      r.tasks.WithTx(tx),
			Principals: r.principals.WithTx(tx),
		})
	})
}
