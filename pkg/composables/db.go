package composables

import (
	"context"
	"errors"
	"fmt"

	"github.com/iota-uz/nero/pkg/constants"
	"github.com/iota-uz/nero/pkg/repo"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNoTx   = errors.New("no transaction found in context")
	ErrNoPool = errors.New("no database pool found in context")
)

func WithTx(ctx context.Context, tx pgx.Tx) context.Context {
	return context.WithValue(ctx, constants.TxKey, tx)
}

func UseTx(ctx context.Context) (repo.Tx, error) {
	tx := ctx.Value(constants.TxKey)
	if tx == nil {
		return UsePool(ctx)
	}
	return tx.(repo.Tx), nil
}

func WithPool(ctx context.Context, pool *pgxpool.Pool) context.Context {
	return context.WithValue(ctx, constants.PoolKey, pool)
}

func UsePool(ctx context.Context) (*pgxpool.Pool, error) {
	pool := ctx.Value(constants.PoolKey)
	if pool == nil {
		return nil, ErrNoPool
	}
	return pool.(*pgxpool.Pool), nil
}

// InTx runs the given function in a new transaction. When the context has no
// pool attached (repositories backed by something other than postgres), fn
// runs on the current context and atomicity is owned by the repository.
func InTx(ctx context.Context, fn func(context.Context) error) error {
	pool, err := UsePool(ctx)
	if err != nil {
		if errors.Is(err, ErrNoPool) {
			return fn(ctx)
		}
		return err
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}

	txCtx := WithTx(ctx, tx)
	if err := fn(txCtx); err != nil {
		if rErr := tx.Rollback(ctx); rErr != nil {
			return errors.Join(err, rErr)
		}
		return err
	}
	return tx.Commit(ctx)
}

// ApplySchemaScope confines every statement in the transaction to the schema
// bound by the current scope. search_path is set transaction-local, so the
// binding vanishes when the transaction ends and can never leak into another
// request's connection.
func ApplySchemaScope(ctx context.Context, tx pgx.Tx) error {
	scope, err := UseScope(ctx)
	if err != nil {
		return fmt.Errorf("schema scope requires tenant in context: %w", err)
	}
	_, err = tx.Exec(ctx, "SELECT set_config('search_path', $1, true)", scope.Schema)
	if err != nil {
		return fmt.Errorf("failed to bind schema scope: %w", err)
	}
	return nil
}

// InScopedTx runs fn in a transaction whose search_path is bound to the
// schema of the scope carried by ctx. Reuses an existing transaction when one
// is already in the context; the search_path binding then lasts until that
// transaction ends, so catalog queries must not share a transaction with
// scoped work. A missing scope is always an error; like InTx, a missing pool
// hands atomicity to the repository.
func InScopedTx(ctx context.Context, fn func(context.Context) error) error {
	if existing, ok := ctx.Value(constants.TxKey).(pgx.Tx); ok && existing != nil {
		if err := ApplySchemaScope(ctx, existing); err != nil {
			return err
		}
		return fn(ctx)
	}

	pool, err := UsePool(ctx)
	if err != nil {
		if errors.Is(err, ErrNoPool) {
			if _, serr := UseScope(ctx); serr != nil {
				return fmt.Errorf("schema scope requires tenant in context: %w", serr)
			}
			return fn(ctx)
		}
		return err
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}

	txCtx := WithTx(ctx, tx)
	if err := ApplySchemaScope(txCtx, tx); err != nil {
		if rErr := tx.Rollback(ctx); rErr != nil {
			return errors.Join(err, rErr)
		}
		return err
	}

	if err := fn(txCtx); err != nil {
		if rErr := tx.Rollback(ctx); rErr != nil {
			return errors.Join(err, rErr)
		}
		return err
	}
	return tx.Commit(ctx)
}

func InScopedTxResult[T any](ctx context.Context, fn func(context.Context) (T, error)) (T, error) {
	var out T
	err := InScopedTx(ctx, func(txCtx context.Context) error {
		var innerErr error
		out, innerErr = fn(txCtx)
		return innerErr
	})
	return out, err
}
