package persistence

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/iota-uz/nero/modules/core/infrastructure/schema"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const migrationRecordTable = "tenant_schema_migrations"

// SchemaExecutor is the data-layer collaborator: it physically creates and
// drops tenant schemas and executes migration statements against them. The
// resolution/lifecycle core never embeds raw DDL itself; it hands schema
// names and migration definitions here.
type SchemaExecutor struct {
	pool *pgxpool.Pool
}

func NewSchemaExecutor(pool *pgxpool.Pool) *SchemaExecutor {
	return &SchemaExecutor{pool: pool}
}

func (e *SchemaExecutor) CreateSchema(ctx context.Context, name string) error {
	_, err := e.pool.Exec(ctx, fmt.Sprintf(
		"CREATE SCHEMA IF NOT EXISTS %s",
		pgx.Identifier{name}.Sanitize(),
	))
	if err != nil {
		return errors.Wrapf(err, "failed to create schema %q", name)
	}
	return nil
}

func (e *SchemaExecutor) DropSchema(ctx context.Context, name string) error {
	_, err := e.pool.Exec(ctx, fmt.Sprintf(
		"DROP SCHEMA IF EXISTS %s CASCADE",
		pgx.Identifier{name}.Sanitize(),
	))
	if err != nil {
		return errors.Wrapf(err, "failed to drop schema %q", name)
	}
	return nil
}

// WithSchemaLock holds a session advisory lock keyed by the schema name for
// the duration of fn. The lock rides on a dedicated connection, so migration
// runs on the same schema serialize across every process sharing the
// database, while runs on different schemas never contend.
func (e *SchemaExecutor) WithSchemaLock(ctx context.Context, schemaName string, fn func(context.Context) error) error {
	conn, err := e.pool.Acquire(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to acquire connection for schema lock")
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock(hashtext($1))", schemaName); err != nil {
		return errors.Wrapf(err, "failed to lock schema %q", schemaName)
	}
	defer func() {
		// Unlock must run even when ctx is already done; a failed unlock is
		// recovered by the session closing with the connection.
		unlockCtx := context.WithoutCancel(ctx)
		_, _ = conn.Exec(unlockCtx, "SELECT pg_advisory_unlock(hashtext($1))", schemaName)
	}()

	return fn(ctx)
}

func (e *SchemaExecutor) EnsureRecordTable(ctx context.Context, schemaName string) error {
	_, err := e.pool.Exec(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			version BIGINT PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		pgx.Identifier{schemaName, migrationRecordTable}.Sanitize(),
	))
	if err != nil {
		return errors.Wrapf(err, "failed to ensure migration record table in %q", schemaName)
	}
	return nil
}

func (e *SchemaExecutor) AppliedVersions(ctx context.Context, schemaName string) ([]int64, error) {
	rows, err := e.pool.Query(ctx, fmt.Sprintf(
		"SELECT version FROM %s ORDER BY version",
		pgx.Identifier{schemaName, migrationRecordTable}.Sanitize(),
	))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read applied versions for %q", schemaName)
	}
	defer rows.Close()

	var versions []int64
	for rows.Next() {
		var v int64
		if err := rows.Scan(&v); err != nil {
			return nil, errors.Wrap(err, "failed to scan migration version")
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// ApplyStep runs one migration inside a transaction whose search_path is
// pinned to the target schema, and records the version in the same
// transaction. A failed step therefore leaves no record and no change.
func (e *SchemaExecutor) ApplyStep(ctx context.Context, schemaName string, m schema.Migration) error {
	tx, err := e.pool.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to begin migration transaction")
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if _, err := tx.Exec(ctx, "SELECT set_config('search_path', $1, true)", schemaName); err != nil {
		return errors.Wrapf(err, "failed to bind search_path to %q", schemaName)
	}
	if _, err := tx.Exec(ctx, m.SQL); err != nil {
		return errors.Wrapf(err, "migration %d (%s) failed", m.Version, m.Name)
	}
	if _, err := tx.Exec(ctx, fmt.Sprintf(
		"INSERT INTO %s (version, name) VALUES ($1, $2)",
		pgx.Identifier{schemaName, migrationRecordTable}.Sanitize(),
	), m.Version, m.Name); err != nil {
		return errors.Wrapf(err, "failed to record migration %d", m.Version)
	}

	return tx.Commit(ctx)
}

var _ schema.Store = (*SchemaExecutor)(nil)
