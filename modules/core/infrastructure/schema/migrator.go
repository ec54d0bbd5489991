package schema

import (
	"context"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"
)

// Migration is one versioned structural change applied to a tenant schema.
// Versions form a strict total order; SQL must be safe to run exactly once
// per schema (the migrator never re-applies a recorded version).
type Migration struct {
	Version int64
	Name    string
	SQL     string
}

// Store is the data-layer collaborator that physically executes migration
// statements and keeps the per-schema applied-migration record. The migrator
// owns the algorithm; the store owns the storage.
type Store interface {
	// WithSchemaLock serializes migration runs per schema: at most one run
	// per schema at a time, runs on different schemas proceed concurrently.
	WithSchemaLock(ctx context.Context, schema string, fn func(context.Context) error) error
	EnsureRecordTable(ctx context.Context, schema string) error
	AppliedVersions(ctx context.Context, schema string) ([]int64, error)
	// ApplyStep runs the migration SQL and records its version in one
	// transaction: either both happen or neither does.
	ApplyStep(ctx context.Context, schema string, m Migration) error
}

// MigrationError reports a failed step with enough detail to resume: the
// schema, the failing version and the last successfully applied version.
// Partial progress is preserved; re-invoking Migrate with the same target set
// resumes from the failed step.
type MigrationError struct {
	Schema      string
	Version     int64
	LastApplied int64
	Err         error
}

func (e *MigrationError) Error() string {
	return fmt.Sprintf(
		"migration %d failed on schema %q (last applied %d): %v",
		e.Version, e.Schema, e.LastApplied, e.Err,
	)
}

func (e *MigrationError) Unwrap() error {
	return e.Err
}

type Migrator struct {
	store Store
	log   *logrus.Logger
}

func NewMigrator(store Store, log *logrus.Logger) *Migrator {
	return &Migrator{
		store: store,
		log:   log,
	}
}

// Migrate brings schemaName up to the target migration set. Already-applied
// versions are skipped, pending ones run in ascending version order, and each
// successful step is recorded transactionally with the change it performed.
// Running against a fully migrated schema is a no-op.
func (m *Migrator) Migrate(ctx context.Context, schemaName string, target []Migration) error {
	ordered, err := orderedSet(target)
	if err != nil {
		return err
	}

	return m.store.WithSchemaLock(ctx, schemaName, func(ctx context.Context) error {
		if err := m.store.EnsureRecordTable(ctx, schemaName); err != nil {
			return fmt.Errorf("failed to ensure migration record table for %q: %w", schemaName, err)
		}

		appliedVersions, err := m.store.AppliedVersions(ctx, schemaName)
		if err != nil {
			return fmt.Errorf("failed to read applied migrations for %q: %w", schemaName, err)
		}

		applied := make(map[int64]struct{}, len(appliedVersions))
		lastApplied := int64(0)
		for _, v := range appliedVersions {
			applied[v] = struct{}{}
			if v > lastApplied {
				lastApplied = v
			}
		}

		pending := 0
		for _, mig := range ordered {
			if _, ok := applied[mig.Version]; ok {
				continue
			}
			if err := m.store.ApplyStep(ctx, schemaName, mig); err != nil {
				return &MigrationError{
					Schema:      schemaName,
					Version:     mig.Version,
					LastApplied: lastApplied,
					Err:         err,
				}
			}
			lastApplied = mig.Version
			pending++
			m.log.WithFields(logrus.Fields{
				"schema":    schemaName,
				"version":   mig.Version,
				"migration": mig.Name,
			}).Info("applied migration")
		}

		if pending == 0 {
			m.log.WithField("schema", schemaName).Debug("schema already up to date")
		}
		return nil
	})
}

func orderedSet(target []Migration) ([]Migration, error) {
	ordered := make([]Migration, len(target))
	copy(ordered, target)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].Version < ordered[j].Version
	})

	seen := make(map[int64]struct{}, len(ordered))
	for _, m := range ordered {
		if m.Version <= 0 {
			return nil, fmt.Errorf("migration %q has non-positive version %d", m.Name, m.Version)
		}
		if _, dup := seen[m.Version]; dup {
			return nil, fmt.Errorf("duplicate migration version %d", m.Version)
		}
		seen[m.Version] = struct{}{}
	}
	return ordered, nil
}
