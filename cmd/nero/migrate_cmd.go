package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"

	"github.com/iota-uz/nero/migrations"
	"github.com/iota-uz/nero/modules/core/domain/entities/tenant"
)

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply catalog and tenant schema migrations",
	}
	cmd.AddCommand(newMigrateCatalogCmd())
	cmd.AddCommand(newMigrateStatusCmd())
	cmd.AddCommand(newMigrateTenantCmd())
	return cmd
}

func newMigrateCatalogCmd() *cobra.Command {
	var down bool

	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Apply pending catalog migrations (or roll back one with --down)",
		RunE: func(cmd *cobra.Command, args []string) error {
			pool, err := connectDB(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()

			db := stdlib.OpenDBFromPool(pool)
			defer func() { _ = db.Close() }()

			if down {
				return migrations.DownCatalog(db)
			}
			return migrations.UpCatalog(db)
		},
	}
	cmd.Flags().BoolVar(&down, "down", false, "roll back the most recent catalog migration")
	return cmd
}

func newMigrateStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the catalog migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			pool, err := connectDB(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()

			db := stdlib.OpenDBFromPool(pool)
			defer func() { _ = db.Close() }()

			return migrations.StatusCatalog(db)
		},
	}
}

func newMigrateTenantCmd() *cobra.Command {
	var (
		tenantID string
		all      bool
	)

	cmd := &cobra.Command{
		Use:   "tenant",
		Short: "Run tenant schema migrations for one tenant or all of them",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !all && tenantID == "" {
				return fmt.Errorf("either --id or --all is required")
			}

			pool, err := connectDB(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()

			tenantService, lifecycleService, err := buildServices(pool)
			if err != nil {
				return err
			}
			ctx := poolContext(cmd.Context(), pool)

			if all {
				tenants, err := tenantService.List(ctx)
				if err != nil {
					return err
				}
				migrated := make([]string, 0, len(tenants))
				for _, t := range tenants {
					if t.State() == tenant.StateDeleted {
						continue
					}
					if err := lifecycleService.MigrateTenant(ctx, t.ID()); err != nil {
						return fmt.Errorf("migrating %s: %w", t.SchemaName(), err)
					}
					migrated = append(migrated, t.SchemaName())
				}
				return writeJSON(map[string]any{"migrated": migrated})
			}

			id, err := uuid.Parse(tenantID)
			if err != nil {
				return fmt.Errorf("invalid --id: %w", err)
			}
			if err := lifecycleService.MigrateTenant(ctx, id); err != nil {
				return err
			}
			return writeJSON(map[string]any{"migrated": []string{id.String()}})
		},
	}
	cmd.Flags().StringVar(&tenantID, "id", "", "tenant id to migrate")
	cmd.Flags().BoolVar(&all, "all", false, "migrate every tenant in the catalog")
	return cmd
}
