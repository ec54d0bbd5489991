package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/iota-uz/nero/modules/core/services"
)

func newTenantCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tenant",
		Short: "Provision, inspect and tear down tenants",
	}
	cmd.AddCommand(newTenantCreateCmd())
	cmd.AddCommand(newTenantListCmd())
	cmd.AddCommand(newTenantDeleteCmd())
	return cmd
}

func newTenantCreateCmd() *cobra.Command {
	var (
		name             string
		primaryDomain    string
		secondaryDomains []string
		contactEmail     string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Provision a new tenant with its schema and domains",
		RunE: func(cmd *cobra.Command, args []string) error {
			pool, err := connectDB(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()

			_, lifecycleService, err := buildServices(pool)
			if err != nil {
				return err
			}

			created, err := lifecycleService.CreateTenant(poolContext(cmd.Context(), pool), services.CreateTenantCommand{
				Name:             name,
				PrimaryDomain:    primaryDomain,
				SecondaryDomains: secondaryDomains,
				ContactEmail:     contactEmail,
			})
			if err != nil {
				return err
			}
			return writeJSON(map[string]any{
				"id":          created.ID(),
				"schema_name": created.SchemaName(),
				"state":       created.State(),
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "tenant display name")
	cmd.Flags().StringVar(&primaryDomain, "domain", "", "primary domain host")
	cmd.Flags().StringSliceVar(&secondaryDomains, "secondary-domain", nil, "additional domain host (repeatable)")
	cmd.Flags().StringVar(&contactEmail, "contact-email", "", "tenant contact email")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("domain")
	return cmd
}

func newTenantListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every tenant in the catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			pool, err := connectDB(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()

			tenantService, _, err := buildServices(pool)
			if err != nil {
				return err
			}

			tenants, err := tenantService.List(poolContext(cmd.Context(), pool))
			if err != nil {
				return err
			}
			out := make([]map[string]any, 0, len(tenants))
			for _, t := range tenants {
				out = append(out, map[string]any{
					"id":          t.ID(),
					"name":        t.Name(),
					"schema_name": t.SchemaName(),
					"state":       t.State(),
				})
			}
			return writeJSON(out)
		},
	}
}

func newTenantDeleteCmd() *cobra.Command {
	var tenantID string

	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Tear down a tenant: domains, catalog state, schema storage",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(tenantID)
			if err != nil {
				return fmt.Errorf("invalid --id: %w", err)
			}

			pool, err := connectDB(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()

			_, lifecycleService, err := buildServices(pool)
			if err != nil {
				return err
			}

			if err := lifecycleService.DeleteTenant(poolContext(cmd.Context(), pool), id); err != nil {
				return err
			}
			return writeJSON(map[string]any{"deleted": id})
		},
	}
	cmd.Flags().StringVar(&tenantID, "id", "", "tenant id to delete")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}
