package main

import (
	"os"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "nero",
		Short: "Tenant catalog and schema management tools",
	}
	cmd.AddCommand(newMigrateCmd())
	cmd.AddCommand(newTenantCmd())
	return cmd
}

func execute() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
