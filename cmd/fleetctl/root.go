package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var version = "dev"

func newRootCmd(deps Deps) *cobra.Command {
	root := &cobra.Command{
		Use:   "fleetctl",
		Short: "Administer a fleetbook deployment",
		Long: `fleetctl talks directly to the fleetbook database and job queue.

Configuration is read from the same environment variables as the API server
(PG_DSN, REDIS_ADDR, JWT_SECRET, ...), with a .env file in the working
directory loaded first when present.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newMigrateCmd(deps), newUsersCmd(deps), newJobsCmd(deps), newBackupCmd(deps))
	return root
}

func newMigrateCmd(deps Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			applied, err := deps.Migrate(cmd.Context())
			for _, v := range applied {
				fmt.Fprintf(cmd.OutOrStdout(), "applied %s\n", v)
			}
			if err != nil {
				return err
			}
			if len(applied) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")
			}
			return nil
		},
	}
}
