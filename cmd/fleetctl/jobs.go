package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fleetbook/fleetbook/jobs"
)

func newJobsCmd(deps Deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect and trigger background jobs",
	}

	trigger := &cobra.Command{
		Use:       "trigger <task>",
		Short:     "Enqueue a job now",
		Long:      "Enqueue a job on the default queue. Known tasks: " + strings.Join(jobs.TaskTypes, ", "),
		Args:      cobra.ExactArgs(1),
		ValidArgs: jobs.TaskTypes,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := jobs.NewTask(args[0]); err != nil {
				return err
			}
			client, err := deps.Jobs(cmd.Context())
			if err != nil {
				return err
			}
			info, err := client.Enqueue(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("enqueue %s: %w", args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "enqueued %s as %s on %s\n", info.Type, info.ID, info.Queue)
			return nil
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List known tasks",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			for _, t := range jobs.TaskTypes {
				fmt.Fprintln(cmd.OutOrStdout(), t)
			}
		},
	}

	cmd.AddCommand(trigger, list)
	return cmd
}
