package cli

import (
	"fmt"
	"strings"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"

	"github.com/odyssey-erp/erp-api/jobs"
)

func newJobsCommand(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Trigger and inspect background jobs",
	}

	enqueue := &cobra.Command{
		Use:       "enqueue <task>",
		Short:     "Enqueue a maintenance task for immediate processing",
		Long:      "Enqueue one of: " + strings.Join(jobs.TaskTypes, ", "),
		Args:      cobra.ExactArgs(1),
		ValidArgs: jobs.TaskTypes,
		RunE: func(cmd *cobra.Command, args []string) error {
			client := jobs.NewClient(asynq.RedisClientOpt{Addr: e.cfg.RedisAddr})
			defer client.Close()

			info, err := client.Enqueue(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "enqueued %s id=%s queue=%s\n", info.Type, info.ID, info.Queue)
			return nil
		},
	}

	stats := &cobra.Command{
		Use:   "stats",
		Short: "Show default queue statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: e.cfg.RedisAddr})
			defer inspector.Close()

			info, err := inspector.GetQueueInfo(jobs.QueueDefault)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "queue=%s pending=%d active=%d scheduled=%d retry=%d archived=%d\n",
				info.Queue, info.Pending, info.Active, info.Scheduled, info.Retry, info.Archived)
			return nil
		},
	}

	cmd.AddCommand(enqueue, stats)
	return cmd
}
