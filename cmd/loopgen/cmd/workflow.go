package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"go.temporal.io/sdk/client"
	temporallog "go.temporal.io/sdk/log"

	"github.com/samirrijal/circlerun/internal/workflows"
)

var workflowFlags loopFlags

var workflowCmd = &cobra.Command{
	Use:   "workflow",
	Short: "Generate and save a loop through the Temporal worker",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		c, err := client.Dial(client.Options{
			HostPort:  cfg.Temporal.HostPort,
			Namespace: cfg.Temporal.Namespace,
			Logger:    temporallog.NewStructuredLogger(slog.Default()),
		})
		if err != nil {
			return fmt.Errorf("temporal client: %w", err)
		}
		defer c.Close()

		run, err := workflows.StartSavedLoop(ctx, c, cfg.Temporal.TaskQueue, workflows.SavedLoopInput{
			Name:        workflowFlags.name,
			Start:       workflowFlags.start(),
			TargetMiles: workflowFlags.miles,
			Smooth:      workflowFlags.smooth,
		})
		if err != nil {
			return err
		}
		slog.Info("workflow started", "workflow_id", run.GetID(), "run_id", run.GetRunID())

		var res workflows.SavedLoopResult
		if err := run.Get(ctx, &res); err != nil {
			return fmt.Errorf("saved loop workflow: %w", err)
		}
		return printJSON(res)
	},
}

func init() {
	workflowFlags.register(workflowCmd)
	rootCmd.AddCommand(workflowCmd)
}
