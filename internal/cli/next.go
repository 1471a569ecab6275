package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NextResult is the payload for a dequeued workflow.
type NextResult struct {
	TaskID string `json:"task_id,omitempty"`
	Empty  bool   `json:"empty"`
}

// NewNextCommand creates the next command.
func NewNextCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "next",
		Short: "Pop the highest-priority locally-owned workflow",
		Long: `Pop the highest-priority workflow assigned to the local peer.

The pop is durable: the queue state is persisted before the task id is
printed. An empty queue is not an error.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNext(rootOpts, cmd)
		},
	}
	return cmd
}

func runNext(opts *RootOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	ctx := cmd.Context()
	c, closer, err := openCoordinator(ctx, opts)
	if err != nil {
		return err
	}
	defer closer.Close()

	taskID, ok, err := c.GetNextWorkflow(ctx)
	if err != nil {
		return formatter.fail("dequeue workflow", err)
	}

	if formatter.Format == "json" {
		return formatter.JSON(NextResult{TaskID: taskID, Empty: !ok})
	}

	if !ok {
		fmt.Fprintln(formatter.Writer, "queue is empty")
		return nil
	}
	fmt.Fprintln(formatter.Writer, taskID)
	return nil
}
