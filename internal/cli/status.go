package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/peerflow-dev/peerflow/coordinator"
)

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "status <task-id>",
		Short:         "Show the full record of a single workflow",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runStatus(opts *RootOptions, taskID string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	ctx := cmd.Context()
	c, closer, err := openCoordinator(ctx, opts)
	if err != nil {
		return err
	}
	defer closer.Close()

	rec, err := c.GetWorkflowStatus(taskID)
	if err != nil {
		return formatter.fail("get workflow status", err)
	}

	if formatter.Format == "json" {
		return formatter.JSON(rec)
	}

	printTask(formatter, rec)
	return nil
}

func printTask(f *OutputFormatter, t coordinator.Task) {
	fmt.Fprintf(f.Writer, "%s\n", t.ID)
	fmt.Fprintf(f.Writer, "  name:      %s\n", t.Name)
	fmt.Fprintf(f.Writer, "  status:    %s\n", t.Status)
	fmt.Fprintf(f.Writer, "  priority:  %d\n", t.Priority)
	if t.AssignedPeer != "" {
		fmt.Fprintf(f.Writer, "  assigned:  %s\n", t.AssignedPeer)
	}
	fmt.Fprintf(f.Writer, "  submitted: %s\n", t.SubmittedAt.Format(time.RFC3339))
	if t.CompletedAt != nil {
		fmt.Fprintf(f.Writer, "  completed: %s\n", t.CompletedAt.Format(time.RFC3339))
	}
	if t.Error != "" {
		fmt.Fprintf(f.Writer, "  error:     %s\n", t.Error)
	}
}
