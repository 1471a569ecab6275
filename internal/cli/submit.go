package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/peerflow-dev/peerflow/descriptor"
)

// SubmitResult is the payload reported after a successful submission.
type SubmitResult struct {
	TaskID       string `json:"task_id"`
	Status       string `json:"status"`
	AssignedPeer string `json:"assigned_peer"`
	Head         string `json:"head"`
}

// NewSubmitCommand creates the submit command.
func NewSubmitCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		name     string
		priority int64
	)

	cmd := &cobra.Command{
		Use:   "submit <descriptor.yaml>",
		Short: "Submit a workflow descriptor for scheduling",
		Long: `Submit a workflow descriptor for deterministic peer assignment.

The descriptor is validated against the schema, hashed, recorded as a
clock event, and assigned to exactly one roster peer.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSubmit(rootOpts, args[0], name, priority, cmd)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "human-readable task name (defaults to the descriptor name)")
	cmd.Flags().Int64Var(&priority, "priority", 0, "scheduling priority (lower runs first; defaults to the descriptor's)")

	return cmd
}

func runSubmit(opts *RootOptions, path, name string, priority int64, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	raw, err := os.ReadFile(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "read descriptor", err)
	}
	d, err := descriptor.Parse(raw)
	if err != nil {
		_ = formatter.Error("INVALID_WORKFLOW_DESCRIPTOR", err.Error(), nil)
		return WrapExitError(ExitFailure, "parse descriptor", err)
	}

	if !cmd.Flags().Changed("priority") {
		priority = d.Priority
	}

	ctx := cmd.Context()
	c, closer, err := openCoordinator(ctx, opts)
	if err != nil {
		return err
	}
	defer closer.Close()

	taskID, err := c.SubmitWorkflow(ctx, d, name, priority)
	if err != nil {
		return formatter.fail("submit workflow", err)
	}

	rec, err := c.GetWorkflowStatus(taskID)
	if err != nil {
		return formatter.fail("read back submission", err)
	}

	formatter.VerboseLog("clock head %s", c.Head())

	if formatter.Format == "json" {
		return formatter.JSON(SubmitResult{
			TaskID:       taskID,
			Status:       string(rec.Status),
			AssignedPeer: rec.AssignedPeer,
			Head:         c.Head(),
		})
	}

	fmt.Fprintf(formatter.Writer, "submitted %s\n", taskID)
	fmt.Fprintf(formatter.Writer, "  status:   %s\n", rec.Status)
	fmt.Fprintf(formatter.Writer, "  assigned: %s\n", rec.AssignedPeer)
	return nil
}
