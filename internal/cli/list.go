package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/peerflow-dev/peerflow/coordinator"
)

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		status     string
		assignedTo string
	)

	cmd := &cobra.Command{
		Use:           "list",
		Short:         "List workflows, optionally filtered by status or peer",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(rootOpts, status, assignedTo, cmd)
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "filter by status (pending|assigned|in_progress|completed|failed|cancelled)")
	cmd.Flags().StringVar(&assignedTo, "assigned-to", "", "filter by assigned peer id")

	return cmd
}

func runList(opts *RootOptions, status, assignedTo string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	if status != "" && !coordinator.Status(status).Valid() {
		return NewExitError(ExitCommandError, fmt.Sprintf("unknown status %q", status))
	}

	ctx := cmd.Context()
	c, closer, err := openCoordinator(ctx, opts)
	if err != nil {
		return err
	}
	defer closer.Close()

	tasks := c.ListWorkflows(coordinator.ListFilter{
		Status: coordinator.Status(status),
		Peer:   assignedTo,
	})

	if formatter.Format == "json" {
		return formatter.JSON(tasks)
	}

	if len(tasks) == 0 {
		fmt.Fprintln(formatter.Writer, "no workflows")
		return nil
	}
	for _, t := range tasks {
		peer := t.AssignedPeer
		if peer == "" {
			peer = "-"
		}
		fmt.Fprintf(formatter.Writer, "%s  %-11s  %-8s  p=%d  %s\n", t.ID, t.Status, peer, t.Priority, t.Name)
	}
	return nil
}
