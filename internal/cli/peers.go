package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// PeersResult is the payload for roster operations.
type PeersResult struct {
	Peers      []string `json:"peers"`
	Reassigned []string `json:"reassigned,omitempty"`
}

// NewPeersCommand creates the peers command group.
func NewPeersCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "peers",
		Short: "Inspect and modify the peer roster",
	}
	cmd.AddCommand(newPeersListCommand(rootOpts))
	cmd.AddCommand(newPeersAddCommand(rootOpts))
	cmd.AddCommand(newPeersRemoveCommand(rootOpts))
	return cmd
}

func newPeersListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list",
		Short:         "List the current roster",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd.OutOrStdout(), cmd.ErrOrStderr())

			c, closer, err := openCoordinator(cmd.Context(), rootOpts)
			if err != nil {
				return err
			}
			defer closer.Close()

			peers := c.Peers()
			if formatter.Format == "json" {
				return formatter.JSON(PeersResult{Peers: peers})
			}
			for _, p := range peers {
				marker := " "
				if p == c.LocalPeer() {
					marker = "*"
				}
				fmt.Fprintf(formatter.Writer, "%s %s\n", marker, p)
			}
			return nil
		},
	}
}

func newPeersAddCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "add <peer-id>",
		Short:         "Add a peer to the roster",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd.OutOrStdout(), cmd.ErrOrStderr())

			ctx := cmd.Context()
			c, closer, err := openCoordinator(ctx, rootOpts)
			if err != nil {
				return err
			}
			defer closer.Close()

			if err := c.AddPeer(ctx, args[0]); err != nil {
				return formatter.fail("add peer", err)
			}
			if formatter.Format == "json" {
				return formatter.JSON(PeersResult{Peers: c.Peers()})
			}
			fmt.Fprintf(formatter.Writer, "added %s (%d peers)\n", args[0], len(c.Peers()))
			return nil
		},
	}
}

func newPeersRemoveCommand(rootOpts *RootOptions) *cobra.Command {
	var reassign bool

	cmd := &cobra.Command{
		Use:           "remove <peer-id>",
		Short:         "Remove a peer; its assigned tasks fall back to pending",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd.OutOrStdout(), cmd.ErrOrStderr())

			ctx := cmd.Context()
			c, closer, err := openCoordinator(ctx, rootOpts)
			if err != nil {
				return err
			}
			defer closer.Close()

			if err := c.RemovePeer(ctx, args[0]); err != nil {
				return formatter.fail("remove peer", err)
			}

			var local []string
			if reassign {
				local, err = c.AssignWorkflows(ctx)
				if err != nil {
					return formatter.fail("reassign workflows", err)
				}
			}

			if formatter.Format == "json" {
				return formatter.JSON(PeersResult{Peers: c.Peers(), Reassigned: local})
			}
			fmt.Fprintf(formatter.Writer, "removed %s (%d peers)\n", args[0], len(c.Peers()))
			if reassign {
				fmt.Fprintf(formatter.Writer, "reassigned %d workflow(s) locally\n", len(local))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&reassign, "reassign", true, "re-run assignment for pending tasks after removal")
	return cmd
}
