package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/peerflow-dev/peerflow/coordinator"
	"github.com/peerflow-dev/peerflow/store"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
	DBPath  string
	Peer    string
	Peers   []string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the peerflow CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "peerflow",
		Short: "peerflow - P2P workflow scheduling core",
		Long:  "Deterministic peer-to-peer workflow scheduling over a merkle clock.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			if opts.Peer == "" {
				return fmt.Errorf("--peer is required")
			}
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.DBPath, "db", "peerflow.db", "path to the coordinator state database")
	cmd.PersistentFlags().StringVar(&opts.Peer, "peer", "", "local peer id")
	cmd.PersistentFlags().StringSliceVar(&opts.Peers, "peers", nil, "initial peer roster (comma separated)")

	// Add subcommands
	cmd.AddCommand(NewSubmitCommand(opts))
	cmd.AddCommand(NewStatusCommand(opts))
	cmd.AddCommand(NewListCommand(opts))
	cmd.AddCommand(NewNextCommand(opts))
	cmd.AddCommand(NewPeersCommand(opts))
	cmd.AddCommand(NewVerifyCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// openCoordinator opens the state database and constructs the coordinator
// from it. The returned closer releases the database handle.
func openCoordinator(ctx context.Context, opts *RootOptions) (*coordinator.Coordinator, io.Closer, error) {
	sink, err := store.Open(opts.DBPath)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "open state database", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if opts.Verbose {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	c, err := coordinator.New(ctx, coordinator.Config{
		LocalPeer: opts.Peer,
		Peers:     opts.Peers,
		Sink:      sink,
		Logger:    logger,
	})
	if err != nil {
		sink.Close()
		return nil, nil, WrapExitError(ExitCommandError, "load coordinator state", err)
	}
	return c, sink, nil
}
