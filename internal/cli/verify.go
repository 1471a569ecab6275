package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// VerifyResult is the payload for clock verification.
type VerifyResult struct {
	Valid    bool   `json:"valid"`
	Head     string `json:"head"`
	Events   int    `json:"events"`
	BadEvent string `json:"bad_event,omitempty"`
}

// NewVerifyCommand creates the verify command.
func NewVerifyCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify the merkle clock hash chain",
		Long: `Recompute every event hash from the genesis event to the head and
compare against the stored chain. Any mismatch names the offending event.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(rootOpts, cmd)
		},
	}
	return cmd
}

func runVerify(opts *RootOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	c, closer, err := openCoordinator(cmd.Context(), opts)
	if err != nil {
		return err
	}
	defer closer.Close()

	ok, bad := c.VerifyClock()
	result := VerifyResult{
		Valid:    ok,
		Head:     c.Head(),
		Events:   c.ClockLen(),
		BadEvent: bad,
	}

	if formatter.Format == "json" {
		if err := formatter.JSON(result); err != nil {
			return err
		}
	} else if ok {
		fmt.Fprintf(formatter.Writer, "clock verified: %d event(s), head %s\n", result.Events, result.Head)
	} else {
		fmt.Fprintf(formatter.Writer, "clock verification FAILED at event %s\n", bad)
	}

	if !ok {
		return NewExitError(ExitFailure, "clock verification failed")
	}
	return nil
}
