package coordinator

import (
	"context"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/require"

	"github.com/peerflow-dev/peerflow/descriptor"
	"github.com/peerflow-dev/peerflow/internal/testutil"
	"github.com/peerflow-dev/peerflow/store"
)

// TestMarshalState_Golden pins the serialized coordinator format. A diff
// here means the on-disk format changed and needs a version bump plus
// migration.
func TestMarshalState_Golden(t *testing.T) {
	ctx := context.Background()
	c, err := New(ctx, Config{
		LocalPeer: "p1",
		Sink:      store.NewMemory(),
		Now:       testutil.NewFixedClock().Now,
		TokenFunc: testutil.TokenSequence(),
	})
	require.NoError(t, err)

	_, err = c.SubmitWorkflow(ctx, descriptor.Descriptor{
		Name: "golden",
		Tags: []string{"p2p"},
		Spec: map[string]any{"kind": "batch"},
	}, "", 7)
	require.NoError(t, err)

	blob, err := c.MarshalState()
	require.NoError(t, err)

	g := goldie.New(t)
	g.Assert(t, "coordinator_state", blob)
}
