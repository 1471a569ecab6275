package clock

import (
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/require"

	"github.com/peerflow-dev/peerflow/internal/testutil"
)

// TestClock_BlobGolden pins the serialized clock format. A diff here means
// the on-disk format changed and needs a version bump plus migration.
func TestClock_BlobGolden(t *testing.T) {
	c := New(WithNow(testutil.NewFixedClock().Now))
	_, err := c.Append([]byte("alpha"))
	require.NoError(t, err)
	_, err = c.Append([]byte("beta"))
	require.NoError(t, err)

	blob, err := c.MarshalBinary()
	require.NoError(t, err)

	g := goldie.New(t)
	g.Assert(t, "clock_blob", blob)
}
