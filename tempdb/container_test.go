package tempdb_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sagarc03/mongolink/tempdb"
)

func TestContainerLauncher_StartStop(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	ctx := context.Background()
	l := tempdb.NewContainerLauncher()
	if err := l.Probe(ctx); err != nil {
		t.Skipf("docker not available: %v", err)
	}

	inst, err := tempdb.Start(ctx, l, tempdb.Options{SocketDir: t.TempDir()})
	require.NoError(t, err)
	require.Contains(t, inst.URI(), "mongodb://")

	require.NoError(t, inst.Teardown(ctx, false))
	require.NoDirExists(t, inst.DataDir)
}
