package tempdb_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sagarc03/mongolink/tempdb"
)

type stubProcess struct {
	uri     string
	stops   int
	stopErr error
}

func (p *stubProcess) URI() string { return p.uri }

func (p *stubProcess) Stop(context.Context) error {
	p.stops++
	return p.stopErr
}

type stubLauncher struct {
	spec     tempdb.Spec
	proc     *stubProcess
	startErr error
}

func (l *stubLauncher) Name() string                { return "stub" }
func (l *stubLauncher) Probe(context.Context) error { return nil }

func (l *stubLauncher) Start(_ context.Context, spec tempdb.Spec) (tempdb.Process, error) {
	l.spec = spec
	if l.startErr != nil {
		return nil, l.startErr
	}
	l.proc = &stubProcess{uri: fmt.Sprintf("mongodb://localhost:%d", spec.Port)}
	return l.proc, nil
}

func TestSelectPort(t *testing.T) {
	t.Parallel()

	assert.Equal(t, tempdb.FallbackPort, tempdb.SelectPort(0))
	assert.Equal(t, tempdb.FallbackPort, tempdb.SelectPort(tempdb.DefaultPort))
	assert.Equal(t, 28000, tempdb.SelectPort(28000))
}

func TestStart_GeneratesDataDir(t *testing.T) {
	t.Parallel()

	l := &stubLauncher{}
	inst, err := tempdb.Start(context.Background(), l, tempdb.Options{SocketDir: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = inst.Teardown(context.Background(), false) })

	assert.NotEmpty(t, inst.ID)
	assert.Equal(t, "stub", inst.Launcher)
	assert.Equal(t, tempdb.FallbackPort, inst.Port)
	assert.DirExists(t, inst.DataDir)
	assert.Equal(t, inst.DataDir, l.spec.DataDir)
	assert.Equal(t, inst.ID, l.spec.ID)
	assert.Equal(t, "mongodb://localhost:27111", inst.URI())
}

func TestStart_UsesRequestedDataDir(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "nested", "data")
	l := &stubLauncher{}
	inst, err := tempdb.Start(context.Background(), l, tempdb.Options{Port: 28001, DataDir: dir})
	require.NoError(t, err)

	assert.Equal(t, dir, inst.DataDir)
	assert.DirExists(t, dir)
	assert.Equal(t, 28001, l.spec.Port)
	assert.Equal(t, os.TempDir(), inst.SocketDir)
}

func TestStart_FailureRemovesGeneratedDir(t *testing.T) {
	t.Parallel()

	l := &stubLauncher{startErr: errors.New("boom")}
	_, err := tempdb.Start(context.Background(), l, tempdb.Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
	assert.NoDirExists(t, l.spec.DataDir)
}

func TestStart_FailureKeepsRequestedDir(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "data")
	l := &stubLauncher{startErr: errors.New("boom")}
	_, err := tempdb.Start(context.Background(), l, tempdb.Options{DataDir: dir})
	require.Error(t, err)
	assert.DirExists(t, dir)
}

func TestInstance_SocketPath(t *testing.T) {
	t.Parallel()

	sock := t.TempDir()
	inst, err := tempdb.Start(context.Background(), &stubLauncher{}, tempdb.Options{Port: 28002, SocketDir: sock})
	require.NoError(t, err)
	t.Cleanup(func() { _ = inst.Teardown(context.Background(), false) })

	assert.Equal(t, filepath.Join(sock, "mongodb-28002.sock"), inst.SocketPath())
}

func TestInstance_Teardown(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		preserve bool
	}{
		{name: "remove", preserve: false},
		{name: "preserve", preserve: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctx := context.Background()
			l := &stubLauncher{}
			dir := filepath.Join(t.TempDir(), "data")
			inst, err := tempdb.Start(ctx, l, tempdb.Options{DataDir: dir, SocketDir: t.TempDir()})
			require.NoError(t, err)
			require.NoError(t, os.WriteFile(inst.SocketPath(), nil, 0o600))

			require.NoError(t, inst.Teardown(ctx, tt.preserve))
			assert.Equal(t, 1, l.proc.stops)

			if tt.preserve {
				assert.DirExists(t, dir)
				assert.FileExists(t, inst.SocketPath())
			} else {
				assert.NoDirExists(t, dir)
				assert.NoFileExists(t, inst.SocketPath())
			}
		})
	}
}

func TestInstance_TeardownMissingFiles(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	inst, err := tempdb.Start(ctx, &stubLauncher{}, tempdb.Options{SocketDir: t.TempDir()})
	require.NoError(t, err)
	require.NoError(t, os.RemoveAll(inst.DataDir))

	assert.NoError(t, inst.Teardown(ctx, false), "missing socket and data dir are not errors")
}

func TestInstance_StopIsIdempotent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	l := &stubLauncher{}
	inst, err := tempdb.Start(ctx, l, tempdb.Options{SocketDir: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = inst.Teardown(ctx, false) })

	require.NoError(t, inst.Stop(ctx))
	require.NoError(t, inst.Stop(ctx))
	assert.Equal(t, 1, l.proc.stops)
}

func TestInstance_TeardownReportsStopFailure(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	l := &stubLauncher{}
	inst, err := tempdb.Start(ctx, l, tempdb.Options{SocketDir: t.TempDir()})
	require.NoError(t, err)
	l.proc.stopErr = errors.New("still running")

	err = inst.Teardown(ctx, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "still running")
	assert.NoDirExists(t, inst.DataDir, "files are removed even when stop fails")
}
