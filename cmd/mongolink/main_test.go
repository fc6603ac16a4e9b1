package main

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sagarc03/mongolink/config"
	"github.com/sagarc03/mongolink/settings"
	"github.com/sagarc03/mongolink/tempdb"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{" WARN ", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"info", slog.LevelInfo},
		{"bogus", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, parseLevel(tt.in))
		})
	}
}

func TestFetchDescriptors(t *testing.T) {
	t.Parallel()

	descs, err := fetchDescriptors(map[string]any{
		"mongodb_settings": []any{
			map[string]any{"alias": "a", "host": "h1", "password": "pw"},
			map[string]any{"alias": "b", "host": "h2"},
		},
	})
	require.NoError(t, err)
	require.Len(t, descs, 2)
	assert.Equal(t, "pw", descs[0].Password)
}

func TestFetchDescriptors_RejectsPassthrough(t *testing.T) {
	t.Parallel()

	_, err := fetchDescriptors(map[string]any{"mongodb_settings": "mongodb://x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be a mapping")
}

func TestSelectAliases(t *testing.T) {
	t.Parallel()

	descs := []settings.Descriptor{{Alias: "a"}, {Alias: "b"}, {Alias: "c"}}

	all, err := selectAliases(descs, nil)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	some, err := selectAliases(descs, []string{"c", "a"})
	require.NoError(t, err)
	require.Len(t, some, 2)
	assert.Equal(t, "c", some[0].Alias)
	assert.Equal(t, "a", some[1].Alias)

	_, err = selectAliases(descs, []string{"missing"})
	assert.ErrorContains(t, err, `"missing"`)
}

func TestValidatePort(t *testing.T) {
	t.Parallel()

	assert.NoError(t, validatePort("27017"))
	assert.NoError(t, validatePort("0"))
	assert.Error(t, validatePort("abc"))
	assert.Error(t, validatePort("70000"))
	assert.Error(t, validatePort("-1"))
}

func TestNewLauncher(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{TempDB: config.TempDBConfig{
		Binary:    "/opt/mongo/bin/mongod",
		Image:     "mongo:6",
		ExtraArgs: []string{"--wiredTigerCacheSizeGB", "0.25"},
		ServerLog: true,
	}}

	l := newLauncher(cfg, map[string]any{})
	exec, ok := l.(*tempdb.ExecLauncher)
	require.True(t, ok)
	assert.Equal(t, "/opt/mongo/bin/mongod", exec.Binary)
	assert.Equal(t, serverLogName, exec.LogName)
	assert.Equal(t, cfg.TempDB.ExtraArgs, exec.ExtraArgs)

	l = newLauncher(cfg, map[string]any{"temp_db_launcher": "Container"})
	container, ok := l.(*tempdb.ContainerLauncher)
	require.True(t, ok)
	assert.Equal(t, "mongo:6", container.Image)
}

func TestNewManager_NoShare(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{
		Manager: config.ManagerConfig{ShareTransports: false, ReadyAttempts: 1},
		TempDB:  config.TempDBConfig{Binary: "mongod"},
	}
	m, err := newManager(cfg, map[string]any{"testing": true})
	require.NoError(t, err)
	assert.NotNil(t, m.Registry())
}
