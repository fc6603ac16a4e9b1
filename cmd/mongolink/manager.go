package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/sagarc03/mongolink"
	"github.com/sagarc03/mongolink/config"
	"github.com/sagarc03/mongolink/driver/memory"
	"github.com/sagarc03/mongolink/driver/mongodriver"
	"github.com/sagarc03/mongolink/tempdb"
)

// serverLogName is the file mongod output goes to with --server-log.
const serverLogName = "mongod.log"

func newManager(cfg *config.Config, app map[string]any) (*mongolink.Manager, error) {
	opts := []mongolink.Option{
		mongolink.WithAppConfig(app),
		mongolink.WithMockConstructor(memory.NewClient),
		mongolink.WithReadyRetry(cfg.Manager.ReadyAttempts, cfg.Manager.ReadyDelay),
		mongolink.WithTempDBOptions(tempdb.Options{SocketDir: cfg.TempDB.SocketDir}),
		mongolink.WithLauncher(newLauncher(cfg, app)),
	}
	if !cfg.Manager.ShareTransports {
		opts = append(opts, mongolink.WithoutTransportSharing())
	}
	return mongolink.NewManager(mongodriver.New(), opts...)
}

func newLauncher(cfg *config.Config, app map[string]any) tempdb.Launcher {
	policy, err := mongolink.PolicyFromConfig(app)
	if err == nil && policy.Launcher == "container" {
		return &tempdb.ContainerLauncher{Image: cfg.TempDB.Image}
	}

	l := &tempdb.ExecLauncher{Binary: cfg.TempDB.Binary, ExtraArgs: cfg.TempDB.ExtraArgs}
	if cfg.TempDB.ServerLog {
		l.LogName = serverLogName
	}
	return l
}

func closeManager(ctx context.Context, m *mongolink.Manager) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()
	if err := m.Close(ctx); err != nil {
		slog.Error("failed to close connections", "err", err)
	}
}
