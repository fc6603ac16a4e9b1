// Package tempdb starts and tears down disposable MongoDB servers for tests.
//
// An Instance is started through a Launcher: ExecLauncher runs a local
// mongod binary, ContainerLauncher runs a mongo container through
// testcontainers. Data written to an instance is meant to be thrown away;
// the server runs without authentication and with durability turned down.
package tempdb

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

const (
	// DefaultPort is the conventional MongoDB port. Instances never use it.
	DefaultPort = 27017
	// FallbackPort is used when no port, or DefaultPort, is requested.
	FallbackPort = 27111
)

// ErrNotFound is returned by Probe when the launcher cannot run on this host.
var ErrNotFound = errors.New("temporary database launcher not available")

// Spec is what a Launcher needs to start a server.
type Spec struct {
	ID      string
	Port    int
	DataDir string
}

// Process is a running server started by a Launcher.
type Process interface {
	// URI is the connection string for the server.
	URI() string
	// Stop terminates the server and waits for it to exit. Stopping an
	// already stopped process returns nil.
	Stop(ctx context.Context) error
}

// Launcher starts servers.
type Launcher interface {
	Name() string
	// Probe reports ErrNotFound, wrapped, when the launcher cannot work here.
	Probe(ctx context.Context) error
	Start(ctx context.Context, spec Spec) (Process, error)
}

// Options configure Start.
type Options struct {
	// Port requested by configuration; see SelectPort.
	Port int
	// DataDir overrides the generated temporary directory.
	DataDir string
	// SocketDir is where mongod writes its unix socket. Defaults to os.TempDir().
	SocketDir string
	// Preserve keeps the data directory and socket file on teardown.
	Preserve bool
}

// SelectPort returns the port an instance should bind.
func SelectPort(port int) int {
	if port == 0 || port == DefaultPort {
		return FallbackPort
	}
	return port
}

// Instance is a started temporary server.
type Instance struct {
	ID        string
	Launcher  string
	Port      int
	DataDir   string
	SocketDir string
	Preserve  bool

	mu      sync.Mutex
	proc    Process
	stopped bool
}

// Start prepares the data directory and launches a server with l.
func Start(ctx context.Context, l Launcher, opts Options) (*Instance, error) {
	id := uuid.NewString()
	port := SelectPort(opts.Port)

	dir := opts.DataDir
	created := false
	if dir == "" {
		var err error
		dir, err = os.MkdirTemp("", "mongolink-"+id[:8]+"-")
		if err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
		created = true
	} else if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	socketDir := opts.SocketDir
	if socketDir == "" {
		socketDir = os.TempDir()
	}

	slog.Info("starting temporary database",
		"id", id, "launcher", l.Name(), "port", port, "data_dir", dir, "preserve", opts.Preserve)

	proc, err := l.Start(ctx, Spec{ID: id, Port: port, DataDir: dir})
	if err != nil {
		if created {
			_ = os.RemoveAll(dir)
		}
		return nil, fmt.Errorf("start %s: %w", l.Name(), err)
	}

	return &Instance{
		ID:        id,
		Launcher:  l.Name(),
		Port:      port,
		DataDir:   dir,
		SocketDir: socketDir,
		Preserve:  opts.Preserve,
		proc:      proc,
	}, nil
}

// URI returns the connection string of the running server.
func (i *Instance) URI() string {
	return i.proc.URI()
}

// SocketPath is the unix socket mongod creates for the instance port.
func (i *Instance) SocketPath() string {
	return filepath.Join(i.SocketDir, fmt.Sprintf("mongodb-%d.sock", i.Port))
}

// Stop terminates the server. Calling it again is a no-op.
func (i *Instance) Stop(ctx context.Context) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.stopped || i.proc == nil {
		return nil
	}
	i.stopped = true

	if err := i.proc.Stop(ctx); err != nil {
		return fmt.Errorf("stop instance %s: %w", i.ID, err)
	}
	return nil
}

// Teardown stops the server and, unless preserve is set, removes the data
// directory and socket file. Every step runs even when an earlier one fails;
// missing files are not errors.
func (i *Instance) Teardown(ctx context.Context, preserve bool) error {
	var errs []error

	if err := i.Stop(ctx); err != nil {
		slog.Error("failed to stop temporary database", "id", i.ID, "err", err)
		errs = append(errs, err)
	}

	if preserve {
		slog.Info("temporary database preserved", "id", i.ID, "data_dir", i.DataDir)
		return errors.Join(errs...)
	}

	if err := os.RemoveAll(i.DataDir); err != nil {
		slog.Error("failed to remove data dir", "id", i.ID, "path", i.DataDir, "err", err)
		errs = append(errs, fmt.Errorf("remove data dir: %w", err))
	}

	if err := os.Remove(i.SocketPath()); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Error("failed to remove socket file", "id", i.ID, "path", i.SocketPath(), "err", err)
		errs = append(errs, fmt.Errorf("remove socket file: %w", err))
	}

	slog.Info("temporary database removed", "id", i.ID)
	return errors.Join(errs...)
}
