package tempdb

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"syscall"
	"time"
)

const (
	// DefaultBinary is the server executable looked up on PATH.
	DefaultBinary = "mongod"
	// DefaultMaxConns caps connections to a temporary server.
	DefaultMaxConns = 10
	// DefaultStopTimeout is how long Stop waits after SIGTERM before SIGKILL.
	DefaultStopTimeout = 10 * time.Second
)

// ExecLauncher runs a local mongod process.
type ExecLauncher struct {
	// Binary is the executable name or path. Defaults to DefaultBinary.
	Binary string
	// MaxConns caps incoming connections. Defaults to DefaultMaxConns.
	MaxConns int
	// ExtraArgs are appended to the generated command line.
	ExtraArgs []string
	// Output receives the server's stdout and stderr. Nil discards it
	// unless LogName is set.
	Output io.Writer
	// LogName, when set, sends server output to this file inside the data
	// directory instead of Output.
	LogName string
	// StopTimeout bounds the graceful shutdown wait.
	StopTimeout time.Duration
}

// NewExecLauncher returns a launcher for mongod on PATH.
func NewExecLauncher() *ExecLauncher {
	return &ExecLauncher{}
}

func (l *ExecLauncher) Name() string { return "process" }

func (l *ExecLauncher) binary() string {
	if l.Binary != "" {
		return l.Binary
	}
	return DefaultBinary
}

// Probe runs "<binary> --version". Any failure, including a failure to run
// the probe itself, is reported as ErrNotFound.
func (l *ExecLauncher) Probe(ctx context.Context) error {
	path, err := exec.LookPath(l.binary())
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrNotFound, l.binary(), err)
	}

	out, err := exec.CommandContext(ctx, path, "--version").Output()
	if err != nil {
		return fmt.Errorf("%w: %s --version: %v", ErrNotFound, path, err)
	}
	if len(bytes.TrimSpace(out)) == 0 {
		return fmt.Errorf("%w: %s --version printed nothing", ErrNotFound, path)
	}
	return nil
}

// Args returns the mongod command line for spec.
func (l *ExecLauncher) Args(spec Spec) []string {
	maxConns := l.MaxConns
	if maxConns <= 0 {
		maxConns = DefaultMaxConns
	}

	args := []string{
		"--bind_ip", "localhost",
		"--port", strconv.Itoa(spec.Port),
		"--dbpath", spec.DataDir,
		"--noauth",
		"--syncdelay", "0",
		"--maxConns", strconv.Itoa(maxConns),
		"--quiet",
	}
	return append(args, l.ExtraArgs...)
}

// Start launches mongod detached from the caller's console.
func (l *ExecLauncher) Start(_ context.Context, spec Spec) (Process, error) {
	// Not CommandContext: the server must outlive the request that started it.
	cmd := exec.Command(l.binary(), l.Args(spec)...)
	cmd.Stdin = nil
	cmd.Stdout = l.Output
	cmd.Stderr = l.Output

	var logFile *os.File
	if l.LogName != "" {
		f, err := os.OpenFile(filepath.Join(spec.DataDir, l.LogName), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return nil, fmt.Errorf("open server log: %w", err)
		}
		logFile = f
		cmd.Stdout = f
		cmd.Stderr = f
	}

	if err := cmd.Start(); err != nil {
		if logFile != nil {
			_ = logFile.Close()
		}
		return nil, fmt.Errorf("start %s: %w", l.binary(), err)
	}

	timeout := l.StopTimeout
	if timeout <= 0 {
		timeout = DefaultStopTimeout
	}

	p := &execProcess{
		cmd:     cmd,
		uri:     fmt.Sprintf("mongodb://localhost:%d", spec.Port),
		timeout: timeout,
		done:    make(chan struct{}),
	}
	go func() {
		_ = cmd.Wait()
		if logFile != nil {
			_ = logFile.Close()
		}
		close(p.done)
	}()

	return p, nil
}

type execProcess struct {
	cmd     *exec.Cmd
	uri     string
	timeout time.Duration
	done    chan struct{}
}

func (p *execProcess) URI() string { return p.uri }

// Stop sends SIGTERM, waits for exit, and kills the process if it is still
// running after the timeout or when ctx ends.
func (p *execProcess) Stop(ctx context.Context) error {
	select {
	case <-p.done:
		return nil
	default:
	}

	if err := p.cmd.Process.Signal(syscall.SIGTERM); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("send SIGTERM: %w", err)
	}

	select {
	case <-p.done:
		return nil
	case <-time.After(p.timeout):
	case <-ctx.Done():
	}

	if err := p.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("kill: %w", err)
	}
	<-p.done
	return nil
}
