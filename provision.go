package mongolink

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/sagarc03/mongolink/settings"
	"github.com/sagarc03/mongolink/tempdb"
)

// provision returns a handle on the temporary instance, starting one when
// none is running. A second alias asking for a temporary database attaches
// to the running instance instead of starting another server.
func (m *Manager) provision(ctx context.Context, d settings.Descriptor, policy Policy) (*Handle, error) {
	m.instMu.Lock()
	defer m.instMu.Unlock()

	if m.instance != nil && m.instT != nil {
		h, err := m.registry.attach(d.Alias, d.Name, m.instT)
		if err != nil {
			return nil, &ConnectionError{Alias: d.Alias, Err: err}
		}
		return h, nil
	}

	launcher := m.launcherFor(policy)
	if err := launcher.Probe(ctx); err != nil {
		return nil, fmt.Errorf("%w: %s launcher is required on this host to create a TEMP_DB instance: %v",
			ErrMissingDependency, launcher.Name(), err)
	}

	opts := m.tempOpts
	opts.Port = d.Port
	if policy.TempDBLocation != "" {
		opts.DataDir = policy.TempDBLocation
	}
	opts.Preserve = opts.Preserve || policy.PreserveTempDB

	inst, err := tempdb.Start(ctx, launcher, opts)
	if err != nil {
		return nil, &ConnectionError{Alias: d.Alias, Err: err}
	}

	client, err := m.waitReady(ctx, inst, d)
	if err != nil {
		_ = inst.Teardown(context.WithoutCancel(ctx), opts.Preserve)
		return nil, &ConnectionError{Alias: d.Alias, Err: err}
	}

	t := &transport{client: client, temp: true}
	h, err := m.registry.attach(d.Alias, d.Name, t)
	if err != nil {
		_ = client.Disconnect(ctx)
		_ = inst.Teardown(context.WithoutCancel(ctx), opts.Preserve)
		return nil, &ConnectionError{Alias: d.Alias, Err: err}
	}

	m.instance = inst
	m.instT = t
	m.preserve = opts.Preserve

	slog.Info("temporary database ready", "alias", d.Alias, "uri", inst.URI(), "port", inst.Port, "data_dir", inst.DataDir)
	return h, nil
}

func (m *Manager) launcherFor(policy Policy) tempdb.Launcher {
	if m.launcher != nil {
		return m.launcher
	}
	if policy.Launcher == "container" {
		return tempdb.NewContainerLauncher()
	}
	return tempdb.NewExecLauncher()
}

// waitReady dials the instance up to readyAttempts times, pausing
// readyDelay before each attempt. It blocks until success or exhaustion.
func (m *Manager) waitReady(ctx context.Context, inst *tempdb.Instance, d settings.Descriptor) (Client, error) {
	target := settings.Descriptor{
		Alias:          d.Alias,
		Host:           inst.URI(),
		Port:           inst.Port,
		Name:           d.Name,
		ReadPreference: d.ReadPreference,
	}

	var client Client
	attempts := 0
	op := func() error {
		attempts++
		c, err := m.driver.Connect(ctx, target)
		if err != nil {
			return err
		}
		if err := c.Ping(ctx); err != nil {
			_ = c.Disconnect(ctx)
			return err
		}
		client = c
		return nil
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(m.readyDelay):
	}

	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(m.readyDelay), uint64(m.readyAttempts-1)),
		ctx,
	)
	if err := backoff.Retry(op, b); err != nil {
		return nil, fmt.Errorf("cannot connect to the test instance after %d attempts: %w", attempts, err)
	}
	return client, nil
}

// releaseInstance tears down the tracked instance, if any.
func (m *Manager) releaseInstance(ctx context.Context, preserve bool) error {
	m.instMu.Lock()
	defer m.instMu.Unlock()
	return m.releaseInstanceLocked(ctx, preserve)
}

// releaseInstanceLocked is releaseInstance with instMu held.
func (m *Manager) releaseInstanceLocked(ctx context.Context, preserve bool) error {
	if m.instance == nil {
		return nil
	}

	err := m.instance.Teardown(ctx, preserve)
	m.instance = nil
	m.instT = nil
	if err != nil {
		return fmt.Errorf("teardown temporary database: %w", err)
	}
	return nil
}

// TempInstance returns the running temporary instance, if any.
func (m *Manager) TempInstance() (*tempdb.Instance, bool) {
	m.instMu.Lock()
	defer m.instMu.Unlock()
	return m.instance, m.instance != nil
}
