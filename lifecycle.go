package mongolink

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Disconnect closes the handle for alias. The transport is only closed once
// no other alias shares it. When the temporary instance loses its last
// handle it is stopped, and unless preserve is set its data directory and
// socket file are removed. Disconnecting an alias without a handle is a
// no-op. Teardown failures are logged and returned after every step ran.
func (m *Manager) Disconnect(ctx context.Context, alias string, preserve bool) error {
	m.locks.Lock(alias)
	defer m.locks.Unlock(alias)
	return m.disconnect(ctx, alias, preserve)
}

func (m *Manager) disconnect(ctx context.Context, alias string, preserve bool) error {
	h, ok := m.registry.Handle(alias)
	if !ok {
		return nil
	}

	// The alias lock pins h. A temp handle is released under instMu so that
	// provision cannot attach to the instance while it is torn down.
	if h.t.temp {
		m.instMu.Lock()
		defer m.instMu.Unlock()
	}

	h, last := m.registry.detach(alias)
	if h == nil {
		return nil
	}

	var errs []error
	if last {
		if err := h.t.client.Disconnect(ctx); err != nil {
			slog.Error("failed to close client", "alias", alias, "err", err)
			errs = append(errs, fmt.Errorf("close client %q: %w", alias, err))
		}
	}

	if last && h.t.temp {
		if err := m.releaseInstanceLocked(ctx, preserve); err != nil {
			errs = append(errs, err)
		}
	}

	slog.Debug("disconnected", "alias", alias, "closed_transport", last)
	return errors.Join(errs...)
}

// Close disconnects every alias and stops the temporary instance, honouring
// the preserve flag captured when it was provisioned. It is safe to call
// more than once and is meant to be deferred by the host application.
func (m *Manager) Close(ctx context.Context) error {
	m.instMu.Lock()
	preserve := m.preserve
	m.instMu.Unlock()

	var errs []error
	for _, alias := range m.registry.Connected() {
		if err := m.Disconnect(ctx, alias, preserve); err != nil {
			errs = append(errs, err)
		}
	}

	if err := m.releaseInstance(ctx, preserve); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}
