package mongolink

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"strings"
	"sync"
	"time"

	"github.com/im7mortal/kmutex"

	"github.com/sagarc03/mongolink/settings"
	"github.com/sagarc03/mongolink/tempdb"
)

const (
	// DefaultReadyAttempts is how many times a new temporary instance is dialed.
	DefaultReadyAttempts = 3
	// DefaultReadyDelay is the pause before each readiness attempt.
	DefaultReadyDelay = 100 * time.Millisecond
)

// Manager resolves aliases to live handles. It owns the registry and at
// most one temporary database instance.
type Manager struct {
	registry *Registry
	driver   Driver
	mock     MockConstructor
	launcher tempdb.Launcher
	tempOpts tempdb.Options

	shareTransports bool
	readyAttempts   int
	readyDelay      time.Duration

	locks *kmutex.Kmutex

	appMu sync.RWMutex
	app   map[string]any

	instMu   sync.Mutex
	instance *tempdb.Instance
	instT    *transport
	preserve bool
}

// Option configures a Manager.
type Option func(*Manager)

// WithRegistry makes the manager use r instead of a fresh registry.
func WithRegistry(r *Registry) Option {
	return func(m *Manager) { m.registry = r }
}

// WithMockConstructor sets the constructor used for mongomock hosts when the
// driver cannot handle them.
func WithMockConstructor(c MockConstructor) Option {
	return func(m *Manager) { m.mock = c }
}

// WithLauncher fixes the launcher for temporary databases, ignoring
// TEMP_DB_LAUNCHER.
func WithLauncher(l tempdb.Launcher) Option {
	return func(m *Manager) { m.launcher = l }
}

// WithTempDBOptions sets defaults for temporary instances. Port, DataDir and
// Preserve are filled from the descriptor and policy when left empty.
func WithTempDBOptions(opts tempdb.Options) Option {
	return func(m *Manager) { m.tempOpts = opts }
}

// WithoutTransportSharing gives every alias its own transport.
func WithoutTransportSharing() Option {
	return func(m *Manager) { m.shareTransports = false }
}

// WithReadyRetry sets the readiness wait for temporary instances.
func WithReadyRetry(attempts int, delay time.Duration) Option {
	return func(m *Manager) {
		m.readyAttempts = attempts
		m.readyDelay = delay
	}
}

// WithAppConfig sets the application configuration the policy flags are
// read from.
func WithAppConfig(app map[string]any) Option {
	return func(m *Manager) { m.app = maps.Clone(app) }
}

// NewManager creates a manager that opens clients with driver.
func NewManager(driver Driver, opts ...Option) (*Manager, error) {
	if driver == nil {
		return nil, errors.New("driver cannot be nil")
	}

	m := &Manager{
		driver:          driver,
		shareTransports: true,
		readyAttempts:   DefaultReadyAttempts,
		readyDelay:      DefaultReadyDelay,
		locks:           kmutex.New(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.registry == nil {
		m.registry = NewRegistry()
	}
	if m.readyAttempts < 1 {
		m.readyAttempts = 1
	}

	return m, nil
}

// Registry returns the registry the manager works on.
func (m *Manager) Registry() *Registry {
	return m.registry
}

// SetAppConfig replaces the application configuration.
func (m *Manager) SetAppConfig(app map[string]any) {
	m.appMu.Lock()
	defer m.appMu.Unlock()
	m.app = maps.Clone(app)
}

func (m *Manager) appConfig() map[string]any {
	m.appMu.RLock()
	defer m.appMu.RUnlock()
	return m.app
}

// Status reports every defined alias.
func (m *Manager) Status() []Status {
	return m.registry.Status()
}

type getOptions struct {
	forceReconnect bool
}

// GetOption configures Get.
type GetOption func(*getOptions)

// ForceReconnect disconnects the alias before connecting again.
func ForceReconnect() GetOption {
	return func(o *getOptions) { o.forceReconnect = true }
}

// Create resolves app into descriptors, registers them, and connects each.
// Passwords are kept. The returned map is keyed by alias.
func (m *Manager) Create(ctx context.Context, app map[string]any) (map[string]*Handle, error) {
	if app == nil {
		return nil, fmt.Errorf("%w: invalid application configuration", ErrInvalidSettings)
	}

	m.SetAppConfig(app)

	res, err := settings.Fetch(app, settings.KeepPassword())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSettings, err)
	}
	if _, ok := res.Passthrough(); ok {
		return nil, fmt.Errorf("%w: %s must be a mapping or a list of mappings", ErrInvalidSettings, settings.SettingsKey)
	}

	for _, d := range res.Descriptors {
		m.registry.Define(d)
	}

	handles := make(map[string]*Handle, len(res.Descriptors))
	for _, d := range res.Descriptors {
		h, err := m.Get(ctx, d.Alias)
		if err != nil {
			return handles, err
		}
		handles[d.Alias] = h
	}

	return handles, nil
}

// Database returns the logical database for alias, connecting if needed.
func (m *Manager) Database(ctx context.Context, alias string, opts ...GetOption) (Database, error) {
	h, err := m.Get(ctx, alias, opts...)
	if err != nil {
		return nil, err
	}
	return h.Database(), nil
}

// Get returns the handle for alias, connecting on first use. Calls for the
// same alias are serialized; calls for different aliases run concurrently.
func (m *Manager) Get(ctx context.Context, alias string, opts ...GetOption) (*Handle, error) {
	var o getOptions
	for _, opt := range opts {
		opt(&o)
	}

	m.locks.Lock(alias)
	defer m.locks.Unlock(alias)

	if o.forceReconnect {
		preserve := false
		if p, err := PolicyFromConfig(m.appConfig()); err == nil {
			preserve = p.PreserveTempDB
		}
		if err := m.disconnect(ctx, alias, preserve); err != nil {
			slog.Warn("disconnect before reconnect failed", "alias", alias, "err", err)
		}
	}

	if h, ok := m.registry.Handle(alias); ok {
		return h, nil
	}

	d, ok := m.registry.Descriptor(alias)
	if !ok {
		return nil, notDefined(alias)
	}

	policy, err := PolicyFromConfig(m.appConfig())
	if err != nil {
		return nil, err
	}
	if err := policy.Validate(d.Host); err != nil {
		return nil, err
	}

	if policy.Testing && policy.TempDB {
		return m.provision(ctx, d, policy)
	}

	h, err := m.open(ctx, d, policy, m.shareTransports && !o.forceReconnect)
	if err != nil {
		if errors.Is(err, ErrMissingDependency) || errors.Is(err, ErrConnection) {
			return nil, err
		}
		return nil, &ConnectionError{Alias: alias, Err: err}
	}
	return h, nil
}

// open connects d through the driver or the mock constructor, reusing an
// equivalent alias's transport when share is set. A forced reconnect never
// shares so that it always yields a fresh transport.
func (m *Manager) open(ctx context.Context, d settings.Descriptor, policy Policy, share bool) (*Handle, error) {
	if share {
		if h, from, ok := m.registry.attachShared(d); ok {
			slog.Debug("sharing transport", "alias", d.Alias, "with", from)
			return h, nil
		}
	}

	connect := m.driver.Connect
	target := d
	if policy.Testing && isMockHost(d.Host) && !m.driver.SupportsMockURI() {
		if m.mock == nil {
			return nil, fmt.Errorf("%w: a mock client constructor is required for %s hosts", ErrMissingDependency, MockScheme)
		}
		target.Host = strings.Replace(d.Host, MockScheme, MongoScheme, 1)
		connect = m.mock
	}

	client, err := connect(ctx, target)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}

	h, err := m.registry.attach(d.Alias, d.Name, &transport{client: client})
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}

	slog.Debug("connected", "alias", d.Alias, "host", d.Host, "port", d.Port, "db", d.Name)
	return h, nil
}
