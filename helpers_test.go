package mongolink_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/sagarc03/mongolink"
	"github.com/sagarc03/mongolink/driver/memory"
	"github.com/sagarc03/mongolink/settings"
	"github.com/sagarc03/mongolink/tempdb"
)

type SpyDriver struct {
	mock.Mock
}

func (s *SpyDriver) Connect(ctx context.Context, d settings.Descriptor) (mongolink.Client, error) {
	args := s.Called(ctx, d)
	c, _ := args.Get(0).(mongolink.Client)
	return c, args.Error(1)
}

func (s *SpyDriver) SupportsMockURI() bool {
	return s.Called().Bool(0)
}

type fakeProcess struct {
	port  int
	stops atomic.Int32
}

func (p *fakeProcess) URI() string {
	return fmt.Sprintf("mongodb://localhost:%d", p.port)
}

func (p *fakeProcess) Stop(context.Context) error {
	p.stops.Add(1)
	return nil
}

type fakeLauncher struct {
	probeErr error
	startErr error

	mu    sync.Mutex
	specs []tempdb.Spec
	procs []*fakeProcess
}

func (l *fakeLauncher) Name() string { return "fake" }

func (l *fakeLauncher) Probe(context.Context) error { return l.probeErr }

func (l *fakeLauncher) Start(_ context.Context, spec tempdb.Spec) (tempdb.Process, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.specs = append(l.specs, spec)
	if l.startErr != nil {
		return nil, l.startErr
	}
	p := &fakeProcess{port: spec.Port}
	l.procs = append(l.procs, p)
	return p, nil
}

func (l *fakeLauncher) starts() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.specs)
}

func (l *fakeLauncher) process(i int) *fakeProcess {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.procs[i]
}

// gatedDriver opens memory clients. The first client it opens blocks in
// Disconnect until release is closed, after closing entered.
type gatedDriver struct {
	entered chan struct{}
	release chan struct{}

	mu      sync.Mutex
	clients []*gatedClient
}

func newGatedDriver() *gatedDriver {
	return &gatedDriver{entered: make(chan struct{}), release: make(chan struct{})}
}

func (d *gatedDriver) Connect(ctx context.Context, desc settings.Descriptor) (mongolink.Client, error) {
	inner, err := memory.NewClient(ctx, desc)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	c := &gatedClient{Client: inner}
	if len(d.clients) == 0 {
		c.entered, c.release = d.entered, d.release
	}
	d.clients = append(d.clients, c)
	return c, nil
}

func (d *gatedDriver) SupportsMockURI() bool { return true }

func (d *gatedDriver) client(i int) *gatedClient {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.clients[i]
}

type gatedClient struct {
	mongolink.Client
	entered chan struct{}
	release chan struct{}
}

func (c *gatedClient) Disconnect(ctx context.Context) error {
	if c.release != nil {
		close(c.entered)
		<-c.release
	}
	return c.Client.Disconnect(ctx)
}

func desc(alias, host, name string) settings.Descriptor {
	return settings.Descriptor{
		Alias:          alias,
		Host:           host,
		Port:           settings.DefaultPort,
		Name:           name,
		ReadPreference: readpref.PrimaryMode,
	}
}

func testingApp(extra map[string]any) map[string]any {
	app := map[string]any{mongolink.KeyTesting: true}
	for k, v := range extra {
		app[k] = v
	}
	return app
}

func newMemoryManager(t *testing.T, app map[string]any, opts ...mongolink.Option) (*mongolink.Manager, *memory.Driver) {
	t.Helper()
	drv := memory.NewDriver()
	opts = append([]mongolink.Option{mongolink.WithAppConfig(app)}, opts...)
	m, err := mongolink.NewManager(drv, opts...)
	require.NoError(t, err, "new manager")
	t.Cleanup(func() { _ = m.Close(context.Background()) })
	return m, drv
}
