package mongodriver_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/sagarc03/mongolink/driver/mongodriver"
	"github.com/sagarc03/mongolink/settings"
)

func descriptor() settings.Descriptor {
	return settings.Descriptor{
		Alias:          settings.DefaultAlias,
		Host:           "db.internal",
		Port:           27018,
		Name:           "app",
		ReadPreference: readpref.PrimaryMode,
	}
}

func TestClientOptions_BareHost(t *testing.T) {
	t.Parallel()

	opts, err := mongodriver.ClientOptions(descriptor())
	require.NoError(t, err)

	assert.Equal(t, []string{"db.internal:27018"}, opts.Hosts)
	assert.Nil(t, opts.Auth)
	assert.Nil(t, opts.ReplicaSet)
	require.NotNil(t, opts.ReadPreference)
	assert.Equal(t, readpref.PrimaryMode, opts.ReadPreference.Mode())
}

func TestClientOptions_ZeroPortUsesDefault(t *testing.T) {
	t.Parallel()

	d := descriptor()
	d.Port = 0

	opts, err := mongodriver.ClientOptions(d)
	require.NoError(t, err)
	assert.Equal(t, []string{"db.internal:27017"}, opts.Hosts)
}

func TestClientOptions_URIHost(t *testing.T) {
	t.Parallel()

	d := descriptor()
	d.Host = "mongodb://a.example:27001,b.example:27002/?replicaSet=rs0"

	opts, err := mongodriver.ClientOptions(d)
	require.NoError(t, err)

	assert.Equal(t, []string{"a.example:27001", "b.example:27002"}, opts.Hosts)
	require.NotNil(t, opts.ReplicaSet)
	assert.Equal(t, "rs0", *opts.ReplicaSet)
}

func TestClientOptions_InvalidURI(t *testing.T) {
	t.Parallel()

	d := descriptor()
	d.Host = "mongodb://"

	_, err := mongodriver.ClientOptions(d)
	assert.Error(t, err)
}

func TestClientOptions_AuthAndReplicaSet(t *testing.T) {
	t.Parallel()

	d := descriptor()
	d.Username = "svc"
	d.Password = "hunter2"
	d.ReplicaSet = "rs1"
	d.ReadPreference = readpref.SecondaryPreferredMode
	d.Options = map[string]any{"authsource": "admin"}

	opts, err := mongodriver.ClientOptions(d)
	require.NoError(t, err)

	require.NotNil(t, opts.Auth)
	assert.Equal(t, "svc", opts.Auth.Username)
	assert.Equal(t, "hunter2", opts.Auth.Password)
	assert.Equal(t, "admin", opts.Auth.AuthSource)
	require.NotNil(t, opts.ReplicaSet)
	assert.Equal(t, "rs1", *opts.ReplicaSet)
	assert.Equal(t, readpref.SecondaryPreferredMode, opts.ReadPreference.Mode())
}

func TestClientOptions_PassthroughOptions(t *testing.T) {
	t.Parallel()

	d := descriptor()
	d.Options = map[string]any{
		"appname":                  "billing",
		"maxpoolsize":              "20",
		"minpoolsize":              2,
		"connecttimeoutms":         1500,
		"serverselectiontimeoutms": "250",
		"retrywrites":              "false",
		"tz_aware":                 true,
	}

	opts, err := mongodriver.ClientOptions(d)
	require.NoError(t, err)

	require.NotNil(t, opts.AppName)
	assert.Equal(t, "billing", *opts.AppName)
	require.NotNil(t, opts.MaxPoolSize)
	assert.Equal(t, uint64(20), *opts.MaxPoolSize)
	require.NotNil(t, opts.MinPoolSize)
	assert.Equal(t, uint64(2), *opts.MinPoolSize)
	require.NotNil(t, opts.ConnectTimeout)
	assert.Equal(t, 1500*time.Millisecond, *opts.ConnectTimeout)
	require.NotNil(t, opts.ServerSelectionTimeout)
	assert.Equal(t, 250*time.Millisecond, *opts.ServerSelectionTimeout)
	require.NotNil(t, opts.RetryWrites)
	assert.False(t, *opts.RetryWrites)
}

func TestClientOptions_BadOptionValue(t *testing.T) {
	t.Parallel()

	d := descriptor()
	d.Options = map[string]any{"maxpoolsize": "lots"}

	_, err := mongodriver.ClientOptions(d)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "maxpoolsize")
}

func TestDriver_ConnectIsLazy(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	drv := mongodriver.New()
	assert.False(t, drv.SupportsMockURI())

	d := descriptor()
	d.Host = "127.0.0.1"
	d.Port = 1

	c, err := drv.Connect(ctx, d)
	require.NoError(t, err, "connect must not contact the server")

	db := c.Database("app")
	assert.Equal(t, "app", db.Name())
	assert.Same(t, c, db.Client())

	assert.NoError(t, c.Disconnect(ctx))
}

func TestDriver_PingUnreachable(t *testing.T) {
	if testing.Short() {
		t.Skip("waits for server selection")
	}
	t.Parallel()

	ctx := context.Background()
	drv := &mongodriver.Driver{PingTimeout: 200 * time.Millisecond}

	d := descriptor()
	d.Host = "127.0.0.1"
	d.Port = 1

	c, err := drv.Connect(ctx, d)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Disconnect(ctx) })

	assert.Error(t, c.Ping(ctx))
}
