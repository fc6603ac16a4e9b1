// Package mongodriver connects descriptors with the official MongoDB Go driver.
package mongodriver

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cast"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/sagarc03/mongolink"
	"github.com/sagarc03/mongolink/settings"
)

const (
	// DefaultPingTimeout bounds Client.Ping.
	DefaultPingTimeout = 2 * time.Second
	// DefaultAppName is reported to the server when none is configured.
	DefaultAppName = "mongolink"
)

// Driver opens mongo-driver clients. Clients connect lazily, as the driver
// does: Connect only fails on invalid options, Ping reaches the server.
type Driver struct {
	PingTimeout time.Duration
	AppName     string
}

// New returns a driver with default settings.
func New() *Driver {
	return &Driver{PingTimeout: DefaultPingTimeout, AppName: DefaultAppName}
}

// SupportsMockURI is false: mongomock:// is not a scheme the driver knows.
func (d *Driver) SupportsMockURI() bool { return false }

func (d *Driver) Connect(ctx context.Context, desc settings.Descriptor) (mongolink.Client, error) {
	opts, err := ClientOptions(desc)
	if err != nil {
		return nil, err
	}
	if opts.AppName == nil && d.AppName != "" {
		opts.SetAppName(d.AppName)
	}

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("mongodb connect: %w", err)
	}

	timeout := d.PingTimeout
	if timeout <= 0 {
		timeout = DefaultPingTimeout
	}
	return &Client{client: client, pingTimeout: timeout}, nil
}

// ClientOptions translates a descriptor into driver options. A host that
// contains a scheme is applied as a connection string and the port is
// ignored; a bare host is combined with the port.
func ClientOptions(desc settings.Descriptor) (*options.ClientOptions, error) {
	opts := options.Client()

	if strings.Contains(desc.Host, "://") {
		opts.ApplyURI(desc.Host)
	} else {
		port := desc.Port
		if port == 0 {
			port = settings.DefaultPort
		}
		opts.SetHosts([]string{net.JoinHostPort(desc.Host, strconv.Itoa(port))})
	}

	rp, err := readpref.New(desc.ReadPreference)
	if err != nil {
		return nil, fmt.Errorf("read preference: %w", err)
	}
	opts.SetReadPreference(rp)

	if desc.ReplicaSet != "" {
		opts.SetReplicaSet(desc.ReplicaSet)
	}

	authSource := ""
	for key, value := range desc.Options {
		if err := applyOption(opts, key, value, &authSource); err != nil {
			return nil, fmt.Errorf("option %s: %w", key, err)
		}
	}

	if desc.Username != "" {
		opts.SetAuth(options.Credential{
			Username:   desc.Username,
			Password:   desc.Password,
			AuthSource: authSource,
		})
	}

	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("validate client options: %w", err)
	}
	return opts, nil
}

func applyOption(opts *options.ClientOptions, key string, value any, authSource *string) error {
	switch key {
	case "appname":
		opts.SetAppName(cast.ToString(value))
	case "authsource":
		*authSource = cast.ToString(value)
	case "maxpoolsize":
		n, err := cast.ToUint64E(value)
		if err != nil {
			return err
		}
		opts.SetMaxPoolSize(n)
	case "minpoolsize":
		n, err := cast.ToUint64E(value)
		if err != nil {
			return err
		}
		opts.SetMinPoolSize(n)
	case "connecttimeoutms":
		d, err := millis(value)
		if err != nil {
			return err
		}
		opts.SetConnectTimeout(d)
	case "serverselectiontimeoutms":
		d, err := millis(value)
		if err != nil {
			return err
		}
		opts.SetServerSelectionTimeout(d)
	case "sockettimeoutms":
		d, err := millis(value)
		if err != nil {
			return err
		}
		opts.SetSocketTimeout(d)
	case "retrywrites":
		b, err := cast.ToBoolE(value)
		if err != nil {
			return err
		}
		opts.SetRetryWrites(b)
	case "retryreads":
		b, err := cast.ToBoolE(value)
		if err != nil {
			return err
		}
		opts.SetRetryReads(b)
	case "directconnection":
		b, err := cast.ToBoolE(value)
		if err != nil {
			return err
		}
		opts.SetDirect(b)
	default:
		slog.Debug("ignoring unsupported connection option", "option", key)
	}
	return nil
}

func millis(v any) (time.Duration, error) {
	n, err := cast.ToInt64E(v)
	if err != nil {
		return 0, err
	}
	return time.Duration(n) * time.Millisecond, nil
}

// Client wraps *mongo.Client.
type Client struct {
	client      *mongo.Client
	pingTimeout time.Duration
}

// Raw returns the driver client.
func (c *Client) Raw() *mongo.Client { return c.client }

func (c *Client) Database(name string) mongolink.Database {
	return &Database{db: c.client.Database(name), client: c}
}

func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.pingTimeout)
	defer cancel()
	if err := c.client.Ping(ctx, nil); err != nil {
		return fmt.Errorf("mongodb ping: %w", err)
	}
	return nil
}

func (c *Client) Disconnect(ctx context.Context) error {
	if err := c.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("mongodb disconnect: %w", err)
	}
	return nil
}

// Database wraps *mongo.Database.
type Database struct {
	db     *mongo.Database
	client *Client
}

// Raw returns the driver database.
func (d *Database) Raw() *mongo.Database { return d.db }

func (d *Database) Name() string { return d.db.Name() }

func (d *Database) Client() mongolink.Client { return d.client }
