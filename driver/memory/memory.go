// Package memory is an in-process stand-in for a MongoDB deployment.
//
// It backs mongomock:// hosts in test mode and lets the connection manager be
// exercised without a server. Documents are kept per database and collection
// in plain maps; there is no query language.
package memory

import (
	"context"
	"errors"
	"maps"
	"sync"
	"sync/atomic"

	"github.com/sagarc03/mongolink"
	"github.com/sagarc03/mongolink/settings"
)

// ErrClosed is returned by a client after Disconnect.
var ErrClosed = errors.New("memory: client is disconnected")

// Driver opens memory clients. It accepts mongomock:// hosts directly.
type Driver struct {
	dials atomic.Int64
}

// NewDriver returns a memory driver.
func NewDriver() *Driver {
	return &Driver{}
}

func (d *Driver) Connect(ctx context.Context, desc settings.Descriptor) (mongolink.Client, error) {
	d.dials.Add(1)
	return NewClient(ctx, desc)
}

func (d *Driver) SupportsMockURI() bool { return true }

// Dials returns how many clients the driver has opened.
func (d *Driver) Dials() int {
	return int(d.dials.Load())
}

// NewClient creates a memory client. It has the MockConstructor signature.
func NewClient(_ context.Context, desc settings.Descriptor) (mongolink.Client, error) {
	return &Client{
		host: desc.Host,
		dbs:  make(map[string]*Database),
	}, nil
}

// Client is an in-memory transport.
type Client struct {
	host string

	mu     sync.Mutex
	closed bool
	dbs    map[string]*Database
}

// Host returns the host the client was created for.
func (c *Client) Host() string { return c.host }

// Database returns the database called name, creating it on first use.
func (c *Client) Database(name string) mongolink.Database {
	c.mu.Lock()
	defer c.mu.Unlock()

	db, ok := c.dbs[name]
	if !ok {
		db = &Database{name: name, client: c, colls: make(map[string][]map[string]any)}
		c.dbs[name] = db
	}
	return db
}

func (c *Client) Ping(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	return nil
}

func (c *Client) Disconnect(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	c.closed = true
	return nil
}

// Closed reports whether Disconnect was called.
func (c *Client) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Database holds collections of documents.
type Database struct {
	name   string
	client *Client

	mu    sync.Mutex
	colls map[string][]map[string]any
}

func (db *Database) Name() string { return db.name }

func (db *Database) Client() mongolink.Client { return db.client }

// Insert appends a copy of doc to coll.
func (db *Database) Insert(coll string, doc map[string]any) error {
	if db.client.Closed() {
		return ErrClosed
	}
	db.mu.Lock()
	defer db.mu.Unlock()
	db.colls[coll] = append(db.colls[coll], maps.Clone(doc))
	return nil
}

// Count returns the number of documents in coll.
func (db *Database) Count(coll string) int {
	db.mu.Lock()
	defer db.mu.Unlock()
	return len(db.colls[coll])
}
