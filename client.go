package mongolink

import (
	"context"

	"github.com/sagarc03/mongolink/settings"
)

// DefaultAlias is the alias used when configuration names none.
const DefaultAlias = settings.DefaultAlias

const (
	// MockScheme marks a host served by an in-process mock client.
	MockScheme = "mongomock://"
	// MongoScheme is the standard connection string scheme.
	MongoScheme = "mongodb://"
)

// Client is an open transport to a MongoDB deployment.
// A Client may back several aliases at once.
type Client interface {
	// Database returns a logical database view over this transport.
	Database(name string) Database

	// Ping checks that the deployment answers.
	Ping(ctx context.Context) error

	// Disconnect closes the transport. Handles sharing it become unusable.
	Disconnect(ctx context.Context) error
}

// Database is a logical database on a Client.
type Database interface {
	Name() string
	Client() Client
}

// Driver opens clients for resolved descriptors. It is the seam to the
// external client library.
type Driver interface {
	// Connect opens a client for d. The database name in d is not used to
	// build the transport; it selects the view returned by Handle.Database.
	Connect(ctx context.Context, d settings.Descriptor) (Client, error)

	// SupportsMockURI reports whether Connect accepts mongomock:// hosts.
	// When false, mock hosts are rewritten and built by the MockConstructor.
	SupportsMockURI() bool
}

// MockConstructor builds an in-process client for a mongomock host that
// has already been rewritten to the mongodb scheme.
type MockConstructor func(ctx context.Context, d settings.Descriptor) (Client, error)
