// Package mongolink manages the lifecycle of named MongoDB connections.
//
// Applications describe their databases once, as a MONGODB_SETTINGS mapping,
// a list of mappings, or flat MONGODB_* keys. The Manager resolves those
// settings into aliases, connects each alias lazily on first use, and hands
// back a Handle bound to the alias's logical database.
//
// # Key Components
//
//   - Manager: resolves aliases to handles, serializes connects per alias
//   - Registry: alias to descriptor and alias to handle maps
//   - Driver: opens transports (see driver/mongodriver and driver/memory)
//   - Policy: the TESTING, TEMP_DB and PRESERVE_TEMP_DB flags
//
// Aliases whose descriptors differ only by database name share one
// transport. The transport is closed when its last alias disconnects.
//
// # Test Mode
//
// With TESTING set, hosts using the mongomock:// scheme are served by an
// in-process client, and TEMP_DB provisions a throwaway mongod through a
// tempdb.Launcher. The instance is stopped, and its data directory removed
// unless PRESERVE_TEMP_DB is set, when its last handle is disconnected or
// the manager is closed.
//
// # Example Usage
//
//	m, err := mongolink.NewManager(mongodriver.New(),
//	    mongolink.WithMockConstructor(memory.NewClient))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer m.Close(context.Background())
//
//	handles, err := m.Create(ctx, appConfig)
//
//	// Later, anywhere in the application
//	db, err := m.Database(ctx, "default-mongodb-connection")
//
// See the http package for status endpoints and cmd/mongolink for the CLI.
package mongolink
