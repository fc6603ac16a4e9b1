package e2e_test

import (
	"context"
	"sync"
	"testing"

	"github.com/testcontainers/testcontainers-go"
	mongocontainer "github.com/testcontainers/testcontainers-go/modules/mongodb"
)

var (
	mongoOnce    sync.Once
	mongoURI     string
	mongoErr     error
	mongoCleanup func()
)

// getSharedMongoURI returns the connection string of a MongoDB container
// shared by every test in the package.
func getSharedMongoURI(t *testing.T) string {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	mongoOnce.Do(func() {
		ctx := context.Background()

		container, err := mongocontainer.Run(ctx, "mongo:7")
		if err != nil {
			mongoErr = err
			return
		}

		mongoCleanup = func() {
			_ = testcontainers.TerminateContainer(container)
		}

		mongoURI, mongoErr = container.ConnectionString(ctx)
	})

	if mongoErr != nil {
		t.Fatalf("failed to start mongodb container: %v", mongoErr)
	}
	return mongoURI
}
