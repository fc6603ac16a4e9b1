package tempdb

import (
	"context"
	"fmt"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
)

// DefaultImage is the container image used by ContainerLauncher.
const DefaultImage = "mongo:7"

// ContainerLauncher runs the server in a docker container. The container
// publishes a random host port, so Spec.Port is not honoured; use the
// Process URI to connect.
type ContainerLauncher struct {
	Image string
}

// NewContainerLauncher returns a launcher using DefaultImage.
func NewContainerLauncher() *ContainerLauncher {
	return &ContainerLauncher{}
}

func (l *ContainerLauncher) Name() string { return "container" }

func (l *ContainerLauncher) image() string {
	if l.Image != "" {
		return l.Image
	}
	return DefaultImage
}

// Probe checks that a docker daemon is reachable.
func (l *ContainerLauncher) Probe(ctx context.Context) error {
	provider, err := testcontainers.NewDockerProvider()
	if err != nil {
		return fmt.Errorf("%w: docker provider: %v", ErrNotFound, err)
	}
	defer func() { _ = provider.Close() }()

	if err := provider.Health(ctx); err != nil {
		return fmt.Errorf("%w: docker health: %v", ErrNotFound, err)
	}
	return nil
}

// Start runs the container and waits for the module's readiness strategy.
func (l *ContainerLauncher) Start(ctx context.Context, _ Spec) (Process, error) {
	container, err := mongodb.Run(ctx, l.image())
	if err != nil {
		if container != nil {
			_ = testcontainers.TerminateContainer(container)
		}
		return nil, fmt.Errorf("run mongodb container: %w", err)
	}

	uri, err := container.ConnectionString(ctx)
	if err != nil {
		_ = testcontainers.TerminateContainer(container)
		return nil, fmt.Errorf("container connection string: %w", err)
	}

	return &containerProcess{container: container, uri: uri}, nil
}

type containerProcess struct {
	container *mongodb.MongoDBContainer
	uri       string
}

func (p *containerProcess) URI() string { return p.uri }

func (p *containerProcess) Stop(_ context.Context) error {
	if err := testcontainers.TerminateContainer(p.container); err != nil {
		return fmt.Errorf("terminate container: %w", err)
	}
	return nil
}
