package tcnats

import (
	"context"
	"fmt"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const clientPort = "4222/tcp"

// NatsContainer represents the nats container type used in the module
type NatsContainer struct {
	testcontainers.Container
}

type NatsContainerOption func(req *testcontainers.ContainerRequest)

func WithWaitStrategy(strategies ...wait.Strategy) NatsContainerOption {
	return func(req *testcontainers.ContainerRequest) {
		req.WaitingFor = wait.ForAll(strategies...).WithDeadline(1 * time.Minute)
	}
}

func WithName(containerName string) NatsContainerOption {
	return func(req *testcontainers.ContainerRequest) {
		req.Name = containerName
	}
}

// WithJetStream enables jetstream on the server
func WithJetStream() NatsContainerOption {
	return func(req *testcontainers.ContainerRequest) {
		req.Cmd = append(req.Cmd, "-js")
	}
}

// SetupNats creates an instance of the nats container type
func SetupNats(ctx context.Context, opts ...NatsContainerOption) (
	*NatsContainer, error,
) {
	req := testcontainers.ContainerRequest{
		Image:        "nats:2.10",
		ExposedPorts: []string{clientPort},
		Cmd:          []string{},
		WaitingFor:   wait.ForLog("Server is ready"),
	}

	for _, opt := range opts {
		opt(&req)
	}

	container, err := testcontainers.GenericContainer(
		ctx,
		testcontainers.GenericContainerRequest{
			ContainerRequest: req,
			Started:          true,
		})
	if err != nil {
		return nil, err
	}

	return &NatsContainer{Container: container}, nil
}

// URL returns the client url of the running container
func (c *NatsContainer) URL(ctx context.Context) (string, error) {
	port, err := c.MappedPort(ctx, nat.Port(clientPort))
	if err != nil {
		return "", err
	}
	host, err := c.Host(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("nats://%s:%s", host, port.Port()), nil
}
