package tcnats

import (
	"context"
	"testing"

	"github.com/nats-io/nats.go"
	"github.com/testcontainers/testcontainers-go"
)

// SetupTestServer starts a jetstream enabled nats server and returns a
// connection to it. The test is skipped when no container runtime is available.
func SetupTestServer(t *testing.T) *nats.Conn {
	t.Helper()
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := SetupNats(ctx, WithJetStream())
	if err != nil {
		t.Fatalf("could not start nats container: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("could not terminate nats container: %v", err)
		}
	})

	url, err := container.URL(ctx)
	if err != nil {
		t.Fatalf("could not get nats url: %v", err)
	}
	conn, err := nats.Connect(url)
	if err != nil {
		t.Fatalf("could not connect to nats: %v", err)
	}
	t.Cleanup(conn.Close)
	return conn
}
