package utils

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/mpapenbr/ovalrace/log"
)

const defaultNatsPort = "4222"

// WaitForTCP retries to connect to addr until it succeeds, the timeout is
// reached or ctx is done.
func WaitForTCP(ctx context.Context, addr string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	start := time.Now()
	log.Debug("wait for tcp connection",
		log.String("addr", addr),
		log.String("timeout", timeout.String()))
	var d net.Dialer
	for {
		conn, err := d.DialContext(ctx, "tcp", addr)
		if err == nil {
			conn.Close()
			log.Debug("tcp connection successful",
				log.String("addr", addr),
				log.String("duration", time.Since(start).String()))
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%s could not be reached after %v", addr, timeout)
		case <-time.After(200 * time.Millisecond):
		}
	}
}

// ExtractFromNatsURL returns host:port of the first server in a nats url
// like "nats://user:pw@host:4222,nats://other:4222"
func ExtractFromNatsURL(natsURL string) string {
	first, _, _ := strings.Cut(natsURL, ",")
	first = strings.TrimSpace(first)
	if first == "" {
		return ""
	}
	if !strings.Contains(first, "://") {
		first = "nats://" + first
	}
	u, err := url.Parse(first)
	if err != nil || u.Hostname() == "" {
		return ""
	}
	port := u.Port()
	if port == "" {
		port = defaultNatsPort
	}
	return net.JoinHostPort(u.Hostname(), port)
}
