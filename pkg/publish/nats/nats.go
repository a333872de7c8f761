// Package nats publishes lap events and snapshots to NATS subjects
// ovalrace.<session>.lap and ovalrace.<session>.state.
package nats

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/mpapenbr/ovalrace/log"
	"github.com/mpapenbr/ovalrace/pkg/publish"
	"github.com/mpapenbr/ovalrace/pkg/publish/codec"
	"github.com/mpapenbr/ovalrace/pkg/sim"
	"github.com/mpapenbr/ovalrace/pkg/timing"
)

const SubjectPrefix = "ovalrace"

type (
	Publisher struct {
		conn    *nats.Conn
		session string
		codec   codec.Codec
		kv      jetstream.KeyValue
		l       *log.Logger
	}
	Option func(*Publisher)
)

var _ publish.Publisher = (*Publisher)(nil)

func WithLogger(l *log.Logger) Option {
	return func(p *Publisher) {
		p.l = l
	}
}

// WithStateBucket additionally keeps the latest snapshot of the session
// in the key value bucket, keyed by session id.
func WithStateBucket(kv jetstream.KeyValue) Option {
	return func(p *Publisher) {
		p.kv = kv
	}
}

func NewPublisher(conn *nats.Conn, session string, c codec.Codec, opts ...Option) *Publisher {
	ret := &Publisher{
		conn:    conn,
		session: session,
		codec:   c,
		l:       log.Default().Named("nats"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// StateBucket creates or opens the bucket used by WithStateBucket
func StateBucket(ctx context.Context, conn *nats.Conn, name string) (jetstream.KeyValue, error) {
	js, err := jetstream.New(conn)
	if err != nil {
		return nil, fmt.Errorf("jetstream: %w", err)
	}
	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      name,
		Description: "latest ovalrace snapshot per session",
		History:     1,
	})
	if err != nil {
		return nil, fmt.Errorf("create bucket %s: %w", name, err)
	}
	return kv, nil
}

func LapSubject(session string) string {
	return fmt.Sprintf("%s.%s.lap", SubjectPrefix, session)
}

func StateSubject(session string) string {
	return fmt.Sprintf("%s.%s.state", SubjectPrefix, session)
}

func (p *Publisher) PublishLap(_ context.Context, ev timing.LapEvent) error {
	data, err := p.codec.Encode(codec.LapPayload(p.session, ev))
	if err != nil {
		return fmt.Errorf("encode lap: %w", err)
	}
	if err := p.conn.Publish(LapSubject(p.session), data); err != nil {
		return fmt.Errorf("publish lap: %w", err)
	}
	p.l.Debug("lap published", log.Int("lap", ev.Lap), log.Int("size", len(data)))
	return nil
}

func (p *Publisher) PublishState(ctx context.Context, s *sim.Snapshot) error {
	data, err := p.codec.Encode(codec.StatePayload(p.session, s))
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	if err := p.conn.Publish(StateSubject(p.session), data); err != nil {
		return fmt.Errorf("publish state: %w", err)
	}
	if p.kv != nil {
		if _, err := p.kv.Put(ctx, p.session, data); err != nil {
			return fmt.Errorf("store state: %w", err)
		}
	}
	return nil
}

// Close flushes pending messages. The connection is owned by the caller.
func (p *Publisher) Close() error {
	return p.conn.Flush()
}
