// Package broadcast fans out values from one source channel to any number
// of subscribers. Slow subscribers are skipped after a send timeout.
package broadcast

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/mpapenbr/ovalrace/log"
)

type BroadcastServer[T any] interface {
	Subscribe() <-chan T
	CancelSubscription(<-chan T)
	Close()
	// Done is closed once the server stopped and all subscriptions are closed
	Done() <-chan struct{}
}

type broadcastServer[T any] struct {
	name           string
	eventKey       string
	source         <-chan T
	listeners      []chan T
	addListener    chan chan T
	removeListener chan (<-chan T)
	ctx            context.Context
	cancel         context.CancelFunc
	done           chan struct{}
	sendTimeout    time.Duration
	bufferSize     int
	telemetry      bool
	log            *log.Logger

	numRcv      atomic.Int64
	numSnd      atomic.Int64
	numSkip     atomic.Int64
	numListener atomic.Int64
}

type Option[T any] func(*broadcastServer[T])

// WithTelemetry registers observable gauges tagged with eventKey
func WithTelemetry[T any](eventKey string) Option[T] {
	return func(b *broadcastServer[T]) {
		b.eventKey = eventKey
		b.telemetry = true
	}
}

func WithSendTimeout[T any](d time.Duration) Option[T] {
	return func(b *broadcastServer[T]) {
		b.sendTimeout = d
	}
}

// WithBufferSize sets the capacity of subscriber channels
func WithBufferSize[T any](n int) Option[T] {
	return func(b *broadcastServer[T]) {
		b.bufferSize = n
	}
}

func WithLogger[T any](l *log.Logger) Option[T] {
	return func(b *broadcastServer[T]) {
		b.log = l
	}
}

//nolint:whitespace // false positive
func NewBroadcastServer[T any](
	name string,
	source <-chan T,
	opts ...Option[T],
) BroadcastServer[T] {
	ctx, cancel := context.WithCancel(context.Background())
	b := &broadcastServer[T]{
		name:           name,
		source:         source,
		addListener:    make(chan chan T),
		removeListener: make(chan (<-chan T)),
		ctx:            ctx,
		cancel:         cancel,
		done:           make(chan struct{}),
		sendTimeout:    50 * time.Millisecond,
		log:            log.Default().Named("broadcast"),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.telemetry {
		b.setupMetrics()
	}
	go b.serve()
	return b
}

// Subscribe returns a channel receiving all values sent after the call.
// After Close the returned channel is already closed.
func (b *broadcastServer[T]) Subscribe() <-chan T {
	ch := make(chan T, b.bufferSize)
	select {
	case b.addListener <- ch:
	case <-b.done:
		close(ch)
	}
	return ch
}

func (b *broadcastServer[T]) CancelSubscription(ch <-chan T) {
	select {
	case b.removeListener <- ch:
	case <-b.done:
	}
}

func (b *broadcastServer[T]) Close() {
	b.cancel()
	<-b.done
	b.log.Info("broadcast server closed",
		log.String("name", b.name),
		log.Int64("rcv", b.numRcv.Load()),
		log.Int64("snd", b.numSnd.Load()),
		log.Int64("skip", b.numSkip.Load()))
}

func (b *broadcastServer[T]) Done() <-chan struct{} {
	return b.done
}

func (b *broadcastServer[T]) setupMetrics() {
	meter := otel.GetMeterProvider().Meter(fmt.Sprintf("ovalrace.broadcast.%s", b.name))
	attrs := metric.WithAttributes(
		attribute.String("name", b.name),
		attribute.String("event", b.eventKey),
	)
	for _, d := range []struct {
		name  string
		desc  string
		value *atomic.Int64
	}{
		{"ovalrace.broadcast.rcv", "Number of received messages", &b.numRcv},
		{"ovalrace.broadcast.snd", "Number of sent messages", &b.numSnd},
		{"ovalrace.broadcast.skip", "Number of skipped messages", &b.numSkip},
		{"ovalrace.broadcast.listener", "Number of listeners", &b.numListener},
	} {
		value := d.value
		if _, err := meter.Int64ObservableGauge(
			d.name,
			metric.WithDescription(d.desc),
			metric.WithUnit("{count}"),
			metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
				o.Observe(value.Load(), attrs)
				return nil
			})); err != nil {
			b.log.Error("failed to register metric",
				log.String("metric", d.name),
				log.ErrorField(err))
		}
	}
}

func (b *broadcastServer[T]) serve() {
	defer func() {
		for _, listener := range b.listeners {
			close(listener)
		}
		b.listeners = nil
		b.numListener.Store(0)
		close(b.done)
	}()
	for {
		select {
		case <-b.ctx.Done():
			return
		case ch := <-b.addListener:
			b.listeners = append(b.listeners, ch)
			b.numListener.Store(int64(len(b.listeners)))
		case ch := <-b.removeListener:
			b.remove(ch)
		case msg, ok := <-b.source:
			if !ok {
				b.log.Debug("source closed", log.String("name", b.name))
				return
			}
			b.numRcv.Add(1)
			b.send(msg)
		}
	}
}

func (b *broadcastServer[T]) remove(ch <-chan T) {
	for i, listener := range b.listeners {
		if listener == ch {
			b.listeners = append(b.listeners[:i], b.listeners[i+1:]...)
			close(listener)
			break
		}
	}
	b.numListener.Store(int64(len(b.listeners)))
}

func (b *broadcastServer[T]) send(msg T) {
	for _, listener := range b.listeners {
		timer := time.NewTimer(b.sendTimeout)
		select {
		case listener <- msg:
			b.numSnd.Add(1)
		case <-timer.C:
			b.numSkip.Add(1)
			b.log.Debug("skipping listener", log.String("name", b.name))
		case <-b.ctx.Done():
		}
		timer.Stop()
	}
}
