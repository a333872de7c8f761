// Package publish defines where lap events and world snapshots go.
package publish

import (
	"context"
	"errors"

	"github.com/mpapenbr/ovalrace/log"
	"github.com/mpapenbr/ovalrace/pkg/publish/codec"
	"github.com/mpapenbr/ovalrace/pkg/sim"
	"github.com/mpapenbr/ovalrace/pkg/timing"
)

type Publisher interface {
	PublishLap(ctx context.Context, ev timing.LapEvent) error
	PublishState(ctx context.Context, s *sim.Snapshot) error
	Close() error
}

// Log only writes lap events and snapshots to the logger
type Log struct {
	session string
	log     *log.Logger
}

var _ Publisher = (*Log)(nil)

func NewLog(session string, l *log.Logger) *Log {
	return &Log{session: session, log: l}
}

func (p *Log) PublishLap(_ context.Context, ev timing.LapEvent) error {
	p.log.Info("lap",
		log.String("session", p.session),
		log.Int("lap", ev.Lap),
		log.String("duration", codec.Seconds(ev.Duration)),
		log.Bool("newRecord", ev.NewRecord))
	return nil
}

func (p *Log) PublishState(_ context.Context, s *sim.Snapshot) error {
	p.log.Debug("state",
		log.String("session", p.session),
		log.Uint64("tick", s.Tick),
		log.Int("lap", s.HUD.Lap),
		log.String("lapTime", s.HUD.LapTime),
		log.Int("speed", s.HUD.Speed))
	return nil
}

func (p *Log) Close() error {
	return nil
}

// Multi fans out to all publishers. Errors are joined.
type Multi []Publisher

var _ Publisher = Multi(nil)

func (m Multi) PublishLap(ctx context.Context, ev timing.LapEvent) error {
	var errs []error
	for _, p := range m {
		errs = append(errs, p.PublishLap(ctx, ev))
	}
	return errors.Join(errs...)
}

func (m Multi) PublishState(ctx context.Context, s *sim.Snapshot) error {
	var errs []error
	for _, p := range m {
		errs = append(errs, p.PublishState(ctx, s))
	}
	return errors.Join(errs...)
}

func (m Multi) Close() error {
	var errs []error
	for _, p := range m {
		errs = append(errs, p.Close())
	}
	return errors.Join(errs...)
}
