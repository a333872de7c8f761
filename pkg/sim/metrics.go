package sim

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/mpapenbr/ovalrace/log"
)

type metrics struct {
	ticks      metric.Int64Counter
	collisions metric.Int64Counter
	laps       metric.Int64Counter
	lapTime    metric.Float64Histogram
}

func newMetrics() *metrics {
	meter := otel.GetMeterProvider().Meter("ovalrace.sim")
	m := &metrics{}
	var err error
	if m.ticks, err = meter.Int64Counter("ovalrace.sim.ticks",
		metric.WithDescription("Number of simulated ticks"),
		metric.WithUnit("{tick}")); err != nil {
		log.Error("failed to register metric", log.ErrorField(err))
	}
	if m.collisions, err = meter.Int64Counter("ovalrace.sim.collisions",
		metric.WithDescription("Number of boundary collisions"),
		metric.WithUnit("{count}")); err != nil {
		log.Error("failed to register metric", log.ErrorField(err))
	}
	if m.laps, err = meter.Int64Counter("ovalrace.sim.laps",
		metric.WithDescription("Number of completed laps"),
		metric.WithUnit("{lap}")); err != nil {
		log.Error("failed to register metric", log.ErrorField(err))
	}
	if m.lapTime, err = meter.Float64Histogram("ovalrace.sim.lap_time",
		metric.WithDescription("Duration of completed laps"),
		metric.WithUnit("s")); err != nil {
		log.Error("failed to register metric", log.ErrorField(err))
	}
	return m
}

func (m *metrics) record(res *StepResult) {
	if m == nil {
		return
	}
	ctx := context.Background()
	if m.ticks != nil {
		m.ticks.Add(ctx, 1)
	}
	if res.Collision && m.collisions != nil {
		m.collisions.Add(ctx, 1)
	}
	ev, ok := res.Lap.Get()
	if !ok {
		return
	}
	if m.laps != nil {
		m.laps.Add(ctx, 1)
	}
	if m.lapTime != nil {
		m.lapTime.Record(ctx, ev.Duration.Seconds(),
			metric.WithAttributes(attribute.Bool("record", ev.NewRecord)))
	}
}
