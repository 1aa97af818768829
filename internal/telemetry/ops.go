package telemetry

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const engineScopeName = "github.com/tixhq/tix/engine"

type instruments struct {
	tracer trace.Tracer
	ops    metric.Int64Counter
	dur    metric.Float64Histogram
	errs   metric.Int64Counter
}

var (
	instOnce sync.Once
	inst     *instruments
)

func engineInstruments() *instruments {
	instOnce.Do(func() {
		m := Meter(engineScopeName)
		ops, _ := m.Int64Counter("tix.engine.operations",
			metric.WithDescription("Total engine operations executed"),
		)
		dur, _ := m.Float64Histogram("tix.engine.operation.duration",
			metric.WithDescription("Engine operation duration in milliseconds"),
			metric.WithUnit("ms"),
		)
		errs, _ := m.Int64Counter("tix.engine.errors",
			metric.WithDescription("Total engine operation errors"),
		)
		inst = &instruments{
			tracer: Tracer(engineScopeName),
			ops:    ops,
			dur:    dur,
			errs:   errs,
		}
	})
	return inst
}

// Op is one instrumented engine operation. The zero value is a no-op.
type Op struct {
	inst  *instruments
	span  trace.Span
	ctx   context.Context
	start time.Time
	attrs []attribute.KeyValue
}

// Start opens a span and counts the named operation. When telemetry is
// disabled it returns ctx unchanged and an inert Op.
func Start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, *Op) {
	if !Enabled() {
		return ctx, &Op{}
	}
	in := engineInstruments()
	all := append([]attribute.KeyValue{attribute.String("tix.operation", name)}, attrs...)
	ctx, span := in.tracer.Start(ctx, "tix."+name, trace.WithAttributes(all...))
	in.ops.Add(ctx, 1, metric.WithAttributes(all...))
	return ctx, &Op{inst: in, span: span, ctx: ctx, start: time.Now(), attrs: all}
}

// End records duration and, when err is non-nil, the failure.
func (o *Op) End(err error) {
	if o == nil || o.inst == nil {
		return
	}
	ms := float64(time.Since(o.start).Milliseconds())
	o.inst.dur.Record(o.ctx, ms, metric.WithAttributes(o.attrs...))
	if err != nil {
		o.span.RecordError(err)
		o.span.SetStatus(codes.Error, err.Error())
		o.inst.errs.Add(o.ctx, 1, metric.WithAttributes(o.attrs...))
	}
	o.span.End()
}
