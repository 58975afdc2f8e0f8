// Package stats provides a minimal set of instruments backed by go-metrics,
// wrapped so the library does not leak its metrics dependency to importers,
// plus an overridable clock and a stopwatch built on it.
package stats

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/rcrowley/go-metrics"
)

// Counter counts events.
type Counter interface {
	Inc(int64)
	Count() int64
}

// Gauge holds an int64 value that can be set arbitrarily.
type Gauge interface {
	Update(int64)
	Value() int64
}

// Latency records duration samples into a histogram.
type Latency interface {
	Record(time.Duration)
	Mean() time.Duration
	Count() int64
}

// Receiver hands out instruments scoped to a hierarchical name. Names use a
// '/' path separator; a Receiver can be passed down a call tree and scoped at
// each level.
type Receiver interface {
	// Scope returns a receiver that namespaces all instruments with the
	// given elements.
	Scope(scope ...string) Receiver

	Counter(name ...string) Counter
	Gauge(name ...string) Gauge
	Latency(name ...string) Latency

	// Render marshals the current instrument values as JSON.
	Render() []byte
}

// DefaultStatsReceiver returns a Receiver backed by a fresh go-metrics
// registry.
func DefaultStatsReceiver() Receiver {
	return &defaultReceiver{registry: metrics.NewRegistry()}
}

// NilStatsReceiver returns a Receiver that drops everything.
func NilStatsReceiver() Receiver { return nilReceiver{} }

type defaultReceiver struct {
	registry metrics.Registry
	scope    []string
}

func (r *defaultReceiver) Scope(scope ...string) Receiver {
	return &defaultReceiver{registry: r.registry, scope: append(append([]string{}, r.scope...), scope...)}
}

func (r *defaultReceiver) scopedName(name ...string) string {
	elems := append(append([]string{}, r.scope...), name...)
	for i, e := range elems {
		// '/' is the path separator, strip it from dynamic elements
		elems[i] = strings.Replace(e, "/", "_SLASH_", -1)
	}
	return strings.Join(elems, "/")
}

func (r *defaultReceiver) Counter(name ...string) Counter {
	return r.registry.GetOrRegister(r.scopedName(name...), metrics.NewCounter).(metrics.Counter)
}

func (r *defaultReceiver) Gauge(name ...string) Gauge {
	return r.registry.GetOrRegister(r.scopedName(name...), metrics.NewGauge).(metrics.Gauge)
}

func (r *defaultReceiver) Latency(name ...string) Latency {
	h := r.registry.GetOrRegister(r.scopedName(name...), func() metrics.Histogram {
		return metrics.NewHistogram(metrics.NewExpDecaySample(1028, 0.015))
	}).(metrics.Histogram)
	return &metricLatency{h}
}

func (r *defaultReceiver) Render() []byte {
	out := map[string]interface{}{}
	r.registry.Each(func(name string, i interface{}) {
		switch m := i.(type) {
		case metrics.Counter:
			out[name] = m.Count()
		case metrics.Gauge:
			out[name] = m.Value()
		case metrics.Histogram:
			out[name] = map[string]interface{}{"count": m.Count(), "mean": m.Mean()}
		}
	})
	b, err := json.Marshal(out)
	if err != nil {
		return []byte("{}")
	}
	return b
}

type metricLatency struct {
	h metrics.Histogram
}

func (l *metricLatency) Record(d time.Duration) { l.h.Update(int64(d)) }
func (l *metricLatency) Mean() time.Duration    { return time.Duration(int64(l.h.Mean())) }
func (l *metricLatency) Count() int64           { return l.h.Count() }

type nilReceiver struct{}
type nilCounter struct{}
type nilGauge struct{}
type nilLatency struct{}

func (nilReceiver) Scope(...string) Receiver   { return nilReceiver{} }
func (nilReceiver) Counter(...string) Counter  { return nilCounter{} }
func (nilReceiver) Gauge(...string) Gauge      { return nilGauge{} }
func (nilReceiver) Latency(...string) Latency  { return nilLatency{} }
func (nilReceiver) Render() []byte             { return []byte("{}") }
func (nilCounter) Inc(int64)                   {}
func (nilCounter) Count() int64                { return 0 }
func (nilGauge) Update(int64)                  {}
func (nilGauge) Value() int64                  { return 0 }
func (nilLatency) Record(time.Duration)        {}
func (nilLatency) Mean() time.Duration         { return 0 }
func (nilLatency) Count() int64                { return 0 }
