package controller

import (
	"github.com/puzpuzpuz/xsync/v3"
)

// Metrics contains counters for a controller session. The counters are safe
// for concurrent reads while the session runs.
type Metrics struct {
	// ExchangeCount indicates the number of completed request/response exchanges.
	ExchangeCount *xsync.Counter
	// ErrorCount indicates the number of failed exchanges.
	ErrorCount *xsync.Counter
	// FlushCount indicates the number of input buffer flushes.
	FlushCount *xsync.Counter

	// lastValues holds the last value set or read per parameter name.
	lastValues *xsync.MapOf[string, float64]
}

func newMetrics() *Metrics {
	return &Metrics{
		ExchangeCount: xsync.NewCounter(),
		ErrorCount:    xsync.NewCounter(),
		FlushCount:    xsync.NewCounter(),
		lastValues:    xsync.NewMapOf[string, float64](),
	}
}

func (m *Metrics) incExchangeCount() {
	m.ExchangeCount.Inc()
}

func (m *Metrics) incErrorCount() {
	m.ErrorCount.Inc()
}

func (m *Metrics) incFlushCount() {
	m.FlushCount.Inc()
}

func (m *Metrics) storeValue(p Parameter, v float64) {
	m.lastValues.Store(p.String(), v)
}

// LastValue returns the last value exchanged for p.
func (m *Metrics) LastValue(p Parameter) (float64, bool) {
	return m.lastValues.Load(p.String())
}

// LastValues returns a snapshot of the last value exchanged per parameter.
func (m *Metrics) LastValues() map[string]float64 {
	out := make(map[string]float64, m.lastValues.Size())
	m.lastValues.Range(func(k string, v float64) bool {
		out[k] = v
		return true
	})

	return out
}
