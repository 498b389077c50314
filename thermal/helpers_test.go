package thermal

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/go-thermocycle/internal/clock"
	"github.com/arloliu/go-thermocycle/logger"
)

// scriptedReader returns the scripted control temperatures in order and
// repeats the last one once the script is exhausted.
type scriptedReader struct {
	mu        sync.Mutex
	control   []float64
	idx       int
	setPoint  float64
	periphery float64
	failAt    int
	reads     int
}

var errSensor = errors.New("sensor failure")

func newScriptedReader(control ...float64) *scriptedReader {
	return &scriptedReader{control: control, setPoint: 95, periphery: 30, failAt: -1}
}

func (r *scriptedReader) ControlTemperature() (float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.reads++
	if r.failAt >= 0 && r.reads > r.failAt {
		return 0, errSensor
	}

	v := r.control[min(r.idx, len(r.control)-1)]
	r.idx++

	return v, nil
}

func (r *scriptedReader) PeripheryTemperature() (float64, error) { return r.periphery, nil }

func (r *scriptedReader) SetPoint() (float64, error) { return r.setPoint, nil }

func (r *scriptedReader) Cycle() int { return 2 }

func (r *scriptedReader) controlReads() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.reads
}

func newTestWaiter(t *testing.T, r Reader, opts ...WaiterOption) (*Waiter, *clock.Fake, *logger.MockLogger) {
	t.Helper()

	clk := clock.NewFake(time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC))
	ml := logger.NewMockLogger().AllowAll()

	base := []WaiterOption{WithClock(clk), WithLogger(ml), WithSamplingInterval(time.Second)}
	w, err := NewWaiter(r, append(base, opts...)...)
	require.NoError(t, err)

	return w, clk, ml
}

// cancelAfter returns a context cancelled once clk has recorded n sleeps.
func cancelAfter(clk *clock.Fake, n int) context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	count := 0
	clk.OnSleep = func(time.Time) {
		count++
		if count >= n {
			cancel()
		}
	}

	return ctx
}
