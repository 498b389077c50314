package thermal

import (
	"bytes"
	"context"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWaiter_Validation(t *testing.T) {
	_, err := NewWaiter(nil)
	require.ErrorIs(t, err, ErrReaderNil)

	r := newScriptedReader(25)
	for _, opt := range []WaiterOption{
		WithSamplingInterval(0),
		WithSamplingInterval(MaxSamplingInterval + time.Second),
		WithTimeLimit(0),
		WithTolerance(0),
		WithTolerance(-1),
		WithLogger(nil),
		WithClock(nil),
	} {
		_, err := NewWaiter(r, opt)
		require.Error(t, err)
	}

	w, err := NewWaiter(r)
	require.NoError(t, err)
	assert.Equal(t, DefaultSamplingInterval, w.SamplingInterval())
	assert.Equal(t, DefaultTimeLimit, w.TimeLimit())
	assert.InDelta(t, DefaultTolerance, w.Tolerance(), 1e-9)
	assert.Nil(t, w.Telemetry())
}

func TestWaitForSteadyState_Converges(t *testing.T) {
	r := newScriptedReader(25, 50, 80, 94.5, 95)
	w, _, _ := newTestWaiter(t, r)

	res, err := w.WaitForSteadyState(context.Background(), 95, 1, time.Minute)
	require.NoError(t, err)

	assert.Equal(t, OutcomeSteady, res.Outcome)
	assert.Equal(t, 4, res.Samples)
	assert.InDelta(t, 94.5, res.Temperature, 1e-9)
	assert.Equal(t, 4*time.Second, res.Elapsed)
}

func TestWaitForSteadyState_ExactMatchIsNotSteady(t *testing.T) {
	r := newScriptedReader(95, 95, 94.2)
	w, _, _ := newTestWaiter(t, r)

	res, err := w.WaitForSteadyState(context.Background(), 95, 1, time.Minute)
	require.NoError(t, err)

	assert.Equal(t, OutcomeSteady, res.Outcome)
	assert.Equal(t, 3, res.Samples)
	assert.InDelta(t, 94.2, res.Temperature, 1e-9)
}

func TestWaitForSteadyState_DefaultTolerance(t *testing.T) {
	// 1.5 away is outside the default 1.0 band, 0.9 is inside
	r := newScriptedReader(93.5, 94.1)
	w, _, _ := newTestWaiter(t, r)

	res, err := w.WaitForSteadyState(context.Background(), 95, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSteady, res.Outcome)
	assert.Equal(t, 2, res.Samples)
}

func TestWaitForSteadyState_TimesOut(t *testing.T) {
	r := newScriptedReader(25)
	w, _, ml := newTestWaiter(t, r)

	res, err := w.WaitForSteadyState(context.Background(), 95, 1, 5*time.Second)
	require.NoError(t, err)

	assert.Equal(t, OutcomeTimedOut, res.Outcome)
	assert.Equal(t, 6*time.Second, res.Elapsed)
	assert.Equal(t, 6, res.Samples)
	assert.Equal(t, []string{"thermal: steady state time limit exceeded"}, ml.Messages("Warn"))
	assert.Contains(t, ml.Messages("Info"), "thermal: steady state wait finished")
}

func TestWaitForSteadyState_TerminationBound(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	for _, interval := range []time.Duration{100 * time.Millisecond, time.Second, 7 * time.Second} {
		for _, limit := range []time.Duration{time.Second, 10 * time.Second, time.Minute} {
			seq := make([]float64, 50)
			for i := range seq {
				seq[i] = 20 + rng.Float64()*30
			}
			r := newScriptedReader(seq...)
			w, _, _ := newTestWaiter(t, r, WithSamplingInterval(interval))

			res, err := w.WaitForSteadyState(context.Background(), 95, 1, limit)
			require.NoError(t, err)
			assert.Equal(t, OutcomeTimedOut, res.Outcome)
			assert.LessOrEqual(t, res.Elapsed, limit+interval, "interval %v limit %v", interval, limit)
			assert.Greater(t, res.Elapsed, limit)
		}
	}
}

func TestWaitForSteadyState_ReadError(t *testing.T) {
	r := newScriptedReader(25, 30, 40)
	r.failAt = 2
	w, _, _ := newTestWaiter(t, r)

	res, err := w.WaitForSteadyState(context.Background(), 95, 1, time.Minute)
	require.ErrorIs(t, err, errSensor)
	assert.Equal(t, 2, res.Samples)
}

func TestWaitForSteadyState_Cancelled(t *testing.T) {
	r := newScriptedReader(25)
	w, clk, _ := newTestWaiter(t, r)

	ctx := cancelAfter(clk, 3)
	_, err := w.WaitForSteadyState(ctx, 95, 1, time.Hour)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 4, r.controlReads())
}

func TestWaitForSteadyState_Telemetry(t *testing.T) {
	var buf bytes.Buffer
	tl := NewTelemetryLog(&buf)
	var console bytes.Buffer

	r := newScriptedReader(60, 70, 71.5)
	w, clk, _ := newTestWaiter(t, r, WithTelemetry(tl), WithReadout(NewReadout(&console)))

	res, err := w.WaitForSteadyState(context.Background(), 72, 1, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, res.Samples, tl.Count())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasSuffix(lines[2], "\t95.000000\t71.500000\t30.000000"), lines[2])

	last, ok := tl.Last()
	require.True(t, ok)
	assert.InDelta(t, 71.5, last.Control, 1e-9)
	assert.Equal(t, clk.Now().Add(-time.Second), last.Time)

	assert.Equal(t, 3, strings.Count(console.String(), "\r"))
	assert.True(t, strings.HasSuffix(console.String(), "\n"))
}

func TestPollUntilTrigger_RampUp(t *testing.T) {
	r := newScriptedReader(25, 40, 60, 79.5, 85)
	w, _, _ := newTestWaiter(t, r)

	res, err := w.PollUntilTrigger(context.Background(), 80, 1, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, OutcomeTriggered, res.Outcome)
	assert.Equal(t, 4, res.Samples)
	assert.Equal(t, 3*time.Second, res.Elapsed)
}

func TestPollUntilTrigger_RampDownCrossing(t *testing.T) {
	r := newScriptedReader(95, 80, 55)
	w, _, _ := newTestWaiter(t, r)

	res, err := w.PollUntilTrigger(context.Background(), 60, 1, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, OutcomeCrossed, res.Outcome)
	assert.InDelta(t, 55.0, res.Temperature, 1e-9)
}

func TestPollUntilTrigger_RampUpCrossing(t *testing.T) {
	r := newScriptedReader(30, 50, 90)
	w, _, _ := newTestWaiter(t, r)

	res, err := w.PollUntilTrigger(context.Background(), 70, 1, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, OutcomeCrossed, res.Outcome)
	assert.Equal(t, 3, res.Samples)
}

func TestPollUntilTrigger_AlreadyThere(t *testing.T) {
	r := newScriptedReader(69.5)
	w, clk, _ := newTestWaiter(t, r)

	res, err := w.PollUntilTrigger(context.Background(), 70, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, OutcomeTriggered, res.Outcome)
	assert.Empty(t, clk.Sleeps())
}

func TestPollUntilTrigger_TimesOut(t *testing.T) {
	r := newScriptedReader(30)
	w, _, ml := newTestWaiter(t, r)

	res, err := w.PollUntilTrigger(context.Background(), 70, 1, 3*time.Second)
	require.NoError(t, err)
	assert.Equal(t, OutcomeTimedOut, res.Outcome)
	assert.Equal(t, 4*time.Second, res.Elapsed)
	assert.Equal(t, []string{"thermal: trigger time limit exceeded"}, ml.Messages("Warn"))
}

func TestPollUntilTrigger_TimeoutReportsFreshReading(t *testing.T) {
	r := newScriptedReader(30, 31, 32, 33, 34)
	w, _, ml := newTestWaiter(t, r)

	res, err := w.PollUntilTrigger(context.Background(), 70, 1, 3*time.Second)
	require.NoError(t, err)
	assert.Equal(t, OutcomeTimedOut, res.Outcome)
	assert.Equal(t, 5, res.Samples)
	assert.InDelta(t, 34.0, res.Temperature, 1e-9)
	assert.Equal(t, 4*time.Second, res.Elapsed)

	var warned []any
	for _, c := range ml.Calls {
		if c.Method == "Warn" {
			warned = c.Arguments.Get(1).([]any)
		}
	}
	require.NotNil(t, warned)
	assert.Contains(t, warned, 34.0)
}

func TestPollUntilTrigger_TelemetryIncludesTerminalReading(t *testing.T) {
	var buf bytes.Buffer
	tl := NewTelemetryLog(&buf)
	var console bytes.Buffer

	r := newScriptedReader(25, 40, 60, 79.5)
	w, _, _ := newTestWaiter(t, r, WithTelemetry(tl), WithReadout(NewReadout(&console)))

	res, err := w.PollUntilTrigger(context.Background(), 80, 1, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, OutcomeTriggered, res.Outcome)
	assert.Equal(t, res.Samples, tl.Count())

	last, ok := tl.Last()
	require.True(t, ok)
	assert.InDelta(t, 79.5, last.Control, 1e-9)
	assert.Equal(t, 4, strings.Count(console.String(), "\r"))
}

func TestPollUntilTrigger_EntryReadError(t *testing.T) {
	r := newScriptedReader(30)
	r.failAt = 0
	w, _, _ := newTestWaiter(t, r)

	_, err := w.PollUntilTrigger(context.Background(), 70, 1, time.Minute)
	require.ErrorIs(t, err, errSensor)
}

func TestIncubate(t *testing.T) {
	tests := []struct {
		duration time.Duration
		samples  int
		elapsed  time.Duration
	}{
		{0, 0, 0},
		{-time.Second, 0, 0},
		{time.Second, 1, time.Second},
		{3 * time.Second, 3, 3 * time.Second},
		{2500 * time.Millisecond, 3, 3 * time.Second},
	}

	for _, tt := range tests {
		r := newScriptedReader(72)
		w, _, _ := newTestWaiter(t, r)

		res, err := w.Incubate(context.Background(), tt.duration)
		require.NoError(t, err)
		assert.Equal(t, OutcomeCompleted, res.Outcome, "duration %v", tt.duration)
		assert.Equal(t, tt.samples, res.Samples, "duration %v", tt.duration)
		assert.Equal(t, tt.elapsed, res.Elapsed, "duration %v", tt.duration)
		assert.Equal(t, tt.samples, r.controlReads())
	}
}

func TestIncubate_Cancelled(t *testing.T) {
	r := newScriptedReader(72)
	w, clk, _ := newTestWaiter(t, r)

	ctx := cancelAfter(clk, 2)
	res, err := w.Incubate(ctx, time.Minute)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 3, res.Samples)
}

func TestOutcome_String(t *testing.T) {
	assert.Equal(t, "steady", OutcomeSteady.String())
	assert.Equal(t, "triggered", OutcomeTriggered.String())
	assert.Equal(t, "crossed", OutcomeCrossed.String())
	assert.Equal(t, "timed_out", OutcomeTimedOut.String())
	assert.Equal(t, "completed", OutcomeCompleted.String())
	assert.Equal(t, "unknown", Outcome(0).String())
}
