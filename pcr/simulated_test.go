package pcr_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arloliu/go-thermocycle/controller"
	"github.com/arloliu/go-thermocycle/frame"
	"github.com/arloliu/go-thermocycle/internal/clock"
	"github.com/arloliu/go-thermocycle/internal/simdevice"
	"github.com/arloliu/go-thermocycle/logger"
	"github.com/arloliu/go-thermocycle/pcr"
	"github.com/arloliu/go-thermocycle/thermal"
)

type rig struct {
	dev       *simdevice.Device
	seq       *pcr.Sequencer
	telemetry *thermal.TelemetryLog
	buf       *bytes.Buffer
}

// newRig wires the real session, waiter and sequencer to a simulated
// controller sharing one fake clock. The offset keeps readings off the exact
// target.
func newRig(t *testing.T) rig {
	t.Helper()

	clk := clock.NewFake(time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC))
	log := logger.NewMockLogger().AllowAll()

	dev := simdevice.New(simdevice.WithClock(clk), simdevice.WithOffset(0.3))
	sess, err := controller.NewSession(dev, controller.WithClock(clk), controller.WithLogger(log))
	require.NoError(t, err)

	buf := &bytes.Buffer{}
	telemetry := thermal.NewTelemetryLog(buf)
	w, err := thermal.NewWaiter(sess,
		thermal.WithClock(clk),
		thermal.WithLogger(log),
		thermal.WithTelemetry(telemetry),
	)
	require.NoError(t, err)

	seq, err := pcr.NewSequencer(sess, w,
		pcr.WithClock(clk),
		pcr.WithLogger(log),
		pcr.WithTelemetry(telemetry),
	)
	require.NoError(t, err)

	return rig{dev: dev, seq: seq, telemetry: telemetry, buf: buf}
}

func (r rig) setTemperatureFrames() int {
	n := 0
	for _, f := range r.dev.Received() {
		if f.Command() == frame.CmdSetTemperature {
			n++
		}
	}

	return n
}

func TestRun_SimulatedController(t *testing.T) {
	r := newRig(t)

	p := pcr.DefaultProfile()
	p.Cycles = 3

	rep, err := r.seq.Run(context.Background(), p)
	require.NoError(t, err)

	assert.Equal(t, 3, rep.Passes)
	// outer, two inner denaturations, three annealing/elongation pairs, final
	require.Len(t, rep.Stages, 1+2+2*3+1)
	for _, st := range rep.Stages {
		if st.Name != pcr.StageFinalHold {
			assert.Equal(t, thermal.OutcomeSteady, st.Wait.Outcome, "stage %s cycle %d", st.Name, st.Cycle)
		}
		assert.Equal(t, thermal.OutcomeCompleted, st.Hold.Outcome, "stage %s cycle %d", st.Name, st.Cycle)
	}
	assert.Positive(t, rep.Elapsed)

	assert.Equal(t, p.SetTemperatureCount(), r.setTemperatureFrames())
	assert.Zero(t, r.dev.Rejected())

	snap := r.dev.Snapshot()
	assert.False(t, snap.Running)
	assert.InDelta(t, p.FinalHold.Temperature, snap.SetPoint, 1e-9)
	assert.InDelta(t, p.FinalHold.PID.ProportionalBandwidth, snap.ProportionalBandwidth, 1e-9)

	assert.True(t, r.telemetry.Closed())
	assert.Positive(t, r.telemetry.Count())
	assert.NotEmpty(t, r.buf.String())
}

func TestRunWithTrigger_SimulatedController(t *testing.T) {
	r := newRig(t)

	p := pcr.DefaultProfile()
	p.Cycles = 2
	p.OuterDenaturation.Trigger = &pcr.TriggerPoint{SetPoint: 100, PollTemperature: 93}
	p.InnerDenaturation.Trigger = &pcr.TriggerPoint{SetPoint: 100, PollTemperature: 93}
	p.Annealing.Trigger = &pcr.TriggerPoint{SetPoint: 45, PollTemperature: 57}
	p.Elongation.Trigger = &pcr.TriggerPoint{SetPoint: 80, PollTemperature: 70}

	rep, err := r.seq.RunWithTrigger(context.Background(), p)
	require.NoError(t, err)

	for _, st := range rep.Stages {
		if st.Name == pcr.StageFinalHold {
			assert.Nil(t, st.Trigger)
			continue
		}
		require.NotNil(t, st.Trigger, "stage %s cycle %d", st.Name, st.Cycle)
		assert.NotEqual(t, thermal.OutcomeTimedOut, st.Trigger.Outcome, "stage %s cycle %d", st.Name, st.Cycle)
		assert.Equal(t, thermal.OutcomeSteady, st.Wait.Outcome, "stage %s cycle %d", st.Name, st.Cycle)
	}

	assert.False(t, r.dev.Snapshot().Running)
	assert.True(t, r.telemetry.Closed())
}

func TestRun_SimulatedControllerCancelled(t *testing.T) {
	r := newRig(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.seq.Run(ctx, pcr.DefaultProfile())
	require.ErrorIs(t, err, context.Canceled)

	assert.False(t, r.dev.Snapshot().Running)
	assert.True(t, r.telemetry.Closed())
}
