package pcr

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/arloliu/go-thermocycle/thermal"
)

var errDevice = errors.New("device failure")

// recorder collects device and waiter calls in order.
type recorder struct {
	calls []string
}

func (r *recorder) add(format string, args ...any) {
	r.calls = append(r.calls, fmt.Sprintf(format, args...))
}

func (r *recorder) count(prefix string) int {
	n := 0
	for _, c := range r.calls {
		if len(c) >= len(prefix) && c[:len(prefix)] == prefix {
			n++
		}
	}

	return n
}

type fakeDevice struct {
	rec        *recorder
	cycle      int
	failSetAt  int // fail the n-th set temperature, 1-based; 0 never
	sets       int
	runFlagErr error
}

func (d *fakeDevice) SetRunFlag(on bool) error {
	d.rec.add("run %v", on)
	return d.runFlagErr
}

func (d *fakeDevice) SetTemperature(c float64) error {
	d.sets++
	d.rec.add("set %g", c)
	if d.failSetAt > 0 && d.sets == d.failSetAt {
		return errDevice
	}

	return nil
}

func (d *fakeDevice) SetProportionalBandwidth(v float64) error {
	d.rec.add("pb %g", v)
	return nil
}

func (d *fakeDevice) SetIntegralGain(v float64) error {
	d.rec.add("ig %g", v)
	return nil
}

func (d *fakeDevice) SetDerivativeGain(v float64) error {
	d.rec.add("dg %g", v)
	return nil
}

func (d *fakeDevice) SetCycle(n int) {
	d.cycle = n
	d.rec.add("cycle %d", n)
}

func (d *fakeDevice) Cycle() int { return d.cycle }

type fakeWaiter struct {
	rec     *recorder
	waitErr error
}

func (w *fakeWaiter) WaitForSteadyState(_ context.Context, target, _ float64, _ time.Duration) (thermal.Result, error) {
	w.rec.add("wait %g", target)
	if w.waitErr != nil {
		return thermal.Result{}, w.waitErr
	}

	return thermal.Result{Outcome: thermal.OutcomeSteady, Target: target, Temperature: target}, nil
}

func (w *fakeWaiter) PollUntilTrigger(_ context.Context, poll, _ float64, _ time.Duration) (thermal.Result, error) {
	w.rec.add("poll %g", poll)
	return thermal.Result{Outcome: thermal.OutcomeTriggered, Target: poll}, nil
}

func (w *fakeWaiter) Incubate(_ context.Context, d time.Duration) (thermal.Result, error) {
	w.rec.add("hold %v", d)
	return thermal.Result{Outcome: thermal.OutcomeCompleted, Elapsed: d}, nil
}

type fakeCloser struct {
	closed int
	err    error
}

func (c *fakeCloser) Close() error {
	c.closed++
	return c.err
}

// testProfile uses distinct temperatures per stage so call logs are readable.
func testProfile(cycles int) Profile {
	pid := func(base float64) PID {
		return PID{ProportionalBandwidth: base, IntegralGain: base + 0.5, DerivativeGain: base + 0.25}
	}

	return Profile{
		OuterDenaturation: Stage{Name: StageOuterDenaturation, Temperature: 95, PID: pid(1), Hold: 10 * time.Second},
		InnerDenaturation: Stage{Name: StageInnerDenaturation, Temperature: 94, PID: pid(2), Hold: 5 * time.Second},
		Annealing:         Stage{Name: StageAnnealing, Temperature: 55, PID: pid(3), Hold: 6 * time.Second},
		Elongation:        Stage{Name: StageElongation, Temperature: 72, PID: pid(4), Hold: 7 * time.Second},
		FinalHold:         Stage{Name: StageFinalHold, Temperature: 4, PID: pid(5), Hold: 8 * time.Second},
		Cycles:            cycles,
	}
}

func withTriggers(p Profile) Profile {
	p.OuterDenaturation.Trigger = &TriggerPoint{SetPoint: 100, PollTemperature: 90}
	p.InnerDenaturation.Trigger = &TriggerPoint{SetPoint: 99, PollTemperature: 89}
	p.Annealing.Trigger = &TriggerPoint{SetPoint: 45, PollTemperature: 58}
	p.Elongation.Trigger = &TriggerPoint{SetPoint: 80, PollTemperature: 68}

	return p
}
