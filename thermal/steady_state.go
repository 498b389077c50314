package thermal

import (
	"context"
	"math"
	"time"
)

// WaitForSteadyState polls the control temperature until it is within
// tolerance of target, or until timeLimit has elapsed. A tolerance or time
// limit <= 0 selects the waiter default.
//
// A reading exactly equal to target does not count as steady. Running out of
// time is reported as OutcomeTimedOut with a nil error; only read failures,
// telemetry failures and context cancellation return an error. The loop ends
// within timeLimit plus one sampling interval, plus exchange time.
func (w *Waiter) WaitForSteadyState(ctx context.Context, target, tolerance float64, timeLimit time.Duration) (Result, error) {
	tolerance = w.tolerance(tolerance)
	timeLimit = w.timeLimit(timeLimit)
	cycle := w.dev.Cycle()

	w.cfg.logger.Info("thermal: wait for steady state",
		"cycle", cycle, "target", target, "tolerance", tolerance, "time_limit", timeLimit)

	res := Result{Target: target}
	start := w.cfg.clock.Now()

	for {
		t, err := w.dev.ControlTemperature()
		if err != nil {
			return res, err
		}
		res.Temperature = t
		res.Samples++

		diff := math.Abs(target - t)
		if err := w.observe(w.cfg.clock.Now().Sub(start), 0, t); err != nil {
			return res, err
		}

		if err := w.cfg.clock.Sleep(ctx, w.cfg.interval); err != nil {
			res.Elapsed = w.cfg.clock.Now().Sub(start)
			return res, err
		}

		if diff <= tolerance && diff != 0 {
			res.Outcome = OutcomeSteady
			break
		}

		if elapsed := w.cfg.clock.Now().Sub(start); elapsed > timeLimit {
			res.Outcome = OutcomeTimedOut
			w.cfg.logger.Warn("thermal: steady state time limit exceeded",
				"cycle", cycle, "time_limit", timeLimit, "temperature", t, "target", target)

			break
		}
	}

	res.Elapsed = w.cfg.clock.Now().Sub(start)
	w.cfg.readout.Done()
	w.cfg.logger.Info("thermal: steady state wait finished",
		"cycle", cycle, "outcome", res.Outcome.String(), "elapsed", res.Elapsed, "temperature", res.Temperature)

	return res, nil
}
