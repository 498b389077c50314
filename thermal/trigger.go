package thermal

import (
	"context"
	"math"
	"time"
)

// PollUntilTrigger polls the control temperature until the ramp reaches
// pollTemp. The ramp direction is taken from the reading at entry: a poll
// point at or above it means the block is heating.
//
// The poll ends when the reading is within tolerance of pollTemp
// (OutcomeTriggered), when it has moved past pollTemp in the ramp direction
// (OutcomeCrossed), or when timeLimit elapses (OutcomeTimedOut, logged as a
// warning). Every reading, including the one that ends the poll, goes to the
// readout and telemetry. A tolerance or time limit <= 0 selects the waiter
// default.
func (w *Waiter) PollUntilTrigger(ctx context.Context, pollTemp, tolerance float64, timeLimit time.Duration) (Result, error) {
	tolerance = w.tolerance(tolerance)
	timeLimit = w.timeLimit(timeLimit)
	cycle := w.dev.Cycle()

	res := Result{Target: pollTemp}
	start := w.cfg.clock.Now()

	t, err := w.dev.ControlTemperature()
	if err != nil {
		return res, err
	}
	res.Temperature = t
	res.Samples++

	rampingUp := pollTemp >= t
	w.cfg.logger.Info("thermal: poll trigger point",
		"cycle", cycle, "poll_temperature", pollTemp, "entry_temperature", t, "ramping_up", rampingUp)

	for {
		if err := w.observe(w.cfg.clock.Now().Sub(start), 0, t); err != nil {
			return res, err
		}

		if math.Abs(pollTemp-t) <= tolerance {
			res.Outcome = OutcomeTriggered
			break
		}
		if (rampingUp && t >= pollTemp) || (!rampingUp && t <= pollTemp) {
			res.Outcome = OutcomeCrossed
			break
		}
		if elapsed := w.cfg.clock.Now().Sub(start); elapsed > timeLimit {
			res.Outcome = OutcomeTimedOut
			w.cfg.logger.Warn("thermal: trigger time limit exceeded",
				"cycle", cycle, "time_limit", timeLimit, "temperature", t, "poll_temperature", pollTemp)

			break
		}

		if err := w.cfg.clock.Sleep(ctx, w.cfg.interval); err != nil {
			res.Elapsed = w.cfg.clock.Now().Sub(start)
			return res, err
		}

		if t, err = w.dev.ControlTemperature(); err != nil {
			return res, err
		}
		res.Temperature = t
		res.Samples++
	}

	res.Elapsed = w.cfg.clock.Now().Sub(start)
	w.cfg.readout.Done()
	w.cfg.logger.Info("thermal: trigger poll finished",
		"cycle", cycle, "outcome", res.Outcome.String(), "elapsed", res.Elapsed, "temperature", res.Temperature)

	return res, nil
}
