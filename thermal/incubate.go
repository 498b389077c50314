package thermal

import (
	"context"
	"time"
)

// Incubate holds for duration while sampling the control temperature. It
// does not check the temperature against any target and cannot time out; a
// duration <= 0 returns immediately.
func (w *Waiter) Incubate(ctx context.Context, duration time.Duration) (Result, error) {
	res := Result{Outcome: OutcomeCompleted}
	if duration <= 0 {
		return res, nil
	}

	cycle := w.dev.Cycle()
	w.cfg.logger.Info("thermal: incubate", "cycle", cycle, "duration", duration)

	start := w.cfg.clock.Now()
	for res.Elapsed < duration {
		t, err := w.dev.ControlTemperature()
		if err != nil {
			return res, err
		}
		res.Temperature = t
		res.Samples++

		if err := w.cfg.clock.Sleep(ctx, w.cfg.interval); err != nil {
			res.Elapsed = w.cfg.clock.Now().Sub(start)
			return res, err
		}
		res.Elapsed = w.cfg.clock.Now().Sub(start)

		if err := w.observe(res.Elapsed, duration, t); err != nil {
			return res, err
		}
	}

	w.cfg.readout.Done()
	w.cfg.logger.Debug("thermal: incubation finished",
		"cycle", cycle, "elapsed", res.Elapsed, "temperature", res.Temperature)

	return res, nil
}
