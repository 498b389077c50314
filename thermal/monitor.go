package thermal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"
)

// MonitorInterval is the row period of the live monitors.
const MonitorInterval = time.Second

// MonitorTemperature prints the control temperature once per MonitorInterval
// until ctx is done. Cancellation ends the monitor without error.
func (w *Waiter) MonitorTemperature(ctx context.Context, out io.Writer) error {
	fmt.Fprintln(out, "T (s)\tCONTROL (C)")

	for i := 0; ; i++ {
		t, err := w.dev.ControlTemperature()
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%d\t%0.2f\n", i, t)

		if err := w.cfg.clock.Sleep(ctx, MonitorInterval); err != nil {
			return ignoreDone(err)
		}
	}
}

// MonitorParameters prints the set point, control and periphery
// temperatures once per MonitorInterval until ctx is done.
func (w *Waiter) MonitorParameters(ctx context.Context, out io.Writer) error {
	fmt.Fprintln(out, parameterHeader)

	for i := 0; ; i++ {
		s, err := w.readSample()
		if err != nil {
			return err
		}
		writeParameterRow(out, i, s)

		if err := w.cfg.clock.Sleep(ctx, MonitorInterval); err != nil {
			return ignoreDone(err)
		}
	}
}

// Sample records telemetry and prints parameter rows once per sampling
// interval for period. It returns the number of rows written.
func (w *Waiter) Sample(ctx context.Context, period time.Duration, out io.Writer) (int, error) {
	fmt.Fprintln(out, parameterHeader)

	start := w.cfg.clock.Now()
	rows := 0
	for elapsed := time.Duration(0); elapsed <= period; elapsed = w.cfg.clock.Now().Sub(start) {
		s, err := w.readSample()
		if err != nil {
			return rows, err
		}
		if w.cfg.telemetry != nil {
			if err := w.cfg.telemetry.Append(s); err != nil {
				return rows, err
			}
		}
		writeParameterRow(out, rows, s)
		rows++

		if err := w.cfg.clock.Sleep(ctx, w.cfg.interval); err != nil {
			return rows, ignoreDone(err)
		}
	}

	w.cfg.logger.Info("thermal: sampling finished", "rows", rows, "period", period)

	return rows, nil
}

const parameterHeader = "T (s)\tSET (C)\tCONTROL (C)\tPERIPHERY (C)"

func writeParameterRow(out io.Writer, i int, s Sample) {
	fmt.Fprintf(out, "%d\t%0.2f\t%0.2f\t%0.2f\n", i, s.SetPoint, s.Control, s.Periphery)
}

func (w *Waiter) readSample() (Sample, error) {
	sp, err := w.dev.SetPoint()
	if err != nil {
		return Sample{}, err
	}
	ct, err := w.dev.ControlTemperature()
	if err != nil {
		return Sample{}, err
	}
	pt, err := w.dev.PeripheryTemperature()
	if err != nil {
		return Sample{}, err
	}

	return Sample{Time: w.cfg.clock.Now(), SetPoint: sp, Control: ct, Periphery: pt}, nil
}

func ignoreDone(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}

	return err
}
