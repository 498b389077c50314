package thermal

import (
	"fmt"
	"time"

	"github.com/arloliu/go-thermocycle/internal/clock"
	"github.com/arloliu/go-thermocycle/logger"
)

// Defaults for waiter options.
const (
	DefaultSamplingInterval = 1 * time.Second
	DefaultTimeLimit        = 10 * time.Minute
	DefaultTolerance        = 1.0

	// MaxSamplingInterval bounds WithSamplingInterval.
	MaxSamplingInterval = time.Minute
)

// Reader is the temperature source polled by a Waiter.
// *controller.Session satisfies it.
type Reader interface {
	ControlTemperature() (float64, error)
	PeripheryTemperature() (float64, error)
	SetPoint() (float64, error)
	// Cycle returns the current PCR cycle, attached to log events.
	Cycle() int
}

type waiterConfig struct {
	logger    logger.Logger
	clock     clock.Clock
	interval  time.Duration
	timeLimit time.Duration
	tolerance float64
	telemetry *TelemetryLog
	readout   *Readout
}

// WaiterOption is a functional option for configuring a Waiter.
type WaiterOption interface {
	apply(*waiterConfig) error
}

type waiterOptFunc func(*waiterConfig) error

func (f waiterOptFunc) apply(cfg *waiterConfig) error { return f(cfg) }

// WithLogger sets the logger.
func WithLogger(l logger.Logger) WaiterOption {
	return waiterOptFunc(func(cfg *waiterConfig) error {
		if l == nil {
			return fmt.Errorf("thermal: logger is nil")
		}
		cfg.logger = l

		return nil
	})
}

// WithClock sets the clock used for elapsed time and sampling sleeps.
func WithClock(c clock.Clock) WaiterOption {
	return waiterOptFunc(func(cfg *waiterConfig) error {
		if c == nil {
			return fmt.Errorf("thermal: clock is nil")
		}
		cfg.clock = c

		return nil
	})
}

// WithSamplingInterval sets the sleep between two samples, in (0, MaxSamplingInterval].
func WithSamplingInterval(d time.Duration) WaiterOption {
	return waiterOptFunc(func(cfg *waiterConfig) error {
		if d <= 0 || d > MaxSamplingInterval {
			return fmt.Errorf("thermal: sampling interval %v out of range (0, %v]", d, MaxSamplingInterval)
		}
		cfg.interval = d

		return nil
	})
}

// WithTimeLimit sets the default time limit of steady-state and trigger waits.
func WithTimeLimit(d time.Duration) WaiterOption {
	return waiterOptFunc(func(cfg *waiterConfig) error {
		if d <= 0 {
			return fmt.Errorf("thermal: time limit %v must be positive", d)
		}
		cfg.timeLimit = d

		return nil
	})
}

// WithTolerance sets the default temperature tolerance in °C.
func WithTolerance(tol float64) WaiterOption {
	return waiterOptFunc(func(cfg *waiterConfig) error {
		if !(tol > 0) {
			return fmt.Errorf("thermal: tolerance %v must be positive", tol)
		}
		cfg.tolerance = tol

		return nil
	})
}

// WithTelemetry appends a sample to log on every iteration.
func WithTelemetry(log *TelemetryLog) WaiterOption {
	return waiterOptFunc(func(cfg *waiterConfig) error {
		cfg.telemetry = log
		return nil
	})
}

// WithReadout writes a progress line to r on every iteration.
func WithReadout(r *Readout) WaiterOption {
	return waiterOptFunc(func(cfg *waiterConfig) error {
		cfg.readout = r
		return nil
	})
}

// Waiter runs the polling loops against one temperature source.
type Waiter struct {
	dev Reader
	cfg waiterConfig
}

// NewWaiter creates a Waiter polling dev.
func NewWaiter(dev Reader, opts ...WaiterOption) (*Waiter, error) {
	if dev == nil {
		return nil, ErrReaderNil
	}

	cfg := waiterConfig{
		logger:    logger.GetLogger(),
		clock:     clock.System(),
		interval:  DefaultSamplingInterval,
		timeLimit: DefaultTimeLimit,
		tolerance: DefaultTolerance,
	}
	for _, opt := range opts {
		if err := opt.apply(&cfg); err != nil {
			return nil, err
		}
	}

	return &Waiter{dev: dev, cfg: cfg}, nil
}

// SamplingInterval returns the configured sampling interval.
func (w *Waiter) SamplingInterval() time.Duration { return w.cfg.interval }

// TimeLimit returns the default time limit.
func (w *Waiter) TimeLimit() time.Duration { return w.cfg.timeLimit }

// Tolerance returns the default tolerance.
func (w *Waiter) Tolerance() float64 { return w.cfg.tolerance }

// Telemetry returns the telemetry log, or nil.
func (w *Waiter) Telemetry() *TelemetryLog { return w.cfg.telemetry }

func (w *Waiter) tolerance(tol float64) float64 {
	if tol > 0 {
		return tol
	}

	return w.cfg.tolerance
}

func (w *Waiter) timeLimit(limit time.Duration) time.Duration {
	if limit > 0 {
		return limit
	}

	return w.cfg.timeLimit
}

// record appends a telemetry sample built around an already read control
// temperature.
func (w *Waiter) record(control float64) error {
	if w.cfg.telemetry == nil {
		return nil
	}

	sp, err := w.dev.SetPoint()
	if err != nil {
		return err
	}
	periphery, err := w.dev.PeripheryTemperature()
	if err != nil {
		return err
	}

	return w.cfg.telemetry.Append(Sample{
		Time:      w.cfg.clock.Now(),
		SetPoint:  sp,
		Control:   control,
		Periphery: periphery,
	})
}

// observe emits the readout line and telemetry sample for one iteration.
func (w *Waiter) observe(elapsed, total time.Duration, control float64) error {
	w.cfg.readout.Progress(w.dev.Cycle(), elapsed, total, control)
	return w.record(control)
}
