package pcr

import (
	"fmt"
	"io"

	"github.com/arloliu/go-thermocycle/internal/clock"
	"github.com/arloliu/go-thermocycle/logger"
)

type sequencerConfig struct {
	logger    logger.Logger
	clock     clock.Clock
	notifier  Notifier
	gate      *ExitGate
	telemetry io.Closer
}

// SequencerOption is a functional option for configuring a Sequencer.
type SequencerOption interface {
	apply(*sequencerConfig) error
}

type seqOptFunc func(*sequencerConfig) error

func (f seqOptFunc) apply(cfg *sequencerConfig) error { return f(cfg) }

// WithLogger sets the logger.
func WithLogger(l logger.Logger) SequencerOption {
	return seqOptFunc(func(cfg *sequencerConfig) error {
		if l == nil {
			return fmt.Errorf("pcr: logger is nil")
		}
		cfg.logger = l

		return nil
	})
}

// WithClock sets the clock used to time the run.
func WithClock(c clock.Clock) SequencerOption {
	return seqOptFunc(func(cfg *sequencerConfig) error {
		if c == nil {
			return fmt.Errorf("pcr: clock is nil")
		}
		cfg.clock = c

		return nil
	})
}

// WithNotifier sets the run event notifier.
func WithNotifier(n Notifier) SequencerOption {
	return seqOptFunc(func(cfg *sequencerConfig) error {
		if n == nil {
			n = nopNotifier{}
		}
		cfg.notifier = n

		return nil
	})
}

// WithExitGate holds the final stage until the gate is confirmed. Without a
// gate the run switches the output off as soon as the final hold ends.
func WithExitGate(g *ExitGate) SequencerOption {
	return seqOptFunc(func(cfg *sequencerConfig) error {
		cfg.gate = g
		return nil
	})
}

// WithTelemetry hands the run's telemetry log to the sequencer, which closes
// it exactly once on every exit path.
func WithTelemetry(c io.Closer) SequencerOption {
	return seqOptFunc(func(cfg *sequencerConfig) error {
		cfg.telemetry = c
		return nil
	})
}
