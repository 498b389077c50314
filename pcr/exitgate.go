package pcr

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/arloliu/go-thermocycle/logger"
)

// RunFlagSetter switches the controller output.
type RunFlagSetter interface {
	SetRunFlag(on bool) error
}

type gateConfig struct {
	in          io.Reader
	out         io.Writer
	keys        []string
	maxAttempts int
	logger      logger.Logger
}

// GateOption is a functional option for configuring an ExitGate.
type GateOption interface {
	apply(*gateConfig) error
}

type gateOptFunc func(*gateConfig) error

func (f gateOptFunc) apply(cfg *gateConfig) error { return f(cfg) }

// WithInput sets the confirmation input. Defaults to os.Stdin.
func WithInput(r io.Reader) GateOption {
	return gateOptFunc(func(cfg *gateConfig) error {
		if r == nil {
			return fmt.Errorf("pcr: gate input is nil")
		}
		cfg.in = r

		return nil
	})
}

// WithOutput sets where prompts are written. Defaults to os.Stdout.
func WithOutput(w io.Writer) GateOption {
	return gateOptFunc(func(cfg *gateConfig) error {
		if w == nil {
			return fmt.Errorf("pcr: gate output is nil")
		}
		cfg.out = w

		return nil
	})
}

// WithAcceptKeys sets the accepted answers, compared case-insensitively.
// Defaults to "q".
func WithAcceptKeys(keys ...string) GateOption {
	return gateOptFunc(func(cfg *gateConfig) error {
		var clean []string
		for _, k := range keys {
			if k = strings.TrimSpace(k); k != "" {
				clean = append(clean, k)
			}
		}
		if len(clean) == 0 {
			return fmt.Errorf("pcr: no accept keys")
		}
		cfg.keys = clean

		return nil
	})
}

// WithMaxAttempts bounds the number of prompts; 0 means unbounded.
func WithMaxAttempts(n int) GateOption {
	return gateOptFunc(func(cfg *gateConfig) error {
		if n < 0 {
			return fmt.Errorf("pcr: max attempts %d is negative", n)
		}
		cfg.maxAttempts = n

		return nil
	})
}

// WithGateLogger sets the logger.
func WithGateLogger(l logger.Logger) GateOption {
	return gateOptFunc(func(cfg *gateConfig) error {
		if l == nil {
			return fmt.Errorf("pcr: logger is nil")
		}
		cfg.logger = l

		return nil
	})
}

// ExitGate holds a finished run in its final hold until the operator
// confirms the end of the run.
type ExitGate struct {
	cfg gateConfig
	in  *bufio.Reader
}

// NewExitGate creates an ExitGate.
func NewExitGate(opts ...GateOption) (*ExitGate, error) {
	cfg := gateConfig{
		in:     os.Stdin,
		out:    os.Stdout,
		keys:   []string{"q"},
		logger: logger.GetLogger(),
	}
	for _, opt := range opts {
		if err := opt.apply(&cfg); err != nil {
			return nil, err
		}
	}

	return &ExitGate{cfg: cfg, in: bufio.NewReader(cfg.in)}, nil
}

// Confirm prompts until an accepted answer is read, then switches the run
// flag off and closes telemetry (which may be nil). Any other answer
// re-prompts. It returns ErrConfirmationClosed when the input ends and
// ErrConfirmationAttempts when the attempt bound is reached; the caller is
// then responsible for the release.
func (g *ExitGate) Confirm(ctx context.Context, dev RunFlagSetter, telemetry io.Closer, cycle int) error {
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if g.cfg.maxAttempts > 0 && attempt > g.cfg.maxAttempts {
			return fmt.Errorf("%w: %d", ErrConfirmationAttempts, g.cfg.maxAttempts)
		}

		fmt.Fprintf(g.cfg.out, "cycle %d: enter %q to end the final hold: ", cycle, g.cfg.keys[0])

		line, readErr := g.in.ReadString('\n')
		if g.accepts(strings.TrimSpace(line)) {
			fmt.Fprintln(g.cfg.out)
			g.cfg.logger.Info("pcr: final hold ended by operator", "cycle", cycle, "attempts", attempt)

			return release(dev, telemetry)
		}

		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				return ErrConfirmationClosed
			}

			return fmt.Errorf("pcr: read confirmation: %w", readErr)
		}
	}
}

func (g *ExitGate) accepts(answer string) bool {
	for _, k := range g.cfg.keys {
		if strings.EqualFold(answer, k) {
			return true
		}
	}

	return false
}

// release switches the output off and closes telemetry, reporting both
// failures.
func release(dev RunFlagSetter, telemetry io.Closer) error {
	var errs []error
	if err := dev.SetRunFlag(false); err != nil {
		errs = append(errs, fmt.Errorf("pcr: run flag off: %w", err))
	}
	if telemetry != nil {
		if err := telemetry.Close(); err != nil {
			errs = append(errs, fmt.Errorf("pcr: close telemetry: %w", err))
		}
	}

	return errors.Join(errs...)
}
