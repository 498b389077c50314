package pcr

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/arloliu/go-thermocycle/internal/clock"
	"github.com/arloliu/go-thermocycle/logger"
	"github.com/arloliu/go-thermocycle/thermal"
)

// Device is the controller surface driven by the sequencer.
// *controller.Session satisfies it.
type Device interface {
	RunFlagSetter
	SetTemperature(celsius float64) error
	SetProportionalBandwidth(v float64) error
	SetIntegralGain(v float64) error
	SetDerivativeGain(v float64) error
	SetCycle(n int)
	Cycle() int
}

// Waiter runs the polling loops. *thermal.Waiter satisfies it.
type Waiter interface {
	WaitForSteadyState(ctx context.Context, target, tolerance float64, timeLimit time.Duration) (thermal.Result, error)
	PollUntilTrigger(ctx context.Context, pollTemp, tolerance float64, timeLimit time.Duration) (thermal.Result, error)
	Incubate(ctx context.Context, duration time.Duration) (thermal.Result, error)
}

// StageReport records one executed stage.
type StageReport struct {
	Name    string
	Cycle   int
	Trigger *thermal.Result
	// Wait is zero for the final hold, which has no steady-state wait.
	Wait thermal.Result
	Hold thermal.Result
}

// Report summarizes a run.
type Report struct {
	Stages  []StageReport
	Passes  int
	Elapsed time.Duration
}

// Sequencer executes PCR profiles on one device.
type Sequencer struct {
	dev    Device
	waiter Waiter
	cfg    sequencerConfig
}

// NewSequencer creates a sequencer.
func NewSequencer(dev Device, waiter Waiter, opts ...SequencerOption) (*Sequencer, error) {
	if dev == nil || waiter == nil {
		return nil, ErrDeviceNil
	}

	cfg := sequencerConfig{
		logger:   logger.GetLogger(),
		clock:    clock.System(),
		notifier: nopNotifier{},
	}
	for _, opt := range opts {
		if err := opt.apply(&cfg); err != nil {
			return nil, err
		}
	}

	return &Sequencer{dev: dev, waiter: waiter, cfg: cfg}, nil
}

// Run executes p without trigger points.
func (s *Sequencer) Run(ctx context.Context, p Profile) (Report, error) {
	if err := p.Validate(); err != nil {
		_ = s.closeTelemetry()
		return Report{}, err
	}

	return s.run(ctx, p, false)
}

// RunWithTrigger executes p, polling each stage's trigger point before its
// steady-state wait.
func (s *Sequencer) RunWithTrigger(ctx context.Context, p Profile) (Report, error) {
	if err := p.ValidateTrigger(); err != nil {
		_ = s.closeTelemetry()
		return Report{}, err
	}

	return s.run(ctx, p, true)
}

func (s *Sequencer) run(ctx context.Context, p Profile, trigger bool) (rep Report, err error) {
	telemetry := &onceCloser{c: s.cfg.telemetry}
	start := s.cfg.clock.Now()
	rep.Passes = p.Passes()

	defer func() {
		if cerr := telemetry.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("pcr: close telemetry: %w", cerr)
		}
		rep.Elapsed = s.cfg.clock.Now().Sub(start)
	}()
	defer func() {
		if err != nil {
			s.abort(err)
		}
	}()

	s.dev.SetCycle(0)
	s.notify(EventRunStart, "")
	s.cfg.logger.Info("pcr: run started", "cycles", p.Cycles, "passes", rep.Passes, "trigger", trigger)

	if err := s.dev.SetRunFlag(true); err != nil {
		return rep, fmt.Errorf("pcr: run flag on: %w", err)
	}

	if err := s.stage(ctx, &rep, p.OuterDenaturation, trigger); err != nil {
		return rep, err
	}

	for i, n := 0, rep.Passes; i < n; i++ {
		s.dev.SetCycle(i + 1)
		s.notify(EventCycle, "")
		s.cfg.logger.Info("pcr: cycle", "cycle", i+1, "of", rep.Passes)

		if i > 0 {
			if err := s.stage(ctx, &rep, p.InnerDenaturation, trigger); err != nil {
				return rep, err
			}
		}
		if err := s.stage(ctx, &rep, p.Annealing, trigger); err != nil {
			return rep, err
		}
		if err := s.stage(ctx, &rep, p.Elongation, trigger); err != nil {
			return rep, err
		}
	}

	if err := s.finalHold(ctx, &rep, p.FinalHold); err != nil {
		return rep, err
	}

	s.notify(EventRunEnd, "")
	s.cfg.logger.Info("pcr: program finished", "cycle", s.dev.Cycle(),
		"elapsed", s.cfg.clock.Now().Sub(start))

	if s.cfg.gate == nil {
		return rep, release(s.dev, telemetry)
	}

	s.notify(EventExitPrompt, "")
	if err := s.cfg.gate.Confirm(ctx, s.dev, telemetry, s.dev.Cycle()); err != nil {
		return rep, err
	}

	return rep, nil
}

// stage runs PID, optional trigger, set temperature, steady-state wait and hold.
func (s *Sequencer) stage(ctx context.Context, rep *Report, st Stage, trigger bool) error {
	sr := StageReport{Name: st.Name, Cycle: s.dev.Cycle()}

	s.notify(EventStage, st.Name)
	s.cfg.logger.Info("pcr: stage", "cycle", sr.Cycle, "stage", st.Name,
		"temperature", st.Temperature, "hold", st.Hold)

	if err := s.applyPID(st); err != nil {
		return err
	}

	if trigger && st.Trigger != nil {
		if err := s.setTemperature(st.Name, st.Trigger.SetPoint); err != nil {
			return err
		}
		res, err := s.waiter.PollUntilTrigger(ctx, st.Trigger.PollTemperature, st.Tolerance, st.TimeLimit)
		if err != nil {
			return fmt.Errorf("pcr: %s: trigger: %w", st.Name, err)
		}
		sr.Trigger = &res
	}

	if err := s.setTemperature(st.Name, st.Temperature); err != nil {
		return err
	}

	s.notify(EventWaitSteadyState, st.Name)
	res, err := s.waiter.WaitForSteadyState(ctx, st.Temperature, st.Tolerance, st.TimeLimit)
	if err != nil {
		return fmt.Errorf("pcr: %s: steady state: %w", st.Name, err)
	}
	sr.Wait = res

	if err := s.hold(ctx, &sr, st); err != nil {
		return err
	}
	rep.Stages = append(rep.Stages, sr)

	return nil
}

// finalHold sets the last temperature and holds without waiting for steady
// state; the hold absorbs the ramp.
func (s *Sequencer) finalHold(ctx context.Context, rep *Report, st Stage) error {
	sr := StageReport{Name: st.Name, Cycle: s.dev.Cycle()}

	s.notify(EventStage, st.Name)
	s.cfg.logger.Info("pcr: stage", "cycle", sr.Cycle, "stage", st.Name,
		"temperature", st.Temperature, "hold", st.Hold)

	if err := s.applyPID(st); err != nil {
		return err
	}
	if err := s.setTemperature(st.Name, st.Temperature); err != nil {
		return err
	}
	if err := s.hold(ctx, &sr, st); err != nil {
		return err
	}
	rep.Stages = append(rep.Stages, sr)

	return nil
}

func (s *Sequencer) hold(ctx context.Context, sr *StageReport, st Stage) error {
	s.notify(EventIncubate, st.Name)
	res, err := s.waiter.Incubate(ctx, st.Hold)
	if err != nil {
		return fmt.Errorf("pcr: %s: hold: %w", st.Name, err)
	}
	sr.Hold = res

	return nil
}

func (s *Sequencer) applyPID(st Stage) error {
	if err := s.dev.SetProportionalBandwidth(st.PID.ProportionalBandwidth); err != nil {
		return fmt.Errorf("pcr: %s: %w", st.Name, err)
	}
	if err := s.dev.SetIntegralGain(st.PID.IntegralGain); err != nil {
		return fmt.Errorf("pcr: %s: %w", st.Name, err)
	}
	if err := s.dev.SetDerivativeGain(st.PID.DerivativeGain); err != nil {
		return fmt.Errorf("pcr: %s: %w", st.Name, err)
	}

	return nil
}

func (s *Sequencer) setTemperature(stage string, celsius float64) error {
	if err := s.dev.SetTemperature(celsius); err != nil {
		return fmt.Errorf("pcr: %s: %w", stage, err)
	}

	return nil
}

// abort makes a best-effort attempt to switch the heater off after a
// failed run.
func (s *Sequencer) abort(cause error) {
	s.cfg.logger.Error("pcr: run aborted", "cycle", s.dev.Cycle(), "error", cause)

	if err := s.dev.SetRunFlag(false); err != nil {
		s.cfg.logger.Error("pcr: failed to switch output off", "error", err)
	}
}

func (s *Sequencer) notify(e Event, stage string) {
	s.cfg.notifier.Notify(Notification{Event: e, Stage: stage, Cycle: s.dev.Cycle()})
}

func (s *Sequencer) closeTelemetry() error {
	if s.cfg.telemetry == nil {
		return nil
	}

	return s.cfg.telemetry.Close()
}

// onceCloser closes c at most once.
type onceCloser struct {
	c    io.Closer
	once sync.Once
	err  error
}

func (o *onceCloser) Close() error {
	o.once.Do(func() {
		if o.c != nil {
			o.err = o.c.Close()
		}
	})

	return o.err
}
