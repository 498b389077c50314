package controller

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"sync"
	"sync/atomic"

	"github.com/arloliu/go-thermocycle/frame"
	"github.com/arloliu/go-thermocycle/internal/clock"
	"github.com/arloliu/go-thermocycle/logger"
)

// State is a snapshot of the session state shared with the sequencer.
type State struct {
	// Cycle is 0 before the cycling loop and the 1-based cycle index inside it.
	Cycle int
	// RunFlag is the last run flag successfully sent to the controller.
	RunFlag bool
}

// Session performs command/response exchanges with one controller.
type Session struct {
	ch      Channel
	cfg     sessionConfig
	metrics *Metrics

	mu      sync.Mutex
	cycle   atomic.Int64
	runFlag atomic.Bool
}

// NewSession creates a session on ch.
func NewSession(ch Channel, opts ...SessionOption) (*Session, error) {
	if ch == nil {
		return nil, ErrChannelNil
	}

	cfg := sessionConfig{
		logger:        logger.GetLogger(),
		clock:         clock.System(),
		responseDelay: DefaultResponseDelay,
	}
	for _, opt := range opts {
		if err := opt.apply(&cfg); err != nil {
			return nil, err
		}
	}

	return &Session{
		ch:      ch,
		cfg:     cfg,
		metrics: newMetrics(),
	}, nil
}

// State returns a snapshot of the session state.
func (s *Session) State() State {
	return State{
		Cycle:   s.Cycle(),
		RunFlag: s.runFlag.Load(),
	}
}

// SetCycle records the current cycle number attached to every event.
func (s *Session) SetCycle(n int) {
	s.cycle.Store(int64(n))
}

// Cycle returns the current cycle number.
func (s *Session) Cycle() int {
	return int(s.cycle.Load())
}

// Metrics returns the session metrics.
func (s *Session) Metrics() *Metrics {
	return s.metrics
}

// Logger returns the session logger.
func (s *Session) Logger() logger.Logger {
	return s.cfg.logger
}

// SetRunFlag turns the controller output on or off.
func (s *Session) SetRunFlag(on bool) error {
	v := 0.0
	if on {
		v = 1
	}
	if err := s.Write(RunFlag, v); err != nil {
		return err
	}
	s.runFlag.Store(on)

	return nil
}

// SetTemperature sets the temperature setpoint in °C.
func (s *Session) SetTemperature(celsius float64) error {
	return s.Write(SetTemperature, celsius)
}

// SetProportionalBandwidth sets the PID proportional band.
func (s *Session) SetProportionalBandwidth(v float64) error {
	return s.Write(ProportionalBandwidth, v)
}

// SetIntegralGain sets the PID integral gain.
func (s *Session) SetIntegralGain(v float64) error {
	return s.Write(IntegralGain, v)
}

// SetDerivativeGain sets the PID derivative gain.
func (s *Session) SetDerivativeGain(v float64) error {
	return s.Write(DerivativeGain, v)
}

// ControlTemperature reads the control sensor temperature in °C.
func (s *Session) ControlTemperature() (float64, error) {
	return s.Read(ControlTemperature)
}

// PeripheryTemperature reads the periphery sensor temperature in °C.
func (s *Session) PeripheryTemperature() (float64, error) {
	return s.Read(PeripheryTemperature)
}

// SetPoint reads back the temperature setpoint in °C.
func (s *Session) SetPoint() (float64, error) {
	return s.Read(SetTemperature)
}

// ProportionalBandwidth reads the PID proportional band.
func (s *Session) ProportionalBandwidth() (float64, error) {
	return s.Read(ProportionalBandwidth)
}

// IntegralGain reads the PID integral gain.
func (s *Session) IntegralGain() (float64, error) {
	return s.Read(IntegralGain)
}

// DerivativeGain reads the PID derivative gain.
func (s *Session) DerivativeGain() (float64, error) {
	return s.Read(DerivativeGain)
}

// Write sends value for p. The value is scaled and rounded up before
// encoding, so 55.001 C is sent as 55.01 C. A scaled value within
// rawEpsilon of an integer is taken as that integer, which keeps float
// artifacts such as 1.1*100 = 110.00000000000001 from being rounded up.
// A negative value or one that does not fit the value field returns
// frame.ErrValueOutOfRange without touching the channel.
func (s *Session) Write(p Parameter, value float64) error {
	cmd, err := p.SetCommand()
	if err != nil {
		return err
	}
	if value < 0 {
		return fmt.Errorf("controller: %s: %w: %v", p, frame.ErrValueOutOfRange, value)
	}

	f, err := frame.EncodeSet(cmd, scaleValue(value, p.Scale()))
	if err != nil {
		return fmt.Errorf("controller: %s: %w", p, err)
	}

	echo, err := s.exchange(f, p.Scale())
	if err != nil {
		return fmt.Errorf("controller: set %s: %w", p, err)
	}

	s.metrics.storeValue(p, value)
	s.cfg.logger.Info("controller: set",
		"cycle", s.Cycle(), "parameter", p.String(), "value", value, "echo", echo)

	return nil
}

// Read queries p and returns its physical value.
func (s *Session) Read(p Parameter) (float64, error) {
	cmd, err := p.GetCommand()
	if err != nil {
		return 0, err
	}

	v, err := s.exchange(frame.EncodeGet(cmd), p.Scale())
	if err != nil {
		return 0, fmt.Errorf("controller: get %s: %w", p, err)
	}

	s.metrics.storeValue(p, v)
	s.cfg.logger.Debug("controller: get",
		"cycle", s.Cycle(), "parameter", p.String(), "value", v)

	return v, nil
}

// exchange runs one flush/write/delay/read cycle and decodes the response.
func (s *Session) exchange(f frame.CommandFrame, scale frame.Scale) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	resp, err := s.roundTrip(f)
	if err != nil {
		s.metrics.incErrorCount()
		s.cfg.logger.Debug("controller: exchange failed", "frame", f.String(), "error", err)

		return 0, err
	}

	v, err := frame.DecodeResponse(resp, scale)
	if err != nil {
		s.metrics.incErrorCount()
		return 0, err
	}
	s.metrics.incExchangeCount()

	return v, nil
}

func (s *Session) roundTrip(f frame.CommandFrame) ([]byte, error) {
	if err := s.ch.ResetInputBuffer(); err != nil {
		return nil, fmt.Errorf("flush input: %w", err)
	}
	s.metrics.incFlushCount()

	n, err := s.ch.Write(f.Bytes())
	if err != nil {
		return nil, fmt.Errorf("write %s: %w", f, err)
	}
	if n != frame.Length {
		return nil, fmt.Errorf("%w: wrote %d of %d bytes", ErrShortWrite, n, frame.Length)
	}

	if s.cfg.responseDelay > 0 {
		if err := s.cfg.clock.Sleep(context.Background(), s.cfg.responseDelay); err != nil {
			return nil, err
		}
	}

	buf := make([]byte, frame.ResponseLength)
	if err := s.readFull(buf); err != nil {
		return nil, err
	}

	return buf, nil
}

// readFull reads exactly len(buf) bytes. A read that returns no data
// signals the port read timeout.
func (s *Session) readFull(buf []byte) error {
	for read := 0; read < len(buf); {
		n, err := s.ch.Read(buf[read:])
		read += n
		if read == len(buf) {
			return nil
		}

		switch {
		case errors.Is(err, io.EOF) || (err == nil && n == 0):
			return fmt.Errorf("%w: got %d of %d bytes", frame.ErrTruncated, read, len(buf))
		case err != nil:
			return fmt.Errorf("read response: %w", err)
		}
	}

	return nil
}

// rawEpsilon is the distance, in raw units, below which a scaled value is
// snapped to the nearest integer.
const rawEpsilon = 1e-6

func scaleValue(value float64, scale frame.Scale) float64 {
	raw := value * float64(scale)
	if r := math.Round(raw); math.Abs(raw-r) < rawEpsilon {
		return r
	}

	return raw
}
