// Package simdevice simulates a 5R7-001 class temperature controller on the
// frame protocol, with a first-order thermal model advanced by a clock. It
// implements controller.Channel and backs the --simulate mode and
// end-to-end tests.
package simdevice

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/arloliu/go-thermocycle/frame"
	"github.com/arloliu/go-thermocycle/internal/clock"
)

// Default model parameters.
const (
	DefaultAmbient      = 25.0
	DefaultTimeConstant = 4 * time.Second
)

type deviceConfig struct {
	clock        clock.Clock
	ambient      float64
	initial      float64
	timeConstant time.Duration
	offset       float64
}

// Option configures a Device.
type Option func(*deviceConfig)

// WithClock sets the clock driving the thermal model.
func WithClock(c clock.Clock) Option {
	return func(cfg *deviceConfig) { cfg.clock = c }
}

// WithAmbient sets the temperature the block drifts to while the output is off.
func WithAmbient(celsius float64) Option {
	return func(cfg *deviceConfig) { cfg.ambient = celsius }
}

// WithInitialTemperature sets the starting block temperature.
func WithInitialTemperature(celsius float64) Option {
	return func(cfg *deviceConfig) { cfg.initial = celsius }
}

// WithTimeConstant sets the first-order time constant of the block.
func WithTimeConstant(d time.Duration) Option {
	return func(cfg *deviceConfig) { cfg.timeConstant = d }
}

// WithOffset sets a steady-state sensor offset added to the setpoint while
// the output is on.
func WithOffset(celsius float64) Option {
	return func(cfg *deviceConfig) { cfg.offset = celsius }
}

// Device is a simulated controller.
type Device struct {
	cfg deviceConfig

	mu        sync.Mutex
	pending   []byte
	out       []byte
	received  []frame.CommandFrame
	rejected  int
	silent    bool
	closed    bool
	lastStep  time.Time
	running   bool
	setpoint  float64
	control   float64
	periphery float64
	pb        float64
	ig        float64
	dg        float64
}

// New creates a simulated controller.
func New(opts ...Option) *Device {
	cfg := deviceConfig{
		clock:        clock.System(),
		ambient:      DefaultAmbient,
		initial:      math.NaN(),
		timeConstant: DefaultTimeConstant,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if math.IsNaN(cfg.initial) {
		cfg.initial = cfg.ambient
	}
	if cfg.timeConstant <= 0 {
		cfg.timeConstant = time.Millisecond
	}

	return &Device{
		cfg:       cfg,
		lastStep:  cfg.clock.Now(),
		setpoint:  cfg.initial,
		control:   cfg.initial,
		periphery: cfg.initial,
		pb:        10,
		ig:        1,
		dg:        0.5,
	}
}

// Write accepts command frame bytes. Every complete 16-byte frame that
// passes validation queues one 12-byte response; invalid frames are dropped
// without a response, as the hardware does.
func (d *Device) Write(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return 0, fmt.Errorf("simdevice: write on closed device")
	}

	d.pending = append(d.pending, p...)
	for len(d.pending) >= frame.Length {
		raw := d.pending[:frame.Length]
		d.pending = d.pending[frame.Length:]

		f, err := frame.ParseCommand(raw)
		if err != nil {
			d.rejected++
			continue
		}
		d.received = append(d.received, f)

		resp, ok := d.handle(f)
		if ok && !d.silent {
			d.out = append(d.out, resp...)
		}
	}

	return len(p), nil
}

// Read returns queued response bytes. It returns (0, nil) when nothing is
// queued, like a serial port whose read timeout expired.
func (d *Device) Read(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return 0, fmt.Errorf("simdevice: read on closed device")
	}

	n := copy(p, d.out)
	d.out = d.out[n:]

	return n, nil
}

// ResetInputBuffer discards queued response bytes.
func (d *Device) ResetInputBuffer() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.out = nil

	return nil
}

// Close marks the device closed.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.closed = true

	return nil
}

// SetSilent makes the device swallow commands without responding.
func (d *Device) SetSilent(silent bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.silent = silent
}

// Received returns the valid command frames received so far.
func (d *Device) Received() []frame.CommandFrame {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]frame.CommandFrame, len(d.received))
	copy(out, d.received)

	return out
}

// Rejected returns the number of invalid frames dropped.
func (d *Device) Rejected() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.rejected
}

// Snapshot is the simulated controller state.
type Snapshot struct {
	Running               bool
	SetPoint              float64
	ControlTemperature    float64
	PeripheryTemperature  float64
	ProportionalBandwidth float64
	IntegralGain          float64
	DerivativeGain        float64
}

// Snapshot advances the model to the current time and returns its state.
func (d *Device) Snapshot() Snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.step()

	return Snapshot{
		Running:               d.running,
		SetPoint:              d.setpoint,
		ControlTemperature:    d.control,
		PeripheryTemperature:  d.periphery,
		ProportionalBandwidth: d.pb,
		IntegralGain:          d.ig,
		DerivativeGain:        d.dg,
	}
}

// step advances the thermal model to the clock's current time. The control
// sensor approaches the setpoint (plus offset) while running and the ambient
// temperature otherwise; the periphery sensor lags the control sensor.
func (d *Device) step() {
	now := d.cfg.clock.Now()
	dt := now.Sub(d.lastStep)
	if dt <= 0 {
		return
	}
	d.lastStep = now

	target := d.cfg.ambient
	if d.running {
		target = d.setpoint + d.cfg.offset
	}

	tau := d.cfg.timeConstant.Seconds()
	d.control += (target - d.control) * (1 - math.Exp(-dt.Seconds()/tau))
	d.periphery += (d.control - d.periphery) * (1 - math.Exp(-dt.Seconds()/(2*tau)))
}

func (d *Device) handle(f frame.CommandFrame) ([]byte, bool) {
	d.step()

	switch f.Command() {
	case frame.CmdGetControlTemperature:
		return reply(d.control, frame.ScaleTemperature), true
	case frame.CmdGetPeripheryTemperature:
		return reply(d.periphery, frame.ScaleTemperature), true
	case frame.CmdGetSetTemperature:
		return reply(d.setpoint, frame.ScaleTemperature), true
	case frame.CmdGetProportionalBandwidth:
		return reply(d.pb, frame.ScaleProportionalBandwidth), true
	case frame.CmdGetIntegralGain:
		return reply(d.ig, frame.ScaleGain), true
	case frame.CmdGetDerivativeGain:
		return reply(d.dg, frame.ScaleGain), true
	}

	return d.handleSet(f)
}

func (d *Device) handleSet(f frame.CommandFrame) ([]byte, bool) {
	raw, err := f.RawValue()
	if err != nil {
		return nil, false
	}
	value := float64(raw)

	switch f.Command() {
	case frame.CmdSetRunFlag:
		d.running = raw != 0
	case frame.CmdSetTemperature:
		d.setpoint = value / float64(frame.ScaleTemperature)
	case frame.CmdSetProportionalBandwidth:
		d.pb = value / float64(frame.ScaleProportionalBandwidth)
	case frame.CmdSetIntegralGain:
		d.ig = value / float64(frame.ScaleGain)
	case frame.CmdSetDerivativeGain:
		d.dg = value / float64(frame.ScaleGain)
	default:
		return nil, false
	}

	return frame.EncodeResponse(uint32(raw)), true
}

func reply(v float64, scale frame.Scale) []byte {
	r := math.Round(v * float64(scale))
	switch {
	case r < 0:
		r = 0
	case r > frame.MaxValue:
		r = frame.MaxValue
	}

	return frame.EncodeResponse(uint32(r))
}
