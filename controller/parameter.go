package controller

import (
	"fmt"
	"strings"

	"github.com/arloliu/go-thermocycle/frame"
)

// Parameter identifies a controller register addressed by a set and/or get
// command.
type Parameter uint8

const (
	// RunFlag turns the heater output on or off. Set only.
	RunFlag Parameter = iota + 1
	// SetTemperature is the temperature setpoint in °C.
	SetTemperature
	// ControlTemperature is the measured control sensor temperature in °C. Get only.
	ControlTemperature
	// PeripheryTemperature is the measured periphery sensor temperature in °C. Get only.
	PeripheryTemperature
	// ProportionalBandwidth is the PID proportional band.
	ProportionalBandwidth
	// IntegralGain is the PID integral gain.
	IntegralGain
	// DerivativeGain is the PID derivative gain.
	DerivativeGain
)

type paramInfo struct {
	name  string
	set   frame.Command
	get   frame.Command
	scale frame.Scale
}

var paramTable = map[Parameter]paramInfo{
	RunFlag:               {name: "run_flag", set: frame.CmdSetRunFlag, scale: 1},
	SetTemperature:        {name: "set_temperature", set: frame.CmdSetTemperature, get: frame.CmdGetSetTemperature, scale: frame.ScaleTemperature},
	ControlTemperature:    {name: "control_temperature", get: frame.CmdGetControlTemperature, scale: frame.ScaleTemperature},
	PeripheryTemperature:  {name: "periphery_temperature", get: frame.CmdGetPeripheryTemperature, scale: frame.ScaleTemperature},
	ProportionalBandwidth: {name: "proportional_bandwidth", set: frame.CmdSetProportionalBandwidth, get: frame.CmdGetProportionalBandwidth, scale: frame.ScaleProportionalBandwidth},
	IntegralGain:          {name: "integral_gain", set: frame.CmdSetIntegralGain, get: frame.CmdGetIntegralGain, scale: frame.ScaleGain},
	DerivativeGain:        {name: "derivative_gain", set: frame.CmdSetDerivativeGain, get: frame.CmdGetDerivativeGain, scale: frame.ScaleGain},
}

// Parameters returns every known parameter in declaration order.
func Parameters() []Parameter {
	return []Parameter{
		RunFlag, SetTemperature, ControlTemperature, PeripheryTemperature,
		ProportionalBandwidth, IntegralGain, DerivativeGain,
	}
}

// ParseParameter looks a parameter up by its String name. Dashes are
// accepted in place of underscores.
func ParseParameter(name string) (Parameter, error) {
	name = strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "-", "_")
	for p, info := range paramTable {
		if info.name == name {
			return p, nil
		}
	}

	return 0, fmt.Errorf("%w: %q", ErrUnknownParameter, name)
}

func (p Parameter) info() (paramInfo, bool) {
	info, ok := paramTable[p]
	return info, ok
}

// String returns the snake_case parameter name used in log events.
func (p Parameter) String() string {
	if info, ok := p.info(); ok {
		return info.name
	}

	return fmt.Sprintf("parameter(%d)", uint8(p))
}

// Scale returns the transmission scale factor of p.
func (p Parameter) Scale() frame.Scale {
	info, _ := p.info()
	return info.scale
}

// Settable reports whether p has a set command.
func (p Parameter) Settable() bool {
	info, ok := p.info()
	return ok && info.set != ""
}

// Gettable reports whether p has a get command.
func (p Parameter) Gettable() bool {
	info, ok := p.info()
	return ok && info.get != ""
}

// SetCommand returns the set command code of p.
func (p Parameter) SetCommand() (frame.Command, error) {
	info, ok := p.info()
	if !ok {
		return "", fmt.Errorf("%w: %d", ErrUnknownParameter, uint8(p))
	}
	if info.set == "" {
		return "", fmt.Errorf("%w: %s", ErrReadOnly, info.name)
	}

	return info.set, nil
}

// GetCommand returns the get command code of p.
func (p Parameter) GetCommand() (frame.Command, error) {
	info, ok := p.info()
	if !ok {
		return "", fmt.Errorf("%w: %d", ErrUnknownParameter, uint8(p))
	}
	if info.get == "" {
		return "", fmt.Errorf("%w: %s", ErrWriteOnly, info.name)
	}

	return info.get, nil
}
