package pcr

import (
	"fmt"
	"math"
	"time"

	"github.com/arloliu/go-thermocycle/frame"
)

// Stage names used by DefaultProfile and the configuration file.
const (
	StageOuterDenaturation = "outer_denaturation"
	StageInnerDenaturation = "inner_denaturation"
	StageAnnealing         = "annealing"
	StageElongation        = "elongation"
	StageFinalHold         = "final_hold"
)

// PID holds the controller gains applied when a stage starts.
type PID struct {
	ProportionalBandwidth float64
	IntegralGain          float64
	DerivativeGain        float64
}

// TriggerPoint is the overshoot set point driven before a stage's real
// target, and the temperature at which the real target is set.
type TriggerPoint struct {
	SetPoint        float64
	PollTemperature float64
}

// Stage is one step of a thermal profile.
type Stage struct {
	Name        string
	Temperature float64
	PID         PID
	// Hold is the incubation time once the temperature is steady.
	Hold time.Duration
	// Tolerance is the steady-state band in °C; <= 0 uses the waiter default.
	Tolerance float64
	// TimeLimit bounds the steady-state and trigger waits; <= 0 uses the
	// waiter default.
	TimeLimit time.Duration
	// Trigger is required by RunWithTrigger on every stage but the final hold.
	Trigger *TriggerPoint
}

// Profile is a complete PCR program.
type Profile struct {
	OuterDenaturation Stage
	InnerDenaturation Stage
	Annealing         Stage
	Elongation        Stage
	FinalHold         Stage
	// Cycles is the number of inner passes. Zero still runs one annealing
	// and elongation pass.
	Cycles int
}

// DefaultProfile returns a conventional three-temperature PCR program.
func DefaultProfile() Profile {
	pid := PID{ProportionalBandwidth: 10, IntegralGain: 1, DerivativeGain: 0.5}

	return Profile{
		OuterDenaturation: Stage{Name: StageOuterDenaturation, Temperature: 95, PID: pid, Hold: 120 * time.Second},
		InnerDenaturation: Stage{Name: StageInnerDenaturation, Temperature: 95, PID: pid, Hold: 15 * time.Second},
		Annealing:         Stage{Name: StageAnnealing, Temperature: 55, PID: pid, Hold: 30 * time.Second},
		Elongation:        Stage{Name: StageElongation, Temperature: 72, PID: pid, Hold: 75 * time.Second},
		FinalHold:         Stage{Name: StageFinalHold, Temperature: 25, PID: pid, Hold: time.Minute},
		Cycles:            30,
	}
}

// Passes returns the number of inner loop passes, max(Cycles, 1).
func (p Profile) Passes() int {
	return max(p.Cycles, 1)
}

// Stages returns the five stages in program order.
func (p Profile) Stages() []Stage {
	return []Stage{p.OuterDenaturation, p.InnerDenaturation, p.Annealing, p.Elongation, p.FinalHold}
}

// SetTemperatureCount returns the number of set-temperature commands a plain
// run of p sends: 1 + 2*max(N,1) + max(N-1,0) + 1.
func (p Profile) SetTemperatureCount() int {
	return 1 + 2*p.Passes() + max(p.Cycles-1, 0) + 1
}

// Validate checks that every value of p can be sent to the controller.
func (p Profile) Validate() error {
	if p.Cycles < 0 {
		return fmt.Errorf("%w: cycles %d is negative", ErrInvalidProfile, p.Cycles)
	}

	for _, st := range p.Stages() {
		if err := st.validate(); err != nil {
			return err
		}
	}

	return nil
}

// ValidateTrigger checks p for RunWithTrigger: Validate plus a trigger point
// on every stage except the final hold.
func (p Profile) ValidateTrigger() error {
	if err := p.Validate(); err != nil {
		return err
	}

	for _, st := range []Stage{p.OuterDenaturation, p.InnerDenaturation, p.Annealing, p.Elongation} {
		if st.Trigger == nil {
			return fmt.Errorf("%w: stage %s", ErrMissingTrigger, st.Name)
		}
		if err := checkEncodable(st.Name, "trigger set point", st.Trigger.SetPoint, frame.ScaleTemperature); err != nil {
			return err
		}
		if !isFinite(st.Trigger.PollTemperature) {
			return fmt.Errorf("%w: stage %s: poll temperature %v", ErrInvalidProfile, st.Name, st.Trigger.PollTemperature)
		}
	}

	return nil
}

func (st Stage) validate() error {
	if st.Name == "" {
		return fmt.Errorf("%w: stage without a name", ErrInvalidProfile)
	}
	if st.Hold < 0 {
		return fmt.Errorf("%w: stage %s: negative hold %v", ErrInvalidProfile, st.Name, st.Hold)
	}
	if math.IsNaN(st.Tolerance) {
		return fmt.Errorf("%w: stage %s: tolerance is NaN", ErrInvalidProfile, st.Name)
	}

	checks := []struct {
		what  string
		v     float64
		scale frame.Scale
	}{
		{"temperature", st.Temperature, frame.ScaleTemperature},
		{"proportional bandwidth", st.PID.ProportionalBandwidth, frame.ScaleProportionalBandwidth},
		{"integral gain", st.PID.IntegralGain, frame.ScaleGain},
		{"derivative gain", st.PID.DerivativeGain, frame.ScaleGain},
	}
	for _, c := range checks {
		if err := checkEncodable(st.Name, c.what, c.v, c.scale); err != nil {
			return err
		}
	}

	return nil
}

func checkEncodable(stage, what string, v float64, scale frame.Scale) error {
	if v < 0 {
		return fmt.Errorf("%w: stage %s: %s %v is negative", ErrInvalidProfile, stage, what, v)
	}
	if _, err := frame.CeilValue(v * float64(scale)); err != nil {
		return fmt.Errorf("%w: stage %s: %s: %w", ErrInvalidProfile, stage, what, err)
	}

	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
