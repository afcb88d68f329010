// Package safety implements the arm/cut interlock driven by the safety switch.
package safety

import (
	"fmt"

	"github.com/robotalks/navio.go/pkg/rc"
)

// Policy configures the gate.
type Policy struct {
	// CutThreshold: a safety sample above it means the switch is in the cut position.
	CutThreshold rc.Sample `yaml:"cut_threshold"`
	// RearmThrottle: while cut, the switch is only honored again once
	// throttle drops below this value (if HoldWhileThrottle).
	RearmThrottle rc.Sample `yaml:"rearm_throttle"`
	// HoldWhileThrottle enables the re-arm hysteresis.
	HoldWhileThrottle bool `yaml:"hold_while_throttle"`
}

// DefaultPolicy cuts above 1750us and re-arms below idle throttle.
var DefaultPolicy = Policy{
	CutThreshold:      1750,
	RearmThrottle:     1020,
	HoldWhileThrottle: true,
}

// Validate checks the thresholds.
func (p Policy) Validate() error {
	if p.CutThreshold <= 0 {
		return fmt.Errorf("safety cut threshold %d must be positive", p.CutThreshold)
	}
	if p.HoldWhileThrottle && p.RearmThrottle <= 0 {
		return fmt.Errorf("safety rearm throttle %d must be positive", p.RearmThrottle)
	}
	return nil
}

// State is carried from one cycle to the next.
// The zero value is not cut, so the first evaluation always honors the switch.
type State struct {
	Cut bool
	// LastSafety is the last honored safety sample.
	LastSafety rc.Sample
	// Held is set when the cut is kept because throttle is still up.
	Held bool
}

// Armed tells if motors may be driven by the mixer.
func (s State) Armed() bool {
	return !s.Cut
}

// ForceCut tells if all motors must be forced to idle.
func (s State) ForceCut() bool {
	return s.Cut
}

// String implements fmt.Stringer.
func (s State) String() string {
	switch {
	case s.Held:
		return "cut (held)"
	case s.Cut:
		return "cut"
	}
	return "armed"
}

// Gate evaluates the interlock.
type Gate struct {
	Policy Policy
}

// NewGate creates a Gate.
func NewGate(p Policy) *Gate {
	return &Gate{Policy: p}
}

// Evaluate computes the state of this cycle from the previous one and
// fresh samples. Both samples must be valid.
func (g *Gate) Evaluate(prev State, safety, throttle rc.Sample) State {
	if prev.Cut && g.Policy.HoldWhileThrottle && throttle >= g.Policy.RearmThrottle {
		return State{Cut: true, LastSafety: prev.LastSafety, Held: true}
	}
	return State{Cut: safety > g.Policy.CutThreshold, LastSafety: safety}
}
