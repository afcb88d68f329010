// Package mixer maps stick inputs to motor commands for an X quadrotor.
//
//	      Front
//	M2(CCW)   M4(CW)
//	M1(CW)    M3(CCW)
//	      Back
//
// M1..M4 are driven on PWM channels 0..3.
package mixer

import (
	"fmt"

	"github.com/robotalks/navio.go/pkg/pwm"
	"github.com/robotalks/navio.go/pkg/rc"
)

// Motor indices, also the PWM channel of each motor.
const (
	M1 = iota // back left, CW
	M2        // front left, CCW
	M3        // back right, CCW
	M4        // front right, CW

	NumMotors
)

// Rotation is the spin direction of a propeller seen from above.
type Rotation int

// Rotations
const (
	CW Rotation = iota
	CCW
)

// String implements fmt.Stringer.
func (r Rotation) String() string {
	if r == CCW {
		return "CCW"
	}
	return "CW"
}

// Layout describes where each motor sits.
var Layout = [NumMotors]struct {
	Position string
	Rotation Rotation
}{
	M1: {"back left", CW},
	M2: {"front left", CCW},
	M3: {"back right", CCW},
	M4: {"front right", CW},
}

// Gains scale stick offsets into microseconds of motor command.
type Gains struct {
	Roll  float64 `yaml:"roll"`
	Pitch float64 `yaml:"pitch"`
	Yaw   float64 `yaml:"yaw"`
}

// DefaultGains suit a 450-class X quad.
var DefaultGains = Gains{Roll: 0.10, Pitch: 0.30, Yaw: 0.20}

// Offsets are the scaled stick deflections from center.
type Offsets struct {
	Roll  float64
	Pitch float64
	Yaw   float64
}

// Offsets converts raw stick samples into offsets.
// Pitch is negated: pushing the stick forward lowers the nose.
func (g Gains) Offsets(roll, pitch, yaw rc.Sample) Offsets {
	return Offsets{
		Roll:  float64(roll.Offset()) * g.Roll,
		Pitch: float64(pitch.Offset()) * -g.Pitch,
		Yaw:   float64(yaw.Offset()) * g.Yaw,
	}
}

// Motors holds one command per motor, indexed by M1..M4.
type Motors [NumMotors]int

// String implements fmt.Stringer.
func (m Motors) String() string {
	return fmt.Sprintf("%d %d %d %d", m[M1], m[M2], m[M3], m[M4])
}

// Uniform returns the same command for every motor.
func Uniform(us int) Motors {
	var m Motors
	for i := range m {
		m[i] = us
	}
	return m
}

// Mix computes the X-configuration motor commands, each clamped into r.
func Mix(throttle int, o Offsets, r pwm.Range) Motors {
	t := float64(throttle)
	return Motors{
		M1: r.Clamp(int(t - o.Pitch + o.Roll - o.Yaw)),
		M2: r.Clamp(int(t + o.Pitch + o.Roll + o.Yaw)),
		M3: r.Clamp(int(t - o.Pitch - o.Roll + o.Yaw)),
		M4: r.Clamp(int(t + o.Pitch - o.Roll - o.Yaw)),
	}
}
