package flight

import (
	"fmt"
	"io"

	"github.com/robotalks/navio.go/pkg/mixer"
	"github.com/robotalks/navio.go/pkg/rc"
)

// Mode is the flight mode selected on the mode switch.
// The mixer behaves the same in both; the mode is only reported.
type Mode int

// Modes
const (
	Manual Mode = iota
	Auto
)

// String implements fmt.Stringer.
func (m Mode) String() string {
	if m == Auto {
		return "AUTO"
	}
	return "MANUAL"
}

// Reporter writes human readable status lines.
type Reporter struct {
	W io.Writer
	// Every prints one line out of Every cycles, 0 disables cycle lines.
	Every int

	count int
}

// NewReporter creates a Reporter printing every cycle.
func NewReporter(w io.Writer) *Reporter {
	return &Reporter{W: w, Every: 1}
}

// Banner prints the startup lines.
func (r *Reporter) Banner() {
	fmt.Fprintln(r.W, "Manual flight mixer started.")
	fmt.Fprintln(r.W, "Safety ON = motors cut.")
}

func (r *Reporter) due() bool {
	if r.Every <= 0 {
		return false
	}
	r.count++
	if r.count >= r.Every {
		r.count = 0
		return true
	}
	return false
}

// Cut reports a cycle with motors forced to idle.
func (r *Reporter) Cut() {
	if r.due() {
		fmt.Fprintln(r.W, "[SAFETY] Motors cut")
	}
}

// Mixed reports a mixed cycle.
func (r *Reporter) Mixed(mode Mode, throttle rc.Sample, o mixer.Offsets, m mixer.Motors) {
	if r.due() {
		fmt.Fprintf(r.W, "[%s] T:%d | R:%.2f P:%.2f Y:%.2f | M:%v\n",
			mode, int(throttle), o.Roll, o.Pitch, o.Yaw, m)
	}
}
