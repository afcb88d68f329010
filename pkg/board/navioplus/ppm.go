package navioplus

import (
	"time"
)

// PPM timing of a standard 8 channel receiver.
const (
	DefaultSyncWidth   = 4 * time.Millisecond
	DefaultMaxChannels = 8
	DefaultStaleAfter  = 100 * time.Millisecond
)

// Decoder turns the intervals between rising edges of a PPM train into
// channel pulse widths. A frame is published when the sync gap following
// it is seen.
type Decoder struct {
	SyncWidth   time.Duration
	MaxChannels int

	frame    []int
	channels []int
	frameAt  time.Time
	lastEdge time.Time
}

// NewDecoder creates a decoder with default timing.
func NewDecoder() *Decoder {
	return &Decoder{SyncWidth: DefaultSyncWidth, MaxChannels: DefaultMaxChannels}
}

// Edge feeds a rising edge observed at t.
func (d *Decoder) Edge(t time.Time) {
	if !d.lastEdge.IsZero() {
		d.Pulse(t.Sub(d.lastEdge), t)
	}
	d.lastEdge = t
}

// Pulse feeds one interval ending at t.
func (d *Decoder) Pulse(width time.Duration, t time.Time) {
	if width >= d.SyncWidth {
		if len(d.frame) > 0 {
			d.channels = append(d.channels[:0], d.frame...)
			d.frameAt = t
		}
		d.frame = d.frame[:0]
		return
	}
	if len(d.frame) < d.MaxChannels {
		d.frame = append(d.frame, int(width/time.Microsecond))
	}
}

// Channel returns the width in microseconds of channel from the last
// complete frame. It fails when there is no such channel or the frame
// is older than staleAfter at now.
func (d *Decoder) Channel(ch int, now time.Time, staleAfter time.Duration) (int, bool) {
	if d.frameAt.IsZero() || now.Sub(d.frameAt) > staleAfter {
		return 0, false
	}
	if ch < 0 || ch >= len(d.channels) {
		return 0, false
	}
	return d.channels[ch], true
}
