// Package board selects the flight controller hardware once at startup.
// A Board bundles the RC input and the PWM output of one variant.
package board

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/robotalks/navio.go/pkg/framework"
	"github.com/robotalks/navio.go/pkg/pwm"
	"github.com/robotalks/navio.go/pkg/rc"
)

// Kind enumerates the supported boards.
type Kind int

// Board kinds.
const (
	Auto Kind = iota
	Navio2
	NavioPlus
	Link
	Sim
)

var kindNames = map[Kind]string{
	Auto:      "auto",
	Navio2:    "navio2",
	NavioPlus: "navio+",
	Link:      "link",
	Sim:       "sim",
}

// String implements fmt.Stringer.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind parses a board name.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return Auto, nil
	case "navio2":
		return Navio2, nil
	case "navio+", "navioplus", "navio":
		return NavioPlus, nil
	case "link":
		return Link, nil
	case "sim":
		return Sim, nil
	}
	return Auto, fmt.Errorf("unknown board %q", s)
}

// ErrNoFactory indicates the kind has no registered factory.
var ErrNoFactory = errors.New("board not compiled in")

// Board is an opened flight controller board.
type Board struct {
	Kind   Kind
	Name   string
	Input  rc.Input
	Output pwm.Output

	closers []func() error
}

// OnClose registers fn to be called by Close, in reverse order.
func (b *Board) OnClose(fn func() error) {
	b.closers = append(b.closers, fn)
}

// Close releases the hardware.
func (b *Board) Close() error {
	var errs framework.AggregatedError
	for i := len(b.closers) - 1; i >= 0; i-- {
		errs.Add(b.closers[i]())
	}
	b.closers = nil
	return errs.Aggregate()
}

// Factory opens a board from config.
type Factory func(conf *Config) (*Board, error)

var (
	factoriesLock sync.RWMutex
	factories     = make(map[Kind]Factory)
)

// Register registers the factory of a board kind.
func Register(kind Kind, factory Factory) {
	factoriesLock.Lock()
	defer factoriesLock.Unlock()
	factories[kind] = factory
}

// Registered lists registered kinds.
func Registered() []Kind {
	factoriesLock.RLock()
	defer factoriesLock.RUnlock()
	kinds := make([]Kind, 0, len(factories))
	for kind := range factories {
		kinds = append(kinds, kind)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

func factoryOf(kind Kind) (Factory, error) {
	factoriesLock.RLock()
	defer factoriesLock.RUnlock()
	if f := factories[kind]; f != nil {
		return f, nil
	}
	return nil, fmt.Errorf("%v: %w", kind, ErrNoFactory)
}
