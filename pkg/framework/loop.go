package framework

import (
	"context"
	"sync"
	"time"

	"github.com/golang/glog"
)

// DefaultInterval is the iteration interval when Loop.Interval is not set.
const DefaultInterval = 100 * time.Millisecond

// Loop runs controllers by priority level on a single goroutine, every
// Interval and whenever TriggerNext is called. Runnables added to the
// loop run alongside and stop with it.
type Loop struct {
	Interval time.Duration

	levels    [PriorityLevels][]Controller
	runnables []Runnable

	lock  sync.Mutex
	inbox []Message

	wakeUpCh chan struct{}
	ticks    uint64
	overruns uint64
}

type loopKey struct{}

// LoopCtlFrom gets the LoopControl of the loop running ctx.
func LoopCtlFrom(ctx context.Context) LoopControl {
	return ctx.Value(loopKey{}).(LoopControl)
}

// NewLoop creates a Loop.
func NewLoop() *Loop {
	return &Loop{
		Interval: DefaultInterval,
		wakeUpCh: make(chan struct{}, 1),
	}
}

// WithInterval sets the iteration interval.
func (l *Loop) WithInterval(interval time.Duration) *Loop {
	l.Interval = interval
	return l
}

// Add adds LoopAdders.
func (l *Loop) Add(adders ...LoopAdder) *Loop {
	for _, adder := range adders {
		adder.AddToLoop(l)
	}
	return l
}

// AddController adds controllers at priorityLevel. Controllers which are
// also Runnable are run alongside the loop.
func (l *Loop) AddController(priorityLevel int, ctls ...Controller) *Loop {
	l.levels[priorityLevel] = append(l.levels[priorityLevel], ctls...)
	for _, ctl := range ctls {
		if r, ok := ctl.(Runnable); ok {
			l.runnables = append(l.runnables, r)
		}
	}
	return l
}

// AddRunnable adds Runnables to be run alongside the loop.
func (l *Loop) AddRunnable(runnables ...Runnable) *Loop {
	l.runnables = append(l.runnables, runnables...)
	return l
}

// Run implements Runnable. It returns when ctx is done or a
// controller halts the loop.
func (l *Loop) Run(ctx context.Context) error {
	if l.wakeUpCh == nil {
		l.wakeUpCh = make(chan struct{}, 1)
	}
	ctx = l.bind(ctx)
	runner := newRunner(ctx)
	runner.Go(l.runnables...)
	defer func() {
		runner.Stop()
		if err := runner.Wait(); err != nil {
			glog.Errorf("loop runnables: %v", err)
		}
	}()

	interval := l.interval()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		var err error
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			l.ticks++
			err = l.iterate(ctx, true, interval)
		case <-l.wakeUpCh:
			err = l.iterate(ctx, false, interval)
		}
		if err != nil {
			return err
		}
	}
}

// RunOnce runs a single scheduled iteration on the calling goroutine.
func (l *Loop) RunOnce(ctx context.Context) error {
	l.ticks++
	return l.iterate(l.bind(ctx), true, l.interval())
}

// Overruns returns the number of iterations which took longer than
// Interval. Only safe on the loop goroutine.
func (l *Loop) Overruns() uint64 {
	return l.overruns
}

// PostMessage implements LoopControl.
func (l *Loop) PostMessage(msg Message) {
	l.lock.Lock()
	l.inbox = append(l.inbox, msg)
	l.lock.Unlock()
}

// TriggerNext implements LoopControl.
func (l *Loop) TriggerNext() {
	select {
	case l.wakeUpCh <- struct{}{}:
	default:
	}
}

func (l *Loop) bind(ctx context.Context) context.Context {
	if _, ok := ctx.Value(loopKey{}).(*Loop); ok {
		return ctx
	}
	return context.WithValue(ctx, loopKey{}, l)
}

func (l *Loop) interval() time.Duration {
	if l.Interval <= 0 {
		return DefaultInterval
	}
	return l.Interval
}

func (l *Loop) iterate(ctx context.Context, scheduled bool, budget time.Duration) error {
	it := &iteration{Loop: l, ctx: ctx, time: time.Now(), tick: l.ticks, scheduled: scheduled}
	l.lock.Lock()
	it.messages, l.inbox = l.inbox, nil
	l.lock.Unlock()

	err := it.run()
	if elapsed := time.Since(it.time); elapsed > budget {
		l.overruns++
		glog.Warningf("iteration %d overran: %v > %v", it.tick, elapsed, budget)
	}
	return err
}

// iteration implements ControlContext and MessageStore.
type iteration struct {
	*Loop
	ctx       context.Context
	time      time.Time
	tick      uint64
	scheduled bool
	messages  []Message
}

func (it *iteration) run() error {
	for _, ctls := range it.levels {
		for _, ctl := range ctls {
			err := ctl.Control(it)
			switch {
			case err == nil:
			case IsHalt(err):
				return err
			default:
				glog.Errorf("controller error: %v", err)
			}
		}
	}
	return nil
}

func (it *iteration) Context() context.Context { return it.ctx }
func (it *iteration) Time() time.Time          { return it.time }
func (it *iteration) Tick() uint64             { return it.tick }
func (it *iteration) Scheduled() bool          { return it.scheduled }
func (it *iteration) Messages() MessageStore   { return it }

func (it *iteration) ProcessMessages(proc MessageProcessor) {
	kept := it.messages[:0]
	for _, msg := range it.messages {
		mc := messageContext{msg: msg}
		proc.ProcessMessage(&mc)
		if !mc.taken {
			kept = append(kept, msg)
		}
	}
	for i := len(kept); i < len(it.messages); i++ {
		it.messages[i] = nil
	}
	it.messages = kept
}

type messageContext struct {
	msg   Message
	taken bool
}

func (c *messageContext) CurrentMessage() Message { return c.msg }
func (c *messageContext) MessageTaken()           { c.taken = true }
