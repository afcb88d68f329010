package framework

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/golang/glog"
)

// Runner runs Runnables on a shared cancelable context.
type Runner struct {
	// Context is canceled by Stop or the first stop signal.
	Context context.Context

	cancel context.CancelFunc
	wg     sync.WaitGroup
	lock   sync.Mutex
	errs   AggregatedError
}

// NewRunner creates a Runner on a background context.
func NewRunner() *Runner {
	return newRunner(context.Background())
}

func newRunner(ctx context.Context) *Runner {
	ctx, cancel := context.WithCancel(ctx)
	return &Runner{Context: ctx, cancel: cancel}
}

// HandleSignals stops the Runner on SIGINT or SIGTERM. A second signal
// exits the process.
func (r *Runner) HandleSignals() *Runner {
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		glog.Infof("%v: stopping", sig)
		r.cancel()
		sig = <-sigCh
		glog.Exitf("%v again: exit now", sig)
	}()
	return r
}

// Stop cancels Context.
func (r *Runner) Stop() {
	r.cancel()
}

// Go starts runnables on Context.
func (r *Runner) Go(runnables ...Runnable) *Runner {
	for _, runnable := range runnables {
		r.wg.Add(1)
		go func(runnable Runnable) {
			defer r.wg.Done()
			err := runnable.Run(r.Context)
			glog.V(4).Infof("%T stopped: %v", runnable, err)
			if err == nil || errors.Is(err, context.Canceled) {
				return
			}
			r.lock.Lock()
			r.errs.Add(err)
			r.lock.Unlock()
		}(runnable)
	}
	return r
}

// Wait waits for all started Runnables and returns their errors, other
// than cancellation.
func (r *Runner) Wait() error {
	r.wg.Wait()
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.errs.Aggregate()
}

// RunWithContextCloser runs fn, which blocks without a context, until it
// returns or ctx is done. closer is closed in both cases, which is
// expected to make fn return.
func RunWithContextCloser(ctx context.Context, closer io.Closer, fn func() error) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- fn()
	}()
	select {
	case err := <-errCh:
		closer.Close()
		return err
	case <-ctx.Done():
		closer.Close()
		<-errCh
		return ctx.Err()
	}
}
