package errgroup

import (
	"context"
	"errors"
	"fmt"
	"sync"

	libLog "github.com/LerianStudio/lib-resilience/resilience/log"
)

// ErrPanicRecovered is returned when a goroutine in the group panics.
var ErrPanicRecovered = errors.New("errgroup: panic recovered")

// Group manages a set of goroutines that share a cancellation context.
// The first error returned by any goroutine cancels the group's context
// and is returned by Wait. Subsequent errors are discarded.
//
// A zero Group is not usable; construct with WithContext.
type Group struct {
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	errOnce sync.Once
	err     error
	logger  libLog.Logger
}

// WithContext returns a new Group and a derived context that is cancelled
// when the first goroutine fails or Wait returns.
func WithContext(ctx context.Context) (*Group, context.Context) {
	groupCtx, cancel := context.WithCancel(ctx)

	return &Group{ctx: groupCtx, cancel: cancel}, groupCtx
}

// SetLogger sets an optional logger for panic recovery observability.
// When set, panics recovered in goroutines are logged before the error is
// propagated via Wait.
func (g *Group) SetLogger(logger libLog.Logger) {
	g.logger = logger
}

// Go runs fn in a new goroutine. The first non-nil error or recovered panic
// cancels the group context.
func (g *Group) Go(fn func() error) {
	g.wg.Add(1)

	go func() {
		defer g.wg.Done()

		defer func() {
			if r := recover(); r != nil {
				if g.logger != nil {
					g.logger.Errorf("errgroup goroutine panic recovered: %v", r)
				}

				g.setErr(fmt.Errorf("%w: %v", ErrPanicRecovered, r))
			}
		}()

		if err := fn(); err != nil {
			g.setErr(err)
		}
	}()
}

// Wait blocks until every goroutine started with Go has returned, then
// returns the first error (if any) and cancels the group context.
func (g *Group) Wait() error {
	g.wg.Wait()

	if g.cancel != nil {
		g.cancel()
	}

	return g.err
}

func (g *Group) setErr(err error) {
	g.errOnce.Do(func() {
		g.err = err

		if g.cancel != nil {
			g.cancel()
		}
	})
}
