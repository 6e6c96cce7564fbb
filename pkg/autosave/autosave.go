// Package autosave coalesces rapid edits into a single delayed write. The
// pending write is always either flushed or cancelled when the owner closes,
// and no write starts after Close returns.
package autosave

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/goliatone/go-formflow/pkg/model"
)

// ErrClosed is returned when scheduling on a closed Autosaver.
var ErrClosed = errors.New("autosave: closed")

// SaveFunc persists a snapshot of values.
type SaveFunc func(ctx context.Context, values model.Values) error

// Option configures an Autosaver.
type Option func(*Autosaver)

// WithLogger sets the logger used for background failures.
func WithLogger(logger *zap.Logger) Option {
	return func(a *Autosaver) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithResultHandler is called after every write attempt, including flushes
// triggered by Flush or Close. err is nil on success.
func WithResultHandler(fn func(err error)) Option {
	return func(a *Autosaver) {
		a.onResult = fn
	}
}

// WithTimeout bounds each timer-triggered write.
func WithTimeout(d time.Duration) Option {
	return func(a *Autosaver) {
		if d > 0 {
			a.timeout = d
		}
	}
}

// Autosaver debounces writes.
type Autosaver struct {
	delay    time.Duration
	timeout  time.Duration
	save     SaveFunc
	logger   *zap.Logger
	onResult func(error)

	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	timer      *time.Timer
	generation uint64
	pending    model.Values
	hasPending bool
	closed     bool
	inflight   sync.WaitGroup
}

// New returns an Autosaver that calls save once edits have been idle for
// delay.
func New(delay time.Duration, save SaveFunc, options ...Option) (*Autosaver, error) {
	if save == nil {
		return nil, errors.New("autosave: save function is required")
	}
	if delay <= 0 {
		return nil, errors.New("autosave: delay must be positive")
	}
	ctx, cancel := context.WithCancel(context.Background())
	a := &Autosaver{
		delay:   delay,
		timeout: 30 * time.Second,
		save:    save,
		logger:  zap.NewNop(),
		ctx:     ctx,
		cancel:  cancel,
	}
	for _, opt := range options {
		if opt != nil {
			opt(a)
		}
	}
	return a, nil
}

// Schedule replaces the pending snapshot with values and restarts the idle
// timer.
func (a *Autosaver) Schedule(values model.Values) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return ErrClosed
	}
	a.pending = values.Clone()
	a.hasPending = true
	a.generation++
	gen := a.generation
	if a.timer != nil {
		a.timer.Stop()
	}
	a.timer = time.AfterFunc(a.delay, func() { a.fire(gen) })
	return nil
}

// Pending reports whether a write is waiting for the timer.
func (a *Autosaver) Pending() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.hasPending
}

// Flush writes the pending snapshot immediately. It is a no-op when nothing
// is pending.
func (a *Autosaver) Flush(ctx context.Context) error {
	values, ok := a.take(false)
	if !ok {
		return nil
	}
	defer a.inflight.Done()
	return a.write(ctx, values)
}

// Cancel drops the pending snapshot without writing it.
func (a *Autosaver) Cancel() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.dropLocked()
}

// Close stops the autosaver. With flush set the pending snapshot is written
// before Close returns; otherwise it is discarded. Close waits for writes
// already in progress and is safe to call more than once.
func (a *Autosaver) Close(ctx context.Context, flush bool) error {
	var (
		values model.Values
		ok     bool
	)
	if flush {
		values, ok = a.take(true)
	} else {
		a.mu.Lock()
		if !a.closed {
			a.closed = true
			a.dropLocked()
		}
		a.mu.Unlock()
	}

	var err error
	if ok {
		err = a.write(ctx, values)
		a.inflight.Done()
	}

	done := make(chan struct{})
	go func() {
		a.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		a.cancel()
		<-done
		if err == nil {
			err = ctx.Err()
		}
	}
	a.cancel()
	return err
}

// take claims the pending snapshot and registers an in-flight write. When
// closing is set the autosaver is marked closed under the same lock.
func (a *Autosaver) take(closing bool) (model.Values, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if closing {
		if a.closed {
			return nil, false
		}
		a.closed = true
	}
	if !a.hasPending {
		a.stopLocked()
		return nil, false
	}
	values := a.pending
	a.dropLocked()
	a.inflight.Add(1)
	return values, true
}

func (a *Autosaver) fire(gen uint64) {
	a.mu.Lock()
	if a.closed || gen != a.generation || !a.hasPending {
		a.mu.Unlock()
		return
	}
	values := a.pending
	a.pending = nil
	a.hasPending = false
	a.timer = nil
	a.inflight.Add(1)
	a.mu.Unlock()

	defer a.inflight.Done()
	ctx, cancel := context.WithTimeout(a.ctx, a.timeout)
	defer cancel()
	if err := a.write(ctx, values); err != nil {
		a.logger.Warn("autosave failed", zap.Error(err))
	}
}

func (a *Autosaver) write(ctx context.Context, values model.Values) error {
	err := a.save(ctx, values)
	if a.onResult != nil {
		a.onResult(err)
	}
	return err
}

func (a *Autosaver) dropLocked() {
	a.stopLocked()
	a.pending = nil
	a.hasPending = false
	a.generation++
}

func (a *Autosaver) stopLocked() {
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
}
