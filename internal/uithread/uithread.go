// Package uithread runs posted work on a single OS thread. Native preview windows and
// their mirrored surfaces are owned by the thread that created them, so every UI
// mutation is marshaled here while background loops only decide what should change.
package uithread

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/Norgate-AV/evelens/internal/logger"
	"github.com/Norgate-AV/evelens/internal/timeouts"
)

// ErrStopped is returned when work is posted after Stop.
var ErrStopped = errors.New("ui thread stopped")

// ErrCallTimeout is returned by Call when the thread did not run the work in time.
var ErrCallTimeout = errors.New("ui thread call timed out")

// Executor accepts work for the UI-affinity thread.
type Executor interface {
	// Post queues fn and returns immediately.
	Post(fn func())
	// Call runs fn on the thread and waits for its result.
	Call(fn func() error) error
}

// Thread is an Executor backed by a goroutine locked to one OS thread.
type Thread struct {
	log   logger.LoggerInterface
	pump  func()
	queue chan func()
	stop  chan struct{}
	done  chan struct{}

	once    sync.Once
	stopped sync.Once
}

// New creates a UI thread. pump, if non-nil, is invoked between work items to drain
// the native message queue of windows owned by the thread.
func New(log logger.LoggerInterface, pump func()) *Thread {
	return &Thread{
		log:   log,
		pump:  pump,
		queue: make(chan func(), 256),
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}
}

// Start launches the thread. Calling Start more than once has no effect.
func (t *Thread) Start() {
	t.once.Do(func() {
		go t.loop()
	})
}

func (t *Thread) loop() {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(t.done)

	t.log.Debug("UI thread started")

	ticker := time.NewTicker(timeouts.UIPumpInterval)
	defer ticker.Stop()

	for {
		select {
		case fn := <-t.queue:
			t.run(fn)
		case <-ticker.C:
			if t.pump != nil {
				t.pump()
			}
		case <-t.stop:
			// Drain so teardown work posted before Stop still runs.
			for {
				select {
				case fn := <-t.queue:
					t.run(fn)
				default:
					t.log.Debug("UI thread stopped")
					return
				}
			}
		}
	}
}

func (t *Thread) run(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			t.log.Error("UI work panicked", slog.Any("panic", r))
		}
	}()

	fn()
}

// Post queues fn. Work posted after Stop is dropped with a log line.
func (t *Thread) Post(fn func()) {
	if t.isStopped() {
		t.log.Debug("Dropping UI work posted after stop")
		return
	}

	select {
	case <-t.stop:
		t.log.Debug("Dropping UI work posted after stop")
	case t.queue <- fn:
	}
}

// Call runs fn on the thread and returns its error.
func (t *Thread) Call(fn func() error) error {
	if t.isStopped() {
		return ErrStopped
	}

	result := make(chan error, 1)

	select {
	case <-t.stop:
		return ErrStopped
	case t.queue <- func() { result <- fn() }:
	}

	timer := time.NewTimer(timeouts.UICallTimeout)
	defer timer.Stop()

	select {
	case err := <-result:
		return err
	case <-timer.C:
		return fmt.Errorf("%w after %s", ErrCallTimeout, timeouts.UICallTimeout)
	}
}

func (t *Thread) isStopped() bool {
	select {
	case <-t.stop:
		return true
	default:
		return false
	}
}

// Stop drains queued work and ends the thread, waiting at most timeout.
func (t *Thread) Stop(timeout time.Duration) {
	t.stopped.Do(func() {
		close(t.stop)
	})

	select {
	case <-t.done:
	case <-time.After(timeout):
		t.log.Warn("UI thread did not stop in time", slog.Duration("timeout", timeout))
	}
}

// Immediate runs work synchronously on the caller's goroutine. It is used by tests and
// by one-shot CLI commands that never create preview windows.
type Immediate struct{}

func (Immediate) Post(fn func())             { fn() }
func (Immediate) Call(fn func() error) error { return fn() }
