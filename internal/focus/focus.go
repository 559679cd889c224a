// Package focus polls the OS foreground window and moves the focus highlight between
// tracked windows.
package focus

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Norgate-AV/evelens/internal/logger"
	"github.com/Norgate-AV/evelens/internal/native"
	"github.com/Norgate-AV/evelens/internal/registry"
	"github.com/Norgate-AV/evelens/internal/thumbnail"
	"github.com/Norgate-AV/evelens/internal/timeouts"
	"github.com/Norgate-AV/evelens/internal/uithread"
)

// Policy decides what happens to the highlight when no tracked window is foreground.
type Policy struct {
	// Sticky keeps the last focused window highlighted while an untracked
	// application is foreground.
	Sticky bool
}

// Next returns the pid that should carry the highlight. current is the highlighted pid
// (0 for none) and matched is the foreground tracked pid when ok is set.
func (p Policy) Next(current, matched uint32, ok bool) uint32 {
	if ok {
		return matched
	}

	if p.Sticky {
		return current
	}

	return 0
}

// Match returns the tracked window owning the foreground window. A direct handle match
// wins; otherwise the process owning fg is compared with each window's pid, which
// covers owned dialogs and child windows holding input focus.
func Match(fg native.Handle, windows []*registry.TrackedWindow, win native.WindowQuerier) (*registry.TrackedWindow, bool) {
	if fg == 0 {
		return nil, false
	}

	for _, w := range windows {
		if w.Source == fg {
			return w, true
		}
	}

	pid, err := win.WindowProcessID(fg)
	if err != nil || pid == 0 {
		return nil, false
	}

	for _, w := range windows {
		if w.PID == pid {
			return w, true
		}
	}

	return nil, false
}

// Tracker drives the focused flag of tracked windows.
type Tracker struct {
	log      logger.LoggerInterface
	win      native.WindowQuerier
	reg      *registry.Registry
	surfaces *thumbnail.Manager
	ui       uithread.Executor
	interval time.Duration
	paused   atomic.Bool

	mu       sync.Mutex
	policy   Policy
	current  uint32
	// record is the window object behind current. A re-tracked pid gets a new one.
	record   *registry.TrackedWindow
	onChange func(w *registry.TrackedWindow)
}

// Options configures a Tracker.
type Options struct {
	Logger   logger.LoggerInterface
	Windows  native.WindowQuerier
	Registry *registry.Registry
	Surfaces *thumbnail.Manager
	UI       uithread.Executor
	Policy   Policy

	// OnChange, if set, runs on the UI thread after the highlight moves.
	OnChange func(w *registry.TrackedWindow)

	// Interval defaults to timeouts.FocusPollInterval.
	Interval time.Duration
}

// New creates a focus tracker.
func New(opts Options) *Tracker {
	if opts.Interval <= 0 {
		opts.Interval = timeouts.FocusPollInterval
	}

	return &Tracker{
		log:      opts.Logger,
		win:      opts.Windows,
		reg:      opts.Registry,
		surfaces: opts.Surfaces,
		ui:       opts.UI,
		interval: opts.Interval,
		policy:   opts.Policy,
		onChange: opts.OnChange,
	}
}

// Pause suppresses polling until Resume.
func (t *Tracker) Pause() { t.paused.Store(true) }

// Resume re-enables polling.
func (t *Tracker) Resume() { t.paused.Store(false) }

// SetPolicy replaces the focus policy.
func (t *Tracker) SetPolicy(p Policy) {
	t.mu.Lock()
	t.policy = p
	t.mu.Unlock()
}

// Current returns the pid carrying the highlight, 0 when none.
func (t *Tracker) Current() uint32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}

// Run polls until ctx is cancelled.
func (t *Tracker) Run(ctx context.Context) error {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	t.log.Debug("Focus tracker started", slog.Duration("interval", t.interval))

	for {
		select {
		case <-ctx.Done():
			t.log.Debug("Focus tracker stopped")
			return nil
		case <-ticker.C:
			t.poll()
		}
	}
}

func (t *Tracker) poll() {
	defer func() {
		if r := recover(); r != nil {
			t.log.Error("Focus poll panicked", slog.Any("panic", r))
		}
	}()

	t.PollOnce()
}

// PollOnce reads the foreground window once and posts a highlight change if needed.
func (t *Tracker) PollOnce() {
	if t.paused.Load() || t.reg.Len() == 0 {
		return
	}

	windows := t.reg.Snapshot()
	matched, ok := Match(t.win.ForegroundWindow(), windows, t.win)

	var matchedPID uint32
	if ok {
		matchedPID = matched.PID
	}

	t.mu.Lock()
	current := t.current
	if _, tracked := t.reg.Get(current); !tracked {
		current = 0
	}

	next := t.policy.Next(current, matchedPID, ok)

	var record *registry.TrackedWindow
	if next != 0 {
		record, _ = t.reg.Get(next)
	}

	changed := next != t.current || record != t.record
	t.current = next
	t.record = record
	t.mu.Unlock()

	if !changed {
		return
	}

	t.ui.Post(func() {
		// Clear every other highlight so a stale flag never survives a removal race.
		var focused *registry.TrackedWindow
		for _, w := range t.reg.Snapshot() {
			if w.PID == next {
				focused = w
				continue
			}

			t.surfaces.SetFocused(w, false)
		}

		if focused != nil {
			t.surfaces.SetFocused(focused, true)
			t.log.Debug("Focus moved", slog.String("title", focused.Title), slog.Uint64("pid", uint64(focused.PID)))
		}

		if t.onChange != nil {
			t.onChange(focused)
		}
	})
}
