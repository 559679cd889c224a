// Package scanner reconciles the tracked-window registry against the live processes
// named by the active watch-list.
package scanner

import (
	"context"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/Norgate-AV/evelens/internal/logger"
	"github.com/Norgate-AV/evelens/internal/native"
	"github.com/Norgate-AV/evelens/internal/registry"
	"github.com/Norgate-AV/evelens/internal/thumbnail"
	"github.com/Norgate-AV/evelens/internal/timeouts"
	"github.com/Norgate-AV/evelens/internal/uithread"
)

// LauncherTitle is the umbrella launcher window title. Windows titled exactly this are
// never tracked; character windows are titled "EVE - <name>".
const LauncherTitle = "EVE"

// Source supplies what to watch and how new previews should look.
type Source interface {
	WatchList(ctx context.Context) ([]string, error)
	Settings(ctx context.Context, title string) thumbnail.Settings
}

// Listener is told about registry changes. Calls run on the UI-affinity thread.
type Listener interface {
	WindowAdded(w *registry.TrackedWindow)
	WindowRemoved(w *registry.TrackedWindow)
}

// Scanner discovers and retires tracked windows.
type Scanner struct {
	log      logger.LoggerInterface
	procs    native.ProcessLister
	reg      *registry.Registry
	surfaces *thumbnail.Manager
	ui       uithread.Executor
	source   Source
	listener Listener
	interval time.Duration
	paused   atomic.Bool
}

// Options configures a Scanner.
type Options struct {
	Logger   logger.LoggerInterface
	Procs    native.ProcessLister
	Registry *registry.Registry
	Surfaces *thumbnail.Manager
	UI       uithread.Executor
	Source   Source
	Listener Listener

	// Interval defaults to timeouts.ScanInterval.
	Interval time.Duration
}

// New creates a scanner.
func New(opts Options) *Scanner {
	if opts.Interval <= 0 {
		opts.Interval = timeouts.ScanInterval
	}

	return &Scanner{
		log:      opts.Logger,
		procs:    opts.Procs,
		reg:      opts.Registry,
		surfaces: opts.Surfaces,
		ui:       opts.UI,
		source:   opts.Source,
		listener: opts.Listener,
		interval: opts.Interval,
	}
}

// Pause suppresses scanning until Resume. The ticker keeps running.
func (s *Scanner) Pause() { s.paused.Store(true) }

// Resume re-enables scanning.
func (s *Scanner) Resume() { s.paused.Store(false) }

// Paused reports whether scanning is suppressed.
func (s *Scanner) Paused() bool { return s.paused.Load() }

// Run scans immediately and then on every interval until ctx is cancelled.
func (s *Scanner) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.log.Info("Scanner started", slog.Duration("interval", s.interval))
	s.pass(ctx)

	for {
		select {
		case <-ctx.Done():
			s.log.Info("Scanner stopped")
			return nil
		case <-ticker.C:
			s.pass(ctx)
		}
	}
}

func (s *Scanner) pass(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("Scan pass panicked", slog.Any("panic", r))
		}
	}()

	s.Scan(ctx)
}

// IsLauncherTitle reports whether title is the excluded launcher window.
func IsLauncherTitle(title string) bool {
	return strings.EqualFold(strings.TrimSpace(title), LauncherTitle)
}

// Scan runs one reconciliation pass. Registry mutations are posted to the UI thread.
func (s *Scanner) Scan(ctx context.Context) {
	if s.Paused() {
		return
	}

	names, err := s.source.WatchList(ctx)
	if err != nil {
		s.log.Warn("Could not read watch-list", slog.Any("error", err))
		return
	}

	present := make(map[uint32]bool)
	complete := true

	for _, name := range names {
		procs, err := s.procs.Processes(name)
		if err != nil {
			// Without a full picture of this name, nothing can be declared gone.
			s.log.Debug("Process enumeration failed", slog.String("process", name), slog.Any("error", err))
			complete = false
			continue
		}

		for _, p := range procs {
			if s.observe(ctx, p) {
				present[p.PID] = true
			}
		}
	}

	if !complete {
		return
	}

	for _, w := range s.reg.Snapshot() {
		if !present[w.PID] {
			s.remove(w, "no longer present")
		}
	}
}

// observe handles one matching process and reports whether it should stay tracked.
func (s *Scanner) observe(ctx context.Context, p native.ProcessInfo) bool {
	switch {
	case p.Err != nil:
		if native.IsTransient(p.Err) {
			s.log.Debug("Process query failed", slog.Uint64("pid", uint64(p.PID)), slog.Any("error", p.Err))
		} else {
			s.log.Warn("Process query failed", slog.Uint64("pid", uint64(p.PID)), slog.Any("error", p.Err))
		}

		return false
	case p.MainWindow == 0:
		return false
	case IsLauncherTitle(p.Title):
		return false
	}

	if w, ok := s.reg.Get(p.PID); ok {
		if w.Source == p.MainWindow && w.Title == p.Title {
			if !w.HasSurface() {
				s.createSurface(ctx, w)
			}

			return true
		}

		// Same process, new main window or character: retire the old record first.
		s.remove(w, "main window changed")
	}

	s.add(ctx, registry.NewTrackedWindow(p.PID, p.MainWindow, p.Title))
	return true
}

func (s *Scanner) add(ctx context.Context, w *registry.TrackedWindow) {
	settings := s.source.Settings(ctx, w.Title)

	s.ui.Post(func() {
		if s.Paused() {
			return
		}

		if !s.reg.Add(w) {
			return
		}

		s.log.Info("Window added", slog.String("title", w.Title), slog.Uint64("pid", uint64(w.PID)))

		if err := s.surfaces.CreateSurface(w, settings); err != nil {
			s.log.Warn("Could not create preview", slog.String("title", w.Title), slog.Any("error", err))
		}

		if s.listener != nil {
			s.listener.WindowAdded(w)
		}
	})
}

func (s *Scanner) createSurface(ctx context.Context, w *registry.TrackedWindow) {
	settings := s.source.Settings(ctx, w.Title)

	s.ui.Post(func() {
		if s.Paused() {
			return
		}

		if err := s.surfaces.CreateSurface(w, settings); err != nil {
			s.log.Debug("Preview retry failed", slog.String("title", w.Title), slog.Any("error", err))
		}
	})
}

func (s *Scanner) remove(w *registry.TrackedWindow, reason string) {
	s.ui.Post(func() {
		if s.Paused() {
			return
		}

		current, ok := s.reg.Get(w.PID)
		if !ok || current != w {
			return
		}

		s.surfaces.DestroySurface(w)
		s.reg.Remove(w.PID)

		s.log.Info("Window removed",
			slog.String("title", w.Title),
			slog.Uint64("pid", uint64(w.PID)),
			slog.String("reason", reason),
		)

		if s.listener != nil {
			s.listener.WindowRemoved(w)
		}
	})
}

// RemoveAll destroys every surface and empties the registry, waiting for the UI
// thread to finish so a following Scan starts from an empty registry. It is used on
// profile switch and shutdown and ignores the paused flag.
func (s *Scanner) RemoveAll() error {
	return s.ui.Call(func() error {
		for _, w := range s.reg.Snapshot() {
			s.surfaces.DestroySurface(w)
			if _, ok := s.reg.Remove(w.PID); ok && s.listener != nil {
				s.listener.WindowRemoved(w)
			}
		}

		return nil
	})
}
