// Package service wires the window tracking subsystems together and exposes the
// operations used by the command line and by settings collaborators.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/Norgate-AV/evelens/internal/config"
	"github.com/Norgate-AV/evelens/internal/cycle"
	"github.com/Norgate-AV/evelens/internal/drag"
	"github.com/Norgate-AV/evelens/internal/focus"
	"github.com/Norgate-AV/evelens/internal/hotkeys"
	"github.com/Norgate-AV/evelens/internal/logger"
	"github.com/Norgate-AV/evelens/internal/native"
	"github.com/Norgate-AV/evelens/internal/registry"
	"github.com/Norgate-AV/evelens/internal/scanner"
	"github.com/Norgate-AV/evelens/internal/store"
	"github.com/Norgate-AV/evelens/internal/thumbnail"
	"github.com/Norgate-AV/evelens/internal/timeouts"
	"github.com/Norgate-AV/evelens/internal/uithread"
)

// ErrUnknownWindow is returned by per-window operations for titles that are not tracked.
var ErrUnknownWindow = errors.New("window is not tracked")

// Options configures a Service.
type Options struct {
	Logger logger.LoggerInterface
	Native native.API
	Store  store.Store
	Config *config.Config

	// ConfigPath, when set, is watched and reloaded while Run is active.
	ConfigPath string

	// UI runs native UI work. When nil the service owns a UI thread that pumps
	// preview window messages.
	UI uithread.Executor

	// HotkeyFirstID and HotkeyLastID narrow the hotkey id pool, for tests.
	HotkeyFirstID int
	HotkeyLastID  int
}

// Service is the running application core.
type Service struct {
	log        logger.LoggerInterface
	api        native.API
	store      store.Store
	configPath string

	ui     uithread.Executor
	thread *uithread.Thread

	reg      *registry.Registry
	surfaces *thumbnail.Manager
	scanner  *scanner.Scanner
	focus    *focus.Tracker
	hotkeys  *hotkeys.Service
	cycler   *cycle.Cycler
	drag     *drag.Coordinator

	mu       sync.RWMutex
	cfg      *config.Config
	profile  store.Profile
	runCtx   context.Context
	dragging atomic.Bool

	events  *broadcaster
	gesture gesture
}

// New builds a service and attaches it to preview pointer events. No loop runs until
// Run.
func New(opts Options) *Service {
	if opts.Config == nil {
		opts.Config = config.Default()
	}

	s := &Service{
		log:        opts.Logger,
		api:        opts.Native,
		store:      opts.Store,
		configPath: opts.ConfigPath,
		ui:         opts.UI,
		reg:        registry.New(),
		cfg:        opts.Config,
		runCtx:     context.Background(),
		events:     newBroadcaster(),
	}

	if s.ui == nil {
		s.thread = uithread.New(opts.Logger, opts.Native.PumpMessages)
		s.ui = s.thread
	}

	s.dragging.Store(true)
	s.surfaces = thumbnail.NewManager(opts.Logger, opts.Native)

	s.scanner = scanner.New(scanner.Options{
		Logger:   opts.Logger,
		Procs:    opts.Native,
		Registry: s.reg,
		Surfaces: s.surfaces,
		UI:       s.ui,
		Source:   s,
		Listener: s,
		Interval: opts.Config.ScanInterval,
	})

	s.focus = focus.New(focus.Options{
		Logger:   opts.Logger,
		Windows:  opts.Native,
		Registry: s.reg,
		Surfaces: s.surfaces,
		UI:       s.ui,
		Policy:   focus.Policy{Sticky: opts.Config.StickyFocus},
		OnChange: s.focusChanged,
		Interval: opts.Config.FocusInterval,
	})

	s.hotkeys = hotkeys.New(hotkeys.Options{
		Logger:      opts.Logger,
		Host:        opts.Native,
		Dispatcher:  s,
		FirstID:     opts.HotkeyFirstID,
		LastID:      opts.HotkeyLastID,
		JoinTimeout: opts.Config.HotkeyJoinTimeout,
	})

	s.cycler = cycle.New(opts.Logger, opts.Native, s.reg, s)
	s.drag = drag.New(s.reg, s.surfaces, s)

	opts.Native.SetPointerHandler(s.handlePointer)

	return s
}

// Run starts every subsystem and blocks until ctx is cancelled. Hotkey failures are
// logged and do not stop thumbnail tracking.
func (s *Service) Run(ctx context.Context) error {
	if s.thread != nil {
		s.thread.Start()
	}

	s.mu.Lock()
	s.runCtx = ctx
	s.mu.Unlock()

	if err := s.loadProfile(ctx); err != nil {
		s.stopUI()
		return err
	}

	if err := s.hotkeys.Start(); err != nil {
		s.log.Warn("Continuing without global hotkeys", slog.Any("error", err))
	} else {
		s.registerHotkeys(ctx)
	}

	if s.api.IsElevated() {
		s.log.Debug("Running elevated")
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.scanner.Run(gctx) })
	g.Go(func() error { return s.focus.Run(gctx) })

	if s.configPath != "" {
		g.Go(func() error {
			if err := config.Watch(gctx, s.configPath, s.log, func(cfg *config.Config) { s.applyConfig(gctx, cfg) }); err != nil {
				// Reload is optional; keep running without it.
				s.log.Warn("Config reload is unavailable", slog.Any("error", err))
			}

			return nil
		})
	}

	err := g.Wait()

	s.log.Info("Shutting down")
	s.hotkeys.Shutdown()
	if err := s.scanner.RemoveAll(); err != nil {
		s.log.Warn("Preview teardown incomplete", slog.Any("error", err))
	}
	s.stopUI()
	s.events.close()

	return err
}

func (s *Service) stopUI() {
	if s.thread != nil {
		s.thread.Stop(timeouts.UICallTimeout)
	}
}

func (s *Service) context() context.Context {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.runCtx
}

// loadProfile caches the active profile and its dragging setting.
func (s *Service) loadProfile(ctx context.Context) error {
	p, err := s.store.ActiveProfile(ctx)
	if err != nil {
		return fmt.Errorf("load active profile: %w", err)
	}

	dragging, err := s.store.DraggingEnabled(ctx)
	if err != nil {
		s.log.Warn("Could not read dragging setting", slog.Any("error", err))
		dragging = true
	}

	s.mu.Lock()
	s.profile = p
	s.mu.Unlock()
	s.dragging.Store(dragging)

	s.log.Info("Active profile", slog.String("profile", p.Name), slog.Int64("id", p.ID))
	return nil
}

// ActiveProfile returns the cached active profile.
func (s *Service) ActiveProfile() store.Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.profile
}

func (s *Service) registerHotkeys(ctx context.Context) {
	profiles, err := s.store.Profiles(ctx)
	if err != nil {
		s.log.Warn("Could not read profiles for hotkeys", slog.Any("error", err))
		return
	}

	groups, err := s.store.Groups(ctx, s.ActiveProfile().ID)
	if err != nil {
		s.log.Warn("Could not read groups for hotkeys", slog.Any("error", err))
		return
	}

	var plan hotkeys.Plan
	for _, p := range profiles {
		plan.Profiles = append(plan.Profiles, hotkeys.ProfileHotkey{ProfileID: p.ID, Name: p.Name, Hotkey: p.SwitchHotkey})
	}

	for _, g := range groups {
		plan.Groups = append(plan.Groups, hotkeys.GroupHotkeys{
			GroupID:  g.ID,
			Name:     g.Name,
			Forward:  g.ForwardHotkey,
			Backward: g.BackwardHotkey,
		})
	}

	s.hotkeys.Register(plan)
}

func (s *Service) applyConfig(ctx context.Context, cfg *config.Config) {
	s.mu.Lock()
	old := s.cfg
	s.cfg = cfg
	s.mu.Unlock()

	s.focus.SetPolicy(focus.Policy{Sticky: cfg.StickyFocus})

	if old.ScanInterval != cfg.ScanInterval || old.FocusInterval != cfg.FocusInterval || old.Database != cfg.Database {
		s.log.Info("Interval and database changes apply after restart")
	}

	if err := s.loadProfile(ctx); err != nil {
		s.log.Warn("Could not reload profile", slog.Any("error", err))
		return
	}

	s.registerHotkeys(ctx)
}

// WatchList implements scanner.Source for the active profile.
func (s *Service) WatchList(ctx context.Context) ([]string, error) {
	return s.store.WatchList(ctx, s.ActiveProfile().ID)
}

// Settings implements scanner.Source.
func (s *Service) Settings(ctx context.Context, title string) thumbnail.Settings {
	cfg, err := store.ResolveSettings(ctx, s.store, s.ActiveProfile().ID, title)
	if err != nil {
		s.log.Warn("Could not read preview settings, using defaults", slog.String("title", title), slog.Any("error", err))
	}

	return cfg
}

// Group implements cycle.Source.
func (s *Service) Group(ctx context.Context, id int64) (store.Group, error) {
	return s.store.Group(ctx, id)
}

// WindowAdded implements scanner.Listener.
func (s *Service) WindowAdded(w *registry.TrackedWindow) {
	s.events.send(Event{Kind: WindowAdded, Title: w.Title, PID: w.PID})

	go s.autoAssign(s.context(), w.Title)
}

// WindowRemoved implements scanner.Listener.
func (s *Service) WindowRemoved(w *registry.TrackedWindow) {
	s.events.send(Event{Kind: WindowRemoved, Title: w.Title, PID: w.PID})
}

func (s *Service) focusChanged(w *registry.TrackedWindow) {
	if w == nil {
		s.events.send(Event{Kind: FocusChanged})
		return
	}

	s.events.send(Event{Kind: FocusChanged, Title: w.Title, PID: w.PID})
}

// autoAssign adds a window that belongs to no group to the lowest-id group.
func (s *Service) autoAssign(ctx context.Context, title string) {
	groups, err := s.store.Groups(ctx, s.ActiveProfile().ID)
	if err != nil {
		s.log.Debug("Could not read groups", slog.Any("error", err))
		return
	}

	if len(groups) == 0 {
		return
	}

	for _, g := range groups {
		for _, m := range g.Members {
			if equalTitle(m, title) {
				return
			}
		}
	}

	if err := s.store.AddGroupMember(ctx, groups[0].ID, title); err != nil {
		s.log.Warn("Could not add window to default group", slog.String("title", title), slog.Any("error", err))
		return
	}

	s.log.Debug("Window added to default group", slog.String("title", title), slog.String("group", groups[0].Name))
}

// HandleHotkey implements hotkeys.Dispatcher.
func (s *Service) HandleHotkey(a hotkeys.Action) {
	ctx := s.context()

	switch a.Kind {
	case hotkeys.ActionSwitchProfile:
		if err := s.SwitchProfile(ctx, a.ProfileID); err != nil {
			s.log.Warn("Profile switch failed", slog.Int64("profile", a.ProfileID), slog.Any("error", err))
		}
	case hotkeys.ActionCycleGroup:
		s.CycleGroup(ctx, a.GroupID, a.Forward)
	}
}

// CycleGroup activates the next or previous member of a group.
func (s *Service) CycleGroup(ctx context.Context, groupID int64, forward bool) *registry.TrackedWindow {
	return s.cycler.Cycle(ctx, groupID, forward)
}

// SwitchProfile activates a profile, tears down every tracked window and re-registers
// hotkeys for the new profile.
func (s *Service) SwitchProfile(ctx context.Context, id int64) error {
	if s.ActiveProfile().ID == id {
		return nil
	}

	if err := s.store.SetActiveProfile(ctx, id); err != nil {
		return err
	}

	if err := s.loadProfile(ctx); err != nil {
		return err
	}

	if err := s.scanner.RemoveAll(); err != nil {
		return fmt.Errorf("tear down previews: %w", err)
	}

	s.registerHotkeys(ctx)
	s.scanner.Scan(ctx)

	return nil
}

// Subscribe returns a channel of window and focus events. Events are dropped when
// the subscriber falls behind.
func (s *Service) Subscribe() <-chan Event {
	return s.events.subscribe()
}

// GetActiveWindowTitles returns the titles of tracked windows in pid order.
func (s *Service) GetActiveWindowTitles() []string {
	return s.reg.Titles()
}

// PauseMonitoring suppresses scanning and focus polling.
func (s *Service) PauseMonitoring() {
	s.scanner.Pause()
	s.focus.Pause()
}

// ResumeMonitoring re-enables scanning and focus polling.
func (s *Service) ResumeMonitoring() {
	s.scanner.Resume()
	s.focus.Resume()
}

// Scan runs one discovery pass immediately.
func (s *Service) Scan(ctx context.Context) {
	s.scanner.Scan(ctx)
}

// PollFocus runs one focus poll immediately.
func (s *Service) PollFocus() {
	s.focus.PollOnce()
}

// DraggingEnabled reports whether previews can be dragged.
func (s *Service) DraggingEnabled() bool {
	return s.dragging.Load()
}

// SetDraggingEnabled stores and applies the dragging setting.
func (s *Service) SetDraggingEnabled(ctx context.Context, enabled bool) error {
	if err := s.store.SetDraggingEnabled(ctx, enabled); err != nil {
		return err
	}

	s.dragging.Store(enabled)
	return nil
}

// BeginHotkeyCapture suspends hotkeys and reports the next key combination.
func (s *Service) BeginHotkeyCapture(fn hotkeys.CaptureFunc) {
	s.hotkeys.BeginCapture(fn)
}

// EndHotkeyCapture restores hotkeys after a capture.
func (s *Service) EndHotkeyCapture() {
	s.hotkeys.EndCapture()
}

// Hotkeys returns the live hotkey registrations.
func (s *Service) Hotkeys() ([]hotkeys.Binding, error) {
	return s.hotkeys.Bindings()
}

// StartHotkeys launches the hotkey thread and registers the current plan. Run does
// this itself; it is exposed for callers driving the service step by step.
func (s *Service) StartHotkeys(ctx context.Context) error {
	if err := s.hotkeys.Start(); err != nil {
		return err
	}

	s.registerHotkeys(ctx)
	return nil
}

// StopHotkeys stops the hotkey thread.
func (s *Service) StopHotkeys() {
	s.hotkeys.Shutdown()
}

// LoadProfile refreshes the cached active profile. Run does this itself.
func (s *Service) LoadProfile(ctx context.Context) error {
	return s.loadProfile(ctx)
}
