// Package hotkeys owns global hotkey registration. The OS ties a registration to the
// thread that made it, so a dedicated locked thread runs a native message loop and is
// the only place registrations are created, removed or looked up. Callers hand it
// commands; nothing else touches its maps.
package hotkeys

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Norgate-AV/evelens/internal/logger"
	"github.com/Norgate-AV/evelens/internal/native"
	"github.com/Norgate-AV/evelens/internal/timeouts"
)

// ErrDisabled is returned when the hotkey thread could not create its window.
var ErrDisabled = errors.New("hotkeys disabled")

// msgCommand wakes the loop to drain queued commands.
const msgCommand = native.MsgApp + 1

// Dispatcher performs fired actions. It is called on its own goroutine.
type Dispatcher interface {
	HandleHotkey(a Action)
}

// DispatcherFunc adapts a function to Dispatcher.
type DispatcherFunc func(a Action)

// HandleHotkey calls f(a).
func (f DispatcherFunc) HandleHotkey(a Action) { f(a) }

// CaptureFunc receives the result of an interactive capture. ok is false when the
// user cancelled.
type CaptureFunc func(h Hotkey, ok bool)

type command func()

// Service runs the hotkey thread.
type Service struct {
	log      logger.LoggerInterface
	host     native.HotkeyHost
	dispatch Dispatcher

	commands chan command
	join     time.Duration
	threadID atomic.Uint32
	disabled atomic.Bool
	done     chan struct{}
	start    sync.Once
	startErr error
	stop     sync.Once

	// Loop-thread state.
	hwnd       native.Handle
	pool       *idPool
	table      *bindingTable
	registered []int
	plan       Plan
	capturing  bool
	unhook     func()
	capturer   capture
	onCapture  CaptureFunc
}

// Options configures a Service.
type Options struct {
	Logger     logger.LoggerInterface
	Host       native.HotkeyHost
	Dispatcher Dispatcher

	// FirstID and LastID bound the id pool. Zero values use FirstID and LastID.
	FirstID int
	LastID  int

	// JoinTimeout bounds Shutdown. Zero uses timeouts.HotkeyThreadJoinTimeout.
	JoinTimeout time.Duration
}

// New creates a hotkey service. Call Start to launch its thread.
func New(opts Options) *Service {
	first, last := opts.FirstID, opts.LastID
	if first == 0 && last == 0 {
		first, last = FirstID, LastID
	}

	if opts.JoinTimeout <= 0 {
		opts.JoinTimeout = timeouts.HotkeyThreadJoinTimeout
	}

	return &Service{
		log:      opts.Logger,
		host:     opts.Host,
		dispatch: opts.Dispatcher,
		commands: make(chan command, 64),
		join:     opts.JoinTimeout,
		done:     make(chan struct{}),
		pool:     newIDPool(first, last),
		table:    newBindingTable(),
	}
}

// Start launches the hotkey thread and waits until its message window exists. When
// the window cannot be created after one retry hotkeys stay disabled for the session
// and ErrDisabled is returned; the rest of the application keeps running.
func (s *Service) Start() error {
	s.start.Do(func() {
		var err error
		started := make(chan error, 1)
		go s.loop(started)

		select {
		case err = <-started:
		case <-time.After(timeouts.HotkeyThreadStartTimeout):
			err = fmt.Errorf("%w: thread did not start within %s", ErrDisabled, timeouts.HotkeyThreadStartTimeout)
		}

		if err != nil {
			s.disabled.Store(true)
			s.log.Error("Global hotkeys are disabled for this session", slog.Any("error", err))
		}

		s.startErr = err
	})

	return s.startErr
}

// Enabled reports whether the hotkey thread is running.
func (s *Service) Enabled() bool {
	return !s.disabled.Load() && s.threadID.Load() != 0
}

func (s *Service) loop(started chan<- error) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(s.done)

	s.threadID.Store(s.host.CurrentThreadID())

	hwnd, err := s.host.CreateMessageWindow()
	if err != nil {
		s.log.Warn("Hotkey window creation failed, retrying", slog.Any("error", err))
		time.Sleep(timeouts.HotkeyWindowRetryDelay)
		hwnd, err = s.host.CreateMessageWindow()
	}

	if err != nil {
		s.threadID.Store(0)
		started <- fmt.Errorf("%w: %w", ErrDisabled, err)
		return
	}

	s.hwnd = hwnd
	s.log.Debug("Hotkey thread started", slog.Uint64("thread", uint64(s.threadID.Load())))
	started <- nil

	// Commands queued before the thread existed.
	s.drain()

	for {
		msg, ok := s.host.GetMessage()
		if !ok {
			break
		}

		switch msg.Message {
		case native.MsgHotkey:
			s.fire(int(msg.WParam))
		case msgCommand:
			s.drain()
		}
	}

	s.endCapture()
	s.unregisterAll()
	s.log.Debug("Hotkey thread stopped")
}

func (s *Service) drain() {
	for {
		select {
		case cmd := <-s.commands:
			s.run(cmd)
		default:
			return
		}
	}
}

func (s *Service) run(cmd command) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("Hotkey command panicked", slog.Any("panic", r))
		}
	}()

	cmd()
}

// post queues cmd for the loop thread and wakes it.
func (s *Service) post(cmd command) {
	if s.disabled.Load() {
		s.log.Debug("Ignoring hotkey command, hotkeys are disabled")
		return
	}

	select {
	case <-s.done:
		return
	case s.commands <- cmd:
	}

	if tid := s.threadID.Load(); tid != 0 {
		if err := s.host.PostThreadMessage(tid, msgCommand, 0, 0); err != nil {
			s.log.Warn("Could not wake hotkey thread", slog.Any("error", err))
		}
	}
}

// Register replaces every registration with plan. It returns immediately; the work
// happens on the hotkey thread. Repeated calls are safe.
func (s *Service) Register(plan Plan) {
	s.post(func() {
		s.plan = plan
		if s.capturing {
			// Applied when capture ends.
			return
		}

		s.registerAll()
	})
}

// UnregisterAll removes every registration.
func (s *Service) UnregisterAll() {
	s.post(func() {
		s.plan = Plan{}
		s.unregisterAll()
	})
}

// BeginCapture unregisters every hotkey and routes the next key combination to fn.
// Hotkeys return when the capture completes or EndCapture is called.
func (s *Service) BeginCapture(fn CaptureFunc) {
	s.post(func() {
		if s.capturing {
			s.onCapture = fn
			return
		}

		s.unregisterAll()

		unhook, err := s.host.InstallKeyboardHook(s.onKey)
		if err != nil {
			s.log.Warn("Could not start hotkey capture", slog.Any("error", err))
			s.registerAll()
			go fn(Hotkey{}, false)
			return
		}

		s.capturing = true
		s.unhook = unhook
		s.capturer = capture{}
		s.onCapture = fn
		s.log.Debug("Hotkey capture started")
	})
}

// EndCapture leaves capture mode and restores the registrations.
func (s *Service) EndCapture() {
	s.post(func() {
		if s.endCapture() {
			s.registerAll()
		}
	})
}

// Bindings returns the live registrations.
func (s *Service) Bindings() ([]Binding, error) {
	if !s.Enabled() {
		return nil, ErrDisabled
	}

	reply := make(chan []Binding, 1)
	s.post(func() { reply <- s.table.all() })

	select {
	case b := <-reply:
		return b, nil
	case <-s.done:
		return nil, ErrDisabled
	case <-time.After(s.join):
		return nil, fmt.Errorf("hotkey thread did not answer within %s", s.join)
	}
}

// Shutdown stops the hotkey thread, waiting up to the join timeout.
func (s *Service) Shutdown() {
	s.stop.Do(func() {
		tid := s.threadID.Load()
		if tid == 0 {
			return
		}

		if err := s.host.PostThreadMessage(tid, native.MsgQuit, 0, 0); err != nil {
			s.log.Warn("Could not post quit to hotkey thread", slog.Any("error", err))
			return
		}

		select {
		case <-s.done:
		case <-time.After(s.join):
			s.log.Warn("Hotkey thread did not exit in time", slog.Duration("timeout", s.join))
		}
	})
}

func (s *Service) registerAll() {
	s.unregisterAll()
	s.pool.reset()

	var n int

	for _, p := range s.plan.Profiles {
		if !s.bind(p.Hotkey, "profile "+p.Name, Action{Kind: ActionSwitchProfile, ProfileID: p.ProfileID}, &n) {
			return
		}
	}

	for _, g := range s.plan.Groups {
		if !s.bind(g.Forward, "group "+g.Name+" forward", Action{Kind: ActionCycleGroup, GroupID: g.GroupID, Forward: true}, &n) {
			return
		}

		if !s.bind(g.Backward, "group "+g.Name+" backward", Action{Kind: ActionCycleGroup, GroupID: g.GroupID}, &n) {
			return
		}
	}

	s.log.Debug("Hotkeys registered", slog.Int("count", n))
}

// bind registers one hotkey string. It returns false only when the id pool is
// exhausted and registration must stop.
func (s *Service) bind(str, label string, action Action, n *int) bool {
	if strings.TrimSpace(str) == "" {
		return true
	}

	h, err := Parse(str)
	if err != nil {
		s.log.Warn("Ignoring unparseable hotkey", slog.String("binding", label), slog.String("hotkey", str))
		return true
	}

	id, err := s.pool.take()
	if err != nil {
		s.log.Warn("No hotkey ids left, remaining hotkeys are skipped",
			slog.String("binding", label),
			slog.Any("error", err),
		)
		return false
	}

	if err := s.host.RegisterHotKey(s.hwnd, id, h.Modifiers|native.ModNoRepeat, h.Key); err != nil {
		s.log.Warn("Hotkey conflict, skipping",
			slog.String("binding", label),
			slog.String("hotkey", h.String()),
			slog.Any("error", err),
		)
		return true
	}

	s.registered = append(s.registered, id)
	s.table.add(Binding{ID: id, Hotkey: h, Label: label, Action: action})
	*n++
	return true
}

func (s *Service) unregisterAll() {
	for _, id := range s.registered {
		if err := s.host.UnregisterHotKey(s.hwnd, id); err != nil {
			s.log.Debug("UnregisterHotKey failed", slog.Int("id", id), slog.Any("error", err))
		}
	}

	s.registered = nil
	s.table.clear()
}

func (s *Service) fire(id int) {
	if s.capturing {
		return
	}

	b, ok := s.table.lookup(id)
	if !ok {
		s.log.Debug("Unknown hotkey id", slog.Int("id", id))
		return
	}

	s.log.Debug("Hotkey fired", slog.String("binding", b.Label), slog.String("hotkey", b.Hotkey.String()))

	go func() {
		defer func() {
			if r := recover(); r != nil {
				s.log.Error("Hotkey action panicked", slog.String("binding", b.Label), slog.Any("panic", r))
			}
		}()

		s.dispatch.HandleHotkey(b.Action)
	}()
}

// onKey runs on the loop thread from the keyboard hook.
func (s *Service) onKey(ev native.KeyEvent) bool {
	if !s.capturing {
		return false
	}

	h, done, ok := s.capturer.feed(ev)
	if !done {
		return true
	}

	fn := s.onCapture
	s.onCapture = nil
	if fn != nil {
		go fn(h, ok)
	}

	// Unhooking from inside the hook callback is avoided; finish on the next command.
	s.post(func() {
		if s.endCapture() {
			s.registerAll()
		}
	})

	return true
}

// endCapture removes the hook and reports whether capture was active.
func (s *Service) endCapture() bool {
	if !s.capturing {
		return false
	}

	if s.unhook != nil {
		s.unhook()
		s.unhook = nil
	}

	s.capturing = false
	s.onCapture = nil
	s.log.Debug("Hotkey capture ended")
	return true
}
