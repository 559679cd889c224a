package testutil

import (
	"fmt"
	"sync"

	"github.com/Norgate-AV/evelens/internal/native"
)

// HotkeyRegistration records one RegisterHotKey call that succeeded.
type HotkeyRegistration struct {
	ID        int
	Modifiers native.Modifiers
	Key       uint32
}

type keyRequest struct {
	ev    native.KeyEvent
	reply chan bool
}

// FakeNative is an in-memory native.API. It records every call and lets tests script
// processes, foreground changes and failures.
type FakeNative struct {
	mu sync.Mutex

	processes   map[string][]native.ProcessInfo
	processErrs map[string]error
	foreground  native.Handle
	windowPIDs  map[native.Handle]uint32
	styles      map[native.Handle]native.Style
	elevated    bool

	nextPreview   native.Handle
	nextThumb     native.ThumbnailID
	registerErr   error
	previews      map[native.Handle]native.Rect
	thumbnails    map[native.ThumbnailID]native.ThumbnailProps
	borders       map[native.Handle]bool
	previewTitles map[native.Handle]string
	pointer       func(native.PointerEvent)

	// Calls is an ordered log of surface lifecycle calls, e.g. "unregister:1" then "destroy:0x1000".
	Calls []string

	SetForegroundCalls []native.Handle
	SetFocusCalls      []native.Handle
	RestoreCalls       []native.Handle

	createWindowFailures int
	hotkeys              map[int]HotkeyRegistration
	taken                map[string]bool
	messages             chan native.ThreadMessage
	keys                 chan keyRequest
	hook                 func(native.KeyEvent) bool
	RegisterCalls        int
	UnregisterCalls      int
}

// NewFakeNative returns a fake with no processes and no foreground window.
func NewFakeNative() *FakeNative {
	return &FakeNative{
		processes:     make(map[string][]native.ProcessInfo),
		processErrs:   make(map[string]error),
		windowPIDs:    make(map[native.Handle]uint32),
		styles:        make(map[native.Handle]native.Style),
		elevated:      true,
		nextPreview:   0x1000,
		previews:      make(map[native.Handle]native.Rect),
		thumbnails:    make(map[native.ThumbnailID]native.ThumbnailProps),
		borders:       make(map[native.Handle]bool),
		previewTitles: make(map[native.Handle]string),
		hotkeys:       make(map[int]HotkeyRegistration),
		taken:         make(map[string]bool),
		messages:      make(chan native.ThreadMessage, 64),
		keys:          make(chan keyRequest),
	}
}

// WithProcess adds a live process with a main window.
func (f *FakeNative) WithProcess(name string, pid uint32, hwnd native.Handle, title string) *FakeNative {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := native.NormalizeProcessName(name)
	f.processes[key] = append(f.processes[key], native.ProcessInfo{PID: pid, Name: key, MainWindow: hwnd, Title: title})
	if hwnd != 0 {
		f.windowPIDs[hwnd] = pid
	}

	return f
}

// WithoutProcess removes a process as if it exited.
func (f *FakeNative) WithoutProcess(pid uint32) *FakeNative {
	f.mu.Lock()
	defer f.mu.Unlock()

	for name, list := range f.processes {
		kept := list[:0]
		for _, p := range list {
			if p.PID != pid {
				kept = append(kept, p)
			}
		}

		f.processes[name] = kept
	}

	return f
}

// WithProcessError makes enumeration of name fail with err.
func (f *FakeNative) WithProcessError(name string, err error) *FakeNative {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.processErrs[native.NormalizeProcessName(name)] = err
	return f
}

// WithChildWindow maps an extra window handle to pid, like an owned dialog.
func (f *FakeNative) WithChildWindow(hwnd native.Handle, pid uint32) *FakeNative {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.windowPIDs[hwnd] = pid
	return f
}

// WithForeground sets the foreground window.
func (f *FakeNative) WithForeground(hwnd native.Handle) *FakeNative {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.foreground = hwnd
	return f
}

// WithMinimized marks a source window minimized.
func (f *FakeNative) WithMinimized(hwnd native.Handle) *FakeNative {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.styles[hwnd] = native.Style{Visible: true, Minimized: true}
	return f
}

// WithRegisterError makes RegisterThumbnail fail.
func (f *FakeNative) WithRegisterError(err error) *FakeNative {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.registerErr = err
	return f
}

// WithElevated sets the IsElevated result.
func (f *FakeNative) WithElevated(elevated bool) *FakeNative {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.elevated = elevated
	return f
}

// WithTakenHotkey makes RegisterHotKey report a conflict for the combination.
func (f *FakeNative) WithTakenHotkey(mods native.Modifiers, vk uint32) *FakeNative {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.taken[comboKey(mods, vk)] = true
	return f
}

// WithMessageWindowFailures makes the next n CreateMessageWindow calls fail.
func (f *FakeNative) WithMessageWindowFailures(n int) *FakeNative {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.createWindowFailures = n
	return f
}

func comboKey(mods native.Modifiers, vk uint32) string {
	return fmt.Sprintf("%x:%x", mods&^native.ModNoRepeat, vk)
}

func (f *FakeNative) record(call string) {
	f.Calls = append(f.Calls, call)
}

// Processes implements native.ProcessLister.
func (f *FakeNative) Processes(name string) ([]native.ProcessInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := native.NormalizeProcessName(name)
	if err := f.processErrs[key]; err != nil {
		return nil, err
	}

	return append([]native.ProcessInfo(nil), f.processes[key]...), nil
}

// ProcessAlive implements native.ProcessLister.
func (f *FakeNative) ProcessAlive(pid uint32) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, list := range f.processes {
		for _, p := range list {
			if p.PID == pid {
				return true
			}
		}
	}

	return false
}

// ForegroundWindow implements native.WindowQuerier.
func (f *FakeNative) ForegroundWindow() native.Handle {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.foreground
}

// WindowProcessID implements native.WindowQuerier.
func (f *FakeNative) WindowProcessID(hwnd native.Handle) (uint32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	pid, ok := f.windowPIDs[hwnd]
	if !ok {
		return 0, native.ErrInvalidHandle
	}

	return pid, nil
}

// WindowTitle implements native.WindowQuerier.
func (f *FakeNative) WindowTitle(hwnd native.Handle) string {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, list := range f.processes {
		for _, p := range list {
			if p.MainWindow == hwnd {
				return p.Title
			}
		}
	}

	return ""
}

// WindowRect implements native.WindowQuerier.
func (f *FakeNative) WindowRect(hwnd native.Handle) (native.Rect, error) {
	return native.Rect{Width: 1024, Height: 768}, nil
}

// WindowStyle implements native.WindowQuerier.
func (f *FakeNative) WindowStyle(hwnd native.Handle) (native.Style, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if st, ok := f.styles[hwnd]; ok {
		return st, nil
	}

	return native.Style{Visible: true}, nil
}

// Placement implements native.WindowQuerier.
func (f *FakeNative) Placement(hwnd native.Handle) (native.Placement, error) {
	st, _ := f.WindowStyle(hwnd)
	if st.Minimized {
		return native.Placement{State: native.ShowMinimized}, nil
	}

	return native.Placement{State: native.ShowNormal}, nil
}

// IsResponsive implements native.WindowQuerier.
func (f *FakeNative) IsResponsive(hwnd native.Handle) bool { return true }

// SetForeground implements native.WindowActivator.
func (f *FakeNative) SetForeground(hwnd native.Handle) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.SetForegroundCalls = append(f.SetForegroundCalls, hwnd)
	f.foreground = hwnd
	return nil
}

// SetFocus implements native.WindowActivator.
func (f *FakeNative) SetFocus(hwnd native.Handle) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.SetFocusCalls = append(f.SetFocusCalls, hwnd)
	return nil
}

// Restore implements native.WindowActivator.
func (f *FakeNative) Restore(hwnd native.Handle) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.RestoreCalls = append(f.RestoreCalls, hwnd)
	delete(f.styles, hwnd)
	return nil
}

// SetPlacement implements native.WindowActivator.
func (f *FakeNative) SetPlacement(hwnd native.Handle, p native.Placement) error { return nil }

// CreatePreviewWindow implements native.PreviewHost.
func (f *FakeNative) CreatePreviewWindow(title string, bounds native.Rect) (native.Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.nextPreview++
	f.previews[f.nextPreview] = bounds
	f.record(fmt.Sprintf("create:%#x", f.nextPreview))
	return f.nextPreview, nil
}

// MovePreviewWindow implements native.PreviewHost.
func (f *FakeNative) MovePreviewWindow(hwnd native.Handle, bounds native.Rect) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.previews[hwnd]; !ok {
		return native.ErrInvalidHandle
	}

	f.previews[hwnd] = bounds
	return nil
}

// SetPreviewBorder implements native.PreviewHost.
func (f *FakeNative) SetPreviewBorder(hwnd native.Handle, color native.Color, visible bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.borders[hwnd] = visible
	return nil
}

// SetPreviewTitle implements native.PreviewHost.
func (f *FakeNative) SetPreviewTitle(hwnd native.Handle, title string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.previewTitles[hwnd] = title
	return nil
}

// DestroyWindow implements native.PreviewHost.
func (f *FakeNative) DestroyWindow(hwnd native.Handle) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.previews[hwnd]; !ok {
		return native.ErrInvalidHandle
	}

	delete(f.previews, hwnd)
	f.record(fmt.Sprintf("destroy:%#x", hwnd))
	return nil
}

// SetPointerHandler implements native.PreviewHost.
func (f *FakeNative) SetPointerHandler(fn func(native.PointerEvent)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pointer = fn
}

// PumpMessages implements native.PreviewHost.
func (f *FakeNative) PumpMessages() {}

// SendPointer delivers a pointer event to the registered handler.
func (f *FakeNative) SendPointer(ev native.PointerEvent) {
	f.mu.Lock()
	fn := f.pointer
	f.mu.Unlock()

	if fn != nil {
		fn(ev)
	}
}

// RegisterThumbnail implements native.Compositor.
func (f *FakeNative) RegisterThumbnail(dest, src native.Handle) (native.ThumbnailID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.registerErr != nil {
		return 0, f.registerErr
	}

	f.nextThumb++
	f.thumbnails[f.nextThumb] = native.ThumbnailProps{}
	f.record(fmt.Sprintf("register:%d", f.nextThumb))
	return f.nextThumb, nil
}

// UpdateThumbnail implements native.Compositor.
func (f *FakeNative) UpdateThumbnail(id native.ThumbnailID, props native.ThumbnailProps) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.thumbnails[id]; !ok {
		return native.ErrInvalidHandle
	}

	f.thumbnails[id] = props
	return nil
}

// UnregisterThumbnail implements native.Compositor.
func (f *FakeNative) UnregisterThumbnail(id native.ThumbnailID) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.thumbnails[id]; !ok {
		return native.ErrInvalidHandle
	}

	delete(f.thumbnails, id)
	f.record(fmt.Sprintf("unregister:%d", id))
	return nil
}

// Thumbnail returns the last properties pushed to a live surface.
func (f *FakeNative) Thumbnail(id native.ThumbnailID) (native.ThumbnailProps, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	p, ok := f.thumbnails[id]
	return p, ok
}

// LiveThumbnails returns the number of registered surfaces.
func (f *FakeNative) LiveThumbnails() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.thumbnails)
}

// Preview returns the bounds of a live preview window.
func (f *FakeNative) Preview(hwnd native.Handle) (native.Rect, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	r, ok := f.previews[hwnd]
	return r, ok
}

// BorderVisible reports the last border state set on a preview.
func (f *FakeNative) BorderVisible(hwnd native.Handle) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.borders[hwnd]
}

// PreviewTitle reports the last title overlay set on a preview.
func (f *FakeNative) PreviewTitle(hwnd native.Handle) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.previewTitles[hwnd]
}

// IsElevated implements native.API.
func (f *FakeNative) IsElevated() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.elevated
}

// CurrentThreadID implements native.HotkeyHost.
func (f *FakeNative) CurrentThreadID() uint32 { return 1 }

// CreateMessageWindow implements native.HotkeyHost.
func (f *FakeNative) CreateMessageWindow() (native.Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.createWindowFailures > 0 {
		f.createWindowFailures--
		return 0, fmt.Errorf("create message window: %w", native.ErrAccessDenied)
	}

	return 0xBEEF, nil
}

// RegisterHotKey implements native.HotkeyHost.
func (f *FakeNative) RegisterHotKey(hwnd native.Handle, id int, mods native.Modifiers, vk uint32) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.RegisterCalls++

	if f.taken[comboKey(mods, vk)] {
		return native.ErrHotkeyInUse
	}

	for _, reg := range f.hotkeys {
		if comboKey(reg.Modifiers, reg.Key) == comboKey(mods, vk) {
			return native.ErrHotkeyInUse
		}
	}

	f.hotkeys[id] = HotkeyRegistration{ID: id, Modifiers: mods, Key: vk}
	return nil
}

// UnregisterHotKey implements native.HotkeyHost.
func (f *FakeNative) UnregisterHotKey(hwnd native.Handle, id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.UnregisterCalls++

	if _, ok := f.hotkeys[id]; !ok {
		return native.ErrInvalidHandle
	}

	delete(f.hotkeys, id)
	return nil
}

// Hotkeys returns the currently registered hotkeys keyed by id.
func (f *FakeNative) Hotkeys() map[int]HotkeyRegistration {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make(map[int]HotkeyRegistration, len(f.hotkeys))
	for id, reg := range f.hotkeys {
		out[id] = reg
	}

	return out
}

// GetMessage implements native.HotkeyHost. It blocks until a message is posted and,
// like the OS, runs the keyboard hook for pressed keys while waiting.
func (f *FakeNative) GetMessage() (native.ThreadMessage, bool) {
	for {
		select {
		case msg := <-f.messages:
			return msg, msg.Message != native.MsgQuit
		case req := <-f.keys:
			f.mu.Lock()
			fn := f.hook
			f.mu.Unlock()

			swallowed := false
			if fn != nil {
				swallowed = fn(req.ev)
			}

			req.reply <- swallowed
		}
	}
}

// PostThreadMessage implements native.HotkeyHost.
func (f *FakeNative) PostThreadMessage(threadID uint32, msg uint32, wparam, lparam uintptr) error {
	select {
	case f.messages <- native.ThreadMessage{Message: msg, WParam: wparam, LParam: lparam}:
		return nil
	default:
		return fmt.Errorf("message queue full")
	}
}

// FireHotkey simulates the OS delivering a hotkey press for id.
func (f *FakeNative) FireHotkey(id int) {
	_ = f.PostThreadMessage(1, native.MsgHotkey, uintptr(id), 0)
}

// InstallKeyboardHook implements native.HotkeyHost.
func (f *FakeNative) InstallKeyboardHook(fn func(native.KeyEvent) bool) (func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.hook = fn
	return func() {
		f.mu.Lock()
		f.hook = nil
		f.mu.Unlock()
	}, nil
}

// PressKey delivers a key event to the hook on the message-loop thread and reports
// whether the hook swallowed it.
func (f *FakeNative) PressKey(vk uint32, down bool) bool {
	reply := make(chan bool, 1)
	f.keys <- keyRequest{ev: native.KeyEvent{VirtualKey: vk, Down: down}, reply: reply}
	return <-reply
}

// HookInstalled reports whether a keyboard hook is active.
func (f *FakeNative) HookInstalled() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hook != nil
}

// CallLog returns a copy of the ordered surface call log.
func (f *FakeNative) CallLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.Calls...)
}

// ForegroundCalls returns a copy of the SetForeground call log.
func (f *FakeNative) ForegroundCalls() []native.Handle {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]native.Handle(nil), f.SetForegroundCalls...)
}

var _ native.API = (*FakeNative)(nil)
