// Package native defines the platform-neutral contract of the window access layer:
// the handle and geometry types shared by every subsystem, the sentinel errors that
// classify transient OS failures, and the API interface implemented by the Win32 backend
// and by test fakes.
package native

import (
	"errors"
	"strings"
)

// Handle is an OS window handle. Zero means "no window".
type Handle uintptr

// ThumbnailID identifies a registered mirrored surface. Zero means "none".
type ThumbnailID uintptr

// Sentinel errors. Backends wrap these so callers can classify failures with errors.Is.
var (
	// ErrProcessExited means the process went away between enumeration and query.
	ErrProcessExited = errors.New("process has exited")

	// ErrInvalidHandle means a window or process handle is no longer valid.
	ErrInvalidHandle = errors.New("invalid handle")

	// ErrAccessDenied means the OS refused the operation, typically because the target
	// runs at a higher integrity level.
	ErrAccessDenied = errors.New("access denied")

	// ErrHotkeyInUse means the key combination is owned by another registration.
	ErrHotkeyInUse = errors.New("hotkey already registered")

	// ErrUnsupported is returned by the backend on platforms without a window compositor API.
	ErrUnsupported = errors.New("not supported on this platform")
)

// IsTransient reports whether err is one of the recoverable per-item failures that
// polling loops log and skip.
func IsTransient(err error) bool {
	return errors.Is(err, ErrProcessExited) ||
		errors.Is(err, ErrInvalidHandle) ||
		errors.Is(err, ErrAccessDenied)
}

// Rect is a rectangle in screen coordinates.
type Rect struct {
	X      int
	Y      int
	Width  int
	Height int
}

// Right returns the exclusive right edge.
func (r Rect) Right() int { return r.X + r.Width }

// Bottom returns the exclusive bottom edge.
func (r Rect) Bottom() int { return r.Y + r.Height }

// Contains reports whether the point lies inside r.
func (r Rect) Contains(x, y int) bool {
	return x >= r.X && x < r.Right() && y >= r.Y && y < r.Bottom()
}

// Inset shrinks r by n on every side. Width and height never go below zero.
func (r Rect) Inset(n int) Rect {
	out := Rect{X: r.X + n, Y: r.Y + n, Width: r.Width - 2*n, Height: r.Height - 2*n}
	if out.Width < 0 {
		out.Width = 0
	}

	if out.Height < 0 {
		out.Height = 0
	}

	return out
}

// Point is a screen position.
type Point struct {
	X int
	Y int
}

// Add returns p translated by o.
func (p Point) Add(o Point) Point { return Point{X: p.X + o.X, Y: p.Y + o.Y} }

// Sub returns the offset from o to p.
func (p Point) Sub(o Point) Point { return Point{X: p.X - o.X, Y: p.Y - o.Y} }

// ProcessInfo describes one live process that matched a name query.
type ProcessInfo struct {
	PID        uint32
	Name       string
	MainWindow Handle
	Title      string

	// Err is set when the process matched by name but querying it failed, for
	// example because it exited between the snapshot and the window lookup.
	Err error
}

// ShowState mirrors the show command stored in a window placement.
type ShowState int

const (
	ShowNormal ShowState = iota
	ShowMinimized
	ShowMaximized
)

// Placement is the restored position and show state of a top-level window.
type Placement struct {
	State  ShowState
	Normal Rect
}

// Style holds the window style bits the core inspects.
type Style struct {
	Visible   bool
	Minimized bool
	Maximized bool
	Popup     bool
	ToolWin   bool
}

// ThumbnailProps is the full property set pushed to a mirrored surface.
type ThumbnailProps struct {
	// Destination is relative to the owning preview window's client area.
	Destination Rect
	Opacity     float64
	Visible     bool
	ClientOnly  bool
}

// Color is an opaque RGB color.
type Color struct {
	R, G, B uint8
}

// PointerButton identifies the mouse button of a preview pointer event.
type PointerButton int

const (
	ButtonLeft PointerButton = iota
	ButtonRight
)

// PointerAction is the gesture phase of a preview pointer event.
type PointerAction int

const (
	PointerDown PointerAction = iota
	PointerMove
	PointerUp
)

// PointerEvent is reported by preview windows for mouse input.
type PointerEvent struct {
	Window Handle
	Action PointerAction
	Button PointerButton
	Screen Point
}

// Modifiers is a bit set of hotkey modifier keys, using the Win32 MOD_* values.
type Modifiers uint32

const (
	ModAlt   Modifiers = 0x0001
	ModCtrl  Modifiers = 0x0002
	ModShift Modifiers = 0x0004
	ModWin   Modifiers = 0x0008

	// ModNoRepeat suppresses auto-repeat WM_HOTKEY messages while the key is held.
	ModNoRepeat Modifiers = 0x4000
)

// Has reports whether every bit of m2 is set in m.
func (m Modifiers) Has(m2 Modifiers) bool { return m&m2 == m2 }

// KeyEvent is delivered by the low-level keyboard filter.
type KeyEvent struct {
	VirtualKey uint32
	Down       bool
}

// ThreadMessage is a message received by the hotkey thread's loop.
type ThreadMessage struct {
	Message uint32
	WParam  uintptr
	LParam  uintptr
}

// Message identifiers the hotkey loop understands.
const (
	MsgQuit   uint32 = 0x0012
	MsgHotkey uint32 = 0x0312

	// MsgApp is the first private message id (WM_APP).
	MsgApp uint32 = 0x8000
)

// ProcessLister enumerates processes by executable name.
type ProcessLister interface {
	Processes(name string) ([]ProcessInfo, error)
	ProcessAlive(pid uint32) bool
}

// WindowQuerier reads window state.
type WindowQuerier interface {
	ForegroundWindow() Handle
	WindowProcessID(hwnd Handle) (uint32, error)
	WindowTitle(hwnd Handle) string
	WindowRect(hwnd Handle) (Rect, error)
	WindowStyle(hwnd Handle) (Style, error)
	Placement(hwnd Handle) (Placement, error)
	IsResponsive(hwnd Handle) bool
}

// WindowActivator moves input focus between source windows.
type WindowActivator interface {
	SetForeground(hwnd Handle) error
	SetFocus(hwnd Handle) error
	Restore(hwnd Handle) error
	SetPlacement(hwnd Handle, p Placement) error
}

// PreviewHost creates and positions the windows that host mirrored surfaces.
// All methods must be called on the UI-affinity thread.
type PreviewHost interface {
	CreatePreviewWindow(title string, bounds Rect) (Handle, error)
	MovePreviewWindow(hwnd Handle, bounds Rect) error
	SetPreviewBorder(hwnd Handle, color Color, visible bool) error
	SetPreviewTitle(hwnd Handle, title string) error
	DestroyWindow(hwnd Handle) error
	SetPointerHandler(fn func(PointerEvent))
	PumpMessages()
}

// Compositor manages mirrored surfaces between a source and a destination window.
type Compositor interface {
	RegisterThumbnail(dest, src Handle) (ThumbnailID, error)
	UpdateThumbnail(id ThumbnailID, props ThumbnailProps) error
	UnregisterThumbnail(id ThumbnailID) error
}

// HotkeyHost exposes the primitives the hotkey thread needs. Every method except
// PostThreadMessage must run on the thread that called CreateMessageWindow.
type HotkeyHost interface {
	CurrentThreadID() uint32
	CreateMessageWindow() (Handle, error)
	RegisterHotKey(hwnd Handle, id int, mods Modifiers, vk uint32) error
	UnregisterHotKey(hwnd Handle, id int) error
	GetMessage() (ThreadMessage, bool)
	PostThreadMessage(threadID uint32, msg uint32, wparam, lparam uintptr) error
	InstallKeyboardHook(fn func(KeyEvent) bool) (func(), error)
}

// API is the complete native window access layer.
type API interface {
	ProcessLister
	WindowQuerier
	WindowActivator
	PreviewHost
	Compositor
	HotkeyHost

	IsElevated() bool
}

// NormalizeProcessName strips a trailing ".exe" and lowercases the name so watch-list
// entries like "ExeFile.exe" and "exefile" compare equal.
func NormalizeProcessName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	return strings.TrimSuffix(name, ".exe")
}
