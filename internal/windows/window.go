//go:build windows

package windows

import (
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/Norgate-AV/evelens/internal/native"
	"github.com/Norgate-AV/evelens/internal/timeouts"
)

// windowText returns the title of hwnd. An empty title is not an error.
func windowText(hwnd native.Handle) (string, error) {
	n, _, err := procGetWindowTextLengthW.Call(uintptr(hwnd))
	if n == 0 {
		if errno, ok := err.(windows.Errno); ok && errno != 0 {
			return "", classify("GetWindowTextLength", err)
		}

		return "", nil
	}

	buf := make([]uint16, n+1)
	got, _, err := procGetWindowTextW.Call(uintptr(hwnd), uintptr(unsafe.Pointer(&buf[0])), uintptr(len(buf)))
	if got == 0 {
		if errno, ok := err.(windows.Errno); ok && errno != 0 {
			return "", classify("GetWindowText", err)
		}

		return "", nil
	}

	return windows.UTF16ToString(buf[:got]), nil
}

// ForegroundWindow implements native.WindowQuerier.
func (b *Backend) ForegroundWindow() native.Handle {
	return native.Handle(windows.GetForegroundWindow())
}

// WindowProcessID implements native.WindowQuerier.
func (b *Backend) WindowProcessID(hwnd native.Handle) (uint32, error) {
	var pid uint32
	if _, err := windows.GetWindowThreadProcessId(windows.HWND(hwnd), &pid); err != nil {
		return 0, classify("GetWindowThreadProcessId", err)
	}

	return pid, nil
}

// WindowTitle implements native.WindowQuerier.
func (b *Backend) WindowTitle(hwnd native.Handle) string {
	title, _ := windowText(hwnd)
	return title
}

// WindowRect implements native.WindowQuerier.
func (b *Backend) WindowRect(hwnd native.Handle) (native.Rect, error) {
	var r RECT
	ret, _, err := procGetWindowRect.Call(uintptr(hwnd), uintptr(unsafe.Pointer(&r)))
	if ret == 0 {
		return native.Rect{}, classify("GetWindowRect", err)
	}

	return fromRECT(r), nil
}

// WindowStyle implements native.WindowQuerier.
func (b *Backend) WindowStyle(hwnd native.Handle) (native.Style, error) {
	style, _, err := procGetWindowLongPtrW.Call(uintptr(hwnd), gwlStyle)
	if style == 0 {
		if errno, ok := err.(windows.Errno); ok && errno != 0 {
			return native.Style{}, classify("GetWindowLongPtr", err)
		}
	}

	iconic, _, _ := procIsIconic.Call(uintptr(hwnd))
	zoomed, _, _ := procIsZoomed.Call(uintptr(hwnd))

	return native.Style{
		Visible:   style&WS_VISIBLE != 0,
		Minimized: iconic != 0 || style&WS_MINIMIZE != 0,
		Maximized: zoomed != 0 || style&WS_MAXIMIZE != 0,
		Popup:     style&WS_POPUP != 0,
	}, nil
}

// Placement implements native.WindowQuerier.
func (b *Backend) Placement(hwnd native.Handle) (native.Placement, error) {
	wp := WINDOWPLACEMENT{Length: uint32(unsafe.Sizeof(WINDOWPLACEMENT{}))}

	ret, _, err := procGetWindowPlacement.Call(uintptr(hwnd), uintptr(unsafe.Pointer(&wp)))
	if ret == 0 {
		return native.Placement{}, classify("GetWindowPlacement", err)
	}

	state := native.ShowNormal
	switch wp.ShowCmd {
	case SW_SHOWMINIMIZED:
		state = native.ShowMinimized
	case SW_SHOWMAXIMIZED:
		state = native.ShowMaximized
	}

	return native.Placement{State: state, Normal: fromRECT(wp.RcNormalPosition)}, nil
}

// IsResponsive implements native.WindowQuerier. A window that does not answer a null
// message within the timeout is treated as hung.
func (b *Backend) IsResponsive(hwnd native.Handle) bool {
	var result uintptr
	ret, _, _ := procSendMessageTimeoutW.Call(
		uintptr(hwnd),
		WM_NULL,
		0,
		0,
		SMTO_ABORTIFHUNG,
		uintptr(timeouts.ResponsiveTimeout.Milliseconds()),
		uintptr(unsafe.Pointer(&result)),
	)

	return ret != 0
}

// SetForeground implements native.WindowActivator.
func (b *Backend) SetForeground(hwnd native.Handle) error {
	ret, _, err := procSetForegroundWindow.Call(uintptr(hwnd))
	if ret == 0 {
		return classify("SetForegroundWindow", err)
	}

	return nil
}

// SetFocus implements native.WindowActivator. It only succeeds for windows attached
// to the caller's input queue, so failures are expected and reported as-is.
func (b *Backend) SetFocus(hwnd native.Handle) error {
	ret, _, err := procSetFocus.Call(uintptr(hwnd))
	if ret == 0 {
		return classify("SetFocus", err)
	}

	return nil
}

// Restore implements native.WindowActivator.
func (b *Backend) Restore(hwnd native.Handle) error {
	procShowWindow.Call(uintptr(hwnd), SW_RESTORE)
	return nil
}

// SetPlacement implements native.WindowActivator.
func (b *Backend) SetPlacement(hwnd native.Handle, p native.Placement) error {
	wp := WINDOWPLACEMENT{
		Length:           uint32(unsafe.Sizeof(WINDOWPLACEMENT{})),
		ShowCmd:          SW_SHOWNORMAL,
		RcNormalPosition: toRECT(p.Normal),
	}

	switch p.State {
	case native.ShowMinimized:
		wp.ShowCmd = SW_SHOWMINIMIZED
	case native.ShowMaximized:
		wp.ShowCmd = SW_SHOWMAXIMIZED
	}

	ret, _, err := procSetWindowPlacement.Call(uintptr(hwnd), uintptr(unsafe.Pointer(&wp)))
	if ret == 0 {
		return classify("SetWindowPlacement", err)
	}

	return nil
}

func fromRECT(r RECT) native.Rect {
	return native.Rect{
		X:      int(r.Left),
		Y:      int(r.Top),
		Width:  int(r.Right - r.Left),
		Height: int(r.Bottom - r.Top),
	}
}

func toRECT(r native.Rect) RECT {
	return RECT{
		Left:   int32(r.X),
		Top:    int32(r.Y),
		Right:  int32(r.Right()),
		Bottom: int32(r.Bottom()),
	}
}
