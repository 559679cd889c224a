//go:build windows

package windows

import (
	"fmt"
	"sync"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/Norgate-AV/evelens/internal/native"
)

const previewClassName = "EvelensPreview"

// preview is the paint state of one preview window.
type preview struct {
	border        native.Color
	borderVisible bool
	title         string
}

type previewTable struct {
	mu      sync.Mutex
	entries map[native.Handle]*preview
	pointer func(native.PointerEvent)
}

func newPreviewTable() *previewTable {
	return &previewTable{entries: make(map[native.Handle]*preview)}
}

func (t *previewTable) get(hwnd native.Handle) (preview, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	p, ok := t.entries[hwnd]
	if !ok {
		return preview{}, false
	}

	return *p, true
}

func (t *previewTable) update(hwnd native.Handle, fn func(p *preview)) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	p, ok := t.entries[hwnd]
	if ok {
		fn(p)
	}

	return ok
}

// The window procedure is process-wide, so the table it serves is too.
var (
	activeTable   *previewTable
	activeTableMu sync.Mutex
	registerOnce  sync.Once
	registerErr   error
	wndProc       = windows.NewCallback(previewWndProc)
)

func currentTable() *previewTable {
	activeTableMu.Lock()
	defer activeTableMu.Unlock()
	return activeTable
}

func registerPreviewClass() error {
	registerOnce.Do(func() {
		hinst, _, _ := procGetModuleHandleW.Call(0)
		cursor, _, _ := procLoadCursorW.Call(0, IDC_ARROW)

		name, err := windows.UTF16PtrFromString(previewClassName)
		if err != nil {
			registerErr = err
			return
		}

		wc := WNDCLASSEXW{
			CbSize:        uint32(unsafe.Sizeof(WNDCLASSEXW{})),
			LpfnWndProc:   wndProc,
			HInstance:     hinst,
			HCursor:       cursor,
			LpszClassName: name,
		}

		ret, _, callErr := procRegisterClassExW.Call(uintptr(unsafe.Pointer(&wc)))
		if ret == 0 {
			registerErr = fmt.Errorf("RegisterClassEx: %w", callErr)
		}
	})

	return registerErr
}

// CreatePreviewWindow implements native.PreviewHost. The window is a topmost tool
// window that never takes activation.
func (b *Backend) CreatePreviewWindow(title string, bounds native.Rect) (native.Handle, error) {
	if err := registerPreviewClass(); err != nil {
		return 0, err
	}

	activeTableMu.Lock()
	activeTable = b.previews
	activeTableMu.Unlock()

	className, _ := windows.UTF16PtrFromString(previewClassName)
	windowName, err := windows.UTF16PtrFromString(title)
	if err != nil {
		return 0, err
	}

	hinst, _, _ := procGetModuleHandleW.Call(0)

	hwnd, _, callErr := procCreateWindowExW.Call(
		WS_EX_TOPMOST|WS_EX_TOOLWINDOW|WS_EX_NOACTIVATE,
		uintptr(unsafe.Pointer(className)),
		uintptr(unsafe.Pointer(windowName)),
		WS_POPUP|WS_VISIBLE,
		uintptr(bounds.X),
		uintptr(bounds.Y),
		uintptr(bounds.Width),
		uintptr(bounds.Height),
		0,
		0,
		hinst,
		0,
	)
	if hwnd == 0 {
		return 0, classify("CreateWindowEx", callErr)
	}

	b.previews.mu.Lock()
	b.previews.entries[native.Handle(hwnd)] = &preview{}
	b.previews.mu.Unlock()

	return native.Handle(hwnd), nil
}

// MovePreviewWindow implements native.PreviewHost.
func (b *Backend) MovePreviewWindow(hwnd native.Handle, bounds native.Rect) error {
	ret, _, err := procSetWindowPos.Call(
		uintptr(hwnd),
		hwndTopmost,
		uintptr(bounds.X),
		uintptr(bounds.Y),
		uintptr(bounds.Width),
		uintptr(bounds.Height),
		SWP_NOACTIVATE,
	)
	if ret == 0 {
		return classify("SetWindowPos", err)
	}

	return nil
}

// SetPreviewBorder implements native.PreviewHost.
func (b *Backend) SetPreviewBorder(hwnd native.Handle, color native.Color, visible bool) error {
	changed := false
	ok := b.previews.update(hwnd, func(p *preview) {
		changed = p.border != color || p.borderVisible != visible
		p.border = color
		p.borderVisible = visible
	})
	if !ok {
		return native.ErrInvalidHandle
	}

	if changed {
		procInvalidateRect.Call(uintptr(hwnd), 0, 1)
	}

	return nil
}

// SetPreviewTitle implements native.PreviewHost. An empty title hides the overlay.
func (b *Backend) SetPreviewTitle(hwnd native.Handle, title string) error {
	changed := false
	ok := b.previews.update(hwnd, func(p *preview) {
		changed = p.title != title
		p.title = title
	})
	if !ok {
		return native.ErrInvalidHandle
	}

	if changed {
		procInvalidateRect.Call(uintptr(hwnd), 0, 1)
	}

	return nil
}

// DestroyWindow implements native.PreviewHost.
func (b *Backend) DestroyWindow(hwnd native.Handle) error {
	b.previews.mu.Lock()
	delete(b.previews.entries, hwnd)
	b.previews.mu.Unlock()

	ret, _, err := procDestroyWindow.Call(uintptr(hwnd))
	if ret == 0 {
		return classify("DestroyWindow", err)
	}

	return nil
}

// SetPointerHandler implements native.PreviewHost.
func (b *Backend) SetPointerHandler(fn func(native.PointerEvent)) {
	b.previews.mu.Lock()
	b.previews.pointer = fn
	b.previews.mu.Unlock()
}

// PumpMessages implements native.PreviewHost. It dispatches every queued message for
// windows owned by the calling thread and returns.
func (b *Backend) PumpMessages() {
	var msg MSG
	for {
		ret, _, _ := procPeekMessageW.Call(uintptr(unsafe.Pointer(&msg)), 0, 0, 0, PM_REMOVE)
		if ret == 0 {
			return
		}

		procTranslateMessage.Call(uintptr(unsafe.Pointer(&msg)))
		procDispatchMessageW.Call(uintptr(unsafe.Pointer(&msg)))
	}
}

func previewWndProc(hwnd, msg, wparam, lparam uintptr) uintptr {
	t := currentTable()
	if t == nil {
		ret, _, _ := procDefWindowProcW.Call(hwnd, msg, wparam, lparam)
		return ret
	}

	switch msg {
	case WM_MOUSEACTIVATE:
		return MA_NOACTIVATE

	case WM_ERASEBKGND:
		return 1

	case WM_PAINT:
		paintPreview(t, native.Handle(hwnd))
		return 0

	case WM_LBUTTONDOWN, WM_RBUTTONDOWN:
		procSetCapture.Call(hwnd)
		t.dispatch(native.Handle(hwnd), native.PointerDown, buttonOf(msg))
		return 0

	case WM_MOUSEMOVE:
		button := native.ButtonLeft
		if wparam&0x0002 != 0 { // MK_RBUTTON
			button = native.ButtonRight
		}

		t.dispatch(native.Handle(hwnd), native.PointerMove, button)
		return 0

	case WM_LBUTTONUP, WM_RBUTTONUP:
		procReleaseCapture.Call()
		t.dispatch(native.Handle(hwnd), native.PointerUp, buttonOf(msg))
		return 0
	}

	ret, _, _ := procDefWindowProcW.Call(hwnd, msg, wparam, lparam)
	return ret
}

func buttonOf(msg uintptr) native.PointerButton {
	if msg == WM_RBUTTONDOWN || msg == WM_RBUTTONUP {
		return native.ButtonRight
	}

	return native.ButtonLeft
}

func (t *previewTable) dispatch(hwnd native.Handle, action native.PointerAction, button native.PointerButton) {
	t.mu.Lock()
	fn := t.pointer
	t.mu.Unlock()

	if fn == nil {
		return
	}

	var pt POINT
	procGetCursorPos.Call(uintptr(unsafe.Pointer(&pt)))

	fn(native.PointerEvent{
		Window: hwnd,
		Action: action,
		Button: button,
		Screen: native.Point{X: int(pt.X), Y: int(pt.Y)},
	})
}

// paintPreview fills the client area with the border color when the border is shown
// and black otherwise. The DWM surface covers everything except the border ring.
func paintPreview(t *previewTable, hwnd native.Handle) {
	p, _ := t.get(hwnd)

	var ps PAINTSTRUCT
	hdc, _, _ := procBeginPaint.Call(uintptr(hwnd), uintptr(unsafe.Pointer(&ps)))
	if hdc == 0 {
		return
	}
	defer procEndPaint.Call(uintptr(hwnd), uintptr(unsafe.Pointer(&ps)))

	var client RECT
	procGetClientRect.Call(uintptr(hwnd), uintptr(unsafe.Pointer(&client)))

	var fill uintptr
	if p.borderVisible {
		fill = colorRef(p.border)
	}

	brush, _, _ := procCreateSolidBrush.Call(fill)
	procFillRect.Call(hdc, uintptr(unsafe.Pointer(&client)), brush)
	procDeleteObject.Call(brush)

	if p.title == "" {
		return
	}

	text, err := windows.UTF16FromString(p.title)
	if err != nil {
		return
	}

	label := RECT{Left: client.Left + 6, Top: client.Top + 4, Right: client.Right - 6, Bottom: client.Top + 24}
	procSetBkMode.Call(hdc, TRANSPARENT)
	procSetTextColor.Call(hdc, colorRef(native.Color{R: 0xFF, G: 0xFF, B: 0xFF}))
	procDrawTextW.Call(
		hdc,
		uintptr(unsafe.Pointer(&text[0])),
		uintptr(len(text)-1),
		uintptr(unsafe.Pointer(&label)),
		DT_SINGLELINE|DT_NOPREFIX|DT_END_ELLIPSIS,
	)
}

func colorRef(c native.Color) uintptr {
	return uintptr(c.R) | uintptr(c.G)<<8 | uintptr(c.B)<<16
}
