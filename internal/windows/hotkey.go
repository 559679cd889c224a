//go:build windows

package windows

import (
	"errors"
	"sync"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/Norgate-AV/evelens/internal/native"
)

// CurrentThreadID implements native.HotkeyHost.
func (b *Backend) CurrentThreadID() uint32 {
	return windows.GetCurrentThreadId()
}

// CreateMessageWindow implements native.HotkeyHost. The window is message-only and
// owns the hotkey registrations of the calling thread.
func (b *Backend) CreateMessageWindow() (native.Handle, error) {
	className, _ := windows.UTF16PtrFromString("STATIC")
	windowName, _ := windows.UTF16PtrFromString("evelens-hotkeys")
	hinst, _, _ := procGetModuleHandleW.Call(0)

	hwnd, _, err := procCreateWindowExW.Call(
		0,
		uintptr(unsafe.Pointer(className)),
		uintptr(unsafe.Pointer(windowName)),
		0,
		0, 0, 0, 0,
		hwndMessage,
		0,
		hinst,
		0,
	)
	if hwnd == 0 {
		return 0, classify("CreateWindowEx(HWND_MESSAGE)", err)
	}

	return native.Handle(hwnd), nil
}

// RegisterHotKey implements native.HotkeyHost.
func (b *Backend) RegisterHotKey(hwnd native.Handle, id int, mods native.Modifiers, vk uint32) error {
	ret, _, err := procRegisterHotKey.Call(uintptr(hwnd), uintptr(id), uintptr(mods), uintptr(vk))
	if ret == 0 {
		return classify("RegisterHotKey", err)
	}

	return nil
}

// UnregisterHotKey implements native.HotkeyHost.
func (b *Backend) UnregisterHotKey(hwnd native.Handle, id int) error {
	ret, _, err := procUnregisterHotKey.Call(uintptr(hwnd), uintptr(id))
	if ret == 0 {
		return classify("UnregisterHotKey", err)
	}

	return nil
}

// GetMessage implements native.HotkeyHost. It reports false on WM_QUIT and on error.
func (b *Backend) GetMessage() (native.ThreadMessage, bool) {
	var msg MSG

	ret, _, _ := procGetMessageW.Call(uintptr(unsafe.Pointer(&msg)), 0, 0, 0)
	if ret == 0 || int32(ret) == -1 {
		return native.ThreadMessage{Message: native.MsgQuit}, false
	}

	return native.ThreadMessage{Message: msg.Message, WParam: msg.WParam, LParam: msg.LParam}, true
}

// PostThreadMessage implements native.HotkeyHost.
func (b *Backend) PostThreadMessage(threadID uint32, msg uint32, wparam, lparam uintptr) error {
	ret, _, err := procPostThreadMessageW.Call(uintptr(threadID), uintptr(msg), wparam, lparam)
	if ret == 0 {
		return classify("PostThreadMessage", err)
	}

	return nil
}

// Low-level keyboard hooks are process-wide; only one capture runs at a time.
var (
	hookMu     sync.Mutex
	hookFn     func(native.KeyEvent) bool
	hookHandle uintptr
	hookProc   = windows.NewCallback(keyboardProc)
)

// errHookActive is returned when a keyboard hook is already installed.
var errHookActive = errors.New("keyboard hook already installed")

// InstallKeyboardHook implements native.HotkeyHost. fn runs on the installing thread
// while it waits in GetMessage; returning true swallows the key.
func (b *Backend) InstallKeyboardHook(fn func(native.KeyEvent) bool) (func(), error) {
	hookMu.Lock()
	defer hookMu.Unlock()

	if hookHandle != 0 {
		return nil, errHookActive
	}

	hinst, _, _ := procGetModuleHandleW.Call(0)
	h, _, err := procSetWindowsHookExW.Call(WH_KEYBOARD_LL, hookProc, hinst, 0)
	if h == 0 {
		return nil, classify("SetWindowsHookEx", err)
	}

	hookHandle = h
	hookFn = fn

	return func() {
		hookMu.Lock()
		defer hookMu.Unlock()

		if hookHandle == h {
			procUnhookWindowsHookEx.Call(h)
			hookHandle = 0
			hookFn = nil
		}
	}, nil
}

func keyboardProc(code, wparam, lparam uintptr) uintptr {
	if int32(code) >= 0 {
		hookMu.Lock()
		fn := hookFn
		hookMu.Unlock()

		if fn != nil {
			kb := (*KBDLLHOOKSTRUCT)(unsafe.Pointer(lparam))
			down := wparam == WM_KEYDOWN || wparam == WM_SYSKEYDOWN

			if fn(native.KeyEvent{VirtualKey: kb.VkCode, Down: down}) {
				return 1
			}
		}
	}

	ret, _, _ := procCallNextHookEx.Call(0, code, wparam, lparam)
	return ret
}
