//go:build windows

package windows

import (
	"golang.org/x/sys/windows"
)

var (
	user32   = windows.NewLazySystemDLL("user32.dll")
	kernel32 = windows.NewLazySystemDLL("kernel32.dll")
	gdi32    = windows.NewLazySystemDLL("gdi32.dll")
	dwmapi   = windows.NewLazySystemDLL("dwmapi.dll")

	procGetWindowTextLengthW = user32.NewProc("GetWindowTextLengthW")
	procGetWindowTextW       = user32.NewProc("GetWindowTextW")
	procGetWindow            = user32.NewProc("GetWindow")
	procGetWindowLongPtrW    = user32.NewProc("GetWindowLongPtrW")
	procGetWindowRect        = user32.NewProc("GetWindowRect")
	procGetClientRect        = user32.NewProc("GetClientRect")
	procGetWindowPlacement   = user32.NewProc("GetWindowPlacement")
	procSetWindowPlacement   = user32.NewProc("SetWindowPlacement")
	procIsIconic             = user32.NewProc("IsIconic")
	procIsZoomed             = user32.NewProc("IsZoomed")
	procSendMessageTimeoutW  = user32.NewProc("SendMessageTimeoutW")
	procSetForegroundWindow  = user32.NewProc("SetForegroundWindow")
	procSetFocus             = user32.NewProc("SetFocus")
	procShowWindow           = user32.NewProc("ShowWindow")
	procRegisterClassExW     = user32.NewProc("RegisterClassExW")
	procCreateWindowExW      = user32.NewProc("CreateWindowExW")
	procDestroyWindow        = user32.NewProc("DestroyWindow")
	procDefWindowProcW       = user32.NewProc("DefWindowProcW")
	procSetWindowPos         = user32.NewProc("SetWindowPos")
	procSetWindowTextW       = user32.NewProc("SetWindowTextW")
	procInvalidateRect       = user32.NewProc("InvalidateRect")
	procBeginPaint           = user32.NewProc("BeginPaint")
	procEndPaint             = user32.NewProc("EndPaint")
	procFillRect             = user32.NewProc("FillRect")
	procDrawTextW            = user32.NewProc("DrawTextW")
	procLoadCursorW          = user32.NewProc("LoadCursorW")
	procGetCursorPos         = user32.NewProc("GetCursorPos")
	procSetCapture           = user32.NewProc("SetCapture")
	procReleaseCapture       = user32.NewProc("ReleaseCapture")
	procPeekMessageW         = user32.NewProc("PeekMessageW")
	procGetMessageW          = user32.NewProc("GetMessageW")
	procTranslateMessage     = user32.NewProc("TranslateMessage")
	procDispatchMessageW     = user32.NewProc("DispatchMessageW")
	procPostThreadMessageW   = user32.NewProc("PostThreadMessageW")
	procRegisterHotKey       = user32.NewProc("RegisterHotKey")
	procUnregisterHotKey     = user32.NewProc("UnregisterHotKey")
	procSetWindowsHookExW    = user32.NewProc("SetWindowsHookExW")
	procUnhookWindowsHookEx  = user32.NewProc("UnhookWindowsHookEx")
	procCallNextHookEx       = user32.NewProc("CallNextHookEx")
	procGetModuleHandleW     = kernel32.NewProc("GetModuleHandleW")
	procCreateSolidBrush     = gdi32.NewProc("CreateSolidBrush")
	procDeleteObject         = gdi32.NewProc("DeleteObject")
	procSetBkMode            = gdi32.NewProc("SetBkMode")
	procSetTextColor         = gdi32.NewProc("SetTextColor")
	procDwmRegisterThumbnail = dwmapi.NewProc("DwmRegisterThumbnail")
	procDwmUnregisterThumb   = dwmapi.NewProc("DwmUnregisterThumbnail")
	procDwmUpdateThumbProps  = dwmapi.NewProc("DwmUpdateThumbnailProperties")
)

const (
	WM_NULL          = 0x0000
	WM_DESTROY       = 0x0002
	WM_PAINT         = 0x000F
	WM_ERASEBKGND    = 0x0014
	WM_MOUSEACTIVATE = 0x0021
	WM_KEYDOWN       = 0x0100
	WM_KEYUP         = 0x0101
	WM_SYSKEYDOWN    = 0x0104
	WM_SYSKEYUP      = 0x0105
	WM_MOUSEMOVE     = 0x0200
	WM_LBUTTONDOWN   = 0x0201
	WM_LBUTTONUP     = 0x0202
	WM_RBUTTONDOWN   = 0x0204
	WM_RBUTTONUP     = 0x0205

	MA_NOACTIVATE = 3

	SMTO_ABORTIFHUNG = 0x0002
	PM_REMOVE        = 0x0001

	SW_RESTORE = 9

	SW_SHOWNORMAL    = 1
	SW_SHOWMINIMIZED = 2
	SW_SHOWMAXIMIZED = 3

	GW_OWNER = 4

	WS_POPUP         = 0x80000000
	WS_VISIBLE       = 0x10000000
	WS_MINIMIZE      = 0x20000000
	WS_MAXIMIZE      = 0x01000000
	WS_EX_TOPMOST    = 0x00000008
	WS_EX_TOOLWINDOW = 0x00000080
	WS_EX_NOACTIVATE = 0x08000000

	SWP_NOACTIVATE = 0x0010

	IDC_ARROW = 32512

	TRANSPARENT = 1

	DT_SINGLELINE   = 0x0020
	DT_NOPREFIX     = 0x0800
	DT_END_ELLIPSIS = 0x8000

	WH_KEYBOARD_LL = 13

	DWM_TNP_RECTDESTINATION      = 0x00000001
	DWM_TNP_OPACITY              = 0x00000004
	DWM_TNP_VISIBLE              = 0x00000008
	DWM_TNP_SOURCECLIENTAREAONLY = 0x00000010

	STILL_ACTIVE = 259
)

// Negative window indices and pseudo handles, converted at runtime.
var (
	gwlStyle    = negativeToUintptr(-16)
	hwndTopmost = negativeToUintptr(-1)
	hwndMessage = negativeToUintptr(-3)
)

func negativeToUintptr(v int) uintptr {
	return uintptr(v)
}

// Win32 error codes x/sys does not name.
const (
	errInvalidWindowHandle     windows.Errno = 1400
	errHotkeyAlreadyRegistered windows.Errno = 1409
)

// HRESULT values returned by dwmapi.
const (
	hresultAccessDenied uint32 = 0x80070005
	hresultInvalidArg   uint32 = 0x80070057
)

type RECT struct {
	Left   int32
	Top    int32
	Right  int32
	Bottom int32
}

type POINT struct {
	X int32
	Y int32
}

type MSG struct {
	HWnd    uintptr
	Message uint32
	WParam  uintptr
	LParam  uintptr
	Time    uint32
	Pt      POINT
}

type WINDOWPLACEMENT struct {
	Length           uint32
	Flags            uint32
	ShowCmd          uint32
	PtMinPosition    POINT
	PtMaxPosition    POINT
	RcNormalPosition RECT
}

type WNDCLASSEXW struct {
	CbSize        uint32
	Style         uint32
	LpfnWndProc   uintptr
	CbClsExtra    int32
	CbWndExtra    int32
	HInstance     uintptr
	HIcon         uintptr
	HCursor       uintptr
	HbrBackground uintptr
	LpszMenuName  *uint16
	LpszClassName *uint16
	HIconSm       uintptr
}

type PAINTSTRUCT struct {
	Hdc         uintptr
	FErase      int32
	RcPaint     RECT
	FRestore    int32
	FIncUpdate  int32
	RgbReserved [32]byte
}

type KBDLLHOOKSTRUCT struct {
	VkCode      uint32
	ScanCode    uint32
	Flags       uint32
	Time        uint32
	DwExtraInfo uintptr
}

type DWM_THUMBNAIL_PROPERTIES struct {
	DwFlags               uint32
	RcDestination         RECT
	RcSource              RECT
	Opacity               uint8
	FVisible              int32
	FSourceClientAreaOnly int32
}
