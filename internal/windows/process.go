//go:build windows

package windows

import (
	"fmt"
	"sync"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/Norgate-AV/evelens/internal/native"
)

// Processes implements native.ProcessLister. Each matching process is paired with its
// first visible, unowned top-level window.
func (b *Backend) Processes(name string) ([]native.ProcessInfo, error) {
	want := native.NormalizeProcessName(name)

	snapshot, err := windows.CreateToolhelp32Snapshot(windows.TH32CS_SNAPPROCESS, 0)
	if err != nil {
		return nil, fmt.Errorf("CreateToolhelp32Snapshot: %w", err)
	}
	defer windows.CloseHandle(snapshot)

	var entry windows.ProcessEntry32
	entry.Size = uint32(unsafe.Sizeof(entry))

	var matches []native.ProcessInfo
	for err = windows.Process32First(snapshot, &entry); err == nil; err = windows.Process32Next(snapshot, &entry) {
		exe := windows.UTF16ToString(entry.ExeFile[:])
		if native.NormalizeProcessName(exe) != want {
			continue
		}

		matches = append(matches, native.ProcessInfo{PID: entry.ProcessID, Name: exe})
	}

	if len(matches) == 0 {
		return nil, nil
	}

	windowsByPID := topLevelWindows()
	for i := range matches {
		p := &matches[i]

		hwnd, ok := windowsByPID[p.PID]
		if !ok {
			if !b.ProcessAlive(p.PID) {
				p.Err = native.ErrProcessExited
			}

			continue
		}

		title, err := windowText(hwnd)
		if err != nil {
			p.Err = err
			continue
		}

		p.MainWindow = hwnd
		p.Title = title
	}

	return matches, nil
}

// ProcessAlive implements native.ProcessLister.
func (b *Backend) ProcessAlive(pid uint32) bool {
	h, err := windows.OpenProcess(windows.PROCESS_QUERY_LIMITED_INFORMATION, false, pid)
	if err != nil {
		// A process we may not open is still running.
		return err == windows.ERROR_ACCESS_DENIED
	}
	defer windows.CloseHandle(h)

	var code uint32
	if err := windows.GetExitCodeProcess(h, &code); err != nil {
		return false
	}

	return code == STILL_ACTIVE
}

var (
	enumMu     sync.Mutex
	enumResult map[uint32]native.Handle
	enumProc   = windows.NewCallback(func(hwnd, _ uintptr) uintptr {
		h := windows.HWND(hwnd)
		if !windows.IsWindowVisible(h) || ownerOf(native.Handle(hwnd)) != 0 {
			return 1
		}

		var pid uint32
		if _, err := windows.GetWindowThreadProcessId(h, &pid); err != nil || pid == 0 {
			return 1
		}

		if _, seen := enumResult[pid]; !seen {
			enumResult[pid] = native.Handle(hwnd)
		}

		return 1
	})
)

// topLevelWindows maps each pid to its first visible, unowned top-level window in
// z-order.
func topLevelWindows() map[uint32]native.Handle {
	enumMu.Lock()
	defer enumMu.Unlock()

	enumResult = make(map[uint32]native.Handle)
	_ = windows.EnumWindows(enumProc, nil)

	out := enumResult
	enumResult = nil
	return out
}

func ownerOf(hwnd native.Handle) native.Handle {
	r, _, _ := procGetWindow.Call(uintptr(hwnd), GW_OWNER)
	return native.Handle(r)
}
