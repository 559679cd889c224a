//go:build windows

package windows

import (
	"golang.org/x/sys/windows"
)

// IsElevated reports whether the current process token is elevated. Mirroring a
// window owned by an elevated process requires the caller to be elevated too.
func IsElevated() bool {
	token := windows.GetCurrentProcessToken()
	return token.IsElevated()
}
