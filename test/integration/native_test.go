//go:build integration && windows

package integration

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Norgate-AV/evelens/internal/logger"
	"github.com/Norgate-AV/evelens/internal/native"
	"github.com/Norgate-AV/evelens/internal/windows"
)

// newBackend locks the test goroutine to its thread; window and hotkey calls are
// thread-affine.
func newBackend(t *testing.T) native.API {
	t.Helper()

	runtime.LockOSThread()
	t.Cleanup(runtime.UnlockOSThread)

	api, err := windows.New(logger.NewNoOpLogger())
	if errors.Is(err, native.ErrUnsupported) {
		t.Skip("Desktop composition is unavailable")
	}
	require.NoError(t, err)

	return api
}

// TestIntegration_Processes checks that the test binary finds itself by image name.
func TestIntegration_Processes(t *testing.T) {
	api := newBackend(t)

	exe, err := os.Executable()
	require.NoError(t, err)

	name := native.NormalizeProcessName(filepath.Base(exe))
	procs, err := api.Processes(name)
	require.NoError(t, err)

	found := false
	for _, p := range procs {
		if p.PID == uint32(os.Getpid()) {
			found = true
		}
	}

	assert.True(t, found, "Should list the current process")
	assert.True(t, api.ProcessAlive(uint32(os.Getpid())))
	assert.False(t, api.ProcessAlive(0xFFFFFFF0), "A pid that cannot exist is not alive")
}

// TestIntegration_PreviewAndThumbnail creates two previews and mirrors one into the other.
func TestIntegration_PreviewAndThumbnail(t *testing.T) {
	api := newBackend(t)

	dest, err := api.CreatePreviewWindow("evelens test dest", native.Rect{X: 50, Y: 50, Width: 320, Height: 180})
	require.NoError(t, err)
	defer func() { _ = api.DestroyWindow(dest) }()

	src, err := api.CreatePreviewWindow("evelens test src", native.Rect{X: 400, Y: 50, Width: 320, Height: 180})
	require.NoError(t, err)
	defer func() { _ = api.DestroyWindow(src) }()

	require.NoError(t, api.MovePreviewWindow(dest, native.Rect{X: 60, Y: 60, Width: 320, Height: 180}))
	require.NoError(t, api.SetPreviewBorder(dest, native.Color{R: 0xFF}, true))
	require.NoError(t, api.SetPreviewTitle(dest, "EVE - Test"))
	api.PumpMessages()

	assert.Equal(t, "evelens test dest", api.WindowTitle(dest), "Window text is read back through GetWindowTextW")

	rect, err := api.WindowRect(dest)
	require.NoError(t, err)
	assert.Equal(t, 60, rect.X)
	assert.Equal(t, 320, rect.Width)

	id, err := api.RegisterThumbnail(dest, src)
	require.NoError(t, err)

	err = api.UpdateThumbnail(id, native.ThumbnailProps{
		Destination: native.Rect{X: 2, Y: 2, Width: 316, Height: 176},
		Opacity:     0.8,
		Visible:     true,
		ClientOnly:  true,
	})
	assert.NoError(t, err)
	assert.NoError(t, api.UnregisterThumbnail(id))

	require.NoError(t, api.DestroyWindow(src))
	assert.ErrorIs(t, api.SetPreviewTitle(src, "gone"), native.ErrInvalidHandle)
}

// TestIntegration_Hotkeys registers an unlikely combination on a message window.
func TestIntegration_Hotkeys(t *testing.T) {
	api := newBackend(t)

	hwnd, err := api.CreateMessageWindow()
	require.NoError(t, err)
	defer func() { _ = api.DestroyWindow(hwnd) }()

	const id = 0xBEEF
	mods := native.ModCtrl | native.ModAlt | native.ModShift | native.ModWin | native.ModNoRepeat

	err = api.RegisterHotKey(hwnd, id, mods, 0x7B) // F12
	if errors.Is(err, native.ErrHotkeyInUse) {
		t.Skip("Test hotkey is taken on this desktop")
	}
	require.NoError(t, err)

	assert.ErrorIs(t, api.RegisterHotKey(hwnd, id+1, mods, 0x7B), native.ErrHotkeyInUse)
	assert.NoError(t, api.UnregisterHotKey(hwnd, id))
}
