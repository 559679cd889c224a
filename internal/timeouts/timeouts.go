// Package timeouts defines timing constants used throughout the application.
// These values have been tuned for responsive previews without measurable CPU cost
// from the polling loops.
package timeouts

import "time"

const (
	// Polling Intervals

	// ScanInterval is how often the discovery scanner reconciles tracked windows
	// against live processes.
	ScanInterval = 2 * time.Second

	// FocusPollInterval is how often the focus tracker samples the foreground window.
	FocusPollInterval = 100 * time.Millisecond

	// UIPumpInterval is how often the UI-affinity thread drains native window
	// messages for preview windows when no work is queued.
	UIPumpInterval = 15 * time.Millisecond

	// Hotkey Thread

	// HotkeyThreadStartTimeout bounds how long Start waits for the hotkey thread to
	// create its message window.
	HotkeyThreadStartTimeout = 2 * time.Second

	// HotkeyThreadJoinTimeout bounds how long shutdown waits for the hotkey thread
	// to leave its message loop after WM_QUIT was posted.
	HotkeyThreadJoinTimeout = 2 * time.Second

	// HotkeyWindowRetryDelay is the pause before the single retry of creating the
	// hotkey thread's message window.
	HotkeyWindowRetryDelay = 250 * time.Millisecond

	// Window Interaction

	// ResponsiveTimeout is how long a WM_NULL probe may wait before a window is
	// considered hung.
	ResponsiveTimeout = 1 * time.Second

	// UICallTimeout bounds synchronous calls marshaled onto the UI-affinity thread.
	UICallTimeout = 5 * time.Second

	// ConfigReloadDebounce coalesces bursts of file change events from editors that
	// write a config file in several steps.
	ConfigReloadDebounce = 250 * time.Millisecond
)
