//go:build windows

// Package windows implements the native window access layer on Win32: process and
// window queries, DWM thumbnails, preview windows and the hotkey thread primitives.
package windows

import (
	"errors"
	"fmt"

	"golang.org/x/sys/windows"

	"github.com/Norgate-AV/evelens/internal/logger"
	"github.com/Norgate-AV/evelens/internal/native"
)

// Backend implements native.API with user32, kernel32, gdi32 and dwmapi.
type Backend struct {
	log      logger.LoggerInterface
	previews *previewTable
}

// New returns the Win32 backend.
func New(log logger.LoggerInterface) (native.API, error) {
	if err := dwmapi.Load(); err != nil {
		return nil, fmt.Errorf("load dwmapi: %w", err)
	}

	return &Backend{log: log, previews: newPreviewTable()}, nil
}

// IsElevated implements native.API.
func (b *Backend) IsElevated() bool {
	return IsElevated()
}

// classify wraps a Win32 error with the matching native sentinel.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}

	var errno windows.Errno
	if errors.As(err, &errno) {
		switch errno {
		case 0:
			return fmt.Errorf("%s failed", op)
		case windows.ERROR_INVALID_HANDLE, errInvalidWindowHandle:
			return fmt.Errorf("%s: %w: %v", op, native.ErrInvalidHandle, err)
		case windows.ERROR_ACCESS_DENIED:
			return fmt.Errorf("%s: %w: %v", op, native.ErrAccessDenied, err)
		case windows.ERROR_INVALID_PARAMETER:
			return fmt.Errorf("%s: %w: %v", op, native.ErrProcessExited, err)
		case errHotkeyAlreadyRegistered:
			return fmt.Errorf("%s: %w", op, native.ErrHotkeyInUse)
		}
	}

	return fmt.Errorf("%s: %w", op, err)
}

// classifyHRESULT maps a dwmapi result code.
func classifyHRESULT(op string, hr uintptr) error {
	switch uint32(hr) {
	case 0:
		return nil
	case hresultAccessDenied:
		return fmt.Errorf("%s: %w", op, native.ErrAccessDenied)
	case hresultInvalidArg:
		return fmt.Errorf("%s: %w", op, native.ErrInvalidHandle)
	}

	return fmt.Errorf("%s failed: HRESULT %#x", op, uint32(hr))
}

var _ native.API = (*Backend)(nil)
