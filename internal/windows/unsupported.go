//go:build !windows

// Package windows implements the native window access layer on Win32. Other platforms
// have no compositor thumbnail API.
package windows

import (
	"github.com/Norgate-AV/evelens/internal/logger"
	"github.com/Norgate-AV/evelens/internal/native"
)

// New reports native.ErrUnsupported outside Windows.
func New(log logger.LoggerInterface) (native.API, error) {
	return nil, native.ErrUnsupported
}

// IsElevated is always false outside Windows.
func IsElevated() bool {
	return false
}
