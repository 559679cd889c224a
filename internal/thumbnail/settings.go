package thumbnail

import (
	"github.com/Norgate-AV/evelens/internal/native"
	"github.com/Norgate-AV/evelens/internal/registry"
)

// Size limits applied by user-facing size controls.
const (
	MinWidth  = 192
	MaxWidth  = 960
	MinHeight = 108
	MaxHeight = 540
)

// Defaults used when neither a per-window nor a profile default config exists.
const (
	DefaultX               = 100
	DefaultY               = 100
	DefaultWidth           = 400
	DefaultHeight          = 300
	DefaultOpacity         = 0.75
	DefaultBorderThickness = 3
	DefaultShowTitle       = true
)

// DefaultBorderColor is the focus ring color when none is configured.
var DefaultBorderColor = native.Color{R: 0xFF, G: 0xA5, B: 0x00}

// Position envelope for drag and move targets. Anything outside is treated as corrupt.
const (
	MinCoordinate = -10000
	MaxCoordinate = 31000
)

// FallbackPosition replaces positions outside the coordinate envelope.
var FallbackPosition = native.Point{X: 100, Y: 100}

// Settings is the persisted configuration of one preview.
type Settings struct {
	X               int
	Y               int
	Width           int
	Height          int
	Opacity         float64
	BorderColor     native.Color
	BorderThickness int
	ShowTitle       bool
}

// DefaultSettings returns the built-in preview settings.
func DefaultSettings() Settings {
	return Settings{
		X:               DefaultX,
		Y:               DefaultY,
		Width:           DefaultWidth,
		Height:          DefaultHeight,
		Opacity:         DefaultOpacity,
		BorderColor:     DefaultBorderColor,
		BorderThickness: DefaultBorderThickness,
		ShowTitle:       DefaultShowTitle,
	}
}

// Bounds returns the preview rectangle.
func (s Settings) Bounds() native.Rect {
	return native.Rect{X: s.X, Y: s.Y, Width: s.Width, Height: s.Height}
}

// Style returns the visual part of the settings.
func (s Settings) Style() registry.Style {
	return registry.Style{
		Opacity:         ClampOpacity(s.Opacity),
		BorderColor:     s.BorderColor,
		BorderThickness: max(s.BorderThickness, 0),
		ShowTitle:       s.ShowTitle,
	}
}

// SettingsOf captures the live state of a tracked window as settings.
func SettingsOf(w *registry.TrackedWindow) Settings {
	b := w.Bounds()
	st := w.Style()

	return Settings{
		X:               b.X,
		Y:               b.Y,
		Width:           b.Width,
		Height:          b.Height,
		Opacity:         st.Opacity,
		BorderColor:     st.BorderColor,
		BorderThickness: st.BorderThickness,
		ShowTitle:       st.ShowTitle,
	}
}

// ClampSize limits a requested preview size to the range offered by size controls.
func ClampSize(width, height int) (int, int) {
	return min(max(width, MinWidth), MaxWidth), min(max(height, MinHeight), MaxHeight)
}

// ClampOpacity limits opacity to [0, 1].
func ClampOpacity(o float64) float64 {
	return min(max(o, 0), 1)
}

// SanePosition returns p when both coordinates are inside the envelope and
// FallbackPosition otherwise.
func SanePosition(p native.Point) native.Point {
	if p.X < MinCoordinate || p.X > MaxCoordinate || p.Y < MinCoordinate || p.Y > MaxCoordinate {
		return FallbackPosition
	}

	return p
}
