// Package thumbnail owns the mirrored surface of each tracked window: it creates the
// hosting preview window, registers the compositor relationship, keeps the surface in
// sync with bounds, opacity and focus border, and tears everything down again.
//
// Manager methods touch native windows and must run on the UI-affinity thread.
package thumbnail

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/Norgate-AV/evelens/internal/logger"
	"github.com/Norgate-AV/evelens/internal/native"
	"github.com/Norgate-AV/evelens/internal/registry"
)

// ErrNoSource is returned when a surface is requested for a window without a handle.
var ErrNoSource = errors.New("source window handle is zero")

// ErrNoDestination is returned when the preview window could not be obtained.
var ErrNoDestination = errors.New("preview window handle is zero")

// Host is the subset of the native layer the manager needs.
type Host interface {
	native.PreviewHost
	native.Compositor
	IsElevated() bool
}

// Manager creates, updates and destroys mirrored surfaces.
type Manager struct {
	log  logger.LoggerInterface
	host Host
}

// NewManager creates a surface manager.
func NewManager(log logger.LoggerInterface, host Host) *Manager {
	return &Manager{log: log, host: host}
}

// CreateSurface opens a preview window for w and mirrors w's source into it using s.
// A window that already has a surface is left untouched. Failures leave w without a
// surface so the next scan can retry.
func (m *Manager) CreateSurface(w *registry.TrackedWindow, s Settings) error {
	if w.Source == 0 {
		return ErrNoSource
	}

	if w.HasSurface() {
		return nil
	}

	w.SetBounds(s.Bounds())
	w.SetStyle(s.Style())

	preview, err := m.host.CreatePreviewWindow(w.Title, s.Bounds())
	if err != nil {
		return fmt.Errorf("create preview window for %q: %w", w.Title, err)
	}

	if preview == 0 {
		return ErrNoDestination
	}

	thumb, err := m.host.RegisterThumbnail(preview, w.Source)
	if err != nil {
		if derr := m.host.DestroyWindow(preview); derr != nil {
			m.log.Debug("DestroyWindow after failed registration", slog.Any("error", derr))
		}

		if errors.Is(err, native.ErrAccessDenied) && !m.host.IsElevated() {
			m.log.Warn("Mirroring was denied; the client may be running elevated",
				slog.String("title", w.Title),
				slog.Uint64("pid", uint64(w.PID)),
			)
		}

		return fmt.Errorf("register surface for %q: %w", w.Title, err)
	}

	if !w.AttachSurface(preview, thumb) {
		// Lost a race with another creation; keep the existing surface.
		_ = m.host.UnregisterThumbnail(thumb)
		_ = m.host.DestroyWindow(preview)
		return nil
	}

	m.log.Debug("Surface created",
		slog.String("title", w.Title),
		slog.Uint64("pid", uint64(w.PID)),
		slog.Uint64("preview", uint64(preview)),
	)

	m.apply(w)
	return nil
}

// Resize moves and resizes the preview. When clampSize is set the size is limited to
// the range of the size controls; direct moves keep the requested size.
func (m *Manager) Resize(w *registry.TrackedWindow, x, y, width, height int, clampSize bool) {
	if clampSize {
		width, height = ClampSize(width, height)
	}

	w.SetBounds(native.Rect{X: x, Y: y, Width: width, Height: height})
	m.place(w)
}

// Move repositions the preview without touching its size. The position is checked
// against the coordinate envelope.
func (m *Manager) Move(w *registry.TrackedWindow, pos native.Point) {
	pos = SanePosition(pos)

	b := w.Bounds()
	if b.X == pos.X && b.Y == pos.Y {
		return
	}

	b.X, b.Y = pos.X, pos.Y
	w.SetBounds(b)

	preview, _ := w.Surface()
	if preview == 0 {
		return
	}

	if err := m.host.MovePreviewWindow(preview, b); err != nil {
		m.log.Debug("MovePreviewWindow failed", slog.String("title", w.Title), slog.Any("error", err))
	}
}

// SetOpacity changes the surface opacity.
func (m *Manager) SetOpacity(w *registry.TrackedWindow, opacity float64) {
	st := w.Style()
	st.Opacity = ClampOpacity(opacity)
	w.SetStyle(st)
	m.apply(w)
}

// UpdateBorder changes the focus ring color and thickness.
func (m *Manager) UpdateBorder(w *registry.TrackedWindow, color native.Color, thickness int) {
	st := w.Style()
	st.BorderColor = color
	st.BorderThickness = max(thickness, 0)
	w.SetStyle(st)
	m.apply(w)
}

// SetTitleOverlay toggles the title overlay.
func (m *Manager) SetTitleOverlay(w *registry.TrackedWindow, show bool) {
	st := w.Style()
	st.ShowTitle = show
	w.SetStyle(st)
	m.apply(w)
}

// SetFocused changes the focus highlight and re-insets the surface.
func (m *Manager) SetFocused(w *registry.TrackedWindow, focused bool) {
	if w.SetFocused(focused) {
		m.apply(w)
	}
}

// Apply pushes a complete settings value to the window.
func (m *Manager) Apply(w *registry.TrackedWindow, s Settings) {
	w.SetBounds(s.Bounds())
	w.SetStyle(s.Style())
	m.place(w)
}

// DestroySurface releases the surface and closes the preview window. The surface is
// always unregistered before its owning window is destroyed. Repeated calls are no-ops.
func (m *Manager) DestroySurface(w *registry.TrackedWindow) {
	preview, thumb := w.DetachSurface()

	if thumb != 0 {
		if err := m.host.UnregisterThumbnail(thumb); err != nil {
			m.log.Debug("UnregisterThumbnail failed", slog.String("title", w.Title), slog.Any("error", err))
		}
	}

	if preview != 0 {
		if err := m.host.DestroyWindow(preview); err != nil {
			m.log.Debug("DestroyWindow failed", slog.String("title", w.Title), slog.Any("error", err))
		}

		m.log.Debug("Surface destroyed", slog.String("title", w.Title), slog.Uint64("pid", uint64(w.PID)))
	}
}

func (m *Manager) place(w *registry.TrackedWindow) {
	preview, _ := w.Surface()
	if preview == 0 {
		return
	}

	if err := m.host.MovePreviewWindow(preview, w.Bounds()); err != nil {
		m.log.Debug("MovePreviewWindow failed", slog.String("title", w.Title), slog.Any("error", err))
	}

	m.apply(w)
}

// DestinationRect is the surface rectangle inside a preview of the given bounds. A
// focused preview with a border reserves a ring of the border thickness for the
// highlight drawn behind the surface.
func DestinationRect(bounds native.Rect, focused bool, thickness int) native.Rect {
	dest := native.Rect{Width: bounds.Width, Height: bounds.Height}
	if focused && thickness > 0 {
		dest = dest.Inset(thickness)
	}

	return dest
}

func (m *Manager) apply(w *registry.TrackedWindow) {
	preview, thumb := w.Surface()
	if thumb == 0 {
		return
	}

	st := w.Style()
	focused := w.Focused()

	props := native.ThumbnailProps{
		Destination: DestinationRect(w.Bounds(), focused, st.BorderThickness),
		Opacity:     st.Opacity,
		Visible:     true,
		ClientOnly:  true,
	}

	if err := m.host.UpdateThumbnail(thumb, props); err != nil {
		m.log.Debug("UpdateThumbnail failed", slog.String("title", w.Title), slog.Any("error", err))
	}

	if err := m.host.SetPreviewBorder(preview, st.BorderColor, focused && st.BorderThickness > 0); err != nil {
		m.log.Debug("SetPreviewBorder failed", slog.String("title", w.Title), slog.Any("error", err))
	}

	title := ""
	if st.ShowTitle {
		title = w.Title
	}

	if err := m.host.SetPreviewTitle(preview, title); err != nil {
		m.log.Debug("SetPreviewTitle failed", slog.String("title", w.Title), slog.Any("error", err))
	}
}
