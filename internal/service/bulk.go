package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Norgate-AV/evelens/internal/layout"
	"github.com/Norgate-AV/evelens/internal/native"
	"github.com/Norgate-AV/evelens/internal/registry"
	"github.com/Norgate-AV/evelens/internal/thumbnail"
)

// ThumbnailStyle is the set of fields applied to every preview by ApplyToAll.
type ThumbnailStyle struct {
	Width           int
	Height          int
	Opacity         float64
	BorderColor     native.Color
	BorderThickness int
	ShowTitle       bool
}

// withWindow posts fn for the tracked window with the given title. The change is
// applied live and not persisted.
func (s *Service) withWindow(title string, fn func(w *registry.TrackedWindow)) error {
	w, ok := s.reg.FindByTitle(title)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownWindow, title)
	}

	s.ui.Post(func() { fn(w) })
	return nil
}

// SetSize resizes one preview, clamped to the size limits.
func (s *Service) SetSize(title string, width, height int) error {
	return s.withWindow(title, func(w *registry.TrackedWindow) {
		b := w.Bounds()
		s.surfaces.Resize(w, b.X, b.Y, width, height, true)
	})
}

// SetPosition moves one preview.
func (s *Service) SetPosition(title string, pos native.Point) error {
	return s.withWindow(title, func(w *registry.TrackedWindow) {
		s.surfaces.Move(w, pos)
	})
}

// SetOpacity changes the opacity of one preview.
func (s *Service) SetOpacity(title string, opacity float64) error {
	return s.withWindow(title, func(w *registry.TrackedWindow) {
		s.surfaces.SetOpacity(w, opacity)
	})
}

// SetBorder changes the focus border of one preview.
func (s *Service) SetBorder(title string, color native.Color, thickness int) error {
	return s.withWindow(title, func(w *registry.TrackedWindow) {
		s.surfaces.UpdateBorder(w, color, thickness)
	})
}

// SetTitleOverlay toggles the title overlay of one preview.
func (s *Service) SetTitleOverlay(title string, show bool) error {
	return s.withWindow(title, func(w *registry.TrackedWindow) {
		s.surfaces.SetTitleOverlay(w, show)
	})
}

// SaveWindowSettings persists the live settings of one preview.
func (s *Service) SaveWindowSettings(title string) error {
	w, ok := s.reg.FindByTitle(title)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownWindow, title)
	}

	s.Persist(w)
	return nil
}

// ApplyToAll applies st to every tracked preview and stores it as the profile default.
// Positions are kept.
func (s *Service) ApplyToAll(ctx context.Context, st ThumbnailStyle) error {
	width, height := thumbnail.ClampSize(st.Width, st.Height)
	windows := s.reg.Snapshot()

	err := s.ui.Call(func() error {
		for _, w := range windows {
			ws := thumbnail.SettingsOf(w)
			ws.Width, ws.Height = width, height
			ws.Opacity = st.Opacity
			ws.BorderColor = st.BorderColor
			ws.BorderThickness = st.BorderThickness
			ws.ShowTitle = st.ShowTitle

			s.surfaces.Apply(w, ws)
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("apply style: %w", err)
	}

	profileID := s.ActiveProfile().ID

	def := thumbnail.DefaultSettings()
	if cur, _, err := s.store.DefaultThumbnailConfig(ctx, profileID); err == nil {
		def = cur
	}

	def.Width, def.Height = width, height
	def.Opacity = thumbnail.ClampOpacity(st.Opacity)
	def.BorderColor = st.BorderColor
	def.BorderThickness = max(st.BorderThickness, 0)
	def.ShowTitle = st.ShowTitle

	if err := s.store.SaveDefaultThumbnailConfig(ctx, profileID, def); err != nil {
		return fmt.Errorf("save default preview settings: %w", err)
	}

	for _, w := range windows {
		if err := s.store.SaveThumbnailConfig(ctx, profileID, w.Title, thumbnail.SettingsOf(w)); err != nil {
			return fmt.Errorf("save preview settings for %q: %w", w.Title, err)
		}
	}

	s.log.Info("Applied style to all previews", slog.Int("count", len(windows)))
	return nil
}

// ApplyGrid arranges every tracked preview in a grid and persists the result.
// Monitoring is paused for the duration so a scan cannot rebuild windows mid-write.
func (s *Service) ApplyGrid(ctx context.Context, opts layout.GridOptions) error {
	s.PauseMonitoring()
	defer s.ResumeMonitoring()

	windows := s.reg.Snapshot()
	rects := layout.Grid(len(windows), opts)

	err := s.ui.Call(func() error {
		for i, w := range windows {
			r := rects[i]
			s.surfaces.Resize(w, r.X, r.Y, r.Width, r.Height, true)
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("apply grid: %w", err)
	}

	profileID := s.ActiveProfile().ID
	for _, w := range windows {
		if err := s.store.SaveThumbnailConfig(ctx, profileID, w.Title, thumbnail.SettingsOf(w)); err != nil {
			return fmt.Errorf("save preview settings for %q: %w", w.Title, err)
		}
	}

	s.log.Info("Applied grid layout", slog.Int("count", len(windows)))
	return nil
}
