package service

import (
	"context"
	"log/slog"

	"github.com/Norgate-AV/evelens/internal/drag"
	"github.com/Norgate-AV/evelens/internal/native"
	"github.com/Norgate-AV/evelens/internal/registry"
	"github.com/Norgate-AV/evelens/internal/thumbnail"
	"github.com/Norgate-AV/evelens/internal/timeouts"
)

// clickSlop is how far the pointer may travel before a press becomes a drag.
const clickSlop = 4

// gesture is the pointer state of the preview being pressed. It is only touched on
// the UI thread.
type gesture struct {
	window  *registry.TrackedWindow
	button  native.PointerButton
	start   native.Point
	origin  native.Point
	slipped bool
	moved   bool
	session *drag.Session
}

func (s *Service) handlePointer(ev native.PointerEvent) {
	switch ev.Action {
	case native.PointerDown:
		w, ok := s.reg.FindByPreview(ev.Window)
		if !ok {
			return
		}

		s.gesture = gesture{window: w, button: ev.Button, start: ev.Screen, origin: w.Position()}

	case native.PointerMove:
		g := &s.gesture
		if g.window == nil {
			return
		}

		delta := ev.Screen.Sub(g.start)
		if !g.moved {
			if abs(delta.X) < clickSlop && abs(delta.Y) < clickSlop {
				return
			}

			g.slipped = true
			if !s.dragging.Load() {
				return
			}

			g.moved = true
			if g.button == native.ButtonRight {
				g.session = s.drag.StartGroupDrag(g.window)
			}
		}

		pos := g.origin.Add(delta)
		s.surfaces.Move(g.window, pos)

		if g.session != nil {
			s.drag.UpdateGroupDrag(g.session, thumbnail.SanePosition(pos))
		}

	case native.PointerUp:
		g := s.gesture
		s.gesture = gesture{}

		if g.window == nil {
			return
		}

		switch {
		case g.moved && g.session != nil:
			s.drag.EndGroupDrag(g.session)
		case g.moved:
			s.Persist(g.window)
		case g.button == native.ButtonLeft && !g.slipped:
			s.cycler.Activate(g.window)
		}
	}
}

// Persist implements drag.Persister by saving the live settings of w for the active
// profile.
func (s *Service) Persist(w *registry.TrackedWindow) {
	ctx, cancel := context.WithTimeout(s.context(), timeouts.UICallTimeout)
	defer cancel()

	if err := s.store.SaveThumbnailConfig(ctx, s.ActiveProfile().ID, w.Title, thumbnail.SettingsOf(w)); err != nil {
		s.log.Warn("Could not save preview settings", slog.String("title", w.Title), slog.Any("error", err))
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}

	return n
}
