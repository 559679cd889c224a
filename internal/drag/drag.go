// Package drag moves every preview together while one of them is dragged.
package drag

import (
	"github.com/Norgate-AV/evelens/internal/native"
	"github.com/Norgate-AV/evelens/internal/registry"
	"github.com/Norgate-AV/evelens/internal/thumbnail"
)

// Member is one window following the primary, with its offset from the primary's
// position at drag start.
type Member struct {
	Window *registry.TrackedWindow
	Offset native.Point
}

// Session is a group drag in progress. It is never persisted.
type Session struct {
	Primary *registry.TrackedWindow
	Members []Member
}

// Mover applies a new preview position.
type Mover interface {
	Move(w *registry.TrackedWindow, pos native.Point)
}

// Persister stores the final settings of a window.
type Persister interface {
	Persist(w *registry.TrackedWindow)
}

// PersistFunc adapts a function to Persister.
type PersistFunc func(w *registry.TrackedWindow)

// Persist calls f(w).
func (f PersistFunc) Persist(w *registry.TrackedWindow) { f(w) }

// Coordinator computes and applies group drag offsets. It runs on the UI thread.
type Coordinator struct {
	reg     *registry.Registry
	mover   Mover
	persist Persister
}

// New creates a Coordinator.
func New(reg *registry.Registry, mover Mover, persist Persister) *Coordinator {
	return &Coordinator{reg: reg, mover: mover, persist: persist}
}

// StartGroupDrag records the offset of every other visible window from primary. It
// returns nil when there is nothing else to move.
func (c *Coordinator) StartGroupDrag(primary *registry.TrackedWindow) *Session {
	origin := primary.Position()

	var members []Member
	for _, w := range c.reg.Snapshot() {
		if w == primary || !w.HasSurface() {
			continue
		}

		members = append(members, Member{Window: w, Offset: w.Position().Sub(origin)})
	}

	if len(members) == 0 {
		return nil
	}

	return &Session{Primary: primary, Members: members}
}

// UpdateGroupDrag moves every member to the primary's new position plus its offset.
// Targets outside the coordinate envelope are replaced by the fallback position.
func (c *Coordinator) UpdateGroupDrag(s *Session, primaryPos native.Point) {
	if s == nil {
		return
	}

	for i := range s.Members {
		m := &s.Members[i]
		c.mover.Move(m.Window, thumbnail.SanePosition(primaryPos.Add(m.Offset)))
	}
}

// EndGroupDrag persists the final position of every window in the drag.
func (c *Coordinator) EndGroupDrag(s *Session) {
	if s == nil || c.persist == nil {
		return
	}

	c.persist.Persist(s.Primary)
	for _, m := range s.Members {
		c.persist.Persist(m.Window)
	}
}
