package drag_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Norgate-AV/evelens/internal/drag"
	"github.com/Norgate-AV/evelens/internal/logger"
	"github.com/Norgate-AV/evelens/internal/native"
	"github.com/Norgate-AV/evelens/internal/registry"
	"github.com/Norgate-AV/evelens/internal/testutil"
	"github.com/Norgate-AV/evelens/internal/thumbnail"
)

type fixture struct {
	reg       *registry.Registry
	coord     *drag.Coordinator
	persisted []string
	w1, w2    *registry.TrackedWindow
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	fake := testutil.NewFakeNative()
	surfaces := thumbnail.NewManager(logger.NewNoOpLogger(), fake)
	f := &fixture{reg: registry.New()}

	place := func(pid uint32, title string, x, y int) *registry.TrackedWindow {
		w := registry.NewTrackedWindow(pid, native.Handle(pid), title)
		s := thumbnail.DefaultSettings()
		s.X, s.Y = x, y
		require.NoError(t, surfaces.CreateSurface(w, s))
		f.reg.Add(w)
		return w
	}

	f.w1 = place(1, "EVE - One", 200, 300)
	f.w2 = place(2, "EVE - Two", 250, 300)
	f.coord = drag.New(f.reg, surfaces, drag.PersistFunc(func(w *registry.TrackedWindow) {
		f.persisted = append(f.persisted, w.Title)
	}))

	return f
}

func TestStartGroupDrag_Offsets(t *testing.T) {
	f := newFixture(t)

	s := f.coord.StartGroupDrag(f.w1)
	require.NotNil(t, s)
	require.Len(t, s.Members, 1)
	assert.Same(t, f.w2, s.Members[0].Window)
	assert.Equal(t, native.Point{X: 50, Y: 0}, s.Members[0].Offset)
}

func TestStartGroupDrag_Alone(t *testing.T) {
	f := newFixture(t)
	f.reg.Remove(2)

	assert.Nil(t, f.coord.StartGroupDrag(f.w1))
}

func TestUpdateGroupDrag_AppliesOffset(t *testing.T) {
	f := newFixture(t)
	s := f.coord.StartGroupDrag(f.w1)

	f.coord.UpdateGroupDrag(s, native.Point{X: 300, Y: 300})
	assert.Equal(t, native.Point{X: 350, Y: 300}, f.w2.Position())

	f.coord.UpdateGroupDrag(s, native.Point{X: 30990, Y: 300})
	assert.Equal(t, native.Point{X: 100, Y: 100}, f.w2.Position())

	f.coord.UpdateGroupDrag(s, native.Point{X: 0, Y: -20000})
	assert.Equal(t, native.Point{X: 100, Y: 100}, f.w2.Position())

	// Size is never touched by a drag.
	assert.Equal(t, 400, f.w2.Bounds().Width)
}

func TestEndGroupDrag_PersistsEveryone(t *testing.T) {
	f := newFixture(t)
	s := f.coord.StartGroupDrag(f.w2)

	f.coord.EndGroupDrag(s)
	assert.Equal(t, []string{"EVE - Two", "EVE - One"}, f.persisted)

	f.persisted = nil
	f.coord.EndGroupDrag(nil)
	f.coord.UpdateGroupDrag(nil, native.Point{})
	assert.Empty(t, f.persisted)
}
