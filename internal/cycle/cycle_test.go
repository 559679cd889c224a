package cycle_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Norgate-AV/evelens/internal/cycle"
	"github.com/Norgate-AV/evelens/internal/logger"
	"github.com/Norgate-AV/evelens/internal/native"
	"github.com/Norgate-AV/evelens/internal/registry"
	"github.com/Norgate-AV/evelens/internal/store"
	"github.com/Norgate-AV/evelens/internal/testutil"
)

func TestNextIndex(t *testing.T) {
	tests := []struct {
		name    string
		current int
		n       int
		forward bool
		want    int
	}{
		{"forward from middle", 1, 3, true, 2},
		{"backward from middle", 1, 3, false, 0},
		{"forward wraps", 2, 3, true, 0},
		{"backward wraps", 0, 3, false, 2},
		{"forward not found", -1, 3, true, 0},
		{"backward not found", -1, 3, false, 2},
		{"single entry forward", 0, 1, true, 0},
		{"single entry backward", 0, 1, false, 0},
		{"empty", -1, 0, true, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cycle.NextIndex(tt.current, tt.n, tt.forward))
		})
	}
}

type source struct {
	groups map[int64]store.Group
}

func (s *source) Group(_ context.Context, id int64) (store.Group, error) {
	g, ok := s.groups[id]
	if !ok {
		return store.Group{}, store.ErrNotFound
	}

	return g, nil
}

func newCycler(t *testing.T, members ...string) (*cycle.Cycler, *testutil.FakeNative) {
	t.Helper()

	fake := testutil.NewFakeNative().
		WithProcess("exefile", 10, 0xA, "EVE - A").
		WithProcess("exefile", 20, 0xB, "EVE - B").
		WithProcess("exefile", 30, 0xC, "EVE - C")

	reg := registry.New()
	reg.Add(registry.NewTrackedWindow(10, 0xA, "EVE - A"))
	reg.Add(registry.NewTrackedWindow(20, 0xB, "EVE - B"))
	reg.Add(registry.NewTrackedWindow(30, 0xC, "EVE - C"))

	src := &source{groups: map[int64]store.Group{
		1: {ID: 1, Name: "Fleet", Members: members},
	}}

	return cycle.New(logger.NewNoOpLogger(), fake, reg, src), fake
}

func TestCycle_FromFocusedMember(t *testing.T) {
	c, fake := newCycler(t, "EVE - A", "EVE - B", "EVE - C")

	fake.WithForeground(0xB)
	w := c.Cycle(context.Background(), 1, true)
	require.NotNil(t, w)
	assert.Equal(t, "EVE - C", w.Title)

	fake.WithForeground(0xB)
	w = c.Cycle(context.Background(), 1, false)
	require.NotNil(t, w)
	assert.Equal(t, "EVE - A", w.Title)
}

func TestCycle_WithoutFocusedMember(t *testing.T) {
	c, fake := newCycler(t, "EVE - A", "EVE - B", "EVE - C")

	fake.WithForeground(0x999)
	assert.Equal(t, "EVE - A", c.Cycle(context.Background(), 1, true).Title)

	fake.WithForeground(0x999)
	assert.Equal(t, "EVE - C", c.Cycle(context.Background(), 1, false).Title)
}

func TestCycle_SuccessiveStepsWalkTheGroup(t *testing.T) {
	c, _ := newCycler(t, "eve - c", "EVE - A", "EVE - B")

	var titles []string
	for range 4 {
		titles = append(titles, c.Cycle(context.Background(), 1, true).Title)
	}

	// The fake moves the foreground with each activation.
	assert.Equal(t, []string{"EVE - C", "EVE - A", "EVE - B", "EVE - C"}, titles)
}

func TestCycle_SkipsUntrackedMembers(t *testing.T) {
	c, fake := newCycler(t, "EVE - A", "EVE - Gone", "EVE - C")

	fake.WithForeground(0xA)
	assert.Equal(t, "EVE - C", c.Cycle(context.Background(), 1, true).Title)
}

func TestCycle_EmptyIsNoOp(t *testing.T) {
	c, fake := newCycler(t, "EVE - Nobody")

	assert.Nil(t, c.Cycle(context.Background(), 1, true))
	assert.Nil(t, c.Cycle(context.Background(), 99, true))
	assert.Empty(t, fake.ForegroundCalls())
}

func TestActivate_RestoresMinimized(t *testing.T) {
	c, fake := newCycler(t, "EVE - A")
	fake.WithMinimized(0xA)

	w := c.Cycle(context.Background(), 1, true)
	require.NotNil(t, w)

	assert.Equal(t, []native.Handle{0xA}, fake.ForegroundCalls())
	assert.Equal(t, []native.Handle{0xA}, fake.SetFocusCalls)
	assert.Equal(t, []native.Handle{0xA}, fake.RestoreCalls)
}

func TestForegroundTitle_AnyLiveProcess(t *testing.T) {
	c, fake := newCycler(t, "EVE - A", "EVE - B")
	fake.WithProcess("notepad", 40, 0xD, "Notes")

	fake.WithForeground(0xD)
	title, ok := c.ForegroundTitle()
	assert.True(t, ok)
	assert.Equal(t, "Notes", title)

	// An untracked foreground still starts the cycle at the first member.
	got := c.Cycle(context.Background(), 1, true)
	require.NotNil(t, got)
	assert.Equal(t, "EVE - A", got.Title)

	fake.WithForeground(0xFF)
	_, ok = c.ForegroundTitle()
	assert.False(t, ok, "A window without a live owner has no title")

	fake.WithForeground(0)
	_, ok = c.ForegroundTitle()
	assert.False(t, ok)
}
