package registry_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Norgate-AV/evelens/internal/native"
	"github.com/Norgate-AV/evelens/internal/registry"
)

func TestRegistry_AddRejectsDuplicatePID(t *testing.T) {
	r := registry.New()

	assert.True(t, r.Add(registry.NewTrackedWindow(10, 0x100, "EVE - Alpha")))
	assert.False(t, r.Add(registry.NewTrackedWindow(10, 0x200, "EVE - Other")))

	w, ok := r.Get(10)
	require.True(t, ok)
	assert.Equal(t, native.Handle(0x100), w.Source)
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_RemoveAndSnapshotOrder(t *testing.T) {
	r := registry.New()
	r.Add(registry.NewTrackedWindow(30, 3, "EVE - C"))
	r.Add(registry.NewTrackedWindow(10, 1, "EVE - A"))
	r.Add(registry.NewTrackedWindow(20, 2, "EVE - B"))

	assert.Equal(t, []uint32{10, 20, 30}, r.PIDs())
	assert.Equal(t, []string{"EVE - A", "EVE - B", "EVE - C"}, r.Titles())

	w, ok := r.Remove(20)
	require.True(t, ok)
	assert.Equal(t, "EVE - B", w.Title)

	_, ok = r.Remove(20)
	assert.False(t, ok)
	assert.Equal(t, []uint32{10, 30}, r.PIDs())
}

func TestRegistry_FindByTitleFirstMatchInPIDOrder(t *testing.T) {
	r := registry.New()
	r.Add(registry.NewTrackedWindow(50, 5, "EVE - Twin"))
	r.Add(registry.NewTrackedWindow(40, 4, "eve - twin"))

	w, ok := r.FindByTitle("EVE - TWIN")
	require.True(t, ok)
	assert.Equal(t, uint32(40), w.PID)

	_, ok = r.FindByTitle("EVE - Nobody")
	assert.False(t, ok)
}

func TestRegistry_FindByPreview(t *testing.T) {
	r := registry.New()
	w := registry.NewTrackedWindow(1, 0x10, "EVE - A")
	r.Add(w)

	require.True(t, w.AttachSurface(0x99, 7))

	found, ok := r.FindByPreview(0x99)
	require.True(t, ok)
	assert.Same(t, w, found)

	_, ok = r.FindByPreview(0)
	assert.False(t, ok)
}

func TestTrackedWindow_SurfaceAttachDetach(t *testing.T) {
	w := registry.NewTrackedWindow(1, 0x10, "EVE - A")
	assert.False(t, w.HasSurface())

	require.True(t, w.AttachSurface(0x20, 5))
	assert.False(t, w.AttachSurface(0x21, 6), "a second live surface must be refused")

	preview, thumb := w.DetachSurface()
	assert.Equal(t, native.Handle(0x20), preview)
	assert.Equal(t, native.ThumbnailID(5), thumb)
	assert.False(t, w.HasSurface())

	preview, thumb = w.DetachSurface()
	assert.Zero(t, preview)
	assert.Zero(t, thumb)
}

func TestTrackedWindow_SetFocusedReportsChange(t *testing.T) {
	w := registry.NewTrackedWindow(1, 0x10, "EVE - A")

	assert.True(t, w.SetFocused(true))
	assert.False(t, w.SetFocused(true))
	assert.True(t, w.Focused())
	assert.True(t, w.SetFocused(false))
}

func TestRegistry_ConcurrentAddSnapshot(t *testing.T) {
	r := registry.New()

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(2)
		go func(pid uint32) {
			defer wg.Done()
			r.Add(registry.NewTrackedWindow(pid, native.Handle(pid), "EVE"))
		}(uint32(i % 10))
		go func() {
			defer wg.Done()
			for _, w := range r.Snapshot() {
				_ = w.Bounds()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, r.Len())
}
