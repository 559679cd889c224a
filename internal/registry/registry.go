// Package registry holds the set of external windows currently mirrored, keyed by
// process id. It is the single source of truth for "what is shown" and is shared by
// the scanner, the focus tracker, the drag coordinator and the service.
package registry

import (
	"slices"
	"strings"
	"sync"

	"github.com/Norgate-AV/evelens/internal/native"
)

// Style is the visual configuration of one preview.
type Style struct {
	Opacity         float64
	BorderColor     native.Color
	BorderThickness int
	ShowTitle       bool
}

// TrackedWindow is one external window currently eligible for mirroring.
// Identity fields are immutable; mutable state is guarded by the window's own lock.
type TrackedWindow struct {
	PID    uint32
	Source native.Handle
	Title  string

	mu      sync.RWMutex
	preview native.Handle
	thumb   native.ThumbnailID
	bounds  native.Rect
	style   Style
	focused bool
}

// NewTrackedWindow creates a window record with no surface.
func NewTrackedWindow(pid uint32, source native.Handle, title string) *TrackedWindow {
	return &TrackedWindow{PID: pid, Source: source, Title: title}
}

// Bounds returns the preview bounds in screen coordinates.
func (w *TrackedWindow) Bounds() native.Rect {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.bounds
}

// SetBounds replaces the preview bounds.
func (w *TrackedWindow) SetBounds(r native.Rect) {
	w.mu.Lock()
	w.bounds = r
	w.mu.Unlock()
}

// Position returns the top-left corner of the preview.
func (w *TrackedWindow) Position() native.Point {
	b := w.Bounds()
	return native.Point{X: b.X, Y: b.Y}
}

// Style returns the preview style.
func (w *TrackedWindow) Style() Style {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.style
}

// SetStyle replaces the preview style.
func (w *TrackedWindow) SetStyle(s Style) {
	w.mu.Lock()
	w.style = s
	w.mu.Unlock()
}

// Focused reports whether the window currently carries the focus highlight.
func (w *TrackedWindow) Focused() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.focused
}

// SetFocused sets the focus flag and reports whether it changed.
func (w *TrackedWindow) SetFocused(focused bool) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.focused == focused {
		return false
	}

	w.focused = focused
	return true
}

// Surface returns the preview window and mirrored surface, zero when absent.
func (w *TrackedWindow) Surface() (native.Handle, native.ThumbnailID) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.preview, w.thumb
}

// HasSurface reports whether a mirrored surface is live.
func (w *TrackedWindow) HasSurface() bool {
	_, thumb := w.Surface()
	return thumb != 0
}

// AttachSurface records the preview window and surface. It refuses to replace a live
// surface so that a window never owns two.
func (w *TrackedWindow) AttachSurface(preview native.Handle, thumb native.ThumbnailID) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.thumb != 0 {
		return false
	}

	w.preview = preview
	w.thumb = thumb
	return true
}

// DetachSurface clears and returns the preview window and surface.
func (w *TrackedWindow) DetachSurface() (native.Handle, native.ThumbnailID) {
	w.mu.Lock()
	defer w.mu.Unlock()

	preview, thumb := w.preview, w.thumb
	w.preview, w.thumb = 0, 0
	return preview, thumb
}

// Registry maps process id to TrackedWindow.
type Registry struct {
	mu      sync.RWMutex
	windows map[uint32]*TrackedWindow
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{windows: make(map[uint32]*TrackedWindow)}
}

// Add inserts w unless a window with the same pid is already tracked.
func (r *Registry) Add(w *TrackedWindow) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.windows[w.PID]; ok {
		return false
	}

	r.windows[w.PID] = w
	return true
}

// Get returns the window tracked for pid.
func (r *Registry) Get(pid uint32) (*TrackedWindow, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	w, ok := r.windows[pid]
	return w, ok
}

// Remove deletes and returns the window tracked for pid.
func (r *Registry) Remove(pid uint32) (*TrackedWindow, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	w, ok := r.windows[pid]
	if ok {
		delete(r.windows, pid)
	}

	return w, ok
}

// Len returns the number of tracked windows.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.windows)
}

// PIDs returns the tracked process ids in ascending order.
func (r *Registry) PIDs() []uint32 {
	r.mu.RLock()
	pids := make([]uint32, 0, len(r.windows))
	for pid := range r.windows {
		pids = append(pids, pid)
	}
	r.mu.RUnlock()

	slices.Sort(pids)
	return pids
}

// Snapshot returns the tracked windows ordered by pid. The slice is a copy, so callers
// may iterate it while the registry is being modified.
func (r *Registry) Snapshot() []*TrackedWindow {
	r.mu.RLock()
	out := make([]*TrackedWindow, 0, len(r.windows))
	for _, w := range r.windows {
		out = append(out, w)
	}
	r.mu.RUnlock()

	slices.SortFunc(out, func(a, b *TrackedWindow) int {
		switch {
		case a.PID < b.PID:
			return -1
		case a.PID > b.PID:
			return 1
		}
		return 0
	})

	return out
}

// FindByTitle returns the first window, in pid order, whose title matches
// case-insensitively. Titles are not unique across processes.
func (r *Registry) FindByTitle(title string) (*TrackedWindow, bool) {
	for _, w := range r.Snapshot() {
		if strings.EqualFold(w.Title, title) {
			return w, true
		}
	}

	return nil, false
}

// FindByPreview returns the window whose preview window is hwnd.
func (r *Registry) FindByPreview(hwnd native.Handle) (*TrackedWindow, bool) {
	if hwnd == 0 {
		return nil, false
	}

	for _, w := range r.Snapshot() {
		if preview, _ := w.Surface(); preview == hwnd {
			return w, true
		}
	}

	return nil, false
}

// Titles returns the titles of every tracked window in pid order.
func (r *Registry) Titles() []string {
	snap := r.Snapshot()
	titles := make([]string, 0, len(snap))
	for _, w := range snap {
		titles = append(titles, w.Title)
	}

	return titles
}
