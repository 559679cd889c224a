// Package cycle moves OS focus through the ordered members of a client group.
package cycle

import (
	"context"
	"log/slog"
	"strings"

	"github.com/Norgate-AV/evelens/internal/logger"
	"github.com/Norgate-AV/evelens/internal/native"
	"github.com/Norgate-AV/evelens/internal/registry"
	"github.com/Norgate-AV/evelens/internal/store"
)

// NextIndex returns the index to activate in a list of n entries. current is the
// index of the foreground entry, or negative when it is not in the list; a first
// forward step then lands on 0 and a first backward step on n-1.
func NextIndex(current, n int, forward bool) int {
	if n <= 0 {
		return -1
	}

	if current < 0 || current >= n {
		if forward {
			current = -1
		} else {
			current = n
		}
	}

	if forward {
		return (current + 1) % n
	}

	if current == 0 {
		return n - 1
	}

	return current - 1
}

// Source supplies group membership.
type Source interface {
	Group(ctx context.Context, id int64) (store.Group, error)
}

// Host is the native surface used to find and activate windows.
type Host interface {
	native.WindowQuerier
	native.WindowActivator
}

// Cycler activates group members.
type Cycler struct {
	log    logger.LoggerInterface
	host   Host
	reg    *registry.Registry
	source Source
}

// New creates a Cycler.
func New(log logger.LoggerInterface, host Host, reg *registry.Registry, source Source) *Cycler {
	return &Cycler{log: log, host: host, reg: reg, source: source}
}

// Members returns the tracked windows of g in group order. Titles without a tracked
// window are dropped.
func (c *Cycler) Members(g store.Group) []*registry.TrackedWindow {
	out := make([]*registry.TrackedWindow, 0, len(g.Members))
	seen := make(map[uint32]bool, len(g.Members))

	for _, title := range g.Members {
		w, ok := c.reg.FindByTitle(title)
		if !ok || seen[w.PID] {
			continue
		}

		seen[w.PID] = true
		out = append(out, w)
	}

	return out
}

// Cycle activates the next or previous member of the group relative to the foreground
// window. Missing groups and groups with no tracked members are a no-op; the
// activated window is returned when there was one.
func (c *Cycler) Cycle(ctx context.Context, groupID int64, forward bool) *registry.TrackedWindow {
	g, err := c.source.Group(ctx, groupID)
	if err != nil {
		c.log.Debug("Cycle skipped, group unavailable", slog.Int64("group", groupID), slog.Any("error", err))
		return nil
	}

	members := c.Members(g)
	if len(members) == 0 {
		c.log.Debug("Cycle skipped, no tracked members", slog.String("group", g.Name))
		return nil
	}

	current := -1
	if title, ok := c.ForegroundTitle(); ok {
		for i, w := range members {
			if strings.EqualFold(w.Title, title) {
				current = i
				break
			}
		}
	}

	next := members[NextIndex(current, len(members), forward)]

	c.log.Debug("Cycling group",
		slog.String("group", g.Name),
		slog.Bool("forward", forward),
		slog.String("title", next.Title),
	)

	c.Activate(next)
	return next
}

// ForegroundTitle returns the title of the foreground window when a live process owns
// it. Any process counts, not only watched ones.
func (c *Cycler) ForegroundTitle() (string, bool) {
	fg := c.host.ForegroundWindow()
	if fg == 0 {
		return "", false
	}

	if _, err := c.host.WindowProcessID(fg); err != nil {
		c.log.Debug("Foreground window has no live owner", slog.Any("error", err))
		return "", false
	}

	title := c.host.WindowTitle(fg)
	return title, title != ""
}

// Activate brings w to the foreground, gives it input focus and restores it when
// minimized. Failures are logged.
func (c *Cycler) Activate(w *registry.TrackedWindow) {
	if err := c.host.SetForeground(w.Source); err != nil {
		c.log.Warn("Could not activate window", slog.String("title", w.Title), slog.Any("error", err))
	}

	if err := c.host.SetFocus(w.Source); err != nil {
		c.log.Debug("SetFocus failed", slog.String("title", w.Title), slog.Any("error", err))
	}

	st, err := c.host.WindowStyle(w.Source)
	if err != nil {
		c.log.Debug("WindowStyle failed", slog.String("title", w.Title), slog.Any("error", err))
		return
	}

	if st.Minimized {
		if err := c.host.Restore(w.Source); err != nil {
			c.log.Warn("Could not restore window", slog.String("title", w.Title), slog.Any("error", err))
		}
	}
}
