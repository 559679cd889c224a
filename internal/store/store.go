// Package store persists profiles, watch-lists, preview settings and client groups.
package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Norgate-AV/evelens/internal/native"
	"github.com/Norgate-AV/evelens/internal/thumbnail"
)

// ErrNotFound is returned when a profile or group does not exist.
var ErrNotFound = errors.New("not found")

// DefaultProfileName is the profile seeded into an empty database.
const DefaultProfileName = "Default"

// DefaultProcessName is the watch-list entry seeded with the default profile.
const DefaultProcessName = "exefile"

// Profile is a named set of watch-list, groups and preview defaults.
type Profile struct {
	ID           int64
	Name         string
	SwitchHotkey string
	Active       bool
}

// Group is an ordered list of window titles cycled by a pair of hotkeys.
type Group struct {
	ID             int64
	ProfileID      int64
	Name           string
	ForwardHotkey  string
	BackwardHotkey string
	Members        []string
}

// Store is the persistence collaborator consumed by the service.
type Store interface {
	Profiles(ctx context.Context) ([]Profile, error)
	ActiveProfile(ctx context.Context) (Profile, error)
	ProfileByName(ctx context.Context, name string) (Profile, error)
	CreateProfile(ctx context.Context, name, switchHotkey string) (Profile, error)
	SetActiveProfile(ctx context.Context, id int64) error

	WatchList(ctx context.Context, profileID int64) ([]string, error)
	AddWatchedProcess(ctx context.Context, profileID int64, name string) error

	DefaultThumbnailConfig(ctx context.Context, profileID int64) (thumbnail.Settings, bool, error)
	SaveDefaultThumbnailConfig(ctx context.Context, profileID int64, s thumbnail.Settings) error
	ThumbnailConfig(ctx context.Context, profileID int64, title string) (thumbnail.Settings, bool, error)
	SaveThumbnailConfig(ctx context.Context, profileID int64, title string, s thumbnail.Settings) error

	Groups(ctx context.Context, profileID int64) ([]Group, error)
	Group(ctx context.Context, id int64) (Group, error)
	CreateGroup(ctx context.Context, profileID int64, name, forward, backward string) (Group, error)
	AddGroupMember(ctx context.Context, groupID int64, title string) error

	DraggingEnabled(ctx context.Context) (bool, error)
	SetDraggingEnabled(ctx context.Context, enabled bool) error

	Close() error
}

// ResolveSettings returns the per-window config for title, the profile default when
// no override exists, or the built-in defaults.
func ResolveSettings(ctx context.Context, s Store, profileID int64, title string) (thumbnail.Settings, error) {
	cfg, ok, err := s.ThumbnailConfig(ctx, profileID, title)
	if err != nil {
		return thumbnail.DefaultSettings(), err
	}

	if ok {
		return cfg, nil
	}

	cfg, ok, err = s.DefaultThumbnailConfig(ctx, profileID)
	if err != nil || !ok {
		return thumbnail.DefaultSettings(), err
	}

	return cfg, nil
}

// FormatColor renders c as #RRGGBB.
func FormatColor(c native.Color) string {
	return fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B)
}

// ParseColor parses #RRGGBB or RRGGBB.
func ParseColor(s string) (native.Color, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) != 6 {
		return native.Color{}, fmt.Errorf("invalid color %q", s)
	}

	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return native.Color{}, fmt.Errorf("invalid color %q: %w", s, err)
	}

	return native.Color{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v)}, nil
}
