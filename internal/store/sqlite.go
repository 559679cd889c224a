package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/Norgate-AV/evelens/internal/logger"
	"github.com/Norgate-AV/evelens/internal/native"
	"github.com/Norgate-AV/evelens/internal/thumbnail"
)

const schema = `
CREATE TABLE IF NOT EXISTS profiles (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	name          TEXT NOT NULL UNIQUE COLLATE NOCASE,
	switch_hotkey TEXT NOT NULL DEFAULT '',
	active        INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS watched_processes (
	profile_id INTEGER NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
	name       TEXT NOT NULL COLLATE NOCASE,
	PRIMARY KEY (profile_id, name)
);
CREATE TABLE IF NOT EXISTS thumbnail_configs (
	profile_id       INTEGER NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
	title            TEXT NOT NULL COLLATE NOCASE,
	x                INTEGER NOT NULL,
	y                INTEGER NOT NULL,
	width            INTEGER NOT NULL,
	height           INTEGER NOT NULL,
	opacity          REAL NOT NULL,
	border_color     TEXT NOT NULL,
	border_thickness INTEGER NOT NULL,
	show_title       INTEGER NOT NULL,
	PRIMARY KEY (profile_id, title)
);
CREATE TABLE IF NOT EXISTS client_groups (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	profile_id      INTEGER NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
	name            TEXT NOT NULL,
	forward_hotkey  TEXT NOT NULL DEFAULT '',
	backward_hotkey TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS client_group_members (
	group_id INTEGER NOT NULL REFERENCES client_groups(id) ON DELETE CASCADE,
	position INTEGER NOT NULL,
	title    TEXT NOT NULL COLLATE NOCASE,
	PRIMARY KEY (group_id, title)
);
CREATE TABLE IF NOT EXISTS settings (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

// The profile default config is stored as a thumbnail config with an empty title.
const defaultTitle = ""

const draggingKey = "dragging_enabled"

// SQLite is a Store backed by a local SQLite database file.
type SQLite struct {
	db  *sql.DB
	log logger.LoggerInterface
}

// Open opens or creates the database at path, applies the schema and seeds a default
// profile when the database is empty.
func Open(ctx context.Context, path string, log logger.LoggerInterface) (*SQLite, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", "file:"+path+"?_foreign_keys=on&_busy_timeout=2000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// One writer keeps SQLite happy and makes :memory: databases shared.
	db.SetMaxOpenConns(1)

	s := &SQLite{db: db, log: log}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}

	log.Debug("Database opened", slog.String("path", path))
	return s, nil
}

func (s *SQLite) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}

	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM profiles`).Scan(&n); err != nil {
		return fmt.Errorf("count profiles: %w", err)
	}

	if n > 0 {
		return nil
	}

	p, err := s.CreateProfile(ctx, DefaultProfileName, "")
	if err != nil {
		return err
	}

	if err := s.SetActiveProfile(ctx, p.ID); err != nil {
		return err
	}

	s.log.Info("Seeded default profile", slog.String("profile", p.Name))
	return s.AddWatchedProcess(ctx, p.ID, DefaultProcessName)
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

func scanProfile(row interface{ Scan(...any) error }) (Profile, error) {
	var p Profile
	err := row.Scan(&p.ID, &p.Name, &p.SwitchHotkey, &p.Active)
	if errors.Is(err, sql.ErrNoRows) {
		return p, ErrNotFound
	}

	return p, err
}

// Profiles returns all profiles ordered by id.
func (s *SQLite) Profiles(ctx context.Context) ([]Profile, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, switch_hotkey, active FROM profiles ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query profiles: %w", err)
	}
	defer rows.Close()

	var out []Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}

		out = append(out, p)
	}

	return out, rows.Err()
}

// ActiveProfile returns the active profile.
func (s *SQLite) ActiveProfile(ctx context.Context) (Profile, error) {
	return scanProfile(s.db.QueryRowContext(ctx,
		`SELECT id, name, switch_hotkey, active FROM profiles WHERE active = 1 ORDER BY id LIMIT 1`))
}

// ProfileByName looks a profile up by case-insensitive name.
func (s *SQLite) ProfileByName(ctx context.Context, name string) (Profile, error) {
	return scanProfile(s.db.QueryRowContext(ctx,
		`SELECT id, name, switch_hotkey, active FROM profiles WHERE name = ?`, name))
}

// CreateProfile adds an inactive profile.
func (s *SQLite) CreateProfile(ctx context.Context, name, switchHotkey string) (Profile, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO profiles (name, switch_hotkey) VALUES (?, ?)`, name, switchHotkey)
	if err != nil {
		return Profile{}, fmt.Errorf("create profile %q: %w", name, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return Profile{}, err
	}

	return Profile{ID: id, Name: name, SwitchHotkey: switchHotkey}, nil
}

// SetActiveProfile makes id the only active profile.
func (s *SQLite) SetActiveProfile(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM profiles WHERE id = ?`, id).Scan(&exists); err != nil {
		return err
	}

	if exists == 0 {
		return fmt.Errorf("profile %d: %w", id, ErrNotFound)
	}

	if _, err := tx.ExecContext(ctx, `UPDATE profiles SET active = (id = ?)`, id); err != nil {
		return fmt.Errorf("activate profile %d: %w", id, err)
	}

	return tx.Commit()
}

// WatchList returns the normalized process names watched by a profile.
func (s *SQLite) WatchList(ctx context.Context, profileID int64) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name FROM watched_processes WHERE profile_id = ? ORDER BY name`, profileID)
	if err != nil {
		return nil, fmt.Errorf("query watch-list: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}

		out = append(out, name)
	}

	return out, rows.Err()
}

// AddWatchedProcess adds a process name to a profile's watch-list.
func (s *SQLite) AddWatchedProcess(ctx context.Context, profileID int64, name string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO watched_processes (profile_id, name) VALUES (?, ?)`,
		profileID, native.NormalizeProcessName(name))
	if err != nil {
		return fmt.Errorf("add watched process %q: %w", name, err)
	}

	return nil
}

// DefaultThumbnailConfig returns the profile default preview settings.
func (s *SQLite) DefaultThumbnailConfig(ctx context.Context, profileID int64) (thumbnail.Settings, bool, error) {
	return s.ThumbnailConfig(ctx, profileID, defaultTitle)
}

// SaveDefaultThumbnailConfig stores the profile default preview settings.
func (s *SQLite) SaveDefaultThumbnailConfig(ctx context.Context, profileID int64, cfg thumbnail.Settings) error {
	return s.SaveThumbnailConfig(ctx, profileID, defaultTitle, cfg)
}

// ThumbnailConfig returns the per-window settings for title.
func (s *SQLite) ThumbnailConfig(ctx context.Context, profileID int64, title string) (thumbnail.Settings, bool, error) {
	var (
		cfg   thumbnail.Settings
		color string
	)

	err := s.db.QueryRowContext(ctx, `
		SELECT x, y, width, height, opacity, border_color, border_thickness, show_title
		FROM thumbnail_configs WHERE profile_id = ? AND title = ?`, profileID, title).
		Scan(&cfg.X, &cfg.Y, &cfg.Width, &cfg.Height, &cfg.Opacity, &color, &cfg.BorderThickness, &cfg.ShowTitle)
	if errors.Is(err, sql.ErrNoRows) {
		return thumbnail.DefaultSettings(), false, nil
	}

	if err != nil {
		return thumbnail.DefaultSettings(), false, fmt.Errorf("query thumbnail config %q: %w", title, err)
	}

	if cfg.BorderColor, err = ParseColor(color); err != nil {
		s.log.Warn("Stored border color is invalid, using default",
			slog.String("title", title),
			slog.String("color", color),
		)
		cfg.BorderColor = thumbnail.DefaultBorderColor
	}

	return cfg, true, nil
}

// SaveThumbnailConfig upserts the per-window settings for title.
func (s *SQLite) SaveThumbnailConfig(ctx context.Context, profileID int64, title string, cfg thumbnail.Settings) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO thumbnail_configs
			(profile_id, title, x, y, width, height, opacity, border_color, border_thickness, show_title)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (profile_id, title) DO UPDATE SET
			x = excluded.x, y = excluded.y, width = excluded.width, height = excluded.height,
			opacity = excluded.opacity, border_color = excluded.border_color,
			border_thickness = excluded.border_thickness, show_title = excluded.show_title`,
		profileID, title, cfg.X, cfg.Y, cfg.Width, cfg.Height, cfg.Opacity,
		FormatColor(cfg.BorderColor), cfg.BorderThickness, cfg.ShowTitle)
	if err != nil {
		return fmt.Errorf("save thumbnail config %q: %w", title, err)
	}

	return nil
}

// Groups returns a profile's groups ordered by id, each with its ordered members.
func (s *SQLite) Groups(ctx context.Context, profileID int64) ([]Group, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, profile_id, name, forward_hotkey, backward_hotkey
		FROM client_groups WHERE profile_id = ? ORDER BY id`, profileID)
	if err != nil {
		return nil, fmt.Errorf("query groups: %w", err)
	}

	var groups []Group
	for rows.Next() {
		var g Group
		if err := rows.Scan(&g.ID, &g.ProfileID, &g.Name, &g.ForwardHotkey, &g.BackwardHotkey); err != nil {
			rows.Close()
			return nil, err
		}

		groups = append(groups, g)
	}

	// Close before issuing member queries on the single connection.
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range groups {
		if groups[i].Members, err = s.members(ctx, groups[i].ID); err != nil {
			return nil, err
		}
	}

	return groups, nil
}

// Group returns one group with its members.
func (s *SQLite) Group(ctx context.Context, id int64) (Group, error) {
	var g Group

	err := s.db.QueryRowContext(ctx, `
		SELECT id, profile_id, name, forward_hotkey, backward_hotkey
		FROM client_groups WHERE id = ?`, id).
		Scan(&g.ID, &g.ProfileID, &g.Name, &g.ForwardHotkey, &g.BackwardHotkey)
	if errors.Is(err, sql.ErrNoRows) {
		return g, fmt.Errorf("group %d: %w", id, ErrNotFound)
	}

	if err != nil {
		return g, fmt.Errorf("query group %d: %w", id, err)
	}

	g.Members, err = s.members(ctx, id)
	return g, err
}

func (s *SQLite) members(ctx context.Context, groupID int64) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT title FROM client_group_members WHERE group_id = ? ORDER BY position`, groupID)
	if err != nil {
		return nil, fmt.Errorf("query group members: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var title string
		if err := rows.Scan(&title); err != nil {
			return nil, err
		}

		out = append(out, title)
	}

	return out, rows.Err()
}

// CreateGroup adds an empty group to a profile.
func (s *SQLite) CreateGroup(ctx context.Context, profileID int64, name, forward, backward string) (Group, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO client_groups (profile_id, name, forward_hotkey, backward_hotkey)
		VALUES (?, ?, ?, ?)`, profileID, name, forward, backward)
	if err != nil {
		return Group{}, fmt.Errorf("create group %q: %w", name, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return Group{}, err
	}

	return Group{ID: id, ProfileID: profileID, Name: name, ForwardHotkey: forward, BackwardHotkey: backward}, nil
}

// AddGroupMember appends title to the end of a group. Existing members are left in place.
func (s *SQLite) AddGroupMember(ctx context.Context, groupID int64, title string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO client_group_members (group_id, position, title)
		VALUES (?, (SELECT COALESCE(MAX(position), -1) + 1 FROM client_group_members WHERE group_id = ?), ?)`,
		groupID, groupID, title)
	if err != nil {
		return fmt.Errorf("add member %q to group %d: %w", title, groupID, err)
	}

	return nil
}

// DraggingEnabled reports whether single-preview left drags are allowed.
func (s *SQLite) DraggingEnabled(ctx context.Context) (bool, error) {
	var v string

	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, draggingKey).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return true, nil
	}

	if err != nil {
		return false, fmt.Errorf("query setting %s: %w", draggingKey, err)
	}

	return v == "1", nil
}

// SetDraggingEnabled stores the dragging setting.
func (s *SQLite) SetDraggingEnabled(ctx context.Context, enabled bool) error {
	v := "0"
	if enabled {
		v = "1"
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value`, draggingKey, v)
	if err != nil {
		return fmt.Errorf("save setting %s: %w", draggingKey, err)
	}

	return nil
}
