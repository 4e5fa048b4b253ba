package sqlite

import (
	"context"
	"database/sql"
)

// schema contains the SQL statements to set up the database schema.
// These run on startup to ensure tables exist.
// Timestamps are UTC Unix milliseconds. Money is integer cents.
// IMPORTANT: the UNIQUE constraint on active(member_id, event_id) backs the
// one-session-per-pair rule; do not drop it.
const schema = `
CREATE TABLE IF NOT EXISTS roles (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL UNIQUE,
    admin INTEGER NOT NULL DEFAULT 0,
    mentor INTEGER NOT NULL DEFAULT 0,
    can_display INTEGER NOT NULL DEFAULT 0,
    autoload INTEGER NOT NULL DEFAULT 0,
    can_see_subteam INTEGER NOT NULL DEFAULT 0,
    receives_funds INTEGER NOT NULL DEFAULT 0,
    visible INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS subteams (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS members (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL UNIQUE,
    display_name TEXT NOT NULL,
    code TEXT NOT NULL UNIQUE,
    approved INTEGER NOT NULL DEFAULT 0,
    role_id TEXT NOT NULL,
    subteam_id TEXT,
    created_at INTEGER NOT NULL,
    FOREIGN KEY (role_id) REFERENCES roles(id),
    FOREIGN KEY (subteam_id) REFERENCES subteams(id) ON DELETE SET NULL
);

CREATE TABLE IF NOT EXISTS event_types (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL UNIQUE,
    description TEXT NOT NULL DEFAULT '',
    autoload INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS events (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    location TEXT NOT NULL DEFAULT '',
    code TEXT NOT NULL UNIQUE,
    starts_at INTEGER NOT NULL,
    ends_at INTEGER NOT NULL,
    type_id TEXT,
    enabled INTEGER NOT NULL DEFAULT 1,
    pre_event_minutes INTEGER NOT NULL DEFAULT 0,
    post_event_minutes INTEGER NOT NULL DEFAULT 0,
    funds INTEGER NOT NULL DEFAULT 0,
    cost INTEGER NOT NULL DEFAULT 0,
    overhead REAL NOT NULL DEFAULT 0,
    CHECK (starts_at < ends_at),
    FOREIGN KEY (type_id) REFERENCES event_types(id) ON DELETE SET NULL
);

CREATE TABLE IF NOT EXISTS active (
    id TEXT PRIMARY KEY,
    member_id TEXT NOT NULL,
    event_id TEXT NOT NULL,
    started_at INTEGER NOT NULL,
    UNIQUE (member_id, event_id),
    FOREIGN KEY (member_id) REFERENCES members(id) ON DELETE CASCADE,
    FOREIGN KEY (event_id) REFERENCES events(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS stamps (
    id TEXT PRIMARY KEY,
    member_id TEXT NOT NULL,
    event_id TEXT NOT NULL,
    started_at INTEGER NOT NULL,
    ended_at INTEGER NOT NULL,
    FOREIGN KEY (member_id) REFERENCES members(id) ON DELETE CASCADE,
    FOREIGN KEY (event_id) REFERENCES events(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS event_blocks (
    id TEXT PRIMARY KEY,
    event_id TEXT NOT NULL,
    starts_at INTEGER NOT NULL,
    ends_at INTEGER NOT NULL,
    FOREIGN KEY (event_id) REFERENCES events(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS block_registrations (
    block_id TEXT NOT NULL,
    member_id TEXT NOT NULL,
    PRIMARY KEY (block_id, member_id),
    FOREIGN KEY (block_id) REFERENCES event_blocks(id) ON DELETE CASCADE,
    FOREIGN KEY (member_id) REFERENCES members(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_members_role_id ON members(role_id);
CREATE INDEX IF NOT EXISTS idx_events_starts_at ON events(starts_at);
CREATE INDEX IF NOT EXISTS idx_active_event_id ON active(event_id);
CREATE INDEX IF NOT EXISTS idx_stamps_event_id ON stamps(event_id);
CREATE INDEX IF NOT EXISTS idx_stamps_member_id ON stamps(member_id);
CREATE INDEX IF NOT EXISTS idx_event_blocks_event_id ON event_blocks(event_id);
`

// runMigrations executes the schema setup.
func runMigrations(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, schema)
	return err
}
