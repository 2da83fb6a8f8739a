package database

// schema is written for postgres; TIMESTAMPTZ is rewritten to TIMESTAMP for SQLite.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS guilds (
        id TEXT PRIMARY KEY,
        name TEXT NOT NULL,
        icon_url TEXT,
        created_at TIMESTAMPTZ NOT NULL,
        edited_at TIMESTAMPTZ,
        deleted_at TIMESTAMPTZ
    );`,
	`CREATE TABLE IF NOT EXISTS categories (
        id TEXT PRIMARY KEY,
        guild_id TEXT NOT NULL REFERENCES guilds(id),
        name TEXT NOT NULL,
        position INTEGER NOT NULL DEFAULT 0,
        created_at TIMESTAMPTZ NOT NULL,
        edited_at TIMESTAMPTZ,
        deleted_at TIMESTAMPTZ
    );`,
	`CREATE TABLE IF NOT EXISTS channels (
        id TEXT PRIMARY KEY,
        guild_id TEXT NOT NULL REFERENCES guilds(id),
        category_id TEXT REFERENCES categories(id),
        name TEXT NOT NULL,
        type TEXT NOT NULL,
        created_at TIMESTAMPTZ NOT NULL,
        edited_at TIMESTAMPTZ,
        deleted_at TIMESTAMPTZ
    );`,
	`CREATE TABLE IF NOT EXISTS threads (
        id TEXT PRIMARY KEY,
        channel_id TEXT NOT NULL REFERENCES channels(id),
        name TEXT NOT NULL,
        archived_at TIMESTAMPTZ,
        created_at TIMESTAMPTZ NOT NULL,
        edited_at TIMESTAMPTZ,
        deleted_at TIMESTAMPTZ
    );`,
	`CREATE TABLE IF NOT EXISTS roles (
        id TEXT PRIMARY KEY,
        guild_id TEXT NOT NULL REFERENCES guilds(id),
        name TEXT NOT NULL,
        color INTEGER NOT NULL DEFAULT 0,
        created_at TIMESTAMPTZ NOT NULL,
        edited_at TIMESTAMPTZ,
        deleted_at TIMESTAMPTZ
    );`,
	`CREATE TABLE IF NOT EXISTS users (
        id TEXT PRIMARY KEY,
        names TEXT NOT NULL DEFAULT '[]',
        avatar_url TEXT,
        is_bot BOOLEAN NOT NULL DEFAULT FALSE,
        created_at TIMESTAMPTZ NOT NULL,
        edited_at TIMESTAMPTZ
    );`,
	`CREATE TABLE IF NOT EXISTS messages (
        id TEXT PRIMARY KEY,
        guild_id TEXT NOT NULL,
        channel_id TEXT REFERENCES channels(id),
        thread_id TEXT REFERENCES threads(id),
        author_id TEXT NOT NULL REFERENCES users(id),
        content TEXT NOT NULL DEFAULT '',
        is_command BOOLEAN NOT NULL DEFAULT FALSE,
        created_at TIMESTAMPTZ NOT NULL,
        edited_at TIMESTAMPTZ,
        deleted_at TIMESTAMPTZ,
        CHECK ((channel_id IS NULL) <> (thread_id IS NULL))
    );`,
	`CREATE TABLE IF NOT EXISTS attachments (
        id TEXT PRIMARY KEY,
        message_id TEXT NOT NULL REFERENCES messages(id),
        filename TEXT NOT NULL,
        url TEXT NOT NULL
    );`,
	`CREATE TABLE IF NOT EXISTS emojis (
        id TEXT PRIMARY KEY,
        name TEXT NOT NULL,
        url TEXT,
        animated BOOLEAN NOT NULL DEFAULT FALSE
    );`,
	`CREATE TABLE IF NOT EXISTS reactions (
        message_id TEXT NOT NULL REFERENCES messages(id),
        emoji_id TEXT NOT NULL REFERENCES emojis(id),
        member_ids TEXT NOT NULL DEFAULT '[]',
        created_at TIMESTAMPTZ NOT NULL,
        PRIMARY KEY (message_id, emoji_id)
    );`,
	`CREATE TABLE IF NOT EXISTS message_emojis (
        message_id TEXT NOT NULL REFERENCES messages(id),
        emoji_id TEXT NOT NULL REFERENCES emojis(id),
        count INTEGER NOT NULL DEFAULT 1,
        PRIMARY KEY (message_id, emoji_id)
    );`,
	`CREATE TABLE IF NOT EXISTS logger_processes (
        channel_id TEXT NOT NULL,
        from_date TIMESTAMPTZ NOT NULL,
        to_date TIMESTAMPTZ NOT NULL,
        finished_at TIMESTAMPTZ,
        PRIMARY KEY (channel_id, from_date)
    );`,
	"CREATE INDEX IF NOT EXISTS idx_messages_channel_created ON messages(channel_id, created_at);",
	"CREATE INDEX IF NOT EXISTS idx_messages_thread_created ON messages(thread_id, created_at);",
	"CREATE INDEX IF NOT EXISTS idx_messages_author ON messages(author_id);",
	"CREATE INDEX IF NOT EXISTS idx_threads_channel ON threads(channel_id);",
	"CREATE INDEX IF NOT EXISTS idx_logger_processes_to_date ON logger_processes(channel_id, to_date);",
}
