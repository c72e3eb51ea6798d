package storage

type migration struct {
	version int
	sql     string
}

// migrations must be ordered by version, starting at 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS users (
	id            TEXT PRIMARY KEY,
	email         TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	created_at    DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS auth_sessions (
	access_token       TEXT PRIMARY KEY,
	refresh_token      TEXT NOT NULL UNIQUE,
	user_id            TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	expires_at         DATETIME NOT NULL,
	refresh_expires_at DATETIME NOT NULL,
	created_at         DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_auth_sessions_user ON auth_sessions(user_id);
CREATE INDEX IF NOT EXISTS idx_auth_sessions_refresh_expiry ON auth_sessions(refresh_expires_at);

CREATE TABLE IF NOT EXISTS todos (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	task        TEXT NOT NULL CHECK(length(trim(task)) > 0),
	description TEXT NOT NULL DEFAULT '',
	is_complete INTEGER NOT NULL DEFAULT 0 CHECK(is_complete IN (0, 1)),
	user_id     TEXT NOT NULL,
	inserted_at DATETIME NOT NULL,
	updated_at  DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_todos_user_inserted ON todos(user_id, inserted_at DESC);
`,
	},
	{
		version: 2,
		sql: `
CREATE TABLE IF NOT EXISTS chat_histories (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL,
	message    TEXT NOT NULL,
	created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_chat_histories_session ON chat_histories(session_id, id);
`,
	},
	{
		version: 3,
		sql: `
CREATE TABLE IF NOT EXISTS model_usage (
	user_id       TEXT NOT NULL,
	provider      TEXT NOT NULL,
	calls         INTEGER NOT NULL DEFAULT 0,
	tokens_input  INTEGER NOT NULL DEFAULT 0,
	tokens_output INTEGER NOT NULL DEFAULT 0,
	updated_at    DATETIME NOT NULL,
	PRIMARY KEY (user_id, provider)
);
`,
	},
}
