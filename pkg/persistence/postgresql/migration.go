package postgresql

// migrations returns the schema migrations keyed by version.
func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE IF NOT EXISTS bots (
				id TEXT PRIMARY KEY,
				token TEXT NOT NULL UNIQUE,
				username TEXT NOT NULL DEFAULT '',
				first_name TEXT NOT NULL DEFAULT '',
				owner_chat_id TEXT NOT NULL DEFAULT '',
				active BOOLEAN NOT NULL DEFAULT FALSE,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE TABLE IF NOT EXISTS flows (
				id TEXT PRIMARY KEY,
				bot_id TEXT NOT NULL,
				name TEXT NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				active BOOLEAN NOT NULL DEFAULT FALSE,
				is_default BOOLEAN NOT NULL DEFAULT FALSE,
				nodes JSONB NOT NULL DEFAULT '[]',
				edges JSONB NOT NULL DEFAULT '[]',
				triggers JSONB NOT NULL DEFAULT '[]',
				variables JSONB NOT NULL DEFAULT '{}',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE INDEX IF NOT EXISTS idx_flows_bot_id ON flows (bot_id);
			CREATE INDEX IF NOT EXISTS idx_flows_default
				ON flows (bot_id) WHERE is_default AND active;

			CREATE TABLE IF NOT EXISTS sessions (
				bot_id TEXT NOT NULL,
				user_id TEXT NOT NULL,
				session_id TEXT NOT NULL,
				current_node_id TEXT NOT NULL DEFAULT '',
				variables JSONB NOT NULL DEFAULT '{}',
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				PRIMARY KEY (bot_id, user_id, session_id)
			);

			CREATE INDEX IF NOT EXISTS idx_sessions_updated_at ON sessions (updated_at);
		`,
	}
}
