package store

// migration pairs a schema version with the SQL that brings the
// database up to that version.
type migration struct {
	version int
	sql     string
}

// migrations are applied in order; each entry must bump the version in
// schema_version as part of its own SQL.
var migrations = []migration{
	{
		version: 1,
		sql: `
			CREATE TABLE IF NOT EXISTS schema_version (
				version INTEGER PRIMARY KEY
			);

			CREATE TABLE IF NOT EXISTS send_log (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				sent_at TEXT NOT NULL
			);

			CREATE TABLE IF NOT EXISTS audit_log (
				id TEXT PRIMARY KEY,
				email_id TEXT NOT NULL,
				subject TEXT NOT NULL,
				classification TEXT NOT NULL,
				actions TEXT NOT NULL,
				status TEXT NOT NULL,
				created_at TEXT NOT NULL
			);

			CREATE INDEX IF NOT EXISTS idx_audit_created_at
				ON audit_log(created_at);

			INSERT INTO schema_version (version) VALUES (1);
		`,
	},
}
