package devicestore

type migration struct {
	version int
	sql     string
}

var migrations = []migration{
	{
		version: 1,
		sql: `
			CREATE TABLE IF NOT EXISTS notifications (
				id        TEXT PRIMARY KEY,
				title     TEXT NOT NULL,
				body      TEXT NOT NULL,
				data      TEXT NOT NULL DEFAULT '{}',
				timestamp DATETIME NOT NULL,
				is_read   INTEGER NOT NULL DEFAULT 0,
				source    TEXT NOT NULL
			);

			CREATE TABLE IF NOT EXISTS device_kv (
				key   TEXT PRIMARY KEY,
				value TEXT NOT NULL
			);

			CREATE TABLE IF NOT EXISTS schema_version (
				version    INTEGER PRIMARY KEY,
				applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
			);

			INSERT INTO schema_version (version) VALUES (1);
		`,
	},
}
