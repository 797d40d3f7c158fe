package ledger

// schemaSQL bootstraps the alert ledger. The modification counter sequence
// lives in ledger_meta so deleted rows can never cause a counter value to be
// reused.
const schemaSQL = `
CREATE TABLE IF NOT EXISTS stored_alerts (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	alert_identifier TEXT NOT NULL,
	manager_identifier TEXT NOT NULL,
	issued_date TEXT NOT NULL,
	acknowledged_date TEXT,
	retracted_date TEXT,
	trigger_type INTEGER NOT NULL,
	trigger_interval REAL,
	fire_date TEXT NOT NULL,
	interruption_level INTEGER NOT NULL,
	foreground_content TEXT,
	background_content TEXT NOT NULL,
	sound TEXT,
	metadata TEXT,
	sync_id TEXT NOT NULL,
	modification_counter INTEGER NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_stored_alerts_modification_counter
	ON stored_alerts(modification_counter);
CREATE INDEX IF NOT EXISTS idx_stored_alerts_identifier
	ON stored_alerts(manager_identifier, alert_identifier);
CREATE INDEX IF NOT EXISTS idx_stored_alerts_issued_date
	ON stored_alerts(issued_date);

CREATE TABLE IF NOT EXISTS ledger_meta (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`
