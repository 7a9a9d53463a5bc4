package repo

import "fmt"

func (d Dialect) schema() []string {
	return []string{
		fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS sms (
			id              TEXT PRIMARY KEY,
			"to"            TEXT NOT NULL CHECK ("to" <> ''),
			message         TEXT NOT NULL CHECK (message <> ''),
			status          TEXT NOT NULL DEFAULT 'PENDING'
			                CHECK (status IN ('PENDING', 'SENT', 'FAILED')),
			attempt_count   INTEGER NOT NULL DEFAULT 0 CHECK (attempt_count >= 0),
			last_attempt_at %[1]s,
			sent_at         %[1]s,
			fail_reason     TEXT,
			created_at      %[1]s NOT NULL
		)`, d.timestampType),
		`CREATE INDEX IF NOT EXISTS idx_sms_status_created ON sms (status, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_sms_to_created ON sms ("to", created_at DESC)`,
	}
}
