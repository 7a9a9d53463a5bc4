package repo

import "database/sql"

// SQLite has no row locks. Transitions rely on the connection opening
// IMMEDIATE transactions (_txlock=immediate), which take the database write
// lock before the read half of the read-modify-write.
var SQLite = Dialect{
	Name:          "sqlite",
	DriverName:    "sqlite",
	timestampType: "DATETIME",
	lockClause:    "",
	numbered:      false,
}

func NewSQLiteMessageRepo(db *sql.DB) *SQLMessageRepo {
	return NewSQLMessageRepo(db, SQLite)
}
