package repo

import "database/sql"

// Postgres locks the row being transitioned with SELECT ... FOR UPDATE, so
// concurrent transitions on one id queue up behind each other across
// processes.
var Postgres = Dialect{
	Name:          "postgres",
	DriverName:    "pgx",
	timestampType: "TIMESTAMPTZ",
	lockClause:    " FOR UPDATE",
	numbered:      true,
}

func NewPostgresMessageRepo(db *sql.DB) *SQLMessageRepo {
	return NewSQLMessageRepo(db, Postgres)
}
