package repo

import (
	"fmt"
	"strconv"
	"strings"
)

// Dialect holds the few places where Postgres and SQLite disagree.
type Dialect struct {
	Name          string
	DriverName    string
	timestampType string
	lockClause    string
	numbered      bool
}

func DialectFor(driverName string) (Dialect, error) {
	switch driverName {
	case Postgres.DriverName:
		return Postgres, nil
	case SQLite.DriverName:
		return SQLite, nil
	}
	return Dialect{}, fmt.Errorf("unsupported sql driver %q", driverName)
}

// rebind rewrites ? placeholders into $n for dialects that number them.
func (d Dialect) rebind(q string) string {
	if !d.numbered {
		return q
	}

	var b strings.Builder
	b.Grow(len(q) + 8)
	n := 0
	for i := 0; i < len(q); i++ {
		if q[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(q[i])
	}
	return b.String()
}
