package database

import (
	"fmt"
	"strconv"
	"strings"
)

// Dialect identifies the active relational backend. It is constructed once from
// config and injected; business code never inspects it.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

// ParseDialect validates a driver name from config.
func ParseDialect(name string) (Dialect, error) {
	switch Dialect(name) {
	case DialectPostgres, DialectSQLite:
		return Dialect(name), nil
	default:
		return "", fmt.Errorf("unsupported database driver %q (postgres|sqlite)", name)
	}
}

// Rewrite converts a query written with `?` placeholders into the placeholder
// style of the dialect. SQLite consumes `?` natively; Postgres needs `$1..$n`.
// Parameter order and values are never altered.
func (d Dialect) Rewrite(query string) string {
	if d != DialectPostgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	inLiteral := false
	for i := 0; i < len(query); i++ {
		c := query[i]
		if c == '\'' {
			inLiteral = !inLiteral
		}
		if c == '?' && !inLiteral {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}
