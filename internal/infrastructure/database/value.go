package database

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Scan helpers. The two drivers report scalar values with different Go types
// (modernc/sqlite hands back int64/float64/string/[]byte, pgx hands back
// native and pgtype values). Repositories go through these so the difference
// never leaks past this package.

func AsString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case []byte:
		return string(s)
	case fmt.Stringer:
		return s.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}

func AsInt(v any) int {
	switch n := v.(type) {
	case int64:
		return int(n)
	case int32:
		return int(n)
	case int:
		return n
	case float64:
		return int(n)
	default:
		return 0
	}
}

func AsDecimal(v any) decimal.Decimal {
	switch n := v.(type) {
	case nil:
		return decimal.Zero
	case float64:
		return decimal.NewFromFloat(n)
	case int64:
		return decimal.NewFromInt(n)
	default:
		d, err := decimal.NewFromString(AsString(v))
		if err != nil {
			return decimal.Zero
		}
		return d
	}
}

func AsTime(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t
	case string:
		return parseTime(t)
	case []byte:
		return parseTime(string(t))
	default:
		return time.Time{}
	}
}

func AsUUID(v any) uuid.UUID {
	if b, ok := v.([16]byte); ok {
		return uuid.UUID(b)
	}
	id, err := uuid.Parse(AsString(v))
	if err != nil {
		return uuid.Nil
	}
	return id
}

// parseTime tries the formats SQLite commonly stores timestamps in. The
// driver binds a time.Time parameter in Go's default String() form, so that
// layout comes first.
func parseTime(s string) time.Time {
	for _, layout := range []string{
		"2006-01-02 15:04:05.999999999 -0700 MST",
		time.RFC3339Nano,
		"2006-01-02 15:04:05.999999999-07:00",
		"2006-01-02 15:04:05",
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
