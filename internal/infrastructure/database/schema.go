package database

import (
	"context"
	"embed"
	"fmt"
	"strings"
)

//go:embed schema_postgres.sql schema_sqlite.sql
var schemaFS embed.FS

// EnsureSchema applies the dialect's schema file. Every statement uses
// IF NOT EXISTS so startup is idempotent.
func EnsureSchema(ctx context.Context, db DB) error {
	name := fmt.Sprintf("schema_%s.sql", db.Dialect())
	script, err := schemaFS.ReadFile(name)
	if err != nil {
		return fmt.Errorf("failed to read schema %s: %w", name, err)
	}

	for _, stmt := range strings.Split(string(script), ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema statement: %w", err)
		}
	}
	return nil
}
