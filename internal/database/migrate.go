package database

import (
	"database/sql"
	"fmt"
	"strings"
)

// migrate brings the database schema up to the latest version.
func migrate(conn *sql.DB, d dialect) error {
	current, err := d.schemaVersion(conn)
	if err != nil {
		return err
	}

	latest := latestVersion()
	if current >= latest {
		return nil
	}

	for _, m := range migrations {
		if m.Version <= current {
			continue
		}

		tx, err := conn.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.Version, err)
		}

		for _, stmt := range splitStatements(d.ddl(m.Up)) {
			if _, err := tx.Exec(stmt); err != nil {
				tx.Rollback()
				return fmt.Errorf("migration %d (%s): %w", m.Version, m.Description, err)
			}
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}

		// Safe: if we crash here, the idempotent DDL lets the migration re-run.
		if err := d.setSchemaVersion(conn, m.Version); err != nil {
			return err
		}
	}

	return nil
}

// splitStatements splits a DDL script on semicolons. The migration scripts
// contain no string literals with semicolons.
func splitStatements(script string) []string {
	var stmts []string
	for _, part := range strings.Split(script, ";") {
		if s := strings.TrimSpace(part); s != "" {
			stmts = append(stmts, s)
		}
	}
	return stmts
}
