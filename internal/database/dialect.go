package database

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"
)

// dialect holds the differences between SQLite and PostgreSQL that the
// queries in this package care about. Queries are written with "?"
// placeholders and {{pk}} / {{timestamp}} DDL markers.
type dialect struct {
	name      string
	dollar    bool
	pk        string
	timestamp string
}

var (
	sqliteDialect = dialect{
		name:      "sqlite",
		pk:        "INTEGER PRIMARY KEY AUTOINCREMENT",
		timestamp: "TEXT",
	}
	postgresDialect = dialect{
		name:      "postgres",
		dollar:    true,
		pk:        "BIGSERIAL PRIMARY KEY",
		timestamp: "TIMESTAMPTZ",
	}
)

func dialectFor(driver string) (dialect, error) {
	switch strings.ToLower(driver) {
	case "", "sqlite", "sqlite3":
		return sqliteDialect, nil
	case "postgres", "postgresql", "pgx":
		return postgresDialect, nil
	}
	return dialect{}, fmt.Errorf("unsupported database driver %q", driver)
}

// rebind rewrites "?" placeholders to "$1", "$2", ... for PostgreSQL.
func (d dialect) rebind(query string) string {
	if !d.dollar {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (d dialect) ddl(schema string) string {
	return strings.NewReplacer("{{pk}}", d.pk, "{{timestamp}}", d.timestamp).Replace(schema)
}

// schemaVersion reads the applied migration version. SQLite keeps it in
// PRAGMA user_version, PostgreSQL in a schema_version table.
func (d dialect) schemaVersion(conn *sql.DB) (int, error) {
	var version int
	if d.name == "sqlite" {
		if err := conn.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
			return 0, fmt.Errorf("reading schema version: %w", err)
		}
		return version, nil
	}

	if _, err := conn.Exec("CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL)"); err != nil {
		return 0, fmt.Errorf("creating schema_version: %w", err)
	}
	if err := conn.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("reading schema version: %w", err)
	}
	return version, nil
}

func (d dialect) setSchemaVersion(conn *sql.DB, version int) error {
	var err error
	if d.name == "sqlite" {
		// Outside the migration transaction (modernc/sqlite requirement).
		_, err = conn.Exec(fmt.Sprintf("PRAGMA user_version = %d", version))
	} else {
		_, err = conn.Exec("INSERT INTO schema_version (version) VALUES ($1)", version)
	}
	if err != nil {
		return fmt.Errorf("setting version %d: %w", version, err)
	}
	return nil
}
