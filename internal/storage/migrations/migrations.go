// Package migrations applies the embedded schema of the PostgreSQL token store and the
// ClickHouse attempt log. Each database records the files it has applied, and an applied
// file is never run again.
package migrations

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
)

//go:embed postgres/*.sql clickhouse/*.sql
var embedded embed.FS

// Dialects with embedded migrations.
const (
	Postgres   = "postgres"
	Clickhouse = "clickhouse"
)

// trackingTable records applied migration names.
const trackingTable = "schema_migrations"

// Migration is one embedded SQL file.
type Migration struct {
	Name string // file name, e.g. 001_tokens.sql
	SQL  string
}

// Load returns the non-empty migrations of dialect ordered by file name.
func Load(dialect string) ([]Migration, error) {
	entries, err := fs.ReadDir(embedded, dialect)
	if err != nil {
		return nil, fmt.Errorf("read %s migrations: %w", dialect, err)
	}

	var out []Migration
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		data, err := fs.ReadFile(embedded, path.Join(dialect, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", entry.Name(), err)
		}
		if strings.TrimSpace(string(data)) == "" {
			continue
		}
		out = append(out, Migration{Name: entry.Name(), SQL: string(data)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Statements splits m into single statements after dropping comment lines.
// A semicolon inside a string literal is not supported.
func (m Migration) Statements() []string {
	var b strings.Builder
	for _, line := range strings.Split(m.SQL, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}

	var stmts []string
	for _, part := range strings.Split(b.String(), ";") {
		if stmt := strings.TrimSpace(part); stmt != "" {
			stmts = append(stmts, stmt)
		}
	}
	return stmts
}
