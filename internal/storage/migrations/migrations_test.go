package migrations

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatements(t *testing.T) {
	m := Migration{Name: "001_test.sql", SQL: `-- comment
CREATE TABLE a (x Int64) ENGINE = Memory;

  -- indented comment
CREATE TABLE b (y String) ENGINE = Memory;
`}
	stmts := m.Statements()
	require.Len(t, stmts, 2)
	assert.Equal(t, "CREATE TABLE a (x Int64) ENGINE = Memory", stmts[0])
	assert.Equal(t, "CREATE TABLE b (y String) ENGINE = Memory", stmts[1])
}

func TestLoad(t *testing.T) {
	pg, err := Load(Postgres)
	require.NoError(t, err)
	require.NotEmpty(t, pg)
	assert.Equal(t, "001_tokens.sql", pg[0].Name)
	assert.Contains(t, pg[0].SQL, "CREATE TABLE IF NOT EXISTS tokens")

	ch, err := Load(Clickhouse)
	require.NoError(t, err)
	require.NotEmpty(t, ch)
	assert.Equal(t, "001_listing_attempts.sql", ch[0].Name)
	assert.Len(t, ch[0].Statements(), 1)

	_, err = Load("mysql")
	assert.Error(t, err)
}

func TestRunClickhouseMigrations_RequiresDatabase(t *testing.T) {
	_, err := RunClickhouseMigrations(t.Context(), "clickhouse://localhost:9000")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must name a database")

	_, err = RunClickhouseMigrations(t.Context(), "clickhouse://localhost:9000/bad-name")
	require.Error(t, err)
}
