package engine_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"etlcore/internal/dialect"
	"etlcore/internal/engine"
	"etlcore/internal/logging"
	"etlcore/internal/schema"
	"etlcore/internal/table"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openSQLite(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := sqlx.Open("sqlite3", filepath.Join(t.TempDir(), "etl.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func stagingFixture(t *testing.T) (*schema.Reference, *table.Table) {
	t.Helper()
	ref := schema.NewReference("", "main", "orders", []schema.Column{
		{Name: "id", Type: schema.Integer},
		{Name: "name", Type: schema.VarChar, Length: 5},
	})
	tbl, err := table.New([]string{"id", "name"}, [][]any{
		{int64(1), "a"},
		{int64(2), "bb"},
		{int64(3), nil},
	})
	require.NoError(t, err)
	return ref, tbl
}

func TestSQLStagerOverwrites(t *testing.T) {
	ctx := context.Background()
	db := openSQLite(t)
	s := engine.NewSQLStager(db, &dialect.SQLiteDialect{}, 2, logging.Discard())
	progressed := 0
	s.OnProgress = func(n int) { progressed += n }

	ref, tbl := stagingFixture(t)
	name := dialect.TableName{Schema: "main", Name: "RAW_orders"}

	for i := 0; i < 2; i++ {
		n, err := s.Stage(ctx, name, ref, tbl)
		require.NoError(t, err)
		assert.Equal(t, 3, n)
	}

	var count int
	require.NoError(t, db.Get(&count, `SELECT COUNT(*) FROM "main"."RAW_orders"`))
	assert.Equal(t, 3, count, "second run must replace, not append")
	assert.Equal(t, 6, progressed)

	var typ string
	require.NoError(t, db.Get(&typ, `SELECT type FROM pragma_table_info('RAW_orders') WHERE name = 'name'`))
	assert.Equal(t, "VARCHAR(5)", typ)

	var names []sql.NullString
	require.NoError(t, db.Select(&names, `SELECT name FROM "main"."RAW_orders" ORDER BY id`))
	require.Len(t, names, 3)
	assert.Equal(t, sql.NullString{String: "bb", Valid: true}, names[1])
	assert.False(t, names[2].Valid)
}

func TestSQLStagerRollsBackOnFailure(t *testing.T) {
	ctx := context.Background()
	db := openSQLite(t)
	s := engine.NewSQLStager(db, &dialect.SQLiteDialect{}, 10, logging.Discard())

	ref, tbl := stagingFixture(t)
	name := dialect.TableName{Schema: "main", Name: "RAW_orders"}
	_, err := s.Stage(ctx, name, ref, tbl)
	require.NoError(t, err)

	// A column the staging table does not have makes the insert fail.
	bad, err := table.New([]string{"id", "other"}, [][]any{{int64(9), "x"}})
	require.NoError(t, err)
	_, err = s.Stage(ctx, name, ref, bad)
	require.Error(t, err)

	var count int
	require.NoError(t, db.Get(&count, `SELECT COUNT(*) FROM "main"."RAW_orders"`))
	assert.Equal(t, 3, count, "failed run must leave the previous staging table")
}

func TestSQLStagerRejectsEmptyTable(t *testing.T) {
	db := openSQLite(t)
	s := engine.NewSQLStager(db, &dialect.SQLiteDialect{}, 0, logging.Discard())
	_, err := s.Stage(context.Background(), dialect.TableName{Name: "RAW_x"}, schema.NewReference("", "", "x", nil), &table.Table{})
	assert.Error(t, err)
}
