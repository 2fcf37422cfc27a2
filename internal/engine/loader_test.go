package engine_test

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"etlcore/internal/coerce"
	"etlcore/internal/dialect"
	"etlcore/internal/engine"
	"etlcore/internal/etlerr"
	"etlcore/internal/logging"
	"etlcore/internal/schema"
	"etlcore/internal/table"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sqliteKillFill stands in for the kill-and-fill procedure by logging its
// arguments, since SQLite has no stored procedures.
type sqliteKillFill struct {
	dialect.SQLiteDialect
}

func (d *sqliteKillFill) KillFillCall(procedure string) (string, error) {
	return `INSERT INTO kill_fill_calls (tbl, org, stage_db, dest_schema) VALUES (?, ?, ?, ?)`, nil
}

type fakeStager struct {
	calls int
}

func (f *fakeStager) Stage(ctx context.Context, name dialect.TableName, ref *schema.Reference, t *table.Table) (int, error) {
	f.calls++
	return t.Len(), nil
}

type fakeExecutor struct {
	queries []string
	args    [][]any
	err     error
}

func (f *fakeExecutor) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	f.queries = append(f.queries, query)
	f.args = append(f.args, args)
	return nil, f.err
}

type recordingMetrics struct {
	mu     sync.Mutex
	stages map[etlerr.Stage]error
	staged int
	nulled int
}

func (m *recordingMetrics) RecordStage(table string, stage etlerr.Stage, d time.Duration, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stages == nil {
		m.stages = map[etlerr.Stage]error{}
	}
	m.stages[stage] = err
}

func (m *recordingMetrics) RecordRows(table string, staged, nulled int) {
	m.staged, m.nulled = staged, nulled
}

func destDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db := openSQLite(t)
	db.MustExec(`CREATE TABLE orders (id INTEGER, name VARCHAR(50), amount NUMERIC, ordered DATE, payload BLOB)`)
	db.MustExec(`CREATE TABLE kill_fill_calls (tbl TEXT, org TEXT, stage_db TEXT, dest_schema TEXT)`)
	return db
}

func rawOrders(t *testing.T) *table.Table {
	t.Helper()
	raw, err := table.New([]string{"extra", "ordered", "id", "name", "amount"}, [][]any{
		{"x", "2024-01-01", "1", "alice", "12.50"},
		{"y", "not-a-date", "two", "bob", "3"},
	})
	require.NoError(t, err)
	return raw
}

func newLoader(db *sqlx.DB, stager engine.Stager, exec engine.Executor, opts engine.LoaderOptions) *engine.Loader {
	d := &sqliteKillFill{}
	log := logging.Discard()
	return engine.NewLoader(
		schema.NewResolver(db.Unsafe(), d, "", log),
		coerce.New(log),
		stager, exec, d, opts, log,
	)
}

var ordersReq = engine.LoadRequest{StageSchema: "main", DestSchema: "main", Table: "orders"}

func TestLoadEndToEnd(t *testing.T) {
	ctx := context.Background()
	db := destDB(t)
	d := &sqliteKillFill{}
	metrics := &recordingMetrics{}
	l := newLoader(db, engine.NewSQLStager(db, d, 100, logging.Discard()), db, engine.LoaderOptions{Org: "acme"}).
		WithMetrics(metrics)

	raw := rawOrders(t)
	before := raw.Clone()

	res, err := l.Load(ctx, ordersReq, raw)
	require.NoError(t, err)

	assert.Equal(t, before, raw)
	assert.Equal(t, `"main"."RAW_orders"`, res.StageTable)
	assert.Equal(t, 2, res.RowsStaged)
	assert.Equal(t, map[string]int{"id": 1, "ordered": 1}, res.Nulled)
	assert.Len(t, res.Durations, 4)
	assert.NotEqual(t, "00000000-0000-0000-0000-000000000000", res.RunID.String())

	names := make([]string, len(res.Columns))
	for i, c := range res.Columns {
		names[i] = c.Name
	}
	assert.Equal(t, []string{"id", "name", "amount", "ordered"}, names, "blob column is skipped")
	assert.Equal(t, 5, res.Columns[1].Length)

	var ids []sql.NullInt64
	require.NoError(t, db.Select(&ids, `SELECT id FROM "main"."RAW_orders" ORDER BY rowid`))
	assert.Equal(t, []sql.NullInt64{{Int64: 1, Valid: true}, {}}, ids)

	var call struct {
		Tbl        string `db:"tbl"`
		Org        string `db:"org"`
		StageDB    string `db:"stage_db"`
		DestSchema string `db:"dest_schema"`
	}
	require.NoError(t, db.Get(&call, `SELECT * FROM kill_fill_calls`))
	assert.Equal(t, "orders", call.Tbl)
	assert.Equal(t, "acme", call.Org)
	assert.Equal(t, "main", call.DestSchema)

	assert.Len(t, metrics.stages, 4)
	assert.Equal(t, 2, metrics.staged)
	assert.Equal(t, 2, metrics.nulled)
}

func TestLoadTwiceReplacesStaging(t *testing.T) {
	ctx := context.Background()
	db := destDB(t)
	l := newLoader(db, engine.NewSQLStager(db, &sqliteKillFill{}, 1, logging.Discard()), db, engine.LoaderOptions{})

	for i := 0; i < 2; i++ {
		_, err := l.Load(ctx, ordersReq, rawOrders(t))
		require.NoError(t, err)
	}

	var staged, calls int
	require.NoError(t, db.Get(&staged, `SELECT COUNT(*) FROM "main"."RAW_orders"`))
	require.NoError(t, db.Get(&calls, `SELECT COUNT(*) FROM kill_fill_calls`))
	assert.Equal(t, 2, staged)
	assert.Equal(t, 2, calls)
}

func TestLoadMissingColumnStopsBeforeStaging(t *testing.T) {
	db := destDB(t)
	stager := &fakeStager{}
	exec := &fakeExecutor{}
	l := newLoader(db, stager, exec, engine.LoaderOptions{})

	raw, err := table.New([]string{"id", "name"}, [][]any{{"1", "a"}})
	require.NoError(t, err)

	res, err := l.Load(context.Background(), ordersReq, raw)
	require.ErrorIs(t, err, etlerr.ErrMissingColumn)

	var se *etlerr.StageError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, etlerr.StageCoerce, se.Stage)
	assert.Equal(t, "orders", se.Table)

	var mce *etlerr.MissingColumnError
	require.True(t, errors.As(err, &mce))
	assert.Equal(t, []string{"amount", "ordered"}, mce.Columns)

	assert.Zero(t, stager.calls)
	assert.Empty(t, exec.queries)
	assert.Contains(t, res.Durations, etlerr.StageResolve)
	assert.Equal(t, etlerr.ExitDataError, etlerr.ExitCode(err))
}

type opaque struct{}

func TestLoadCoercionErrorPolicy(t *testing.T) {
	raw, err := table.New([]string{"id", "name", "amount", "ordered"}, [][]any{
		{opaque{}, "a", "1", "2024-01-01"},
	})
	require.NoError(t, err)

	db := destDB(t)
	stager := &fakeStager{}
	_, err = newLoader(db, stager, &fakeExecutor{}, engine.LoaderOptions{}).Load(context.Background(), ordersReq, raw)
	require.ErrorIs(t, err, etlerr.ErrCoercion)
	assert.Zero(t, stager.calls)

	exec := &fakeExecutor{}
	res, err := newLoader(db, stager, exec, engine.LoaderOptions{TolerateCoercionErrors: true}).Load(context.Background(), ordersReq, raw)
	require.NoError(t, err)
	assert.Equal(t, 1, stager.calls)
	assert.Len(t, exec.queries, 1)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, "id", res.Failures[0].Column)
}

func TestLoadKillFillFailure(t *testing.T) {
	db := destDB(t)
	exec := &fakeExecutor{err: errors.New("deadlock victim")}
	res, err := newLoader(db, &fakeStager{}, exec, engine.LoaderOptions{}).Load(context.Background(), ordersReq, rawOrders(t))

	require.ErrorIs(t, err, etlerr.ErrKillFill)
	var se *etlerr.StageError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, etlerr.StageKillFill, se.Stage)
	assert.Equal(t, 2, res.RowsStaged)
	assert.Equal(t, []any{"orders", "", "", "main"}, exec.args[0])
}

func TestLoadKillFillDefaultsDestSchema(t *testing.T) {
	db := destDB(t)
	exec := &fakeExecutor{}
	req := ordersReq
	req.DestSchema = ""

	_, err := newLoader(db, &fakeStager{}, exec, engine.LoaderOptions{Org: "acme"}).Load(context.Background(), req, rawOrders(t))
	require.NoError(t, err)
	require.Len(t, exec.args, 1)
	assert.Equal(t, []any{"orders", "acme", "", "main"}, exec.args[0], "kill and fill sees the schema that was resolved")
}

func TestLoadResolveFailure(t *testing.T) {
	db := destDB(t)
	stager := &fakeStager{}
	req := ordersReq
	req.Table = "missing"

	_, err := newLoader(db, stager, &fakeExecutor{}, engine.LoaderOptions{}).Load(context.Background(), req, rawOrders(t))
	require.ErrorIs(t, err, etlerr.ErrSchemaResolution)
	assert.Zero(t, stager.calls)

	req.Table = "orders; DROP TABLE orders"
	_, err = newLoader(db, stager, &fakeExecutor{}, engine.LoaderOptions{}).Load(context.Background(), req, rawOrders(t))
	require.ErrorIs(t, err, etlerr.ErrInvalidConfig)
}

func TestLoadStagingFailure(t *testing.T) {
	db := destDB(t)
	exec := &fakeExecutor{}
	l := newLoader(db, engine.NewSQLStager(db, &sqliteKillFill{}, 10, logging.Discard()), exec, engine.LoaderOptions{})

	req := ordersReq
	req.StageSchema = "nosuchschema"
	_, err := l.Load(context.Background(), req, rawOrders(t))
	require.ErrorIs(t, err, etlerr.ErrStagingWrite)
	assert.Empty(t, exec.queries, "kill and fill must not run after a staging failure")
}

func TestRunProcedure(t *testing.T) {
	log := logging.Discard()
	d := &dialect.MSSQLDialect{}
	exec := &fakeExecutor{}
	l := engine.NewLoader(schema.NewResolver(nil, d, "", log), coerce.New(log), &fakeStager{}, exec, d, engine.LoaderOptions{}, log)
	ctx := context.Background()

	require.NoError(t, l.RunProcedure(ctx, "Sales", "dbo", "spRefresh"))
	assert.Equal(t, []string{"EXEC [Sales].[dbo].[spRefresh]"}, exec.queries)

	err := l.RunProcedure(ctx, "Sales", "dbo", "sp; DROP TABLE x")
	assert.ErrorIs(t, err, etlerr.ErrProcedure)
	assert.Len(t, exec.queries, 1)

	exec.err = errors.New("permission denied")
	err = l.RunProcedure(ctx, "Sales", "", "spRefresh")
	assert.ErrorIs(t, err, etlerr.ErrProcedure)
	assert.Equal(t, "EXEC [Sales].[dbo].[spRefresh]", exec.queries[1])

	assert.ErrorIs(t, l.RunProcWithParams(ctx, "Sales", "dbo", "spRefresh", nil), etlerr.ErrNotImplemented)
	_, err = l.Upsert(ctx, ordersReq, nil)
	assert.ErrorIs(t, err, etlerr.ErrNotImplemented)
}

func TestRunProcedureUnsupportedDialect(t *testing.T) {
	db := destDB(t)
	l := newLoader(db, &fakeStager{}, db, engine.LoaderOptions{})
	err := l.RunProcedure(context.Background(), "", "main", "refresh")
	assert.ErrorIs(t, err, etlerr.ErrProcedure)
	assert.ErrorIs(t, err, dialect.ErrUnsupported)
}
