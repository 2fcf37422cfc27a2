package engine_test

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"etlcore/internal/dialect"
	"etlcore/internal/engine"
	"etlcore/internal/logging"
	"etlcore/internal/schema"
	"etlcore/internal/table"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	mssql "github.com/microsoft/go-mssqldb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// copyRecorder stands in for a SQL Server connection: it keeps every
// statement and its arguments exactly as the bulk encoder would receive them.
type copyRecorder struct {
	mu        sync.Mutex
	copyQuery string
	failFlush bool
	execs     []recordedExec
	committed bool
}

type recordedExec struct {
	query string
	args  []driver.Value
}

var (
	recordersMu sync.Mutex
	recorders   = map[string]*copyRecorder{}
)

func init() {
	sql.Register("copyrecorder", recordingDriver{})
}

type recordingDriver struct{}

func (recordingDriver) Open(name string) (driver.Conn, error) {
	recordersMu.Lock()
	defer recordersMu.Unlock()
	rec, ok := recorders[name]
	if !ok {
		return nil, fmt.Errorf("no recorder %q", name)
	}
	return &recordingConn{rec: rec}, nil
}

type recordingConn struct{ rec *copyRecorder }

func (c *recordingConn) Prepare(query string) (driver.Stmt, error) {
	return &recordingStmt{rec: c.rec, query: query}, nil
}
func (c *recordingConn) Close() error              { return nil }
func (c *recordingConn) Begin() (driver.Tx, error) { return &recordingTx{rec: c.rec}, nil }

// CheckNamedValue accepts every argument unchanged, like the mssql driver does.
func (c *recordingConn) CheckNamedValue(*driver.NamedValue) error { return nil }

type recordingStmt struct {
	rec   *copyRecorder
	query string
}

func (s *recordingStmt) Close() error  { return nil }
func (s *recordingStmt) NumInput() int { return -1 }

func (s *recordingStmt) Exec(args []driver.Value) (driver.Result, error) {
	s.rec.mu.Lock()
	defer s.rec.mu.Unlock()
	if s.rec.failFlush && s.query == s.rec.copyQuery && len(args) == 0 {
		return nil, errors.New("bulk load failed")
	}
	s.rec.execs = append(s.rec.execs, recordedExec{query: s.query, args: args})
	return driver.RowsAffected(1), nil
}

func (s *recordingStmt) Query(args []driver.Value) (driver.Rows, error) {
	return nil, errors.New("query not supported")
}

type recordingTx struct{ rec *copyRecorder }

func (tx *recordingTx) Commit() error {
	tx.rec.mu.Lock()
	defer tx.rec.mu.Unlock()
	tx.rec.committed = true
	return nil
}
func (tx *recordingTx) Rollback() error { return nil }

// copyRows returns the argument lists of the per-row bulk copy calls.
func (r *copyRecorder) copyRows() [][]driver.Value {
	var rows [][]driver.Value
	for _, e := range r.execs {
		if e.query == r.copyQuery && len(e.args) > 0 {
			rows = append(rows, e.args)
		}
	}
	return rows
}

func (r *copyRecorder) find(prefix string) string {
	for _, e := range r.execs {
		if strings.HasPrefix(e.query, prefix) {
			return e.query
		}
	}
	return ""
}

var bulkStage = dialect.TableName{Database: "Stage", Schema: "dbo", Name: "RAW_devices"}

func openRecorder(t *testing.T, cols []string) (*sqlx.DB, *copyRecorder) {
	t.Helper()
	rec := &copyRecorder{copyQuery: (&dialect.MSSQLDialect{}).CopyInQuery(bulkStage, cols)}
	recordersMu.Lock()
	recorders[t.Name()] = rec
	recordersMu.Unlock()
	t.Cleanup(func() {
		recordersMu.Lock()
		delete(recorders, t.Name())
		recordersMu.Unlock()
	})

	db, err := sqlx.Open("copyrecorder", t.Name())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, rec
}

func devicesRef() *schema.Reference {
	return schema.NewReference("", "dbo", "devices", []schema.Column{
		{Name: "id", Type: schema.UniqueIdentifier},
		{Name: "active", Type: schema.Boolean},
		{Name: "city", Type: schema.VarChar, Length: 4},
	})
}

func TestSQLStagerBulkCopyConvertsPassthroughColumns(t *testing.T) {
	cols := []string{"id", "active", "city"}
	db, rec := openRecorder(t, cols)
	s := engine.NewSQLStager(db, &dialect.MSSQLDialect{}, 500, logging.Discard())
	progressed := 0
	s.OnProgress = func(n int) { progressed += n }

	tbl, err := table.New(cols, [][]any{
		{"6F9619FF-8B86-D011-B42D-00C04FC964FF", "1", "Köln"},
		{nil, "false", "Rome"},
	})
	require.NoError(t, err)

	n, err := s.Stage(context.Background(), bulkStage, devicesRef(), tbl)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 2, progressed)
	assert.True(t, rec.committed)

	rows := rec.copyRows()
	require.Len(t, rows, 2)
	want := mssql.UniqueIdentifier(uuid.MustParse("6F9619FF-8B86-D011-B42D-00C04FC964FF"))
	assert.Equal(t, []driver.Value{want, true, "Köln"}, rows[0])
	assert.Equal(t, []driver.Value{nil, false, "Rome"}, rows[1])

	// "Köln" is four characters but five UTF-8 bytes.
	assert.Contains(t, rec.find("CREATE TABLE"), "[city] VARCHAR(5) NULL")
	assert.Contains(t, rec.find("CREATE TABLE"), "[id] UNIQUEIDENTIFIER NULL")
	assert.Contains(t, rec.find("CREATE TABLE"), "[active] BIT NULL")

	last := rec.execs[len(rec.execs)-1]
	assert.Equal(t, rec.copyQuery, last.query)
	assert.Empty(t, last.args, "rows are flushed by an argument-less exec")
}

func TestSQLStagerBulkCopyRejectsBadGUID(t *testing.T) {
	cols := []string{"id", "active", "city"}
	db, rec := openRecorder(t, cols)
	s := engine.NewSQLStager(db, &dialect.MSSQLDialect{}, 500, logging.Discard())

	tbl, err := table.New(cols, [][]any{{"not-a-guid", "1", "Rome"}})
	require.NoError(t, err)

	n, err := s.Stage(context.Background(), bulkStage, devicesRef(), tbl)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "column id")
	assert.Zero(t, n)
	assert.False(t, rec.committed)
	assert.Empty(t, rec.copyRows())
}

func TestSQLStagerBulkCopyFlushFailureKeepsCount(t *testing.T) {
	cols := []string{"id", "active", "city"}
	db, rec := openRecorder(t, cols)
	rec.failFlush = true
	s := engine.NewSQLStager(db, &dialect.MSSQLDialect{}, 500, logging.Discard())

	tbl, err := table.New(cols, [][]any{
		{nil, "1", "Rome"},
		{nil, "0", "Oslo"},
	})
	require.NoError(t, err)

	n, err := s.Stage(context.Background(), bulkStage, devicesRef(), tbl)
	require.ErrorContains(t, err, "bulk copy flush")
	assert.Equal(t, 2, n)
	assert.False(t, rec.committed)
}
