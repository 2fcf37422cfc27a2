package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"etlcore/internal/coerce"
	"etlcore/internal/dialect"
	"etlcore/internal/schema"
	"etlcore/internal/table"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

const DefaultBatchSize = 500

// SQLStager writes a reconciled table to a staging table, dropping and
// recreating it first.
type SQLStager struct {
	db        *sqlx.DB
	d         dialect.Dialect
	batchSize int
	log       logrus.FieldLogger

	// OnProgress, when set, is called with the number of rows just written.
	OnProgress func(rows int)
}

func NewSQLStager(db *sqlx.DB, d dialect.Dialect, batchSize int, log logrus.FieldLogger) *SQLStager {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &SQLStager{db: db, d: d, batchSize: batchSize, log: log}
}

// Stage replaces name with the contents of t, typed by ref. Everything runs in
// one transaction; engines whose DDL commits implicitly (MySQL, Oracle) only
// get the inserts rolled back on failure.
func (s *SQLStager) Stage(ctx context.Context, name dialect.TableName, ref *schema.Reference, t *table.Table) (n int, err error) {
	if len(t.Columns) == 0 {
		return 0, errors.New("no columns to stage")
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if err = s.d.BeforeStaging(tx.Tx); err != nil {
		return 0, fmt.Errorf("before staging hook: %w", err)
	}
	if _, err = tx.ExecContext(ctx, s.d.DropTableQuery(name)); err != nil {
		return 0, fmt.Errorf("failed to drop %s: %w", s.d.QualifiedName(name), err)
	}

	if bs, ok := s.d.(dialect.ByteSizedVarChar); ok && bs.VarCharBytes() {
		ref = coerce.WidenVarCharToBytes(t, ref)
	}
	defs := make([]dialect.ColumnDef, 0, ref.Len())
	for _, c := range ref.Columns() {
		defs = append(defs, dialect.ColumnDef{Name: c.Name, Type: c.Type.String(), Length: c.Length})
	}
	if _, err = tx.ExecContext(ctx, s.d.CreateTableQuery(name, defs)); err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", s.d.QualifiedName(name), err)
	}

	if bc, ok := s.d.(dialect.BulkCopier); ok {
		n, err = s.bulkCopy(ctx, tx.Tx, bc, name, ref, t)
	} else {
		n, err = s.batchInsert(ctx, tx.Tx, name, t)
	}
	if err != nil {
		return n, err
	}

	if err = tx.Commit(); err != nil {
		return n, fmt.Errorf("failed to commit staging: %w", err)
	}
	s.log.WithFields(logrus.Fields{"table": s.d.QualifiedName(name), "rows": n}).Debug("Staging table written")
	return n, nil
}

func (s *SQLStager) bulkCopy(ctx context.Context, tx *sql.Tx, bc dialect.BulkCopier, name dialect.TableName,
	ref *schema.Reference, t *table.Table) (int, error) {
	types := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		if col, ok := ref.Lookup(c); ok {
			types[i] = col.Type.String()
		}
	}

	stmt, err := tx.PrepareContext(ctx, bc.CopyInQuery(name, t.Columns))
	if err != nil {
		return 0, fmt.Errorf("failed to prepare bulk copy: %w", err)
	}
	defer stmt.Close()

	n := 0
	for i, row := range t.Rows {
		vals := make([]any, len(row))
		for j, v := range row {
			if vals[j], err = bc.BulkValue(types[j], v); err != nil {
				return n, fmt.Errorf("bulk copy row %d column %s: %w", i+1, t.Columns[j], err)
			}
		}
		if _, err := stmt.ExecContext(ctx, vals...); err != nil {
			return n, fmt.Errorf("bulk copy row %d: %w", i+1, err)
		}
		n++
		if n%s.batchSize == 0 {
			s.progress(s.batchSize)
		}
	}
	// An Exec without arguments flushes the buffered rows.
	if _, err := stmt.ExecContext(ctx); err != nil {
		return n, fmt.Errorf("bulk copy flush: %w", err)
	}
	s.progress(n % s.batchSize)
	return n, nil
}

func (s *SQLStager) batchInsert(ctx context.Context, tx *sql.Tx, name dialect.TableName, t *table.Table) (int, error) {
	cols := t.Columns
	perBatch := s.batchSize
	if limit := s.d.MaxParams() / len(cols); limit < perBatch {
		perBatch = limit
	}
	if perBatch < 1 {
		return 0, fmt.Errorf("%d columns exceed the %d parameter limit", len(cols), s.d.MaxParams())
	}

	fullQuery := s.d.InsertQuery(name, cols, perBatch)
	args := make([]any, 0, perBatch*len(cols))
	n := 0
	for start := 0; start < len(t.Rows); start += perBatch {
		end := min(start+perBatch, len(t.Rows))
		query := fullQuery
		if end-start != perBatch {
			query = s.d.InsertQuery(name, cols, end-start)
		}

		args = args[:0]
		for _, row := range t.Rows[start:end] {
			args = append(args, row...)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return n, fmt.Errorf("insert rows %d-%d: %w", start+1, end, err)
		}
		n += end - start
		s.progress(end - start)
	}
	return n, nil
}

func (s *SQLStager) progress(rows int) {
	if s.OnProgress != nil && rows > 0 {
		s.OnProgress(rows)
	}
}
