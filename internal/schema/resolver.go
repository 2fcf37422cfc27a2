package schema

import (
	"context"
	"fmt"

	"etlcore/internal/dialect"
	"etlcore/internal/etlerr"

	"github.com/sirupsen/logrus"
)

// Querier is the read side of a database handle. *sqlx.DB satisfies it; use
// its Unsafe() form so introspection procedures may return extra columns.
type Querier interface {
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
}

// Resolver reads reference schemas from the destination database.
type Resolver struct {
	q         Querier
	d         dialect.Dialect
	procedure string
	log       logrus.FieldLogger
}

// NewResolver returns a Resolver. When procedure is empty the dialect's
// catalog query is used instead of an introspection procedure.
func NewResolver(q Querier, d dialect.Dialect, procedure string, log logrus.FieldLogger) *Resolver {
	return &Resolver{q: q, d: d, procedure: procedure, log: log}
}

// Resolve returns the reference schema of database.schemaName.table.
// Columns whose native type has no mapping are left out.
func (r *Resolver) Resolve(ctx context.Context, database, schemaName, table string) (*Reference, error) {
	target := r.d.GetSchemaName(schemaName)
	fail := func(err error) error {
		return fmt.Errorf("%w: %s.%s.%s: %w", etlerr.ErrSchemaResolution, database, target, table, err)
	}

	if err := dialect.ValidateName(database, r.procedure); err != nil {
		return nil, fail(err)
	}

	query := r.d.ReferenceColumnsQuery(database)
	if r.procedure != "" {
		var err error
		if query, err = r.d.SchemaProcedureCall(database, r.procedure); err != nil {
			return nil, fail(err)
		}
	}

	var rows []CatalogRow
	if err := r.q.SelectContext(ctx, &rows, query, target, table); err != nil {
		return nil, fail(fmt.Errorf("failed to query reference columns: %w", err))
	}
	if len(rows) == 0 {
		return nil, fail(fmt.Errorf("table not found or has no columns"))
	}

	cols := make([]Column, 0, len(rows))
	for _, row := range rows {
		native := r.d.NormalizeType(row.DataType)
		t, ok := MapNativeType(native)
		if !ok {
			r.log.WithFields(logrus.Fields{
				"table":  table,
				"column": row.ColumnName,
				"type":   row.DataType,
			}).Debug("Skipping column with unmapped type")
			continue
		}
		cols = append(cols, Column{Name: row.ColumnName, Type: t, NativeType: row.DataType})
	}

	r.log.WithFields(logrus.Fields{
		"table":   table,
		"columns": len(cols),
		"skipped": len(rows) - len(cols),
	}).Debug("Resolved reference schema")

	return NewReference(database, target, table, cols), nil
}

// TableSchemaFromDB would read a full table definition (nullability,
// precision, keys) rather than the name/type pairs Resolve uses.
func (r *Resolver) TableSchemaFromDB(ctx context.Context, database, schemaName, table string) (*Reference, error) {
	return nil, fmt.Errorf("table schema from db: %w", etlerr.ErrNotImplemented)
}
