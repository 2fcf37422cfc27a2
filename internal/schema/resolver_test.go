package schema_test

import (
	"context"
	"errors"
	"testing"

	"etlcore/internal/dialect"
	"etlcore/internal/etlerr"
	"etlcore/internal/logging"
	"etlcore/internal/schema"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeQuerier struct {
	rows  []schema.CatalogRow
	err   error
	query string
	args  []any
}

func (f *fakeQuerier) SelectContext(ctx context.Context, dest any, query string, args ...any) error {
	f.query = query
	f.args = args
	if f.err != nil {
		return f.err
	}
	*dest.(*[]schema.CatalogRow) = append([]schema.CatalogRow(nil), f.rows...)
	return nil
}

func TestMapNativeType(t *testing.T) {
	want := map[string]schema.ColumnType{
		"int":              schema.Integer,
		"smallint":         schema.SmallInteger,
		"bigint":           schema.BigInteger,
		"bit":              schema.Boolean,
		"decimal":          schema.Decimal,
		"float":            schema.Float,
		"date":             schema.Date,
		"datetime":         schema.DateTime,
		"datetime2":        schema.DateTime2,
		"smalldatetime":    schema.SmallDateTime,
		"char":             schema.Char,
		"varchar":          schema.VarChar,
		"text":             schema.VarChar,
		"uniqueidentifier": schema.UniqueIdentifier,
	}
	for native, tag := range want {
		got, ok := schema.MapNativeType(native)
		assert.True(t, ok, native)
		assert.Equal(t, tag, got, native)
	}

	for _, native := range []string{"nvarchar", "xml", "geography", "money", "tinyint", ""} {
		_, ok := schema.MapNativeType(native)
		assert.False(t, ok, native)
	}
}

func TestColumnTypeStringRoundTrip(t *testing.T) {
	for ct := schema.Integer; ct <= schema.UniqueIdentifier; ct++ {
		got, ok := schema.MapNativeType(ct.String())
		require.True(t, ok, ct.String())
		assert.Equal(t, ct, got)
	}
}

func TestResolveSkipsUnknownTypes(t *testing.T) {
	q := &fakeQuerier{rows: []schema.CatalogRow{
		{ColumnName: "id", DataType: "int"},
		{ColumnName: "payload", DataType: "xml"},
		{ColumnName: "name", DataType: "varchar"},
		{ColumnName: "guid", DataType: "uniqueidentifier"},
		{ColumnName: "title", DataType: "nvarchar"},
	}}
	r := schema.NewResolver(q, &dialect.MSSQLDialect{}, "", logging.Discard())

	ref, err := r.Resolve(context.Background(), "Sales", "", "Orders")
	require.NoError(t, err)

	assert.Equal(t, []string{"id", "name", "guid"}, ref.Names())
	col, ok := ref.Lookup("name")
	require.True(t, ok)
	assert.Equal(t, schema.VarChar, col.Type)
	assert.Zero(t, col.Length)
	_, ok = ref.Lookup("payload")
	assert.False(t, ok)

	assert.Equal(t, "dbo", ref.Schema())
	assert.Contains(t, q.query, "[Sales].INFORMATION_SCHEMA.COLUMNS")
	assert.Equal(t, []any{"dbo", "Orders"}, q.args)
}

func TestResolveUsesProcedure(t *testing.T) {
	q := &fakeQuerier{rows: []schema.CatalogRow{{ColumnName: "id", DataType: "INT"}}}
	r := schema.NewResolver(q, &dialect.MSSQLDialect{}, "dbo.spGet_TableSchema", logging.Discard())

	ref, err := r.Resolve(context.Background(), "Sales", "dbo", "Orders")
	require.NoError(t, err)
	assert.Equal(t, "EXEC [Sales].[dbo].[spGet_TableSchema] @p1, @p2", q.query)
	assert.Equal(t, 1, ref.Len())
}

func TestResolveNormalizesDialectTypes(t *testing.T) {
	q := &fakeQuerier{rows: []schema.CatalogRow{
		{ColumnName: "id", DataType: "int4"},
		{ColumnName: "at", DataType: "timestamptz"},
		{ColumnName: "key", DataType: "uuid"},
	}}
	r := schema.NewResolver(q, &dialect.PostgresDialect{}, "", logging.Discard())

	ref, err := r.Resolve(context.Background(), "", "", "events")
	require.NoError(t, err)

	cols := ref.Columns()
	require.Len(t, cols, 3)
	assert.Equal(t, schema.Integer, cols[0].Type)
	assert.Equal(t, schema.DateTime2, cols[1].Type)
	assert.Equal(t, schema.UniqueIdentifier, cols[2].Type)
	assert.Equal(t, "timestamptz", cols[1].NativeType)
}

func TestResolveFailures(t *testing.T) {
	ctx := context.Background()

	q := &fakeQuerier{err: errors.New("login failed")}
	_, err := schema.NewResolver(q, &dialect.MSSQLDialect{}, "", logging.Discard()).Resolve(ctx, "Sales", "dbo", "Orders")
	assert.ErrorIs(t, err, etlerr.ErrSchemaResolution)
	assert.Contains(t, err.Error(), "login failed")

	_, err = schema.NewResolver(&fakeQuerier{}, &dialect.MSSQLDialect{}, "", logging.Discard()).Resolve(ctx, "Sales", "dbo", "Missing")
	assert.ErrorIs(t, err, etlerr.ErrSchemaResolution)

	_, err = schema.NewResolver(&fakeQuerier{}, &dialect.MSSQLDialect{}, "", logging.Discard()).Resolve(ctx, "Sales]; DROP", "dbo", "Orders")
	assert.ErrorIs(t, err, etlerr.ErrSchemaResolution)

	_, err = schema.NewResolver(&fakeQuerier{}, &dialect.SQLiteDialect{}, "dbo.spGet_TableSchema", logging.Discard()).Resolve(ctx, "", "", "t")
	assert.ErrorIs(t, err, dialect.ErrUnsupported)
}

func TestTableSchemaFromDBNotImplemented(t *testing.T) {
	r := schema.NewResolver(&fakeQuerier{}, &dialect.MSSQLDialect{}, "", logging.Discard())
	_, err := r.TableSchemaFromDB(context.Background(), "Sales", "dbo", "Orders")
	assert.ErrorIs(t, err, etlerr.ErrNotImplemented)
}

func TestReferenceIsImmutable(t *testing.T) {
	cols := []schema.Column{{Name: "a", Type: schema.VarChar}, {Name: "b", Type: schema.Integer}}
	ref := schema.NewReference("db", "dbo", "t", cols)
	cols[0].Name = "changed"

	got := ref.Columns()
	got[1].Type = schema.Float
	assert.Equal(t, []string{"a", "b"}, ref.Names())
	col, _ := ref.Lookup("b")
	assert.Equal(t, schema.Integer, col.Type)

	refined := ref.WithLength(map[string]int{"a": 4, "zzz": 9})
	a, _ := refined.Lookup("a")
	assert.Equal(t, 4, a.Length)
	a, _ = ref.Lookup("a")
	assert.Zero(t, a.Length)
	assert.Equal(t, "t", refined.Table())
}
