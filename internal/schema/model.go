package schema

import "fmt"

// ColumnType is the semantic type of a reference column.
type ColumnType int

const (
	Integer ColumnType = iota
	SmallInteger
	BigInteger
	Boolean
	Decimal
	Float
	Date
	DateTime
	DateTime2
	SmallDateTime
	Char
	VarChar
	UniqueIdentifier
)

// String returns the canonical native name, which is also what the dialects
// take when rendering staging DDL.
func (t ColumnType) String() string {
	switch t {
	case Integer:
		return "int"
	case SmallInteger:
		return "smallint"
	case BigInteger:
		return "bigint"
	case Boolean:
		return "bit"
	case Decimal:
		return "decimal"
	case Float:
		return "float"
	case Date:
		return "date"
	case DateTime:
		return "datetime"
	case DateTime2:
		return "datetime2"
	case SmallDateTime:
		return "smalldatetime"
	case Char:
		return "char"
	case VarChar:
		return "varchar"
	case UniqueIdentifier:
		return "uniqueidentifier"
	}
	return fmt.Sprintf("ColumnType(%d)", int(t))
}

// IsInteger reports whether values are stored as int64.
func (t ColumnType) IsInteger() bool {
	return t == Integer || t == SmallInteger || t == BigInteger
}

func (t ColumnType) IsNumeric() bool {
	return t.IsInteger() || t == Decimal || t == Float
}

func (t ColumnType) IsTemporal() bool {
	return t == Date || t == DateTime || t == DateTime2 || t == SmallDateTime
}

type Column struct {
	Name       string
	Type       ColumnType
	Length     int    // VarChar only; 0 = unset
	NativeType string // catalog DATA_TYPE as returned
}

// Reference is the resolved column layout of a destination table.
// It is never modified after construction; WithLength returns a refined copy.
type Reference struct {
	database string
	schema   string
	table    string
	columns  []Column
	index    map[string]int
}

// NewReference copies cols, so later changes by the caller are not seen.
func NewReference(database, schemaName, table string, cols []Column) *Reference {
	r := &Reference{
		database: database,
		schema:   schemaName,
		table:    table,
		columns:  make([]Column, len(cols)),
		index:    make(map[string]int, len(cols)),
	}
	copy(r.columns, cols)
	for i, c := range r.columns {
		r.index[c.Name] = i
	}
	return r
}

func (r *Reference) Database() string { return r.database }
func (r *Reference) Schema() string   { return r.schema }
func (r *Reference) Table() string    { return r.table }
func (r *Reference) Len() int         { return len(r.columns) }

// Columns returns a copy of the columns in ordinal order.
func (r *Reference) Columns() []Column {
	out := make([]Column, len(r.columns))
	copy(out, r.columns)
	return out
}

// Names returns the column names in ordinal order.
func (r *Reference) Names() []string {
	out := make([]string, len(r.columns))
	for i, c := range r.columns {
		out[i] = c.Name
	}
	return out
}

func (r *Reference) Lookup(name string) (Column, bool) {
	i, ok := r.index[name]
	if !ok {
		return Column{}, false
	}
	return r.columns[i], true
}

// WithLength returns a new Reference where the named columns carry the given
// lengths. Names not in the reference are ignored.
func (r *Reference) WithLength(lengths map[string]int) *Reference {
	cols := r.Columns()
	for i := range cols {
		if n, ok := lengths[cols[i].Name]; ok {
			cols[i].Length = n
		}
	}
	return NewReference(r.database, r.schema, r.table, cols)
}

// CatalogRow is one row of the introspection result. Extra columns are ignored.
type CatalogRow struct {
	ColumnName string `db:"COLUMN_NAME"`
	DataType   string `db:"DATA_TYPE"`
}
