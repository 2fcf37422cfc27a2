package dialect

import (
	"database/sql"
	"errors"
)

// ErrUnsupported is returned when an engine has no equivalent for a statement.
var ErrUnsupported = errors.New("not supported by dialect")

// TableName identifies a table (or procedure) by its three-part name.
// Empty parts are omitted when rendered.
type TableName struct {
	Database string
	Schema   string
	Name     string
}

// ColumnDef is a staging column: canonical native type name plus optional length.
type ColumnDef struct {
	Name   string
	Type   string // canonical SQL Server name, e.g. "int", "varchar"
	Length int    // 0 = unbounded
}

// Dialect abstracts database-specific SQL used by the load pipeline.
type Dialect interface {
	Name() string

	// Metadata Queries (Schema Introspection)
	// Both take (schema, table) as bind arguments and return COLUMN_NAME, DATA_TYPE.
	ReferenceColumnsQuery(database string) string
	SchemaProcedureCall(database, procedure string) (string, error)

	// Procedures
	// KillFillCall binds (table, org, stage_db, dest_schema).
	KillFillCall(procedure string) (string, error)
	ProcedureCall(name TableName) (string, error)

	// Staging Hooks
	BeforeStaging(tx *sql.Tx) error

	// Query Generation
	DropTableQuery(name TableName) string
	CreateTableQuery(name TableName, cols []ColumnDef) string
	InsertQuery(name TableName, cols []string, rows int) string
	Placeholder(index int) string // Returns ?, $1, @p1, etc.
	MaxParams() int

	// Helpers
	QuoteIdent(ident string) string
	QualifiedName(name TableName) string
	TypeName(nativeType string, length int) string
	NormalizeType(sqlType string) string
	GetSchemaName(input string) string
}

// BulkCopier is implemented by dialects whose driver has a native bulk load path.
type BulkCopier interface {
	CopyInQuery(name TableName, cols []string) string
	// BulkValue converts a cell to the Go type the bulk path accepts for a
	// column of the given canonical native type. nil stays nil.
	BulkValue(nativeType string, v any) (any, error)
}

// ByteSizedVarChar is implemented by dialects whose VARCHAR(n) counts bytes
// rather than characters.
type ByteSizedVarChar interface {
	VarCharBytes() bool
}
