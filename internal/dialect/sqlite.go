package dialect

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3" // SQLite Driver
)

// SQLiteDialect serves local runs and tests. SQLite has no stored procedures,
// so the procedure calls report ErrUnsupported.
type SQLiteDialect struct{}

func (d *SQLiteDialect) Name() string {
	return "sqlite3"
}

func (d *SQLiteDialect) ReferenceColumnsQuery(database string) string {
	// ?1 is the schema ("main" by default), ?2 the table.
	return `SELECT name AS COLUMN_NAME, type AS DATA_TYPE FROM pragma_table_info(?2, ?1) ORDER BY cid`
}

func (d *SQLiteDialect) SchemaProcedureCall(database, procedure string) (string, error) {
	return "", fmt.Errorf("schema procedure %s: %w", procedure, ErrUnsupported)
}

func (d *SQLiteDialect) KillFillCall(procedure string) (string, error) {
	return "", fmt.Errorf("kill and fill procedure %s: %w", procedure, ErrUnsupported)
}

func (d *SQLiteDialect) ProcedureCall(name TableName) (string, error) {
	return "", fmt.Errorf("procedure %s: %w", name.Name, ErrUnsupported)
}

func (d *SQLiteDialect) BeforeStaging(tx *sql.Tx) error {
	return nil
}

func (d *SQLiteDialect) DropTableQuery(name TableName) string {
	return fmt.Sprintf("DROP TABLE IF EXISTS %s", d.QualifiedName(name))
}

func (d *SQLiteDialect) CreateTableQuery(name TableName, cols []ColumnDef) string {
	return createTable(d, name, cols)
}

func (d *SQLiteDialect) InsertQuery(name TableName, cols []string, rows int) string {
	return multiRowInsert(d, name, cols, rows)
}

func (d *SQLiteDialect) Placeholder(index int) string {
	return "?"
}

func (d *SQLiteDialect) MaxParams() int {
	return 999
}

func (d *SQLiteDialect) QuoteIdent(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

func (d *SQLiteDialect) QualifiedName(name TableName) string {
	name.Database = ""
	return qualify(name, d.QuoteIdent)
}

func (d *SQLiteDialect) TypeName(nativeType string, length int) string {
	switch nativeType {
	case "int", "smallint", "bigint":
		return "INTEGER"
	case "bit":
		return "BOOLEAN"
	case "decimal":
		return "NUMERIC"
	case "float":
		return "REAL"
	case "date":
		return "DATE"
	case "datetime", "datetime2", "smalldatetime":
		return "DATETIME"
	default:
		if length > 0 {
			return fmt.Sprintf("VARCHAR(%d)", length)
		}
		return "TEXT"
	}
}

func (d *SQLiteDialect) NormalizeType(sqlType string) string {
	t := DefaultNormalizeType(sqlType)
	switch t {
	case "integer":
		return "int"
	case "boolean":
		return "bit"
	case "numeric":
		return "decimal"
	case "real", "double":
		return "float"
	default:
		return t
	}
}

func (d *SQLiteDialect) GetSchemaName(input string) string {
	if input == "" {
		return "main"
	}
	return input
}
