package dialect

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	mssql "github.com/microsoft/go-mssqldb" // SQL Server Driver
)

type MSSQLDialect struct{}

// Helper: MSSQL Driver (go-mssqldb) prefers @p1, @p2 ordinal parameters over ?

func (d *MSSQLDialect) Name() string {
	return "sqlserver"
}

func (d *MSSQLDialect) ReferenceColumnsQuery(database string) string {
	catalog := "INFORMATION_SCHEMA.COLUMNS"
	if database != "" {
		catalog = d.QuoteIdent(database) + "." + catalog
	}
	return fmt.Sprintf(`SELECT COLUMN_NAME, DATA_TYPE FROM %s WHERE TABLE_SCHEMA = @p1 AND TABLE_NAME = @p2 ORDER BY ORDINAL_POSITION`, catalog)
}

func (d *MSSQLDialect) SchemaProcedureCall(database, procedure string) (string, error) {
	proc := quoteDotted(procedure, d.QuoteIdent)
	if database != "" {
		proc = d.QuoteIdent(database) + "." + proc
	}
	return fmt.Sprintf("EXEC %s @p1, @p2", proc), nil
}

func (d *MSSQLDialect) KillFillCall(procedure string) (string, error) {
	return fmt.Sprintf("EXEC %s @table = @p1, @org = @p2, @stage_db = @p3, @dest_schema = @p4",
		quoteDotted(procedure, d.QuoteIdent)), nil
}

func (d *MSSQLDialect) ProcedureCall(name TableName) (string, error) {
	return "EXEC " + d.QualifiedName(name), nil
}

func (d *MSSQLDialect) BeforeStaging(tx *sql.Tx) error {
	// Abort the whole batch on the first error so a half-written staging table
	// is rolled back with the transaction.
	_, err := tx.Exec("SET XACT_ABORT ON")
	return err
}

func (d *MSSQLDialect) DropTableQuery(name TableName) string {
	return fmt.Sprintf("DROP TABLE IF EXISTS %s", d.QualifiedName(name))
}

func (d *MSSQLDialect) CreateTableQuery(name TableName, cols []ColumnDef) string {
	return createTable(d, name, cols)
}

func (d *MSSQLDialect) InsertQuery(name TableName, cols []string, rows int) string {
	return multiRowInsert(d, name, cols, rows)
}

// CopyInQuery returns the TDS bulk copy statement for the staging table.
// Column names are passed unquoted; the driver matches them against table metadata.
func (d *MSSQLDialect) CopyInQuery(name TableName, cols []string) string {
	return mssql.CopyIn(d.QualifiedName(name), mssql.BulkOptions{Tablock: true}, cols...)
}

// BulkValue adapts passthrough cells to what the TDS bulk encoder takes:
// uniqueidentifier wants mssql.UniqueIdentifier (or raw bytes), bit wants a bool.
func (d *MSSQLDialect) BulkValue(nativeType string, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch nativeType {
	case "uniqueidentifier":
		switch x := v.(type) {
		case string:
			u, err := uuid.Parse(strings.TrimSpace(x))
			if err != nil {
				return nil, fmt.Errorf("invalid uniqueidentifier %q: %w", x, err)
			}
			return mssql.UniqueIdentifier(u), nil
		case uuid.UUID:
			return mssql.UniqueIdentifier(x), nil
		case [16]byte:
			return mssql.UniqueIdentifier(x), nil
		}
	case "bit":
		switch x := v.(type) {
		case string:
			b, err := strconv.ParseBool(strings.TrimSpace(x))
			if err != nil {
				return nil, fmt.Errorf("invalid bit %q: %w", x, err)
			}
			return b, nil
		case int64:
			return x != 0, nil
		case int:
			return x != 0, nil
		}
	}
	return v, nil
}

// VarCharBytes reports that VARCHAR(n) is a byte length; UTF-8 text sent by
// bulk copy needs room for its encoded size.
func (d *MSSQLDialect) VarCharBytes() bool {
	return true
}

func (d *MSSQLDialect) Placeholder(index int) string {
	return fmt.Sprintf("@p%d", index+1)
}

func (d *MSSQLDialect) MaxParams() int {
	return 2100
}

func (d *MSSQLDialect) QuoteIdent(ident string) string {
	return "[" + strings.ReplaceAll(ident, "]", "]]") + "]"
}

func (d *MSSQLDialect) QualifiedName(name TableName) string {
	// A database without a schema needs the empty middle part: db..table
	if name.Database != "" && name.Schema == "" {
		return d.QuoteIdent(name.Database) + ".." + d.QuoteIdent(name.Name)
	}
	return qualify(name, d.QuoteIdent)
}

func (d *MSSQLDialect) TypeName(nativeType string, length int) string {
	switch nativeType {
	case "int":
		return "INT"
	case "smallint":
		return "SMALLINT"
	case "bigint":
		return "BIGINT"
	case "bit":
		return "BIT"
	case "decimal":
		return "DECIMAL(38, 10)"
	case "float":
		return "FLOAT"
	case "date":
		return "DATE"
	case "datetime":
		return "DATETIME"
	case "datetime2":
		return "DATETIME2"
	case "smalldatetime":
		return "SMALLDATETIME"
	case "char":
		if length > 0 {
			return fmt.Sprintf("CHAR(%d)", length)
		}
		return "VARCHAR(MAX)"
	case "uniqueidentifier":
		return "UNIQUEIDENTIFIER"
	default: // varchar, text
		if length > 0 {
			return fmt.Sprintf("VARCHAR(%d)", length)
		}
		return "VARCHAR(MAX)"
	}
}

// NormalizeType only folds case: SQL Server names are already the canonical vocabulary.
func (d *MSSQLDialect) NormalizeType(sqlType string) string {
	return DefaultNormalizeType(sqlType)
}

func (d *MSSQLDialect) GetSchemaName(input string) string {
	if input == "" {
		return "dbo"
	}
	return input
}
