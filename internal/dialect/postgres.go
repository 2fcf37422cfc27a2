package dialect

import (
	"database/sql"
	"fmt"
	"strings"
)

type PostgresDialect struct{}

func (d *PostgresDialect) Name() string {
	return "postgres"
}

func (d *PostgresDialect) ReferenceColumnsQuery(database string) string {
	// udt_name carries the short names (int4, varchar, timestamp) that NormalizeType maps.
	// A PostgreSQL session cannot read another database's catalog, so database is ignored.
	return `SELECT column_name AS "COLUMN_NAME", udt_name AS "DATA_TYPE"
FROM information_schema.columns
WHERE table_schema = $1 AND table_name = $2
ORDER BY ordinal_position`
}

func (d *PostgresDialect) SchemaProcedureCall(database, procedure string) (string, error) {
	// Set-returning function: SELECT * FROM fn($1, $2)
	return fmt.Sprintf("SELECT * FROM %s($1, $2)", quoteDotted(procedure, d.QuoteIdent)), nil
}

func (d *PostgresDialect) KillFillCall(procedure string) (string, error) {
	return fmt.Sprintf("CALL %s($1, $2, $3, $4)", quoteDotted(procedure, d.QuoteIdent)), nil
}

func (d *PostgresDialect) ProcedureCall(name TableName) (string, error) {
	name.Database = ""
	return fmt.Sprintf("CALL %s()", d.QualifiedName(name)), nil
}

func (d *PostgresDialect) BeforeStaging(tx *sql.Tx) error {
	return nil
}

func (d *PostgresDialect) DropTableQuery(name TableName) string {
	return fmt.Sprintf("DROP TABLE IF EXISTS %s", d.QualifiedName(name))
}

func (d *PostgresDialect) CreateTableQuery(name TableName, cols []ColumnDef) string {
	return createTable(d, name, cols)
}

func (d *PostgresDialect) InsertQuery(name TableName, cols []string, rows int) string {
	return multiRowInsert(d, name, cols, rows)
}

func (d *PostgresDialect) Placeholder(index int) string {
	return fmt.Sprintf("$%d", index+1)
}

func (d *PostgresDialect) MaxParams() int {
	return 65535
}

func (d *PostgresDialect) QuoteIdent(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

func (d *PostgresDialect) QualifiedName(name TableName) string {
	name.Database = ""
	return qualify(name, d.QuoteIdent)
}

func (d *PostgresDialect) TypeName(nativeType string, length int) string {
	switch nativeType {
	case "int":
		return "INTEGER"
	case "smallint":
		return "SMALLINT"
	case "bigint":
		return "BIGINT"
	case "bit":
		return "BOOLEAN"
	case "decimal":
		return "NUMERIC"
	case "float":
		return "DOUBLE PRECISION"
	case "date":
		return "DATE"
	case "datetime", "datetime2", "smalldatetime":
		return "TIMESTAMP"
	case "char":
		if length > 0 {
			return fmt.Sprintf("CHAR(%d)", length)
		}
		return "TEXT"
	case "uniqueidentifier":
		return "UUID"
	default:
		if length > 0 {
			return fmt.Sprintf("VARCHAR(%d)", length)
		}
		return "TEXT"
	}
}

func (d *PostgresDialect) NormalizeType(sqlType string) string {
	t := DefaultNormalizeType(sqlType)
	switch t {
	case "int4", "integer", "serial":
		return "int"
	case "int2":
		return "smallint"
	case "int8", "bigserial":
		return "bigint"
	case "bool", "boolean":
		return "bit"
	case "numeric":
		return "decimal"
	case "float4", "float8", "real", "double precision":
		return "float"
	case "timestamp", "timestamptz":
		return "datetime2"
	case "bpchar":
		return "char"
	case "uuid":
		return "uniqueidentifier"
	default:
		return t
	}
}

func (d *PostgresDialect) GetSchemaName(input string) string {
	if input == "" {
		return "public"
	}
	return input
}
