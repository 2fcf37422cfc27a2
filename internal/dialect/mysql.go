package dialect

import (
	"database/sql"
	"fmt"
	"strings"
)

type MysqlDialect struct{}

func (d *MysqlDialect) Name() string {
	return "mysql"
}

// MySQL has no schema level below the database, so TABLE_SCHEMA is the database.
func (d *MysqlDialect) ReferenceColumnsQuery(database string) string {
	return `SELECT COLUMN_NAME AS COLUMN_NAME, DATA_TYPE AS DATA_TYPE FROM information_schema.COLUMNS WHERE TABLE_SCHEMA = ? AND TABLE_NAME = ? ORDER BY ORDINAL_POSITION`
}

func (d *MysqlDialect) SchemaProcedureCall(database, procedure string) (string, error) {
	return fmt.Sprintf("CALL %s(?, ?)", quoteDotted(procedure, d.QuoteIdent)), nil
}

func (d *MysqlDialect) KillFillCall(procedure string) (string, error) {
	return fmt.Sprintf("CALL %s(?, ?, ?, ?)", quoteDotted(procedure, d.QuoteIdent)), nil
}

func (d *MysqlDialect) ProcedureCall(name TableName) (string, error) {
	return fmt.Sprintf("CALL %s()", d.QualifiedName(name)), nil
}

func (d *MysqlDialect) BeforeStaging(tx *sql.Tx) error {
	return nil
}

func (d *MysqlDialect) DropTableQuery(name TableName) string {
	return fmt.Sprintf("DROP TABLE IF EXISTS %s", d.QualifiedName(name))
}

func (d *MysqlDialect) CreateTableQuery(name TableName, cols []ColumnDef) string {
	return createTable(d, name, cols)
}

func (d *MysqlDialect) InsertQuery(name TableName, cols []string, rows int) string {
	return multiRowInsert(d, name, cols, rows)
}

func (d *MysqlDialect) Placeholder(index int) string {
	return "?"
}

func (d *MysqlDialect) MaxParams() int {
	return 65535
}

func (d *MysqlDialect) QuoteIdent(ident string) string {
	return "`" + strings.ReplaceAll(ident, "`", "``") + "`"
}

// QualifiedName uses the database when given, else the schema, as MySQL's single qualifier.
func (d *MysqlDialect) QualifiedName(name TableName) string {
	qualifier := name.Database
	if qualifier == "" {
		qualifier = name.Schema
	}
	return qualify(TableName{Schema: qualifier, Name: name.Name}, d.QuoteIdent)
}

func (d *MysqlDialect) TypeName(nativeType string, length int) string {
	switch nativeType {
	case "int":
		return "INT"
	case "smallint":
		return "SMALLINT"
	case "bigint":
		return "BIGINT"
	case "bit":
		return "BOOLEAN"
	case "decimal":
		return "DECIMAL(38, 10)"
	case "float":
		return "DOUBLE"
	case "date":
		return "DATE"
	case "datetime", "smalldatetime":
		return "DATETIME"
	case "datetime2":
		return "DATETIME(6)"
	case "char":
		if length > 0 && length <= 255 {
			return fmt.Sprintf("CHAR(%d)", length)
		}
		return "LONGTEXT"
	case "uniqueidentifier":
		return "CHAR(36)"
	default:
		if length > 0 {
			return fmt.Sprintf("VARCHAR(%d)", length)
		}
		return "LONGTEXT"
	}
}

func (d *MysqlDialect) NormalizeType(sqlType string) string {
	t := DefaultNormalizeType(sqlType)
	switch t {
	case "integer", "mediumint":
		return "int"
	case "numeric":
		return "decimal"
	case "double", "real":
		return "float"
	case "timestamp":
		return "datetime2"
	case "longtext", "mediumtext", "tinytext":
		return "text"
	default:
		return t
	}
}

func (d *MysqlDialect) GetSchemaName(input string) string {
	return DefaultGetSchemaName(input)
}
