package dialect

import (
	"database/sql"
	"fmt"
	"strings"
)

type OracleDialect struct{}

func (d *OracleDialect) Name() string {
	return "oracle"
}

func (d *OracleDialect) ReferenceColumnsQuery(database string) string {
	// NUMBER is split by scale the same way the catalog treats it for reporting:
	// scaled numbers are decimals, the rest integers.
	return `
SELECT
    COLUMN_NAME,
    CASE
        WHEN DATA_TYPE = 'NUMBER' AND COALESCE(DATA_SCALE, 0) > 0 THEN 'DECIMAL'
        WHEN DATA_TYPE = 'NUMBER' AND DATA_PRECISION > 10 THEN 'BIGINT'
        WHEN DATA_TYPE = 'NUMBER' THEN 'INTEGER'
        ELSE DATA_TYPE
    END AS DATA_TYPE
FROM ALL_TAB_COLUMNS
WHERE OWNER = :1 AND TABLE_NAME = :2
ORDER BY COLUMN_ID`
}

func (d *OracleDialect) SchemaProcedureCall(database, procedure string) (string, error) {
	// Pipelined table function returning (COLUMN_NAME, DATA_TYPE) rows.
	return fmt.Sprintf("SELECT * FROM TABLE(%s(:1, :2))", quoteDotted(procedure, d.QuoteIdent)), nil
}

func (d *OracleDialect) KillFillCall(procedure string) (string, error) {
	return fmt.Sprintf("BEGIN %s(:1, :2, :3, :4); END;", quoteDotted(procedure, d.QuoteIdent)), nil
}

func (d *OracleDialect) ProcedureCall(name TableName) (string, error) {
	return fmt.Sprintf("BEGIN %s; END;", d.QualifiedName(name)), nil
}

func (d *OracleDialect) BeforeStaging(tx *sql.Tx) error {
	// Set NLS Formats so text dates in the staging table read back in ISO form.
	if _, err := tx.Exec("ALTER SESSION SET NLS_DATE_FORMAT = 'YYYY-MM-DD HH24:MI:SS'"); err != nil {
		return fmt.Errorf("failed to set NLS_DATE_FORMAT: %w", err)
	}
	if _, err := tx.Exec("ALTER SESSION SET NLS_TIMESTAMP_FORMAT = 'YYYY-MM-DD HH24:MI:SS.FF'"); err != nil {
		return fmt.Errorf("failed to set NLS_TIMESTAMP_FORMAT: %w", err)
	}
	return nil
}

func (d *OracleDialect) DropTableQuery(name TableName) string {
	// No DROP TABLE IF EXISTS before 23c: swallow ORA-00942 (table does not exist).
	return fmt.Sprintf(`BEGIN
    EXECUTE IMMEDIATE 'DROP TABLE %s PURGE';
EXCEPTION
    WHEN OTHERS THEN
        IF SQLCODE != -942 THEN
            RAISE;
        END IF;
END;`, d.QualifiedName(name))
}

func (d *OracleDialect) CreateTableQuery(name TableName, cols []ColumnDef) string {
	return createTable(d, name, cols)
}

// InsertQuery uses INSERT ALL since multi-row VALUES is not available.
func (d *OracleDialect) InsertQuery(name TableName, cols []string, rows int) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = d.QuoteIdent(c)
	}
	target := fmt.Sprintf("INTO %s (%s)", d.QualifiedName(name), strings.Join(quoted, ", "))

	var b strings.Builder
	b.WriteString("INSERT ALL")
	for r := 0; r < rows; r++ {
		fmt.Fprintf(&b, " %s VALUES (%s)", target, generatePlaceholdersFrom(r*len(cols), len(cols), d.Placeholder))
	}
	b.WriteString(" SELECT 1 FROM DUAL")
	return b.String()
}

func (d *OracleDialect) Placeholder(index int) string {
	// Oracle uses :1, :2, etc. (1-based index)
	return fmt.Sprintf(":%d", index+1)
}

func (d *OracleDialect) MaxParams() int {
	return 1000
}

// QuoteIdent leaves identifiers unquoted so Oracle folds them to upper case,
// matching how the catalog stores unquoted names.
func (d *OracleDialect) QuoteIdent(ident string) string {
	return ident
}

func (d *OracleDialect) QualifiedName(name TableName) string {
	name.Database = ""
	return qualify(name, d.QuoteIdent)
}

func (d *OracleDialect) TypeName(nativeType string, length int) string {
	switch nativeType {
	case "int":
		return "NUMBER(10)"
	case "smallint":
		return "NUMBER(5)"
	case "bigint":
		return "NUMBER(19)"
	case "bit":
		return "NUMBER(1)"
	case "decimal":
		return "NUMBER"
	case "float":
		return "BINARY_DOUBLE"
	case "date", "datetime", "smalldatetime":
		return "DATE"
	case "datetime2":
		return "TIMESTAMP"
	case "char":
		if length > 0 && length <= 2000 {
			return fmt.Sprintf("CHAR(%d)", length)
		}
		return "CLOB"
	case "uniqueidentifier":
		return "VARCHAR2(36)"
	default:
		if length > 0 && length <= 4000 {
			return fmt.Sprintf("VARCHAR2(%d)", length)
		}
		return "CLOB"
	}
}

func (d *OracleDialect) NormalizeType(sqlType string) string {
	s := DefaultNormalizeType(sqlType)
	switch {
	case s == "integer":
		return "int"
	case s == "bigint", s == "decimal", s == "char":
		return s
	case s == "date":
		// Oracle DATE carries a time of day.
		return "datetime"
	case s == "varchar2", s == "nvarchar2", s == "clob", s == "nclob":
		return "varchar"
	case s == "binary_double", s == "binary_float", s == "float":
		return "float"
	case strings.HasPrefix(s, "timestamp"):
		return "datetime2"
	default:
		return s
	}
}

func (d *OracleDialect) GetSchemaName(input string) string {
	return strings.ToUpper(input)
}
