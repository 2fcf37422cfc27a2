package dialect

import "strings"

// Factory returns the appropriate Dialect implementation based on driver name.
func GetDialect(driver string) Dialect {
	switch strings.ToLower(driver) {
	case "postgres", "pq":
		return &PostgresDialect{}
	case "sqlserver", "mssql", "azuresql":
		return &MSSQLDialect{}
	case "oracle":
		return &OracleDialect{}
	case "sqlite3", "sqlite":
		return &SQLiteDialect{}
	default: // mysql
		return &MysqlDialect{}
	}
}

// Ensure interface implementation
var _ Dialect = (*MysqlDialect)(nil)
var _ Dialect = (*PostgresDialect)(nil)
var _ Dialect = (*MSSQLDialect)(nil)
var _ Dialect = (*OracleDialect)(nil)
var _ Dialect = (*SQLiteDialect)(nil)
var (
	_ BulkCopier       = (*MSSQLDialect)(nil)
	_ ByteSizedVarChar = (*MSSQLDialect)(nil)
)
