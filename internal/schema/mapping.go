package schema

// MapNativeType maps a normalized native type name onto a ColumnType.
// ok is false for names outside the mapping; those columns are skipped.
func MapNativeType(native string) (ColumnType, bool) {
	switch native {
	case "int":
		return Integer, true
	case "smallint":
		return SmallInteger, true
	case "bigint":
		return BigInteger, true
	case "bit":
		return Boolean, true
	case "decimal":
		return Decimal, true
	case "float":
		return Float, true
	case "date":
		return Date, true
	case "datetime":
		return DateTime, true
	case "datetime2":
		return DateTime2, true
	case "smalldatetime":
		return SmallDateTime, true
	case "char":
		return Char, true
	case "varchar", "text":
		return VarChar, true
	case "uniqueidentifier":
		return UniqueIdentifier, true
	default:
		return 0, false
	}
}
