package procedure

import (
	"strings"

	"github.com/mvp-joe/typedsql/internal/schema"
)

// SQLType is a catalog type code, numbered like the JDBC java.sql.Types
// constants so metadata exported from other tools keeps its meaning.
type SQLType int

const (
	TypeBit                   SQLType = -7
	TypeTinyInt               SQLType = -6
	TypeBigInt                SQLType = -5
	TypeLongVarBinary         SQLType = -4
	TypeVarBinary             SQLType = -3
	TypeBinary                SQLType = -2
	TypeLongVarChar           SQLType = -1
	TypeNull                  SQLType = 0
	TypeChar                  SQLType = 1
	TypeNumeric               SQLType = 2
	TypeDecimal               SQLType = 3
	TypeInteger               SQLType = 4
	TypeSmallInt              SQLType = 5
	TypeFloat                 SQLType = 6
	TypeReal                  SQLType = 7
	TypeDouble                SQLType = 8
	TypeVarChar               SQLType = 12
	TypeBoolean               SQLType = 16
	TypeDate                  SQLType = 91
	TypeTime                  SQLType = 92
	TypeTimestamp             SQLType = 93
	TypeOther                 SQLType = 1111
	TypeBlob                  SQLType = 2004
	TypeTimeWithTimezone      SQLType = 2013
	TypeTimestampWithTimezone SQLType = 2014
	TypeLongNVarChar          SQLType = -16
)

// Kind returns the semantic kind values of the type are read as. Anything
// without a better match is a string.
func (t SQLType) Kind() schema.Kind {
	switch t {
	case TypeInteger, TypeTinyInt, TypeSmallInt, TypeBit:
		return schema.KindInteger
	case TypeBigInt:
		return schema.KindLong
	case TypeBoolean:
		return schema.KindBoolean
	case TypeDecimal, TypeNumeric:
		return schema.KindDecimal
	case TypeDouble:
		return schema.KindDouble
	case TypeFloat, TypeReal:
		return schema.KindFloat
	case TypeLongVarBinary, TypeBlob, TypeBinary, TypeVarBinary:
		return schema.KindBytes
	case TypeDate, TypeTime, TypeTimestamp, TypeTimeWithTimezone, TypeTimestampWithTimezone:
		return schema.KindDate
	}
	return schema.KindString
}

// SQLTypeOf maps an information_schema data_type name to its type code.
func SQLTypeOf(dataType string) SQLType {
	name := strings.ToLower(strings.TrimSpace(dataType))
	switch {
	case name == "integer" || name == "int" || name == "mediumint" || name == "int4":
		return TypeInteger
	case name == "smallint" || name == "int2":
		return TypeSmallInt
	case name == "tinyint":
		return TypeTinyInt
	case name == "bigint" || name == "int8":
		return TypeBigInt
	case name == "bit":
		return TypeBit
	case name == "boolean" || name == "bool":
		return TypeBoolean
	case name == "numeric":
		return TypeNumeric
	case name == "decimal":
		return TypeDecimal
	case name == "double precision" || name == "double" || name == "float8":
		return TypeDouble
	case name == "real" || name == "float4":
		return TypeReal
	case name == "float":
		return TypeFloat
	case name == "bytea" || name == "blob" || name == "longblob" || name == "mediumblob":
		return TypeBlob
	case name == "binary":
		return TypeBinary
	case name == "varbinary":
		return TypeVarBinary
	case name == "date":
		return TypeDate
	case strings.HasPrefix(name, "timestamp") && strings.Contains(name, "with time zone"):
		return TypeTimestampWithTimezone
	case strings.HasPrefix(name, "timestamp") || name == "datetime":
		return TypeTimestamp
	case strings.HasPrefix(name, "time") && strings.Contains(name, "with time zone"):
		return TypeTimeWithTimezone
	case strings.HasPrefix(name, "time"):
		return TypeTime
	case name == "character" || name == "char":
		return TypeChar
	case name == "character varying" || name == "varchar":
		return TypeVarChar
	case name == "text" || name == "longtext" || name == "mediumtext":
		return TypeLongVarChar
	}
	return TypeOther
}
