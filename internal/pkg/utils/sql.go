package utils

import "database/sql"

// ToSQLInt64 creates new sql int instance
func ToSQLInt64(i int64) sql.NullInt64 {
	return sql.NullInt64{Int64: i, Valid: true}
}

// FromSQLInt64OrZero returns int from sql.NullInt64
func FromSQLInt64OrZero(sqlData sql.NullInt64) int64 {
	if sqlData.Valid {
		return sqlData.Int64
	}
	return 0
}
