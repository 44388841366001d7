package utils

import (
	"database/sql"
	"reflect"
	"testing"
)

func TestToSQLInt64(t *testing.T) {
	tests := []struct {
		name string
		args int64
		want sql.NullInt64
	}{
		{name: "zero", args: 0, want: sql.NullInt64{Int64: 0, Valid: true}},
		{name: "non zero", args: 10, want: sql.NullInt64{Int64: 10, Valid: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ToSQLInt64(tt.args); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ToSQLInt64() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFromSQLInt64OrZero(t *testing.T) {
	tests := []struct {
		name string
		args sql.NullInt64
		want int64
	}{
		{name: "empty", args: sql.NullInt64{}, want: 0},
		{name: "valid", args: sql.NullInt64{Int64: 10, Valid: true}, want: 10},
		{name: "non valid", args: sql.NullInt64{Int64: 10, Valid: false}, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FromSQLInt64OrZero(tt.args); got != tt.want {
				t.Errorf("FromSQLInt64OrZero() = %v, want %v", got, tt.want)
			}
		})
	}
}
