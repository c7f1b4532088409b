package db

import "gorm.io/gorm"

// RowLockSuffix returns the clause appended to point reads that must take a
// pessimistic row lock. SQLite serializes writers on the whole database, so
// the clause is omitted there (it is not valid SQLite syntax either).
func RowLockSuffix(tx *gorm.DB) string {
	if tx == nil || tx.Dialector == nil {
		return ""
	}
	if tx.Dialector.Name() == "postgres" {
		return " FOR UPDATE"
	}
	return ""
}
