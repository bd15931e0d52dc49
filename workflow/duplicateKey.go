package workflow

import (
	"errors"

	mysqlDriver "github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

// isDuplicateKeyErr detects MySQL 1062. Idempotent derivations (catalog
// product, sewing order, shipment record) treat it as "someone else already
// created the row" and re-read instead of failing.
func isDuplicateKeyErr(err error) bool {
	var mysqlErr *mysqlDriver.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}
	return false
}

// resolveSingleton settles a row guarded by a unique index: return the
// existing row when find sees one, otherwise create. A duplicate key on
// create means a concurrent caller inserted first; the winner's row is
// re-read instead of failing, so racing callers converge on one row.
func resolveSingleton[T any](find func() (*T, error), create func() (*T, error)) (*T, error) {
	existing, err := find()
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	created, err := create()
	if err == nil {
		return created, nil
	}
	if !isDuplicateKeyErr(err) {
		return nil, err
	}
	return find()
}
