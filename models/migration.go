package models

import (
	"log"

	"gorm.io/gorm"
)

func MigrateTable(db *gorm.DB) {
	err := db.AutoMigrate(
		&Profile{},
		&ProductModel{}, &ProductModelImage{}, &ProductModelApproval{},
		&MaterialRequest{}, &MaterialShipment{}, &SewingOrder{},
		&InventoryItem{},
		&Product{},
		&SalesOrder{}, &SalesOrderItem{},
		&Comment{},
	)
	if err != nil {
		log.Fatal(err)
	}
}

// HasReportingSchema checks the tables the aggregation engine reads. A
// missing table degrades the report to empty with a diagnostic, not a crash.
func HasReportingSchema(db *gorm.DB) bool {
	m := db.Migrator()
	return m.HasTable(&SalesOrder{}) && m.HasTable(&MaterialRequest{}) && m.HasTable(&InventoryItem{})
}
