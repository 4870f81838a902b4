package tenant

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Scope restricts a query to one company. The column is qualified with the
// statement's table so joined or preloaded queries stay unambiguous. An empty
// company id matches nothing.
func Scope(companyID string) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if companyID == "" {
			return db.Where("1 = 0")
		}
		return db.Where(clause.Eq{
			Column: clause.Column{Table: clause.CurrentTable, Name: "company_id"},
			Value:  companyID,
		})
	}
}
