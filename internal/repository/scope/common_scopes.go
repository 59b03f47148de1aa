package scope

import "gorm.io/gorm"

// OrderByCreatedDesc lists newest rows first.
func OrderByCreatedDesc(db *gorm.DB) *gorm.DB {
	return db.Order("created_at DESC")
}

// OrderByCreatedAsc breaks ties in insertion order.
func OrderByCreatedAsc(db *gorm.DB) *gorm.DB {
	return db.Order("created_at ASC")
}
