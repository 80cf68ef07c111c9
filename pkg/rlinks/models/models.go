package models

import "gorm.io/gorm"

// AllModels returns all models for migration
// Note: User must be migrated first as Link references it
func AllModels() []interface{} {
	return []interface{}{
		&User{},
		&Link{},
	}
}

// AutoMigrate runs GORM auto-migration for all models
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(AllModels()...)
}

// Reset drops every table and migrates again, leaving an empty schema.
func Reset(db *gorm.DB) error {
	all := AllModels()
	// links reference users, so drop in reverse order
	for i := len(all) - 1; i >= 0; i-- {
		if err := db.Migrator().DropTable(all[i]); err != nil {
			return err
		}
	}
	return AutoMigrate(db)
}
