package postgres

import "gorm.io/gorm"

// AutoMigrate creates the tables owned by this repository package that are
// not part of the shared domain migration set.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&catalogMetaRow{},
		&segmentCentroidRow{},
		&antiTargetingRow{},
	)
}
