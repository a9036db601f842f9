package db

import "gorm.io/gorm"

// Schema holds every territory table.
const Schema = "territory"

func EnsureSchema(d *gorm.DB, schema string) error {
	return d.Exec(`CREATE SCHEMA IF NOT EXISTS "` + schema + `"`).Error
}
