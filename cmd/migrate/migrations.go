package main

import (
	"gorm.io/gorm"

	"github.com/blueprintpro/estimator/internal/models"
)

// registerModels returns all models that need migration
func registerModels() []interface{} {
	return []interface{}{
		&models.Project{},
	}
}

// runMigrations executes all database migrations
func runMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(registerModels()...); err != nil {
		return err
	}

	return runCustomMigrations(db)
}

// runCustomMigrations handles schema changes AutoMigrate can't handle
func runCustomMigrations(db *gorm.DB) error {
	migrations := []func(*gorm.DB) error{
		addProjectListIndex,
	}

	for _, migration := range migrations {
		if err := migration(db); err != nil {
			return err
		}
	}

	return nil
}

// addProjectListIndex backs the status-filtered, newest-first project listing.
func addProjectListIndex(db *gorm.DB) error {
	if db.Migrator().HasIndex(&models.Project{}, "idx_projects_status_updated") {
		return nil
	}
	return db.Exec(`CREATE INDEX idx_projects_status_updated ON projects (status, updated_at DESC)`).Error
}
