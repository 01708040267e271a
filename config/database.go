package config

import (
	"fmt"

	"edition-publisher/models"

	"github.com/xo/dburl"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Dialector turns a database url into a gorm dialector. postgres:// and sqlite:
// (sqlite3:, file:) urls are supported.
func Dialector(rawURL string) (gorm.Dialector, error) {
	u, err := dburl.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("could not parse database url: %w", err)
	}

	switch u.Driver {
	case "postgres":
		return postgres.Open(u.DSN), nil
	case "sqlite3":
		return sqlite.Open(u.DSN), nil
	}
	return nil, fmt.Errorf("unsupported database driver %q", u.Driver)
}

// InitDB opens the database named by rawURL. Unique violations surface as
// gorm.ErrDuplicatedKey.
func InitDB(rawURL string) (*gorm.DB, error) {
	dialector, err := Dialector(rawURL)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("could not open database: %w", err)
	}
	return db, nil
}

// Migrate creates or updates the schema.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Tag{},
		&models.Artefact{},
		&models.Edition{},
		&models.Part{},
	)
}
