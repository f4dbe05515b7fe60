package database

import (
	"log"
	"os"
	"strings"
	"time"

	"tablesafe/backend/internal/config"
	"tablesafe/backend/internal/models"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// Connect initializes the database connection and, if enabled, runs migrations.
func Connect(cfg *config.Config) {
	var err error

	DB, err = Open(Dialector(cfg.DatabaseURL))
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	sqlDB, err := DB.DB()
	if err != nil {
		log.Fatalf("Failed to get database handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(cfg.DBMaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.DBMaxIdleConns)

	log.Println("Database connection established.")

	if !cfg.DBAutoMigrate {
		return
	}
	if err := Migrate(DB); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	log.Println("Database migrated successfully.")
}

// Dialector picks a driver from the URL. "sqlite://<path>" opens an embedded SQLite
// database; anything else is handed to Postgres.
func Dialector(url string) gorm.Dialector {
	if path, ok := strings.CutPrefix(url, "sqlite://"); ok {
		return sqlite.Open(path)
	}
	return postgres.Open(url)
}

// Open opens a GORM connection with the shared logger settings. Duplicate-key errors are
// translated to gorm.ErrDuplicatedKey.
func Open(dialector gorm.Dialector) (*gorm.DB, error) {
	customLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags), // io writer
		logger.Config{
			SlowThreshold:             200 * time.Millisecond, // Slow SQL threshold
			LogLevel:                  logger.Warn,            // Log level
			IgnoreRecordNotFoundError: true,                   // Ignore ErrRecordNotFound error for logger
			Colorful:                  true,                   // Enable color
		},
	)

	return gorm.Open(dialector, &gorm.Config{
		Logger:         customLogger,
		TranslateError: true,
	})
}

// Migrate runs GORM auto-migrations for every model.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.ConsentForm{},
		&models.ConsentResponse{},
		&models.Game{},
		&models.GamePlayer{},
		&models.GameEvent{},
	)
}
