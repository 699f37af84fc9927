package config

import (
	"fmt"
	"os"

	"github.com/formlite/formlite-server/logger"
	"github.com/formlite/formlite-server/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

// ConnectDB opens the PostgreSQL connection and migrates the schema.
func ConnectDB() {
	host := os.Getenv("DB_HOST")
	port := os.Getenv("DB_PORT")
	user := os.Getenv("DB_USER")
	password := os.Getenv("DB_PASSWORD")
	dbName := os.Getenv("DB_NAME")

	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		host, user, password, dbName, port)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.NewGormLogger(logger.L),
	})
	if err != nil {
		logger.L.Sugar().Fatalf("failed to connect database: %v", err)
	}

	if err := migrate(db); err != nil {
		logger.L.Sugar().Fatalf("failed to migrate: %v", err)
	}

	DB = db
	logger.L.Info("connected to PostgreSQL & migrated successfully")
}

// InitWithDB installs an already-open connection (tests use this with
// sqlite) and runs the same migrations as ConnectDB.
func InitWithDB(db *gorm.DB) error {
	if err := migrate(db); err != nil {
		return err
	}
	DB = db
	return nil
}

func migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Category{},
		&models.Form{},
		&models.Question{},
		&models.Response{},
		&models.Answer{},
		&models.ExportJob{},
	)
}
