package pkg

import (
	"fmt"

	"github.com/quizforge/quiz-service/internal/config"
	"github.com/quizforge/quiz-service/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func InitDatabase(cfg *config.Config) (*gorm.DB, error) {
	var logLevel logger.LogLevel
	if cfg.Environment == "production" {
		logLevel = logger.Error
	} else {
		logLevel = logger.Info
	}

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return db, nil
}

// Migrate keeps the schema in sync with the model definitions.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Quiz{},
		&models.QuizSettings{},
		&models.Question{},
		&models.QuizSession{},
		&models.SessionAnswer{},
		&models.QuizSubmission{},
		&models.SubmissionAnswer{},
	)
}
