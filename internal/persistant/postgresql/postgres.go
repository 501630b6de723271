package postgresql

import (
	"context"
	"fmt"

	"github.com/aniladanir/retry"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Initialize initializes the db session and auto migrates given models
func Initialize(ctx context.Context, connStr string, models []any) (db *gorm.DB, err error) {
	retrier, err := retry.New(retry.WithMaxAttemps(5))
	if err != nil {
		return nil, err
	}

	// retry connect
	ok := <-retrier.Retry(ctx, func(attempt int) bool {
		db, err = gorm.Open(postgres.Open(connStr), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Warn),
		})
		return err == nil
	}, true)
	if !ok {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	err = db.AutoMigrate(models...)

	return
}

func Close(db *gorm.DB) error {
	sqlDb, err := db.DB()
	if err != nil {
		return err
	}

	return sqlDb.Close()
}
