package db

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"SlackConnect/utils"
)

var ErrNotFound = errors.New("team connection not found")

var log = utils.Log.New("pkg", "db")

type Repository struct {
	db *gorm.DB
}

// Open connects to postgres, retrying on startup, and migrates the schema.
func Open(ctx context.Context, dsn string) (*Repository, error) {
	var conn *gorm.DB
	err := utils.Retry(ctx, "postgres", func() error {
		var err error
		conn, err = gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to DB: %w", err)
	}

	repo := New(conn)
	if err := conn.WithContext(ctx).AutoMigrate(&TeamConnection{}); err != nil {
		repo.Close()
		return nil, fmt.Errorf("failed to migrate DB: %w", err)
	}

	log.Info("Connected to DB")
	return repo, nil
}

func New(conn *gorm.DB) *Repository {
	return &Repository{db: conn}
}

func (r *Repository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
