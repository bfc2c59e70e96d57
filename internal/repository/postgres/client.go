package postgres

import (
	"context"
	"fmt"

	_ "github.com/lib/pq"
	"go.uber.org/zap"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/BarkinBalci/action-event-service/internal/config"
)

// Client wraps the gorm handle of the application database
type Client struct {
	db  *gorm.DB
	log *zap.Logger
}

// NewClient opens the application database through lib/pq
func NewClient(ctx context.Context, cfg *config.Postgres, log *zap.Logger) (*Client, error) {
	log.Info("Connecting to PostgreSQL")

	db, err := gorm.Open(gormpostgres.New(gormpostgres.Config{
		DriverName: "postgres",
		DSN:        cfg.URL,
	}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		log.Error("Failed to open PostgreSQL connection", zap.Error(err))
		return nil, fmt.Errorf("error opening database connection: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("error accessing database pool: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		log.Error("Failed to ping PostgreSQL", zap.Error(err))
		return nil, fmt.Errorf("error connecting to the database (ping failed): %w", err)
	}

	log.Info("PostgreSQL connection established successfully")
	return &Client{db: db, log: log}, nil
}

// DB returns a gorm session bound to ctx
func (c *Client) DB(ctx context.Context) *gorm.DB {
	return c.db.WithContext(ctx)
}

// Ping checks if the database connection is alive
func (c *Client) Ping(ctx context.Context) error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the database connection pool
func (c *Client) Close() error {
	c.log.Info("Closing PostgreSQL connection")
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	if err := sqlDB.Close(); err != nil {
		c.log.Error("Error closing PostgreSQL connection", zap.Error(err))
		return err
	}
	return nil
}
