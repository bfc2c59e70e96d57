package clickhouse

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"go.uber.org/zap"

	"github.com/BarkinBalci/action-event-service/internal/config"
)

const (
	dialTimeout      = 5 * time.Second
	maxExecutionTime = 60
)

// Client wraps the ClickHouse connection used for the events table. Sessions
// run in the store zone so server-side date functions agree with the
// calendar days computed in Go.
type Client struct {
	conn     driver.Conn
	location *time.Location
	log      *zap.Logger
}

// NewClient opens and pings a ClickHouse connection whose sessions use loc
func NewClient(ctx context.Context, cfg *config.ClickHouse, loc *time.Location, log *zap.Logger) (*Client, error) {
	opts := connectionOptions(cfg, loc)

	log.Info("Connecting to ClickHouse",
		zap.Strings("addr", opts.Addr),
		zap.String("database", cfg.Database),
		zap.String("session_timezone", loc.String()),
		zap.Bool("tls", opts.TLS != nil))

	conn, err := clickhouse.Open(opts)
	if err != nil {
		log.Error("Failed to open ClickHouse connection", zap.Error(err))
		return nil, fmt.Errorf("error opening ClickHouse connection: %w", err)
	}

	if err := conn.Ping(ctx); err != nil {
		_ = conn.Close()
		log.Error("Failed to ping ClickHouse", zap.Error(err))
		return nil, fmt.Errorf("error connecting to ClickHouse (ping failed): %w", err)
	}

	log.Info("ClickHouse connection established successfully")
	return &Client{conn: conn, location: loc, log: log}, nil
}

func connectionOptions(cfg *config.ClickHouse, loc *time.Location) *clickhouse.Options {
	var tlsConfig *tls.Config
	if cfg.UseTLS {
		tlsConfig = &tls.Config{
			ServerName: cfg.Host,
			MinVersion: tls.VersionTLS12,
		}
	}

	return &clickhouse.Options{
		Addr: []string{net.JoinHostPort(cfg.Host, cfg.Port)},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.User,
			Password: cfg.Password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": maxExecutionTime,
			"session_timezone":   loc.String(),
		},
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
		TLS:              tlsConfig,
		DialTimeout:      dialTimeout,
		MaxOpenConns:     cfg.MaxOpenConns,
		MaxIdleConns:     cfg.MaxIdleConns,
		ConnMaxLifetime:  time.Duration(cfg.ConnMaxLifetime) * time.Second,
		ConnOpenStrategy: clickhouse.ConnOpenInOrder,
	}
}

// Conn returns the underlying connection
func (c *Client) Conn() driver.Conn {
	return c.conn
}

// Location returns the session time zone
func (c *Client) Location() *time.Location {
	return c.location
}

// Ping checks if the connection is alive
func (c *Client) Ping(ctx context.Context) error {
	return c.conn.Ping(ctx)
}

// Close closes the connection
func (c *Client) Close() error {
	c.log.Info("Closing ClickHouse connection")
	if err := c.conn.Close(); err != nil {
		c.log.Error("Error closing ClickHouse connection", zap.Error(err))
		return err
	}
	return nil
}
