package repository

import (
	"context"
	"time"

	"github.com/BarkinBalci/action-event-service/internal/domain"
)

// DayCount is the number of events on one calendar day, optionally for one event name
type DayCount struct {
	Name  string
	Day   time.Time
	Count uint64
}

// Totals holds the view and action counts of a query
type Totals struct {
	Views   uint64
	Actions uint64
}

// EventRepository defines the interface for event storage operations
type EventRepository interface {
	// InsertBatch inserts a batch of normalized events into the storage
	InsertBatch(ctx context.Context, events []*domain.Event) (int, error)

	// InitSchema prepares the storage (creates tables where the backend owns them)
	InitSchema(ctx context.Context) error

	// Ping checks if the storage is reachable
	Ping(ctx context.Context) error

	// Close closes the repository and releases resources
	Close() error

	// CountTotals counts views and actions matching the query
	CountTotals(ctx context.Context, query Query) (Totals, error)

	// CountByDay counts matching events per calendar day of the store zone,
	// ordered by day. With byName the counts are split per event name.
	CountByDay(ctx context.Context, query Query, byName bool) ([]DayCount, error)
}

// UserRepository resolves the activity recording preference of users
type UserRepository interface {
	// RecordActivity returns domain.ErrNotFound for unknown users
	RecordActivity(ctx context.Context, userID int64) (bool, error)
}

// ActionPageRepository resolves action pages by id
type ActionPageRepository interface {
	// ActionPage returns domain.ErrNotFound for unknown pages
	ActionPage(ctx context.Context, pageID int64) (*domain.ActionPage, error)
}
