package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/BarkinBalci/action-event-service/internal/domain"
	"github.com/BarkinBalci/action-event-service/internal/repository"
)

const insertBatchSize = 500

// Repository implements the event, user and action page repositories on
// the application's PostgreSQL database
type Repository struct {
	client   *Client
	location *time.Location
	log      *zap.Logger
}

// NewRepository creates a new PostgreSQL repository grouping days in loc
func NewRepository(client *Client, loc *time.Location, log *zap.Logger) *Repository {
	return &Repository{
		client:   client,
		location: loc,
		log:      log,
	}
}

// InitSchema verifies the tables exist. They belong to the application's
// migrations and are never created here.
func (r *Repository) InitSchema(ctx context.Context) error {
	migrator := r.client.DB(ctx).Migrator()
	for _, model := range []any{&eventRecord{}, &userRecord{}, &actionPageRecord{}} {
		if !migrator.HasTable(model) {
			return fmt.Errorf("table for %T is missing, run the application migrations first", model)
		}
	}
	r.log.Info("PostgreSQL schema verified")
	return nil
}

// InsertBatch inserts a batch of events in a single transaction
func (r *Repository) InsertBatch(ctx context.Context, events []*domain.Event) (int, error) {
	if len(events) == 0 {
		return 0, nil
	}

	records := make([]eventRecord, len(events))
	for i, event := range events {
		records[i] = newEventRecord(event)
	}

	result := r.client.DB(ctx).CreateInBatches(&records, insertBatchSize)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to insert events: %w", result.Error)
	}

	return int(result.RowsAffected), nil
}

// Ping checks if the database connection is alive
func (r *Repository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx)
}

// Close closes the database connection pool
func (r *Repository) Close() error {
	return r.client.Close()
}

// CountTotals counts views and actions matching the query
func (r *Repository) CountTotals(ctx context.Context, query repository.Query) (repository.Totals, error) {
	var row struct {
		Views   int64
		Actions int64
	}

	err := r.client.DB(ctx).
		Model(&eventRecord{}).
		Scopes(queryScope(query)).
		Select("COUNT(*) FILTER (WHERE name = ?) AS views, COUNT(*) FILTER (WHERE name = ?) AS actions",
			domain.NameView, domain.NameAction).
		Scan(&row).Error
	if err != nil {
		return repository.Totals{}, fmt.Errorf("failed to query totals: %w", err)
	}

	return repository.Totals{Views: uint64(row.Views), Actions: uint64(row.Actions)}, nil
}

type dailyCountRow struct {
	Name  string
	Day   time.Time
	Count int64
}

// CountByDay counts matching events per calendar day of the store zone
func (r *Repository) CountByDay(ctx context.Context, query repository.Query, byName bool) ([]repository.DayCount, error) {
	var rows []dailyCountRow
	if err := r.dailyCounts(ctx, query, byName).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to query daily counts: %w", err)
	}

	result := make([]repository.DayCount, 0, len(rows))
	for _, row := range rows {
		result = append(result, repository.DayCount{
			Name:  row.Name,
			Day:   time.Date(row.Day.Year(), row.Day.Month(), row.Day.Day(), 0, 0, 0, 0, r.location),
			Count: uint64(row.Count),
		})
	}
	return result, nil
}

// dailyCounts builds the day-grouped count statement. Timestamps are shifted
// into the store zone before truncation, so the zone is the first bound var.
func (r *Repository) dailyCounts(ctx context.Context, query repository.Query, byName bool) *gorm.DB {
	selectFields := `date_trunc('day', "time" AT TIME ZONE ?) AS day, COUNT(*) AS count`
	groupBy := "day"
	orderBy := "day ASC"
	if byName {
		selectFields = "name, " + selectFields
		groupBy = "name, day"
		orderBy = "day ASC, name ASC"
	}

	return r.client.DB(ctx).
		Model(&eventRecord{}).
		Scopes(queryScope(query)).
		Select(selectFields, r.location.String()).
		Group(groupBy).
		Order(orderBy)
}

// RecordActivity returns the activity recording preference of a user
func (r *Repository) RecordActivity(ctx context.Context, userID int64) (bool, error) {
	var user userRecord
	err := r.client.DB(ctx).Select("id", "record_activity").First(&user, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, domain.ErrNotFound
	}
	if err != nil {
		return false, fmt.Errorf("failed to load user %d: %w", userID, err)
	}
	return user.RecordActivity, nil
}

// ActionPage loads the enable flags of an action page
func (r *Repository) ActionPage(ctx context.Context, pageID int64) (*domain.ActionPage, error) {
	var page actionPageRecord
	err := r.client.DB(ctx).First(&page, pageID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load action page %d: %w", pageID, err)
	}
	return page.toDomain(), nil
}

// queryScope translates a query into gorm conditions
func queryScope(query repository.Query) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if query.MatchesNothing() {
			return db.Where("1 = 0")
		}
		if query.Name != "" {
			db = db.Where("name = ?", query.Name)
		}
		if query.ActionType != "" {
			db = db.Where(datatypes.JSONQuery("properties").Equals(query.ActionType, domain.PropertyActionType))
		}
		if query.ActionPageID != nil {
			db = db.Where("action_page_id = ?", *query.ActionPageID)
		}
		if !query.From.IsZero() {
			db = db.Where(`"time" >= ?`, query.From)
		}
		if !query.Until.IsZero() {
			db = db.Where(`"time" < ?`, query.Until)
		}
		return db
	}
}
