package clickhouse

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"go.uber.org/zap"

	"github.com/BarkinBalci/action-event-service/internal/domain"
	"github.com/BarkinBalci/action-event-service/internal/repository"
)

// Repository implements EventRepository for ClickHouse
type Repository struct {
	client   *Client
	location *time.Location
	log      *zap.Logger
}

// NewRepository creates a new ClickHouse repository grouping days in the
// session zone of client
func NewRepository(client *Client, log *zap.Logger) *Repository {
	return &Repository{
		client:   client,
		location: client.Location(),
		log:      log,
	}
}

// InitSchema creates the events table. The action type is kept as its own
// column so per-type filters never parse the properties JSON.
func (r *Repository) InitSchema(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS action_events (
		id String,
		name LowCardinality(String),
		time DateTime64(3, 'UTC'),
		visit_id Nullable(Int64),
		user_id Nullable(Int64),
		action_page_id Nullable(Int64),
		action_type LowCardinality(String),
		properties String
	) ENGINE = MergeTree
	PARTITION BY toYYYYMM(time)
	ORDER BY (name, time, id)
	SETTINGS index_granularity = 8192
	`

	if err := r.client.Conn().Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create action_events table: %w", err)
	}

	r.log.Info("ClickHouse schema initialized successfully")
	return nil
}

// InsertBatch inserts a batch of events into ClickHouse
func (r *Repository) InsertBatch(ctx context.Context, events []*domain.Event) (int, error) {
	if len(events) == 0 {
		return 0, nil
	}

	batch, err := r.client.Conn().PrepareBatch(ctx, "INSERT INTO action_events")
	if err != nil {
		return 0, fmt.Errorf("failed to prepare batch: %w", err)
	}

	insertedCount := 0
	for _, event := range events {
		properties := event.Properties
		if properties == nil {
			properties = map[string]any{}
		}
		propertiesJSON, err := json.Marshal(properties)
		if err != nil {
			return 0, fmt.Errorf("failed to marshal properties of event %s: %w", event.ID, err)
		}

		err = batch.Append(
			event.ID,
			event.Name,
			event.Time,
			event.VisitID,
			event.UserID,
			event.ActionPageID,
			event.ActionType(),
			string(propertiesJSON),
		)
		if err != nil {
			return 0, fmt.Errorf("failed to append event to batch: %w", err)
		}
		insertedCount++
	}

	if err := batch.Send(); err != nil {
		return 0, fmt.Errorf("failed to send batch: %w", err)
	}

	return insertedCount, nil
}

// Ping checks if the ClickHouse connection is alive
func (r *Repository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx)
}

// Close closes the ClickHouse connection
func (r *Repository) Close() error {
	return r.client.Close()
}

// CountTotals counts views and actions matching the query
func (r *Repository) CountTotals(ctx context.Context, query repository.Query) (repository.Totals, error) {
	where, args := whereClause(query)

	totalsQuery := fmt.Sprintf(`
		SELECT
			countIf(name = 'View') AS views,
			countIf(name = 'Action') AS actions
		FROM action_events
		%s
	`, where)

	var totals repository.Totals
	row := r.client.Conn().QueryRow(ctx, totalsQuery, args...)
	if err := row.Scan(&totals.Views, &totals.Actions); err != nil {
		return repository.Totals{}, fmt.Errorf("failed to query totals: %w", err)
	}
	return totals, nil
}

// CountByDay counts matching events per calendar day of the store zone
func (r *Repository) CountByDay(ctx context.Context, query repository.Query, byName bool) ([]repository.DayCount, error) {
	groupedQuery, args := dailyCountsQuery(query, byName, r.location)

	rows, err := r.client.Conn().Query(ctx, groupedQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily counts: %w", err)
	}
	defer func(rows driver.Rows) {
		if err := rows.Close(); err != nil {
			r.log.Error("Failed to close daily count rows", zap.Error(err))
		}
	}(rows)

	result := []repository.DayCount{}
	for rows.Next() {
		var (
			name  string
			day   time.Time
			count uint64
		)
		if err := rows.Scan(&name, &day, &count); err != nil {
			return nil, fmt.Errorf("failed to scan daily count row: %w", err)
		}
		result = append(result, repository.DayCount{
			Name:  name,
			Day:   time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, r.location),
			Count: count,
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating daily count rows: %w", err)
	}

	return result, nil
}

// dailyCountsQuery builds the day-grouped count statement. The zone is the
// first positional arg, ahead of the WHERE args.
func dailyCountsQuery(query repository.Query, byName bool, loc *time.Location) (string, []any) {
	where, whereArgs := whereClause(query)
	args := append([]any{loc.String()}, whereArgs...)

	selectFields := "'' AS name, toDate(time, ?) AS day, count() AS total"
	groupBy := "GROUP BY day"
	orderBy := "ORDER BY day ASC"
	if byName {
		selectFields = "name, toDate(time, ?) AS day, count() AS total"
		groupBy = "GROUP BY name, day"
		orderBy = "ORDER BY day ASC, name ASC"
	}

	return fmt.Sprintf(`
		SELECT %s
		FROM action_events
		%s
		%s
		%s
	`, selectFields, where, groupBy, orderBy), args
}

// whereClause translates a query into a WHERE clause and its positional args
func whereClause(query repository.Query) (string, []any) {
	if query.MatchesNothing() {
		return "WHERE 0", nil
	}

	var (
		conditions []string
		args       []any
	)

	if query.Name != "" {
		conditions = append(conditions, "name = ?")
		args = append(args, query.Name)
	}
	if query.ActionType != "" {
		conditions = append(conditions, "action_type = ?")
		args = append(args, query.ActionType)
	}
	if query.ActionPageID != nil {
		conditions = append(conditions, "action_page_id = ?")
		args = append(args, *query.ActionPageID)
	}
	if !query.From.IsZero() {
		conditions = append(conditions, "time >= ?")
		args = append(args, query.From)
	}
	if !query.Until.IsZero() {
		conditions = append(conditions, "time < ?")
		args = append(args, query.Until)
	}

	if len(conditions) == 0 {
		return "", nil
	}
	return "WHERE " + strings.Join(conditions, " AND "), args
}
