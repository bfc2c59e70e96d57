package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BarkinBalci/action-event-service/internal/config"
	"github.com/BarkinBalci/action-event-service/internal/domain"
	"github.com/BarkinBalci/action-event-service/internal/repository"
)

// newTestRepository connects to POSTGRES_TEST_URL and prepares empty tables.
// The tables are created here only because the test database has no
// application migrations.
func newTestRepository(t *testing.T) *Repository {
	t.Helper()

	url := os.Getenv("POSTGRES_TEST_URL")
	if url == "" {
		t.Skip("POSTGRES_TEST_URL not set")
	}

	ctx := context.Background()
	client, err := NewClient(ctx, &config.Postgres{
		URL:             url,
		MaxOpenConns:    2,
		MaxIdleConns:    1,
		ConnMaxLifetime: time.Minute,
	}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	db := client.DB(ctx)
	require.NoError(t, db.AutoMigrate(&eventRecord{}, &userRecord{}, &actionPageRecord{}))
	require.NoError(t, db.Exec("TRUNCATE ahoy_events, users, action_pages").Error)

	return NewRepository(client, time.UTC, zap.NewNop())
}

func int64Ptr(v int64) *int64 {
	return &v
}

func TestRepository_Integration(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	require.NoError(t, repo.InitSchema(ctx))
	require.NoError(t, repo.Ping(ctx))

	day := time.Date(2019, time.June, 1, 0, 0, 0, 0, time.UTC)
	events := []*domain.Event{
		{ID: uuid.NewString(), Name: domain.NameView, Time: day.Add(9 * time.Hour), ActionPageID: int64Ptr(1), Properties: map[string]any{}},
		{ID: uuid.NewString(), Name: domain.NameAction, Time: day.Add(10 * time.Hour), ActionPageID: int64Ptr(1), Properties: map[string]any{"actionType": "email"}},
		{ID: uuid.NewString(), Name: domain.NameView, Time: day.Add(35 * time.Hour), Properties: map[string]any{}},
	}

	inserted, err := repo.InsertBatch(ctx, events)
	require.NoError(t, err)
	assert.Equal(t, 3, inserted)

	totals, err := repo.CountTotals(ctx, repository.NewQuery())
	require.NoError(t, err)
	assert.Equal(t, repository.Totals{Views: 2, Actions: 1}, totals)

	emails, err := repo.CountTotals(ctx, repository.NewQuery().Emails().OnPage(1))
	require.NoError(t, err)
	assert.Equal(t, repository.Totals{Actions: 1}, emails)

	byName, err := repo.CountByDay(ctx, repository.NewQuery(), true)
	require.NoError(t, err)
	assert.Equal(t, []repository.DayCount{
		{Name: domain.NameAction, Day: day, Count: 1},
		{Name: domain.NameView, Day: day, Count: 1},
		{Name: domain.NameView, Day: day.AddDate(0, 0, 1), Count: 1},
	}, byName)

	firstDay, err := repo.CountByDay(ctx, repository.NewQuery().InRange(day, day), false)
	require.NoError(t, err)
	assert.Equal(t, []repository.DayCount{{Day: day, Count: 2}}, firstDay)
}

func TestRepository_IntegrationProviders(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	db := repo.client.DB(ctx)

	require.NoError(t, db.Create(&userRecord{ID: 1, RecordActivity: true}).Error)
	require.NoError(t, db.Create(&actionPageRecord{ID: 2, EnableEmail: true}).Error)

	recordActivity, err := repo.RecordActivity(ctx, 1)
	require.NoError(t, err)
	assert.True(t, recordActivity)

	_, err = repo.RecordActivity(ctx, 99)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	page, err := repo.ActionPage(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, &domain.ActionPage{ID: 2, EnableEmail: true}, page)

	_, err = repo.ActionPage(ctx, 99)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestNewEventRecord(t *testing.T) {
	event := &domain.Event{
		ID:           "b9f2f3d6-3c6e-4b59-9d7a-0d7d4b1e7b10",
		Name:         domain.NameAction,
		Time:         time.Date(2019, time.June, 1, 12, 0, 0, 0, time.UTC),
		UserID:       int64Ptr(4),
		ActionPageID: int64Ptr(5),
		Properties:   map[string]any{"actionType": "tweet"},
	}

	record := newEventRecord(event)
	event.Properties["actionType"] = "call"

	assert.Equal(t, event.ID, record.ID)
	assert.Equal(t, event.Time, record.Time)
	assert.Equal(t, int64(4), *record.UserID)
	assert.Nil(t, record.VisitID)
	assert.Equal(t, "tweet", record.Properties["actionType"])
}
