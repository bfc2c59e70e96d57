package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/BarkinBalci/action-event-service/internal/domain"
	"github.com/BarkinBalci/action-event-service/internal/repository"
)

// Repository keeps events, users and action pages in process memory.
// It serves local runs without a database and the service tests.
type Repository struct {
	mu       sync.RWMutex
	location *time.Location
	events   []domain.Event
	users    map[int64]bool
	pages    map[int64]domain.ActionPage
}

// NewRepository creates an empty repository grouping days in loc
func NewRepository(loc *time.Location) *Repository {
	if loc == nil {
		loc = time.UTC
	}
	return &Repository{
		location: loc,
		users:    make(map[int64]bool),
		pages:    make(map[int64]domain.ActionPage),
	}
}

// PutUser registers a user and its activity recording preference
func (r *Repository) PutUser(userID int64, recordActivity bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[userID] = recordActivity
}

// PutActionPage registers an action page
func (r *Repository) PutActionPage(page domain.ActionPage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pages[page.ID] = page
}

func (r *Repository) InitSchema(ctx context.Context) error {
	return nil
}

func (r *Repository) Ping(ctx context.Context) error {
	return nil
}

func (r *Repository) Close() error {
	return nil
}

// InsertBatch stores copies of the events
func (r *Repository) InsertBatch(ctx context.Context, events []*domain.Event) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, event := range events {
		r.events = append(r.events, copyEvent(event))
	}
	return len(events), nil
}

// Events returns copies of all stored events in insertion order
func (r *Repository) Events() []domain.Event {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Event, 0, len(r.events))
	for i := range r.events {
		out = append(out, copyEvent(&r.events[i]))
	}
	return out
}

func (r *Repository) CountTotals(ctx context.Context, query repository.Query) (repository.Totals, error) {
	var totals repository.Totals
	r.each(query, func(e *domain.Event) {
		switch e.Name {
		case domain.NameView:
			totals.Views++
		case domain.NameAction:
			totals.Actions++
		}
	})
	return totals, nil
}

func (r *Repository) CountByDay(ctx context.Context, query repository.Query, byName bool) ([]repository.DayCount, error) {
	type key struct {
		name string
		day  time.Time
	}
	counts := make(map[key]uint64)
	r.each(query, func(e *domain.Event) {
		k := key{day: domain.StartOfDay(e.Time, r.location)}
		if byName {
			k.name = e.Name
		}
		counts[k]++
	})

	result := make([]repository.DayCount, 0, len(counts))
	for k, count := range counts {
		result = append(result, repository.DayCount{Name: k.name, Day: k.day, Count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].Day.Equal(result[j].Day) {
			return result[i].Day.Before(result[j].Day)
		}
		return result[i].Name < result[j].Name
	})
	return result, nil
}

func (r *Repository) RecordActivity(ctx context.Context, userID int64) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	recordActivity, ok := r.users[userID]
	if !ok {
		return false, domain.ErrNotFound
	}
	return recordActivity, nil
}

func (r *Repository) ActionPage(ctx context.Context, pageID int64) (*domain.ActionPage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	page, ok := r.pages[pageID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &page, nil
}

func (r *Repository) each(query repository.Query, fn func(e *domain.Event)) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for i := range r.events {
		if query.Matches(&r.events[i]) {
			fn(&r.events[i])
		}
	}
}

func copyEvent(e *domain.Event) domain.Event {
	c := *e
	if e.Properties != nil {
		c.Properties = make(map[string]any, len(e.Properties))
		for k, v := range e.Properties {
			c.Properties[k] = v
		}
	}
	return c
}
