package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/BarkinBalci/action-event-service/internal/domain"
	"github.com/BarkinBalci/action-event-service/internal/repository"
)

// DayCount is a labelled day-grouped count
type DayCount struct {
	Name  string
	Day   time.Time
	Label string
	Count uint64
}

// Table maps a day label to the counts of each lower-cased event name
type Table map[string]map[string]uint64

// Summary holds the total view and action counts
type Summary struct {
	View   uint64
	Action uint64
}

// ChartData counts events per event name and calendar day
func (s *EventService) ChartData(ctx context.Context, query repository.Query) ([]DayCount, error) {
	return s.countByDay(ctx, query, true)
}

// GroupByDate counts events per calendar day
func (s *EventService) GroupByDate(ctx context.Context, query repository.Query) ([]DayCount, error) {
	return s.countByDay(ctx, query, false)
}

// TableData reshapes ChartData into per-day rows keyed by "view" and "action".
// A day only carries the names that occurred on it.
func (s *EventService) TableData(ctx context.Context, query repository.Query) (Table, error) {
	chart, err := s.ChartData(ctx, query)
	if err != nil {
		return nil, err
	}

	table := Table{}
	for _, point := range chart {
		row, ok := table[point.Label]
		if !ok {
			row = make(map[string]uint64, 2)
			table[point.Label] = row
		}
		row[domain.NameKey(point.Name)] = point.Count
	}
	return table, nil
}

// Summary counts all views and actions. It always queries the repository.
func (s *EventService) Summary(ctx context.Context) (*Summary, error) {
	totals, err := s.repository.CountTotals(ctx, repository.NewQuery())
	if err != nil {
		return nil, fmt.Errorf("failed to count events: %w", err)
	}
	return &Summary{View: totals.Views, Action: totals.Actions}, nil
}

func (s *EventService) countByDay(ctx context.Context, query repository.Query, byName bool) ([]DayCount, error) {
	rows, err := s.repository.CountByDay(ctx, query, byName)
	if err != nil {
		return nil, fmt.Errorf("failed to count events by day: %w", err)
	}

	result := make([]DayCount, 0, len(rows))
	for _, row := range rows {
		result = append(result, DayCount{
			Name:  row.Name,
			Day:   row.Day,
			Label: domain.DayLabel(row.Day, s.location),
			Count: row.Count,
		})
	}
	return result, nil
}

type summarizer interface {
	Summary(ctx context.Context) (*Summary, error)
}

// SummaryCache memoizes a summary for the lifetime of one caller scope,
// typically a request or a report run. Do not share it across requests.
type SummaryCache struct {
	source  summarizer
	mu      sync.Mutex
	summary *Summary
}

func NewSummaryCache(source summarizer) *SummaryCache {
	return &SummaryCache{source: source}
}

// Summary returns the cached summary, loading it on first use.
// Failed loads are not cached.
func (c *SummaryCache) Summary(ctx context.Context) (*Summary, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.summary != nil {
		cached := *c.summary
		return &cached, nil
	}

	summary, err := c.source.Summary(ctx)
	if err != nil {
		return nil, err
	}
	c.summary = summary
	cached := *summary
	return &cached, nil
}

// Invalidate drops the cached summary
func (c *SummaryCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.summary = nil
}
