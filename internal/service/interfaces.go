package service

import (
	"context"

	"github.com/BarkinBalci/action-event-service/internal/domain"
	"github.com/BarkinBalci/action-event-service/internal/repository"
)

// ActivityDispatcher hands CRM activities off without blocking the caller
type ActivityDispatcher interface {
	Dispatch(activity domain.Activity) bool
}

// EventServicer defines the interface for event service operations
type EventServicer interface {
	Create(ctx context.Context, event *domain.Event) (*domain.Event, error)
	CreateBatch(ctx context.Context, events []*domain.Event) ([]error, error)
	ActionTypesForPage(ctx context.Context, pageID *int64) ([]domain.EventType, error)
	ChartData(ctx context.Context, query repository.Query) ([]DayCount, error)
	TableData(ctx context.Context, query repository.Query) (Table, error)
	GroupByDate(ctx context.Context, query repository.Query) ([]DayCount, error)
	Summary(ctx context.Context) (*Summary, error)
}
