package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BarkinBalci/action-event-service/internal/domain"
	"github.com/BarkinBalci/action-event-service/internal/repository"
)

// EventService records events and serves the aggregation queries
type EventService struct {
	repository repository.EventRepository
	users      repository.UserRepository
	pages      repository.ActionPageRepository
	dispatcher ActivityDispatcher
	location   *time.Location
	now        func() time.Time
	log        *zap.Logger
}

// NewEventService creates a new event service. Calendar days are computed in loc.
// A nil dispatcher disables CRM notifications.
func NewEventService(
	repo repository.EventRepository,
	users repository.UserRepository,
	pages repository.ActionPageRepository,
	dispatcher ActivityDispatcher,
	loc *time.Location,
	log *zap.Logger,
) *EventService {
	if loc == nil {
		loc = time.UTC
	}
	return &EventService{
		repository: repo,
		users:      users,
		pages:      pages,
		dispatcher: dispatcher,
		location:   loc,
		now:        time.Now,
		log:        log,
	}
}

// Create validates, normalizes and persists a single event. The event is
// updated in place only once it is persisted. Validation failures wrap
// domain.ErrInvalidEvent and persist nothing.
func (s *EventService) Create(ctx context.Context, event *domain.Event) (*domain.Event, error) {
	rejected, err := s.CreateBatch(ctx, []*domain.Event{event})
	if err != nil {
		return nil, err
	}
	if rejected[0] != nil {
		return nil, rejected[0]
	}
	return event, nil
}

// CreateBatch persists the valid events of a batch in one write. The returned
// slice holds the validation error of each rejected event at its index and
// nil for persisted ones. A storage failure persists nothing, leaves the
// events untouched and is returned as the second value.
func (s *EventService) CreateBatch(ctx context.Context, events []*domain.Event) ([]error, error) {
	rejected := make([]error, len(events))
	accepted := make([]*domain.Event, 0, len(events))
	sources := make([]int, 0, len(events))
	userKnown := make([]bool, 0, len(events))

	for i, event := range events {
		if event == nil {
			rejected[i] = fmt.Errorf("%w: missing event", domain.ErrInvalidEvent)
			continue
		}
		if err := event.Validate(); err != nil {
			s.log.Warn("Rejected invalid event",
				zap.Int("index", i),
				zap.String("name", event.Name),
				zap.Error(err))
			rejected[i] = err
			continue
		}

		normalized, known, err := s.normalize(ctx, event)
		if err != nil {
			return nil, err
		}
		accepted = append(accepted, normalized)
		sources = append(sources, i)
		userKnown = append(userKnown, known)
	}

	if len(accepted) == 0 {
		return rejected, nil
	}

	insertedCount, err := s.repository.InsertBatch(ctx, accepted)
	if err != nil {
		return nil, fmt.Errorf("failed to persist events: %w", err)
	}
	if insertedCount != len(accepted) {
		return nil, fmt.Errorf("partial insert: %d of %d events persisted", insertedCount, len(accepted))
	}

	for i, event := range accepted {
		*events[sources[i]] = *event
		if userKnown[i] {
			s.notify(event)
		}
	}

	return rejected, nil
}

// normalize returns a copy of event with the opt-out and anonymization rules
// applied and the id and time stamped. It reports whether the event's user
// record was resolved.
func (s *EventService) normalize(ctx context.Context, source *domain.Event) (*domain.Event, bool, error) {
	event := *source
	userKnown := false

	if event.UserID != nil {
		recordActivity, err := s.users.RecordActivity(ctx, *event.UserID)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			s.log.Debug("Event references unknown user", zap.Int64("user_id", *event.UserID))
		case err != nil:
			return nil, false, fmt.Errorf("failed to check activity preference of user %d: %w", *event.UserID, err)
		default:
			userKnown = true
			if !recordActivity {
				event.UserID = nil
			}
		}
	}

	if event.Name == domain.NameView {
		event.UserID = nil
	}

	event.ID = uuid.NewString()
	if event.Time.IsZero() {
		event.Time = s.now()
	}

	return &event, userKnown, nil
}

func (s *EventService) notify(event *domain.Event) {
	if s.dispatcher == nil {
		return
	}
	activity, ok := domain.ActivityFor(event)
	if !ok {
		return
	}
	s.dispatcher.Dispatch(activity)
}

// ActionTypesForPage returns the event types enabled on a page. A nil or
// unknown page id enables every type.
func (s *EventService) ActionTypesForPage(ctx context.Context, pageID *int64) ([]domain.EventType, error) {
	if pageID == nil {
		return domain.ActionTypesFor(nil), nil
	}

	page, err := s.pages.ActionPage(ctx, *pageID)
	if errors.Is(err, domain.ErrNotFound) {
		s.log.Debug("Unknown action page, using all event types", zap.Int64("action_page_id", *pageID))
		return domain.ActionTypesFor(nil), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load action page %d: %w", *pageID, err)
	}

	return domain.ActionTypesFor(page), nil
}
