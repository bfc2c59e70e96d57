package crm

import (
	"context"

	"go.uber.org/zap"

	"github.com/BarkinBalci/action-event-service/internal/domain"
	"github.com/BarkinBalci/action-event-service/internal/dto"
	"github.com/BarkinBalci/action-event-service/internal/queue"
)

// Recorder records that a user performed an activity on an action page
type Recorder interface {
	RecordActivity(ctx context.Context, activity domain.Activity) error
}

// QueueRecorder hands activities to the CRM sync worker through a queue
type QueueRecorder struct {
	publisher queue.ActivityPublisher
}

func NewQueueRecorder(publisher queue.ActivityPublisher) *QueueRecorder {
	return &QueueRecorder{publisher: publisher}
}

func (r *QueueRecorder) RecordActivity(ctx context.Context, activity domain.Activity) error {
	return r.publisher.PublishActivity(ctx, &dto.ActivityMessage{
		EventID:      activity.EventID,
		UserID:       activity.UserID,
		ActionPageID: activity.ActionPageID,
		OccurredAt:   activity.OccurredAt.Unix(),
	})
}

// LogRecorder only logs activities. Used when no CRM queue is configured.
type LogRecorder struct {
	log *zap.Logger
}

func NewLogRecorder(log *zap.Logger) *LogRecorder {
	return &LogRecorder{log: log}
}

func (r *LogRecorder) RecordActivity(ctx context.Context, activity domain.Activity) error {
	r.log.Info("CRM activity",
		zap.String("event_id", activity.EventID),
		zap.Int64("user_id", activity.UserID),
		zap.Int64("action_page_id", activity.ActionPageID))
	return nil
}
