package crm

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/BarkinBalci/action-event-service/internal/domain"
)

// DispatcherConfig configures the activity dispatcher
type DispatcherConfig struct {
	Workers    int
	BufferSize int
	Timeout    time.Duration
}

// Dispatcher delivers activities to a Recorder off the write path.
// Dispatch never blocks; delivery failures are logged and dropped.
type Dispatcher struct {
	recorder Recorder
	config   DispatcherConfig
	log      *zap.Logger

	mu     sync.RWMutex
	closed bool
	queue  chan domain.Activity
	wg     sync.WaitGroup
}

// NewDispatcher creates a dispatcher; call Start before dispatching
func NewDispatcher(recorder Recorder, config DispatcherConfig, log *zap.Logger) *Dispatcher {
	if config.Workers < 1 {
		config.Workers = 1
	}
	if config.BufferSize < 0 {
		config.BufferSize = 0
	}
	return &Dispatcher{
		recorder: recorder,
		config:   config,
		log:      log,
		queue:    make(chan domain.Activity, config.BufferSize),
	}
}

// Start launches the workers
func (d *Dispatcher) Start() {
	d.wg.Add(d.config.Workers)
	for i := 0; i < d.config.Workers; i++ {
		go func() {
			defer d.wg.Done()
			for activity := range d.queue {
				d.deliver(activity)
			}
		}()
	}
}

// Dispatch enqueues an activity and reports whether it was accepted
func (d *Dispatcher) Dispatch(activity domain.Activity) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.log.Warn("CRM dispatcher closed, dropping activity",
			zap.String("event_id", activity.EventID))
		return false
	}

	select {
	case d.queue <- activity:
		return true
	default:
		d.log.Warn("CRM dispatch buffer full, dropping activity",
			zap.String("event_id", activity.EventID),
			zap.Int64("user_id", activity.UserID),
			zap.Int64("action_page_id", activity.ActionPageID))
		return false
	}
}

// Close stops accepting activities and waits for queued ones to be delivered
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	d.wg.Wait()
}

func (d *Dispatcher) deliver(activity domain.Activity) {
	ctx := context.Background()
	if d.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.config.Timeout)
		defer cancel()
	}

	if err := d.recorder.RecordActivity(ctx, activity); err != nil {
		d.log.Warn("Failed to record CRM activity",
			zap.String("event_id", activity.EventID),
			zap.Int64("user_id", activity.UserID),
			zap.Int64("action_page_id", activity.ActionPageID),
			zap.Error(err))
	}
}
