package consumer

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/BarkinBalci/action-event-service/internal/domain"
)

// BatchWriterConfig configures the batch writer
type BatchWriterConfig struct {
	MaxBatchSize int
	FlushTimeout time.Duration
}

// BatchWriter collects envelopes into batches and hands them to the event service
type BatchWriter struct {
	creator EventCreator
	config  BatchWriterConfig
	log     *zap.Logger
}

// NewBatchWriter creates a new batch writer
func NewBatchWriter(creator EventCreator, config BatchWriterConfig, log *zap.Logger) *BatchWriter {
	return &BatchWriter{
		creator: creator,
		config:  config,
		log:     log,
	}
}

// Start batches envelopes from in and flushes on size or timeout
func (w *BatchWriter) Start(ctx context.Context, in <-chan *Envelope) {
	ticker := time.NewTicker(w.config.FlushTimeout)
	defer ticker.Stop()

	batch := make([]*Envelope, 0, w.config.MaxBatchSize)

	for {
		select {
		case <-ctx.Done():
			w.log.Info("Batch writer shutting down")
			w.flush(context.WithoutCancel(ctx), batch)
			return

		case envelope, ok := <-in:
			if !ok {
				w.log.Info("Batch writer input channel closed")
				w.flush(ctx, batch)
				return
			}

			batch = append(batch, envelope)

			if len(batch) >= w.config.MaxBatchSize {
				w.log.Debug("Batch size threshold reached", zap.Int("batch_size", len(batch)))
				w.processBatch(ctx, batch)
				batch = make([]*Envelope, 0, w.config.MaxBatchSize)
				ticker.Reset(w.config.FlushTimeout)
			}

		case <-ticker.C:
			if len(batch) > 0 {
				w.log.Debug("Batch timeout reached", zap.Int("envelope_count", len(batch)))
				w.processBatch(ctx, batch)
				batch = make([]*Envelope, 0, w.config.MaxBatchSize)
			}
		}
	}
}

func (w *BatchWriter) flush(ctx context.Context, batch []*Envelope) {
	if len(batch) == 0 {
		return
	}
	w.log.Info("Flushing final batch", zap.Int("envelope_count", len(batch)))
	w.processBatch(ctx, batch)
}

// processBatch creates the batch's events and settles their messages.
// Rejected events are acknowledged since redelivery cannot fix them.
func (w *BatchWriter) processBatch(ctx context.Context, envelopes []*Envelope) {
	if len(envelopes) == 0 {
		return
	}

	events := make([]*domain.Event, len(envelopes))
	for i, env := range envelopes {
		events[i] = env.Event
	}

	rejections, err := w.creator.CreateBatch(ctx, events)
	if err != nil {
		w.log.Error("Failed to create event batch",
			zap.Error(err),
			zap.Int("event_count", len(events)))
		w.nackAll(ctx, envelopes)
		return
	}

	rejected := 0
	for i, rejection := range rejections {
		if rejection == nil {
			continue
		}
		rejected++
		w.log.Warn("Rejected event",
			zap.String("message_id", envelopes[i].MessageID),
			zap.Error(rejection))
	}

	w.log.Info("Processed event batch",
		zap.Int("created", len(events)-rejected),
		zap.Int("rejected", rejected))
	w.ackAll(ctx, envelopes)
}

// ackAll acknowledges all envelopes (deletes from SQS)
func (w *BatchWriter) ackAll(ctx context.Context, envelopes []*Envelope) {
	for _, env := range envelopes {
		if err := env.Ack(ctx); err != nil {
			w.log.Error("Failed to ack envelope",
				zap.String("message_id", env.MessageID),
				zap.Error(err))
		}
	}
}

// nackAll leaves all envelopes in SQS for retry
func (w *BatchWriter) nackAll(ctx context.Context, envelopes []*Envelope) {
	for _, env := range envelopes {
		if err := env.Nack(ctx); err != nil {
			w.log.Error("Failed to nack envelope",
				zap.String("message_id", env.MessageID),
				zap.Error(err))
		}
	}
}
