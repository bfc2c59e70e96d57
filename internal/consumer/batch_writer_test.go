package consumer

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"github.com/BarkinBalci/action-event-service/internal/domain"
)

// MockEventCreator is a mock implementation of EventCreator
type MockEventCreator struct {
	mock.Mock
}

func (m *MockEventCreator) CreateBatch(ctx context.Context, events []*domain.Event) ([]error, error) {
	args := m.Called(ctx, events)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]error), args.Error(1)
}

// trackedEnvelope records how its message was settled
type trackedEnvelope struct {
	*Envelope
	acked  atomic.Int32
	nacked atomic.Int32
}

func newTrackedEnvelope(id string) *trackedEnvelope {
	tracked := &trackedEnvelope{}
	event := &domain.Event{
		Name:         domain.NameAction,
		Time:         testTime,
		UserID:       int64Ptr(1),
		ActionPageID: int64Ptr(2),
		Properties:   map[string]any{domain.PropertyActionType: domain.ActionEmail},
	}
	tracked.Envelope = NewEnvelope(id, event,
		func(ctx context.Context) error {
			tracked.acked.Add(1)
			return nil
		},
		func(ctx context.Context) error {
			tracked.nacked.Add(1)
			return nil
		})
	return tracked
}

func createTestEnvelope(id string) *Envelope {
	return newTrackedEnvelope(id).Envelope
}

func lenIs(n int) interface{} {
	return mock.MatchedBy(func(events []*domain.Event) bool {
		return len(events) == n
	})
}

func TestBatchWriter_Start_BatchSizeThreshold(t *testing.T) {
	mockCreator := new(MockEventCreator)
	writer := NewBatchWriter(mockCreator, BatchWriterConfig{
		MaxBatchSize: 3,
		FlushTimeout: 10 * time.Second,
	}, zap.NewNop())

	var calls atomic.Int32
	mockCreator.On("CreateBatch", mock.Anything, lenIs(3)).
		Run(func(mock.Arguments) { calls.Add(1) }).
		Return(make([]error, 3), nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	in := make(chan *Envelope, 5)
	go writer.Start(ctx, in)

	in <- createTestEnvelope("1")
	in <- createTestEnvelope("2")
	in <- createTestEnvelope("3")

	assert.Eventually(t, func() bool {
		return calls.Load() == 1
	}, time.Second, 10*time.Millisecond)
	mockCreator.AssertExpectations(t)
}

func TestBatchWriter_Start_TimeoutFlush(t *testing.T) {
	mockCreator := new(MockEventCreator)
	writer := NewBatchWriter(mockCreator, BatchWriterConfig{
		MaxBatchSize: 10,
		FlushTimeout: 50 * time.Millisecond,
	}, zap.NewNop())

	mockCreator.On("CreateBatch", mock.Anything, lenIs(2)).Return(make([]error, 2), nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	in := make(chan *Envelope, 5)
	go writer.Start(ctx, in)

	in <- createTestEnvelope("1")
	in <- createTestEnvelope("2")

	time.Sleep(150 * time.Millisecond)

	mockCreator.AssertExpectations(t)
	mockCreator.AssertNumberOfCalls(t, "CreateBatch", 1)
}

func TestBatchWriter_ProcessBatch_SuccessAcksAll(t *testing.T) {
	mockCreator := new(MockEventCreator)
	writer := NewBatchWriter(mockCreator, BatchWriterConfig{MaxBatchSize: 2, FlushTimeout: time.Second}, zap.NewNop())

	first, second := newTrackedEnvelope("1"), newTrackedEnvelope("2")
	mockCreator.On("CreateBatch", mock.Anything, lenIs(2)).Return(make([]error, 2), nil)

	writer.processBatch(context.Background(), []*Envelope{first.Envelope, second.Envelope})

	assert.Equal(t, int32(1), first.acked.Load())
	assert.Equal(t, int32(1), second.acked.Load())
	assert.Zero(t, first.nacked.Load())
	assert.Zero(t, second.nacked.Load())
	mockCreator.AssertExpectations(t)
}

func TestBatchWriter_ProcessBatch_RejectedEventsAreAcked(t *testing.T) {
	mockCreator := new(MockEventCreator)
	writer := NewBatchWriter(mockCreator, BatchWriterConfig{MaxBatchSize: 2, FlushTimeout: time.Second}, zap.NewNop())

	valid, invalid := newTrackedEnvelope("1"), newTrackedEnvelope("2")
	rejection := fmt.Errorf("%w: unknown action type %q", domain.ErrInvalidEvent, "fax")
	mockCreator.On("CreateBatch", mock.Anything, lenIs(2)).Return([]error{nil, rejection}, nil)

	writer.processBatch(context.Background(), []*Envelope{valid.Envelope, invalid.Envelope})

	assert.Equal(t, int32(1), valid.acked.Load())
	assert.Equal(t, int32(1), invalid.acked.Load())
	assert.Zero(t, invalid.nacked.Load())
}

func TestBatchWriter_ProcessBatch_FailureNacksAll(t *testing.T) {
	mockCreator := new(MockEventCreator)
	writer := NewBatchWriter(mockCreator, BatchWriterConfig{MaxBatchSize: 2, FlushTimeout: time.Second}, zap.NewNop())

	first, second := newTrackedEnvelope("1"), newTrackedEnvelope("2")
	mockCreator.On("CreateBatch", mock.Anything, mock.Anything).Return(nil, errors.New("database connection error"))

	writer.processBatch(context.Background(), []*Envelope{first.Envelope, second.Envelope})

	assert.Zero(t, first.acked.Load())
	assert.Zero(t, second.acked.Load())
	assert.Equal(t, int32(1), first.nacked.Load())
	assert.Equal(t, int32(1), second.nacked.Load())
	mockCreator.AssertExpectations(t)
}

func TestBatchWriter_ProcessBatch_PassesEventsInOrder(t *testing.T) {
	mockCreator := new(MockEventCreator)
	writer := NewBatchWriter(mockCreator, BatchWriterConfig{MaxBatchSize: 3, FlushTimeout: time.Second}, zap.NewNop())

	envelopes := []*Envelope{createTestEnvelope("1"), createTestEnvelope("2"), createTestEnvelope("3")}
	mockCreator.On("CreateBatch", mock.Anything, mock.MatchedBy(func(events []*domain.Event) bool {
		if len(events) != len(envelopes) {
			return false
		}
		for i, event := range events {
			if event != envelopes[i].Event {
				return false
			}
		}
		return true
	})).Return(make([]error, 3), nil)

	writer.processBatch(context.Background(), envelopes)

	mockCreator.AssertExpectations(t)
}

func TestBatchWriter_Start_GracefulShutdownFlushes(t *testing.T) {
	mockCreator := new(MockEventCreator)
	writer := NewBatchWriter(mockCreator, BatchWriterConfig{
		MaxBatchSize: 10,
		FlushTimeout: 10 * time.Second,
	}, zap.NewNop())

	var flushCtxErr error
	mockCreator.On("CreateBatch", mock.Anything, lenIs(2)).
		Run(func(args mock.Arguments) {
			flushCtxErr = args.Get(0).(context.Context).Err()
		}).
		Return(make([]error, 2), nil)

	ctx, cancel := context.WithCancel(context.Background())

	in := make(chan *Envelope, 5)
	done := make(chan struct{})
	go func() {
		writer.Start(ctx, in)
		close(done)
	}()

	in <- createTestEnvelope("1")
	in <- createTestEnvelope("2")
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(200 * time.Millisecond):
		t.Fatal("Graceful shutdown took too long")
	}

	mockCreator.AssertExpectations(t)
	assert.NoError(t, flushCtxErr, "final flush should not run on a cancelled context")
}

func TestBatchWriter_Start_InputChannelClosed(t *testing.T) {
	mockCreator := new(MockEventCreator)
	writer := NewBatchWriter(mockCreator, BatchWriterConfig{
		MaxBatchSize: 10,
		FlushTimeout: 10 * time.Second,
	}, zap.NewNop())

	mockCreator.On("CreateBatch", mock.Anything, lenIs(2)).Return(make([]error, 2), nil)

	in := make(chan *Envelope, 5)
	done := make(chan struct{})
	go func() {
		writer.Start(context.Background(), in)
		close(done)
	}()

	in <- createTestEnvelope("1")
	in <- createTestEnvelope("2")
	close(in)

	select {
	case <-done:
	case <-time.After(200 * time.Millisecond):
		t.Fatal("Shutdown took too long after input channel closed")
	}

	mockCreator.AssertExpectations(t)
}

func TestBatchWriter_Start_EmptyBatchNotFlushed(t *testing.T) {
	mockCreator := new(MockEventCreator)
	writer := NewBatchWriter(mockCreator, BatchWriterConfig{
		MaxBatchSize: 10,
		FlushTimeout: 20 * time.Millisecond,
	}, zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	in := make(chan *Envelope)
	writer.Start(ctx, in)

	mockCreator.AssertNotCalled(t, "CreateBatch", mock.Anything, mock.Anything)
}

func TestBatchWriter_Start_MultipleBatches(t *testing.T) {
	mockCreator := new(MockEventCreator)
	writer := NewBatchWriter(mockCreator, BatchWriterConfig{
		MaxBatchSize: 2,
		FlushTimeout: 10 * time.Second,
	}, zap.NewNop())

	var calls atomic.Int32
	mockCreator.On("CreateBatch", mock.Anything, lenIs(2)).
		Run(func(mock.Arguments) { calls.Add(1) }).
		Return(make([]error, 2), nil).Times(2)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	in := make(chan *Envelope, 10)
	go writer.Start(ctx, in)

	for i := 1; i <= 4; i++ {
		in <- createTestEnvelope(fmt.Sprint(i))
	}

	assert.Eventually(t, func() bool {
		return calls.Load() == 2
	}, time.Second, 10*time.Millisecond)
	mockCreator.AssertExpectations(t)
}
