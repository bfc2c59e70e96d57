package consumer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BarkinBalci/action-event-service/internal/domain"
)

var testTime = time.Date(2019, time.June, 1, 12, 0, 0, 0, time.UTC)

func int64Ptr(v int64) *int64 {
	return &v
}

// MockMessageParser is a mock implementation of MessageParser
type MockMessageParser struct {
	mock.Mock
}

func (m *MockMessageParser) Parse(body []byte) (*domain.Event, error) {
	args := m.Called(body)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Event), args.Error(1)
}

// collectEnvelopes drains out until it closes or the timeout elapses
func collectEnvelopes(out <-chan *Envelope, timeout time.Duration) []*Envelope {
	var envelopes []*Envelope
	deadline := time.After(timeout)
	for {
		select {
		case envelope, ok := <-out:
			if !ok {
				return envelopes
			}
			envelopes = append(envelopes, envelope)
		case <-deadline:
			return envelopes
		}
	}
}

func TestParserStage_Start_Success(t *testing.T) {
	mockConsumer := new(MockQueueConsumer)
	mockParser := new(MockMessageParser)
	parserStage := NewParserStage(mockConsumer, mockParser, zap.NewNop())

	message := types.Message{
		MessageId:     aws.String("msg-1"),
		Body:          aws.String(`{"name":"View"}`),
		ReceiptHandle: aws.String("receipt-1"),
	}
	event := &domain.Event{Name: domain.NameView, Time: testTime, ActionPageID: int64Ptr(7)}
	mockParser.On("Parse", []byte(`{"name":"View"}`)).Return(event, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	in := make(chan types.Message, 1)
	out := make(chan *Envelope, 1)
	go parserStage.Start(ctx, in, out)

	in <- message
	close(in)

	envelopes := collectEnvelopes(out, 100*time.Millisecond)
	require.Len(t, envelopes, 1)
	assert.Equal(t, "msg-1", envelopes[0].MessageID)
	assert.Equal(t, domain.NameView, envelopes[0].Event.Name)
	assert.Equal(t, int64(7), *envelopes[0].Event.ActionPageID)

	mockParser.AssertExpectations(t)
	mockConsumer.AssertNotCalled(t, "DeleteMessage", mock.Anything, mock.Anything)
}

func TestParserStage_EnvelopeAckDeletesMessage(t *testing.T) {
	mockConsumer := new(MockQueueConsumer)
	mockParser := new(MockMessageParser)
	parserStage := NewParserStage(mockConsumer, mockParser, zap.NewNop())

	mockConsumer.On("QueueURL").Return(testQueueURL)
	mockConsumer.On("DeleteMessage", mock.Anything, mock.MatchedBy(func(input *sqs.DeleteMessageInput) bool {
		return aws.ToString(input.QueueUrl) == testQueueURL && aws.ToString(input.ReceiptHandle) == "receipt-1"
	})).Return(&sqs.DeleteMessageOutput{}, nil).Once()

	mockParser.On("Parse", mock.Anything).Return(&domain.Event{Name: domain.NameView}, nil)

	envelope := parserStage.parseMessage(context.Background(), types.Message{
		MessageId:     aws.String("msg-1"),
		Body:          aws.String(`{"name":"View"}`),
		ReceiptHandle: aws.String("receipt-1"),
	})
	require.NotNil(t, envelope)

	assert.NoError(t, envelope.Nack(context.Background()))
	mockConsumer.AssertNotCalled(t, "DeleteMessage", mock.Anything, mock.Anything)

	assert.NoError(t, envelope.Ack(context.Background()))
	mockConsumer.AssertExpectations(t)
}

func TestParserStage_Start_MalformedMessage(t *testing.T) {
	mockConsumer := new(MockQueueConsumer)
	mockParser := new(MockMessageParser)
	parserStage := NewParserStage(mockConsumer, mockParser, zap.NewNop())

	mockConsumer.On("QueueURL").Return(testQueueURL)
	mockConsumer.On("DeleteMessage", mock.Anything, mock.AnythingOfType("*sqs.DeleteMessageInput")).
		Return(&sqs.DeleteMessageOutput{}, nil)
	mockParser.On("Parse", []byte(`{invalid json}`)).Return(nil, errors.New("invalid JSON format"))

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	in := make(chan types.Message, 1)
	out := make(chan *Envelope, 1)
	go parserStage.Start(ctx, in, out)

	in <- types.Message{
		MessageId:     aws.String("msg-1"),
		Body:          aws.String(`{invalid json}`),
		ReceiptHandle: aws.String("receipt-1"),
	}
	close(in)

	envelopes := collectEnvelopes(out, 100*time.Millisecond)
	assert.Empty(t, envelopes, "Should not receive any envelope for malformed message")
	mockParser.AssertExpectations(t)
	mockConsumer.AssertCalled(t, "DeleteMessage", mock.Anything, mock.AnythingOfType("*sqs.DeleteMessageInput"))
}

func TestParserStage_Start_DeleteMessageFailure(t *testing.T) {
	mockConsumer := new(MockQueueConsumer)
	mockParser := new(MockMessageParser)
	parserStage := NewParserStage(mockConsumer, mockParser, zap.NewNop())

	mockConsumer.On("QueueURL").Return(testQueueURL)
	mockConsumer.On("DeleteMessage", mock.Anything, mock.AnythingOfType("*sqs.DeleteMessageInput")).
		Return(nil, errors.New("failed to delete message from SQS"))
	mockParser.On("Parse", []byte(`{invalid}`)).Return(nil, errors.New("invalid JSON"))

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	in := make(chan types.Message, 1)
	out := make(chan *Envelope, 1)
	go parserStage.Start(ctx, in, out)

	in <- types.Message{
		MessageId:     aws.String("msg-1"),
		Body:          aws.String(`{invalid}`),
		ReceiptHandle: aws.String("receipt-1"),
	}
	close(in)

	envelopes := collectEnvelopes(out, 100*time.Millisecond)
	assert.Empty(t, envelopes)
	mockParser.AssertExpectations(t)
	mockConsumer.AssertCalled(t, "DeleteMessage", mock.Anything, mock.AnythingOfType("*sqs.DeleteMessageInput"))
}

func TestParserStage_Start_ContextCancellation(t *testing.T) {
	parserStage := NewParserStage(new(MockQueueConsumer), new(MockMessageParser), zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	in := make(chan types.Message)
	out := make(chan *Envelope, 1)
	parserStage.Start(ctx, in, out)

	_, ok := <-out
	assert.False(t, ok, "Output channel should be closed after context cancellation")
}

func TestParserStage_Start_InputChannelClosed(t *testing.T) {
	parserStage := NewParserStage(new(MockQueueConsumer), new(MockMessageParser), zap.NewNop())

	in := make(chan types.Message)
	out := make(chan *Envelope, 1)
	close(in)

	parserStage.Start(context.Background(), in, out)

	_, ok := <-out
	assert.False(t, ok, "Output channel should be closed when input channel is closed")
}

func TestParserStage_Start_MultipleMessages(t *testing.T) {
	mockConsumer := new(MockQueueConsumer)
	mockParser := new(MockMessageParser)
	parserStage := NewParserStage(mockConsumer, mockParser, zap.NewNop())

	mockConsumer.On("QueueURL").Return(testQueueURL)
	mockConsumer.On("DeleteMessage", mock.Anything, mock.AnythingOfType("*sqs.DeleteMessageInput")).
		Return(&sqs.DeleteMessageOutput{}, nil).Maybe()

	messages := []types.Message{
		{MessageId: aws.String("msg-1"), Body: aws.String(`{"name":"View"}`), ReceiptHandle: aws.String("receipt-1")},
		{MessageId: aws.String("msg-2"), Body: aws.String(`{invalid}`), ReceiptHandle: aws.String("receipt-2")},
		{MessageId: aws.String("msg-3"), Body: aws.String(`{"name":"Action"}`), ReceiptHandle: aws.String("receipt-3")},
	}

	mockParser.On("Parse", []byte(`{"name":"View"}`)).Return(&domain.Event{Name: domain.NameView}, nil)
	mockParser.On("Parse", []byte(`{invalid}`)).Return(nil, errors.New("parse error"))
	mockParser.On("Parse", []byte(`{"name":"Action"}`)).Return(&domain.Event{Name: domain.NameAction}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	in := make(chan types.Message, 3)
	out := make(chan *Envelope, 3)
	go parserStage.Start(ctx, in, out)

	for _, msg := range messages {
		in <- msg
	}
	close(in)

	envelopes := collectEnvelopes(out, 100*time.Millisecond)
	require.Len(t, envelopes, 2)
	assert.Equal(t, "msg-1", envelopes[0].MessageID)
	assert.Equal(t, domain.NameView, envelopes[0].Event.Name)
	assert.Equal(t, "msg-3", envelopes[1].MessageID)
	assert.Equal(t, domain.NameAction, envelopes[1].Event.Name)

	mockParser.AssertExpectations(t)
	mockConsumer.AssertNumberOfCalls(t, "DeleteMessage", 1)
}
