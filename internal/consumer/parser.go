package consumer

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/BarkinBalci/action-event-service/internal/domain"
	"github.com/BarkinBalci/action-event-service/internal/dto"
)

// JSONEventParser implements MessageParser for JSON-formatted tracked events
type JSONEventParser struct{}

// NewJSONEventParser creates a new JSON event parser
func NewJSONEventParser() *JSONEventParser {
	return &JSONEventParser{}
}

// Parse parses a JSON message body into an Event. Semantic validation is
// left to the event service; only the wire shape is checked here.
func (p *JSONEventParser) Parse(body []byte) (*domain.Event, error) {
	var msg dto.TrackEventMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal message body: %w", err)
	}

	var occurredAt time.Time
	if msg.Time != "" {
		t, err := time.Parse(time.RFC3339Nano, msg.Time)
		if err != nil {
			return nil, fmt.Errorf("invalid event time %q: %w", msg.Time, err)
		}
		occurredAt = t
	}

	properties := msg.Properties
	if properties == nil {
		properties = map[string]any{}
	}

	return &domain.Event{
		Name:         msg.Name,
		Time:         occurredAt,
		VisitID:      msg.VisitID,
		UserID:       msg.UserID,
		ActionPageID: msg.ActionPageID,
		Properties:   properties,
	}, nil
}
