package dto

// TrackEventMessage is the queue message body of a tracked event
type TrackEventMessage struct {
	Name         string         `json:"name"`
	Time         string         `json:"time,omitempty"`
	VisitID      *int64         `json:"visit_id,omitempty"`
	UserID       *int64         `json:"user_id,omitempty"`
	ActionPageID *int64         `json:"action_page_id,omitempty"`
	Properties   map[string]any `json:"properties,omitempty"`
}

// ActivityMessage is the queue message body of a CRM activity
type ActivityMessage struct {
	EventID      string `json:"event_id"`
	UserID       int64  `json:"user_id"`
	ActionPageID int64  `json:"action_page_id"`
	OccurredAt   int64  `json:"occurred_at"`
}
