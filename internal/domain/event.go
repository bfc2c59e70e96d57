package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Event names
const (
	NameAction = "Action"
	NameView   = "View"
)

// Action types carried in Properties[PropertyActionType]
const (
	ActionEmail           = "email"
	ActionCongressMessage = "congress_message"
	ActionCall            = "call"
	ActionSignature       = "signature"
	ActionTweet           = "tweet"
)

// PropertyActionType is the properties key holding the action type
const PropertyActionType = "actionType"

var (
	// ErrInvalidEvent is returned for events that must not be persisted
	ErrInvalidEvent = errors.New("invalid event")

	// ErrNotFound is returned by providers when a referenced record does not exist
	ErrNotFound = errors.New("not found")
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Event represents a recorded visit page view or constituent action
type Event struct {
	ID           string         `json:"id"`
	Name         string         `json:"name" validate:"required,oneof=Action View"`
	Time         time.Time      `json:"time"`
	VisitID      *int64         `json:"visit_id,omitempty"`
	UserID       *int64         `json:"user_id,omitempty"`
	ActionPageID *int64         `json:"action_page_id,omitempty"`
	Properties   map[string]any `json:"properties"`
}

// ActionType returns the properties action type, empty when absent or not a string
func (e *Event) ActionType() string {
	if e.Properties == nil {
		return ""
	}
	actionType, _ := e.Properties[PropertyActionType].(string)
	return actionType
}

// IsAction reports whether the event records a constituent action
func (e *Event) IsAction() bool {
	return e.Name == NameAction
}

// Validate checks the name and, for actions, the action type
func (e *Event) Validate() error {
	if err := validate.Struct(e); err != nil {
		return fmt.Errorf("%w: name must be %s or %s, got %q", ErrInvalidEvent, NameAction, NameView, e.Name)
	}

	if !e.IsAction() {
		return nil
	}

	raw, ok := e.Properties[PropertyActionType]
	if !ok {
		return fmt.Errorf("%w: action event requires properties.%s", ErrInvalidEvent, PropertyActionType)
	}
	actionType, ok := raw.(string)
	if !ok {
		return fmt.Errorf("%w: properties.%s must be a string, got %T", ErrInvalidEvent, PropertyActionType, raw)
	}
	if err := validate.Var(actionType, "oneof=email congress_message call signature tweet"); err != nil {
		return fmt.Errorf("%w: unknown action type %q", ErrInvalidEvent, actionType)
	}

	return nil
}

// Activity is the CRM notification for an attributed action
type Activity struct {
	EventID      string
	UserID       int64
	ActionPageID int64
	OccurredAt   time.Time
}

// ActivityFor returns the CRM activity of a persisted event, false when
// the event is not an action attributed to both a user and an action page
func ActivityFor(e *Event) (Activity, bool) {
	if !e.IsAction() || e.UserID == nil || e.ActionPageID == nil {
		return Activity{}, false
	}
	return Activity{
		EventID:      e.ID,
		UserID:       *e.UserID,
		ActionPageID: *e.ActionPageID,
		OccurredAt:   e.Time,
	}, true
}
