package repository

import (
	"time"

	"github.com/BarkinBalci/action-event-service/internal/domain"
)

// Query is a composable filter over the event collection. The zero value
// matches every event; each method returns a copy narrowed by one more
// condition. Conflicting conditions yield a query that matches nothing.
type Query struct {
	Name         string
	ActionType   string
	ActionPageID *int64
	From         time.Time
	Until        time.Time

	none bool
}

// NewQuery returns a query matching all events
func NewQuery() Query {
	return Query{}
}

// MatchesNothing reports whether the query conditions contradict each other
func (q Query) MatchesNothing() bool {
	if q.none {
		return true
	}
	return !q.From.IsZero() && !q.Until.IsZero() && !q.From.Before(q.Until)
}

func (q Query) Actions() Query {
	return q.named(domain.NameAction)
}

func (q Query) Views() Query {
	return q.named(domain.NameView)
}

func (q Query) Emails() Query { return q.action(domain.ActionEmail) }

func (q Query) CongressMessages() Query { return q.action(domain.ActionCongressMessage) }

func (q Query) Calls() Query { return q.action(domain.ActionCall) }

func (q Query) Signatures() Query { return q.action(domain.ActionSignature) }

func (q Query) Tweets() Query { return q.action(domain.ActionTweet) }

func (q Query) named(name string) Query {
	if q.Name != "" && q.Name != name {
		q.none = true
	}
	q.Name = name
	return q
}

func (q Query) action(actionType string) Query {
	q = q.named(domain.NameAction)
	if q.ActionType != "" && q.ActionType != actionType {
		q.none = true
	}
	q.ActionType = actionType
	return q
}

// OfType narrows the query to one chartable event type
func (q Query) OfType(t domain.EventType) Query {
	if t == domain.TypeViews {
		return q.Views()
	}
	return q.action(t.ActionType())
}

// OnPage narrows the query to events of one action page
func (q Query) OnPage(pageID int64) Query {
	if q.ActionPageID != nil && *q.ActionPageID != pageID {
		q.none = true
	}
	q.ActionPageID = &pageID
	return q
}

// InRange keeps events at or after start and before the end of end's
// calendar day, in end's location. InRange(d, d) selects all of day d.
// Repeated ranges intersect.
func (q Query) InRange(start, end time.Time) Query {
	until := domain.StartOfDay(end, end.Location()).AddDate(0, 0, 1)
	if q.From.IsZero() || start.After(q.From) {
		q.From = start
	}
	if q.Until.IsZero() || until.Before(q.Until) {
		q.Until = until
	}
	return q
}

// Matches evaluates the query against a single event
func (q Query) Matches(e *domain.Event) bool {
	if q.none {
		return false
	}
	if q.Name != "" && e.Name != q.Name {
		return false
	}
	if q.ActionType != "" && e.ActionType() != q.ActionType {
		return false
	}
	if q.ActionPageID != nil && (e.ActionPageID == nil || *e.ActionPageID != *q.ActionPageID) {
		return false
	}
	if !q.From.IsZero() && e.Time.Before(q.From) {
		return false
	}
	if !q.Until.IsZero() && !e.Time.Before(q.Until) {
		return false
	}
	return true
}
