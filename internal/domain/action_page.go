package domain

import (
	"strings"
	"time"
)

// EventType names one chartable slice of the event collection
type EventType string

const (
	TypeViews            EventType = "views"
	TypeEmails           EventType = "emails"
	TypeTweets           EventType = "tweets"
	TypeCalls            EventType = "calls"
	TypeSignatures       EventType = "signatures"
	TypeCongressMessages EventType = "congress_messages"
)

// Types is the canonical order of event types
var Types = []EventType{
	TypeViews,
	TypeEmails,
	TypeTweets,
	TypeCalls,
	TypeSignatures,
	TypeCongressMessages,
}

// ActionType returns the properties action type matched by t, empty for views
func (t EventType) ActionType() string {
	switch t {
	case TypeEmails:
		return ActionEmail
	case TypeTweets:
		return ActionTweet
	case TypeCalls:
		return ActionCall
	case TypeSignatures:
		return ActionSignature
	case TypeCongressMessages:
		return ActionCongressMessage
	}
	return ""
}

// ParseEventType accepts any of the canonical type names
func ParseEventType(s string) (EventType, bool) {
	for _, t := range Types {
		if string(t) == s {
			return t, true
		}
	}
	return "", false
}

// ActionPage carries the enable flags of a campaign page
type ActionPage struct {
	ID                    int64
	EnableCall            bool
	EnableCongressMessage bool
	EnableEmail           bool
	EnablePetition        bool
	EnableTweet           bool
}

// ActionTypesFor returns the event types enabled on page in canonical order.
// A nil page enables every type; views are never filtered.
func ActionTypesFor(page *ActionPage) []EventType {
	types := make([]EventType, 0, len(Types))
	for _, t := range Types {
		if page != nil && !page.enables(t) {
			continue
		}
		types = append(types, t)
	}
	return types
}

func (p *ActionPage) enables(t EventType) bool {
	switch t {
	case TypeCalls:
		return p.EnableCall
	case TypeCongressMessages:
		return p.EnableCongressMessage
	case TypeEmails:
		return p.EnableEmail
	case TypeSignatures:
		return p.EnablePetition
	case TypeTweets:
		return p.EnableTweet
	}
	return true
}

// DayLayout formats calendar days as "Jun 1 2019"
const DayLayout = "Jan 2 2006"

// StartOfDay returns midnight of t's calendar day in loc
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// DayLabel formats the calendar day of t in loc
func DayLabel(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(DayLayout)
}

// NameKey is the lower-cased event name used as a table column
func NameKey(name string) string {
	return strings.ToLower(name)
}
