package postgres

import (
	"time"

	"gorm.io/datatypes"

	"github.com/BarkinBalci/action-event-service/internal/domain"
)

// eventRecord maps the ahoy_events table owned by the application schema
type eventRecord struct {
	ID           string            `gorm:"type:uuid;primaryKey"`
	Name         string            `gorm:"size:16;index;not null"`
	Time         time.Time         `gorm:"column:time;type:timestamptz;index;not null"`
	VisitID      *int64            `gorm:"index"`
	UserID       *int64            `gorm:"index"`
	ActionPageID *int64            `gorm:"index"`
	Properties   datatypes.JSONMap `gorm:"type:jsonb"`
}

func (eventRecord) TableName() string {
	return "ahoy_events"
}

type userRecord struct {
	ID             int64 `gorm:"primaryKey"`
	RecordActivity bool
}

func (userRecord) TableName() string {
	return "users"
}

type actionPageRecord struct {
	ID                    int64 `gorm:"primaryKey"`
	EnableCall            bool
	EnableCongressMessage bool
	EnableEmail           bool
	EnablePetition        bool
	EnableTweet           bool
}

func (actionPageRecord) TableName() string {
	return "action_pages"
}

func newEventRecord(e *domain.Event) eventRecord {
	properties := datatypes.JSONMap{}
	for k, v := range e.Properties {
		properties[k] = v
	}
	return eventRecord{
		ID:           e.ID,
		Name:         e.Name,
		Time:         e.Time,
		VisitID:      e.VisitID,
		UserID:       e.UserID,
		ActionPageID: e.ActionPageID,
		Properties:   properties,
	}
}

func (r actionPageRecord) toDomain() *domain.ActionPage {
	return &domain.ActionPage{
		ID:                    r.ID,
		EnableCall:            r.EnableCall,
		EnableCongressMessage: r.EnableCongressMessage,
		EnableEmail:           r.EnableEmail,
		EnablePetition:        r.EnablePetition,
		EnableTweet:           r.EnableTweet,
	}
}
