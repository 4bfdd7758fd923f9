package model

import "time"

// PromptEvent is a change event stored for websocket catch-up replay
type PromptEvent struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Topic     string    `gorm:"column:topic;type:varchar(64);not null;index:idx_topic_id" json:"topic"`
	EventType string    `gorm:"column:event_type;type:varchar(32);not null" json:"event_type"`
	Payload   string    `gorm:"column:payload;type:json;not null" json:"payload"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

// TableName specifies the table name for PromptEvent
func (PromptEvent) TableName() string {
	return "prompt_events"
}

// Event types published on the prompts topic
const (
	EventPromptCreated   = "prompt.created"
	EventPromptUpdated   = "prompt.updated"
	EventPromptDeleted   = "prompt.deleted"
	EventVersionCreated  = "version.created"
	EventVersionRollback = "version.rollback"
)
