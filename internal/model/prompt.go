package model

import (
	"time"

	"gorm.io/datatypes"
)

// Prompt represents a stored prompt. Content always reflects whichever
// version is currently active.
type Prompt struct {
	ID           string         `gorm:"type:varchar(36);primaryKey" json:"id"`
	Title        string         `gorm:"type:varchar(200);not null" json:"title"`
	Content      string         `gorm:"type:text;not null" json:"content"`
	Description  string         `gorm:"type:varchar(500)" json:"description"`
	CollectionID *string        `gorm:"type:varchar(36);index" json:"collection_id"`
	Variables    datatypes.JSON `gorm:"type:json" json:"variables"`
	CreatedAt    time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name for Prompt
func (Prompt) TableName() string {
	return "prompts"
}
