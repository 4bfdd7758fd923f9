package model

import "time"

// ActivePointer records which version currently represents a prompt's
// live content. One row per prompt; created with the first version and
// repointed on every successful create or rollback, never deleted while
// the prompt has versions.
type ActivePointer struct {
	PromptID        string    `gorm:"column:prompt_id;type:varchar(36);primaryKey" json:"prompt_id"`
	ActiveVersionID int64     `gorm:"column:active_version_id;not null" json:"active_version_id"`
	UpdatedAt       time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name for ActivePointer
func (ActivePointer) TableName() string {
	return "active_pointers"
}
