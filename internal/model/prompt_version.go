package model

import "time"

// PromptVersion is one immutable entry in a prompt's version history.
// Rows are append-only: after creation only Archived may change.
// SequenceNo is strictly increasing within a prompt, so history ordering
// stays unambiguous even when timestamps collide.
type PromptVersion struct {
	ID              int64     `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	PromptID        string    `gorm:"column:prompt_id;type:varchar(36);not null;uniqueIndex:uk_prompt_version_name;index:idx_prompt_sequence" json:"prompt_id"`
	VersionName     string    `gorm:"column:version_name;type:varchar(128);not null;uniqueIndex:uk_prompt_version_name" json:"version_name"`
	Description     string    `gorm:"column:description;type:varchar(500)" json:"description"`
	ContentSnapshot string    `gorm:"column:content_snapshot;type:text;not null" json:"content_snapshot"`
	SequenceNo      int64     `gorm:"column:sequence_no;not null;index:idx_prompt_sequence" json:"sequence_no"`
	Archived        bool      `gorm:"column:archived;not null;default:false" json:"archived"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

// TableName specifies the table name for PromptVersion
func (PromptVersion) TableName() string {
	return "prompt_versions"
}
