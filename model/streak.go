package model

import "time"

// StreakRecord counts consecutive approvals of one template by one character.
type StreakRecord struct {
	ID              int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	CharacterID     int64      `gorm:"uniqueIndex:idx_streak_char_template;not null" json:"character_id"`
	TemplateID      int64      `gorm:"uniqueIndex:idx_streak_char_template;not null" json:"template_id"`
	CurrentStreak   int        `gorm:"default:0" json:"current_streak"`
	LongestStreak   int        `gorm:"default:0" json:"longest_streak"`
	LastCompletedAt *time.Time `json:"last_completed_at"`
	CreatedAt       time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}
