package model

import "time"

// QuestStatus is the lifecycle state of a quest instance.
type QuestStatus string

const (
	QuestStatusPending    QuestStatus = "PENDING"
	QuestStatusInProgress QuestStatus = "IN_PROGRESS"
	QuestStatusCompleted  QuestStatus = "COMPLETED"
	QuestStatusApproved   QuestStatus = "APPROVED"
	QuestStatusExpired    QuestStatus = "EXPIRED"
	QuestStatusMissed     QuestStatus = "MISSED"
)

// Terminal reports whether no further transition is possible.
func (s QuestStatus) Terminal() bool {
	return s == QuestStatusApproved || s == QuestStatusExpired || s == QuestStatusMissed
}

// Difficulty scales every base reward.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "EASY"
	DifficultyMedium Difficulty = "MEDIUM"
	DifficultyHard   Difficulty = "HARD"
)

// QuestCategory groups quests for display and scheduling.
type QuestCategory string

const (
	CategoryDaily  QuestCategory = "DAILY"
	CategoryWeekly QuestCategory = "WEEKLY"
	CategoryOneOff QuestCategory = "ONE_OFF"
	CategoryBoss   QuestCategory = "BOSS"
)

// Recurrence is the repeat pattern of the template a quest was generated from.
type Recurrence string

const (
	RecurrenceNone   Recurrence = "NONE"
	RecurrenceDaily  Recurrence = "DAILY"
	RecurrenceWeekly Recurrence = "WEEKLY"
	RecurrenceCustom Recurrence = "CUSTOM"
)

// Quest is one chore instance assigned within a family.
type Quest struct {
	ID          string        `gorm:"primaryKey;size:36" json:"id"`
	FamilyID    int64         `gorm:"index:idx_quest_family;not null" json:"family_id"`
	Title       string        `gorm:"size:128;not null" json:"title"`
	Description string        `gorm:"type:text" json:"description"`
	BaseXP      int64         `gorm:"default:0" json:"base_xp"`
	BaseGold    int64         `gorm:"default:0" json:"base_gold"`
	BaseGems    int64         `gorm:"default:0" json:"base_gems"`
	BaseHonor   int64         `gorm:"default:0" json:"base_honor"`
	Difficulty  Difficulty    `gorm:"size:16;not null;default:EASY" json:"difficulty"`
	Category    QuestCategory `gorm:"size:16;not null;default:ONE_OFF" json:"category"`
	Recurrence  Recurrence    `gorm:"size:16;not null;default:NONE" json:"recurrence"`
	Status      QuestStatus   `gorm:"size:16;index:idx_quest_status;not null;default:PENDING" json:"status"`
	AssigneeID  *int64        `gorm:"index:idx_quest_assignee" json:"assignee_id"`
	TemplateID  *int64        `json:"template_id"`
	DueAt       *time.Time    `gorm:"index:idx_quest_due" json:"due_at"`
	CompletedAt *time.Time    `json:"completed_at"`
	ApprovedAt  *time.Time    `json:"approved_at"`
	ApprovedBy  *int64        `json:"approved_by"`
	// VolunteerBonus is the extra fraction earned by claiming an open quest.
	VolunteerBonus *float64 `json:"volunteer_bonus"`
	// StreakBonus is the streak fraction applied at approval time.
	StreakBonus *float64  `json:"streak_bonus"`
	Version     int64     `gorm:"default:0" json:"version"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// Recurring reports whether approvals of this quest feed a streak.
func (q *Quest) Recurring() bool {
	return q.TemplateID != nil && q.Recurrence != "" && q.Recurrence != RecurrenceNone
}

// Overdue reports whether the due date has elapsed at now.
func (q *Quest) Overdue(now time.Time) bool {
	return q.DueAt != nil && now.After(*q.DueAt)
}
