package model

import "time"

// BossStatus is the state of a boss battle.
type BossStatus string

const (
	BossStatusActive   BossStatus = "ACTIVE"
	BossStatusDefeated BossStatus = "DEFEATED"
	BossStatusFailed   BossStatus = "FAILED"
)

// Participation is how much of a battle's reward a participant earned.
type Participation string

const (
	ParticipationNone     Participation = "NONE"
	ParticipationPartial  Participation = "PARTIAL"
	ParticipationApproved Participation = "APPROVED"
)

// BossBattle is a family-wide event whose rewards are split by participation.
type BossBattle struct {
	ID                 int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	FamilyID           int64      `gorm:"index:idx_boss_family;not null" json:"family_id"`
	Name               string     `gorm:"size:64;not null" json:"name"`
	Status             BossStatus `gorm:"size:16;not null;default:ACTIVE" json:"status"`
	DefeatedAt         *time.Time `gorm:"index:idx_boss_defeated" json:"defeated_at"`
	BaseRewardGold     int64      `gorm:"default:0" json:"base_reward_gold"`
	BaseRewardXP       int64      `gorm:"default:0" json:"base_reward_xp"`
	RewardsDistributed bool       `gorm:"default:false" json:"rewards_distributed"`
	CreatedAt          time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

// BossBattleParticipant is one user's share of a battle.
type BossBattleParticipant struct {
	ID            int64         `gorm:"primaryKey;autoIncrement" json:"id"`
	BattleID      int64         `gorm:"uniqueIndex:idx_boss_participant;not null" json:"battle_id"`
	UserID        int64         `gorm:"uniqueIndex:idx_boss_participant;not null" json:"user_id"`
	Participation Participation `gorm:"size:16;not null;default:NONE" json:"participation"`
	AwardedGold   int64         `gorm:"default:0" json:"awarded_gold"`
	AwardedXP     int64         `gorm:"default:0" json:"awarded_xp"`
}
