package model

import (
	"time"

	"gorm.io/datatypes"
)

// TransactionType classifies ledger entries.
type TransactionType string

const (
	TransactionQuestReward TransactionType = "QUEST_REWARD"
)

// Transaction is an immutable ledger entry describing one payout.
// (QuestID, Type) is unique so a quest can never be paid twice.
type Transaction struct {
	ID          string          `gorm:"primaryKey;size:36" json:"id"`
	FamilyID    int64           `gorm:"index:idx_tx_family;not null" json:"family_id"`
	UserID      int64           `gorm:"index:idx_tx_user;not null" json:"user_id"`
	CharacterID int64           `gorm:"not null" json:"character_id"`
	QuestID     string          `gorm:"uniqueIndex:idx_tx_quest_type;size:36;not null" json:"quest_id"`
	Type        TransactionType `gorm:"uniqueIndex:idx_tx_quest_type;size:32;not null" json:"type"`
	XP          int64           `json:"xp"`
	Gold        int64           `json:"gold"`
	Gems        int64           `json:"gems"`
	Honor       int64           `json:"honor"`
	Metadata    datatypes.JSON  `json:"metadata"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
}
