package model

import "time"

// Class is a performer archetype with resource-specific reward multipliers.
type Class string

const (
	ClassKnight Class = "KNIGHT"
	ClassMage   Class = "MAGE"
	ClassRogue  Class = "ROGUE"
	ClassHealer Class = "HEALER"
	ClassRanger Class = "RANGER"
)

// Classes lists every class in display order.
var Classes = []Class{ClassKnight, ClassMage, ClassRogue, ClassHealer, ClassRanger}

// Valid reports whether c is one of the known classes.
func (c Class) Valid() bool {
	for _, k := range Classes {
		if c == k {
			return true
		}
	}
	return false
}

// Character is the progression record of one family member.
type Character struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    int64     `gorm:"uniqueIndex;not null" json:"user_id"`
	Name      string    `gorm:"size:32;not null" json:"name"`
	Class     Class     `gorm:"size:16;not null" json:"class"`
	Level     int       `gorm:"default:1" json:"level"`
	Exp       int64     `gorm:"default:0" json:"exp"`
	Gold      int64     `gorm:"default:0" json:"gold"`
	Gems      int64     `gorm:"default:0" json:"gems"`
	Honor     int64     `gorm:"default:0" json:"honor"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
