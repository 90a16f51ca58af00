package model

import "time"

// Role is a member's authority inside a family.
type Role string

const (
	RoleGuardian Role = "GUARDIAN"
	RoleMember   Role = "MEMBER"
)

// Family is the tenant every quest, member and battle belongs to.
type Family struct {
	ID           int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name         string    `gorm:"size:64;not null" json:"name"`
	Timezone     string    `gorm:"size:64;default:UTC" json:"timezone"`
	WeekStartDay int       `gorm:"default:0" json:"week_start_day"` // 0=Sunday
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// Member links a user to a family with a role.
type Member struct {
	UserID      int64     `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	FamilyID    int64     `gorm:"index:idx_member_family;not null" json:"family_id"`
	DisplayName string    `gorm:"size:32;not null" json:"display_name"`
	Role        Role      `gorm:"size:16;not null;default:MEMBER" json:"role"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}
